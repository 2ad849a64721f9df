package guest

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"github.com/digitalocean/go-libvirt"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"libvirt.org/go/libvirtxml"

	"github.com/jbweber/guestctl/internal/bridgeport"
	"github.com/jbweber/guestctl/internal/hostexec"
	"github.com/jbweber/guestctl/internal/logging"
)

// Guest controls one libvirt domain.
//
// A Guest is the only owner of its domain handle. Use it through the pointer
// returned by New or Create; wrapping the same domain twice is an explicit
// call to New.
type Guest struct {
	_ noCopy

	client  libvirtClient
	dom     libvirt.Domain
	logger  *zap.Logger
	hairpin bridgeport.Setter
}

// Option configures a Guest.
type Option func(*Guest)

// WithLogger sets the logger used for diagnostics. Defaults to logging.L().
func WithLogger(logger *zap.Logger) Option {
	return func(g *Guest) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithHairpinSetter sets how EnableHairpin configures bridge ports.
// Defaults to a privileged tee into sysfs through sudo.
func WithHairpinSetter(s bridgeport.Setter) Option {
	return func(g *Guest) {
		g.hairpin = s
	}
}

// New wraps an existing domain handle.
func New(client libvirtClient, dom libvirt.Domain, opts ...Option) *Guest {
	g := &Guest{
		client: client,
		dom:    dom,
		logger: logging.L(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.Named("guest").With(
		zap.String("domain", dom.Name),
		zap.String("uuid", g.UUIDString()),
	)
	if g.hairpin == nil {
		g.hairpin = bridgeport.NewExecSetter(hostexec.NewExec(hostexec.DefaultRootHelper, g.logger))
	}
	return g
}

// Create defines a new persistent domain from xml and wraps it. The guest is
// not started.
//
// On failure the XML is logged and the libvirt error is returned unchanged.
func Create(client libvirtClient, xml string, opts ...Option) (*Guest, error) {
	dom, err := client.DomainDefineXML(xml)
	if err != nil {
		g := &Guest{logger: logging.L()}
		for _, opt := range opts {
			opt(g)
		}
		g.logger.Named("guest").Error("Error defining a domain", zap.String("xml", xml), zap.Error(err))
		return nil, err
	}
	return New(client, dom, opts...), nil
}

func (g *Guest) String() string {
	return fmt.Sprintf("<Guest %d %s %s>", g.dom.ID, g.dom.Name, g.UUIDString())
}

// Domain returns the wrapped libvirt handle.
func (g *Guest) Domain() libvirt.Domain {
	return g.dom
}

// ID returns the runtime domain ID, -1 while the guest is not running.
func (g *Guest) ID() (int32, error) {
	dom, err := g.client.DomainLookupByUUID(g.dom.UUID)
	if err != nil {
		return 0, err
	}
	return dom.ID, nil
}

// UUIDString returns the domain UUID in canonical form.
func (g *Guest) UUIDString() string {
	return uuid.UUID(g.dom.UUID).String()
}

// Name returns the current domain name.
func (g *Guest) Name() (string, error) {
	dom, err := g.client.DomainLookupByUUID(g.dom.UUID)
	if err != nil {
		return "", err
	}
	return dom.Name, nil
}

// encodedXML returns the live XML for diagnostics, or a placeholder when it
// cannot be fetched.
func (g *Guest) encodedXML() string {
	xml, err := g.client.DomainGetXMLDesc(g.dom, 0)
	if err != nil {
		return fmt.Sprintf("<unavailable: %v>", err)
	}
	return xml
}

// Launch starts a defined guest, paused if requested.
func (g *Guest) Launch(pause bool) error {
	dom, err := g.client.DomainCreateWithFlags(g.dom, startFlags(pause))
	if err != nil {
		g.logger.Error("Error launching a defined domain",
			zap.String("xml", g.encodedXML()), zap.Error(err))
		return err
	}
	if dom.UUID == g.dom.UUID {
		g.dom = dom
	}
	return nil
}

// Poweroff force-stops a running guest.
func (g *Guest) Poweroff() error {
	return g.client.DomainDestroy(g.dom)
}

// Resume resumes a paused guest.
func (g *Guest) Resume() error {
	return g.client.DomainResume(g.dom)
}

// EnableHairpin enables hairpin mode on the bridge port of every guest
// interface so traffic can be reflected back to the guest.
func (g *Guest) EnableHairpin(ctx context.Context) error {
	for _, dev := range g.Interfaces() {
		if err := g.hairpin.SetHairpin(ctx, dev); err != nil {
			g.logger.Error("Error enabling hairpin mode",
				zap.String("interface", dev),
				zap.String("xml", g.encodedXML()), zap.Error(err))
			return err
		}
	}
	return nil
}

// parseXML fetches and parses the live domain XML. Failures are logged at
// debug level and reported as ok == false.
func (g *Guest) parseXML() (*libvirtxml.Domain, bool) {
	xml, err := g.client.DomainGetXMLDesc(g.dom, 0)
	if err != nil {
		g.logger.Debug("Unable to fetch domain XML", zap.Error(err))
		return nil, false
	}
	var domain libvirtxml.Domain
	if err := domain.Unmarshal(xml); err != nil {
		g.logger.Debug("Unable to parse domain XML", zap.Error(err))
		return nil, false
	}
	return &domain, true
}

// Interfaces returns the target device name of every network interface in
// document order. It returns an empty slice when the XML is unavailable.
func (g *Guest) Interfaces() []string {
	interfaces := []string{}
	domain, ok := g.parseXML()
	if !ok || domain.Devices == nil {
		return interfaces
	}
	for _, iface := range domain.Devices.Interfaces {
		if iface.Target != nil {
			interfaces = append(interfaces, iface.Target.Dev)
		}
	}
	return interfaces
}

// VCPUs returns a single-use sequence over the guest's virtual CPUs.
//
// The data is fetched once, when VCPUs is called. An inactive guest yields
// nothing.
func (g *Guest) VCPUs() (iter.Seq[VCPUInfo], error) {
	_, _, _, nrVirtCPU, _, err := g.client.DomainGetInfo(g.dom)
	if err != nil {
		if isOperationInvalid(err) {
			return emptyVCPUs, nil
		}
		return nil, err
	}
	if nrVirtCPU == 0 {
		return emptyVCPUs, nil
	}

	raw, _, err := g.client.DomainGetVcpus(g.dom, int32(nrVirtCPU), 0)
	if err != nil {
		if isOperationInvalid(err) {
			return emptyVCPUs, nil
		}
		return nil, err
	}

	var once sync.Once
	return func(yield func(VCPUInfo) bool) {
		consumed := true
		once.Do(func() { consumed = false })
		if consumed {
			return
		}
		for _, v := range raw {
			if !yield(vcpuInfoFrom(v)) {
				return
			}
		}
	}, nil
}

func emptyVCPUs(func(VCPUInfo) bool) {}

// HasPersistentConfiguration reports whether the domain is defined
// persistently on the host.
func (g *Guest) HasPersistentConfiguration() (bool, error) {
	persistent, err := g.client.DomainIsPersistent(g.dom)
	if err != nil {
		return false, err
	}
	return persistent == 1, nil
}

// AttachDevice attaches conf to the persistent definition, the running
// guest, or both. Callers choose at least one of persistent and live.
func (g *Guest) AttachDevice(conf DeviceConfig, persistent, live bool) error {
	xml, err := conf.Marshal()
	if err != nil {
		return err
	}
	return g.client.DomainAttachDeviceFlags(g.dom, xml, deviceFlags(persistent, live))
}

// DetachDevice detaches conf from the persistent definition, the running
// guest, or both.
func (g *Guest) DetachDevice(conf DeviceConfig, persistent, live bool) error {
	xml, err := conf.Marshal()
	if err != nil {
		return err
	}
	return g.client.DomainDetachDeviceFlags(g.dom, xml, deviceFlags(persistent, live))
}

// Disk returns the disk whose target device is dev. ok is false when no such
// disk exists or the XML could not be fetched or parsed.
func (g *Guest) Disk(dev string) (*libvirtxml.DomainDisk, bool) {
	domain, ok := g.parseXML()
	if !ok || domain.Devices == nil {
		return nil, false
	}
	for i := range domain.Devices.Disks {
		disk := &domain.Devices.Disks[i]
		if disk.Target != nil && disk.Target.Dev == dev {
			return disk, true
		}
	}
	return nil, false
}

// XMLDesc returns the domain XML.
//
//   - inactive: the persistent definition rather than the live one
//   - sensitive: include security sensitive information
//   - migratable: XML suitable for migration
func (g *Guest) XMLDesc(inactive, sensitive, migratable bool) (string, error) {
	return g.client.DomainGetXMLDesc(g.dom, xmlFlags(inactive, sensitive, migratable))
}

// SaveMemoryState saves the memory and device state of a running guest into
// a managed save image. It fails for an inactive guest.
func (g *Guest) SaveMemoryState() error {
	return g.client.DomainManagedSave(g.dom, 0)
}

// BlockDevice returns a controller for the disk with target device dev.
func (g *Guest) BlockDevice(dev string) *BlockDevice {
	return &BlockDevice{guest: g, disk: dev}
}

// noCopy makes go vet's copylocks check flag copies of a Guest.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
