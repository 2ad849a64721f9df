package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// GuestConfig describes a guest to define from a YAML document.
type GuestConfig struct {
	Name       string            `yaml:"name"`
	UUID       string            `yaml:"uuid,omitempty"` // Generated by Normalize when empty
	VCPUs      int               `yaml:"vcpus"`
	MemoryMiB  int               `yaml:"memory_mib"`
	Disks      []DiskConfig      `yaml:"disks"`
	Interfaces []InterfaceConfig `yaml:"interfaces,omitempty"`
}

// DiskConfig is one file-backed disk. The first disk boots.
type DiskConfig struct {
	Device   string `yaml:"device"` // vda, vdb, sda, etc.
	Path     string `yaml:"path"`
	Format   string `yaml:"format,omitempty"` // qcow2 (default) or raw
	Bus      string `yaml:"bus,omitempty"`    // virtio (default), sata, scsi
	ReadOnly bool   `yaml:"readonly,omitempty"`
}

// InterfaceConfig is one bridged network interface.
type InterfaceConfig struct {
	Bridge string `yaml:"bridge"`
	MAC    string `yaml:"mac,omitempty"`
	// IP derives MAC when MAC is empty, e.g. 10.20.30.40 -> be:ef:0a:14:1e:28.
	IP     string `yaml:"ip,omitempty"`
	Target string `yaml:"target,omitempty"` // Host tap device name, chosen by libvirt when empty
	Model  string `yaml:"model,omitempty"`  // virtio (default)
}

var (
	namePattern   = regexp.MustCompile(`^[a-z0-9]([a-z0-9_-]*[a-z0-9])?$`)
	devicePattern = regexp.MustCompile(`^(vd|sd|hd|xvd)[a-z]+$`)

	diskFormats = []string{"qcow2", "raw"}
	diskBuses   = []string{"virtio", "sata", "scsi", "ide"}
)

// LoadGuestConfig reads, normalizes and validates a guest definition.
func LoadGuestConfig(path string) (*GuestConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read guest config")
	}

	var cfg GuestConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse YAML")
	}

	if err := cfg.Normalize(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// Normalize sanitizes user input and fills in defaults. It runs before
// Validate.
func (c *GuestConfig) Normalize() error {
	c.Name = strings.ToLower(strings.TrimSpace(c.Name))

	c.UUID = strings.ToLower(strings.TrimSpace(c.UUID))
	if c.UUID == "" {
		c.UUID = uuid.NewString()
	}

	for i := range c.Disks {
		d := &c.Disks[i]
		d.Device = strings.TrimSpace(d.Device)
		if d.Format == "" {
			d.Format = "qcow2"
		}
		if d.Bus == "" {
			d.Bus = "virtio"
		}
	}

	// Bridge names are not normalized; they must match the host exactly.
	for i := range c.Interfaces {
		iface := &c.Interfaces[i]
		if iface.Model == "" {
			iface.Model = "virtio"
		}
		iface.MAC = strings.ToLower(strings.TrimSpace(iface.MAC))
		if iface.MAC == "" && iface.IP != "" {
			mac, err := MACFromIP(iface.IP)
			if err != nil {
				return errors.Wrapf(err, "interfaces[%d]", i)
			}
			iface.MAC = mac
		}
		if iface.Target == "" && iface.IP != "" {
			target, err := TapNameFromIP(iface.IP)
			if err != nil {
				return errors.Wrapf(err, "interfaces[%d]", i)
			}
			iface.Target = target
		}
	}
	return nil
}

// Validate checks the configuration structure. Host resources (bridges,
// image files) are not checked.
func (c *GuestConfig) Validate() error {
	if c.Name == "" {
		return errors.New("name is required")
	}
	if !namePattern.MatchString(c.Name) {
		return errors.Newf("name must start and end with alphanumeric characters and contain only alphanumeric, hyphens, or underscores, got %q", c.Name)
	}
	if c.UUID != "" {
		if _, err := uuid.Parse(c.UUID); err != nil {
			return errors.Newf("invalid uuid %q", c.UUID)
		}
	}
	if c.VCPUs <= 0 {
		return errors.Newf("vcpus must be > 0, got %d", c.VCPUs)
	}
	if c.MemoryMiB <= 0 {
		return errors.Newf("memory_mib must be > 0, got %d", c.MemoryMiB)
	}

	if len(c.Disks) == 0 {
		return errors.New("at least one disks entry is required")
	}
	devicesSeen := make(map[string]bool)
	for i, disk := range c.Disks {
		if err := disk.Validate(); err != nil {
			return errors.Wrapf(err, "disks[%d]", i)
		}
		if devicesSeen[disk.Device] {
			return errors.Newf("disks[%d]: duplicate device name %q", i, disk.Device)
		}
		devicesSeen[disk.Device] = true
	}

	targetsSeen := make(map[string]bool)
	for i, iface := range c.Interfaces {
		if err := iface.Validate(); err != nil {
			return errors.Wrapf(err, "interfaces[%d]", i)
		}
		if iface.Target == "" {
			continue
		}
		if targetsSeen[iface.Target] {
			return errors.Newf("interfaces[%d]: duplicate target %q", i, iface.Target)
		}
		targetsSeen[iface.Target] = true
	}
	return nil
}

// Validate checks disk configuration.
func (d *DiskConfig) Validate() error {
	if d.Device == "" {
		return errors.New("device is required")
	}
	if !devicePattern.MatchString(d.Device) {
		return errors.Newf("invalid device name %q", d.Device)
	}
	if d.Path == "" {
		return errors.New("path is required")
	}
	if !filepath.IsAbs(d.Path) {
		return errors.Newf("path must be absolute, got %q", d.Path)
	}
	if d.Format != "" && !slices.Contains(diskFormats, d.Format) {
		return errors.Newf("unsupported format %q (supported: %s)", d.Format, strings.Join(diskFormats, ", "))
	}
	if d.Bus != "" && !slices.Contains(diskBuses, d.Bus) {
		return errors.Newf("unsupported bus %q (supported: %s)", d.Bus, strings.Join(diskBuses, ", "))
	}
	return nil
}

// Validate checks interface configuration.
func (n *InterfaceConfig) Validate() error {
	if n.Bridge == "" {
		return errors.New("bridge is required")
	}
	if n.MAC != "" {
		if _, err := net.ParseMAC(n.MAC); err != nil {
			return errors.Newf("invalid mac address %q", n.MAC)
		}
	}
	if n.IP != "" && net.ParseIP(stripCIDR(n.IP)) == nil {
		return errors.Newf("invalid ip address %q", n.IP)
	}
	if len(n.Target) > 15 {
		return errors.Newf("target %q exceeds 15 characters", n.Target)
	}
	return nil
}

// BootDisk returns the first disk.
func (c *GuestConfig) BootDisk() (DiskConfig, bool) {
	if len(c.Disks) == 0 {
		return DiskConfig{}, false
	}
	return c.Disks[0], true
}

// MACFromIP derives a locally administered MAC address from an IPv4 address:
//
//	10.20.30.40 -> be:ef:0a:14:1e:28
func MACFromIP(ip string) (string, error) {
	v4, err := parseIPv4(ip)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("be:ef:%02x:%02x:%02x:%02x", v4[0], v4[1], v4[2], v4[3]), nil
}

// TapNameFromIP derives the host tap device name from an IPv4 address:
// 10.20.30.40 becomes vm0a141e28.
func TapNameFromIP(ip string) (string, error) {
	v4, err := parseIPv4(ip)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("vm%02x%02x%02x%02x", v4[0], v4[1], v4[2], v4[3]), nil
}

func parseIPv4(ip string) (net.IP, error) {
	parsed := net.ParseIP(stripCIDR(ip))
	if parsed == nil {
		return nil, errors.Newf("invalid IP address: %s", ip)
	}
	v4 := parsed.To4()
	if v4 == nil {
		return nil, errors.Newf("only IPv4 addresses are supported: %s", ip)
	}
	return v4, nil
}

func stripCIDR(ip string) string {
	addr, _, _ := strings.Cut(ip, "/")
	return addr
}
