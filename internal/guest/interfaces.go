package guest

import (
	"github.com/digitalocean/go-libvirt"
)

// libvirtClient defines the libvirt operations needed to control one guest.
//
// In production, this is satisfied by *libvirt.Libvirt directly.
// In tests, this is satisfied by mock implementations.
type libvirtClient interface {
	// DomainDefineXML defines a persistent domain from XML
	DomainDefineXML(XML string) (libvirt.Domain, error)

	// DomainLookupByUUID refreshes a domain handle (current ID and name)
	DomainLookupByUUID(UUID libvirt.UUID) (libvirt.Domain, error)

	// DomainCreateWithFlags starts a defined domain
	DomainCreateWithFlags(Dom libvirt.Domain, Flags uint32) (libvirt.Domain, error)

	// DomainDestroy force-stops a domain
	DomainDestroy(Dom libvirt.Domain) error

	// DomainResume resumes a paused domain
	DomainResume(Dom libvirt.Domain) error

	// DomainGetXMLDesc returns the domain XML
	DomainGetXMLDesc(Dom libvirt.Domain, Flags libvirt.DomainXMLFlags) (string, error)

	// DomainGetInfo returns state and resource counters
	DomainGetInfo(Dom libvirt.Domain) (rState uint8, rMaxMem uint64, rMemory uint64, rNrVirtCPU uint16, rCPUTime uint64, err error)

	// DomainGetVcpus returns per-vcpu scheduling information
	DomainGetVcpus(Dom libvirt.Domain, Maxinfo int32, Maplen int32) ([]libvirt.VcpuInfo, []byte, error)

	// DomainUndefineFlags undefines a domain with flags (e.g., managed save cleanup)
	DomainUndefineFlags(Dom libvirt.Domain, Flags libvirt.DomainUndefineFlagsValues) error

	// DomainUndefine undefines a domain
	DomainUndefine(Dom libvirt.Domain) error

	// DomainIsPersistent reports whether the domain has a persistent definition
	DomainIsPersistent(Dom libvirt.Domain) (int32, error)

	// DomainAttachDeviceFlags attaches a device described by XML
	DomainAttachDeviceFlags(Dom libvirt.Domain, XML string, Flags uint32) error

	// DomainDetachDeviceFlags detaches a device described by XML
	DomainDetachDeviceFlags(Dom libvirt.Domain, XML string, Flags uint32) error

	// DomainManagedSave saves the running domain's state to a managed image
	DomainManagedSave(Dom libvirt.Domain, Flags uint32) error

	// DomainHasManagedSaveImage reports whether a managed save image exists
	DomainHasManagedSaveImage(Dom libvirt.Domain, Flags uint32) (int32, error)

	// DomainManagedSaveRemove deletes the managed save image
	DomainManagedSaveRemove(Dom libvirt.Domain, Flags uint32) error

	// DomainBlockJobAbort cancels the block job running on a disk
	DomainBlockJobAbort(Dom libvirt.Domain, Path string, Flags libvirt.DomainBlockJobAbortFlags) error

	// DomainGetBlockJobInfo returns the block job running on a disk, if any
	DomainGetBlockJobInfo(Dom libvirt.Domain, Path string, Flags uint32) (rFound int32, rType int32, rBandwidth uint64, rCur uint64, rEnd uint64, err error)

	// DomainBlockRebase starts a pull or copy job on a disk
	DomainBlockRebase(Dom libvirt.Domain, Path string, Base libvirt.OptString, Bandwidth uint64, Flags libvirt.DomainBlockRebaseFlags) error

	// DomainBlockCommit starts a commit job on a disk
	DomainBlockCommit(Dom libvirt.Domain, Disk string, Base libvirt.OptString, Top libvirt.OptString, Bandwidth uint64, Flags libvirt.DomainBlockCommitFlags) error

	// DomainBlockResize resizes a disk
	DomainBlockResize(Dom libvirt.Domain, Disk string, Size uint64, Flags libvirt.DomainBlockResizeFlags) error
}

// DeviceConfig is a device definition that serializes to libvirt device XML.
// The libvirtxml device types (*libvirtxml.DomainDisk,
// *libvirtxml.DomainInterface, ...) satisfy it.
type DeviceConfig interface {
	Marshal() (string, error)
}

var _ libvirtClient = (*libvirt.Libvirt)(nil)
