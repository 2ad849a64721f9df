package libvirt

import (
	"github.com/cockroachdb/errors"
	"libvirt.org/go/libvirtxml"

	"github.com/jbweber/guestctl/internal/config"
)

// DefaultCPUMode is the guest CPU mode of generated domains.
const DefaultCPUMode = "host-model"

// GenerateDomainXML builds persistent domain XML for cfg. The first disk is
// the boot disk. cfg should already be normalized and validated.
func GenerateDomainXML(cfg *config.GuestConfig) (string, error) {
	if cfg == nil {
		return "", errors.New("guest config is required")
	}
	if _, ok := cfg.BootDisk(); !ok {
		return "", errors.Newf("guest %s has no disks", cfg.Name)
	}

	domain := &libvirtxml.Domain{
		Type: "kvm",
		Name: cfg.Name,
		UUID: cfg.UUID,
		Memory: &libvirtxml.DomainMemory{
			Value: uint(cfg.MemoryMiB),
			Unit:  "MiB",
		},
		VCPU: &libvirtxml.DomainVCPU{
			Placement: "static",
			Value:     uint(cfg.VCPUs),
		},
		OS: &libvirtxml.DomainOS{
			Firmware: "efi",
			Type: &libvirtxml.DomainOSType{
				Arch: "x86_64",
				Type: "hvm",
			},
			BIOS: &libvirtxml.DomainBIOS{
				UseSerial: "yes",
			},
		},
		Features: &libvirtxml.DomainFeatureList{
			ACPI: &libvirtxml.DomainFeature{},
			APIC: &libvirtxml.DomainFeatureAPIC{},
			PAE:  &libvirtxml.DomainFeature{},
		},
		CPU: &libvirtxml.DomainCPU{
			Mode: DefaultCPUMode,
			Model: &libvirtxml.DomainCPUModel{
				Fallback: "allow",
			},
		},
		Clock: &libvirtxml.DomainClock{
			Offset: "utc",
			Timer: []libvirtxml.DomainTimer{
				{Name: "rtc", TickPolicy: "catchup"},
				{Name: "pit", TickPolicy: "delay"},
				{Name: "hpet", Present: "no"},
			},
		},
		OnPoweroff: "destroy",
		OnReboot:   "restart",
		OnCrash:    "restart",
		Devices: &libvirtxml.DomainDeviceList{
			Controllers: []libvirtxml.DomainController{
				{
					Type:  "pci",
					Index: func() *uint { i := uint(0); return &i }(),
					Model: "pci-root",
				},
			},
			MemBalloon: &libvirtxml.DomainMemBalloon{
				Model: "virtio",
			},
			RNGs: []libvirtxml.DomainRNG{
				{
					Model: "virtio",
					Backend: &libvirtxml.DomainRNGBackend{
						Random: &libvirtxml.DomainRNGBackendRandom{
							Device: "/dev/urandom",
						},
					},
				},
			},
		},
	}

	for i, d := range cfg.Disks {
		disk := diskXML(d)
		if i == 0 {
			disk.Boot = &libvirtxml.DomainDeviceBoot{Order: 1}
		}
		domain.Devices.Disks = append(domain.Devices.Disks, disk)
	}

	for _, iface := range cfg.Interfaces {
		domain.Devices.Interfaces = append(domain.Devices.Interfaces, interfaceXML(iface))
	}

	// Add serial console
	domain.Devices.Serials = []libvirtxml.DomainSerial{
		{
			Source: &libvirtxml.DomainChardevSource{
				Pty: &libvirtxml.DomainChardevSourcePty{},
			},
			Target: &libvirtxml.DomainSerialTarget{
				Port: func() *uint { p := uint(0); return &p }(),
			},
		},
	}
	domain.Devices.Consoles = []libvirtxml.DomainConsole{
		{
			Source: &libvirtxml.DomainChardevSource{
				Pty: &libvirtxml.DomainChardevSourcePty{},
			},
			Target: &libvirtxml.DomainConsoleTarget{
				Type: "serial",
				Port: func() *uint { p := uint(0); return &p }(),
			},
		},
	}

	xml, err := domain.Marshal()
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal domain XML")
	}

	return xml, nil
}

// diskXML maps a file-backed disk. Block jobs address it by target dev.
func diskXML(d config.DiskConfig) libvirtxml.DomainDisk {
	disk := libvirtxml.DomainDisk{
		Device: "disk",
		Driver: &libvirtxml.DomainDiskDriver{
			Name: "qemu",
			Type: d.Format,
		},
		Source: &libvirtxml.DomainDiskSource{
			File: &libvirtxml.DomainDiskSourceFile{
				File: d.Path,
			},
		},
		Target: &libvirtxml.DomainDiskTarget{
			Dev: d.Device,
			Bus: d.Bus,
		},
	}
	if d.Format == "qcow2" {
		disk.Driver.Cache = "none"
	}
	if d.ReadOnly {
		disk.ReadOnly = &libvirtxml.DomainDiskReadOnly{}
		if d.Format == "raw" && d.Bus == "sata" {
			disk.Device = "cdrom"
		}
	}
	return disk
}

func interfaceXML(n config.InterfaceConfig) libvirtxml.DomainInterface {
	iface := libvirtxml.DomainInterface{
		Source: &libvirtxml.DomainInterfaceSource{
			Bridge: &libvirtxml.DomainInterfaceSourceBridge{
				Bridge: n.Bridge,
			},
		},
		Model: &libvirtxml.DomainInterfaceModel{
			Type: n.Model,
		},
	}
	if n.MAC != "" {
		iface.MAC = &libvirtxml.DomainInterfaceMAC{Address: n.MAC}
	}
	if n.Target != "" {
		iface.Target = &libvirtxml.DomainInterfaceTarget{Dev: n.Target}
	}
	return iface
}
