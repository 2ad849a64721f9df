package config

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadGuestConfig_Valid(t *testing.T) {
	path := writeFile(t, "web-01.yaml", `name: Web-01
uuid: 7F3B1C2E-4A5D-4E6F-8A9B-0C1D2E3F4A5B
vcpus: 4
memory_mib: 8192
disks:
  - device: vda
    path: /var/lib/libvirt/images/web-01_boot.qcow2
  - device: vdb
    path: /var/lib/libvirt/images/web-01_data.raw
    format: raw
  - device: sda
    path: /var/lib/libvirt/images/web-01_cloudinit.iso
    format: raw
    bus: sata
    readonly: true
interfaces:
  - bridge: br0
    ip: 10.20.30.40/24
  - bridge: br1
    mac: 52:54:00:AB:CD:EF
`)

	cfg, err := LoadGuestConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "web-01", cfg.Name)
	assert.Equal(t, "7f3b1c2e-4a5d-4e6f-8a9b-0c1d2e3f4a5b", cfg.UUID)
	assert.Equal(t, 4, cfg.VCPUs)
	assert.Equal(t, 8192, cfg.MemoryMiB)

	require.Len(t, cfg.Disks, 3)
	assert.Equal(t, DiskConfig{Device: "vda", Path: "/var/lib/libvirt/images/web-01_boot.qcow2", Format: "qcow2", Bus: "virtio"}, cfg.Disks[0])
	assert.Equal(t, "raw", cfg.Disks[1].Format)
	assert.True(t, cfg.Disks[2].ReadOnly)
	assert.Equal(t, "sata", cfg.Disks[2].Bus)

	require.Len(t, cfg.Interfaces, 2)
	assert.Equal(t, "be:ef:0a:14:1e:28", cfg.Interfaces[0].MAC)
	assert.Equal(t, "vm0a141e28", cfg.Interfaces[0].Target)
	assert.Equal(t, "virtio", cfg.Interfaces[0].Model)
	assert.Empty(t, cfg.Interfaces[1].Target)
	assert.Equal(t, "52:54:00:ab:cd:ef", cfg.Interfaces[1].MAC)

	boot, ok := cfg.BootDisk()
	require.True(t, ok)
	assert.Equal(t, "vda", boot.Device)
}

func TestLoadGuestConfig_GeneratesUUID(t *testing.T) {
	path := writeFile(t, "tiny.yaml", `name: tiny
vcpus: 1
memory_mib: 512
disks:
  - device: vda
    path: /images/tiny.qcow2
`)

	first, err := LoadGuestConfig(path)
	require.NoError(t, err)
	second, err := LoadGuestConfig(path)
	require.NoError(t, err)

	_, err = uuid.Parse(first.UUID)
	require.NoError(t, err)
	assert.NotEqual(t, first.UUID, second.UUID)
}

func TestLoadGuestConfig_Errors(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		expectErr string
	}{
		{name: "malformed", content: "name: [", expectErr: "failed to parse YAML"},
		{name: "bad ip", content: "name: a\nvcpus: 1\nmemory_mib: 1\ndisks: []\ninterfaces:\n  - bridge: br0\n    ip: fe80::1\n", expectErr: "only IPv4"},
		{name: "invalid", content: "name: a\nvcpus: 1\nmemory_mib: 1\n", expectErr: "at least one disks entry is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadGuestConfig(writeFile(t, "guest.yaml", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectErr)
		})
	}
}

func validGuest() GuestConfig {
	return GuestConfig{
		Name:      "test",
		UUID:      "7f3b1c2e-4a5d-4e6f-8a9b-0c1d2e3f4a5b",
		VCPUs:     2,
		MemoryMiB: 2048,
		Disks:     []DiskConfig{{Device: "vda", Path: "/images/test.qcow2", Format: "qcow2", Bus: "virtio"}},
		Interfaces: []InterfaceConfig{
			{Bridge: "br0", Target: "vnet0"},
		},
	}
}

func TestGuestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *GuestConfig)
		expectErr string
	}{
		{name: "valid", mutate: func(c *GuestConfig) {}},
		{name: "single character name", mutate: func(c *GuestConfig) { c.Name = "a" }},
		{name: "missing name", mutate: func(c *GuestConfig) { c.Name = "" }, expectErr: "name is required"},
		{name: "bad name", mutate: func(c *GuestConfig) { c.Name = "-web" }, expectErr: "name must start and end"},
		{name: "bad uuid", mutate: func(c *GuestConfig) { c.UUID = "not-a-uuid" }, expectErr: `invalid uuid "not-a-uuid"`},
		{name: "zero vcpus", mutate: func(c *GuestConfig) { c.VCPUs = 0 }, expectErr: "vcpus must be > 0, got 0"},
		{name: "zero memory", mutate: func(c *GuestConfig) { c.MemoryMiB = 0 }, expectErr: "memory_mib must be > 0, got 0"},
		{name: "no disks", mutate: func(c *GuestConfig) { c.Disks = nil }, expectErr: "at least one disks entry is required"},
		{
			name: "duplicate disk",
			mutate: func(c *GuestConfig) {
				c.Disks = append(c.Disks, DiskConfig{Device: "vda", Path: "/images/other.qcow2"})
			},
			expectErr: `disks[1]: duplicate device name "vda"`,
		},
		{
			name: "duplicate target",
			mutate: func(c *GuestConfig) {
				c.Interfaces = append(c.Interfaces, InterfaceConfig{Bridge: "br1", Target: "vnet0"})
			},
			expectErr: `interfaces[1]: duplicate target "vnet0"`,
		},
		{
			name: "untargeted interfaces may repeat",
			mutate: func(c *GuestConfig) {
				c.Interfaces = []InterfaceConfig{{Bridge: "br0"}, {Bridge: "br0"}}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validGuest()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.expectErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectErr)
		})
	}
}

func TestDiskConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		disk      DiskConfig
		expectErr string
	}{
		{name: "valid", disk: DiskConfig{Device: "vdb", Path: "/images/a.qcow2"}},
		{name: "missing device", disk: DiskConfig{Path: "/images/a.qcow2"}, expectErr: "device is required"},
		{name: "bad device", disk: DiskConfig{Device: "disk0", Path: "/images/a.qcow2"}, expectErr: `invalid device name "disk0"`},
		{name: "missing path", disk: DiskConfig{Device: "vdb"}, expectErr: "path is required"},
		{name: "relative path", disk: DiskConfig{Device: "vdb", Path: "a.qcow2"}, expectErr: "path must be absolute"},
		{name: "bad format", disk: DiskConfig{Device: "vdb", Path: "/a", Format: "vmdk"}, expectErr: `unsupported format "vmdk"`},
		{name: "bad bus", disk: DiskConfig{Device: "vdb", Path: "/a", Bus: "usb"}, expectErr: `unsupported bus "usb"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.disk.Validate()
			if tt.expectErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectErr)
		})
	}
}

func TestInterfaceConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		iface     InterfaceConfig
		expectErr string
	}{
		{name: "valid", iface: InterfaceConfig{Bridge: "br0", MAC: "be:ef:0a:14:1e:28"}},
		{name: "missing bridge", iface: InterfaceConfig{}, expectErr: "bridge is required"},
		{name: "bad mac", iface: InterfaceConfig{Bridge: "br0", MAC: "zz:zz"}, expectErr: "invalid mac address"},
		{name: "bad ip", iface: InterfaceConfig{Bridge: "br0", IP: "10.0.0"}, expectErr: "invalid ip address"},
		{name: "long target", iface: InterfaceConfig{Bridge: "br0", Target: "averyveryverylongname"}, expectErr: "exceeds 15 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.iface.Validate()
			if tt.expectErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectErr)
		})
	}
}

func TestMACFromIP(t *testing.T) {
	tests := []struct {
		ip      string
		want    string
		wantErr bool
	}{
		{ip: "10.20.30.40", want: "be:ef:0a:14:1e:28"},
		{ip: "10.20.30.40/24", want: "be:ef:0a:14:1e:28"},
		{ip: "192.168.1.1", want: "be:ef:c0:a8:01:01"},
		{ip: "255.255.255.255", want: "be:ef:ff:ff:ff:ff"},
		{ip: "2001:db8::1", wantErr: true},
		{ip: "garbage", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			got, err := MACFromIP(tt.ip)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTapNameFromIP(t *testing.T) {
	got, err := TapNameFromIP("10.55.22.22/16")
	require.NoError(t, err)
	assert.Equal(t, "vm0a371616", got)
	assert.LessOrEqual(t, len(got), 15)

	_, err = TapNameFromIP("fd00::2")
	require.Error(t, err)
}
