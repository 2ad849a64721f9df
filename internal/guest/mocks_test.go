package guest

import (
	"context"
	"sync"

	"github.com/digitalocean/go-libvirt"
)

type deviceCall struct {
	XML   string
	Flags uint32
}

type blockJobAbortCall struct {
	Path  string
	Flags libvirt.DomainBlockJobAbortFlags
}

type blockRebaseCall struct {
	Path      string
	Base      libvirt.OptString
	Bandwidth uint64
	Flags     libvirt.DomainBlockRebaseFlags
}

type blockCommitCall struct {
	Disk      string
	Base      libvirt.OptString
	Top       libvirt.OptString
	Bandwidth uint64
	Flags     libvirt.DomainBlockCommitFlags
}

type blockResizeCall struct {
	Disk string
	Size uint64
}

// mockLibvirtClient is a mock implementation of the libvirtClient interface for testing.
type mockLibvirtClient struct {
	mu sync.Mutex

	// Configurable behavior
	domainDefineXMLFunc           func(xml string) (libvirt.Domain, error)
	domainLookupByUUIDFunc        func(uuid libvirt.UUID) (libvirt.Domain, error)
	domainCreateWithFlagsFunc     func(dom libvirt.Domain, flags uint32) (libvirt.Domain, error)
	domainDestroyFunc             func(dom libvirt.Domain) error
	domainResumeFunc              func(dom libvirt.Domain) error
	domainGetXMLDescFunc          func(dom libvirt.Domain, flags libvirt.DomainXMLFlags) (string, error)
	domainGetInfoFunc             func(dom libvirt.Domain) (uint8, uint64, uint64, uint16, uint64, error)
	domainGetVcpusFunc            func(dom libvirt.Domain, maxinfo, maplen int32) ([]libvirt.VcpuInfo, []byte, error)
	domainUndefineFlagsFunc       func(dom libvirt.Domain, flags libvirt.DomainUndefineFlagsValues) error
	domainUndefineFunc            func(dom libvirt.Domain) error
	domainIsPersistentFunc        func(dom libvirt.Domain) (int32, error)
	domainAttachDeviceFlagsFunc   func(dom libvirt.Domain, xml string, flags uint32) error
	domainDetachDeviceFlagsFunc   func(dom libvirt.Domain, xml string, flags uint32) error
	domainManagedSaveFunc         func(dom libvirt.Domain, flags uint32) error
	domainHasManagedSaveImageFunc func(dom libvirt.Domain, flags uint32) (int32, error)
	domainManagedSaveRemoveFunc   func(dom libvirt.Domain, flags uint32) error
	domainBlockJobAbortFunc       func(dom libvirt.Domain, path string, flags libvirt.DomainBlockJobAbortFlags) error
	domainGetBlockJobInfoFunc     func(dom libvirt.Domain, path string, flags uint32) (int32, int32, uint64, uint64, uint64, error)
	domainBlockRebaseFunc         func(dom libvirt.Domain, path string, base libvirt.OptString, bandwidth uint64, flags libvirt.DomainBlockRebaseFlags) error
	domainBlockCommitFunc         func(dom libvirt.Domain, disk string, base, top libvirt.OptString, bandwidth uint64, flags libvirt.DomainBlockCommitFlags) error
	domainBlockResizeFunc         func(dom libvirt.Domain, disk string, size uint64, flags libvirt.DomainBlockResizeFlags) error

	// Call tracking
	calls                        []string // method names, in call order
	domainDefineXMLCalls         []string
	domainCreateWithFlagsCalls   []uint32
	domainGetXMLDescCalls        []libvirt.DomainXMLFlags
	domainGetVcpusCalls          []int32
	domainUndefineFlagsCalls     []libvirt.DomainUndefineFlagsValues
	domainAttachDeviceFlagsCalls []deviceCall
	domainDetachDeviceFlagsCalls []deviceCall
	domainManagedSaveCalls       []uint32
	domainBlockJobAbortCalls     []blockJobAbortCall
	domainGetBlockJobInfoCalls   []string
	domainBlockRebaseCalls       []blockRebaseCall
	domainBlockCommitCalls       []blockCommitCall
	domainBlockResizeCalls       []blockResizeCall
}

// newMockLibvirtClient creates a new mock libvirt client where every call succeeds.
func newMockLibvirtClient() *mockLibvirtClient {
	m := &mockLibvirtClient{}

	m.domainDefineXMLFunc = func(xml string) (libvirt.Domain, error) {
		return testDomain, nil
	}
	m.domainLookupByUUIDFunc = func(uuid libvirt.UUID) (libvirt.Domain, error) {
		return libvirt.Domain{Name: testDomain.Name, UUID: uuid, ID: 7}, nil
	}
	m.domainCreateWithFlagsFunc = func(dom libvirt.Domain, flags uint32) (libvirt.Domain, error) {
		dom.ID = 7
		return dom, nil
	}
	m.domainDestroyFunc = func(dom libvirt.Domain) error { return nil }
	m.domainResumeFunc = func(dom libvirt.Domain) error { return nil }
	m.domainGetXMLDescFunc = func(dom libvirt.Domain, flags libvirt.DomainXMLFlags) (string, error) {
		return testDomainXML, nil
	}
	// Default: running guest with 2 vcpus
	m.domainGetInfoFunc = func(dom libvirt.Domain) (uint8, uint64, uint64, uint16, uint64, error) {
		return 1, 2097152, 2097152, 2, 1000, nil
	}
	m.domainGetVcpusFunc = func(dom libvirt.Domain, maxinfo, maplen int32) ([]libvirt.VcpuInfo, []byte, error) {
		return []libvirt.VcpuInfo{
			{Number: 0, State: 1, CPUTime: 1500, CPU: 3},
			{Number: 1, State: 2, CPUTime: 900, CPU: -1},
		}, nil, nil
	}
	m.domainUndefineFlagsFunc = func(dom libvirt.Domain, flags libvirt.DomainUndefineFlagsValues) error { return nil }
	m.domainUndefineFunc = func(dom libvirt.Domain) error { return nil }
	m.domainIsPersistentFunc = func(dom libvirt.Domain) (int32, error) { return 1, nil }
	m.domainAttachDeviceFlagsFunc = func(dom libvirt.Domain, xml string, flags uint32) error { return nil }
	m.domainDetachDeviceFlagsFunc = func(dom libvirt.Domain, xml string, flags uint32) error { return nil }
	m.domainManagedSaveFunc = func(dom libvirt.Domain, flags uint32) error { return nil }
	m.domainHasManagedSaveImageFunc = func(dom libvirt.Domain, flags uint32) (int32, error) { return 0, nil }
	m.domainManagedSaveRemoveFunc = func(dom libvirt.Domain, flags uint32) error { return nil }
	m.domainBlockJobAbortFunc = func(dom libvirt.Domain, path string, flags libvirt.DomainBlockJobAbortFlags) error { return nil }
	// Default: no block job
	m.domainGetBlockJobInfoFunc = func(dom libvirt.Domain, path string, flags uint32) (int32, int32, uint64, uint64, uint64, error) {
		return 0, 0, 0, 0, 0, nil
	}
	m.domainBlockRebaseFunc = func(dom libvirt.Domain, path string, base libvirt.OptString, bandwidth uint64, flags libvirt.DomainBlockRebaseFlags) error {
		return nil
	}
	m.domainBlockCommitFunc = func(dom libvirt.Domain, disk string, base, top libvirt.OptString, bandwidth uint64, flags libvirt.DomainBlockCommitFlags) error {
		return nil
	}
	m.domainBlockResizeFunc = func(dom libvirt.Domain, disk string, size uint64, flags libvirt.DomainBlockResizeFlags) error {
		return nil
	}

	return m
}

func (m *mockLibvirtClient) record(method string) {
	m.calls = append(m.calls, method)
}

func (m *mockLibvirtClient) DomainDefineXML(xml string) (libvirt.Domain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DomainDefineXML")
	m.domainDefineXMLCalls = append(m.domainDefineXMLCalls, xml)
	return m.domainDefineXMLFunc(xml)
}

func (m *mockLibvirtClient) DomainLookupByUUID(uuid libvirt.UUID) (libvirt.Domain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DomainLookupByUUID")
	return m.domainLookupByUUIDFunc(uuid)
}

func (m *mockLibvirtClient) DomainCreateWithFlags(dom libvirt.Domain, flags uint32) (libvirt.Domain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DomainCreateWithFlags")
	m.domainCreateWithFlagsCalls = append(m.domainCreateWithFlagsCalls, flags)
	return m.domainCreateWithFlagsFunc(dom, flags)
}

func (m *mockLibvirtClient) DomainDestroy(dom libvirt.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DomainDestroy")
	return m.domainDestroyFunc(dom)
}

func (m *mockLibvirtClient) DomainResume(dom libvirt.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DomainResume")
	return m.domainResumeFunc(dom)
}

func (m *mockLibvirtClient) DomainGetXMLDesc(dom libvirt.Domain, flags libvirt.DomainXMLFlags) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DomainGetXMLDesc")
	m.domainGetXMLDescCalls = append(m.domainGetXMLDescCalls, flags)
	return m.domainGetXMLDescFunc(dom, flags)
}

func (m *mockLibvirtClient) DomainGetInfo(dom libvirt.Domain) (uint8, uint64, uint64, uint16, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DomainGetInfo")
	return m.domainGetInfoFunc(dom)
}

func (m *mockLibvirtClient) DomainGetVcpus(dom libvirt.Domain, maxinfo, maplen int32) ([]libvirt.VcpuInfo, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DomainGetVcpus")
	m.domainGetVcpusCalls = append(m.domainGetVcpusCalls, maxinfo)
	return m.domainGetVcpusFunc(dom, maxinfo, maplen)
}

func (m *mockLibvirtClient) DomainUndefineFlags(dom libvirt.Domain, flags libvirt.DomainUndefineFlagsValues) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DomainUndefineFlags")
	m.domainUndefineFlagsCalls = append(m.domainUndefineFlagsCalls, flags)
	return m.domainUndefineFlagsFunc(dom, flags)
}

func (m *mockLibvirtClient) DomainUndefine(dom libvirt.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DomainUndefine")
	return m.domainUndefineFunc(dom)
}

func (m *mockLibvirtClient) DomainIsPersistent(dom libvirt.Domain) (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DomainIsPersistent")
	return m.domainIsPersistentFunc(dom)
}

func (m *mockLibvirtClient) DomainAttachDeviceFlags(dom libvirt.Domain, xml string, flags uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DomainAttachDeviceFlags")
	m.domainAttachDeviceFlagsCalls = append(m.domainAttachDeviceFlagsCalls, deviceCall{XML: xml, Flags: flags})
	return m.domainAttachDeviceFlagsFunc(dom, xml, flags)
}

func (m *mockLibvirtClient) DomainDetachDeviceFlags(dom libvirt.Domain, xml string, flags uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DomainDetachDeviceFlags")
	m.domainDetachDeviceFlagsCalls = append(m.domainDetachDeviceFlagsCalls, deviceCall{XML: xml, Flags: flags})
	return m.domainDetachDeviceFlagsFunc(dom, xml, flags)
}

func (m *mockLibvirtClient) DomainManagedSave(dom libvirt.Domain, flags uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DomainManagedSave")
	m.domainManagedSaveCalls = append(m.domainManagedSaveCalls, flags)
	return m.domainManagedSaveFunc(dom, flags)
}

func (m *mockLibvirtClient) DomainHasManagedSaveImage(dom libvirt.Domain, flags uint32) (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DomainHasManagedSaveImage")
	return m.domainHasManagedSaveImageFunc(dom, flags)
}

func (m *mockLibvirtClient) DomainManagedSaveRemove(dom libvirt.Domain, flags uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DomainManagedSaveRemove")
	return m.domainManagedSaveRemoveFunc(dom, flags)
}

func (m *mockLibvirtClient) DomainBlockJobAbort(dom libvirt.Domain, path string, flags libvirt.DomainBlockJobAbortFlags) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DomainBlockJobAbort")
	m.domainBlockJobAbortCalls = append(m.domainBlockJobAbortCalls, blockJobAbortCall{Path: path, Flags: flags})
	return m.domainBlockJobAbortFunc(dom, path, flags)
}

func (m *mockLibvirtClient) DomainGetBlockJobInfo(dom libvirt.Domain, path string, flags uint32) (int32, int32, uint64, uint64, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DomainGetBlockJobInfo")
	m.domainGetBlockJobInfoCalls = append(m.domainGetBlockJobInfoCalls, path)
	return m.domainGetBlockJobInfoFunc(dom, path, flags)
}

func (m *mockLibvirtClient) DomainBlockRebase(dom libvirt.Domain, path string, base libvirt.OptString, bandwidth uint64, flags libvirt.DomainBlockRebaseFlags) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DomainBlockRebase")
	m.domainBlockRebaseCalls = append(m.domainBlockRebaseCalls, blockRebaseCall{Path: path, Base: base, Bandwidth: bandwidth, Flags: flags})
	return m.domainBlockRebaseFunc(dom, path, base, bandwidth, flags)
}

func (m *mockLibvirtClient) DomainBlockCommit(dom libvirt.Domain, disk string, base, top libvirt.OptString, bandwidth uint64, flags libvirt.DomainBlockCommitFlags) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DomainBlockCommit")
	m.domainBlockCommitCalls = append(m.domainBlockCommitCalls, blockCommitCall{Disk: disk, Base: base, Top: top, Bandwidth: bandwidth, Flags: flags})
	return m.domainBlockCommitFunc(dom, disk, base, top, bandwidth, flags)
}

func (m *mockLibvirtClient) DomainBlockResize(dom libvirt.Domain, disk string, size uint64, flags libvirt.DomainBlockResizeFlags) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DomainBlockResize")
	m.domainBlockResizeCalls = append(m.domainBlockResizeCalls, blockResizeCall{Disk: disk, Size: size})
	return m.domainBlockResizeFunc(dom, disk, size, flags)
}

// mockHairpinSetter records the interfaces passed to SetHairpin.
type mockHairpinSetter struct {
	devs []string
	err  error
}

func (m *mockHairpinSetter) SetHairpin(_ context.Context, dev string) error {
	m.devs = append(m.devs, dev)
	return m.err
}
