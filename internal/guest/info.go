package guest

import (
	"fmt"

	"github.com/digitalocean/go-libvirt"
)

// VCPUState is the scheduling state of a virtual CPU (libvirt VIR_VCPU_*).
type VCPUState int32

const (
	VCPUOffline VCPUState = 0
	VCPURunning VCPUState = 1
	VCPUBlocked VCPUState = 2
)

func (s VCPUState) String() string {
	switch s {
	case VCPUOffline:
		return "offline"
	case VCPURunning:
		return "running"
	case VCPUBlocked:
		return "blocked"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// MarshalText renders the state by name in JSON and YAML output.
func (s VCPUState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// VCPUInfo is one virtual CPU's scheduling state at the time of the query.
type VCPUInfo struct {
	// ID is the virtual CPU number.
	ID uint32 `json:"id" yaml:"id"`
	// CPU is the host CPU the vcpu currently runs on, -1 when unbound.
	CPU int32 `json:"cpu" yaml:"cpu"`
	// State is offline, running or blocked on a resource.
	State VCPUState `json:"state" yaml:"state"`
	// Time is the cumulative CPU time used, in nanoseconds.
	Time uint64 `json:"time" yaml:"time"`
}

func vcpuInfoFrom(v libvirt.VcpuInfo) VCPUInfo {
	return VCPUInfo{
		ID:    v.Number,
		CPU:   v.CPU,
		State: VCPUState(v.State),
		Time:  v.CPUTime,
	}
}

// BlockJobType identifies the kind of block job running on a disk
// (libvirt VIR_DOMAIN_BLOCK_JOB_TYPE_*).
type BlockJobType int32

const (
	BlockJobNone         BlockJobType = 0
	BlockJobPull         BlockJobType = 1
	BlockJobCopy         BlockJobType = 2
	BlockJobCommit       BlockJobType = 3
	BlockJobActiveCommit BlockJobType = 4
)

func (t BlockJobType) String() string {
	switch t {
	case BlockJobNone:
		return "none"
	case BlockJobPull:
		return "pull"
	case BlockJobCopy:
		return "copy"
	case BlockJobCommit:
		return "commit"
	case BlockJobActiveCommit:
		return "active-commit"
	default:
		return fmt.Sprintf("unknown(%d)", int32(t))
	}
}

func (t BlockJobType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// BlockJobInfo is a block job's progress at the time of the query.
//
// A disk without a running job has no BlockJobInfo at all; JobInfo reports
// that case with ok == false so it is never confused with a job at 0%.
type BlockJobInfo struct {
	Job BlockJobType `json:"job" yaml:"job"`
	// Bandwidth is the throughput cap in MiB/s, 0 meaning unlimited.
	Bandwidth uint64 `json:"bandwidth" yaml:"bandwidth"`
	// Cur is the position between 0 and End.
	Cur uint64 `json:"cur" yaml:"cur"`
	// End is the position at which the operation completes.
	End uint64 `json:"end" yaml:"end"`
}

// Progress returns Cur/End in [0, 1]; 0 while End is still unknown.
func (i BlockJobInfo) Progress() float64 {
	if i.End == 0 {
		return 0
	}
	if i.Cur >= i.End {
		return 1
	}
	return float64(i.Cur) / float64(i.End)
}

// Done reports whether the job reached its end. Copy and active commit jobs
// stay in this state until they are aborted or pivoted.
func (i BlockJobInfo) Done() bool {
	return i.End > 0 && i.Cur == i.End
}
