package guest

import (
	"context"
	"time"
)

const (
	// RebaseDefaultBandwidth is the rebase throughput cap in MiB/s, 0 unlimited.
	RebaseDefaultBandwidth = 0
	// CommitDefaultBandwidth is the commit throughput cap in MiB/s, 0 unlimited.
	CommitDefaultBandwidth = 0

	// DefaultJobPollInterval is used by WaitForJob when no interval is given.
	DefaultJobPollInterval = 500 * time.Millisecond
)

// BlockDevice controls live block jobs on one disk of a guest.
type BlockDevice struct {
	guest *Guest
	disk  string
}

// Disk returns the disk target this device is bound to.
func (b *BlockDevice) Disk() string {
	return b.disk
}

// AbortJob cancels the job running on the disk.
//
//   - async: return once the cancellation is requested
//   - pivot: switch to the new image when ending a copy or active commit job
func (b *BlockDevice) AbortJob(async, pivot bool) error {
	return b.guest.client.DomainBlockJobAbort(b.guest.dom, b.disk, abortFlags(async, pivot))
}

// JobInfo returns the job running on the disk. ok is false when there is
// none.
func (b *BlockDevice) JobInfo() (info BlockJobInfo, ok bool, err error) {
	found, typ, bandwidth, cur, end, err := b.guest.client.DomainGetBlockJobInfo(b.guest.dom, b.disk, 0)
	if err != nil {
		return BlockJobInfo{}, false, err
	}
	if found == 0 {
		return BlockJobInfo{}, false, nil
	}
	return BlockJobInfo{
		Job:       BlockJobType(typ),
		Bandwidth: bandwidth,
		Cur:       cur,
		End:       end,
	}, true, nil
}

// Rebase starts a pull (or, with copyJob, a copy) job moving the disk onto base.
// An empty base pulls the whole backing chain into the top image.
//
//   - shallow: limit the copy to the top of the source backing chain
//   - reuseExt: reuse an existing external file for the copy
//   - copyJob: start a copy job
//   - relative: keep the backing chain referenced by relative names
func (b *BlockDevice) Rebase(base string, shallow, reuseExt, copyJob, relative bool) error {
	return b.guest.client.DomainBlockRebase(b.guest.dom, b.disk, optString(base),
		RebaseDefaultBandwidth, rebaseFlags(shallow, reuseExt, copyJob, relative))
}

// Commit merges the images between top and base into base, reducing the
// backing chain left behind by live snapshots. Empty base or top let libvirt
// pick the chain's base or active image.
func (b *BlockDevice) Commit(base, top string, relative bool) error {
	return b.guest.client.DomainBlockCommit(b.guest.dom, b.disk, optString(base), optString(top),
		CommitDefaultBandwidth, commitFlags(relative))
}

// Resize resizes the disk to sizeKiB kibibytes.
func (b *BlockDevice) Resize(sizeKiB uint64) error {
	return b.guest.client.DomainBlockResize(b.guest.dom, b.disk, sizeKiB, 0)
}

// WaitForJob polls JobInfo until the job is gone or has reached its end and
// returns the last progress seen. Copy and active commit jobs end in a ready
// state that still needs AbortJob.
func (b *BlockDevice) WaitForJob(ctx context.Context, interval time.Duration) (BlockJobInfo, error) {
	if interval <= 0 {
		interval = DefaultJobPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last BlockJobInfo
	for {
		info, ok, err := b.JobInfo()
		if err != nil {
			return last, err
		}
		if !ok {
			return last, nil
		}
		last = info
		if info.Done() {
			return last, nil
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
		}
	}
}
