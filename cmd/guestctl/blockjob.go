package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jbweber/guestctl/internal/guest"
)

// Block job flags
var (
	jobInterval time.Duration
	jobTimeout  time.Duration

	abortAsync bool
	abortPivot bool

	rebaseBase     string
	rebaseShallow  bool
	rebaseReuseExt bool
	rebaseCopy     bool
	rebaseRelative bool

	commitBase     string
	commitTop      string
	commitRelative bool
)

var blockjobCmd = &cobra.Command{
	Use:   "blockjob",
	Short: "Manage live block jobs on a guest disk",
	Long: `Start, watch and end live block jobs (pull, copy, commit) on one
disk of a running guest, or resize the disk.

Disks are addressed by their target device, for example vda.`,
}

// withBlockDevice runs fn on the block device dev of guest ref.
func withBlockDevice(cmd *cobra.Command, ref, dev string, fn func(b *guest.BlockDevice) error) error {
	return withGuest(cmd, ref, func(g *guest.Guest) error {
		return fn(g.BlockDevice(dev))
	})
}

func printJob(dev string, info *guest.BlockJobInfo) error {
	formatter, err := newFormatter()
	if err != nil {
		return err
	}
	result, err := formatter.FormatJob(dev, info)
	if err != nil {
		return errors.Wrap(err, "failed to format output")
	}
	fmt.Print(result)
	return nil
}

var blockjobInfoCmd = &cobra.Command{
	Use:   "info <guest> <dev>",
	Short: "Show the block job running on a disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBlockDevice(cmd, args[0], args[1], func(b *guest.BlockDevice) error {
			info, ok, err := b.JobInfo()
			if err != nil {
				return errors.Wrapf(err, "failed to get block job on %s", args[1])
			}
			if !ok {
				return printJob(args[1], nil)
			}
			return printJob(args[1], &info)
		})
	},
}

var blockjobWaitCmd = &cobra.Command{
	Use:   "wait <guest> <dev>",
	Short: "Wait for the block job on a disk to finish",
	Long: `Poll the block job on a disk until it disappears or reaches its end.

Copy and active commit jobs stay in a ready state at the end and must be
finished with "blockjob abort --pivot".`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if jobTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, jobTimeout)
			defer cancel()
		}
		return withBlockDevice(cmd, args[0], args[1], func(b *guest.BlockDevice) error {
			logger.Debug("Waiting for block job",
				zap.String("disk", args[1]),
				zap.Duration("interval", jobInterval))
			last, err := b.WaitForJob(ctx, jobInterval)
			if err != nil {
				return errors.Wrapf(err, "failed waiting for block job on %s", args[1])
			}
			if last.End == 0 {
				return printJob(args[1], nil)
			}
			return printJob(args[1], &last)
		})
	},
}

var blockjobAbortCmd = &cobra.Command{
	Use:   "abort <guest> <dev>",
	Short: "Cancel or finish the block job on a disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBlockDevice(cmd, args[0], args[1], func(b *guest.BlockDevice) error {
			if err := b.AbortJob(abortAsync, abortPivot); err != nil {
				return errors.Wrapf(err, "failed to abort block job on %s", args[1])
			}
			if abortPivot {
				fmt.Printf("✓ Block job on %s pivoted\n", args[1])
			} else {
				fmt.Printf("✓ Block job on %s aborted\n", args[1])
			}
			return nil
		})
	},
}

var blockjobRebaseCmd = &cobra.Command{
	Use:   "rebase <guest> <dev>",
	Short: "Start a pull or copy job on a disk",
	Long: `Start a pull job that flattens the disk's backing chain onto --base,
or with --copy a copy job that mirrors the disk into --base.

Without --base a pull job merges the whole backing chain into the top image.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if rebaseCopy && rebaseBase == "" {
			return errors.New("--copy requires --base")
		}
		return withBlockDevice(cmd, args[0], args[1], func(b *guest.BlockDevice) error {
			if err := b.Rebase(rebaseBase, rebaseShallow, rebaseReuseExt, rebaseCopy, rebaseRelative); err != nil {
				return errors.Wrapf(err, "failed to start rebase on %s", args[1])
			}
			job := "Pull"
			if rebaseCopy {
				job = "Copy"
			}
			fmt.Printf("✓ %s job started on %s\n", job, args[1])
			return nil
		})
	},
}

var blockjobCommitCmd = &cobra.Command{
	Use:   "commit <guest> <dev>",
	Short: "Start a commit job on a disk",
	Long: `Merge the images between --top and --base into --base. Without either
flag libvirt commits the active image into the base of the chain.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBlockDevice(cmd, args[0], args[1], func(b *guest.BlockDevice) error {
			if err := b.Commit(commitBase, commitTop, commitRelative); err != nil {
				return errors.Wrapf(err, "failed to start commit on %s", args[1])
			}
			fmt.Printf("✓ Commit job started on %s\n", args[1])
			return nil
		})
	},
}

var blockjobResizeCmd = &cobra.Command{
	Use:   "resize <guest> <dev> <size-kib>",
	Short: "Resize a disk",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		size, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid size %q", args[2])
		}
		return withBlockDevice(cmd, args[0], args[1], func(b *guest.BlockDevice) error {
			if err := b.Resize(size); err != nil {
				return errors.Wrapf(err, "failed to resize %s", args[1])
			}
			fmt.Printf("✓ Disk %s resized to %d KiB\n", args[1], size)
			return nil
		})
	},
}

func init() {
	blockjobWaitCmd.Flags().DurationVar(&jobInterval, "interval", guest.DefaultJobPollInterval, "poll interval")
	blockjobWaitCmd.Flags().DurationVar(&jobTimeout, "timeout", 0, "give up after this long (0 waits forever)")

	blockjobAbortCmd.Flags().BoolVar(&abortAsync, "async", false, "return once cancellation is requested")
	blockjobAbortCmd.Flags().BoolVar(&abortPivot, "pivot", false, "switch to the new image when ending a copy or active commit")

	blockjobRebaseCmd.Flags().StringVar(&rebaseBase, "base", "", "new backing image (copy destination with --copy)")
	blockjobRebaseCmd.Flags().BoolVar(&rebaseShallow, "shallow", false, "copy only the top of the backing chain")
	blockjobRebaseCmd.Flags().BoolVar(&rebaseReuseExt, "reuse-external", false, "reuse an existing destination file")
	blockjobRebaseCmd.Flags().BoolVar(&rebaseCopy, "copy", false, "start a copy job instead of a pull")
	blockjobRebaseCmd.Flags().BoolVar(&rebaseRelative, "relative", false, "keep backing names relative")

	blockjobCommitCmd.Flags().StringVar(&commitBase, "base", "", "image to commit into")
	blockjobCommitCmd.Flags().StringVar(&commitTop, "top", "", "top image of the range to commit")
	blockjobCommitCmd.Flags().BoolVar(&commitRelative, "relative", false, "keep backing names relative")

	blockjobCmd.AddCommand(blockjobInfoCmd)
	blockjobCmd.AddCommand(blockjobWaitCmd)
	blockjobCmd.AddCommand(blockjobAbortCmd)
	blockjobCmd.AddCommand(blockjobRebaseCmd)
	blockjobCmd.AddCommand(blockjobCommitCmd)
	blockjobCmd.AddCommand(blockjobResizeCmd)
}
