package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"libvirt.org/go/libvirtxml"

	"github.com/jbweber/guestctl/internal/guest"
)

var (
	devicePersistent bool
	deviceLive       bool
)

// loadDiskXML parses a <disk> element from path.
func loadDiskXML(path string) (*libvirtxml.DomainDisk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read disk XML")
	}
	var disk libvirtxml.DomainDisk
	if err := disk.Unmarshal(string(data)); err != nil {
		return nil, errors.Wrapf(err, "failed to parse disk XML in %s", path)
	}
	if disk.Target == nil || disk.Target.Dev == "" {
		return nil, errors.Newf("disk XML in %s has no target dev", path)
	}
	return &disk, nil
}

func deviceTargets() error {
	if !devicePersistent && !deviceLive {
		return errors.New("at least one of --persistent or --live is required")
	}
	return nil
}

var attachDiskCmd = &cobra.Command{
	Use:   "attach-disk <guest> <disk.xml>",
	Short: "Attach a disk to a guest",
	Long: `Attach the disk described by a <disk> XML element to the guest's
persistent definition (--persistent), the running guest (--live), or both.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := deviceTargets(); err != nil {
			return err
		}
		disk, err := loadDiskXML(args[1])
		if err != nil {
			return err
		}
		return withGuest(cmd, args[0], func(g *guest.Guest) error {
			if err := g.AttachDevice(disk, devicePersistent, deviceLive); err != nil {
				return errors.Wrapf(err, "failed to attach %s to %s", disk.Target.Dev, args[0])
			}
			fmt.Printf("✓ Disk %s attached to %s\n", disk.Target.Dev, args[0])
			return nil
		})
	},
}

var detachDiskCmd = &cobra.Command{
	Use:   "detach-disk <guest> <disk.xml>",
	Short: "Detach a disk from a guest",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := deviceTargets(); err != nil {
			return err
		}
		disk, err := loadDiskXML(args[1])
		if err != nil {
			return err
		}
		return withGuest(cmd, args[0], func(g *guest.Guest) error {
			if err := g.DetachDevice(disk, devicePersistent, deviceLive); err != nil {
				return errors.Wrapf(err, "failed to detach %s from %s", disk.Target.Dev, args[0])
			}
			fmt.Printf("✓ Disk %s detached from %s\n", disk.Target.Dev, args[0])
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{attachDiskCmd, detachDiskCmd} {
		c.Flags().BoolVar(&devicePersistent, "persistent", false, "change the persistent definition")
		c.Flags().BoolVar(&deviceLive, "live", false, "change the running guest")
	}
}
