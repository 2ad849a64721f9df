package main

import (
	"fmt"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/jbweber/guestctl/internal/guest"
	"github.com/jbweber/guestctl/internal/output"
)

var (
	xmlInactive   bool
	xmlSecure     bool
	xmlMigratable bool
)

// summarize queries the live state printed by info.
func summarize(g *guest.Guest) (output.GuestSummary, error) {
	id, err := g.ID()
	if err != nil {
		return output.GuestSummary{}, err
	}
	name, err := g.Name()
	if err != nil {
		return output.GuestSummary{}, err
	}
	persistent, err := g.HasPersistentConfiguration()
	if err != nil {
		return output.GuestSummary{}, err
	}
	return output.GuestSummary{
		Name:       name,
		UUID:       g.UUIDString(),
		ID:         id,
		Persistent: persistent,
		Interfaces: g.Interfaces(),
	}, nil
}

var infoCmd = &cobra.Command{
	Use:   "info <guest>",
	Short: "Show a guest summary",
	Long: `Show the guest's name, UUID, runtime ID, whether it is persistent and
the host devices of its network interfaces.

Output formats:
  -o table  Human-readable table (default)
  -o yaml   YAML document
  -o json   JSON object`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		formatter, err := newFormatter()
		if err != nil {
			return err
		}
		return withGuest(cmd, args[0], func(g *guest.Guest) error {
			summary, err := summarize(g)
			if err != nil {
				return errors.Wrapf(err, "failed to query %s", args[0])
			}
			result, err := formatter.FormatGuest(summary)
			if err != nil {
				return errors.Wrap(err, "failed to format output")
			}
			fmt.Print(result)
			return nil
		})
	},
}

var xmlCmd = &cobra.Command{
	Use:   "xml <guest>",
	Short: "Print the guest's domain XML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGuest(cmd, args[0], func(g *guest.Guest) error {
			xml, err := g.XMLDesc(xmlInactive, xmlSecure, xmlMigratable)
			if err != nil {
				return errors.Wrapf(err, "failed to get XML of %s", args[0])
			}
			fmt.Println(xml)
			return nil
		})
	},
}

var vcpusCmd = &cobra.Command{
	Use:   "vcpus <guest>",
	Short: "Show the guest's virtual CPUs",
	Long: `Show each virtual CPU's host CPU, scheduling state and cumulative CPU
time. A guest that is not running has none.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		formatter, err := newFormatter()
		if err != nil {
			return err
		}
		return withGuest(cmd, args[0], func(g *guest.Guest) error {
			seq, err := g.VCPUs()
			if err != nil {
				return errors.Wrapf(err, "failed to get vcpus of %s", args[0])
			}
			result, err := formatter.FormatVCPUs(slices.Collect(seq))
			if err != nil {
				return errors.Wrap(err, "failed to format output")
			}
			fmt.Print(result)
			return nil
		})
	},
}

var diskCmd = &cobra.Command{
	Use:   "disk <guest> <dev>",
	Short: "Print the XML of one disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGuest(cmd, args[0], func(g *guest.Guest) error {
			disk, ok := g.Disk(args[1])
			if !ok {
				return errors.Newf("disk %s not found on guest %s", args[1], args[0])
			}
			xml, err := disk.Marshal()
			if err != nil {
				return errors.Wrap(err, "failed to marshal disk XML")
			}
			fmt.Println(xml)
			return nil
		})
	},
}

var hairpinCmd = &cobra.Command{
	Use:   "hairpin <guest>",
	Short: "Enable hairpin mode on the guest's bridge ports",
	Long: `Enable hairpin mode on the bridge port of every guest interface so
traffic the bridge receives from the guest can be reflected back to it.

The method (exec through the root helper, or netlink) comes from the
hairpin section of the config file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGuest(cmd, args[0], func(g *guest.Guest) error {
			if err := g.EnableHairpin(cmd.Context()); err != nil {
				return errors.Wrapf(err, "failed to enable hairpin mode for %s", args[0])
			}
			fmt.Printf("✓ Hairpin mode enabled on %d interface(s)\n", len(g.Interfaces()))
			return nil
		})
	},
}

func init() {
	xmlCmd.Flags().BoolVar(&xmlInactive, "inactive", false, "show the persistent definition instead of the live one")
	xmlCmd.Flags().BoolVar(&xmlSecure, "secure", false, "include security sensitive information")
	xmlCmd.Flags().BoolVar(&xmlMigratable, "migratable", false, "produce XML suitable for migration")
}
