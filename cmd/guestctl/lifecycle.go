package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/jbweber/guestctl/internal/config"
	"github.com/jbweber/guestctl/internal/guest"
	"github.com/jbweber/guestctl/internal/libvirt"
)

var startPaused bool

// readDefinition returns domain XML from either a raw XML file or a guest
// YAML file.
func readDefinition(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".xml") {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", errors.Wrap(err, "failed to read domain XML")
		}
		return string(data), nil
	}

	gc, err := config.LoadGuestConfig(path)
	if err != nil {
		return "", err
	}
	return libvirt.GenerateDomainXML(gc)
}

var defineCmd = &cobra.Command{
	Use:   "define <guest.yaml|domain.xml>",
	Short: "Define a guest",
	Long: `Define a persistent guest from a guest YAML file or raw domain XML.

The guest is not started. A YAML file without a uuid gets a fresh one.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		xml, err := readDefinition(args[0])
		if err != nil {
			return err
		}

		client, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer closeClient(client)

		g, err := guest.Create(client.Libvirt(), xml, guestOptions()...)
		if err != nil {
			return errors.Wrap(err, "failed to define guest")
		}

		name, err := g.Name()
		if err != nil {
			return err
		}
		fmt.Printf("✓ Guest %s defined (%s)\n", name, g.UUIDString())
		return nil
	},
}

var startCmd = &cobra.Command{
	Use:   "start <guest>",
	Short: "Start a defined guest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGuest(cmd, args[0], func(g *guest.Guest) error {
			if err := g.Launch(startPaused); err != nil {
				return errors.Wrapf(err, "failed to start %s", args[0])
			}
			state := "started"
			if startPaused {
				state = "started paused"
			}
			fmt.Printf("✓ Guest %s %s\n", args[0], state)
			return nil
		})
	},
}

var poweroffCmd = &cobra.Command{
	Use:   "poweroff <guest>",
	Short: "Force-stop a running guest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGuest(cmd, args[0], func(g *guest.Guest) error {
			if err := g.Poweroff(); err != nil {
				return errors.Wrapf(err, "failed to power off %s", args[0])
			}
			fmt.Printf("✓ Guest %s powered off\n", args[0])
			return nil
		})
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume <guest>",
	Short: "Resume a paused guest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGuest(cmd, args[0], func(g *guest.Guest) error {
			if err := g.Resume(); err != nil {
				return errors.Wrapf(err, "failed to resume %s", args[0])
			}
			fmt.Printf("✓ Guest %s resumed\n", args[0])
			return nil
		})
	},
}

var saveCmd = &cobra.Command{
	Use:   "save <guest>",
	Short: "Save a running guest's memory state",
	Long: `Save the memory and device state of a running guest into a managed
save image. The next start restores from it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGuest(cmd, args[0], func(g *guest.Guest) error {
			if err := g.SaveMemoryState(); err != nil {
				return errors.Wrapf(err, "failed to save %s", args[0])
			}
			fmt.Printf("✓ Guest %s saved\n", args[0])
			return nil
		})
	},
}

var undefineCmd = &cobra.Command{
	Use:   "undefine <guest>",
	Short: "Remove a guest's persistent configuration",
	Long: `Undefine a guest, removing its managed save image if one exists.

A running guest keeps running as a transient domain.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGuest(cmd, args[0], func(g *guest.Guest) error {
			if err := g.DeleteConfiguration(); err != nil {
				return errors.Wrapf(err, "failed to undefine %s", args[0])
			}
			fmt.Printf("✓ Guest %s undefined\n", args[0])
			return nil
		})
	},
}

func init() {
	startCmd.Flags().BoolVar(&startPaused, "paused", false, "leave the guest paused after start")
}
