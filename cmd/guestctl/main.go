package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jbweber/guestctl/internal/bridgeport"
	"github.com/jbweber/guestctl/internal/config"
	"github.com/jbweber/guestctl/internal/guest"
	"github.com/jbweber/guestctl/internal/hostexec"
	"github.com/jbweber/guestctl/internal/libvirt"
	"github.com/jbweber/guestctl/internal/logging"
	"github.com/jbweber/guestctl/internal/output"
)

var (
	version = "dev"
	commit  = "unknown"
)

// Global flags
var (
	configPath   string
	socketPath   string
	logLevel     string
	outputFormat string
	noHeaders    bool
)

// Resolved in PersistentPreRunE.
var (
	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "guestctl",
	Short: "guestctl - libvirt guest control tool",
	Long: `guestctl drives the lifecycle of libvirt guests: define, start, stop,
undefine, device hotplug, introspection and live block jobs.

Guests are addressed by name or UUID.`,
	Version:           fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "path to the guestctl config file")
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", "", "libvirt daemon socket (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, yaml, json")
	rootCmd.PersistentFlags().BoolVar(&noHeaders, "no-headers", false, "omit table headers")

	rootCmd.AddCommand(defineCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(poweroffCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(undefineCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(xmlCmd)
	rootCmd.AddCommand(vcpusCmd)
	rootCmd.AddCommand(hairpinCmd)
	rootCmd.AddCommand(attachDiskCmd)
	rootCmd.AddCommand(detachDiskCmd)
	rootCmd.AddCommand(diskCmd)
	rootCmd.AddCommand(blockjobCmd)
	rootCmd.AddCommand(testConnCmd)
}

// setup loads the config, applies flag overrides and installs the logger.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if socketPath != "" {
		loaded.Libvirt.Socket = socketPath
	}
	if logLevel != "" {
		loaded.Log.Level = logLevel
	}
	if err := output.ValidateFormat(outputFormat); err != nil {
		return err
	}

	l, err := logging.New(logging.Options{
		Level:  loaded.Log.Level,
		Format: logging.Format(loaded.Log.Format),
	})
	if err != nil {
		return err
	}
	logging.SetDefault(l)

	cfg = loaded
	logger = logging.L()
	return nil
}

func connect(ctx context.Context) (*libvirt.Client, error) {
	client, err := libvirt.ConnectWithContext(ctx, cfg.Libvirt.Socket, cfg.Libvirt.Timeout)
	if err != nil {
		return nil, err
	}
	logger.Debug("Connected to libvirt", zap.String("socket", cfg.Libvirt.Socket))
	return client, nil
}

func closeClient(client *libvirt.Client) {
	if err := client.Close(); err != nil {
		logger.Warn("Failed to close libvirt connection", zap.Error(err))
	}
}

// hairpinSetter returns the bridge port backend selected by the config.
func hairpinSetter() bridgeport.Setter {
	if cfg.Hairpin.Method == config.HairpinNetlink {
		return bridgeport.NewNetlinkSetter()
	}
	return bridgeport.NewExecSetter(hostexec.NewExec(cfg.Hairpin.RootHelper, logger.Named("hostexec")))
}

func guestOptions() []guest.Option {
	return []guest.Option{
		guest.WithLogger(logger),
		guest.WithHairpinSetter(hairpinSetter()),
	}
}

// withGuest connects, looks up ref by name or UUID and runs fn on the guest.
func withGuest(cmd *cobra.Command, ref string, fn func(g *guest.Guest) error) error {
	client, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer closeClient(client)

	dom, err := client.LookupDomain(ref)
	if err != nil {
		return err
	}
	return fn(guest.New(client.Libvirt(), dom, guestOptions()...))
}

func newFormatter() (output.Formatter, error) {
	return output.NewFormatter(output.Options{
		Format:    output.Format(outputFormat),
		NoHeaders: noHeaders,
	})
}

var testConnCmd = &cobra.Command{
	Use:   "test-conn",
	Short: "Test libvirt connection",
	Long:  `Test connectivity to the libvirt daemon and display version information.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Testing libvirt connection...")

		client, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer closeClient(client)

		fmt.Println("✓ Connected to libvirt daemon")

		if err := client.Ping(); err != nil {
			return errors.Wrap(err, "connection test failed")
		}

		v, err := client.Version()
		if err != nil {
			return err
		}
		fmt.Printf("✓ Libvirt version: %s\n", v)

		hostname, err := client.Libvirt().ConnectGetHostname()
		if err != nil {
			return errors.Wrap(err, "failed to get hostname")
		}
		fmt.Printf("✓ Hypervisor hostname: %s\n", hostname)

		uri, err := client.Libvirt().ConnectGetUri()
		if err != nil {
			return errors.Wrap(err, "failed to get connection URI")
		}
		fmt.Printf("✓ Connection URI: %s\n", uri)

		fmt.Println("\nConnection test successful!")
		return nil
	},
}
