// Package config loads guestctl's settings and guest definitions from YAML.
package config

import (
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is read when no --config flag is given. It may be absent.
	DefaultPath = "/etc/guestctl/config.yaml"

	// DefaultSocket is the qemu:///system daemon socket.
	DefaultSocket = "/var/run/libvirt/libvirt-sock"

	DefaultTimeout = 5 * time.Second

	EnvSocket   = "GUESTCTL_SOCKET"
	EnvLogLevel = "GUESTCTL_LOG_LEVEL"
)

// Hairpin methods.
const (
	HairpinExec    = "exec"
	HairpinNetlink = "netlink"
)

// Config holds the CLI settings.
type Config struct {
	Libvirt LibvirtConfig `yaml:"libvirt"`
	Log     LogConfig     `yaml:"log"`
	Hairpin HairpinConfig `yaml:"hairpin"`
}

// LibvirtConfig selects the daemon connection.
type LibvirtConfig struct {
	Socket  string        `yaml:"socket"`
	Timeout time.Duration `yaml:"timeout"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// HairpinConfig selects how bridge ports are switched to hairpin mode.
type HairpinConfig struct {
	Method     string `yaml:"method"`      // exec (tee into sysfs) or netlink
	RootHelper string `yaml:"root_helper"` // prefix for exec when not root
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Libvirt: LibvirtConfig{
			Socket:  DefaultSocket,
			Timeout: DefaultTimeout,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Hairpin: HairpinConfig{
			Method:     HairpinExec,
			RootHelper: "sudo",
		},
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file at DefaultPath is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to parse %s", path)
		}
	case errors.Is(err, fs.ErrNotExist) && path == DefaultPath:
	default:
		return nil, errors.Wrap(err, "failed to read config file")
	}

	cfg.applyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid configuration in %s", path)
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvSocket); ok && v != "" {
		c.Libvirt.Socket = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
}

// Validate checks the settings.
func (c *Config) Validate() error {
	if c.Libvirt.Socket == "" {
		return errors.New("libvirt.socket is required")
	}
	if c.Libvirt.Timeout <= 0 {
		return errors.Newf("libvirt.timeout must be > 0, got %s", c.Libvirt.Timeout)
	}
	if _, err := zapcore.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		return errors.Newf("log.level: unknown level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return errors.Newf("log.format must be console or json, got %q", c.Log.Format)
	}
	switch c.Hairpin.Method {
	case HairpinExec, HairpinNetlink:
	default:
		return errors.Newf("hairpin.method must be %s or %s, got %q", HairpinExec, HairpinNetlink, c.Hairpin.Method)
	}
	return nil
}
