// Package output provides formatters for displaying guest state in various
// formats (table, YAML, JSON).
package output

import (
	"github.com/cockroachdb/errors"

	"github.com/jbweber/guestctl/internal/guest"
)

// Format represents an output format type.
type Format string

const (
	// FormatTable is a human-readable table format.
	FormatTable Format = "table"
	// FormatYAML is a YAML format.
	FormatYAML Format = "yaml"
	// FormatJSON is a JSON format for machine consumption.
	FormatJSON Format = "json"
)

// GuestSummary is the point-in-time view of one guest printed by info.
type GuestSummary struct {
	Name string `json:"name" yaml:"name"`
	UUID string `json:"uuid" yaml:"uuid"`
	// ID is -1 while the guest is not running.
	ID         int32    `json:"id" yaml:"id"`
	Persistent bool     `json:"persistent" yaml:"persistent"`
	Interfaces []string `json:"interfaces" yaml:"interfaces"`
}

// JobView is the printable form of a disk's block job state.
type JobView struct {
	Disk      string  `json:"disk" yaml:"disk"`
	Active    bool    `json:"active" yaml:"active"`
	Job       string  `json:"job,omitempty" yaml:"job,omitempty"`
	Bandwidth uint64  `json:"bandwidth,omitempty" yaml:"bandwidth,omitempty"`
	Cur       uint64  `json:"cur,omitempty" yaml:"cur,omitempty"`
	End       uint64  `json:"end,omitempty" yaml:"end,omitempty"`
	Progress  float64 `json:"progress,omitempty" yaml:"progress,omitempty"`
}

// NewJobView builds the view for dev. A nil job means no job is running.
func NewJobView(dev string, job *guest.BlockJobInfo) JobView {
	v := JobView{Disk: dev}
	if job == nil {
		return v
	}
	v.Active = true
	v.Job = job.Job.String()
	v.Bandwidth = job.Bandwidth
	v.Cur = job.Cur
	v.End = job.End
	v.Progress = job.Progress()
	return v
}

// Formatter formats guest state for output.
type Formatter interface {
	// FormatGuest formats a guest summary.
	FormatGuest(s GuestSummary) (string, error)

	// FormatVCPUs formats a vcpu snapshot. An empty slice is an inactive guest.
	FormatVCPUs(vcpus []guest.VCPUInfo) (string, error)

	// FormatJob formats the block job on dev; job is nil when none runs.
	FormatJob(dev string, job *guest.BlockJobInfo) (string, error)
}

// Options contains options for formatting output.
type Options struct {
	// Format specifies the output format.
	Format Format
	// NoHeaders omits headers in table format.
	NoHeaders bool
}

// NewFormatter creates a new Formatter based on the specified format.
func NewFormatter(opts Options) (Formatter, error) {
	switch opts.Format {
	case FormatTable:
		return &TableFormatter{NoHeaders: opts.NoHeaders}, nil
	case FormatYAML:
		return &YAMLFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	default:
		return nil, errors.Newf("unsupported output format: %s (supported: table, yaml, json)", opts.Format)
	}
}

// ValidateFormat checks if a format string is valid.
func ValidateFormat(format string) error {
	switch Format(format) {
	case FormatTable, FormatYAML, FormatJSON:
		return nil
	default:
		return errors.Newf("invalid format: %s (valid formats: table, yaml, json)", format)
	}
}
