package output

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jbweber/guestctl/internal/guest"
)

// TableFormatter formats guest state as human-readable tables.
type TableFormatter struct {
	// NoHeaders omits the header row.
	NoHeaders bool
}

func (f *TableFormatter) table(header string, rows func(w *tabwriter.Writer)) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, header)
	}
	rows(w)
	_ = w.Flush()
	return buf.String()
}

// FormatGuest formats a guest summary as a single table row.
func (f *TableFormatter) FormatGuest(s GuestSummary) (string, error) {
	id := "-"
	if s.ID >= 0 {
		id = fmt.Sprintf("%d", s.ID)
	}
	interfaces := "-"
	if len(s.Interfaces) > 0 {
		interfaces = strings.Join(s.Interfaces, ",")
	}

	return f.table("NAME\tUUID\tID\tPERSISTENT\tINTERFACES", func(w *tabwriter.Writer) {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", s.Name, s.UUID, id, s.Persistent, interfaces)
	}), nil
}

// FormatVCPUs formats one row per vcpu.
func (f *TableFormatter) FormatVCPUs(vcpus []guest.VCPUInfo) (string, error) {
	if len(vcpus) == 0 {
		return "No vCPUs (guest is not running)\n", nil
	}

	return f.table("VCPU\tCPU\tSTATE\tTIME", func(w *tabwriter.Writer) {
		for _, v := range vcpus {
			cpu := "-"
			if v.CPU >= 0 {
				cpu = fmt.Sprintf("%d", v.CPU)
			}
			_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", v.ID, cpu, v.State, formatCPUTime(v.Time))
		}
	}), nil
}

// FormatJob formats the block job on dev as a single row.
func (f *TableFormatter) FormatJob(dev string, job *guest.BlockJobInfo) (string, error) {
	if job == nil {
		return fmt.Sprintf("No active block job on %s\n", dev), nil
	}

	bandwidth := "unlimited"
	if job.Bandwidth > 0 {
		bandwidth = fmt.Sprintf("%d MiB/s", job.Bandwidth)
	}

	return f.table("DISK\tJOB\tPROGRESS\tCUR/END\tBANDWIDTH", func(w *tabwriter.Writer) {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.1f%%\t%d/%d\t%s\n",
			dev, job.Job, job.Progress()*100, job.Cur, job.End, bandwidth)
	}), nil
}

// formatCPUTime renders cumulative vcpu time, given in nanoseconds, rounded
// to milliseconds.
// Examples: "0s", "1.5s", "2h3m4.005s"
func formatCPUTime(ns uint64) string {
	return time.Duration(ns).Round(time.Millisecond).String()
}
