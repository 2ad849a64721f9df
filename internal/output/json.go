package output

import (
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/jbweber/guestctl/internal/guest"
)

// JSONFormatter formats guest state as JSON.
type JSONFormatter struct{}

func marshalJSON(v any, what string) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", errors.Wrapf(err, "failed to marshal %s to JSON", what)
	}
	return string(data) + "\n", nil
}

// FormatGuest formats a guest summary as a JSON object.
func (f *JSONFormatter) FormatGuest(s GuestSummary) (string, error) {
	if s.Interfaces == nil {
		s.Interfaces = []string{}
	}
	return marshalJSON(s, "guest")
}

// FormatVCPUs formats vcpus as a JSON array.
func (f *JSONFormatter) FormatVCPUs(vcpus []guest.VCPUInfo) (string, error) {
	if len(vcpus) == 0 {
		return "[]\n", nil
	}
	return marshalJSON(vcpus, "vcpus")
}

// FormatJob formats the block job state as a JSON object.
func (f *JSONFormatter) FormatJob(dev string, job *guest.BlockJobInfo) (string, error) {
	return marshalJSON(NewJobView(dev, job), "block job")
}
