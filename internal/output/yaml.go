package output

import (
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/jbweber/guestctl/internal/guest"
)

// YAMLFormatter formats guest state as YAML.
type YAMLFormatter struct{}

func marshalYAML(v any, what string) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", errors.Wrapf(err, "failed to marshal %s to YAML", what)
	}
	return string(data), nil
}

// FormatGuest formats a guest summary as YAML.
func (f *YAMLFormatter) FormatGuest(s GuestSummary) (string, error) {
	if s.Interfaces == nil {
		s.Interfaces = []string{}
	}
	return marshalYAML(s, "guest")
}

// FormatVCPUs formats vcpus as a YAML sequence.
func (f *YAMLFormatter) FormatVCPUs(vcpus []guest.VCPUInfo) (string, error) {
	if len(vcpus) == 0 {
		return "[]\n", nil
	}
	return marshalYAML(vcpus, "vcpus")
}

// FormatJob formats the block job state as YAML.
func (f *YAMLFormatter) FormatJob(dev string, job *guest.BlockJobInfo) (string, error) {
	return marshalYAML(NewJobView(dev, job), "block job")
}
