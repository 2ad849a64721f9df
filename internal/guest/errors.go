package guest

import (
	"github.com/cockroachdb/errors"
	"github.com/digitalocean/go-libvirt"
)

// attempt classifies the outcome of one step of a fallback chain.
type attempt int

const (
	attemptSucceeded attempt = iota
	// attemptUnsupported means the daemon lacks the call or flag.
	attemptUnsupported
	// attemptFailed carries a domain-level failure.
	attemptFailed
)

func (a attempt) String() string {
	switch a {
	case attemptSucceeded:
		return "succeeded"
	case attemptUnsupported:
		return "unsupported"
	default:
		return "failed"
	}
}

func classify(err error) attempt {
	switch {
	case err == nil:
		return attemptSucceeded
	case isUnsupported(err):
		return attemptUnsupported
	default:
		return attemptFailed
	}
}

func libvirtErrorCode(err error) (libvirt.ErrorNumber, bool) {
	var lerr libvirt.Error
	if !errors.As(err, &lerr) {
		return 0, false
	}
	return libvirt.ErrorNumber(lerr.Code), true
}

func isUnsupported(err error) bool {
	code, ok := libvirtErrorCode(err)
	return ok && (code == libvirt.ErrNoSupport || code == libvirt.ErrOperationUnsupported)
}

func isOperationInvalid(err error) bool {
	code, ok := libvirtErrorCode(err)
	return ok && code == libvirt.ErrOperationInvalid
}
