package guest

import (
	"github.com/digitalocean/go-libvirt"
)

// Each helper sets a flag iff its boolean is true; flags are independent.

func startFlags(pause bool) uint32 {
	var flags uint32
	if pause {
		flags |= uint32(libvirt.DomainStartPaused)
	}
	return flags
}

// deviceFlags selects the persistent definition (config) and/or the running
// guest (live). With neither set libvirt applies the change to the current
// state of the domain.
func deviceFlags(persistent, live bool) uint32 {
	var flags uint32
	if persistent {
		flags |= uint32(libvirt.DomainAffectConfig)
	}
	if live {
		flags |= uint32(libvirt.DomainAffectLive)
	}
	return flags
}

func xmlFlags(inactive, sensitive, migratable bool) libvirt.DomainXMLFlags {
	var flags libvirt.DomainXMLFlags
	if inactive {
		flags |= libvirt.DomainXMLInactive
	}
	if sensitive {
		flags |= libvirt.DomainXMLSecure
	}
	if migratable {
		flags |= libvirt.DomainXMLMigratable
	}
	return flags
}

func abortFlags(async, pivot bool) libvirt.DomainBlockJobAbortFlags {
	var flags libvirt.DomainBlockJobAbortFlags
	if async {
		flags |= libvirt.DomainBlockJobAbortAsync
	}
	if pivot {
		flags |= libvirt.DomainBlockJobAbortPivot
	}
	return flags
}

func rebaseFlags(shallow, reuseExt, copyJob, relative bool) libvirt.DomainBlockRebaseFlags {
	var flags libvirt.DomainBlockRebaseFlags
	if shallow {
		flags |= libvirt.DomainBlockRebaseShallow
	}
	if reuseExt {
		flags |= libvirt.DomainBlockRebaseReuseExt
	}
	if copyJob {
		flags |= libvirt.DomainBlockRebaseCopy
	}
	if relative {
		flags |= libvirt.DomainBlockRebaseRelative
	}
	return flags
}

func commitFlags(relative bool) libvirt.DomainBlockCommitFlags {
	var flags libvirt.DomainBlockCommitFlags
	if relative {
		flags |= libvirt.DomainBlockCommitRelative
	}
	return flags
}

// optString maps "" to an absent libvirt optional string.
func optString(s string) libvirt.OptString {
	if s == "" {
		return nil
	}
	return libvirt.OptString{s}
}
