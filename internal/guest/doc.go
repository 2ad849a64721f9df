// Package guest wraps one libvirt domain with the lifecycle, device and
// block job operations guestctl needs.
//
// A Guest owns a single libvirt.Domain handle and issues exactly one libvirt
// call per operation, composing the call's flag bitmask from boolean intents:
//
//	g, err := guest.Create(client.Libvirt(), domainXML)
//	if err != nil {
//	    return err
//	}
//	if err := g.Launch(false); err != nil {
//	    return err
//	}
//
//	// Attach a disk to the persistent definition only
//	if err := g.AttachDevice(&disk, true, false); err != nil {
//	    return err
//	}
//
// Block jobs are driven through a BlockDevice bound to one disk target:
//
//	dev := g.BlockDevice("vda")
//	if err := dev.Rebase("", false, false, false, false); err != nil {
//	    return err
//	}
//	info, ok, err := dev.JobInfo()
//
// Error Handling:
//
// Errors from libvirt are returned unchanged. Failures that are useful to
// correlate with guest state (define, launch, hairpin) are additionally
// logged together with the domain XML. Three situations never surface as
// errors: a libvirt daemon lacking a capability during DeleteConfiguration,
// XML that cannot be fetched or parsed in the read-only helpers Interfaces
// and Disk, and queries that find nothing (Disk, JobInfo report ok == false).
//
// Concurrency:
//
// Operations are not serialized against each other. The libvirt daemon is the
// only serialization point; callers issuing concurrent operations against the
// same domain are responsible for their ordering.
package guest
