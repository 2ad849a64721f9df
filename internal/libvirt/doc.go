// Package libvirt manages the connection to the libvirt daemon.
//
// This package wraps github.com/digitalocean/go-libvirt to provide:
//   - Connection management (connect, disconnect, ping, version)
//   - Domain lookup by name or UUID
//   - Domain XML generation from guest configuration files
//
// Connection Management:
//
// The package connects to the local libvirt daemon via Unix socket:
//
//	client, err := libvirt.Connect("", 0)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	dom, err := client.LookupDomain("web-01")
//	if err != nil {
//	    return err
//	}
//	g := guest.New(client.Libvirt(), dom)
//
// Domain XML Generation:
//
//	cfg, err := config.LoadGuestConfig("web-01.yaml")
//	if err != nil {
//	    return err
//	}
//	xml, err := libvirt.GenerateDomainXML(cfg)
//	if err != nil {
//	    return err
//	}
//	g, err := guest.Create(client.Libvirt(), xml)
//
// Consumer-Side Interfaces:
//
// This package does not define interfaces for the daemon API. The guest
// package declares the operations it needs in internal/guest/interfaces.go
// and *libvirt.Libvirt satisfies them implicitly.
package libvirt
