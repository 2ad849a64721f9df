package libvirt

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/digitalocean/go-libvirt"
	"github.com/digitalocean/go-libvirt/socket/dialers"
	"github.com/google/uuid"
)

// Client wraps a go-libvirt connection.
type Client struct {
	libvirt *libvirt.Libvirt
}

// Connect establishes a connection to the local libvirt daemon.
// It returns a Client that must be closed via Close() when done.
//
// If socketPath is empty, defaults to "/var/run/libvirt/libvirt-sock" (qemu:///system)
// If timeout is zero, defaults to 5 seconds.
func Connect(socketPath string, timeout time.Duration) (*Client, error) {
	// Set defaults
	if socketPath == "" {
		socketPath = "/var/run/libvirt/libvirt-sock"
	}
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	// Create local dialer with options
	dialer := dialers.NewLocal(
		dialers.WithSocket(socketPath),
		dialers.WithLocalTimeout(timeout),
	)

	// Create libvirt client and connect
	l := libvirt.NewWithDialer(dialer)
	if err := l.Connect(); err != nil {
		return nil, errors.Wrapf(err, "failed to connect to libvirt at %s", socketPath)
	}

	return &Client{libvirt: l}, nil
}

// Replaced in tests.
var (
	dial    = Connect
	release = func(c *Client) { _ = c.Close() }
)

// ConnectWithContext establishes a connection with context support for cancellation.
func ConnectWithContext(ctx context.Context, socketPath string, timeout time.Duration) (*Client, error) {
	// Create a channel for the connection result
	type result struct {
		client *Client
		err    error
	}
	resultCh := make(chan result, 1)

	// Attempt connection in a goroutine
	go func() {
		c, err := dial(socketPath, timeout)
		resultCh <- result{client: c, err: err}
	}()

	// Wait for either context cancellation or connection completion
	select {
	case <-ctx.Done():
		// The dial may still succeed; close that connection once it lands.
		go func() {
			if res := <-resultCh; res.client != nil {
				release(res.client)
			}
		}()
		return nil, errors.Wrap(ctx.Err(), "connection cancelled")
	case res := <-resultCh:
		return res.client, res.err
	}
}

// Close closes the libvirt connection and releases resources.
// It is safe to call Close multiple times.
func (c *Client) Close() error {
	if c.libvirt == nil {
		return nil
	}

	l := c.libvirt
	c.libvirt = nil
	if err := l.Disconnect(); err != nil {
		return errors.Wrap(err, "failed to disconnect from libvirt")
	}

	return nil
}

// Libvirt returns the underlying go-libvirt client. It satisfies the
// consumer-side interface of the guest package.
func (c *Client) Libvirt() *libvirt.Libvirt {
	return c.libvirt
}

// Ping verifies the connection is still alive by calling a simple libvirt API.
func (c *Client) Ping() error {
	if c.libvirt == nil {
		return errors.New("client not connected")
	}

	// Try to get libvirt version as a ping test
	_, err := c.libvirt.ConnectGetLibVersion()
	if err != nil {
		return errors.Wrap(err, "libvirt connection is dead")
	}

	return nil
}

// Version returns the daemon's libvirt version as major.minor.release.
func (c *Client) Version() (string, error) {
	if c.libvirt == nil {
		return "", errors.New("client not connected")
	}
	v, err := c.libvirt.ConnectGetLibVersion()
	if err != nil {
		return "", errors.Wrap(err, "failed to get libvirt version")
	}
	return FormatVersion(v), nil
}

// FormatVersion renders libvirt's packed version number
// (major*1000000 + minor*1000 + release).
func FormatVersion(v uint64) string {
	return fmt.Sprintf("%d.%d.%d", v/1000000, (v/1000)%1000, v%1000)
}

// domainLookup is the subset of go-libvirt used by LookupDomain.
type domainLookup interface {
	DomainLookupByUUID(UUID libvirt.UUID) (libvirt.Domain, error)
	DomainLookupByName(Name string) (libvirt.Domain, error)
}

// LookupDomain finds a domain by UUID when ref parses as one, otherwise by
// name.
func (c *Client) LookupDomain(ref string) (libvirt.Domain, error) {
	if c.libvirt == nil {
		return libvirt.Domain{}, errors.New("client not connected")
	}
	return lookupDomain(c.libvirt, ref)
}

func lookupDomain(lv domainLookup, ref string) (libvirt.Domain, error) {
	if ref == "" {
		return libvirt.Domain{}, errors.New("guest name or uuid is required")
	}
	if id, err := uuid.Parse(ref); err == nil {
		dom, err := lv.DomainLookupByUUID(libvirt.UUID(id))
		if err != nil {
			return libvirt.Domain{}, errors.Wrapf(err, "failed to find guest with uuid %s", ref)
		}
		return dom, nil
	}
	dom, err := lv.DomainLookupByName(ref)
	if err != nil {
		return libvirt.Domain{}, errors.Wrapf(err, "failed to find guest %q", ref)
	}
	return dom, nil
}
