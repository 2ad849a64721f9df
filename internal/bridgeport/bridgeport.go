// Package bridgeport changes per-port settings of the Linux bridges guest
// interfaces are plugged into.
package bridgeport

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/vishvananda/netlink"

	"github.com/jbweber/guestctl/internal/hostexec"
)

// Setter enables hairpin mode on the bridge port backing a guest interface.
type Setter interface {
	SetHairpin(ctx context.Context, dev string) error
}

// HairpinPath returns the sysfs control file for dev's bridge port.
func HairpinPath(dev string) string {
	return fmt.Sprintf("/sys/class/net/%s/brport/hairpin_mode", dev)
}

// hairpinExitCodes are the tee exit codes treated as success. Some kernels
// report 1 when the port is already in hairpin mode.
var hairpinExitCodes = []int{0, 1}

// ExecSetter writes "1" into the sysfs control file through a privileged tee.
type ExecSetter struct {
	Runner hostexec.Runner
}

// NewExecSetter returns an ExecSetter using runner.
func NewExecSetter(runner hostexec.Runner) *ExecSetter {
	return &ExecSetter{Runner: runner}
}

// SetHairpin implements Setter.
func (s *ExecSetter) SetHairpin(ctx context.Context, dev string) error {
	cmd := hostexec.Command{
		Name:      "tee",
		Args:      []string{HairpinPath(dev)},
		Stdin:     "1",
		RunAsRoot: true,
	}
	res, err := s.Runner.Run(ctx, cmd)
	if err != nil {
		return err
	}
	return hostexec.CheckExitCode(cmd, res, hairpinExitCodes...)
}

// netlinkOps is the subset of the netlink package used by NetlinkSetter.
type netlinkOps interface {
	LinkByName(name string) (netlink.Link, error)
	LinkSetHairpin(link netlink.Link, mode bool) error
}

type defaultNetlink struct{}

func (defaultNetlink) LinkByName(name string) (netlink.Link, error) {
	return netlink.LinkByName(name)
}

func (defaultNetlink) LinkSetHairpin(link netlink.Link, mode bool) error {
	return netlink.LinkSetHairpin(link, mode)
}

// NetlinkSetter sets IFLA_BRPORT_MODE over rtnetlink. The process needs
// CAP_NET_ADMIN.
type NetlinkSetter struct {
	nl netlinkOps
}

// NewNetlinkSetter returns a NetlinkSetter bound to the host network namespace.
func NewNetlinkSetter() *NetlinkSetter {
	return &NetlinkSetter{nl: defaultNetlink{}}
}

// SetHairpin implements Setter.
func (s *NetlinkSetter) SetHairpin(ctx context.Context, dev string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	link, err := s.nl.LinkByName(dev)
	if err != nil {
		return errors.Wrapf(err, "failed to look up link %s", dev)
	}
	if err := s.nl.LinkSetHairpin(link, true); err != nil {
		return errors.Wrapf(err, "failed to enable hairpin mode on %s", dev)
	}
	return nil
}
