// Package hostexec runs commands on the hypervisor host, optionally through
// a root helper such as sudo.
package hostexec

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// DefaultRootHelper prefixes commands that must run as root.
const DefaultRootHelper = "sudo"

// Command describes one host command.
type Command struct {
	Name      string
	Args      []string
	Stdin     string
	RunAsRoot bool
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Result is the outcome of a command that ran to completion.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner executes host commands.
//
// Run returns an error only when the command could not be started or was
// interrupted; a non-zero exit status is reported in Result.ExitCode and
// judged by the caller, usually with CheckExitCode.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// Exec is the os/exec backed Runner.
type Exec struct {
	// RootHelper is prepended for RunAsRoot commands unless the process
	// already runs with euid 0. Defaults to DefaultRootHelper.
	RootHelper string
	Logger     *zap.Logger

	geteuid func() int
}

// NewExec returns an Exec using rootHelper (DefaultRootHelper when empty).
func NewExec(rootHelper string, logger *zap.Logger) *Exec {
	if rootHelper == "" {
		rootHelper = DefaultRootHelper
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exec{RootHelper: rootHelper, Logger: logger, geteuid: unix.Geteuid}
}

// argv resolves the final program and arguments for cmd.
func (e *Exec) argv(cmd Command) (string, []string) {
	geteuid := e.geteuid
	if geteuid == nil {
		geteuid = unix.Geteuid
	}
	if !cmd.RunAsRoot || geteuid() == 0 {
		return cmd.Name, cmd.Args
	}
	helper := e.RootHelper
	if helper == "" {
		helper = DefaultRootHelper
	}
	fields := strings.Fields(helper)
	args := append(fields[1:], cmd.Name)
	return fields[0], append(args, cmd.Args...)
}

// Run implements Runner.
func (e *Exec) Run(ctx context.Context, cmd Command) (Result, error) {
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	name, args := e.argv(cmd)
	c := exec.CommandContext(ctx, name, args...)
	if cmd.Stdin != "" {
		c.Stdin = strings.NewReader(cmd.Stdin)
	}
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	logger.Debug("Running host command",
		zap.String("command", cmd.String()),
		zap.Bool("root", cmd.RunAsRoot))

	err := c.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.ExitCode = 0
	case errors.As(err, &exitErr) && ctx.Err() == nil:
		res.ExitCode = exitErr.ExitCode()
	default:
		return res, errors.Wrapf(err, "failed to run %q", cmd.String())
	}

	logger.Debug("Host command finished",
		zap.String("command", cmd.String()),
		zap.Int("exit_code", res.ExitCode))
	return res, nil
}

// CheckExitCode returns an error unless res.ExitCode is one of allowed.
// With no allowed codes only 0 is accepted.
func CheckExitCode(cmd Command, res Result, allowed ...int) error {
	if len(allowed) == 0 {
		allowed = []int{0}
	}
	if slices.Contains(allowed, res.ExitCode) {
		return nil
	}
	return &ExitError{Command: cmd.String(), ExitCode: res.ExitCode, Stderr: strings.TrimSpace(res.Stderr)}
}

// ExitError reports a command that exited with an unexpected status.
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("command %q exited with code %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("command %q exited with code %d: %s", e.Command, e.ExitCode, e.Stderr)
}
