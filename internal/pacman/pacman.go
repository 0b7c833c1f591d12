package pacman

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Manager provides the privileged package operations the sync engine needs.
// An empty package set is always a no-op that performs no privileged call.
type Manager interface {
	// Install installs or updates the given packages
	Install(ctx context.Context, pkgs []string) error
	// Remove uninstalls the given packages together with their no longer
	// needed dependencies. Packages that are not installed are skipped.
	Remove(ctx context.Context, pkgs []string) error
}

// operation selects the pacman invocation mode
type operation string

const (
	opInstall operation = "install"
	opRemove  operation = "remove"
)

// runFunc executes a command and returns its combined output. Tests swap it
// out to avoid touching the real package manager.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// ShellClient implements Manager by shelling out to pacman
type ShellClient struct {
	logger    *slog.Logger
	noConfirm bool
	useSudo   bool
	fallback  bool
	run       runFunc
}

// NewShellClient creates a pacman client. When useSudo is set and the process
// is not already running as root, invocations are wrapped in sudo.
func NewShellClient(logger *slog.Logger, noConfirm, useSudo, fallback bool) *ShellClient {
	return &ShellClient{
		logger:    logger,
		noConfirm: noConfirm,
		useSudo:   useSudo && os.Geteuid() != 0,
		fallback:  fallback,
		run:       runCommand,
	}
}

// Install installs or updates the given packages via pacman -Syu --needed.
// Already up-to-date packages are left alone by pacman itself.
func (c *ShellClient) Install(ctx context.Context, pkgs []string) error {
	if len(pkgs) == 0 {
		return nil
	}
	return c.apply(ctx, opInstall, pkgs)
}

// Remove uninstalls the given packages via pacman -Runs. The request is
// filtered through the installed-package list first, so removing an already
// absent package is a no-op instead of an error.
func (c *ShellClient) Remove(ctx context.Context, pkgs []string) error {
	if len(pkgs) == 0 {
		return nil
	}

	installed, err := c.Installed(ctx)
	if err != nil {
		return err
	}

	var present []string
	for _, pkg := range pkgs {
		if installed[pkg] {
			present = append(present, pkg)
		} else {
			c.logger.Debug("package not installed, skipping removal", "package", pkg)
		}
	}

	if len(present) == 0 {
		c.logger.Info("none of the listed packages are installed, nothing to remove")
		return nil
	}

	return c.apply(ctx, opRemove, present)
}

// Installed returns the set of currently installed packages
func (c *ShellClient) Installed(ctx context.Context) (map[string]bool, error) {
	// Querying the local database needs no privileges.
	output, err := c.run(ctx, "pacman", "-Qq")
	if err != nil {
		return nil, fmt.Errorf("pacman -Qq failed: %w: %s", err, strings.TrimSpace(string(output)))
	}

	installed := make(map[string]bool)
	for _, line := range strings.Split(string(output), "\n") {
		if name := strings.TrimSpace(line); name != "" {
			installed[name] = true
		}
	}
	return installed, nil
}

// apply runs one pacman transaction for the given packages. The bulk
// invocation is tried first; if it fails and per-package fallback is enabled,
// each package is retried individually so one broken package cannot block the
// rest of the transaction.
func (c *ShellClient) apply(ctx context.Context, op operation, pkgs []string) error {
	output, err := c.pacman(ctx, buildArgs(op, c.noConfirm, pkgs))
	if err == nil {
		return nil
	}

	if !c.fallback {
		return fmt.Errorf("pacman %s failed: %w: %s", op, err, strings.TrimSpace(string(output)))
	}

	c.logger.Warn("bulk pacman operation failed, retrying per package",
		"op", string(op),
		"count", len(pkgs),
		"error", err)

	var failed []string
	for _, pkg := range pkgs {
		output, err := c.pacman(ctx, buildArgs(op, c.noConfirm, []string{pkg}))
		if err != nil {
			c.logger.Error("pacman operation failed",
				"op", string(op),
				"package", pkg,
				"output", strings.TrimSpace(string(output)))
			failed = append(failed, pkg)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("pacman %s failed for: %s", op, strings.Join(failed, ", "))
	}

	c.logger.Info("per-package fallback recovered all operations", "op", string(op))
	return nil
}

// pacman runs one pacman invocation, wrapped in sudo when required
func (c *ShellClient) pacman(ctx context.Context, args []string) ([]byte, error) {
	if c.useSudo {
		return c.run(ctx, "sudo", append([]string{"pacman"}, args...)...)
	}
	return c.run(ctx, "pacman", args...)
}

// buildArgs assembles the pacman argument list for one operation
func buildArgs(op operation, noConfirm bool, pkgs []string) []string {
	var args []string
	switch op {
	case opInstall:
		args = []string{"-Syu", "--needed"}
	case opRemove:
		args = []string{"-Runs"}
	}
	if noConfirm {
		args = append(args, "--noconfirm")
	}
	return append(args, pkgs...)
}
