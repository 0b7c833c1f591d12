package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jakubGodula/cyber-toolkit/internal/pacman"
	"github.com/jakubGodula/cyber-toolkit/internal/rolestore"
)

// ErrStateNotPersisted reports that the package operations succeeded but the
// new role set could not be written. The machine already matches the new role
// set and a re-run converges, so this is a reconciliation warning rather than
// an execution failure.
var ErrStateNotPersisted = errors.New("packages updated but role state was not persisted")

// Resolver resolves role names into the package sets they require
type Resolver interface {
	Resolve(ctx context.Context, roles []string) (map[string][]string, error)
}

// Engine orchestrates one role synchronization command
type Engine struct {
	store    rolestore.Store
	resolver Resolver
	pacman   pacman.Manager
	logger   *slog.Logger
	dryRun   bool
}

// NewEngine creates a new sync engine
func NewEngine(store rolestore.Store, resolver Resolver, mgr pacman.Manager, logger *slog.Logger, dryRun bool) *Engine {
	return &Engine{
		store:    store,
		resolver: resolver,
		pacman:   mgr,
		logger:   logger,
		dryRun:   dryRun,
	}
}

// Run executes one command: load the active role set, resolve every role the
// transition touches, compute the package plan, apply it through pacman and
// finally persist the new role set.
//
// The ordering is load -> resolve -> plan -> execute -> persist. The store is
// written only after every package operation succeeded, so the persisted role
// set never runs ahead of what is actually installed; a failed run leaves the
// previous state intact and the same command can simply be retried.
func (e *Engine) Run(ctx context.Context, op Operation, roles []string) error {
	current, err := e.store.Load()
	if err != nil {
		return fmt.Errorf("load stage: failed to read active roles: %w", err)
	}

	e.logger.Info("starting sync",
		"op", string(op),
		"roles", roles,
		"active", current,
		"dry_run", e.dryRun)

	_, scope := Transition(op, current, roles)

	resolved, err := e.resolver.Resolve(ctx, scope)
	if err != nil {
		return fmt.Errorf("resolve stage: %w", err)
	}

	plan := Build(op, current, roles, resolved)

	e.logger.Info("sync plan",
		"install", len(plan.Install),
		"uninstall", len(plan.Uninstall),
		"roles", plan.Roles)

	if e.dryRun {
		e.logPlanDetails(plan)
		e.logger.Info("dry-run complete, no changes applied")
		return nil
	}

	if len(plan.Install) > 0 {
		e.logger.Info("installing packages", "count", len(plan.Install), "packages", plan.Install)
		if err := e.pacman.Install(ctx, plan.Install); err != nil {
			return fmt.Errorf("execute stage: %w", err)
		}
	}

	if len(plan.Uninstall) > 0 {
		e.logger.Info("removing packages", "count", len(plan.Uninstall), "packages", plan.Uninstall)
		if err := e.pacman.Remove(ctx, plan.Uninstall); err != nil {
			return fmt.Errorf("execute stage: %w", err)
		}
	}

	if plan.Empty() {
		e.logger.Info("no package changes required")
	}

	if err := e.store.Save(plan.Roles); err != nil {
		e.logger.Warn("role state write failed after successful package operations, re-run to reconcile",
			"error", err)
		return fmt.Errorf("persist stage: %w: %v", ErrStateNotPersisted, err)
	}

	e.logger.Info("sync completed successfully", "roles", plan.Roles)
	return nil
}

// ActiveRoles returns the persisted role set without touching the system
func (e *Engine) ActiveRoles() ([]string, error) {
	roles, err := e.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to read active roles: %w", err)
	}
	return roles, nil
}

// logPlanDetails logs per-package plan information for dry-run
func (e *Engine) logPlanDetails(plan *Plan) {
	for _, pkg := range plan.Install {
		e.logger.Info("[dry-run] would install", "package", pkg)
	}
	for _, pkg := range plan.Uninstall {
		e.logger.Info("[dry-run] would remove", "package", pkg)
	}
	e.logger.Info("[dry-run] would set active roles", "roles", plan.Roles)
}
