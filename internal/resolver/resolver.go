package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/jakubGodula/cyber-toolkit/internal/provider"
	"github.com/jakubGodula/cyber-toolkit/internal/toolname"
)

// Resolver maps role names to the package sets they require
type Resolver struct {
	provider provider.Provider
	logger   *slog.Logger
}

// New creates a resolver backed by the given provider
func New(p provider.Provider, logger *slog.Logger) *Resolver {
	return &Resolver{
		provider: p,
		logger:   logger,
	}
}

// Resolve fetches every role and returns each role's package set, normalized,
// deduplicated and sorted. The fetches run concurrently and join before
// returning; merging by set membership keeps the result independent of
// interleaving order.
//
// Resolution is all-or-nothing: one failed fetch fails the whole call. A
// partially resolved set must never reach the planner, because it could make
// the planner uninstall packages that a role whose fetch merely failed still
// requires. A role resolving to zero packages is reported but does not fail
// the call.
func (r *Resolver) Resolve(ctx context.Context, roles []string) (map[string][]string, error) {
	roles = uniqueRoles(roles)

	results := make([][]string, len(roles))
	errs := make([]error, len(roles))

	var wg sync.WaitGroup
	for i, role := range roles {
		wg.Add(1)
		go func(i int, role string) {
			defer wg.Done()

			lines, err := r.provider.FetchRole(ctx, role)
			if err != nil {
				errs[i] = fmt.Errorf("role %q: %w", role, err)
				return
			}
			results[i] = normalizeLines(lines)
		}(i, role)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	resolved := make(map[string][]string, len(roles))
	for i, role := range roles {
		if len(results[i]) == 0 {
			r.logger.Warn("role resolved to zero packages, the role file may be empty or renamed", "role", role)
		}
		resolved[role] = results[i]
	}

	return resolved, nil
}

// Union flattens a resolution into the combined package set across all roles
func Union(resolved map[string][]string) []string {
	seen := make(map[string]bool)
	var pkgs []string
	for _, rolePkgs := range resolved {
		for _, pkg := range rolePkgs {
			if !seen[pkg] {
				seen[pkg] = true
				pkgs = append(pkgs, pkg)
			}
		}
	}
	sort.Strings(pkgs)
	return pkgs
}

// normalizeLines turns raw provider lines into a sorted, deduplicated package set
func normalizeLines(lines []string) []string {
	seen := make(map[string]bool)
	var pkgs []string
	for _, line := range lines {
		name := toolname.Normalize(line)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		pkgs = append(pkgs, name)
	}
	sort.Strings(pkgs)
	return pkgs
}

// uniqueRoles drops duplicate role names so each role is fetched exactly once
func uniqueRoles(roles []string) []string {
	seen := make(map[string]bool, len(roles))
	var unique []string
	for _, role := range roles {
		if seen[role] {
			continue
		}
		seen[role] = true
		unique = append(unique, role)
	}
	return unique
}
