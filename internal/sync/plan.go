package sync

import "sort"

// Operation selects the role-set transition a command performs
type Operation string

const (
	OpAdd      Operation = "add"
	OpRemove   Operation = "remove"
	OpSetExact Operation = "set"
)

// Plan is the computed outcome of one command: the packages to install, the
// packages to uninstall and the role set to persist afterwards. Install and
// Uninstall are disjoint, and Uninstall never contains a package any role in
// Roles still requires.
type Plan struct {
	Roles     []string
	Install   []string
	Uninstall []string
}

// Empty reports whether the plan requires no package operations
func (p *Plan) Empty() bool {
	return len(p.Install) == 0 && len(p.Uninstall) == 0
}

// Transition computes the role set that results from applying op with args to
// the current set, plus the scope of roles whose package sets the planner
// needs resolved. Role order is preserved so the stored file stays readable.
// Removing a role that is not active is a no-op for that role: it neither
// survives into the new set nor joins the resolution scope.
func Transition(op Operation, current, args []string) (newRoles, scope []string) {
	args = dedupe(args)

	switch op {
	case OpAdd:
		newRoles = union(current, args)
		scope = newRoles
	case OpSetExact:
		newRoles = args
		scope = union(current, args)
	case OpRemove:
		newRoles = subtract(current, args)
		// current covers both the removed roles and the survivors.
		scope = dedupe(current)
	}

	return newRoles, scope
}

// Build computes the package-level plan for applying op with args to current.
// resolved must cover every role in the scope returned by Transition; roles
// missing from it count as contributing no packages.
func Build(op Operation, current, args []string, resolved map[string][]string) *Plan {
	newRoles, _ := Transition(op, current, args)
	plan := &Plan{Roles: newRoles}

	switch op {
	case OpAdd:
		// Install the full set for the new roles, not just the delta: the
		// remote role files may have grown since the last sync, and pacman's
		// --needed flag makes re-requesting present packages cheap.
		plan.Install = members(packageSet(resolved, newRoles))

	case OpSetExact:
		have := packageSet(resolved, current)
		want := packageSet(resolved, newRoles)
		plan.Install = setDiff(want, have)
		plan.Uninstall = setDiff(have, want)

	case OpRemove:
		// A package is uninstalled only if a removed role required it AND no
		// surviving role still does.
		removed := intersect(args, current)
		keep := packageSet(resolved, newRoles)
		plan.Uninstall = setDiff(packageSet(resolved, removed), keep)
	}

	return plan
}

// packageSet unions the resolved package sets of the given roles
func packageSet(resolved map[string][]string, roles []string) map[string]bool {
	set := make(map[string]bool)
	for _, role := range roles {
		for _, pkg := range resolved[role] {
			set[pkg] = true
		}
	}
	return set
}

// members returns the sorted elements of a set
func members(set map[string]bool) []string {
	result := make([]string, 0, len(set))
	for pkg := range set {
		result = append(result, pkg)
	}
	sort.Strings(result)
	return result
}

// setDiff returns the sorted elements of a that are not in b
func setDiff(a, b map[string]bool) []string {
	var result []string
	for pkg := range a {
		if !b[pkg] {
			result = append(result, pkg)
		}
	}
	sort.Strings(result)
	return result
}

// dedupe drops duplicate entries preserving first-occurrence order
func dedupe(roles []string) []string {
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

// union appends the entries of b not already in a, preserving order
func union(a, b []string) []string {
	result := dedupe(a)
	seen := make(map[string]bool, len(result))
	for _, role := range result {
		seen[role] = true
	}
	for _, role := range b {
		if !seen[role] {
			seen[role] = true
			result = append(result, role)
		}
	}
	return result
}

// subtract returns the entries of a not present in b, preserving order
func subtract(a, b []string) []string {
	drop := make(map[string]bool, len(b))
	for _, role := range b {
		drop[role] = true
	}
	var result []string
	for _, role := range dedupe(a) {
		if !drop[role] {
			result = append(result, role)
		}
	}
	return result
}

// intersect returns the entries of a present in b, preserving a's order
func intersect(a, b []string) []string {
	keep := make(map[string]bool, len(b))
	for _, role := range b {
		keep[role] = true
	}
	var result []string
	for _, role := range dedupe(a) {
		if keep[role] {
			result = append(result, role)
		}
	}
	return result
}
