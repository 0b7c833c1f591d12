package sync

import (
	"reflect"
	"testing"
)

func TestBuildAddFromEmpty(t *testing.T) {
	resolved := map[string][]string{
		"blue": {"nmap", "wireshark"},
	}

	plan := Build(OpAdd, nil, []string{"blue"}, resolved)

	if !reflect.DeepEqual(plan.Roles, []string{"blue"}) {
		t.Errorf("expected roles [blue], got %v", plan.Roles)
	}
	if !reflect.DeepEqual(plan.Install, []string{"nmap", "wireshark"}) {
		t.Errorf("expected install [nmap wireshark], got %v", plan.Install)
	}
	if len(plan.Uninstall) != 0 {
		t.Errorf("expected no uninstalls, got %v", plan.Uninstall)
	}
}

func TestBuildAddNeverUninstalls(t *testing.T) {
	resolved := map[string][]string{
		"blue": {"nmap"},
		"net":  {"tcpdump"},
	}

	plan := Build(OpAdd, []string{"blue"}, []string{"net"}, resolved)

	if !reflect.DeepEqual(plan.Roles, []string{"blue", "net"}) {
		t.Errorf("expected roles [blue net], got %v", plan.Roles)
	}
	if len(plan.Uninstall) != 0 {
		t.Errorf("add must never uninstall, got %v", plan.Uninstall)
	}
	if !reflect.DeepEqual(plan.Install, []string{"nmap", "tcpdump"}) {
		t.Errorf("expected install [nmap tcpdump], got %v", plan.Install)
	}
}

func TestBuildAddRepeatedIsStable(t *testing.T) {
	resolved := map[string][]string{
		"blue": {"nmap", "wireshark"},
	}

	first := Build(OpAdd, nil, []string{"blue"}, resolved)
	second := Build(OpAdd, first.Roles, []string{"blue"}, resolved)

	if !reflect.DeepEqual(second.Roles, first.Roles) {
		t.Errorf("repeated add changed the role set: %v vs %v", second.Roles, first.Roles)
	}
	if len(second.Uninstall) != 0 {
		t.Errorf("repeated add must not uninstall, got %v", second.Uninstall)
	}
	// The install set is re-requested in full; pacman --needed makes the
	// repeat a no-op on the machine.
	if !reflect.DeepEqual(second.Install, first.Install) {
		t.Errorf("repeated add produced a different install set: %v vs %v", second.Install, first.Install)
	}
}

func TestBuildRemoveKeepsSharedPackages(t *testing.T) {
	resolved := map[string][]string{
		"blue": {"nmap", "john"},
		"net":  {"nmap", "tcpdump"},
	}

	plan := Build(OpRemove, []string{"blue", "net"}, []string{"blue"}, resolved)

	if !reflect.DeepEqual(plan.Roles, []string{"net"}) {
		t.Errorf("expected roles [net], got %v", plan.Roles)
	}
	// nmap survives through net, only john goes.
	if !reflect.DeepEqual(plan.Uninstall, []string{"john"}) {
		t.Errorf("expected uninstall [john], got %v", plan.Uninstall)
	}
	if len(plan.Install) != 0 {
		t.Errorf("remove must never install, got %v", plan.Install)
	}
}

func TestBuildRemoveInactiveRoleIsNoOp(t *testing.T) {
	resolved := map[string][]string{
		"blue": {"nmap"},
	}

	plan := Build(OpRemove, []string{"blue"}, []string{"ghost"}, resolved)

	if !reflect.DeepEqual(plan.Roles, []string{"blue"}) {
		t.Errorf("expected roles [blue], got %v", plan.Roles)
	}
	if !plan.Empty() {
		t.Errorf("expected empty plan, got install=%v uninstall=%v", plan.Install, plan.Uninstall)
	}
}

func TestBuildRemoveLastRole(t *testing.T) {
	resolved := map[string][]string{
		"blue": {"nmap", "john"},
	}

	plan := Build(OpRemove, []string{"blue"}, []string{"blue"}, resolved)

	if len(plan.Roles) != 0 {
		t.Errorf("expected empty role set, got %v", plan.Roles)
	}
	if !reflect.DeepEqual(plan.Uninstall, []string{"john", "nmap"}) {
		t.Errorf("expected uninstall [john nmap], got %v", plan.Uninstall)
	}
}

func TestBuildSetExact(t *testing.T) {
	resolved := map[string][]string{
		"blue": {"nmap"},
		"net":  {"tcpdump"},
	}

	plan := Build(OpSetExact, []string{"blue"}, []string{"net"}, resolved)

	if !reflect.DeepEqual(plan.Roles, []string{"net"}) {
		t.Errorf("expected roles [net], got %v", plan.Roles)
	}
	if !reflect.DeepEqual(plan.Install, []string{"tcpdump"}) {
		t.Errorf("expected install [tcpdump], got %v", plan.Install)
	}
	if !reflect.DeepEqual(plan.Uninstall, []string{"nmap"}) {
		t.Errorf("expected uninstall [nmap], got %v", plan.Uninstall)
	}
}

func TestBuildSetExactWithOverlap(t *testing.T) {
	resolved := map[string][]string{
		"blue": {"nmap", "john"},
		"net":  {"nmap", "tcpdump"},
	}

	plan := Build(OpSetExact, []string{"blue"}, []string{"net"}, resolved)

	// nmap is shared between the old and new sets and must move in neither
	// direction.
	if !reflect.DeepEqual(plan.Install, []string{"tcpdump"}) {
		t.Errorf("expected install [tcpdump], got %v", plan.Install)
	}
	if !reflect.DeepEqual(plan.Uninstall, []string{"john"}) {
		t.Errorf("expected uninstall [john], got %v", plan.Uninstall)
	}
}

func TestBuildSetExactSameRolesIsEmpty(t *testing.T) {
	resolved := map[string][]string{
		"blue": {"nmap"},
	}

	plan := Build(OpSetExact, []string{"blue"}, []string{"blue"}, resolved)

	if !plan.Empty() {
		t.Errorf("expected empty plan, got install=%v uninstall=%v", plan.Install, plan.Uninstall)
	}
}

// TestUninstallNeverTouchesSurvivors checks the central invariant across a
// grid of overlapping role layouts: whatever subset of roles is removed, no
// uninstalled package may belong to any surviving role.
func TestUninstallNeverTouchesSurvivors(t *testing.T) {
	resolved := map[string][]string{
		"a": {"p1", "p2", "shared"},
		"b": {"p3", "shared"},
		"c": {"p4", "p2"},
		"d": {"shared"},
		"e": {},
	}
	current := []string{"a", "b", "c", "d", "e"}

	// Every non-empty subset of current, encoded as a bitmask.
	for mask := 1; mask < 1<<len(current); mask++ {
		var removed []string
		for i, role := range current {
			if mask&(1<<i) != 0 {
				removed = append(removed, role)
			}
		}

		plan := Build(OpRemove, current, removed, resolved)

		survivors := packageSet(resolved, plan.Roles)
		for _, pkg := range plan.Uninstall {
			if survivors[pkg] {
				t.Errorf("removed %v: uninstall of %q violates survivor invariant", removed, pkg)
			}
		}

		// Install and uninstall must stay disjoint (install is empty for
		// remove, but keep the check honest).
		installSet := make(map[string]bool)
		for _, pkg := range plan.Install {
			installSet[pkg] = true
		}
		for _, pkg := range plan.Uninstall {
			if installSet[pkg] {
				t.Errorf("removed %v: package %q appears in both sets", removed, pkg)
			}
		}
	}
}

func TestTransition(t *testing.T) {
	for _, tc := range []struct {
		name      string
		op        Operation
		current   []string
		args      []string
		wantRoles []string
		wantScope []string
	}{
		{
			name: "add to empty", op: OpAdd,
			args:      []string{"blue"},
			wantRoles: []string{"blue"}, wantScope: []string{"blue"},
		},
		{
			name: "add preserves order", op: OpAdd,
			current: []string{"blue"}, args: []string{"net", "blue"},
			wantRoles: []string{"blue", "net"}, wantScope: []string{"blue", "net"},
		},
		{
			name: "add deduplicates args", op: OpAdd,
			args:      []string{"blue", "blue"},
			wantRoles: []string{"blue"}, wantScope: []string{"blue"},
		},
		{
			name: "remove scope covers survivors", op: OpRemove,
			current: []string{"blue", "net"}, args: []string{"blue"},
			wantRoles: []string{"net"}, wantScope: []string{"blue", "net"},
		},
		{
			name: "remove inactive role not fetched", op: OpRemove,
			current: []string{"blue"}, args: []string{"ghost"},
			wantRoles: []string{"blue"}, wantScope: []string{"blue"},
		},
		{
			name: "set exact scope covers both sides", op: OpSetExact,
			current: []string{"blue"}, args: []string{"net"},
			wantRoles: []string{"net"}, wantScope: []string{"blue", "net"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			gotRoles, gotScope := Transition(tc.op, tc.current, tc.args)
			if !reflect.DeepEqual(gotRoles, tc.wantRoles) {
				t.Errorf("roles: expected %v, got %v", tc.wantRoles, gotRoles)
			}
			if !reflect.DeepEqual(gotScope, tc.wantScope) {
				t.Errorf("scope: expected %v, got %v", tc.wantScope, gotScope)
			}
		})
	}
}
