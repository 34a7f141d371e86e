package compile

import (
	"fmt"

	"github.com/AlexanderGrooff/confgen/pkg/common"
	"github.com/AlexanderGrooff/confgen/pkg/errors"
	"github.com/AlexanderGrooff/confgen/pkg/inventory"
	"github.com/AlexanderGrooff/confgen/pkg/roles"
)

// Resolution maps a target (host name or the shared bucket) to the ordered
// list of roles that apply to it. Discovery order is preserved and
// duplicates are suppressed per target.
type Resolution struct {
	order   []string
	targets map[string][]string
	seen    map[string]map[string]bool
}

// NewResolution creates an empty resolution
func NewResolution() *Resolution {
	return &Resolution{
		targets: make(map[string][]string),
		seen:    make(map[string]map[string]bool),
	}
}

// EnsureTarget registers a target with an empty role list so it still
// receives an (empty) artifact.
func (r *Resolution) EnsureTarget(target string) {
	if _, ok := r.targets[target]; !ok {
		r.targets[target] = nil
		r.seen[target] = make(map[string]bool)
		r.order = append(r.order, target)
	}
}

// Append adds roles to a target, keeping encounter order and dropping
// duplicates.
func (r *Resolution) Append(target string, roleNames ...string) {
	r.EnsureTarget(target)
	for _, name := range roleNames {
		if r.seen[target][name] {
			continue
		}
		r.seen[target][name] = true
		r.targets[target] = append(r.targets[target], name)
	}
}

// Remove drops a role from a target. Removing an absent role is a no-op.
func (r *Resolution) Remove(target, roleName string) {
	list, ok := r.targets[target]
	if !ok || !r.seen[target][roleName] {
		return
	}
	delete(r.seen[target], roleName)
	out := list[:0]
	for _, name := range list {
		if name != roleName {
			out = append(out, name)
		}
	}
	r.targets[target] = out
}

// Roles returns the target's role list in discovery order.
func (r *Resolution) Roles(target string) []string {
	out := make([]string, len(r.targets[target]))
	copy(out, r.targets[target])
	return out
}

// Targets returns all targets in registration order.
func (r *Resolution) Targets() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Has reports whether the role is resolved for the target.
func (r *Resolution) Has(target, roleName string) bool {
	return r.seen[target][roleName]
}

// SharedBlock is the expanded role set of one shared-tagged play, together
// with the targets that play selected.
type SharedBlock struct {
	Targets []string
	Roles   []string
}

// Result is the outcome of a resolution pass: the per-target role lists,
// the shared-tagged blocks awaiting the shared rewrite, and every
// inclusion that had to be skipped.
type Result struct {
	Resolution   *Resolution
	SharedBlocks []SharedBlock
	Skipped      []Skipped
}

// Resolver walks the root playbook and expands each play's roles, plus
// their static metadata dependencies, onto the play's effective targets.
type Resolver struct {
	inv   *inventory.Inventory
	store *roles.Store
}

// NewResolver creates a resolver over the given inventory and role store
func NewResolver(inv *inventory.Inventory, store *roles.Store) *Resolver {
	return &Resolver{inv: inv, store: store}
}

// Resolve builds the per-target role resolution for the playbook. Fatal
// errors are malformed playbooks (*errors.ParseError) and dependency loops
// (*errors.CyclicRoleDependencyError).
func (rv *Resolver) Resolve(playbookPath string) (*Result, error) {
	blocks, skipped, err := LoadPlaybook(playbookPath)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Resolution: NewResolution(),
		Skipped:    skipped,
	}

	// Every inventory host gets a target up front, so hosts no play
	// matches still produce an (empty) example config.
	for _, host := range rv.inv.AllHosts() {
		result.Resolution.EnsureTarget(host)
	}

	for _, block := range blocks {
		targets := rv.expandTargets(block)

		expanded, dynamicDeps, err := rv.expandRoles(block.Roles)
		if err != nil {
			return nil, err
		}
		for _, dep := range dynamicDeps {
			result.Skipped = append(result.Skipped, Skipped{
				File:   playbookPath,
				Block:  block.Name,
				Reason: dep,
			})
		}

		for _, target := range targets {
			result.Resolution.Append(target, expanded...)
		}

		if block.Shared {
			result.SharedBlocks = append(result.SharedBlocks, SharedBlock{
				Targets: targets,
				Roles:   expanded,
			})
		}
	}

	return result, nil
}

// expandTargets computes a block's effective host set: group selectors are
// expanded through the inventory, directly named hosts are unioned in, and
// no selector at all means every known host.
func (rv *Resolver) expandTargets(block TaskBlock) []string {
	if len(block.Hosts) == 0 {
		return rv.inv.AllHosts()
	}

	var out []string
	seen := make(map[string]bool)
	add := func(host string) {
		if !seen[host] {
			seen[host] = true
			out = append(out, host)
		}
	}

	for _, selector := range block.Hosts {
		switch {
		case rv.inv.HasGroup(selector):
			for _, host := range rv.inv.HostsOf(selector) {
				add(host)
			}
		case rv.inv.HasHost(selector):
			add(selector)
		default:
			common.LogWarn("Selector matches no inventory group or host", map[string]interface{}{
				"block":    block.Name,
				"selector": selector,
			})
		}
	}
	return out
}

// expandRoles expands each role reference depth-first through its static
// metadata dependencies. The returned list is in encounter order with
// duplicates suppressed; templated dependency names are reported, not
// followed.
func (rv *Resolver) expandRoles(names []string) ([]string, []string, error) {
	var out []string
	var dynamic []string
	seen := make(map[string]bool)

	var expand func(name string, stack []string) error
	expand = func(name string, stack []string) error {
		for _, ancestor := range stack {
			if ancestor == name {
				return &errors.CyclicRoleDependencyError{Chain: append(stack, name)}
			}
		}
		if seen[name] {
			return nil
		}
		seen[name] = true
		out = append(out, name)

		deps, dynamicDeps, err := rv.store.Dependencies(name)
		if err != nil {
			return err
		}
		for _, dep := range dynamicDeps {
			dynamic = append(dynamic, fmt.Sprintf("dynamic dependency %q of role %q", dep, name))
		}
		for _, dep := range deps {
			if err := expand(dep, append(stack, name)); err != nil {
				return err
			}
		}
		return nil
	}

	for _, name := range names {
		if err := expand(name, nil); err != nil {
			return nil, nil, err
		}
	}
	return out, dynamic, nil
}
