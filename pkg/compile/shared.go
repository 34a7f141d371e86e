package compile

import (
	"github.com/AlexanderGrooff/confgen/pkg/config"
	"github.com/AlexanderGrooff/confgen/pkg/inventory"
)

// ApplyShared rewrites a finished resolution for the shared-tagged blocks:
// each block's roles move into the shared bucket and disappear from the
// other targets. This runs strictly after Resolve so discovery order stays
// deterministic, and it is idempotent: appending a present role and
// removing an absent one are both no-ops.
//
// With the default global scope a shared role is removed from every target
// in the project; block scope only clears the targets the marking block
// selected.
func ApplyShared(res *Resolution, blocks []SharedBlock, scope string) {
	res.EnsureTarget(inventory.AllGroup)

	for _, block := range blocks {
		res.Append(inventory.AllGroup, block.Roles...)
	}

	for _, block := range blocks {
		victims := res.Targets()
		if scope == config.SharedScopeBlock {
			victims = block.Targets
		}
		for _, roleName := range block.Roles {
			for _, target := range victims {
				if target == inventory.AllGroup {
					continue
				}
				res.Remove(target, roleName)
			}
		}
	}
}
