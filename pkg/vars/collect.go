package vars

import (
	stderrors "errors"

	"github.com/AlexanderGrooff/confgen/pkg/common"
	"github.com/AlexanderGrooff/confgen/pkg/compile"
	"github.com/AlexanderGrooff/confgen/pkg/errors"
	"github.com/AlexanderGrooff/confgen/pkg/roles"
)

// RoleVars are one role's variables routed into normal and secret sets for
// a single target.
type RoleVars struct {
	Role   *roles.Role
	Normal []roles.Variable
	Secret []roles.Variable
}

// Bucket holds the variables destined for one target's artifacts, grouped
// by owning role in resolution order.
type Bucket struct {
	Target string
	Roles  []RoleVars
}

// HasSecrets reports whether any role in the bucket contributed a secret
// variable.
func (b *Bucket) HasSecrets() bool {
	for _, rv := range b.Roles {
		if len(rv.Secret) > 0 {
			return true
		}
	}
	return false
}

// Result is the collected variable set for every target, plus the roles
// whose variable files could not be parsed. Those failures are role-scoped
// and non-fatal; the affected roles simply contribute nothing.
type Result struct {
	Buckets  []*Bucket
	Failures []*errors.RoleVariableParseError
}

// Collect loads the declared variables of every resolved role, per target.
// Within a target the first declaration of a variable name wins; later
// roles never override it. Secret-flagged variables go into the target's
// secret set, everything else into the normal set.
func Collect(res *compile.Resolution, store *roles.Store) *Result {
	result := &Result{}
	failed := make(map[string]bool)

	for _, target := range res.Targets() {
		bucket := &Bucket{Target: target}
		claimed := make(map[string]bool)

		for _, roleName := range res.Roles(target) {
			role, err := store.Load(roleName)
			if err != nil {
				var parseErr *errors.RoleVariableParseError
				if stderrors.As(err, &parseErr) {
					if !failed[roleName] {
						failed[roleName] = true
						result.Failures = append(result.Failures, parseErr)
					}
					continue
				}
				// The store only fails with role-scoped parse errors;
				// anything else would be a programming error.
				common.LogError("Unexpected role load failure", map[string]interface{}{
					"role":  roleName,
					"error": err.Error(),
				})
				continue
			}

			rv := RoleVars{Role: role}
			for _, v := range role.Variables {
				if claimed[v.Name] {
					continue
				}
				claimed[v.Name] = true
				if v.Secret {
					rv.Secret = append(rv.Secret, v)
				} else {
					rv.Normal = append(rv.Normal, v)
				}
			}
			bucket.Roles = append(bucket.Roles, rv)
		}

		result.Buckets = append(result.Buckets, bucket)
	}

	return result
}
