package authz

import (
	"context"
	"fmt"
)

// Resolver combines role assignments and per-user overrides into one
// deterministic allow/deny decision. It performs reads only and holds
// no state of its own, so a single instance is safe for concurrent use
// across requests.
type Resolver struct {
	roles     RoleStore
	overrides OverrideStore
}

// NewResolver constructs a Resolver over the given stores.
func NewResolver(roles RoleStore, overrides OverrideStore) *Resolver {
	return &Resolver{roles: roles, overrides: overrides}
}

// Resolve decides whether userID holds perm within organizationID
// (zero means system-level roles only). Precedence, strictly:
//
//  1. An explicit override is authoritative and final, independent of
//     any role state.
//  2. Otherwise the union of permissions across every assigned role in
//     scope grants the permission.
//  3. Otherwise deny.
//
// Identifiers outside the catalog always deny. Store faults propagate
// unchanged; the resolver never answers allow on a fault.
func (r *Resolver) Resolve(ctx context.Context, userID int64, perm Permission, organizationID int64) (Decision, error) {
	if !perm.Valid() {
		return Decision{Allowed: false, Reason: ReasonUnknown}, nil
	}

	effect, found, err := r.overrides.OverrideFor(ctx, userID, perm)
	if err != nil {
		return Decision{}, fmt.Errorf("authz: override lookup: %w", err)
	}
	if found {
		if effect == OverrideGrant {
			return Decision{Allowed: true, Reason: ReasonOverrideGrant}, nil
		}
		return Decision{Allowed: false, Reason: ReasonOverrideRevoke}, nil
	}

	roles, err := r.roles.RolesForUser(ctx, userID, organizationID)
	if err != nil {
		return Decision{}, fmt.Errorf("authz: role lookup: %w", err)
	}
	for _, role := range roles {
		perms, err := r.roles.PermissionsForRole(ctx, role.ID)
		if err != nil {
			return Decision{}, fmt.Errorf("authz: role %d permissions: %w", role.ID, err)
		}
		for _, candidate := range perms {
			if candidate == perm {
				return Decision{Allowed: true, Reason: ReasonRoleGrant}, nil
			}
		}
	}

	return Decision{Allowed: false, Reason: ReasonNoGrant}, nil
}
