package authz

import "context"

// RoleStore reads role assignments and role permission sets. A zero
// organizationID restricts the result to system-level assignments held
// outside any organization.
type RoleStore interface {
	RolesForUser(ctx context.Context, userID, organizationID int64) ([]Role, error)
	PermissionsForRole(ctx context.Context, roleID int64) ([]Permission, error)
}

// OverrideStore reads explicit per-user permission overrides. The
// boolean reports whether an override exists.
type OverrideStore interface {
	OverrideFor(ctx context.Context, userID int64, perm Permission) (OverrideEffect, bool, error)
}

// TeamStore reads team memberships. The boolean reports whether the
// user belongs to the team.
type TeamStore interface {
	TeamRoleFor(ctx context.Context, userID, teamID int64) (TeamRole, bool, error)
}
