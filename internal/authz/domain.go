package authz

import "time"

// User describes the authenticated principal a check is performed for.
// Principal resolution happens upstream; a User reaching this package is
// assumed to exist and be active.
type User struct {
	ID             int64
	OrganizationID int64
	IsActive       bool
}

// Role bundles permissions for assignment. System roles apply outside
// any organization.
type Role struct {
	ID           int64
	Name         string
	Priority     int
	IsSystemRole bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RoleAssignment ties a user to a role, optionally within one
// organization. OrganizationID zero means a system-level assignment.
type RoleAssignment struct {
	UserID         int64
	RoleID         int64
	OrganizationID int64
	CreatedAt      time.Time
}

// OverrideEffect is the outcome of an explicit per-user override.
type OverrideEffect string

// Override effects. An override is authoritative and final: it wins
// over any role-derived default.
const (
	OverrideGrant  OverrideEffect = "GRANT"
	OverrideRevoke OverrideEffect = "REVOKE"
)

// Override is an explicit per-user grant or revoke of one permission.
// At most one override exists per (user, permission); the latest write
// replaces any prior one.
type Override struct {
	UserID     int64
	Permission Permission
	Effect     OverrideEffect
	CreatedAt  time.Time
}

// Membership records the role a user holds in one team.
type Membership struct {
	UserID    int64
	TeamID    int64
	Role      TeamRole
	CreatedAt time.Time
}

// Scope narrows an evaluation to an organization and/or a team.
// Zero values mean the dimension is unbound.
type Scope struct {
	OrganizationID int64
	TeamID         int64
}

// HasTeam reports whether a team is bound to the scope.
func (s Scope) HasTeam() bool {
	return s.TeamID != 0
}

// Decision is the result of one policy resolution.
type Decision struct {
	Allowed bool
	Reason  string
}

// Resolution reasons, stable for audit records and API responses.
const (
	ReasonOverrideGrant  = "explicit override grant"
	ReasonOverrideRevoke = "explicit override revoke"
	ReasonRoleGrant      = "granted by role"
	ReasonNoGrant        = "no granting role or override"
	ReasonUnknown        = "unknown permission"
)
