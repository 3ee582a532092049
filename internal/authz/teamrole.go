package authz

import "fmt"

// TeamRole is a position in the team hierarchy. The four values form a
// total order: OWNER > ADMIN > MEMBER > VIEWER.
type TeamRole string

// Team roles, strongest first. The empty string stands for "no
// membership" and ranks below every role.
const (
	TeamRoleOwner  TeamRole = "OWNER"
	TeamRoleAdmin  TeamRole = "ADMIN"
	TeamRoleMember TeamRole = "MEMBER"
	TeamRoleViewer TeamRole = "VIEWER"
)

var teamRoleRanks = map[TeamRole]int{
	TeamRoleOwner:  4,
	TeamRoleAdmin:  3,
	TeamRoleMember: 2,
	TeamRoleViewer: 1,
}

// Rank returns the numeric position in the hierarchy. Unknown values
// and the empty "no membership" value rank 0.
func (r TeamRole) Rank() int {
	return teamRoleRanks[r]
}

// Valid reports whether r is one of the four defined roles.
func (r TeamRole) Valid() bool {
	_, ok := teamRoleRanks[r]
	return ok
}

// ParseTeamRole converts a raw string into a TeamRole.
func ParseTeamRole(raw string) (TeamRole, error) {
	role := TeamRole(raw)
	if !role.Valid() {
		return "", fmt.Errorf("authz: unknown team role %q", raw)
	}
	return role, nil
}

// HasTeamRole reports whether a member holding `have` satisfies a check
// for `required`. It is a monotonic comparator over ranks, not a
// set-membership test: any role at or above the required rank passes.
func HasTeamRole(have, required TeamRole) bool {
	return have.Rank() >= required.Rank()
}

// CanRemoveMember encodes the membership-removal rule that sits beside
// the hierarchy comparator: anyone may remove themselves from a team,
// at any rank including none; removing a different member requires
// ADMIN or above.
func CanRemoveMember(actorID int64, actorRole TeamRole, targetID int64) bool {
	if actorID == targetID {
		return true
	}
	return HasTeamRole(actorRole, TeamRoleAdmin)
}
