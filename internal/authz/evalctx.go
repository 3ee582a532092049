package authz

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// EvaluationContext binds one principal and an optional scope to the
// resolver and team store for the duration of a single request. It is
// created per request and discarded with it; it never mutates
// persistent state and must not be reused across requests.
type EvaluationContext struct {
	user     User
	scope    Scope
	resolver *Resolver
	teams    TeamStore

	sf           singleflight.Group
	mu           sync.Mutex
	teamRole     TeamRole
	teamRoleOK   bool
	teamRoleDone bool
}

// NewEvaluationContext constructs the per-request evaluation façade.
func NewEvaluationContext(user User, scope Scope, resolver *Resolver, teams TeamStore) *EvaluationContext {
	return &EvaluationContext{user: user, scope: scope, resolver: resolver, teams: teams}
}

// User returns the bound principal.
func (e *EvaluationContext) User() User {
	return e.user
}

// Scope returns the bound scope.
func (e *EvaluationContext) Scope() Scope {
	return e.scope
}

// organizationID is the org the evaluation runs under: the scope's if
// bound, the principal's otherwise.
func (e *EvaluationContext) organizationID() int64 {
	if e.scope.OrganizationID != 0 {
		return e.scope.OrganizationID
	}
	return e.user.OrganizationID
}

// HasSystemPermission resolves perm for the bound principal within the
// evaluation's organization.
func (e *EvaluationContext) HasSystemPermission(ctx context.Context, perm Permission) (bool, error) {
	decision, err := e.resolver.Resolve(ctx, e.user.ID, perm, e.organizationID())
	if err != nil {
		return false, err
	}
	return decision.Allowed, nil
}

// ResolvePermission is HasSystemPermission with the full decision,
// including the reason, for callers that surface it.
func (e *EvaluationContext) ResolvePermission(ctx context.Context, perm Permission) (Decision, error) {
	return e.resolver.Resolve(ctx, e.user.ID, perm, e.organizationID())
}

type teamRoleResult struct {
	role TeamRole
	ok   bool
}

// TeamRole returns the principal's role in the bound team, fetching it
// at most once per context. Concurrent callers within the same request
// share a single fetch; the result is cached for the context lifetime.
// Without a bound team it reports no membership without any I/O.
func (e *EvaluationContext) TeamRole(ctx context.Context) (TeamRole, bool, error) {
	if !e.scope.HasTeam() {
		return "", false, nil
	}

	e.mu.Lock()
	if e.teamRoleDone {
		role, ok := e.teamRole, e.teamRoleOK
		e.mu.Unlock()
		return role, ok, nil
	}
	e.mu.Unlock()

	ch := e.sf.DoChan("team_role", func() (any, error) {
		role, ok, err := e.teams.TeamRoleFor(ctx, e.user.ID, e.scope.TeamID)
		if err != nil {
			return nil, err
		}
		e.mu.Lock()
		e.teamRole, e.teamRoleOK, e.teamRoleDone = role, ok, true
		e.mu.Unlock()
		return teamRoleResult{role: role, ok: ok}, nil
	})
	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", false, res.Err
		}
		result := res.Val.(teamRoleResult)
		return result.role, result.ok, nil
	}
}

// HasTeamPermission applies the team hierarchy to the principal's
// cached team role.
func (e *EvaluationContext) HasTeamPermission(ctx context.Context, required TeamRole) (bool, error) {
	role, _, err := e.TeamRole(ctx)
	if err != nil {
		return false, err
	}
	return HasTeamRole(role, required), nil
}

// IsResourceOwner reports whether the principal owns the resource.
// Pure identity comparison, no I/O.
func (e *EvaluationContext) IsResourceOwner(ownerID int64) bool {
	return ownerID != 0 && e.user.ID == ownerID
}

// CanAccessResource implements the common "your own data, or an
// explicit grant" pattern: true when the principal owns the resource
// or holds perm.
func (e *EvaluationContext) CanAccessResource(ctx context.Context, ownerID int64, perm Permission) (bool, error) {
	if e.IsResourceOwner(ownerID) {
		return true, nil
	}
	return e.HasSystemPermission(ctx, perm)
}
