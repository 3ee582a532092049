package authz

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aegis-platform/aegis/internal/audit"
)

// Recorder receives one audit event per enforcement decision. Delivery
// is best-effort; implementations must not block the enforcement path.
type Recorder interface {
	Record(ctx context.Context, event audit.Event)
}

// Enforcer runs policy checks ahead of protected operations and emits
// exactly one audit event per check, on the allow and the deny path
// alike. A denied check leaves the protected operation untouched.
type Enforcer struct {
	resolver *Resolver
	teams    TeamStore
	recorder Recorder
	logger   *slog.Logger
}

// NewEnforcer constructs an Enforcer. The recorder may be nil, in
// which case decisions are not audited.
func NewEnforcer(resolver *Resolver, teams TeamStore, recorder Recorder, logger *slog.Logger) *Enforcer {
	return &Enforcer{resolver: resolver, teams: teams, recorder: recorder, logger: logger}
}

// NewContext builds the per-request evaluation context for a resolved
// principal.
func (e *Enforcer) NewContext(user User, scope Scope) *EvaluationContext {
	return NewEvaluationContext(user, scope, e.resolver, e.teams)
}

// Check resolves perm for the bound principal and records the
// decision. Callers that need a yes/no with the reason use this;
// callers that want a typed denial use RequirePermission.
func (e *Enforcer) Check(ctx context.Context, ec *EvaluationContext, perm Permission) (Decision, error) {
	decision, err := ec.ResolvePermission(ctx, perm)
	if err != nil {
		e.record(ctx, ec, "permission", string(perm), false, "store fault")
		return Decision{}, err
	}
	e.record(ctx, ec, "permission", string(perm), decision.Allowed, decision.Reason)
	return decision, nil
}

// RequirePermission fails with PermissionDenied unless the principal
// holds perm. Store faults propagate unchanged.
func (e *Enforcer) RequirePermission(ctx context.Context, ec *EvaluationContext, perm Permission) error {
	decision, err := e.Check(ctx, ec, perm)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return NewPermissionDenied(perm)
	}
	return nil
}

// RequireAnyPermission passes when the principal holds at least one of
// the listed permissions.
func (e *Enforcer) RequireAnyPermission(ctx context.Context, ec *EvaluationContext, perms ...Permission) error {
	action := "any:" + joinPermissions(perms)
	for _, perm := range perms {
		decision, err := ec.ResolvePermission(ctx, perm)
		if err != nil {
			e.record(ctx, ec, "permission", action, false, "store fault")
			return err
		}
		if decision.Allowed {
			e.record(ctx, ec, "permission", action, true, decision.Reason)
			return nil
		}
	}
	e.record(ctx, ec, "permission", action, false, ReasonNoGrant)
	return &PermissionDenied{Detail: fmt.Sprintf("Required any of: %s", joinPermissions(perms))}
}

// RequireAllPermissions passes only when the principal holds every
// listed permission.
func (e *Enforcer) RequireAllPermissions(ctx context.Context, ec *EvaluationContext, perms ...Permission) error {
	action := "all:" + joinPermissions(perms)
	for _, perm := range perms {
		decision, err := ec.ResolvePermission(ctx, perm)
		if err != nil {
			e.record(ctx, ec, "permission", action, false, "store fault")
			return err
		}
		if !decision.Allowed {
			e.record(ctx, ec, "permission", action, false, decision.Reason)
			return NewPermissionDenied(perm)
		}
	}
	e.record(ctx, ec, "permission", action, true, ReasonRoleGrant)
	return nil
}

// RequireTeamAccess fails with ScopeRequired when no team is bound to
// the evaluation, and with PermissionDenied when the principal's team
// role ranks below minimum.
func (e *Enforcer) RequireTeamAccess(ctx context.Context, ec *EvaluationContext, minimum TeamRole) error {
	action := "access:" + string(minimum)
	if !ec.Scope().HasTeam() {
		e.record(ctx, ec, "team", action, false, "missing team scope")
		return &ScopeRequired{Detail: "team scope required for team role check"}
	}
	role, _, err := ec.TeamRole(ctx)
	if err != nil {
		e.record(ctx, ec, "team", action, false, "store fault")
		return err
	}
	if !HasTeamRole(role, minimum) {
		e.record(ctx, ec, "team", action, false, "team role below required rank")
		return &PermissionDenied{Detail: fmt.Sprintf("Required team role: %s", minimum)}
	}
	e.record(ctx, ec, "team", action, true, "team role satisfies required rank")
	return nil
}

// RequireMemberRemoval authorizes removing a member from the bound
// team. Self-removal is permitted at any rank; removing another member
// requires ADMIN or above.
func (e *Enforcer) RequireMemberRemoval(ctx context.Context, ec *EvaluationContext, targetID int64) error {
	action := fmt.Sprintf("remove:%d", targetID)
	if !ec.Scope().HasTeam() {
		e.record(ctx, ec, "team_member", action, false, "missing team scope")
		return &ScopeRequired{Detail: "team scope required for member removal"}
	}
	role, _, err := ec.TeamRole(ctx)
	if err != nil {
		e.record(ctx, ec, "team_member", action, false, "store fault")
		return err
	}
	if !CanRemoveMember(ec.User().ID, role, targetID) {
		e.record(ctx, ec, "team_member", action, false, "team role below required rank")
		return &PermissionDenied{Detail: fmt.Sprintf("Required team role: %s", TeamRoleAdmin)}
	}
	reason := "removal of another member by admin"
	if ec.User().ID == targetID {
		reason = "self removal"
	}
	e.record(ctx, ec, "team_member", action, true, reason)
	return nil
}

// WithPermission runs fn only after RequirePermission passes. On a
// denied or failed check fn is never invoked.
func (e *Enforcer) WithPermission(ctx context.Context, ec *EvaluationContext, perm Permission, fn func(context.Context) error) error {
	if err := e.RequirePermission(ctx, ec, perm); err != nil {
		return err
	}
	return fn(ctx)
}

func (e *Enforcer) record(ctx context.Context, ec *EvaluationContext, resource, action string, granted bool, reason string) {
	if e.logger != nil {
		e.logger.Debug("authz decision",
			slog.Int64("principal", ec.User().ID),
			slog.String("resource", resource),
			slog.String("action", action),
			slog.Bool("granted", granted),
			slog.String("reason", reason))
	}
	if e.recorder == nil {
		return
	}
	e.recorder.Record(ctx, audit.Event{
		PrincipalID:    ec.User().ID,
		Resource:       resource,
		Action:         action,
		Granted:        granted,
		Reason:         reason,
		OrganizationID: ec.organizationID(),
		TeamID:         ec.Scope().TeamID,
	})
}

func joinPermissions(perms []Permission) string {
	names := make([]string, len(perms))
	for i, p := range perms {
		names[i] = string(p)
	}
	return strings.Join(names, "|")
}
