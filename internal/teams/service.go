// Package teams covers the membership operations the authorization
// core gates: today, removing a member from a team.
package teams

import (
	"context"
	"fmt"

	"github.com/aegis-platform/aegis/internal/authz"
)

// MembershipRepository mutates team memberships.
type MembershipRepository interface {
	RemoveMember(ctx context.Context, teamID, userID int64) (bool, error)
}

// ErrMembershipNotFound indicates the (team, user) pair has no
// membership row.
var ErrMembershipNotFound = fmt.Errorf("teams: membership not found")

// Service removes team members after the enforcement layer clears the
// caller.
type Service struct {
	repo     MembershipRepository
	enforcer *authz.Enforcer
}

// NewService constructs a Service.
func NewService(repo MembershipRepository, enforcer *authz.Enforcer) *Service {
	return &Service{repo: repo, enforcer: enforcer}
}

// RemoveMember removes targetID from the team bound to the evaluation
// context. Authorization runs first: a denied caller never reaches the
// store. Self-removal is allowed at any rank; removing someone else
// requires ADMIN or above.
func (s *Service) RemoveMember(ctx context.Context, ec *authz.EvaluationContext, targetID int64) error {
	if err := s.enforcer.RequireMemberRemoval(ctx, ec, targetID); err != nil {
		return err
	}
	removed, err := s.repo.RemoveMember(ctx, ec.Scope().TeamID, targetID)
	if err != nil {
		return fmt.Errorf("teams: remove member: %w", err)
	}
	if !removed {
		return ErrMembershipNotFound
	}
	return nil
}
