package authz

import (
	"errors"
	"fmt"
)

// PermissionDenied signals that the principal is not allowed to perform
// the checked operation. Callers typically surface it as 403.
type PermissionDenied struct {
	Detail string
}

func (e *PermissionDenied) Error() string {
	return "authz: permission denied: " + e.Detail
}

// NewPermissionDenied builds a PermissionDenied naming the missing
// permission.
func NewPermissionDenied(perm Permission) *PermissionDenied {
	return &PermissionDenied{Detail: fmt.Sprintf("Required permission: %s", perm)}
}

// ScopeRequired signals a caller error: a team-scoped check was invoked
// without a resolved team scope. Deliberately distinct from
// PermissionDenied so "not allowed" and "called incorrectly" stay apart.
type ScopeRequired struct {
	Detail string
}

func (e *ScopeRequired) Error() string {
	return "authz: scope required: " + e.Detail
}

// IsPermissionDenied reports whether err is (or wraps) a PermissionDenied.
func IsPermissionDenied(err error) bool {
	var denied *PermissionDenied
	return errors.As(err, &denied)
}

// IsScopeRequired reports whether err is (or wraps) a ScopeRequired.
func IsScopeRequired(err error) bool {
	var scope *ScopeRequired
	return errors.As(err, &scope)
}
