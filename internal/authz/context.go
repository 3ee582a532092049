package authz

import "context"

type userContextKey struct{}

// ContextWithUser stores the resolved principal in the request context.
func ContextWithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext extracts the resolved principal from the context.
func UserFromContext(ctx context.Context) (User, bool) {
	user, ok := ctx.Value(userContextKey{}).(User)
	return user, ok
}

type evalContextKey struct{}

// ContextWithEvaluation stores the per-request evaluation context so
// handlers behind enforcement middleware can run further checks
// without re-fetching.
func ContextWithEvaluation(ctx context.Context, ec *EvaluationContext) context.Context {
	return context.WithValue(ctx, evalContextKey{}, ec)
}

// EvaluationFromContext extracts the evaluation context, or nil.
func EvaluationFromContext(ctx context.Context) *EvaluationContext {
	ec, _ := ctx.Value(evalContextKey{}).(*EvaluationContext)
	return ec
}
