// Package principal resolves bearer tokens into authenticated users.
// Token issuance and identity federation live outside this service;
// this package is only the consuming boundary.
package principal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/aegis-platform/aegis/internal/authz"
)

// Resolution failures. ErrUnknownToken covers missing and expired
// tokens alike.
var (
	ErrUnknownToken = errors.New("principal: unknown token")
	ErrInactiveUser = errors.New("principal: user inactive")
	ErrMissingToken = errors.New("principal: missing token")
)

// Resolver turns a bearer token into the authenticated principal.
type Resolver interface {
	Resolve(ctx context.Context, token string) (authz.User, error)
}

type tokenPayload struct {
	UserID         int64 `json:"user_id"`
	OrganizationID int64 `json:"organization_id"`
	IsActive       bool  `json:"is_active"`
}

// TokenResolver resolves tokens against Redis, where the identity
// service deposits them.
type TokenResolver struct {
	client *redis.Client
	prefix string
}

// NewTokenResolver constructs a TokenResolver. An empty prefix
// defaults to "principal:".
func NewTokenResolver(client *redis.Client, prefix string) *TokenResolver {
	if prefix == "" {
		prefix = "principal:"
	}
	return &TokenResolver{client: client, prefix: prefix}
}

// Resolve looks the token up and validates the principal is active.
func (r *TokenResolver) Resolve(ctx context.Context, token string) (authz.User, error) {
	if token == "" {
		return authz.User{}, ErrMissingToken
	}
	payload, err := r.client.Get(ctx, r.prefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return authz.User{}, ErrUnknownToken
		}
		return authz.User{}, fmt.Errorf("principal: token lookup: %w", err)
	}
	var stored tokenPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return authz.User{}, fmt.Errorf("principal: decode token: %w", err)
	}
	if !stored.IsActive {
		return authz.User{}, ErrInactiveUser
	}
	return authz.User{
		ID:             stored.UserID,
		OrganizationID: stored.OrganizationID,
		IsActive:       stored.IsActive,
	}, nil
}

// Mint stores a fresh token for a user with the given lifetime and
// returns it. Operator tooling uses this; the platform's identity
// service normally writes tokens itself.
func (r *TokenResolver) Mint(ctx context.Context, user authz.User, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	payload, err := json.Marshal(tokenPayload{
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		IsActive:       user.IsActive,
	})
	if err != nil {
		return "", fmt.Errorf("principal: encode token: %w", err)
	}
	if err := r.client.Set(ctx, r.prefix+token, payload, ttl).Err(); err != nil {
		return "", fmt.Errorf("principal: store token: %w", err)
	}
	return token, nil
}

// StaticResolver resolves from a fixed token table. Test and bootstrap
// use only.
type StaticResolver map[string]authz.User

// Resolve implements Resolver.
func (s StaticResolver) Resolve(ctx context.Context, token string) (authz.User, error) {
	user, ok := s[token]
	if !ok {
		return authz.User{}, ErrUnknownToken
	}
	if !user.IsActive {
		return authz.User{}, ErrInactiveUser
	}
	return user, nil
}
