package authz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedRoleStore is a read-through Redis decorator over a RoleStore.
// It is the boundary to the caching layer the platform owns outside
// the authorization core: the resolver stays oblivious to it and stays
// correct without it. Cache faults degrade to the inner store.
type CachedRoleStore struct {
	inner  RoleStore
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedRoleStore wraps inner with a Redis cache using the given
// entry TTL.
func NewCachedRoleStore(inner RoleStore, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedRoleStore {
	return &CachedRoleStore{inner: inner, client: client, ttl: ttl, logger: logger}
}

// RolesForUser serves from cache when possible, reading through to the
// inner store otherwise.
func (c *CachedRoleStore) RolesForUser(ctx context.Context, userID, organizationID int64) ([]Role, error) {
	key := c.userRolesKey(userID, organizationID)
	if payload, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var roles []Role
		if err := json.Unmarshal(payload, &roles); err == nil {
			return roles, nil
		}
		c.warn("decode cached roles", key, err)
	} else if !errors.Is(err, redis.Nil) {
		c.warn("read role cache", key, err)
	}

	roles, err := c.inner.RolesForUser(ctx, userID, organizationID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, roles)
	return roles, nil
}

// PermissionsForRole serves the role's permission set from cache when
// possible.
func (c *CachedRoleStore) PermissionsForRole(ctx context.Context, roleID int64) ([]Permission, error) {
	key := c.rolePermsKey(roleID)
	if payload, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var perms []Permission
		if err := json.Unmarshal(payload, &perms); err == nil {
			return perms, nil
		}
		c.warn("decode cached permissions", key, err)
	} else if !errors.Is(err, redis.Nil) {
		c.warn("read permission cache", key, err)
	}

	perms, err := c.inner.PermissionsForRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, perms)
	return perms, nil
}

// InvalidateUser drops the cached role set for a user within one
// organization. Management operations call this after changing
// assignments.
func (c *CachedRoleStore) InvalidateUser(ctx context.Context, userID, organizationID int64) error {
	return c.client.Del(ctx, c.userRolesKey(userID, organizationID)).Err()
}

// InvalidateRole drops the cached permission set for a role.
func (c *CachedRoleStore) InvalidateRole(ctx context.Context, roleID int64) error {
	return c.client.Del(ctx, c.rolePermsKey(roleID)).Err()
}

func (c *CachedRoleStore) store(ctx context.Context, key string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		c.warn("encode cache entry", key, err)
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.warn("write cache entry", key, err)
	}
}

func (c *CachedRoleStore) warn(msg, key string, err error) {
	if c.logger != nil {
		c.logger.Warn("authz cache: "+msg, slog.String("key", key), slog.Any("error", err))
	}
}

func (c *CachedRoleStore) userRolesKey(userID, organizationID int64) string {
	return fmt.Sprintf("authz:roles:%d:%d", userID, organizationID)
}

func (c *CachedRoleStore) rolePermsKey(roleID int64) string {
	return fmt.Sprintf("authz:roleperms:%d", roleID)
}
