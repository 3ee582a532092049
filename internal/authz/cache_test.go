package authz

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRoleStore struct {
	mu        sync.Mutex
	inner     RoleStore
	roleCalls int
	permCalls int
}

func (c *countingRoleStore) RolesForUser(ctx context.Context, userID, organizationID int64) ([]Role, error) {
	c.mu.Lock()
	c.roleCalls++
	c.mu.Unlock()
	return c.inner.RolesForUser(ctx, userID, organizationID)
}

func (c *countingRoleStore) PermissionsForRole(ctx context.Context, roleID int64) ([]Permission, error) {
	c.mu.Lock()
	c.permCalls++
	c.mu.Unlock()
	return c.inner.PermissionsForRole(ctx, roleID)
}

func newCacheFixture(t *testing.T) (*countingRoleStore, *CachedRoleStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := newFakeStore()
	store.addRole(1, 10, Role{ID: 500, Name: "viewer"}, PermUsersView)
	counting := &countingRoleStore{inner: store}
	cached := NewCachedRoleStore(counting, client, time.Minute, nil)
	return counting, cached, mr
}

func TestCachedRoleStoreReadThrough(t *testing.T) {
	counting, cached, _ := newCacheFixture(t)

	first, err := cached.RolesForUser(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := cached.RolesForUser(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	counting.mu.Lock()
	calls := counting.roleCalls
	counting.mu.Unlock()
	assert.Equal(t, 1, calls, "second read must come from cache")
}

func TestCachedRoleStorePermissions(t *testing.T) {
	counting, cached, _ := newCacheFixture(t)

	perms, err := cached.PermissionsForRole(context.Background(), 500)
	require.NoError(t, err)
	assert.Equal(t, []Permission{PermUsersView}, perms)

	_, err = cached.PermissionsForRole(context.Background(), 500)
	require.NoError(t, err)

	counting.mu.Lock()
	calls := counting.permCalls
	counting.mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestCachedRoleStoreInvalidation(t *testing.T) {
	counting, cached, _ := newCacheFixture(t)

	_, err := cached.RolesForUser(context.Background(), 1, 10)
	require.NoError(t, err)
	require.NoError(t, cached.InvalidateUser(context.Background(), 1, 10))

	_, err = cached.RolesForUser(context.Background(), 1, 10)
	require.NoError(t, err)

	counting.mu.Lock()
	calls := counting.roleCalls
	counting.mu.Unlock()
	assert.Equal(t, 2, calls, "invalidation must force a fresh read")
}

func TestCachedRoleStoreDegradesWhenRedisDown(t *testing.T) {
	counting, cached, mr := newCacheFixture(t)
	mr.Close()

	roles, err := cached.RolesForUser(context.Background(), 1, 10)
	require.NoError(t, err, "cache faults must not fail the lookup")
	assert.Len(t, roles, 1)

	counting.mu.Lock()
	calls := counting.roleCalls
	counting.mu.Unlock()
	assert.Equal(t, 1, calls)
}
