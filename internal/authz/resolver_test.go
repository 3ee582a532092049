package authz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore implements RoleStore, OverrideStore and TeamStore over
// in-memory maps, with error injection and call counting.
type fakeStore struct {
	mu sync.Mutex

	roles       map[string][]Role         // "userID:orgID"
	rolePerms   map[int64][]Permission    // roleID
	overrides   map[string]OverrideEffect // "userID:permission"
	memberships map[string]TeamRole       // "userID:teamID"

	roleErr     error
	permErr     error
	overrideErr error
	teamErr     error

	teamCalls int
	teamDelay time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		roles:       make(map[string][]Role),
		rolePerms:   make(map[int64][]Permission),
		overrides:   make(map[string]OverrideEffect),
		memberships: make(map[string]TeamRole),
	}
}

func (f *fakeStore) addRole(userID, orgID int64, role Role, perms ...Permission) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("%d:%d", userID, orgID)
	f.roles[key] = append(f.roles[key], role)
	f.rolePerms[role.ID] = perms
}

func (f *fakeStore) setOverride(userID int64, perm Permission, effect OverrideEffect) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overrides[fmt.Sprintf("%d:%s", userID, perm)] = effect
}

func (f *fakeStore) setMembership(userID, teamID int64, role TeamRole) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memberships[fmt.Sprintf("%d:%d", userID, teamID)] = role
}

func (f *fakeStore) RolesForUser(ctx context.Context, userID, organizationID int64) ([]Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.roleErr != nil {
		return nil, f.roleErr
	}
	return f.roles[fmt.Sprintf("%d:%d", userID, organizationID)], nil
}

func (f *fakeStore) PermissionsForRole(ctx context.Context, roleID int64) ([]Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.permErr != nil {
		return nil, f.permErr
	}
	return f.rolePerms[roleID], nil
}

func (f *fakeStore) OverrideFor(ctx context.Context, userID int64, perm Permission) (OverrideEffect, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.overrideErr != nil {
		return "", false, f.overrideErr
	}
	effect, ok := f.overrides[fmt.Sprintf("%d:%s", userID, perm)]
	return effect, ok, nil
}

func (f *fakeStore) TeamRoleFor(ctx context.Context, userID, teamID int64) (TeamRole, bool, error) {
	f.mu.Lock()
	f.teamCalls++
	delay := f.teamDelay
	err := f.teamErr
	role, ok := f.memberships[fmt.Sprintf("%d:%d", userID, teamID)]
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return "", false, err
	}
	return role, ok, nil
}

func TestResolveRoleGrantsPermission(t *testing.T) {
	store := newFakeStore()
	store.addRole(1, 10, Role{ID: 100, Name: "viewer"}, PermUsersView)
	resolver := NewResolver(store, store)

	decision, err := resolver.Resolve(context.Background(), 1, PermUsersView, 10)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, ReasonRoleGrant, decision.Reason)

	decision, err = resolver.Resolve(context.Background(), 1, PermUsersDelete, 10)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonNoGrant, decision.Reason)
}

func TestResolveOverrideRevokeWinsOverGrantingRole(t *testing.T) {
	store := newFakeStore()
	store.addRole(1, 10, Role{ID: 101, Name: "admin", Priority: 50}, PermUsersDelete)
	store.setOverride(1, PermUsersDelete, OverrideRevoke)
	resolver := NewResolver(store, store)

	decision, err := resolver.Resolve(context.Background(), 1, PermUsersDelete, 10)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonOverrideRevoke, decision.Reason)
}

func TestResolveOverrideGrantWithoutAnyRole(t *testing.T) {
	store := newFakeStore()
	store.setOverride(1, PermUsersCreate, OverrideGrant)
	resolver := NewResolver(store, store)

	decision, err := resolver.Resolve(context.Background(), 1, PermUsersCreate, 10)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, ReasonOverrideGrant, decision.Reason)
}

func TestResolveUnionsPermissionsAcrossRoles(t *testing.T) {
	store := newFakeStore()
	store.addRole(1, 10, Role{ID: 102, Name: "viewer", Priority: 10}, PermUsersView)
	store.addRole(1, 10, Role{ID: 103, Name: "editor", Priority: 20}, PermUsersEdit)
	resolver := NewResolver(store, store)

	for _, perm := range []Permission{PermUsersView, PermUsersEdit} {
		decision, err := resolver.Resolve(context.Background(), 1, perm, 10)
		require.NoError(t, err)
		assert.True(t, decision.Allowed, "expected %s to be granted", perm)
	}
}

func TestResolveDeniesWithoutRoleOrOverride(t *testing.T) {
	store := newFakeStore()
	resolver := NewResolver(store, store)

	decision, err := resolver.Resolve(context.Background(), 1, PermUsersView, 10)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonNoGrant, decision.Reason)
}

func TestResolveUnknownPermissionFailsClosed(t *testing.T) {
	store := newFakeStore()
	// Faults on every store prove the resolver short-circuits before
	// touching them.
	store.overrideErr = errors.New("unreachable")
	store.roleErr = errors.New("unreachable")
	resolver := NewResolver(store, store)

	decision, err := resolver.Resolve(context.Background(), 1, Permission("users.obliterate"), 10)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonUnknown, decision.Reason)
}

func TestResolveScopeRestrictsRoleLookup(t *testing.T) {
	store := newFakeStore()
	store.addRole(1, 10, Role{ID: 104, Name: "org-admin"}, PermUsersDelete)
	resolver := NewResolver(store, store)

	decision, err := resolver.Resolve(context.Background(), 1, PermUsersDelete, 20)
	require.NoError(t, err)
	assert.False(t, decision.Allowed, "role held in org 10 must not grant in org 20")
}

func TestResolvePropagatesStoreFault(t *testing.T) {
	storeFault := errors.New("connection refused")

	store := newFakeStore()
	store.overrideErr = storeFault
	resolver := NewResolver(store, store)
	_, err := resolver.Resolve(context.Background(), 1, PermUsersView, 10)
	require.ErrorIs(t, err, storeFault)

	store = newFakeStore()
	store.roleErr = storeFault
	resolver = NewResolver(store, store)
	_, err = resolver.Resolve(context.Background(), 1, PermUsersView, 10)
	require.ErrorIs(t, err, storeFault)
}

func TestResolveIsIdempotent(t *testing.T) {
	store := newFakeStore()
	store.addRole(1, 10, Role{ID: 105, Name: "viewer"}, PermUsersView)
	resolver := NewResolver(store, store)

	first, err := resolver.Resolve(context.Background(), 1, PermUsersView, 10)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := resolver.Resolve(context.Background(), 1, PermUsersView, 10)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
