package grantkit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestResolverUnion tests that permissions union across held roles
func TestResolverUnion(t *testing.T) {
	r := NewResolver(testCatalog())

	perms := r.Resolve("user-1", []RoleAssignment{
		{ID: "a", UserID: "user-1", RoleName: "Member", IsActive: true},
		{ID: "b", UserID: "user-1", RoleName: "Facilitator", IsActive: true},
	})

	// Facilitator is a strict superset of Member, so the union is exactly
	// the Facilitator set.
	assert.ElementsMatch(t, facilitatorPerms, perms)
}

// TestResolverSingleRole tests resolution of a single role
func TestResolverSingleRole(t *testing.T) {
	r := NewResolver(testCatalog())

	perms := r.Resolve("user-1", []RoleAssignment{
		{ID: "a", UserID: "user-1", RoleName: "Member", IsActive: true},
	})

	assert.ElementsMatch(t, memberPerms, perms)
	assert.Len(t, perms, 7)
}

// TestResolverNoRoles tests that users with no roles resolve to nothing
func TestResolverNoRoles(t *testing.T) {
	r := NewResolver(testCatalog())

	assert.Empty(t, r.Resolve("user-1", nil))
}

// TestResolverDanglingRole tests that unknown roles contribute nothing
func TestResolverDanglingRole(t *testing.T) {
	r := NewResolver(testCatalog())

	perms := r.Resolve("user-1", []RoleAssignment{
		{ID: "a", UserID: "user-1", RoleName: "Member", IsActive: true},
		{ID: "b", UserID: "user-1", RoleName: "Ghost", IsActive: true},
	})

	assert.ElementsMatch(t, memberPerms, perms)
}

// TestResolverTracksAssignmentSet tests that a changed assignment set is
// never served from cache, with or without invalidation
func TestResolverTracksAssignmentSet(t *testing.T) {
	r := NewResolver(testCatalog())

	memberOnly := []RoleAssignment{{ID: "a", UserID: "user-1", RoleName: "Member", IsActive: true}}
	both := append(append([]RoleAssignment(nil), memberOnly...),
		RoleAssignment{ID: "b", UserID: "user-1", RoleName: "Facilitator", IsActive: true})

	assert.ElementsMatch(t, memberPerms, r.Resolve("user-1", memberOnly))

	// A grant committed elsewhere shows up without any local Invalidate.
	assert.ElementsMatch(t, facilitatorPerms, r.Resolve("user-1", both))

	// And so does a removal: back to the smaller set, not the cached one.
	assert.ElementsMatch(t, memberPerms, r.Resolve("user-1", memberOnly))
}

// TestResolverRemovalClearsPermissions tests that a user whose roles were
// all removed resolves to nothing even with a warm cache
func TestResolverRemovalClearsPermissions(t *testing.T) {
	r := NewResolver(testCatalog())

	withFacilitator := []RoleAssignment{
		{ID: "a", UserID: "user-1", RoleName: "Facilitator", IsActive: true},
	}
	assert.Len(t, r.Resolve("user-1", withFacilitator), 15)

	// The removal was committed by another service instance: this process
	// never called Invalidate, only the fresh read reflects it.
	assert.Empty(t, r.Resolve("user-1", nil))
	assert.NotContains(t, r.Resolve("user-1", nil), "sessions:moderate")
}

// TestResolverCacheHit tests that an unchanged set is served from cache
func TestResolverCacheHit(t *testing.T) {
	c := testCatalog()
	r := NewResolver(c)

	memberOnly := []RoleAssignment{{ID: "a", UserID: "user-1", RoleName: "Member", IsActive: true}}
	first := r.Resolve("user-1", memberOnly)
	assert.Len(t, first, 7)

	// Widen Member in the catalog without flushing: the identical
	// assignment set still serves the cached computation.
	c.DefineRole("Member").
		Priority(10).
		Grant(append(append([]string(nil), memberPerms...), "reports:view")...)
	assert.Len(t, r.Resolve("user-1", memberOnly), 7)

	// InvalidateAll (the catalog-sync path) forces the recompute.
	r.InvalidateAll()
	assert.Len(t, r.Resolve("user-1", memberOnly), 8)
}

// TestResolverInvalidate tests explicit per-user invalidation
func TestResolverInvalidate(t *testing.T) {
	c := testCatalog()
	r := NewResolver(c)

	memberOnly := []RoleAssignment{{ID: "a", UserID: "user-1", RoleName: "Member", IsActive: true}}
	r.Resolve("user-1", memberOnly)

	c.DefineRole("Member").
		Priority(10).
		Grant(append(append([]string(nil), memberPerms...), "reports:view")...)
	r.Invalidate("user-1")
	assert.Len(t, r.Resolve("user-1", memberOnly), 8)
}

// TestResolverCacheIsPerUser tests that users do not share cache entries
func TestResolverCacheIsPerUser(t *testing.T) {
	r := NewResolver(testCatalog())

	a := r.Resolve("user-a", []RoleAssignment{{ID: "a", UserID: "user-a", RoleName: "Member", IsActive: true}})
	b := r.Resolve("user-b", []RoleAssignment{{ID: "b", UserID: "user-b", RoleName: "Facilitator", IsActive: true}})

	assert.Len(t, a, 7)
	assert.Len(t, b, 15)
}

// TestResolverReturnsCopies tests that callers cannot corrupt the cache
func TestResolverReturnsCopies(t *testing.T) {
	r := NewResolver(testCatalog())

	memberOnly := []RoleAssignment{{ID: "a", UserID: "user-1", RoleName: "Member", IsActive: true}}
	perms := r.Resolve("user-1", memberOnly)
	for i := range perms {
		perms[i] = "tampered:entry"
	}

	again := r.Resolve("user-1", memberOnly)
	assert.ElementsMatch(t, memberPerms, again)
	assert.NotContains(t, again, "tampered:entry")
}

// TestAssignmentFingerprint tests fingerprint equality semantics
func TestAssignmentFingerprint(t *testing.T) {
	now := time.Now()
	a := RoleAssignment{ID: "a", RoleName: "Member", CreatedAt: now}
	b := RoleAssignment{ID: "b", RoleName: "Facilitator", CreatedAt: now}

	// Order-insensitive for the same set.
	assert.Equal(t,
		assignmentFingerprint([]RoleAssignment{a, b}),
		assignmentFingerprint([]RoleAssignment{b, a}))

	// Any membership change alters the fingerprint.
	assert.NotEqual(t,
		assignmentFingerprint([]RoleAssignment{a, b}),
		assignmentFingerprint([]RoleAssignment{a}))
	assert.NotEqual(t,
		assignmentFingerprint([]RoleAssignment{a}),
		assignmentFingerprint(nil))

	// A re-assignment after removal is a new row and a new fingerprint.
	again := RoleAssignment{ID: "c", RoleName: "Member", CreatedAt: now.Add(time.Hour)}
	assert.NotEqual(t,
		assignmentFingerprint([]RoleAssignment{a}),
		assignmentFingerprint([]RoleAssignment{again}))
}
