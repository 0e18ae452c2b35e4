package grantkit

import (
	"context"
	"sync"
	"testing"
)

// TestAssignAndResolve tests that a single role grants exactly its catalog
// permissions
func TestAssignAndResolve(t *testing.T) {
	if !requireDatabase(t) {
		return
	}

	ctx := context.Background()
	service, err := setupTestDatabase(ctx)
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}

	userID := uniqueID("member")
	if _, err := service.Assign(ctx, userID, "Member", "admin-1"); err != nil {
		t.Fatalf("Failed to assign Member: %v", err)
	}

	perms, err := service.GetUserPermissions(ctx, userID)
	if err != nil {
		t.Fatalf("Failed to get permissions: %v", err)
	}
	if len(perms) != 7 {
		t.Errorf("Member should resolve exactly 7 permissions, got %d: %v", len(perms), perms)
	}
	for _, p := range memberPerms {
		if !service.HasPermission(ctx, userID, p) {
			t.Errorf("Member should hold %s", p)
		}
	}
	if service.HasPermission(ctx, userID, "sessions:moderate") {
		t.Error("Member must not hold Facilitator-only permissions")
	}
}

// TestMultiRoleUnion tests that permissions union across held roles
func TestMultiRoleUnion(t *testing.T) {
	if !requireDatabase(t) {
		return
	}

	ctx := context.Background()
	service, err := setupTestDatabase(ctx)
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}

	userID := uniqueID("facilitator")
	if _, err := service.Assign(ctx, userID, "Member", "admin-1"); err != nil {
		t.Fatalf("Failed to assign Member: %v", err)
	}
	if _, err := service.Assign(ctx, userID, "Facilitator", "admin-1"); err != nil {
		t.Fatalf("Failed to assign Facilitator: %v", err)
	}

	perms, err := service.GetUserPermissions(ctx, userID)
	if err != nil {
		t.Fatalf("Failed to get permissions: %v", err)
	}
	// Facilitator's grants are a superset of Member's, so the union is the
	// 15 Facilitator permissions.
	if len(perms) != 15 {
		t.Errorf("Union should resolve exactly 15 permissions, got %d: %v", len(perms), perms)
	}

	// The union never shrinks while roles are only added.
	if !service.HasPermission(ctx, userID, "circles:view") {
		t.Error("Member permission lost after adding Facilitator")
	}
	if !service.HasPermission(ctx, userID, "sessions:moderate") {
		t.Error("Facilitator permission missing from union")
	}
}

// TestDuplicateAssignment tests that re-assigning an actively held role fails
func TestDuplicateAssignment(t *testing.T) {
	if !requireDatabase(t) {
		return
	}

	ctx := context.Background()
	service, err := setupTestDatabase(ctx)
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}

	userID := uniqueID("dup")
	if _, err := service.Assign(ctx, userID, "Member", "admin-1"); err != nil {
		t.Fatalf("Failed to assign Member: %v", err)
	}

	_, err = service.Assign(ctx, userID, "Member", "admin-1")
	if !IsDuplicateAssignment(err) {
		t.Errorf("Expected duplicate assignment error, got %v", err)
	}

	// The failed attempt must not leave a second active row.
	n, err := service.CountActiveAssignments(ctx, userID)
	if err != nil {
		t.Fatalf("Failed to count assignments: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 active assignment, got %d", n)
	}
}

// TestRemoveAndReassign tests soft-delete removal and the two-row history
func TestRemoveAndReassign(t *testing.T) {
	if !requireDatabase(t) {
		return
	}

	ctx := context.Background()
	service, err := setupTestDatabase(ctx)
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}

	userID := uniqueID("rejoin")
	if _, err := service.Assign(ctx, userID, "Member", "admin-1"); err != nil {
		t.Fatalf("Failed to assign Member: %v", err)
	}
	if err := service.Remove(ctx, userID, "Member", "admin-2"); err != nil {
		t.Fatalf("Failed to remove Member: %v", err)
	}

	if service.HasPermission(ctx, userID, "circles:view") {
		t.Error("Removed role must not grant permissions")
	}
	if service.CheckExists(ctx, userID, "Member") {
		t.Error("Removed assignment should not count as active")
	}

	// Assign again: a fresh row, not a resurrection of the removed one.
	if _, err := service.Assign(ctx, userID, "Member", "admin-3"); err != nil {
		t.Fatalf("Failed to re-assign Member: %v", err)
	}

	history, err := service.GetAssignmentHistory(ctx, userID)
	if err != nil {
		t.Fatalf("Failed to get history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 assignment rows after remove+reassign, got %d", len(history))
	}

	// Newest first: the live row, then the removed one.
	if !history[0].IsActive || history[0].AssignedBy != "admin-3" {
		t.Errorf("Newest row should be the active re-assignment: %+v", history[0])
	}
	removed := history[1]
	if removed.IsActive {
		t.Error("Old row should be inactive")
	}
	if removed.RemovedAt == nil || removed.RemovedBy != "admin-2" {
		t.Errorf("Removed row should keep removal stamps: %+v", removed)
	}
	if removed.AssignedBy != "admin-1" {
		t.Errorf("Removed row should keep its provenance: %+v", removed)
	}
}

// TestRemoveNotAssigned tests removing a role the user does not hold
func TestRemoveNotAssigned(t *testing.T) {
	if !requireDatabase(t) {
		return
	}

	ctx := context.Background()
	service, err := setupTestDatabase(ctx)
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}

	userID := uniqueID("nothing")
	err = service.Remove(ctx, userID, "Member", "admin-1")
	if !IsNotFound(err) {
		t.Errorf("Expected assignment not found, got %v", err)
	}
}

// TestAssignMultipleRollback tests that one bad grant rolls back the batch
func TestAssignMultipleRollback(t *testing.T) {
	if !requireDatabase(t) {
		return
	}

	ctx := context.Background()
	service, err := setupTestDatabase(ctx)
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}

	userA := uniqueID("batch-a")
	userB := uniqueID("batch-b")

	err = service.AssignMultiple(ctx, "admin-1", []RoleGrant{
		{UserID: userA, RoleName: "Member"},
		{UserID: userB, RoleName: "Ghost"}, // not in catalog
	})
	if err == nil {
		t.Fatal("Expected batch to fail on the unknown role")
	}

	// First grant must have rolled back with the batch.
	n, err := service.CountActiveAssignments(ctx, userA)
	if err != nil {
		t.Fatalf("Failed to count assignments: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected rollback to undo the first grant, found %d active rows", n)
	}
}

// TestAssignMultiple tests a successful batch grant
func TestAssignMultiple(t *testing.T) {
	if !requireDatabase(t) {
		return
	}

	ctx := context.Background()
	service, err := setupTestDatabase(ctx)
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}

	userA := uniqueID("team-a")
	userB := uniqueID("team-b")

	err = service.AssignMultiple(ctx, "admin-1", []RoleGrant{
		{UserID: userA, RoleName: "Member", Note: "onboarding"},
		{UserID: userB, RoleName: "Facilitator"},
	})
	if err != nil {
		t.Fatalf("Failed to assign batch: %v", err)
	}

	if !service.HasRole(ctx, userA, "Member") {
		t.Error("userA should hold Member")
	}
	if !service.HasRole(ctx, userB, "Facilitator") {
		t.Error("userB should hold Facilitator")
	}
}

// TestGetRoleHolders tests listing users holding a role
func TestGetRoleHolders(t *testing.T) {
	if !requireDatabase(t) {
		return
	}

	ctx := context.Background()
	service, err := setupTestDatabase(ctx)
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}

	userA := uniqueID("holder-a")
	userB := uniqueID("holder-b")
	for _, u := range []string{userA, userB} {
		if _, err := service.Assign(ctx, u, "Facilitator", "admin-1"); err != nil {
			t.Fatalf("Failed to assign: %v", err)
		}
	}
	if err := service.Remove(ctx, userB, "Facilitator", "admin-1"); err != nil {
		t.Fatalf("Failed to remove: %v", err)
	}

	holders, err := service.GetRoleHolders(ctx, "Facilitator")
	if err != nil {
		t.Fatalf("Failed to get role holders: %v", err)
	}

	seen := make(map[string]bool, len(holders))
	for _, h := range holders {
		seen[h.UserID] = true
	}
	if !seen[userA] {
		t.Error("userA should appear among active holders")
	}
	if seen[userB] {
		t.Error("Removed holder should not appear")
	}
}

// TestConcurrentFirstAssignments tests that two simultaneous first-ever
// assignments of different roles both succeed and yield exactly one context
func TestConcurrentFirstAssignments(t *testing.T) {
	if !requireDatabase(t) {
		return
	}

	ctx := context.Background()
	service, err := setupTestDatabase(ctx)
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}

	userID := uniqueID("concurrent-first")
	roles := []string{"Member", "Facilitator"}
	errs := make([]error, len(roles))

	var wg sync.WaitGroup
	for i, role := range roles {
		wg.Add(1)
		go func(i int, role string) {
			defer wg.Done()
			_, errs[i] = service.Assign(ctx, userID, role, "admin-1")
		}(i, role)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Concurrent first assignment of %s failed: %v", roles[i], err)
		}
	}

	userRoles, err := service.GetUserRoles(ctx, userID)
	if err != nil {
		t.Fatalf("Failed to get user roles: %v", err)
	}
	if len(userRoles.Assignments) != 2 {
		t.Fatalf("Expected 2 active roles, got %d", len(userRoles.Assignments))
	}

	primaries := 0
	for _, r := range userRoles.Assignments {
		if r.IsPrimary {
			primaries++
		}
	}
	if primaries != 1 {
		t.Errorf("Expected exactly one primary assignment, got %d", primaries)
	}
}
