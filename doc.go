// Package grantkit is an authorization engine for users that hold several
// roles at once. Permissions are additive: a user's effective permission set
// is the union of every role they actively hold, and assigning another role
// can only enlarge it. Alongside the additive model the engine tracks a single
// "acting as" context per user, and records every grant, removal and context
// switch in an append-only audit log.
//
// # Core Concepts
//
// Permission: a "resource:action" capability token, e.g. "circles:create".
// Permissions are reference data identified by name.
//
// Role: a named, administrator-defined set of permission names with an
// integer priority. Priority orders roles by seniority for display and for
// context reassignment; it never grants implicit inheritance.
//
// Assignment: a (user, role) grant with provenance (who assigned it, when,
// an optional note). Removing an assignment deactivates it in place, so the
// historical record survives; re-assigning creates a fresh row. At most one
// active assignment exists per (user, role) pair.
//
// Context: the one active assignment a user is currently acting as. Context
// affects display and audit only; permission checks always run over the full
// additive set regardless of which role is current.
//
// # Basic Usage
//
//	// 1. Define the catalog (at application startup)
//	catalog := grantkit.NewCatalog()
//
//	catalog.Permission("circles:create", "Create a new circle").
//	    Permission("circles:join", "Join an existing circle").
//	    Permission("members:invite", "Invite a member")
//
//	catalog.DefineRole("Member").
//	        Priority(10).
//	        Grant("circles:create", "circles:join").
//	    DefineRole("Facilitator").
//	        Priority(40).
//	        Grant("circles:create", "circles:join", "members:invite")
//
//	// 2. Create the service
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	service := grantkit.NewService(catalog, db)
//
//	// 3. Run migrations and persist the catalog
//	db.Migrate(ctx, grantkit.NewMigrationService(service).Migrations())
//	service.SyncCatalog(ctx)
//
//	// 4. Assign roles
//	service.Assign(ctx, "u1", "Member", "admin1")
//	service.Assign(ctx, "u1", "Facilitator", "admin1", grantkit.WithNote("covering for Q3"))
//
//	// 5. Check permissions
//	if service.HasPermission(ctx, "u1", "members:invite") {
//	    // union of Member + Facilitator grants
//	}
//
//	if err := service.RequirePermission(ctx, "u1", "circles:create"); err != nil {
//	    // grantkit.ErrPermissionDenied
//	}
//
// # Acting-As Context
//
// The first role assigned to a user becomes their context. Assigning with
// grantkit.WithPrimary() or calling SwitchContext moves it. Removing the
// contextual role reassigns the context to the highest-priority remaining
// role, or clears it when none remain:
//
//	service.SwitchContext(ctx, "u1", "Facilitator")
//	role, _ := service.CurrentContext(ctx, "u1") // "Facilitator"
//
// Switching into a role the user does not actively hold fails with
// ErrRoleNotAssigned and changes nothing.
//
// # Middleware Usage
//
//	mw := grantkit.NewMiddleware(service)
//	router.Use(mw.InjectAuditContext())
//
//	router.With(mw.RequirePermission("circles:create")).
//	    Post("/circles", createCircleHandler)
//
// # Audit Log
//
// Every successful mutation writes exactly one audit entry inside the same
// transaction as the state change, recording:
//   - Target user and acting principal
//   - Action (assigned, removed, context_switched)
//   - Role, prior and new context
//   - Timestamp and request metadata (IP, user agent, request ID)
//
// Denied context switches can optionally be audited too, via
// WithDeniedSwitchAudit(true).
package grantkit
