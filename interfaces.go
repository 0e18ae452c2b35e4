package grantkit

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// Database defines the database operations interface for dependency injection
type Database interface {
	dbkit.IDB
}

// Authorizer is the narrow guard surface the transport layer uses to protect
// actions. HasPermission never errors for a permission that is not held;
// RequirePermission fails with ErrPermissionDenied before any side effects.
type Authorizer interface {
	HasPermission(ctx context.Context, userID, permission string) bool
	RequirePermission(ctx context.Context, userID, permission string) error
}

// RoleManager is the assignment read/write surface.
type RoleManager interface {
	Assign(ctx context.Context, userID, roleName, assignedBy string, opts ...AssignOption) (*RoleAssignment, error)
	Remove(ctx context.Context, userID, roleName, removedBy string) error
	GetUserRoles(ctx context.Context, userID string) (*UserRoles, error)
	GetUserPermissions(ctx context.Context, userID string) ([]string, error)
}

// ContextManager tracks and moves the per-user acting-as context.
type ContextManager interface {
	SwitchContext(ctx context.Context, userID, roleName string) error
	CurrentContext(ctx context.Context, userID string) (string, error)
}

// AuditReader is the sole read surface for compliance tooling.
type AuditReader interface {
	GetAuditLog(ctx context.Context, filter AuditLogFilter) ([]RoleAuditLog, error)
}

// TransactionManager defines the transaction management interface
type TransactionManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
	ReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// HealthMonitor defines the health monitoring interface
type HealthMonitor interface {
	Health(ctx context.Context) dbkit.HealthStatus
	IsHealthy(ctx context.Context) bool
	Ping(ctx context.Context) error
	GetPoolStats() dbkit.PoolStats
}

// Compile-time checks that Service satisfies its public surfaces.
var (
	_ Authorizer         = (*Service)(nil)
	_ RoleManager        = (*Service)(nil)
	_ ContextManager     = (*Service)(nil)
	_ AuditReader        = (*Service)(nil)
	_ TransactionManager = (*Service)(nil)
	_ HealthMonitor      = (*HealthService)(nil)
)
