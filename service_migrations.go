package grantkit

import (
	"github.com/fernandezvara/dbkit"
)

// MigrationService provides migration management functionality as an extension to Service
type MigrationService struct {
	*Service
}

// NewMigrationService creates a new migration service extension
func NewMigrationService(service *Service) *MigrationService {
	return &MigrationService{Service: service}
}

// Migrations returns all database migrations required for GrantKit.
// Use db.Migrate(ctx, service.Migrations()) to run them.
func (ms *MigrationService) Migrations() []dbkit.Migration {
	return []dbkit.Migration{
		{
			ID:          "grantkit-001",
			Description: "Create permissions table",
			SQL: `
                CREATE TABLE IF NOT EXISTS permissions (
                    name TEXT PRIMARY KEY,
                    resource TEXT NOT NULL,
                    action TEXT NOT NULL,
                    description TEXT,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                )`,
		},
		{
			ID:          "grantkit-002",
			Description: "Create roles table",
			SQL: `
                CREATE TABLE IF NOT EXISTS roles (
                    name TEXT PRIMARY KEY,
                    description TEXT,
                    priority INTEGER NOT NULL DEFAULT 0,
                    permissions TEXT[] NOT NULL DEFAULT '{}',
                    disabled BOOLEAN NOT NULL DEFAULT FALSE,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                )`,
		},
		{
			ID:          "grantkit-003",
			Description: "Create role_assignments table",
			SQL: `
                CREATE TABLE IF NOT EXISTS role_assignments (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    user_id TEXT NOT NULL,
                    role_name TEXT NOT NULL,
                    assigned_by TEXT NOT NULL,
                    note TEXT,
                    is_primary BOOLEAN NOT NULL DEFAULT FALSE,
                    is_active BOOLEAN NOT NULL DEFAULT TRUE,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    removed_at TIMESTAMPTZ,
                    removed_by TEXT
                )`,
		},
		{
			ID:          "grantkit-004",
			Description: "Enforce assignment and context uniqueness",
			SQL: `
                CREATE UNIQUE INDEX IF NOT EXISTS uq_active_assignment
                    ON role_assignments (user_id, role_name) WHERE is_active;
                CREATE UNIQUE INDEX IF NOT EXISTS uq_active_context
                    ON role_assignments (user_id) WHERE is_active AND is_primary;
                CREATE INDEX IF NOT EXISTS idx_assignments_user
                    ON role_assignments (user_id, is_active)`,
		},
		{
			ID:          "grantkit-005",
			Description: "Create role_audit_log table",
			SQL: `
                CREATE TABLE IF NOT EXISTS role_audit_log (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    seq BIGINT GENERATED ALWAYS AS IDENTITY,
                    timestamp TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    actor_id TEXT NOT NULL,
                    user_id TEXT NOT NULL,
                    action TEXT NOT NULL,
                    role_name TEXT NOT NULL,
                    note TEXT,
                    prior_context TEXT,
                    new_context TEXT,
                    ip_address TEXT,
                    user_agent TEXT,
                    request_id TEXT,
                    metadata JSONB
                );
                CREATE INDEX IF NOT EXISTS idx_audit_user_time
                    ON role_audit_log (user_id, timestamp DESC, seq DESC)`,
		},
	}
}
