package grantkit

import (
	"sort"
	"time"

	"github.com/uptrace/bun"
)

// Permission is a single "resource:action" capability. Permissions are
// reference data: immutable once a role grants them and identified by name,
// not a surrogate key, so role definitions stay human-auditable.
type Permission struct {
	bun.BaseModel `bun:"table:permissions,alias:p"`

	Name        string    `bun:"name,pk"`
	Resource    string    `bun:"resource,notnull"`
	Action      string    `bun:"action,notnull"`
	Description string    `bun:"description"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Role is an administrator-defined set of permission names. Priority orders
// roles by seniority (strictly increasing) and decides which role inherits
// the acting-as context when the current one is removed; it never grants
// permissions by itself. Roles are never hard-deleted while assignments
// reference them; Disabled soft-retires a role instead.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:r"`

	Name        string    `bun:"name,pk"`
	Description string    `bun:"description"`
	Priority    int       `bun:"priority,notnull"`
	Permissions []string  `bun:"permissions,array"`
	Disabled    bool      `bun:"disabled,notnull,default:false"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// RoleAssignment links a user to a role they hold. A user can hold many
// roles at once (permissions are UNION), but at most one active row exists
// per (user, role) pair. Removal flips IsActive and stamps RemovedAt rather
// than deleting, so the grant history stays reconstructable; assigning the
// same role again afterwards creates a new row.
//
// IsPrimary marks the single assignment the user is currently acting as.
type RoleAssignment struct {
	bun.BaseModel `bun:"table:role_assignments,alias:ra"`

	ID         string     `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	UserID     string     `bun:"user_id,notnull"`
	RoleName   string     `bun:"role_name,notnull"`
	AssignedBy string     `bun:"assigned_by,notnull"`
	Note       string     `bun:"note"`
	IsPrimary  bool       `bun:"is_primary,notnull,default:false"`
	IsActive   bool       `bun:"is_active,notnull,default:true"`
	CreatedAt  time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	RemovedAt  *time.Time `bun:"removed_at"`
	RemovedBy  string     `bun:"removed_by"`
}

// RoleAuditLog records every assignment mutation and context switch.
// Rows are append-only: never updated, never deleted. Canonical audit order
// is timestamp then insertion sequence.
type RoleAuditLog struct {
	bun.BaseModel `bun:"table:role_audit_log,alias:ral"`

	ID        string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Seq       int64     `bun:"seq,nullzero"`
	Timestamp time.Time `bun:"timestamp,notnull,default:current_timestamp"`

	// Who performed the action, and on whom
	ActorID string `bun:"actor_id,notnull"`
	UserID  string `bun:"user_id,notnull"`

	Action   string `bun:"action,notnull"` // "assigned", "removed", "context_switched", "context_switch_denied"
	RoleName string `bun:"role_name,notnull"`
	Note     string `bun:"note"`

	// Acting-as context before and after the mutation
	PriorContext string `bun:"prior_context"`
	NewContext   string `bun:"new_context"`

	// Request metadata for forensics
	IPAddress string `bun:"ip_address"`
	UserAgent string `bun:"user_agent"`
	RequestID string `bun:"request_id"`

	Metadata map[string]any `bun:"metadata,type:jsonb"`
}

// AuditAction represents the type of action in the audit log.
type AuditAction string

const (
	AuditActionAssigned     AuditAction = "assigned"
	AuditActionRemoved      AuditAction = "removed"
	AuditActionSwitched     AuditAction = "context_switched"
	AuditActionSwitchDenied AuditAction = "context_switch_denied"
)

// AuditEntry is used to create new audit log entries.
type AuditEntry struct {
	ActorID      string
	UserID       string
	Action       AuditAction
	RoleName     string
	Note         string
	PriorContext string
	NewContext   string
	IPAddress    string
	UserAgent    string
	RequestID    string
	Metadata     map[string]any
}

// ToModel converts an AuditEntry to a RoleAuditLog model.
func (e *AuditEntry) ToModel() *RoleAuditLog {
	return &RoleAuditLog{
		ActorID:      e.ActorID,
		UserID:       e.UserID,
		Action:       string(e.Action),
		RoleName:     e.RoleName,
		Note:         e.Note,
		PriorContext: e.PriorContext,
		NewContext:   e.NewContext,
		IPAddress:    e.IPAddress,
		UserAgent:    e.UserAgent,
		RequestID:    e.RequestID,
		Metadata:     e.Metadata,
		Timestamp:    time.Now(),
	}
}

// UserRoles holds a user's active role assignments.
type UserRoles struct {
	UserID      string
	Assignments []RoleAssignment

	byRole map[string]*RoleAssignment
}

// NewUserRoles creates a UserRoles from a list of active assignments.
func NewUserRoles(userID string, assignments []RoleAssignment) *UserRoles {
	ur := &UserRoles{
		UserID:      userID,
		Assignments: assignments,
		byRole:      make(map[string]*RoleAssignment, len(assignments)),
	}
	for i := range assignments {
		ur.byRole[assignments[i].RoleName] = &assignments[i]
	}
	return ur
}

// HasRole checks if the user actively holds a role.
func (ur *UserRoles) HasRole(role string) bool {
	_, ok := ur.byRole[role]
	return ok
}

// Get returns the active assignment for a role, or nil.
func (ur *UserRoles) Get(role string) *RoleAssignment {
	return ur.byRole[role]
}

// RoleNames returns the names of all actively held roles, sorted.
func (ur *UserRoles) RoleNames() []string {
	names := make([]string, 0, len(ur.byRole))
	for name := range ur.byRole {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Primary returns the assignment the user is currently acting as, or nil
// when the user has no context.
func (ur *UserRoles) Primary() *RoleAssignment {
	for i := range ur.Assignments {
		if ur.Assignments[i].IsPrimary {
			return &ur.Assignments[i]
		}
	}
	return nil
}

// PrimaryRole returns the role name of the current context, or "" when the
// user has no context.
func (ur *UserRoles) PrimaryRole() string {
	if p := ur.Primary(); p != nil {
		return p.RoleName
	}
	return ""
}

// IsEmpty returns true if the user holds no active roles.
func (ur *UserRoles) IsEmpty() bool {
	return len(ur.Assignments) == 0
}
