package grantkit

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// Service is the sole entry point for assignment reads and writes. It owns
// write access to role_assignments and role_audit_log; the catalog is read
// here and written only through the administrative SyncCatalog path.
//
// Every mutator (Assign, Remove, SwitchContext) runs as one transaction
// spanning the assignment change, the context change and the audit entry.
// A failed audit write rolls the whole operation back: an assignment change
// can never commit unaudited, and an audit entry can never exist without the
// matching state change.
//
// Error Handling:
// Database operations use dbkit's chainable error wrapping for operation
// context, and are mapped onto the GrantKit taxonomy: unique violations
// become ErrDuplicateAssignment, everything else ErrStorageUnavailable.
//
//	_, err := service.Assign(ctx, userID, role, actorID)
//	switch {
//	case grantkit.IsDuplicateAssignment(err):
//	    // user already holds the role
//	case grantkit.IsStorageUnavailable(err):
//	    // safe to retry the whole call
//	}
type Service struct {
	db        dbkit.IDB
	catalog   *Catalog
	resolver  *Resolver
	matcher   *PermissionMatcher
	txMonitor *transactionMonitor

	auditDeniedSwitches bool
}

// Option configures the Service.
type Option func(*Service)

// WithDeniedSwitchAudit controls whether denied context switches (attempts
// to switch into a role the user does not hold) produce an audit entry.
// Off by default; security monitoring setups turn it on.
func WithDeniedSwitchAudit(enabled bool) Option {
	return func(s *Service) {
		s.auditDeniedSwitches = enabled
	}
}

// NewService creates a new GrantKit service.
//
// Example:
//
//	catalog := grantkit.NewCatalog()
//	// ... define permissions and roles ...
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	service := grantkit.NewService(catalog, db)
func NewService(catalog *Catalog, db dbkit.IDB, opts ...Option) *Service {
	s := &Service{
		db:        db,
		catalog:   catalog,
		resolver:  NewResolver(catalog),
		matcher:   NewPermissionMatcher(),
		txMonitor: newTransactionMonitor(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the role and permission catalog.
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// ============================================================================
// AUDIT LOG
// ============================================================================

// GetAuditLog retrieves audit log entries with optional filters, most recent
// first (timestamp, then insertion sequence). This is the sole read surface
// for compliance tooling; nothing else reads role_audit_log.
func (s *Service) GetAuditLog(ctx context.Context, filter AuditLogFilter) ([]RoleAuditLog, error) {
	var logs []RoleAuditLog
	q := s.conn(ctx).NewSelect().Model(&logs)
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.ActorID != "" {
		q = q.Where("actor_id = ?", filter.ActorID)
	}
	if filter.RoleName != "" {
		q = q.Where("role_name = ?", filter.RoleName)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if !filter.Since.IsZero() {
		q = q.Where("timestamp >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		q = q.Where("timestamp <= ?", filter.Until)
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 100 // Default limit
	}
	q = q.Limit(limit)

	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	q = q.Order("timestamp DESC", "seq DESC")
	if err := dbkit.WithErr1(q.Scan(ctx), "GetAuditLog").Err(); err != nil {
		return nil, storageError(err, "GetAuditLog")
	}

	return logs, nil
}

// logAudit appends one audit entry. Inside a mutator's transaction a failure
// here fails the mutation.
func (s *Service) logAudit(ctx context.Context, entry *AuditEntry) error {
	_, err := s.conn(ctx).NewInsert().Model(entry.ToModel()).Exec(ctx)
	if err := dbkit.WithErr1(err, "LogAudit").Err(); err != nil {
		return storageError(err, "LogAudit")
	}
	return nil
}
