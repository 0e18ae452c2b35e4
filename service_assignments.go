package grantkit

import (
	"context"
	"time"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

// ============================================================================
// ROLE ASSIGNMENT OPERATIONS
// ============================================================================

// AssignOption configures a single role assignment.
type AssignOption func(*assignOptions)

type assignOptions struct {
	primary bool
	note    string
}

// WithPrimary makes the new assignment the user's acting-as context,
// demoting the previous one. The first role a user ever receives becomes
// their context regardless of this option.
func WithPrimary() AssignOption {
	return func(o *assignOptions) { o.primary = true }
}

// WithNote attaches a free-text note to the assignment, recorded on both the
// assignment row and its audit entry.
func WithNote(note string) AssignOption {
	return func(o *assignOptions) { o.note = note }
}

// Assign grants a role to a user. assignedBy is the acting principal; when
// empty it falls back to the actor in ctx. Fails with ErrRoleNotFound for a
// role missing from the catalog, ErrRoleDisabled for a retired role, and
// ErrDuplicateAssignment when the user already actively holds the role.
//
// The assignment insert, any context change and the audit entry commit as
// one transaction. Retrying after a storage failure either succeeds once or
// surfaces ErrDuplicateAssignment; it never double-grants.
//
// Example:
//
//	assignment, err := service.Assign(ctx, "u1", "Facilitator", "admin1",
//	    grantkit.WithPrimary(), grantkit.WithNote("covering for Q3"))
func (s *Service) Assign(ctx context.Context, userID, roleName, assignedBy string, opts ...AssignOption) (*RoleAssignment, error) {
	var options assignOptions
	for _, opt := range opts {
		opt(&options)
	}

	role, err := s.catalog.GetRole(roleName)
	if err != nil {
		return nil, err
	}
	if role.Disabled {
		return nil, NewError(ErrRoleDisabled, roleName).WithRole(roleName).WithUser(userID)
	}

	actorID := assignedBy
	if actorID == "" {
		actorID = GetActorID(ctx)
	}
	if actorID == "" {
		return nil, NewError(ErrNoActorID, "acting principal required for role assignment").WithUser(userID)
	}

	assignment := &RoleAssignment{
		UserID:     userID,
		RoleName:   roleName,
		AssignedBy: actorID,
		Note:       options.note,
		IsActive:   true,
	}

	err = s.Transaction(ctx, func(ctx context.Context) error {
		active, err := s.lockActiveAssignments(ctx, userID)
		if err != nil {
			return err
		}

		for i := range active {
			if active[i].RoleName == roleName {
				return NewError(ErrDuplicateAssignment, "user already holds this role").
					WithRole(roleName).
					WithUser(userID)
			}
		}

		priorContext := primaryRoleOf(active)
		makePrimary := options.primary || len(active) == 0
		if makePrimary && priorContext != "" {
			if err := s.clearContext(ctx, userID); err != nil {
				return err
			}
		}
		assignment.IsPrimary = makePrimary

		_, err = s.conn(ctx).NewInsert().Model(assignment).Returning("*").Exec(ctx)
		if err := dbkit.WithErr1(err, "CreateRoleAssignment").Err(); err != nil {
			// The partial unique index resolves the duplicate race: the
			// concurrent loser lands here.
			return storageError(err, "CreateRoleAssignment").WithRole(roleName).WithUser(userID)
		}

		newContext := priorContext
		if makePrimary {
			newContext = roleName
		}

		audit := GetAuditContext(ctx)
		return s.logAudit(ctx, &AuditEntry{
			ActorID:      actorID,
			UserID:       userID,
			Action:       AuditActionAssigned,
			RoleName:     roleName,
			Note:         options.note,
			PriorContext: priorContext,
			NewContext:   newContext,
			IPAddress:    audit.IPAddress,
			UserAgent:    audit.UserAgent,
			RequestID:    audit.RequestID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.resolver.Invalidate(userID)
	return assignment, nil
}

// Remove revokes a role from a user. The assignment row is deactivated in
// place, never deleted. When the removed role was the acting-as context, the
// context moves atomically to the highest-priority remaining active role
// (most recently assigned wins a priority tie), or clears when none remain.
//
// Example:
//
//	err := service.Remove(ctx, "u1", "Member", "admin1")
func (s *Service) Remove(ctx context.Context, userID, roleName, removedBy string) error {
	actorID := removedBy
	if actorID == "" {
		actorID = GetActorID(ctx)
	}
	if actorID == "" {
		return NewError(ErrNoActorID, "acting principal required for role removal").WithUser(userID)
	}

	err := s.Transaction(ctx, func(ctx context.Context) error {
		active, err := s.lockActiveAssignments(ctx, userID)
		if err != nil {
			return err
		}

		var target *RoleAssignment
		remaining := make([]RoleAssignment, 0, len(active))
		for i := range active {
			if active[i].RoleName == roleName {
				target = &active[i]
			} else {
				remaining = append(remaining, active[i])
			}
		}
		if target == nil {
			return NewError(ErrAssignmentNotFound, "user does not hold this role").
				WithRole(roleName).
				WithUser(userID)
		}

		now := time.Now()
		res, err := s.conn(ctx).NewUpdate().
			Model((*RoleAssignment)(nil)).
			Set("is_active = FALSE").
			Set("is_primary = FALSE").
			Set("removed_at = ?", now).
			Set("removed_by = ?", actorID).
			Where("id = ?", target.ID).
			Exec(ctx)
		if err := dbkit.WithErr(res, err, "DeactivateRoleAssignment").Err(); err != nil {
			return storageError(err, "DeactivateRoleAssignment").WithRole(roleName).WithUser(userID)
		}

		priorContext := primaryRoleOf(active)
		newContext := priorContext
		if target.IsPrimary {
			newContext = ""
			if next := s.nextContext(remaining); next != nil {
				res, err := s.conn(ctx).NewUpdate().
					Model((*RoleAssignment)(nil)).
					Set("is_primary = TRUE").
					Where("id = ?", next.ID).
					Exec(ctx)
				if err := dbkit.WithErr(res, err, "ReassignContext").Err(); err != nil {
					return storageError(err, "ReassignContext").WithUser(userID)
				}
				newContext = next.RoleName
			}
		}

		audit := GetAuditContext(ctx)
		return s.logAudit(ctx, &AuditEntry{
			ActorID:      actorID,
			UserID:       userID,
			Action:       AuditActionRemoved,
			RoleName:     roleName,
			PriorContext: priorContext,
			NewContext:   newContext,
			IPAddress:    audit.IPAddress,
			UserAgent:    audit.UserAgent,
			RequestID:    audit.RequestID,
		})
	})
	if err != nil {
		return err
	}

	s.resolver.Invalidate(userID)
	return nil
}

// AssignMultiple grants several roles in one transaction, with one audit
// entry per grant. Any failure rolls back every grant.
//
// Example:
//
//	err := service.AssignMultiple(ctx, "admin1", []grantkit.RoleGrant{
//	    {UserID: "u1", RoleName: "Member"},
//	    {UserID: "u2", RoleName: "Facilitator"},
//	})
func (s *Service) AssignMultiple(ctx context.Context, assignedBy string, grants []RoleGrant) error {
	return s.Transaction(ctx, func(ctx context.Context) error {
		for _, g := range grants {
			var opts []AssignOption
			if g.Note != "" {
				opts = append(opts, WithNote(g.Note))
			}
			if g.IsPrimary {
				opts = append(opts, WithPrimary())
			}
			if _, err := s.Assign(ctx, g.UserID, g.RoleName, assignedBy, opts...); err != nil {
				return err
			}
		}
		return nil
	})
}

// RoleGrant describes one assignment in a bulk operation.
type RoleGrant struct {
	UserID    string
	RoleName  string
	Note      string
	IsPrimary bool
}

// ============================================================================
// ASSIGNMENT READS
// ============================================================================

// GetUserRoles retrieves a user's active role assignments, oldest first.
func (s *Service) GetUserRoles(ctx context.Context, userID string) (*UserRoles, error) {
	var assignments []RoleAssignment
	err := s.conn(ctx).NewSelect().
		Model(&assignments).
		Where("user_id = ? AND is_active", userID).
		Order("created_at ASC").
		Scan(ctx)
	if err := dbkit.WithErr1(err, "GetUserRoles").Err(); err != nil {
		return nil, storageError(err, "GetUserRoles")
	}
	return NewUserRoles(userID, assignments), nil
}

// GetAssignmentHistory retrieves every assignment row for a user, active and
// removed, newest first. Removed rows keep their provenance and removal
// stamps; re-assignment after removal produces a distinct row.
func (s *Service) GetAssignmentHistory(ctx context.Context, userID string) ([]RoleAssignment, error) {
	var assignments []RoleAssignment
	err := s.conn(ctx).NewSelect().
		Model(&assignments).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err := dbkit.WithErr1(err, "GetAssignmentHistory").Err(); err != nil {
		return nil, storageError(err, "GetAssignmentHistory")
	}
	return assignments, nil
}

// GetRoleHolders retrieves all users actively holding a role.
func (s *Service) GetRoleHolders(ctx context.Context, roleName string) ([]RoleAssignment, error) {
	var assignments []RoleAssignment
	err := s.conn(ctx).NewSelect().
		Model(&assignments).
		Where("role_name = ? AND is_active", roleName).
		Order("created_at ASC").
		Scan(ctx)
	if err := dbkit.WithErr1(err, "GetRoleHolders").Err(); err != nil {
		return nil, storageError(err, "GetRoleHolders")
	}
	return assignments, nil
}

// CheckExists reports whether a user actively holds a role, without loading
// the full assignment set.
func (s *Service) CheckExists(ctx context.Context, userID, roleName string) bool {
	exists, err := dbkit.Exists[RoleAssignment](ctx, s.conn(ctx), func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("user_id = ? AND role_name = ? AND is_active", userID, roleName)
	})
	if err != nil {
		return false
	}
	return exists
}

// CountActiveAssignments returns the number of roles a user actively holds.
func (s *Service) CountActiveAssignments(ctx context.Context, userID string) (int, error) {
	n, err := dbkit.Count[RoleAssignment](ctx, s.conn(ctx), func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("user_id = ? AND is_active", userID)
	})
	if err != nil {
		return 0, storageError(err, "CountActiveAssignments")
	}
	return n, nil
}

// ============================================================================
// INTERNAL HELPERS
// ============================================================================

// lockActiveAssignments serializes mutators for one user and returns the
// active rows. FOR UPDATE alone is not enough when the user has no rows yet
// (two first-ever assignments would each lock nothing), so mutators first
// take a per-user transaction-scoped advisory lock. The partial unique
// indexes remain the backstop, so multiple service instances stay correct.
func (s *Service) lockActiveAssignments(ctx context.Context, userID string) ([]RoleAssignment, error) {
	if _, err := s.conn(ctx).NewRaw(
		"SELECT pg_advisory_xact_lock(hashtext(?))", userID,
	).Exec(ctx); err != nil {
		return nil, storageError(err, "LockActiveAssignments").WithUser(userID)
	}

	var assignments []RoleAssignment
	err := s.conn(ctx).NewSelect().
		Model(&assignments).
		Where("user_id = ? AND is_active", userID).
		Order("created_at ASC").
		For("UPDATE").
		Scan(ctx)
	if err := dbkit.WithErr1(err, "LockActiveAssignments").Err(); err != nil {
		return nil, storageError(err, "LockActiveAssignments")
	}
	return assignments, nil
}

// clearContext demotes whichever active assignment currently carries the
// acting-as flag.
func (s *Service) clearContext(ctx context.Context, userID string) error {
	res, err := s.conn(ctx).NewUpdate().
		Model((*RoleAssignment)(nil)).
		Set("is_primary = FALSE").
		Where("user_id = ? AND is_active AND is_primary", userID).
		Exec(ctx)
	if err := dbkit.WithErr(res, err, "ClearContext").Err(); err != nil {
		return storageError(err, "ClearContext").WithUser(userID)
	}
	return nil
}

// nextContext picks which remaining role inherits the context after the
// current one is removed: highest catalog priority, most recently assigned
// on a tie.
func (s *Service) nextContext(remaining []RoleAssignment) *RoleAssignment {
	var best *RoleAssignment
	var bestPriority int
	for i := range remaining {
		p := s.catalog.rolePriority(remaining[i].RoleName)
		if best == nil || p > bestPriority ||
			(p == bestPriority && remaining[i].CreatedAt.After(best.CreatedAt)) {
			best = &remaining[i]
			bestPriority = p
		}
	}
	return best
}

func primaryRoleOf(assignments []RoleAssignment) string {
	for i := range assignments {
		if assignments[i].IsPrimary {
			return assignments[i].RoleName
		}
	}
	return ""
}
