package grantkit

import (
	"context"
	"errors"

	"github.com/fernandezvara/dbkit"
)

// ============================================================================
// ACTING-AS CONTEXT
// ============================================================================

// SwitchContext moves a user's acting-as context to another role they
// actively hold. Switching into a role the user does not hold — including
// one that was removed — fails with ErrRoleNotAssigned and changes nothing;
// it never silently no-ops. The error carries no more information than a
// catalog miss would, so callers cannot probe which roles exist.
//
// Context affects display and audit semantics only: the additive permission
// set is unchanged by a switch.
//
// Example:
//
//	err := service.SwitchContext(ctx, "u1", "Facilitator")
func (s *Service) SwitchContext(ctx context.Context, userID, roleName string) error {
	actorID := GetActorID(ctx)
	if actorID == "" {
		actorID = userID
	}

	err := s.Transaction(ctx, func(ctx context.Context) error {
		active, err := s.lockActiveAssignments(ctx, userID)
		if err != nil {
			return err
		}

		var target *RoleAssignment
		for i := range active {
			if active[i].RoleName == roleName {
				target = &active[i]
				break
			}
		}
		if target == nil {
			return NewError(ErrRoleNotAssigned, "cannot switch context").
				WithRole(roleName).
				WithUser(userID)
		}

		priorContext := primaryRoleOf(active)
		if !target.IsPrimary {
			if priorContext != "" {
				if err := s.clearContext(ctx, userID); err != nil {
					return err
				}
			}
			res, err := s.conn(ctx).NewUpdate().
				Model((*RoleAssignment)(nil)).
				Set("is_primary = TRUE").
				Where("id = ?", target.ID).
				Exec(ctx)
			if err := dbkit.WithErr(res, err, "SwitchContext").Err(); err != nil {
				return storageError(err, "SwitchContext").WithRole(roleName).WithUser(userID)
			}
		}

		audit := GetAuditContext(ctx)
		return s.logAudit(ctx, &AuditEntry{
			ActorID:      actorID,
			UserID:       userID,
			Action:       AuditActionSwitched,
			RoleName:     roleName,
			PriorContext: priorContext,
			NewContext:   roleName,
			IPAddress:    audit.IPAddress,
			UserAgent:    audit.UserAgent,
			RequestID:    audit.RequestID,
		})
	})

	if err != nil && errors.Is(err, ErrRoleNotAssigned) && s.auditDeniedSwitches {
		// The denied attempt is recorded outside the rolled-back transaction.
		// Best effort: a failure to record must not mask the denial.
		audit := GetAuditContext(ctx)
		_ = s.logAudit(ctx, &AuditEntry{
			ActorID:   actorID,
			UserID:    userID,
			Action:    AuditActionSwitchDenied,
			RoleName:  roleName,
			IPAddress: audit.IPAddress,
			UserAgent: audit.UserAgent,
			RequestID: audit.RequestID,
		})
	}

	return err
}

// CurrentContext returns the role the user is currently acting as, or ""
// when the user has no context.
//
// Example:
//
//	role, err := service.CurrentContext(ctx, "u1")
//	if role == "" {
//	    // no context
//	}
func (s *Service) CurrentContext(ctx context.Context, userID string) (string, error) {
	var assignment RoleAssignment
	err := dbkit.WithErr1(s.conn(ctx).NewSelect().
		Model(&assignment).
		Where("user_id = ? AND is_active AND is_primary", userID).
		Limit(1).
		Scan(ctx), "CurrentContext").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return "", nil
		}
		return "", storageError(err, "CurrentContext")
	}
	return assignment.RoleName, nil
}
