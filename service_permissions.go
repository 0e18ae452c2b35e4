package grantkit

import "context"

// ============================================================================
// PERMISSION CHECKING
// ============================================================================

// GetUserPermissions returns a user's effective permission set: the union of
// the grants of every role they actively hold, sorted. The acting-as context
// never narrows this set.
//
// Example:
//
//	perms, err := service.GetUserPermissions(ctx, "u1")
func (s *Service) GetUserPermissions(ctx context.Context, userID string) ([]string, error) {
	roles, err := s.GetUserRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.resolver.Resolve(userID, roles.Assignments), nil
}

// HasPermission checks if a user holds a permission. It returns false, never
// an error, for a permission the user does not hold; read failures also
// report false so a storage fault can never grant access.
//
// Example:
//
//	if service.HasPermission(ctx, userID, "circles:create") {
//	    // allowed
//	}
func (s *Service) HasPermission(ctx context.Context, userID, permission string) bool {
	perms, err := s.GetUserPermissions(ctx, userID)
	if err != nil {
		return false
	}
	return s.matcher.MatchAny(perms, permission)
}

// RequirePermission is the guard form of HasPermission, meant to be the
// first call inside an externally-exposed action, before any side-effecting
// work. It fails with ErrPermissionDenied and succeeds silently otherwise.
//
// Example:
//
//	if err := service.RequirePermission(ctx, userID, "circles:create"); err != nil {
//	    return err
//	}
//	// ... side effects ...
func (s *Service) RequirePermission(ctx context.Context, userID, permission string) error {
	if !s.HasPermission(ctx, userID, permission) {
		return NewError(ErrPermissionDenied, "").
			WithUser(userID).
			WithPermission(permission)
	}
	return nil
}

// HasRole checks if a user actively holds a role.
func (s *Service) HasRole(ctx context.Context, userID, roleName string) bool {
	roles, err := s.GetUserRoles(ctx, userID)
	if err != nil {
		return false
	}
	return roles.HasRole(roleName)
}

// GetChecker creates a point-in-time Checker for a user. It can be stored in
// context for repeated checks in handlers without further queries.
func (s *Service) GetChecker(ctx context.Context, userID string) (*Checker, error) {
	roles, err := s.GetUserRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	perms := s.resolver.Resolve(userID, roles.Assignments)
	return NewChecker(userID, roles, perms), nil
}

// GetCheckerFromContext creates a Checker using the user ID from context.
func (s *Service) GetCheckerFromContext(ctx context.Context) (*Checker, error) {
	userID := GetUserID(ctx)
	if userID == "" {
		return nil, ErrNoUserID
	}
	return s.GetChecker(ctx, userID)
}
