package grantkit

// Checker is a point-in-time permission view for one user: their active
// roles, the resolved additive permission set, and the acting-as context.
// It is typically created by the Service and stored in context for use in
// handlers. Checks against a Checker never hit the database.
type Checker struct {
	userID      string
	roles       *UserRoles
	permissions []string
}

// NewChecker creates a Checker from a user's active roles and resolved
// permission set.
func NewChecker(userID string, roles *UserRoles, permissions []string) *Checker {
	return &Checker{
		userID:      userID,
		roles:       roles,
		permissions: permissions,
	}
}

// UserID returns the user ID this checker is for.
func (c *Checker) UserID() string {
	return c.userID
}

// HasRole checks if the user actively holds a role.
//
// Example:
//
//	if checker.HasRole("Facilitator") {
//	    // show facilitation tools
//	}
func (c *Checker) HasRole(role string) bool {
	return c.roles.HasRole(role)
}

// HasAnyRole checks if the user holds any of the specified roles.
func (c *Checker) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if c.roles.HasRole(role) {
			return true
		}
	}
	return false
}

// HasAllRoles checks if the user holds all of the specified roles.
func (c *Checker) HasAllRoles(roles ...string) bool {
	for _, role := range roles {
		if !c.roles.HasRole(role) {
			return false
		}
	}
	return true
}

// HasPermission checks the additive permission set for a single permission.
// Returns false, never an error, when the permission is not held.
//
// Example:
//
//	if checker.HasPermission("circles:create") {
//	    // user may create circles
//	}
func (c *Checker) HasPermission(permission string) bool {
	return MatchAnyPermission(c.permissions, permission)
}

// HasAnyPermission checks if the user holds any of the specified permissions.
func (c *Checker) HasAnyPermission(permissions ...string) bool {
	for _, perm := range permissions {
		if c.HasPermission(perm) {
			return true
		}
	}
	return false
}

// HasAllPermissions checks if the user holds all of the specified permissions.
func (c *Checker) HasAllPermissions(permissions ...string) bool {
	for _, perm := range permissions {
		if !c.HasPermission(perm) {
			return false
		}
	}
	return true
}

// Roles returns the names of all actively held roles, sorted.
func (c *Checker) Roles() []string {
	return c.roles.RoleNames()
}

// Permissions returns the resolved additive permission set, sorted.
func (c *Checker) Permissions() []string {
	return c.permissions
}

// ActingAs returns the role name of the current acting-as context, or ""
// when the user has no context. Context is a display and audit concern only;
// it never narrows HasPermission.
func (c *Checker) ActingAs() string {
	return c.roles.PrimaryRole()
}

// IsEmpty returns true if the user holds no active roles.
func (c *Checker) IsEmpty() bool {
	return c.roles.IsEmpty()
}
