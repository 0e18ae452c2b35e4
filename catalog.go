package grantkit

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fernandezvara/dbkit"
)

// Catalog holds all permission and role definitions. It is the read surface
// for the authorization hot path; writes go through the administrative
// Permission/DefineRole/DisableRole + SyncCatalog path, which is the only
// place roles are created or changed. The catalog is open-ended: roles and
// permissions are data, not code.
type Catalog struct {
	mu          sync.RWMutex
	permissions map[string]*Permission
	roles       map[string]*RoleDefinition
}

// RoleDefinition is the builder for a role within a Catalog.
type RoleDefinition struct {
	name        string
	description string
	priority    int
	permissions []string
	disabled    bool
	catalog     *Catalog
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		permissions: make(map[string]*Permission),
		roles:       make(map[string]*RoleDefinition),
	}
}

// Permission defines a permission. The name must be "resource:action".
// Malformed names are rejected at Validate/SyncCatalog time, not here, so
// definitions can be chained fluently.
//
// Example:
//
//	catalog.Permission("circles:create", "Create a new circle").
//	    Permission("circles:join", "Join an existing circle")
func (c *Catalog) Permission(name, description string) *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()

	resource, action, _ := strings.Cut(name, ":")
	c.permissions[name] = &Permission{
		Name:        name,
		Resource:    resource,
		Action:      action,
		Description: description,
	}
	return c
}

// DefineRole starts defining a role. Returns a RoleDefinition builder.
//
// Example:
//
//	catalog.DefineRole("Member").
//	    Priority(10).
//	    Describe("Regular participant").
//	    Grant("circles:create", "circles:join")
func (c *Catalog) DefineRole(name string) *RoleDefinition {
	c.mu.Lock()
	defer c.mu.Unlock()

	role := &RoleDefinition{
		name:    name,
		catalog: c,
	}
	c.roles[name] = role
	return role
}

// Priority sets the role's seniority. Higher priority wins context
// reassignment when the acting-as role is removed.
func (r *RoleDefinition) Priority(p int) *RoleDefinition {
	r.priority = p
	return r
}

// Describe sets the role's display description.
func (r *RoleDefinition) Describe(description string) *RoleDefinition {
	r.description = description
	return r
}

// Grant adds permission names to the role. Duplicates collapse; membership
// is a set.
func (r *RoleDefinition) Grant(permissions ...string) *RoleDefinition {
	for _, p := range permissions {
		found := false
		for _, existing := range r.permissions {
			if existing == p {
				found = true
				break
			}
		}
		if !found {
			r.permissions = append(r.permissions, p)
		}
	}
	return r
}

// DefineRole continues defining roles on the catalog (fluent API).
func (r *RoleDefinition) DefineRole(name string) *RoleDefinition {
	return r.catalog.DefineRole(name)
}

// Permission continues defining permissions on the catalog (fluent API).
func (r *RoleDefinition) Permission(name, description string) *Catalog {
	return r.catalog.Permission(name, description)
}

// DisableRole soft-retires a role. Existing assignments keep resolving; new
// assignments fail with ErrRoleDisabled. Roles are never hard-deleted while
// assignments reference them.
func (c *Catalog) DisableRole(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	role, ok := c.roles[name]
	if !ok {
		return NewError(ErrRoleNotFound, name).WithRole(name)
	}
	role.disabled = true
	return nil
}

// GetRole returns a role by name.
func (c *Catalog) GetRole(name string) (Role, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	role, ok := c.roles[name]
	if !ok {
		return Role{}, NewError(ErrRoleNotFound, name).WithRole(name)
	}
	return role.toModel(), nil
}

// GetPermission returns a permission by name.
func (c *Catalog) GetPermission(name string) (Permission, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	perm, ok := c.permissions[name]
	if !ok {
		return Permission{}, NewError(ErrPermissionNotFound, name).WithPermission(name)
	}
	return *perm, nil
}

// ListRoles returns all roles ordered by priority, most senior first.
func (c *Catalog) ListRoles() []Role {
	c.mu.RLock()
	defer c.mu.RUnlock()

	roles := make([]Role, 0, len(c.roles))
	for _, r := range c.roles {
		roles = append(roles, r.toModel())
	}
	sort.Slice(roles, func(i, j int) bool {
		if roles[i].Priority != roles[j].Priority {
			return roles[i].Priority > roles[j].Priority
		}
		return roles[i].Name < roles[j].Name
	})
	return roles
}

// ListPermissions returns all permissions ordered by name.
func (c *Catalog) ListPermissions() []Permission {
	c.mu.RLock()
	defer c.mu.RUnlock()

	perms := make([]Permission, 0, len(c.permissions))
	for _, p := range c.permissions {
		perms = append(perms, *p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].Name < perms[j].Name })
	return perms
}

// rolePermissions returns the permission names granted by a role, or nil for
// unknown roles. Unknown roles contribute nothing, so a dangling assignment
// fails safe rather than granting anything.
func (c *Catalog) rolePermissions(name string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	role, ok := c.roles[name]
	if !ok {
		return nil
	}
	return role.permissions
}

// rolePriority returns a role's priority, or the lowest possible value for
// unknown roles so they never win context reassignment.
func (c *Catalog) rolePriority(name string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	role, ok := c.roles[name]
	if !ok {
		return math.MinInt
	}
	return role.priority
}

// Validate checks catalog integrity: every permission name is well-formed
// and every role references only defined permissions. A role naming a
// nonexistent permission is a data-integrity fault and blocks the whole
// write with ErrInvalidCatalogReference.
func (c *Catalog) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for name := range c.permissions {
		if err := ValidatePermissionName(name); err != nil {
			return err
		}
	}
	for roleName, role := range c.roles {
		for _, perm := range role.permissions {
			if isWildcardPattern(perm) {
				continue
			}
			if _, ok := c.permissions[perm]; !ok {
				return NewError(ErrInvalidCatalogReference,
					fmt.Sprintf("role %q grants undefined permission %q", roleName, perm)).
					WithRole(roleName).
					WithPermission(perm)
			}
		}
	}
	return nil
}

// SyncCatalog validates the catalog and persists it, upserting every
// permission and role in one transaction. This is the administrative write
// path; it never runs on the authorization hot path.
func (s *Service) SyncCatalog(ctx context.Context) error {
	if err := s.catalog.Validate(); err != nil {
		return err
	}

	perms := s.catalog.ListPermissions()
	roles := s.catalog.ListRoles()

	err := s.Transaction(ctx, func(ctx context.Context) error {
		for i := range perms {
			_, err := s.conn(ctx).NewInsert().
				Model(&perms[i]).
				On("CONFLICT (name) DO UPDATE").
				Set("description = EXCLUDED.description").
				Exec(ctx)
			if err := dbkit.WithErr1(err, "SyncCatalogPermission").Err(); err != nil {
				return storageError(err, "SyncCatalogPermission")
			}
		}
		for i := range roles {
			_, err := s.conn(ctx).NewInsert().
				Model(&roles[i]).
				On("CONFLICT (name) DO UPDATE").
				Set("description = EXCLUDED.description").
				Set("priority = EXCLUDED.priority").
				Set("permissions = EXCLUDED.permissions").
				Set("disabled = EXCLUDED.disabled").
				Set("updated_at = current_timestamp").
				Exec(ctx)
			if err := dbkit.WithErr1(err, "SyncCatalogRole").Err(); err != nil {
				return storageError(err, "SyncCatalogRole")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.resolver.InvalidateAll()
	return nil
}

// LoadCatalog replaces the in-memory catalog with the persisted definitions.
// Hosts that seed the catalog elsewhere call this at startup instead of
// rebuilding the definitions in code.
func (s *Service) LoadCatalog(ctx context.Context) error {
	var perms []Permission
	if err := dbkit.WithErr1(s.db.NewSelect().Model(&perms).Scan(ctx), "LoadCatalogPermissions").Err(); err != nil {
		return storageError(err, "LoadCatalogPermissions")
	}
	var roles []Role
	if err := dbkit.WithErr1(s.db.NewSelect().Model(&roles).Scan(ctx), "LoadCatalogRoles").Err(); err != nil {
		return storageError(err, "LoadCatalogRoles")
	}

	c := s.catalog
	c.mu.Lock()
	defer c.mu.Unlock()

	c.permissions = make(map[string]*Permission, len(perms))
	for i := range perms {
		c.permissions[perms[i].Name] = &perms[i]
	}
	c.roles = make(map[string]*RoleDefinition, len(roles))
	for i := range roles {
		c.roles[roles[i].Name] = &RoleDefinition{
			name:        roles[i].Name,
			description: roles[i].Description,
			priority:    roles[i].Priority,
			permissions: roles[i].Permissions,
			disabled:    roles[i].Disabled,
			catalog:     c,
		}
	}

	s.resolver.InvalidateAll()
	return nil
}

func (r *RoleDefinition) toModel() Role {
	perms := make([]string, len(r.permissions))
	copy(perms, r.permissions)
	return Role{
		Name:        r.name,
		Description: r.description,
		Priority:    r.priority,
		Permissions: perms,
		Disabled:    r.disabled,
		CreatedAt:   time.Time{},
	}
}
