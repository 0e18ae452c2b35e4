package grantkit

import (
	"sort"
	"strings"
)

// PermissionMatcher handles permission matching with wildcard support.
//
// Supported patterns:
//   - "*" matches all permissions
//   - "resource:*" matches all actions on a resource (e.g. "circles:*" matches "circles:create")
//   - "*:action" matches an action on all resources (e.g. "*:read" matches "circles:read")
//   - "resource:action" matches exactly
//
// Plain permission names behave as opaque tokens: an exact grant matches
// only itself.
type PermissionMatcher struct{}

// NewPermissionMatcher creates a new PermissionMatcher.
func NewPermissionMatcher() *PermissionMatcher {
	return &PermissionMatcher{}
}

// Match checks if a granted pattern matches a required permission.
//
// Examples:
//
//	Match("*", "circles:create")              // true
//	Match("circles:*", "circles:create")      // true
//	Match("*:read", "circles:read")           // true
//	Match("circles:create", "circles:create") // true
//	Match("circles:create", "circles:join")   // false
func (pm *PermissionMatcher) Match(pattern, permission string) bool {
	if pattern == permission {
		return true
	}
	if pattern == "*" {
		return true
	}

	patResource, patAction, ok := strings.Cut(pattern, ":")
	if !ok {
		return false
	}
	resource, action, ok := strings.Cut(permission, ":")
	if !ok {
		return false
	}

	if patResource != "*" && patResource != resource {
		return false
	}
	if patAction != "*" && patAction != action {
		return false
	}
	return true
}

// MatchAny checks if any of the granted patterns match the required permission.
func (pm *PermissionMatcher) MatchAny(patterns []string, permission string) bool {
	for _, pattern := range patterns {
		if pm.Match(pattern, permission) {
			return true
		}
	}
	return false
}

// Validate checks if a permission name is well-formed: "*" or a
// "resource:action" pair of identifiers, either side optionally "*".
func (pm *PermissionMatcher) Validate(permission string) error {
	if permission == "" {
		return NewError(ErrInvalidPermission, "permission cannot be empty")
	}
	if permission == "*" {
		return nil
	}

	resource, action, ok := strings.Cut(permission, ":")
	if !ok {
		return NewError(ErrInvalidPermission, "permission must be resource:action").
			WithPermission(permission)
	}
	for _, part := range []string{resource, action} {
		if part == "" {
			return NewError(ErrInvalidPermission, "permission parts cannot be empty").
				WithPermission(permission)
		}
		if part == "*" {
			continue
		}
		for _, c := range part {
			if !isValidPermissionChar(c) {
				return NewError(ErrInvalidPermission, "permission contains invalid character").
					WithPermission(permission)
			}
		}
	}
	return nil
}

func isValidPermissionChar(c rune) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '_'
}

// isWildcardPattern reports whether a grant is a wildcard rather than the
// name of a concrete permission.
func isWildcardPattern(p string) bool {
	return strings.Contains(p, "*")
}

// DefaultMatcher is the default permission matcher instance.
var DefaultMatcher = NewPermissionMatcher()

// MatchPermission is a convenience function using the default matcher.
func MatchPermission(pattern, permission string) bool {
	return DefaultMatcher.Match(pattern, permission)
}

// MatchAnyPermission is a convenience function using the default matcher.
func MatchAnyPermission(patterns []string, permission string) bool {
	return DefaultMatcher.MatchAny(patterns, permission)
}

// ValidatePermissionName is a convenience function using the default matcher.
func ValidatePermissionName(permission string) error {
	return DefaultMatcher.Validate(permission)
}

// UnionPermissions computes the additive permission set for a list of role
// permission grants: the deduplicated union, sorted. No role subtracts or
// overrides another's grants; holding more roles can only enlarge the set.
func UnionPermissions(grants ...[]string) []string {
	set := make(map[string]struct{})
	for _, g := range grants {
		for _, p := range g {
			set[p] = struct{}{}
		}
	}
	result := make([]string, 0, len(set))
	for p := range set {
		result = append(result, p)
	}
	sort.Strings(result)
	return result
}
