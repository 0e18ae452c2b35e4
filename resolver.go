package grantkit

import (
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Resolver computes a user's effective permission set: the union of the
// grants of every role the user actively holds, regardless of which one is
// the acting-as context.
//
// Resolved sets are cached per user, keyed by a fingerprint of the
// assignment set they were computed from. A cached entry is only served when
// the freshly-read assignments still fingerprint the same, so a read
// reflecting a different committed state (including a removal committed by
// another service instance) always recomputes. The cache can never serve
// permissions the current assignment set does not entitle; Invalidate and
// InvalidateAll just free entries early.
type Resolver struct {
	catalog *Catalog

	mu    sync.RWMutex
	cache map[string]resolverEntry
}

type resolverEntry struct {
	fingerprint string
	permissions []string
}

// NewResolver creates a resolver backed by a catalog.
func NewResolver(catalog *Catalog) *Resolver {
	return &Resolver{
		catalog: catalog,
		cache:   make(map[string]resolverEntry),
	}
}

// Resolve returns the effective permission names for a user given their
// active assignments. Assignments referencing roles missing from the catalog
// contribute nothing: a dangling reference fails safe.
//
// The returned slice is the caller's to keep; mutating it does not affect
// the cache.
func (r *Resolver) Resolve(userID string, assignments []RoleAssignment) []string {
	fp := assignmentFingerprint(assignments)

	r.mu.RLock()
	entry, ok := r.cache[userID]
	r.mu.RUnlock()
	if ok && entry.fingerprint == fp {
		return clonePermissions(entry.permissions)
	}

	perms := r.compute(assignments)

	r.mu.Lock()
	r.cache[userID] = resolverEntry{fingerprint: fp, permissions: perms}
	r.mu.Unlock()

	return clonePermissions(perms)
}

func (r *Resolver) compute(assignments []RoleAssignment) []string {
	grants := make([][]string, 0, len(assignments))
	for _, a := range assignments {
		grants = append(grants, r.catalog.rolePermissions(a.RoleName))
	}
	return UnionPermissions(grants...)
}

// assignmentFingerprint identifies an active assignment set. Assignment rows
// are immutable in (id, role, created_at) and removal drops the row from the
// active set, so two reads fingerprint equal exactly when they saw the same
// committed assignments.
func assignmentFingerprint(assignments []RoleAssignment) string {
	keys := make([]string, 0, len(assignments))
	for _, a := range assignments {
		keys = append(keys, a.ID+"|"+a.RoleName+"|"+strconv.FormatInt(a.CreatedAt.UnixNano(), 10))
	}
	sort.Strings(keys)
	return strings.Join(keys, ";")
}

func clonePermissions(perms []string) []string {
	if len(perms) == 0 {
		return nil
	}
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// Invalidate drops the cached permission set for a user. Mutators call this
// after commit to free the entry early; correctness does not depend on it.
func (r *Resolver) Invalidate(userID string) {
	r.mu.Lock()
	delete(r.cache, userID)
	r.mu.Unlock()
}

// InvalidateAll drops every cached permission set, used when the catalog
// itself changes.
func (r *Resolver) InvalidateAll() {
	r.mu.Lock()
	r.cache = make(map[string]resolverEntry)
	r.mu.Unlock()
}
