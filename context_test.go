package grantkit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestContextUserID tests user ID context plumbing
func TestContextUserID(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", GetUserID(ctx))

	ctx = WithUserID(ctx, "user-1")
	assert.Equal(t, "user-1", GetUserID(ctx))
}

// TestContextActorID tests actor ID plumbing and the user ID fallback
func TestContextActorID(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", GetActorID(ctx))

	// Without an explicit actor the user is acting on themselves.
	ctx = WithUserID(ctx, "user-1")
	assert.Equal(t, "user-1", GetActorID(ctx))

	ctx = WithActorID(ctx, "admin-1")
	assert.Equal(t, "admin-1", GetActorID(ctx))
}

// TestContextRequestMetadata tests IP, user agent and request ID plumbing
func TestContextRequestMetadata(t *testing.T) {
	ctx := context.Background()
	ctx = WithIPAddress(ctx, "203.0.113.7")
	ctx = WithUserAgent(ctx, "test-agent/1.0")
	ctx = WithRequestID(ctx, "req-42")

	assert.Equal(t, "203.0.113.7", GetIPAddress(ctx))
	assert.Equal(t, "test-agent/1.0", GetUserAgent(ctx))
	assert.Equal(t, "req-42", GetRequestID(ctx))
}

// TestContextChecker tests storing and retrieving a Checker
func TestContextChecker(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetChecker(ctx))

	checker := NewChecker("user-1", NewUserRoles("user-1", nil), nil)
	ctx = WithChecker(ctx, checker)
	assert.Same(t, checker, GetChecker(ctx))
	assert.Same(t, checker, GetChecker(ctx))
}

// TestCheckerTypeMismatch tests that a foreign value under the checker key
// is ignored rather than panicking
func TestCheckerTypeMismatch(t *testing.T) {
	ctx := context.WithValue(context.Background(), contextKeyChecker, "not a checker")
	require.Nil(t, GetChecker(ctx))
}

// TestAuditContext tests the aggregated audit context helpers
func TestAuditContext(t *testing.T) {
	ctx := context.Background()
	ctx = WithAuditContext(ctx, AuditContext{
		ActorID:   "admin-1",
		IPAddress: "203.0.113.7",
		UserAgent: "test-agent/1.0",
		RequestID: "req-42",
	})

	ac := GetAuditContext(ctx)
	assert.Equal(t, "admin-1", ac.ActorID)
	assert.Equal(t, "203.0.113.7", ac.IPAddress)
	assert.Equal(t, "test-agent/1.0", ac.UserAgent)
	assert.Equal(t, "req-42", ac.RequestID)

	// Individual getters see the same values.
	assert.Equal(t, "admin-1", GetActorID(ctx))
	assert.Equal(t, "req-42", GetRequestID(ctx))
}
