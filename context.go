package grantkit

import (
	"context"
)

type contextKey string

const (
	contextKeyUserID    contextKey = "grantkit:user_id"
	contextKeyActorID   contextKey = "grantkit:actor_id"
	contextKeyIPAddress contextKey = "grantkit:ip_address"
	contextKeyUserAgent contextKey = "grantkit:user_agent"
	contextKeyRequestID contextKey = "grantkit:request_id"
	contextKeyChecker   contextKey = "grantkit:checker"
)

func stringValue(ctx context.Context, key contextKey) string {
	s, _ := ctx.Value(key).(string)
	return s
}

// WithUserID stores the subject user ID, the user whose permissions are
// being checked.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKeyUserID, userID)
}

// GetUserID returns the subject user ID, or "" if none was stored.
func GetUserID(ctx context.Context) string {
	return stringValue(ctx, contextKeyUserID)
}

// WithActorID stores the acting principal ID. Mutators fall back to it when
// called without an explicit actor. It differs from the subject user ID when
// an administrator acts on someone else's roles.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, contextKeyActorID, actorID)
}

// GetActorID returns the acting principal ID, falling back to the subject
// user ID when no actor was stored.
func GetActorID(ctx context.Context) string {
	if actor := stringValue(ctx, contextKeyActorID); actor != "" {
		return actor
	}
	return GetUserID(ctx)
}

// WithIPAddress stores the client IP for audit entries.
func WithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKeyIPAddress, ip)
}

func GetIPAddress(ctx context.Context) string {
	return stringValue(ctx, contextKeyIPAddress)
}

// WithUserAgent stores the client user agent for audit entries.
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, contextKeyUserAgent, ua)
}

func GetUserAgent(ctx context.Context) string {
	return stringValue(ctx, contextKeyUserAgent)
}

// WithRequestID stores a correlation ID for audit entries.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, contextKeyRequestID)
}

// WithChecker stores a resolved Checker. The LoadChecker middleware sets
// this so handlers can answer permission questions without another read.
func WithChecker(ctx context.Context, checker *Checker) context.Context {
	return context.WithValue(ctx, contextKeyChecker, checker)
}

// GetChecker returns the stored Checker, or nil when none was stored.
func GetChecker(ctx context.Context) *Checker {
	c, _ := ctx.Value(contextKeyChecker).(*Checker)
	return c
}

// AuditContext bundles the request-scoped fields that end up on audit
// entries.
type AuditContext struct {
	ActorID   string
	IPAddress string
	UserAgent string
	RequestID string
}

// GetAuditContext collects the stored audit fields in one call.
func GetAuditContext(ctx context.Context) AuditContext {
	return AuditContext{
		ActorID:   GetActorID(ctx),
		IPAddress: GetIPAddress(ctx),
		UserAgent: GetUserAgent(ctx),
		RequestID: GetRequestID(ctx),
	}
}

// WithAuditContext stores every non-empty audit field. Empty fields leave
// any previously stored value in place.
func WithAuditContext(ctx context.Context, ac AuditContext) context.Context {
	if ac.ActorID != "" {
		ctx = WithActorID(ctx, ac.ActorID)
	}
	if ac.IPAddress != "" {
		ctx = WithIPAddress(ctx, ac.IPAddress)
	}
	if ac.UserAgent != "" {
		ctx = WithUserAgent(ctx, ac.UserAgent)
	}
	if ac.RequestID != "" {
		ctx = WithRequestID(ctx, ac.RequestID)
	}
	return ctx
}
