package grantkit

import (
	"net/http"
)

// Middleware provides HTTP middleware for guarding handlers with permission
// checks. The guard runs before the wrapped handler, so a denied request
// never reaches side-effecting code.
type Middleware struct {
	service      *Service
	getUserID    func(*http.Request) string
	errorHandler func(http.ResponseWriter, *http.Request, error)
}

// MiddlewareOption configures the Middleware.
type MiddlewareOption func(*Middleware)

// NewMiddleware creates a new Middleware instance.
//
// Example:
//
//	mw := grantkit.NewMiddleware(service,
//	    grantkit.WithUserIDExtractor(func(r *http.Request) string {
//	        return r.Context().Value("user_id").(string)
//	    }),
//	)
func NewMiddleware(service *Service, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		service:      service,
		getUserID:    defaultGetUserID,
		errorHandler: defaultErrorHandler,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// WithUserIDExtractor sets a custom function to extract user ID from request.
func WithUserIDExtractor(fn func(*http.Request) string) MiddlewareOption {
	return func(m *Middleware) {
		m.getUserID = fn
	}
}

// WithErrorHandler sets a custom error handler for middleware.
func WithErrorHandler(fn func(http.ResponseWriter, *http.Request, error)) MiddlewareOption {
	return func(m *Middleware) {
		m.errorHandler = fn
	}
}

func defaultGetUserID(r *http.Request) string {
	return GetUserID(r.Context())
}

// defaultErrorHandler keeps authorization failures and catalog misses
// indistinguishable on the wire, so callers cannot discover which roles or
// permissions exist.
func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	if IsPermissionDenied(err) || IsNotFound(err) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// RequirePermission creates middleware that requires a permission before the
// handler runs.
//
// Example:
//
//	router.With(mw.RequirePermission("circles:create")).
//	    Post("/circles", createCircleHandler)
func (m *Middleware) RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID := m.getUserID(r)
			if userID == "" {
				m.errorHandler(w, r, ErrNoUserID)
				return
			}

			if err := m.service.RequirePermission(ctx, userID, permission); err != nil {
				m.errorHandler(w, r, err)
				return
			}

			// Add checker to context for use in handlers
			checker, err := m.service.GetChecker(ctx, userID)
			if err == nil {
				ctx = WithChecker(ctx, checker)
				r = r.WithContext(ctx)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAnyPermission creates middleware that requires any of the specified
// permissions.
//
// Example:
//
//	router.With(mw.RequireAnyPermission("circles:update", "circles:moderate")).
//	    Patch("/circles/{id}", updateCircleHandler)
func (m *Middleware) RequireAnyPermission(permissions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID := m.getUserID(r)
			if userID == "" {
				m.errorHandler(w, r, ErrNoUserID)
				return
			}

			checker, err := m.service.GetChecker(ctx, userID)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}

			if !checker.HasAnyPermission(permissions...) {
				m.errorHandler(w, r, NewError(ErrPermissionDenied, "").WithUser(userID))
				return
			}

			ctx = WithChecker(ctx, checker)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole creates middleware that requires an actively held role.
//
// Example:
//
//	router.With(mw.RequireRole("Admin")).
//	    Get("/admin/audit", auditHandler)
func (m *Middleware) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID := m.getUserID(r)
			if userID == "" {
				m.errorHandler(w, r, ErrNoUserID)
				return
			}

			if !m.service.HasRole(ctx, userID, role) {
				m.errorHandler(w, r, NewError(ErrPermissionDenied, "").
					WithRole(role).
					WithUser(userID))
				return
			}

			checker, err := m.service.GetChecker(ctx, userID)
			if err == nil {
				ctx = WithChecker(ctx, checker)
				r = r.WithContext(ctx)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// LoadChecker creates middleware that loads the user's Checker into context.
// Use this when the handler decides what to check.
//
// Example:
//
//	router.With(mw.LoadChecker()).Get("/dashboard", dashboardHandler)
//
//	func dashboardHandler(w http.ResponseWriter, r *http.Request) {
//	    checker := grantkit.GetChecker(r.Context())
//	    if checker.HasPermission("reports:view") {
//	        // show reports
//	    }
//	}
func (m *Middleware) LoadChecker() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID := m.getUserID(r)
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			checker, err := m.service.GetChecker(ctx, userID)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx = WithChecker(ctx, checker)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// InjectAuditContext creates middleware that extracts audit information from
// the request and adds it to the context, so assignment mutations further
// down record IP, user agent and request ID.
//
// Example:
//
//	router.Use(mw.InjectAuditContext())
func (m *Middleware) InjectAuditContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			ip := r.Header.Get("X-Forwarded-For")
			if ip == "" {
				ip = r.Header.Get("X-Real-IP")
			}
			if ip == "" {
				ip = r.RemoteAddr
			}
			ctx = WithIPAddress(ctx, ip)
			ctx = WithUserAgent(ctx, r.UserAgent())

			if requestID := r.Header.Get("X-Request-ID"); requestID != "" {
				ctx = WithRequestID(ctx, requestID)
			}

			if userID := m.getUserID(r); userID != "" {
				ctx = WithUserID(ctx, userID)
				ctx = WithActorID(ctx, userID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
