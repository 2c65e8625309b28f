package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"freelance-market/internal/model"
	"freelance-market/pkg/apierror"
)

// AccessTokenCookie is the cookie browsers send the access token in when no
// Authorization header is present.
const AccessTokenCookie = "accessToken"

type tokenValidator interface {
	ValidateToken(tokenString string, expectedType string) (*model.AuthClaims, error)
}

type projectOwnership interface {
	Owned(ctx context.Context, userID string, projectID string) (model.Project, error)
}

type contextKey string

const (
	authClaimsContextKey contextKey = "auth_claims"
	projectContextKey    contextKey = "project"
)

type AuthMiddleware struct {
	validator tokenValidator
	projects  projectOwnership
}

func NewAuthMiddleware(validator tokenValidator, projects projectOwnership) *AuthMiddleware {
	return &AuthMiddleware{validator: validator, projects: projects}
}

// RequireAuth accepts a bearer token, falling back to the access token cookie.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
				token = strings.TrimSpace(cookie.Value)
			}
		}
		if token == "" {
			writeAPIError(w, apierror.Unauthorized("missing or invalid authorization header"))
			return
		}

		claims, err := m.validator.ValidateToken(token, "access")
		if err != nil {
			writeAPIError(w, apierror.Unauthorized("invalid or expired token"))
			return
		}

		ctx := context.WithValue(r.Context(), authClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) RequireRoles(allowedRoles ...model.Role) func(http.Handler) http.Handler {
	roleSet := map[model.Role]struct{}{}
	for _, role := range allowedRoles {
		roleSet[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeAPIError(w, apierror.Unauthorized("authentication required"))
				return
			}

			if _, exists := roleSet[claims.Role]; !exists {
				writeAPIError(w, apierror.Forbidden("insufficient permissions"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireCapability gates a route on the role the capability table assigns to op.
func (m *AuthMiddleware) RequireCapability(op model.Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeAPIError(w, apierror.Unauthorized("authentication required"))
				return
			}

			if !claims.Role.Can(op) {
				writeAPIError(w, apierror.Forbidden("insufficient permissions"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireProjectOwner loads the project named by the URL parameter and lets
// the request through only for the buyer who posted it.
func (m *AuthMiddleware) RequireProjectOwner(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeAPIError(w, apierror.Unauthorized("authentication required"))
				return
			}

			project, err := m.projects.Owned(r.Context(), claims.UserID, chi.URLParam(r, param))
			if err != nil {
				writeError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), projectContextKey, project)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ClaimsFromContext(ctx context.Context) (*model.AuthClaims, bool) {
	claims, ok := ctx.Value(authClaimsContextKey).(*model.AuthClaims)
	return claims, ok
}

// ProjectFromContext returns the project loaded by RequireProjectOwner.
func ProjectFromContext(ctx context.Context) (model.Project, bool) {
	project, ok := ctx.Value(projectContextKey).(model.Project)
	return project, ok
}

// WithClaims attaches claims to ctx as RequireAuth does.
func WithClaims(ctx context.Context, claims *model.AuthClaims) context.Context {
	return context.WithValue(ctx, authClaimsContextKey, claims)
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
