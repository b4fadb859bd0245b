package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"deployboard/application/auth"
	"deployboard/interfaces/http/rest/api"
)

type contextKey string

const claimsKey contextKey = "claims"

// Authorizer checks a bearer token against the active session.
type Authorizer interface {
	Authorize(ctx context.Context, bearer string) (*auth.Claims, error)
}

// Authenticate rejects requests without a valid token and session with a
// 401 that points the browser at the login page.
func Authenticate(authorizer Authorizer, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := authorizer.Authorize(r.Context(), extractToken(r))
			if err != nil {
				logger.Debug("request not authenticated", zap.String("path", r.URL.Path), zap.Error(err))
				api.RespondError(w, logger, err)
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the claims of an authenticated request.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.Claims)
	return c, ok
}

func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return ""
	}
	if cookie, err := r.Cookie("auth_token"); err == nil {
		return cookie.Value
	}
	return ""
}
