package middleware

import (
	"context"
	"net/http"
	"strings"

	"banklink/internal/domain/user"
)

type contextKey string

const userKey contextKey = "user"

// SessionResolver turns a session secret into the signed-in user.
type SessionResolver interface {
	CurrentUser(ctx context.Context, sessionSecret string) (*user.User, error)
}

// UserFromContext returns the user stored by one of the session middlewares.
func UserFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(userKey).(*user.User)
	return u, ok && u != nil
}

func WithUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// SessionSecret reads the session cookie, falling back to a Bearer
// Authorization header for API clients.
func SessionSecret(r *http.Request, cookieName string) string {
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && scheme == "Bearer" {
		return strings.TrimSpace(token)
	}

	return ""
}

// RequireSession rejects requests without a live session with a JSON 401.
func RequireSession(resolver SessionResolver, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := resolve(r, resolver, cookieName)
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":true,"message":"Authentication required"}`))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

// RequirePageSession redirects signed-out browsers to signInPath.
func RequirePageSession(resolver SessionResolver, cookieName, signInPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := resolve(r, resolver, cookieName)
			if !ok {
				http.Redirect(w, r, signInPath, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

// OptionalSession attaches the user when a live session exists and
// passes every request through.
func OptionalSession(resolver SessionResolver, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if u, ok := resolve(r, resolver, cookieName); ok {
				r = r.WithContext(WithUser(r.Context(), u))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func resolve(r *http.Request, resolver SessionResolver, cookieName string) (*user.User, bool) {
	secret := SessionSecret(r, cookieName)
	if secret == "" {
		return nil, false
	}

	u, err := resolver.CurrentUser(r.Context(), secret)
	if err != nil || u == nil {
		return nil, false
	}

	return u, true
}
