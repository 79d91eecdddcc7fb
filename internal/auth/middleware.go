package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/leafnote/leafnote-server/internal/response"
)

type contextKey int

const userIDKey contextKey = 0

// CookieName is the cookie carrying the identity token.
const CookieName = "token"

// Middleware authenticates every request passing through it. The token is
// read from the "token" cookie first, then from the Authorization header
// as a bearer token. Any verification failure yields a uniform 401.
func Middleware(tokens *TokenService) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := tokenFromRequest(r)
			if tokenStr == "" {
				response.Unauthorized(w, "Unauthorized")
				return
			}

			userID, err := tokens.Verify(tokenStr)
			if err != nil {
				response.Unauthorized(w, "Unauthorized")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), userID)))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	// An empty cookie does not shadow a bearer header.
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// ContextWithUserID binds the authenticated user id to the context.
func ContextWithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user id, or 0 when the
// request never passed the middleware.
func UserIDFromContext(ctx context.Context) int64 {
	userID, ok := ctx.Value(userIDKey).(int64)
	if !ok {
		return 0
	}
	return userID
}
