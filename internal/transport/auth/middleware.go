package auth

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey string

const TokenKey ctxKey = "bearerToken"

// BearerMiddleware copies the caller's token into the request context. It
// does not reject anything: every data request is authorized by the gate,
// which turns a missing token into 401.
func BearerMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// allow OPTIONS (CORS preflight) to pass through
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			token := TokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithToken(r.Context(), token)))
		})
	}
}

// TokenFromRequest reads the Authorization header first, then the token
// query parameter used by download links.
func TokenFromRequest(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		if t := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")); t != "" {
			return t
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, TokenKey, token)
}

func TokenFrom(ctx context.Context) string {
	v, _ := ctx.Value(TokenKey).(string)
	return v
}
