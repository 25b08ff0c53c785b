package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/watchearn/watchearn/internal/api"
)

type contextKey string

// UserClaimsKey carries the validated token claims through the request
// context.
const UserClaimsKey contextKey = "user_claims"

// Middleware validates the bearer token and stores its claims in the
// request context. Tokens are minted by the external auth provider; this
// service only verifies them.
func Middleware(jwtManager *JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			scheme, token, found := strings.Cut(header, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			claims, err := jwtManager.ValidateAccessToken(token)
			if err != nil {
				api.HandleError(w, api.ErrInvalidToken)
				return
			}

			ctx := context.WithValue(r.Context(), UserClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserClaims extracts claims placed by Middleware. Returns nil when
// the request was not authenticated.
func GetUserClaims(ctx context.Context) *AccessClaims {
	claims, _ := ctx.Value(UserClaimsKey).(*AccessClaims)
	return claims
}
