package middleware

import (
	"errors"
	"net/http"

	"github.com/inkwellhq/authkit"
)

// Guard returns middleware that requires a valid access token on every
// request, injecting the resolved identity into the request context.
// Unverified accounts pass; use [RequireVerified] to keep them out.
func Guard(engine *authkit.Engine) func(http.Handler) http.Handler {
	return guard(engine, false)
}

// RequireVerified rejects authenticated but unverified accounts with 403.
func RequireVerified(engine *authkit.Engine) func(http.Handler) http.Handler {
	return guard(engine, true)
}

func guard(engine *authkit.Engine, needVerified bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token := engine.TokenFromRequest(r)
			if token == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			identity, err := engine.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, authkit.ErrAccountBlocked) {
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			if needVerified && !identity.Verified {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			ctx := authkit.WithIdentity(r.Context(), *identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
