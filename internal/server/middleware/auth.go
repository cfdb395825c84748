package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/autoprice/autoprice/internal/auth"
	"github.com/autoprice/autoprice/internal/model"
)

type contextKeyAuth string

// IdentityKey is the context key for the authenticated identity.
const IdentityKey contextKeyAuth = "auth_identity"

// RequireAPIKey validates the X-API-Key header against the shared key before
// anything else runs. On protected routes it is chained ahead of
// Authenticate, so a request that is wrong on both counts reports the API
// key failure (403) first.
func RequireAPIKey(gate *auth.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := gate.Check(r.Header.Get("X-API-Key")); err != nil {
				writeAuthError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticate resolves the request's bearer token to an identity and stores
// it in the context. Failures end the request with a 401 or 403 envelope.
func Authenticate(authn *auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := authn.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				writeAuthError(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth resolves an identity when a valid bearer token is present and
// passes the request through anonymously otherwise. It never rejects.
func OptionalAuth(authn *auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if identity := authn.Optional(r.Context(), r.Header.Get("Authorization")); identity != nil {
				r = r.WithContext(context.WithValue(r.Context(), IdentityKey, identity))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin enforces the admin flag on an already-authenticated identity.
// It must be chained after Authenticate.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := GetIdentity(r.Context())
			if identity == nil || !identity.IsAdmin {
				writeAuthError(w, auth.Forbidden("admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetIdentity extracts the authenticated identity from the context. Returns
// nil for anonymous requests.
func GetIdentity(ctx context.Context) *auth.Identity {
	if identity, ok := ctx.Value(IdentityKey).(*auth.Identity); ok {
		return identity
	}
	return nil
}

func writeAuthError(w http.ResponseWriter, err error) {
	status := auth.HTTPStatus(err)
	message := "authentication error"
	if status != http.StatusInternalServerError {
		message = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{
		Error: model.ErrorDetail{Code: status, Message: message},
	})
}
