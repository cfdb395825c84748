package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/autoprice/autoprice/internal/model"
	"github.com/autoprice/autoprice/internal/store"
)

// UserStore is the slice of the persistence layer the Authenticator needs:
// a single point read by username.
type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
}

// Identity is the resolved principal after token verification and store
// lookup. It is constructed per request, immutable, and never cached beyond
// the request's lifetime.
type Identity struct {
	UserID   int64
	Username string
	Email    string
	IsAdmin  bool
}

// Authenticator resolves bearer tokens to identities. Every request performs
// a full verify-and-lookup cycle; authentication failures are terminal for
// the request and never retried.
type Authenticator struct {
	tokens *TokenService
	users  UserStore
}

// NewAuthenticator creates an Authenticator over the given token service and
// user store.
func NewAuthenticator(tokens *TokenService, users UserStore) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// Authenticate runs the full pipeline on the raw Authorization header value:
// extract the bearer token, verify it, resolve the subject against the user
// store, and enforce that the account is active.
func (a *Authenticator) Authenticate(ctx context.Context, authorizationHeader string) (*Identity, error) {
	token, err := extractBearer(authorizationHeader)
	if err != nil {
		return nil, err
	}

	claims, ok := a.tokens.Verify(token)
	if !ok {
		return nil, Unauthorized("invalid or expired token")
	}
	if claims.Subject == "" {
		return nil, Unauthorized("invalid token payload")
	}

	user, err := a.users.GetUserByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, Unauthorized("user not found")
		}
		return nil, fmt.Errorf("look up user %q: %w", claims.Subject, err)
	}

	if !user.IsActive {
		return nil, Forbidden("account deactivated")
	}

	return &Identity{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		IsAdmin:  user.IsAdmin,
	}, nil
}

// RequireAdmin is Authenticate plus an admin-flag check.
func (a *Authenticator) RequireAdmin(ctx context.Context, authorizationHeader string) (*Identity, error) {
	identity, err := a.Authenticate(ctx, authorizationHeader)
	if err != nil {
		return nil, err
	}
	if !identity.IsAdmin {
		return nil, Forbidden("admin access required")
	}
	return identity, nil
}

// Optional runs the pipeline but swallows every failure, returning nil
// instead. Endpoints that behave differently for anonymous and authenticated
// callers use this instead of hard-requiring authentication.
func (a *Authenticator) Optional(ctx context.Context, authorizationHeader string) *Identity {
	identity, err := a.Authenticate(ctx, authorizationHeader)
	if err != nil {
		return nil
	}
	return identity
}

// extractBearer pulls the token out of an "Authorization: Bearer <token>"
// header value. The scheme is matched case-insensitively.
func extractBearer(header string) (string, error) {
	if header == "" {
		return "", Unauthorized("missing authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", Unauthorized("malformed authorization header")
	}
	return parts[1], nil
}
