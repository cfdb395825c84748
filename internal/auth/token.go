package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload carried by an issued token. Subject is required;
// UserID and Extra are optional. Extra holds any additional claims beyond
// the well-known ones.
type Claims struct {
	Subject   string
	UserID    int64
	Extra     map[string]any
	ExpiresAt time.Time
}

// TokenService issues and verifies HS256-signed bearer tokens. The signing
// secret is loaded once at startup and read-only afterwards; issuer and
// verifier are the same process, so symmetric signing is sufficient.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

// NewTokenService creates a TokenService for the given secret and algorithm.
// Only HS256 is supported; any other algorithm is a configuration error.
func NewTokenService(secret, algorithm string) (*TokenService, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: empty signing secret", ErrInvalidParameter)
	}
	if algorithm != "HS256" {
		return nil, fmt.Errorf("%w: unsupported signing algorithm %q", ErrInvalidParameter, algorithm)
	}
	return &TokenService{
		secret: []byte(secret),
		now:    time.Now,
	}, nil
}

// Issue signs a token for the given claims, valid for ttlMinutes from now.
// The exp claim is always set, as an integer epoch timestamp.
func (s *TokenService) Issue(claims Claims, ttlMinutes int) (string, error) {
	if ttlMinutes <= 0 {
		return "", fmt.Errorf("%w: token ttl must be positive, got %d", ErrInvalidParameter, ttlMinutes)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: token subject is required", ErrInvalidParameter)
	}

	payload := jwt.MapClaims{}
	for k, v := range claims.Extra {
		payload[k] = v
	}
	payload["sub"] = claims.Subject
	if claims.UserID != 0 {
		payload["user_id"] = claims.UserID
	}
	payload["exp"] = s.now().Add(time.Duration(ttlMinutes) * time.Minute).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)
	return token.SignedString(s.secret)
}

// Verify checks the signature and expiry of tokenStr. It returns the decoded
// claims and true only when both hold; a forged signature, an algorithm
// mismatch, and an expired token are all the same boolean outcome. The parser
// validates the signature before claims, so a tampered payload fails before
// expiry is even looked at.
func (s *TokenService) Verify(tokenStr string) (*Claims, bool) {
	payload := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, payload,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	if err != nil || !token.Valid {
		return nil, false
	}

	claims := &Claims{Extra: map[string]any{}}
	for k, v := range payload {
		switch k {
		case "sub":
			if sub, ok := v.(string); ok {
				claims.Subject = sub
			}
		case "user_id":
			// JSON numbers decode as float64.
			if id, ok := v.(float64); ok {
				claims.UserID = int64(id)
			}
		case "exp":
			if exp, ok := v.(float64); ok {
				claims.ExpiresAt = time.Unix(int64(exp), 0)
			}
		default:
			claims.Extra[k] = v
		}
	}
	return claims, true
}
