package auth

import "crypto/subtle"

// Gate validates the process-wide shared API key. There is a single static
// key, compared exactly; no per-client keys and no rotation.
type Gate struct {
	key []byte
}

// NewGate creates a Gate for the configured key.
func NewGate(key string) *Gate {
	return &Gate{key: []byte(key)}
}

// Check validates a key supplied by a request. It returns nil on a match,
// Forbidden("missing api key") when no key was supplied, and
// Forbidden("invalid api key") on a mismatch. The comparison is
// constant-time; the check has no side effects.
func (g *Gate) Check(provided string) error {
	if provided == "" {
		return Forbidden("missing api key")
	}
	if subtle.ConstantTimeCompare([]byte(provided), g.key) != 1 {
		return Forbidden("invalid api key")
	}
	return nil
}
