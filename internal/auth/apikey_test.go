package auth

import "testing"

func TestGateCheck(t *testing.T) {
	gate := NewGate("sekrit-key")

	if err := gate.Check("sekrit-key"); err != nil {
		t.Errorf("configured key should pass, got %v", err)
	}

	err := gate.Check("")
	if !IsForbidden(err) {
		t.Fatalf("missing key: expected Forbidden, got %v", err)
	}
	if err.Error() != "missing api key" {
		t.Errorf("missing key reason: got %q", err.Error())
	}

	err = gate.Check("sekrit-keyx")
	if !IsForbidden(err) {
		t.Fatalf("wrong key: expected Forbidden, got %v", err)
	}
	if err.Error() != "invalid api key" {
		t.Errorf("wrong key reason: got %q", err.Error())
	}

	// Prefix of the real key is still wrong.
	if err := gate.Check("sekrit"); !IsForbidden(err) {
		t.Errorf("prefix of key: expected Forbidden, got %v", err)
	}
}
