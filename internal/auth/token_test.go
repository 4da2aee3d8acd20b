package auth

import "testing"

func TestNewShareToken(t *testing.T) {
	token, digest := NewShareToken()
	if token == "" || digest == "" {
		t.Fatal("expected non-empty token and digest")
	}
	if token == digest {
		t.Fatal("digest must differ from the raw token")
	}
	if HashShareToken(token) != digest {
		t.Error("digest should be reproducible from the token")
	}

	token2, digest2 := NewShareToken()
	if token2 == token || digest2 == digest {
		t.Error("tokens must be unique")
	}
}

func TestHashShareTokenStable(t *testing.T) {
	if HashShareToken("abc") != HashShareToken("abc") {
		t.Error("same input must produce the same digest")
	}
	if HashShareToken("abc") == HashShareToken("abd") {
		t.Error("different inputs must produce different digests")
	}
	if got := len(HashShareToken("abc")); got != 64 {
		t.Errorf("expected 64 hex chars, got %d", got)
	}
}
