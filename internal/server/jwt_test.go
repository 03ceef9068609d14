package server

import (
	"errors"
	"testing"
	"time"
)

func TestSessionToken(t *testing.T) {
	key := []byte("secret")

	token, err := GenerateSessionToken(key, time.Minute, "session-1", 3, 42, "alice")
	if err != nil {
		t.Fatal(err)
	}

	claims, err := VerifySessionToken(key, token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Slot != 3 || claims.SpawnCount != 42 || claims.Name != "alice" || claims.ID != "session-1" {
		t.Fatalf("claims = %+v", claims)
	}

	if _, err := VerifySessionToken([]byte("other"), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong key: %v", err)
	}

	expired, err := GenerateSessionToken(key, -time.Minute, "session-2", 1, 42, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := VerifySessionToken(key, expired); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token accepted: %v", err)
	}
}
