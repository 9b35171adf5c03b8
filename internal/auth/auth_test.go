package auth_test

import (
	"errors"
	"testing"

	"github.com/clipforge/clipforge/internal/auth"
)

func TestTokenRoundTrip(t *testing.T) {
	a := auth.New("test-secret", "")
	token, err := a.IssueToken("user-42")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	claims, err := a.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != "user-42" {
		t.Fatalf("UserID = %q", claims.UserID)
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	token, err := auth.New("secret-a", "").IssueToken("user-1")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := auth.New("secret-b", "").ValidateToken(token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	if _, err := auth.New("secret", "").ValidateToken("not.a.token"); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestCheckAPIKey(t *testing.T) {
	hash, err := auth.HashAPIKey("hunter2")
	if err != nil {
		t.Fatalf("HashAPIKey: %v", err)
	}
	a := auth.New("secret", hash)
	if err := a.CheckAPIKey("hunter2"); err != nil {
		t.Fatalf("CheckAPIKey correct key: %v", err)
	}
	if err := a.CheckAPIKey("wrong"); !errors.Is(err, auth.ErrInvalidAPIKey) {
		t.Fatalf("err = %v, want ErrInvalidAPIKey", err)
	}
}

func TestCheckAPIKeyDisabledWhenUnset(t *testing.T) {
	if err := auth.New("secret", "").CheckAPIKey("anything"); err != nil {
		t.Fatalf("unset hash should disable the check, got %v", err)
	}
}
