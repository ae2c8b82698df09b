package auth

import (
	"strings"
	"testing"
	"time"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("Sup3rSecret")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if !strings.HasPrefix(hash, "argon2id$") {
		t.Errorf("unexpected hash format: %q", hash)
	}

	ok, err := VerifyPassword(hash, "Sup3rSecret")
	if err != nil || !ok {
		t.Errorf("correct password should verify, ok=%v err=%v", ok, err)
	}

	ok, err = VerifyPassword(hash, "WrongPass1")
	if err != nil {
		t.Fatalf("verify errored: %v", err)
	}
	if ok {
		t.Error("wrong password must not verify")
	}
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	if _, err := VerifyPassword("not-a-hash", "whatever"); err == nil {
		t.Error("expected error for malformed hash")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	jwtAuth, err := NewJWTAuth("test-secret", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("auth init failed: %v", err)
	}

	access, refresh, err := jwtAuth.GenerateTokens("user-1", "a@b.co")
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}

	identity, err := jwtAuth.VerifyAccessToken(access)
	if err != nil {
		t.Fatalf("access verify failed: %v", err)
	}
	if identity.UserID != "user-1" || identity.Email != "a@b.co" {
		t.Errorf("unexpected identity: %+v", identity)
	}

	claims, err := jwtAuth.VerifyRefreshToken(refresh)
	if err != nil {
		t.Fatalf("refresh verify failed: %v", err)
	}
	if claims.UserID != "user-1" || claims.TokenID == "" {
		t.Errorf("unexpected refresh claims: %+v", claims)
	}
}

func TestAccessTokenIsNotARefreshToken(t *testing.T) {
	jwtAuth, _ := NewJWTAuth("test-secret", time.Minute, time.Hour)
	access, _, err := jwtAuth.GenerateTokens("user-1", "a@b.co")
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}

	if _, err := jwtAuth.VerifyRefreshToken(access); err == nil {
		t.Error("access token must not pass refresh verification")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer, _ := NewJWTAuth("secret-a", time.Minute, time.Hour)
	verifier, _ := NewJWTAuth("secret-b", time.Minute, time.Hour)

	access, _, err := issuer.GenerateTokens("user-1", "a@b.co")
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}

	if _, err := verifier.VerifyAccessToken(access); err == nil {
		t.Error("token signed with another secret must be rejected")
	}
}

func TestExtractToken(t *testing.T) {
	if tok, err := ExtractToken("Bearer abc123"); err != nil || tok != "abc123" {
		t.Errorf("expected abc123, got %q err=%v", tok, err)
	}
	if _, err := ExtractToken(""); err == nil {
		t.Error("empty header must error")
	}
	if _, err := ExtractToken("Basic abc123"); err == nil {
		t.Error("non-bearer scheme must error")
	}
}

func TestValidatePassword(t *testing.T) {
	cases := []struct {
		password string
		valid    bool
	}{
		{"Sup3rSecret", true},
		{"short1A", false},
		{"alllowercase1", false},
		{"ALLUPPERCASE1", false},
		{"NoDigitsHere", false},
	}
	for _, tc := range cases {
		err := ValidatePassword(tc.password)
		if tc.valid && err != nil {
			t.Errorf("%q should be valid, got %v", tc.password, err)
		}
		if !tc.valid && err == nil {
			t.Errorf("%q should be rejected", tc.password)
		}
	}
}
