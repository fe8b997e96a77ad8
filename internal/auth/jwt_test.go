package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testJWTConfig() *JWTConfig {
	return &JWTConfig{
		Secret: []byte("test-secret"),
		TTL:    time.Hour,
	}
}

func TestVerifierAcceptsValidToken(t *testing.T) {
	cfg := testJWTConfig()
	v, err := NewVerifier(cfg)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	token, err := GenerateToken(cfg, 7, "alice")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	id, err := v.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.UserID != 7 || id.Username != "alice" {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestVerifierClassifiesFailures(t *testing.T) {
	cfg := testJWTConfig()
	v, err := NewVerifier(cfg)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	expiredCfg := *cfg
	expiredCfg.TTL = -time.Minute
	expired, err := GenerateToken(&expiredCfg, 7, "alice")
	if err != nil {
		t.Fatalf("generate expired: %v", err)
	}

	otherCfg := *cfg
	otherCfg.Secret = []byte("other-secret")
	foreign, err := GenerateToken(&otherCfg, 7, "alice")
	if err != nil {
		t.Fatalf("generate foreign: %v", err)
	}

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(cfg.Secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{name: "empty", token: "", want: ErrMissingCredential},
		{name: "blank", token: "   ", want: ErrMissingCredential},
		{name: "expired", token: expired, want: ErrExpiredCredential},
		{name: "garbage", token: "not-a-jwt", want: ErrInvalidCredential},
		{name: "wrong secret", token: foreign, want: ErrInvalidCredential},
		{name: "no subject", token: noSubject, want: ErrInvalidCredential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.Verify(tt.token); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestVerifierFallsBackToSubject(t *testing.T) {
	cfg := testJWTConfig()
	v, err := NewVerifier(cfg)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(cfg.Secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	id, err := v.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.UserID != 42 {
		t.Fatalf("expected user 42, got %d", id.UserID)
	}
}

func TestVerifierChecksIssuerAndAlgorithm(t *testing.T) {
	cfg := testJWTConfig()
	cfg.Issuer = "wirechat"
	cfg.Algorithm = "HS512"
	v, err := NewVerifier(cfg)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	good, err := GenerateToken(cfg, 1, "bob")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := v.Verify(good); err != nil {
		t.Fatalf("verify: %v", err)
	}

	wrongIssuer := *cfg
	wrongIssuer.Issuer = "elsewhere"
	bad, _ := GenerateToken(&wrongIssuer, 1, "bob")
	if _, err := v.Verify(bad); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential for issuer mismatch, got %v", err)
	}

	wrongAlg := *cfg
	wrongAlg.Algorithm = "HS256"
	bad, _ = GenerateToken(&wrongAlg, 1, "bob")
	if _, err := v.Verify(bad); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential for algorithm mismatch, got %v", err)
	}

	if _, err := NewVerifier(&JWTConfig{Algorithm: "RS256"}); err == nil {
		t.Fatalf("expected unsupported algorithm error")
	}
}
