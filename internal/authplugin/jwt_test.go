package authplugin

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yangconf/confd/internal/pluginreg"
)

const testSecret = "01234567890123456789012345678901"

func signToken(t *testing.T, secret, issuer string, expiresAt time.Time) string {
	t.Helper()
	claims := &sessionClaims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func TestNewJWTRejectsShortSecret(t *testing.T) {
	if _, err := NewJWT(JWTConfig{Secret: "too-short"}); err != ErrSecretTooShort {
		t.Fatalf("err = %v, want ErrSecretTooShort", err)
	}
}

func TestJWTAuthenticateAcceptsValidToken(t *testing.T) {
	p, err := NewJWT(JWTConfig{Secret: testSecret})
	if err != nil {
		t.Fatalf("NewJWT: %v", err)
	}
	tok := signToken(t, testSecret, "confd", time.Now().Add(time.Hour))
	verdict, err := p.Hook().Auth(context.Background(), tok)
	if err != nil {
		t.Fatalf("Auth: %v", err)
	}
	if verdict != pluginreg.Authenticated {
		t.Fatalf("verdict = %v, want Authenticated", verdict)
	}
}

func TestJWTAuthenticateRejectsExpiredToken(t *testing.T) {
	p, err := NewJWT(JWTConfig{Secret: testSecret})
	if err != nil {
		t.Fatalf("NewJWT: %v", err)
	}
	tok := signToken(t, testSecret, "confd", time.Now().Add(-time.Hour))
	verdict, err := p.Hook().Auth(context.Background(), tok)
	if err != nil {
		t.Fatalf("Auth: %v", err)
	}
	if verdict != pluginreg.Unauthenticated {
		t.Fatalf("verdict = %v, want Unauthenticated", verdict)
	}
}

func TestJWTAuthenticateRejectsWrongSecret(t *testing.T) {
	p, err := NewJWT(JWTConfig{Secret: testSecret})
	if err != nil {
		t.Fatalf("NewJWT: %v", err)
	}
	tok := signToken(t, "different-secret-different-secret12", "confd", time.Now().Add(time.Hour))
	verdict, err := p.Hook().Auth(context.Background(), tok)
	if err != nil {
		t.Fatalf("Auth: %v", err)
	}
	if verdict != pluginreg.Unauthenticated {
		t.Fatalf("verdict = %v, want Unauthenticated", verdict)
	}
}

func TestJWTAuthenticateRejectsMalformedToken(t *testing.T) {
	p, err := NewJWT(JWTConfig{Secret: testSecret})
	if err != nil {
		t.Fatalf("NewJWT: %v", err)
	}
	verdict, err := p.Hook().Auth(context.Background(), "not-a-jwt")
	if err != nil {
		t.Fatalf("Auth: %v", err)
	}
	if verdict != pluginreg.Unauthenticated {
		t.Fatalf("verdict = %v, want Unauthenticated", verdict)
	}
}
