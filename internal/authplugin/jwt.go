// Package authplugin provides reference Auth-hook implementations for
// internal/pluginreg, registered as pseudo-plugins by cmd/confd rather
// than discovered on disk. Grounded on the teacher's
// internal/controlplane/api/auth (JWTService) and pkg/auth/kerberos
// (Provider) packages, adapted from bearer-token/SPNEGO session
// authentication to the §4.5 plugin Auth hook's
// Authenticated/Unauthenticated/error contract.
package authplugin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yangconf/confd/internal/pluginreg"
)

// ErrSecretTooShort is returned by NewJWT when the configured HMAC
// secret is too weak to sign tokens safely.
var ErrSecretTooShort = errors.New("jwt secret must be at least 32 characters")

// JWTConfig configures the bearer-token reference plugin.
type JWTConfig struct {
	// Secret is the HMAC signing key. Must be at least 32 characters.
	Secret string

	// Issuer is the expected token issuer claim. Default: "confd".
	Issuer string

	// Leeway is the clock-skew tolerance applied to exp/iat checks.
	Leeway time.Duration
}

// sessionClaims is the registered-claims subset a confd session token
// carries; it does not need the teacher's user/role/group claims since
// the plugin registry's Auth hook only decides Authenticated vs.
// Unauthenticated, not authorization.
type sessionClaims struct {
	jwt.RegisteredClaims
}

// JWT is a reference bearer-token Auth plugin: it validates the
// session token carried in the RPC frame's session metadata as an
// HMAC-signed JWT.
type JWT struct {
	cfg JWTConfig
}

// NewJWT builds a JWT reference plugin from cfg, applying the same
// defaults as the teacher's JWTService.
func NewJWT(cfg JWTConfig) (*JWT, error) {
	if len(cfg.Secret) < 32 {
		return nil, ErrSecretTooShort
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "confd"
	}
	return &JWT{cfg: cfg}, nil
}

// Hook returns the pluginreg.API surface for this plugin: only Auth is
// populated, per §4.5's reference-plugin contract.
func (j *JWT) Hook() pluginreg.API {
	return pluginreg.API{Auth: j.authenticate}
}

func (j *JWT) authenticate(_ context.Context, sessionToken string) (pluginreg.AuthVerdict, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(sessionToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(j.cfg.Secret), nil
	}, jwt.WithLeeway(j.cfg.Leeway), jwt.WithIssuer(j.cfg.Issuer))
	if err != nil {
		return pluginreg.Unauthenticated, nil
	}
	return pluginreg.Authenticated, nil
}
