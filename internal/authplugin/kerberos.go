package authplugin

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"time"

	krb5config "github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/keytab"
	"github.com/jcmturner/gokrb5/v8/messages"
	"github.com/jcmturner/gokrb5/v8/service"

	"github.com/yangconf/confd/internal/pluginreg"
)

// KerberosConfig configures the keytab-backed reference plugin,
// mirroring the teacher's KerberosConfig fields (KeytabPath,
// ServicePrincipal, Krb5Conf, clock-skew tolerance).
type KerberosConfig struct {
	// KeytabPath is the path to the service keytab file.
	KeytabPath string

	// ServicePrincipal is the keytab principal this agent authenticates
	// as (e.g. "confd/host@REALM").
	ServicePrincipal string

	// Krb5Conf is the path to krb5.conf. Only validated at construction
	// time; AP-REQ verification itself needs only the keytab.
	Krb5Conf string

	// MaxClockSkew is the maximum tolerated gap between the client's
	// authenticator timestamp and the local clock.
	MaxClockSkew time.Duration
}

// Kerberos is a reference Auth plugin validating a client's Kerberos
// AP-REQ against a service keytab, grounded in the teacher's
// pkg/auth/kerberos.Provider but narrowed to this repo's single need:
// answering the plugin registry's Auth hook.
type Kerberos struct {
	keytab           *keytab.Keytab
	servicePrincipal string
	maxClockSkew     time.Duration
}

// NewKerberos loads the keytab and validates krb5.conf, returning a
// plugin ready to verify AP-REQ tokens.
func NewKerberos(cfg KerberosConfig) (*Kerberos, error) {
	if cfg.KeytabPath == "" {
		return nil, fmt.Errorf("kerberos keytab path not configured")
	}
	if cfg.ServicePrincipal == "" {
		return nil, fmt.Errorf("kerberos service principal not configured")
	}

	data, err := os.ReadFile(cfg.KeytabPath)
	if err != nil {
		return nil, fmt.Errorf("read keytab %s: %w", cfg.KeytabPath, err)
	}
	kt := keytab.New()
	if err := kt.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("parse keytab %s: %w", cfg.KeytabPath, err)
	}

	if cfg.Krb5Conf != "" {
		if _, err := krb5config.Load(cfg.Krb5Conf); err != nil {
			return nil, fmt.Errorf("parse krb5.conf %s: %w", cfg.Krb5Conf, err)
		}
	}

	return &Kerberos{
		keytab:           kt,
		servicePrincipal: cfg.ServicePrincipal,
		maxClockSkew:     cfg.MaxClockSkew,
	}, nil
}

// Hook returns the pluginreg.API surface for this plugin: only Auth is
// populated, per §4.5's reference-plugin contract.
func (k *Kerberos) Hook() pluginreg.API {
	return pluginreg.API{Auth: k.authenticate}
}

// authenticate treats sessionToken as a base64-encoded raw AP-REQ (the
// RPC frame layer is responsible for stripping any SPNEGO/GSS wrapper
// before the token reaches the plugin registry's Auth hook).
func (k *Kerberos) authenticate(_ context.Context, sessionToken string) (pluginreg.AuthVerdict, error) {
	raw, err := base64.StdEncoding.DecodeString(sessionToken)
	if err != nil {
		return pluginreg.Unauthenticated, nil
	}

	var apReq messages.APReq
	if err := apReq.Unmarshal(raw); err != nil {
		return pluginreg.Unauthenticated, nil
	}

	settings := service.NewSettings(
		k.keytab,
		service.MaxClockSkew(k.maxClockSkew),
		service.DecodePAC(false),
		service.KeytabPrincipal(k.servicePrincipal),
	)

	ok, _, err := service.VerifyAPREQ(&apReq, settings)
	if err != nil || !ok {
		return pluginreg.Unauthenticated, nil
	}
	return pluginreg.Authenticated, nil
}
