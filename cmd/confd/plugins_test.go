package main

import (
	"testing"

	"github.com/yangconf/confd/internal/config"
	"github.com/yangconf/confd/internal/pluginreg"
)

func TestSetupPluginsRejectsBothAuthMethods(t *testing.T) {
	reg := pluginreg.NewRegistry()
	auth := config.AuthConfig{
		JWT:      &config.JWTAuthConfig{Secret: "0123456789012345678901234567890123"},
		Kerberos: &config.KerberosAuthConfig{KeytabPath: "/etc/krb5.keytab"},
	}
	if err := setupPlugins(reg, config.PluginConfig{}, auth); err == nil {
		t.Fatalf("expected an error when both jwt and kerberos are configured")
	}
}

func TestSetupPluginsRegistersJWT(t *testing.T) {
	reg := pluginreg.NewRegistry()
	auth := config.AuthConfig{
		JWT: &config.JWTAuthConfig{Secret: "0123456789012345678901234567890123"},
	}
	if err := setupPlugins(reg, config.PluginConfig{}, auth); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, name := range reg.Names() {
		if name == "jwt" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected jwt pseudo-plugin to be registered, have %v", reg.Names())
	}
}

func TestSetupPluginsWithNoAuthConfigured(t *testing.T) {
	reg := pluginreg.NewRegistry()
	if err := setupPlugins(reg, config.PluginConfig{}, config.AuthConfig{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reg.Names()) != 0 {
		t.Fatalf("expected no plugins registered, got %v", reg.Names())
	}
}
