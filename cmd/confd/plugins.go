package main

import (
	"context"
	"fmt"

	"github.com/yangconf/confd/internal/authplugin"
	"github.com/yangconf/confd/internal/config"
	"github.com/yangconf/confd/internal/logger"
	"github.com/yangconf/confd/internal/pluginreg"
)

// setupPlugins wires the configured auth chain and on-disk plugin
// discovery onto reg. At most one of auth.JWT/auth.Kerberos may be
// set, per internal/authplugin's single-Auth-hook contract; both being
// set is a configuration error rather than a silent pick-one.
func setupPlugins(reg *pluginreg.Registry, cfg config.PluginConfig, auth config.AuthConfig) error {
	if auth.JWT != nil && auth.Kerberos != nil {
		return fmt.Errorf("at most one of auth.jwt / auth.kerberos may be configured")
	}

	if auth.JWT != nil {
		plugin, err := authplugin.NewJWT(authplugin.JWTConfig{
			Secret: auth.JWT.Secret,
			Issuer: auth.JWT.Issuer,
			Leeway: auth.JWT.Leeway,
		})
		if err != nil {
			return fmt.Errorf("jwt auth plugin: %w", err)
		}
		if err := reg.RegisterPseudo("jwt", plugin.Hook()); err != nil {
			return err
		}
	}

	if auth.Kerberos != nil {
		plugin, err := authplugin.NewKerberos(authplugin.KerberosConfig{
			KeytabPath:       auth.Kerberos.KeytabPath,
			ServicePrincipal: auth.Kerberos.ServicePrincipal,
			Krb5Conf:         auth.Kerberos.Krb5Conf,
			MaxClockSkew:     auth.Kerberos.MaxClockSkew,
		})
		if err != nil {
			return fmt.Errorf("kerberos auth plugin: %w", err)
		}
		if err := reg.RegisterPseudo("kerberos", plugin.Hook()); err != nil {
			return err
		}
	}

	if cfg.Dir != "" {
		names, err := reg.Load(cfg.Dir, cfg.Pattern)
		if err != nil {
			return fmt.Errorf("load plugins from %s: %w", cfg.Dir, err)
		}
		logger.Info("plugins loaded", "dir", cfg.Dir, "names", names)
	}

	return nil
}

// watchPlugins starts the fsnotify-backed reload watcher when enabled,
// logging rather than failing startup on error: a missing or
// unwatchable plugin directory shouldn't prevent the agent from serving
// with the plugins it already loaded.
func watchPlugins(ctx context.Context, reg *pluginreg.Registry, cfg config.PluginConfig) {
	if !cfg.WatchEnabled || cfg.Dir == "" {
		return
	}
	go func() {
		if err := reg.WatchDir(ctx, cfg.Dir, cfg.Pattern); err != nil {
			logger.Error("plugin watch failed", "dir", cfg.Dir, "error", err)
		}
	}()
}
