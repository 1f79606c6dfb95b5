// Package config loads cmd/confd's static configuration: logging,
// telemetry, the datastore directory/format, plugin discovery, the
// reference auth plugins, metrics, and backup. Grounded on the
// teacher's pkg/config/config.go: same precedence order (flags > env >
// file > defaults), same viper/mapstructure/validator/yaml.v3 stack.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is cmd/confd's top-level configuration.
type Config struct {
	Logging         LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Telemetry       TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`
	Datastore       DatastoreConfig `mapstructure:"datastore" yaml:"datastore"`
	Metrics         MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Plugin          PluginConfig    `mapstructure:"plugin" yaml:"plugin"`
	Auth            AuthConfig      `mapstructure:"auth" yaml:"auth"`
	Backup          BackupConfig    `mapstructure:"backup" yaml:"backup"`
	Audit           AuditConfig     `mapstructure:"audit" yaml:"audit"`
	Listen          ListenConfig    `mapstructure:"listen" yaml:"listen"`
}

// AuditConfig controls internal/audit's commit ledger.
type AuditConfig struct {
	Backend     string `mapstructure:"backend" validate:"required,oneof=sqlite postgres" yaml:"backend"`
	SQLitePath  string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn" yaml:"postgres_dsn"`
}

// ListenConfig controls the IPC and NETCONF-over-TCP listeners
// cmd/confd serves the frame transport on.
type ListenConfig struct {
	IPCNetwork     string `mapstructure:"ipc_network" validate:"required,oneof=unix tcp" yaml:"ipc_network"`
	IPCAddress     string `mapstructure:"ipc_address" validate:"required" yaml:"ipc_address"`
	NETCONFEnabled bool   `mapstructure:"netconf_enabled" yaml:"netconf_enabled"`
	NETCONFAddress string `mapstructure:"netconf_address" yaml:"netconf_address"`
}

// LoggingConfig controls internal/logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls internal/telemetry's OTLP tracing and
// pyroscope profiling.
type TelemetryConfig struct {
	Enabled        bool    `mapstructure:"enabled" yaml:"enabled"`
	OTLPEndpoint   string  `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
	SampleRate     float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`
	ProfilingURL   string  `mapstructure:"profiling_url" yaml:"profiling_url"`
	ServiceName    string  `mapstructure:"service_name" yaml:"service_name"`
}

// DatastoreConfig configures internal/datastore.Engine.
type DatastoreConfig struct {
	// Dir is the directory holding one file per named datastore
	// (running, candidate, startup).
	Dir string `mapstructure:"dir" validate:"required" yaml:"dir"`

	// Format is the on-disk serialization: "xml" or "json".
	Format string `mapstructure:"format" validate:"required,oneof=xml json" yaml:"format"`

	// Pretty controls indentation of persisted files.
	Pretty bool `mapstructure:"pretty" yaml:"pretty"`

	// CacheEnabled keeps the decoded tree resident between edits instead
	// of reparsing the file on every get/put.
	CacheEnabled bool `mapstructure:"cache_enabled" yaml:"cache_enabled"`
}

// MetricsConfig controls internal/metrics' Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
	Path    string `mapstructure:"path" validate:"required" yaml:"path"`
}

// PluginConfig controls internal/pluginreg discovery.
type PluginConfig struct {
	Dir          string `mapstructure:"dir" yaml:"dir"`
	Pattern      string `mapstructure:"pattern" yaml:"pattern"`
	WatchEnabled bool   `mapstructure:"watch_enabled" yaml:"watch_enabled"`
	CacheDir     string `mapstructure:"cache_dir" yaml:"cache_dir"`
}

// AuthConfig selects and configures the §4.5 auth chain's reference
// plugins. Only one of JWT/Kerberos should be enabled at a time per
// internal/authplugin's single-Auth-hook contract.
type AuthConfig struct {
	JWT      *JWTAuthConfig      `mapstructure:"jwt" yaml:"jwt,omitempty"`
	Kerberos *KerberosAuthConfig `mapstructure:"kerberos" yaml:"kerberos,omitempty"`
}

// JWTAuthConfig configures internal/authplugin.JWT.
type JWTAuthConfig struct {
	Secret string        `mapstructure:"secret" yaml:"secret"`
	Issuer string        `mapstructure:"issuer" yaml:"issuer"`
	Leeway time.Duration `mapstructure:"leeway" yaml:"leeway"`
}

// KerberosAuthConfig configures internal/authplugin.Kerberos.
type KerberosAuthConfig struct {
	KeytabPath       string        `mapstructure:"keytab_path" yaml:"keytab_path"`
	ServicePrincipal string        `mapstructure:"service_principal" yaml:"service_principal"`
	Krb5Conf         string        `mapstructure:"krb5_conf" yaml:"krb5_conf"`
	MaxClockSkew     time.Duration `mapstructure:"max_clock_skew" yaml:"max_clock_skew"`
}

// BackupConfig configures internal/backup's snapshot destination and
// the periodic schedule cmd/confd drives it on.
type BackupConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	Dest     string        `mapstructure:"dest" validate:"required_if=Enabled true" yaml:"dest"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
	DBs      []string      `mapstructure:"databases" yaml:"databases"`
	S3Bucket string        `mapstructure:"s3_bucket" yaml:"s3_bucket"`
	S3Region string        `mapstructure:"s3_region" yaml:"s3_region"`
	S3Prefix string        `mapstructure:"s3_prefix" yaml:"s3_prefix"`
}

// Load reads configuration from file, environment (CONFD_* prefix) and
// defaults, in that precedence order (env overrides file overrides
// defaults), validating the result. When no config file is found, Load
// returns DefaultConfig() as is: environment variables are not applied
// and no validation runs.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if !found {
		return cfg, nil
	}

	if err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate runs struct-tag validation over cfg.
func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}

// Save writes cfg as YAML to path, creating parent directories as
// needed. Config files may carry secrets (JWT signing key), hence 0600.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// DefaultConfigPath returns the path Load consults when no explicit
// config file is given.
func DefaultConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file already exists at
// DefaultConfigPath.
func DefaultConfigExists() bool {
	_, err := os.Stat(DefaultConfigPath())
	return err == nil
}

// Init writes a sample configuration built from DefaultConfig to path
// (or DefaultConfigPath if empty), refusing to overwrite an existing
// file unless force is set.
func Init(path string, force bool) (string, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}
	if err := Save(DefaultConfig(), path); err != nil {
		return "", err
	}
	return path, nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("CONFD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(defaultConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read config file: %w", err)
	}
	return true, nil
}

func defaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "confd")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "confd")
}
