package config

import "time"

// DefaultConfig returns the configuration used when no config file is
// found, mirroring the teacher's GetDefaultConfig.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
			Output: "stdout",
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
			ServiceName:  "confd",
		},
		ShutdownTimeout: 10 * time.Second,
		Datastore: DatastoreConfig{
			Dir:          "/var/lib/confd/datastores",
			Format:       "xml",
			Pretty:       true,
			CacheEnabled: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9100",
			Path:    "/metrics",
		},
		Plugin: PluginConfig{
			Dir:          "/var/lib/confd/plugins",
			Pattern:      "*.so",
			WatchEnabled: false,
			CacheDir:     "/var/lib/confd/plugins/.cache",
		},
		Backup: BackupConfig{
			Enabled:  false,
			Interval: 1 * time.Hour,
			DBs:      []string{"running"},
		},
		Audit: AuditConfig{
			Backend:    "sqlite",
			SQLitePath: "/var/lib/confd/audit.db",
		},
		Listen: ListenConfig{
			IPCNetwork: "unix",
			IPCAddress: "/var/run/confd/confd.sock",
		},
	}
}
