package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/yangconf/confd/internal/audit"
	"github.com/yangconf/confd/internal/backup"
	"github.com/yangconf/confd/internal/config"
	"github.com/yangconf/confd/internal/datastore"
	"github.com/yangconf/confd/internal/logger"
	"github.com/yangconf/confd/internal/metrics"
	"github.com/yangconf/confd/internal/pluginreg"
	"github.com/yangconf/confd/internal/schema"
	"github.com/yangconf/confd/internal/telemetry"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = `confd - YANG/NETCONF configuration agent

Usage:
  confd <command> [flags]

Commands:
  init     Initialize a sample configuration file
  start    Start the configuration agent
  version  Show version information

Flags:
  --config string    Path to config file (default: $XDG_CONFIG_HOME/confd/config.yaml)
  --force            Force overwrite existing config file (init command only)

Examples:
  confd init
  confd start
  confd start --config /etc/confd/config.yaml
  CONFD_LOGGING_LEVEL=DEBUG confd start
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		runInit()
	case "start":
		runStart()
	case "help", "--help", "-h":
		fmt.Print(usage)
		os.Exit(0)
	case "version", "--version", "-v":
		fmt.Printf("confd %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func runInit() {
	fs := newFlagSet("init")
	configFile := fs.String("config", "", "Path to config file")
	force := fs.Bool("force", false, "Force overwrite existing config file")
	mustParse(fs)

	path, err := config.Init(*configFile, *force)
	if err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}
	fmt.Printf("Configuration file created at: %s\n", path)
	fmt.Println("Start the agent with: confd start")
}

func runStart() {
	fs := newFlagSet("start")
	configFile := fs.String("config", "", "Path to config file")
	mustParse(fs)

	if *configFile == "" && !config.DefaultConfigExists() {
		fmt.Fprintf(os.Stderr, "No configuration file found at %s\n", config.DefaultConfigPath())
		fmt.Fprintln(os.Stderr, "Initialize one first: confd init")
		os.Exit(1)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Init(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.ProfilingURL != "",
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.ProfilingURL,
	})
	if err != nil {
		log.Fatalf("Failed to initialize profiling: %v", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	logger.Info("starting confd", "version", version)

	oracle := schema.NewMemoryOracle()
	engine := datastore.Connect(oracle)
	if err := applyDatastoreOptions(engine, cfg.Datastore); err != nil {
		log.Fatalf("Failed to configure datastore: %v", err)
	}

	ledger, err := audit.Open(audit.Config{
		Backend:     audit.Backend(cfg.Audit.Backend),
		SQLitePath:  cfg.Audit.SQLitePath,
		PostgresDSN: cfg.Audit.PostgresDSN,
	})
	if err != nil {
		log.Fatalf("Failed to open audit ledger: %v", err)
	}
	defer ledger.Close()
	engine.SetAuditSink(ledger)

	var backupEngine *backup.Engine
	if cfg.Backup.Enabled {
		var s3Client *backup.Client
		if cfg.Backup.S3Bucket != "" {
			s3Client, err = backup.NewClient(ctx, backup.Config{
				Bucket: cfg.Backup.S3Bucket,
				Region: cfg.Backup.S3Region,
				Prefix: cfg.Backup.S3Prefix,
			})
			if err != nil {
				log.Fatalf("Failed to initialize backup client: %v", err)
			}
		}
		backupEngine = backup.NewEngine(cfg.Datastore.Dir, s3Client)
	}

	reg := pluginreg.NewRegistry()
	if err := setupPlugins(reg, cfg.Plugin, cfg.Auth); err != nil {
		log.Fatalf("Failed to configure plugins: %v", err)
	}
	if err := reg.StartAll(ctx); err != nil {
		log.Fatalf("Failed to start plugins: %v", err)
	}
	defer reg.ExitAll(ctx)
	watchPlugins(ctx, reg, cfg.Plugin)

	coll := metrics.New()
	coll.SetPluginCount(len(reg.Names()))

	a := newAgent(engine, reg, coll, ledger, backupEngine)
	a.registerOps()
	if cfg.Backup.Enabled {
		a.scheduleBackups(cfg.Backup.DBs, cfg.Backup.Dest, cfg.Backup.Interval)
	}

	if err := a.serveIPC(cfg.Listen.IPCNetwork, cfg.Listen.IPCAddress); err != nil {
		log.Fatalf("Failed to start IPC listener: %v", err)
	}
	if cfg.Listen.NETCONFEnabled {
		if err := a.serveNETCONF(cfg.Listen.NETCONFAddress); err != nil {
			log.Fatalf("Failed to start NETCONF listener: %v", err)
		}
	}

	var httpShutdown func(context.Context) error
	if cfg.Metrics.Enabled {
		httpShutdown = serveHTTP(cfg.Metrics.Addr, a.newHTTPRouter(cfg.Metrics.Path))
		logger.Info("metrics listening", "addr", cfg.Metrics.Addr, "path", cfg.Metrics.Path)
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- a.run(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("confd is running")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		a.shutdown(shutdownCtx)
		if httpShutdown != nil {
			httpShutdown(shutdownCtx)
		}
		cancel()
		if err := <-serverDone; err != nil {
			logger.Error("event loop shutdown error", "error", err)
			os.Exit(1)
		}
		logger.Info("confd stopped gracefully")
	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("event loop error", "error", err)
			os.Exit(1)
		}
		logger.Info("confd stopped")
	}
}

func applyDatastoreOptions(engine *datastore.Engine, cfg config.DatastoreConfig) error {
	if err := os.MkdirAll(cfg.Dir, 0o700); err != nil {
		return fmt.Errorf("create datastore directory: %w", err)
	}
	if err := engine.SetOption("dir", cfg.Dir); err != nil {
		return err
	}
	if err := engine.SetOption("format", cfg.Format); err != nil {
		return err
	}
	if err := engine.SetOption("pretty", boolString(cfg.Pretty)); err != nil {
		return err
	}
	return engine.SetOption("cache", boolString(cfg.CacheEnabled))
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ExitOnError)
}

func mustParse(fs *flag.FlagSet) {
	if err := fs.Parse(os.Args[2:]); err != nil {
		log.Fatalf("Failed to parse flags: %v", err)
	}
}
