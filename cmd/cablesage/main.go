// Command cablesage discovers BMC/OOB-to-switch cabling by correlating
// inventory-reported management interfaces against switch FDB
// sightings, and creates the corresponding cables in the inventory
// once a sighting has proven stable across consecutive runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cablesage/cablesage/internal/config"
	"github.com/cablesage/cablesage/internal/correlate"
	"github.com/cablesage/cablesage/internal/fdb"
	"github.com/cablesage/cablesage/internal/inventory"
	"github.com/cablesage/cablesage/internal/logging"
	"github.com/cablesage/cablesage/internal/orchestrator"
	"github.com/cablesage/cablesage/internal/portclass"
	"github.com/cablesage/cablesage/internal/statestore"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	envFile := flag.String("env-file", "", "path to a dotenv file to load before reading configuration")
	logLevel := flag.String("log-level", "INFO", "log level: DEBUG, INFO, WARNING, ERROR")
	logFormat := flag.String("log-format", "json", "log format: text, json, kv")
	dryRun := flag.Bool("dry-run", false, "do not create cables, only log intent")
	daemon := flag.Bool("daemon", false, "run continuously on POLL_INTERVAL instead of once")
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			fmt.Fprintf(os.Stderr, "cablesage: loading env file %s: %v\n", *envFile, err)
			return 1
		}
	}

	logger, err := logging.New(*logLevel, *logFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cablesage: %v\n", err)
		return 1
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration error", zap.Error(err))
		return 1
	}
	if *dryRun {
		cfg.DryRun = true
	}

	orch, store, err := wire(cfg, logger)
	if err != nil {
		logger.Error("startup error", zap.Error(err))
		return 1
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runDaemon := *daemon || cfg.PollInterval > 0
	if runDaemon {
		orch.RunDaemon(ctx, cfg.PollInterval)
		return 0
	}

	summary, err := orch.RunOnce(ctx)
	if err != nil {
		logger.Error("run failed", zap.Error(err))
		return 1
	}
	fmt.Println(summary.String())
	if summary.Errors > 0 {
		return 2
	}
	return 0
}

func wire(cfg config.Config, logger *zap.Logger) (*orchestrator.Orchestrator, *statestore.Store, error) {
	store, err := statestore.Open(cfg.StateDBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening state store: %w", err)
	}

	invCfg := inventory.DefaultConfig()
	invCfg.URL = cfg.NetboxURL
	invCfg.Token = cfg.NetboxToken
	invCfg.VerifySSL = cfg.NetboxVerifySSL
	invCfg.SwitchesRole = cfg.SwitchesRole
	invCfg.CableStatus = cfg.CableStatus
	invCfg.DryRun = cfg.DryRun
	invClient := inventory.New(invCfg, logger.Named("inventory"))

	fdbCfg := fdb.DefaultConfig()
	fdbCfg.Credential.Community = cfg.SNMPCommunity
	fdbCfg.Credential.Version = cfg.SNMPVersion
	if cfg.SNMPTimeout > 0 {
		fdbCfg.Credential.Timeout = cfg.SNMPTimeout
	}
	if cfg.SNMPRetries > 0 {
		fdbCfg.Credential.Retries = cfg.SNMPRetries
	}
	collector := fdb.New(fdbCfg, logger.Named("fdb"))

	classifier, err := portclass.New(cfg.UplinkPorts, cfg.UplinkPatterns)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("building port classifier: %w", err)
	}

	threshold := cfg.StabilityRuns
	if threshold <= 0 {
		threshold = 1
	}
	corr := correlate.New(store, classifier, cfg.MLAGGroups, threshold, logger.Named("correlator"))

	orch := orchestrator.New(invClient, collector, corr, store, logger.Named("orchestrator"))
	return orch, store, nil
}
