package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/config"
	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/document"
	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/document/memstore"
	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/document/sqlstore"
	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/fixtureunit"
	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/logging"
	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/meta"
	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/testlog"
	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/testrecords"
)

// Units holds fixture units registered from Go before Execute. They take
// precedence over fixture files of the same doctype.
var Units = fixtureunit.NewRegistry()

// runtime wires config, metadata, the document store and the generator for
// one command invocation.
type runtime struct {
	cfg       *config.Config
	logger    *slog.Logger
	metas     *meta.Registry
	store     document.Store
	log       *testlog.Log
	registry  *prometheus.Registry
	generator *testrecords.Generator

	closeStore func() error
	tempSite   string
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}
	return cfg, nil
}

func newRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	metas, err := meta.LoadDir(cfg.DoctypesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load doctypes: %w", err)
	}

	rt := &runtime{
		cfg:      cfg,
		logger:   logger,
		metas:    metas,
		registry: prometheus.NewRegistry(),
	}

	sitePath := cfg.SitePath
	if cfg.Database.Provider == config.ProviderMemory {
		// Nothing survives the process, so the site's log must not either.
		if rt.tempSite, err = os.MkdirTemp("", "flash-fixtures-*"); err != nil {
			return nil, fmt.Errorf("failed to create scratch site: %w", err)
		}
		sitePath = rt.tempSite
		rt.store = memstore.New(metas)
		rt.closeStore = func() error { return nil }
	} else {
		dbURL, err := cfg.GetDatabaseURL()
		if err != nil {
			return nil, err
		}
		store, err := sqlstore.Open(ctx, sqlstore.Options{
			Provider: cfg.Database.Provider,
			Driver:   cfg.Database.Driver,
			URL:      dbURL,
		}, metas)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		rt.store = store
		rt.closeStore = store.Close
	}

	rt.log = testlog.Open(sitePath, logger)
	loader := fixtureunit.NewLoader(cfg.DoctypesDir, logger)
	rt.generator = testrecords.New(testrecords.Config{
		Metas:   metas,
		Store:   rt.store,
		Units:   unitProvider(loader),
		Records: loader,
		Log:     rt.log,
		Metrics: testrecords.NewMetrics(rt.registry),
		Logger:  logger,
	})
	return rt, nil
}

// unitProvider puts units registered from Go ahead of fixture files.
func unitProvider(files fixtureunit.Provider) fixtureunit.Provider {
	return fixtureunit.Chain{Units, files}
}

// close commits when the command succeeded and always releases the store.
func (rt *runtime) close(ctx context.Context, commit bool) error {
	var commitErr error
	if commit {
		commitErr = rt.store.Commit(ctx)
	}
	closeErr := rt.closeStore()
	if rt.tempSite != "" {
		os.RemoveAll(rt.tempSite)
	}
	if commitErr != nil {
		return fmt.Errorf("failed to commit: %w", commitErr)
	}
	return closeErr
}

// printOutcomes prints the record counters gathered during the run.
func (rt *runtime) printOutcomes() {
	families, err := rt.registry.Gather()
	if err != nil {
		color.Yellow("⚠️  Could not gather metrics: %v", err)
		return
	}

	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var doctype, outcome string
			for _, l := range m.GetLabel() {
				switch l.GetName() {
				case "doctype":
					doctype = l.GetValue()
				case "outcome":
					outcome = l.GetValue()
				}
			}
			lines = append(lines, fmt.Sprintf("   %-30s %-10s %d", doctype, outcome, int(m.GetCounter().GetValue())))
		}
	}
	if len(lines) == 0 {
		return
	}

	sort.Strings(lines)
	fmt.Println()
	color.Cyan("📈 Record outcomes:")
	for _, line := range lines {
		fmt.Println(line)
	}
}
