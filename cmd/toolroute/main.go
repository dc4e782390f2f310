package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"toolroute/internal/bus"
	"toolroute/internal/catalog"
	"toolroute/internal/config"
	"toolroute/internal/engine"
	"toolroute/internal/metrics"
	"toolroute/internal/registry"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "toolroute",
		Short: "toolroute: intent routing and response extraction for tool servers",
		Long: `toolroute turns a natural-language request into an ordered plan of tool
invocations, picks a registered capability for each step, and condenses raw
page dumps returned by those tools into a short answer.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, _ := loadConfig()
			return setupLogger(cfg)
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.toolroute/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(planCmd())
	root.AddCommand(routeCmd())
	root.AddCommand(answerCmd())
	root.AddCommand(catalogCmd())
	root.AddCommand(snapshotCmd())
	root.AddCommand(loginCmd())
	root.AddCommand(configCmd())
	root.AddCommand(metricsCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(doctorCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
				return err
			}
			if err := config.Save(cfgPath, config.Defaults()); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			return nil
		},
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

// loadConfig loads the config file, falling back to defaults when it is
// missing. The returned error is only informational.
func loadConfig() (*config.Config, error) {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err == nil {
		return cfg, nil
	}
	cfg = config.Defaults()
	cfg.Catalog.DBPath = config.ExpandPath(cfg.Catalog.DBPath)
	cfg.Browser.ProfileDir = config.ExpandPath(cfg.Browser.ProfileDir)
	return cfg, err
}

func setupLogger(cfg *config.Config) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.General.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stderr
	if cfg.General.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.General.LogFile), 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.General.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(os.Stderr, f)
	}
	logger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// app bundles an engine whose catalog mirrors the registry database.
// Routing counters are loaded from the database on open and the increments
// made while the app ran are added back on Close.
type app struct {
	cfg      *config.Config
	engine   *engine.Engine
	store    *registry.Store
	registry *registry.Registry
	baseline map[string]int64
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		logger.Debug("config not found, using defaults", "path", resolveConfigPath(), "err", err)
	}

	events := bus.NewEventBus(logger.With("component", "bus"))
	events.On("*", func(ev bus.Event) {
		logger.Debug("routing event",
			"type", ev.Type,
			"source", ev.Source,
			"plan", ev.PlanID,
			"server_id", ev.ServerID,
			"detail", ev.Detail,
			"count", ev.Count,
		)
	})

	eng := engine.New(cfg, logger, engine.WithEvents(events))
	store, err := registry.OpenStore(cfg.Catalog.DBPath, logger.With("component", "registry"))
	if err != nil {
		return nil, fmt.Errorf("registry store: %w", err)
	}
	reg := registry.New(store, eng, logger.With("component", "registry"))

	if totals, err := store.MetricTotals(ctx); err != nil {
		logger.Warn("persisted metrics not loaded", "err", err)
	} else {
		metrics.Collector.Restore(totals)
	}
	baseline := metrics.Collector.Totals()

	if cfg.Catalog.File != "" {
		descs, err := catalog.LoadFile(cfg.Catalog.File)
		if err != nil {
			store.Close()
			return nil, err
		}
		if _, err := reg.Import(ctx, descs); err != nil {
			logger.Warn("catalog file partially imported", "file", cfg.Catalog.File, "err", err)
		}
	} else if err := reg.Sync(ctx); err != nil {
		logger.Warn("catalog sync reported rejected capabilities", "err", err)
	}

	return &app{cfg: cfg, engine: eng, store: store, registry: reg, baseline: baseline}, nil
}

// flushMetrics persists counter increments made since the last flush.
func (a *app) flushMetrics(ctx context.Context) {
	now := metrics.Collector.Totals()
	if err := a.store.AddMetricTotals(ctx, metrics.Delta(now, a.baseline)); err != nil {
		logger.Warn("metrics not persisted", "err", err)
		return
	}
	a.baseline = now
}

func (a *app) Close() error {
	a.flushMetrics(context.Background())
	return a.store.Close()
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
