package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"toolroute/internal/catalog"
	"toolroute/internal/config"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on the toolroute installation",
		Long: `Verifies that the configuration, registry database, catalog file and
Chrome installation are usable. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("toolroute doctor v%s\n\n", version)

			passed, failed, warned := 0, 0, 0

			cfg, err := config.Load(cfgPath)
			switch {
			case errors.Is(err, fs.ErrNotExist):
				printWarn("Config file", fmt.Sprintf("not found at %s (using defaults)", cfgPath))
				warned++
				cfg, _ = loadConfig()
			case err != nil:
				printFail("Config validation", err.Error())
				failed++
				cfg, _ = loadConfig()
			default:
				printPass("Config file", cfgPath)
				passed++
			}

			if err := checkDatabase(cfg.Catalog.DBPath); err != nil {
				printFail("Registry database", err.Error())
				failed++
			} else {
				printPass("Registry database", cfg.Catalog.DBPath)
				passed++
			}

			if cfg.Catalog.File != "" {
				if descs, err := catalog.LoadFile(cfg.Catalog.File); err != nil {
					printFail("Catalog file", err.Error())
					failed++
				} else {
					printPass("Catalog file", fmt.Sprintf("%s (%d capabilities)", cfg.Catalog.File, len(descs)))
					passed++
				}
			}

			if env := cfg.Routing.DefaultCapabilityEnv; os.Getenv(env) != "" {
				printPass("Default capability", fmt.Sprintf("%s=%s", env, os.Getenv(env)))
				passed++
			}

			if path, ok := findChrome(); ok {
				printPass("Chrome", path)
				passed++
			} else {
				printWarn("Chrome", "not found in PATH; snapshot and login will fail")
				warned++
			}

			if cfg.General.LogFile != "" {
				if err := os.MkdirAll(filepath.Dir(cfg.General.LogFile), 0o755); err != nil {
					printWarn("Log file", fmt.Sprintf("cannot create log directory: %v", err))
					warned++
				} else {
					printPass("Log file", cfg.General.LogFile)
					passed++
				}
			}

			fmt.Printf("\nResults: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
}

func findChrome() (string, bool) {
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "chrome"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, true
		}
	}
	return "", false
}

func checkDatabase(dbPath string) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("cannot create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("cannot open: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("cannot ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS _doctor_test (id INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	db.ExecContext(ctx, "DROP TABLE IF EXISTS _doctor_test")
	return nil
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}
