package main

import (
	"fmt"
	"os"
	"time"

	"toolroute/internal/browser"
	"toolroute/internal/config"

	"github.com/spf13/cobra"
)

func newBridge(cfg *config.Config) *browser.Bridge {
	return browser.NewBridge(browser.BridgeConfig{
		ProfileDir: cfg.Browser.ProfileDir,
		Headless:   cfg.Browser.Headless,
		Timeout:    time.Duration(cfg.Browser.TimeoutSeconds) * time.Second,
		Logger:     logger.With("component", "browser"),
	})
}

func snapshotCmd() *cobra.Command {
	var outPath, query string

	cmd := &cobra.Command{
		Use:   "snapshot [url]",
		Short: "Capture a page's accessibility tree as a text dump",
		Long: `Loads the page in headless Chrome and prints its accessibility tree in the
labeled-node dump format. With --query the dump is condensed into a reply instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			dump, err := newBridge(a.cfg).Snapshot(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if outPath != "" {
				if err := os.WriteFile(outPath, []byte(dump+"\n"), 0o644); err != nil {
					return fmt.Errorf("write dump: %w", err)
				}
				logger.Info("snapshot saved", "file", outPath, "bytes", len(dump))
			}
			if query != "" {
				fmt.Fprintln(cmd.OutOrStdout(), a.engine.FormatAnswer(query, dump, chosenCapability(cmd.Context(), a, "chromedp")))
				return nil
			}
			if outPath == "" {
				fmt.Fprintln(cmd.OutOrStdout(), dump)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the dump to a file")
	cmd.Flags().StringVarP(&query, "query", "q", "", "answer this query from the snapshot")
	return cmd
}

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login [url]",
		Short: "Open a visible browser to sign in to a site",
		Long:  "Opens a visible Chrome window for you to log in. Cookies are saved for later headless snapshots.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _ := loadConfig()
			return newBridge(cfg).Login(cmd.Context(), args[0])
		},
	}
}
