package main

import (
	"toolroute/internal/metrics"

	"github.com/spf13/cobra"
)

func metricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Print routing metrics in Prometheus text format",
		Long: `Prints the routing counters accumulated by every toolroute command run
against the configured registry database. Use 'toolroute serve' to expose
them over HTTP.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return metrics.Collector.WriteText(cmd.OutOrStdout())
		},
	}
}
