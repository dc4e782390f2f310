package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"toolroute/internal/catalog"

	"github.com/spf13/cobra"
)

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage registered capabilities",
		Long:  "Import, list, export and remove capability descriptors kept in the registry database.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "import [file.yaml]",
		Short: "Import capabilities from a YAML catalog file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			descs, err := catalog.LoadFile(args[0])
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.registry.Import(cmd.Context(), descs)
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d of %d capabilities\n", n, len(descs))
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			descs := a.engine.Catalog().Snapshot().All()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SERVER ID\tNAME\tCATEGORY\tTOOLS")
			for _, d := range descs {
				tools := make([]string, 0, len(d.Tools))
				for _, t := range d.Tools {
					tools = append(tools, t.Name)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.ServerID, d.DisplayName, d.Category, strings.Join(tools, ","))
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "export [file.yaml]",
		Short: "Write registered capabilities to a YAML catalog file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			descs, err := a.registry.List(cmd.Context())
			if err != nil {
				return err
			}
			if err := catalog.SaveFile(args[0], descs); err != nil {
				return err
			}
			logger.Info("catalog exported", "file", args[0], "capabilities", len(descs))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove [server-id]",
		Short: "Remove a registered capability",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return a.registry.Remove(cmd.Context(), args[0])
		},
	})

	var limit int
	history := &cobra.Command{
		Use:   "history",
		Short: "Show recent registry changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			events, err := a.store.Events(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, e := range events {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-6s %s\n", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Action, e.ServerID)
			}
			return nil
		},
	}
	history.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries")
	cmd.AddCommand(history)

	return cmd
}
