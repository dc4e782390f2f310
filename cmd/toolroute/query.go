package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"toolroute/internal/domain"

	"github.com/spf13/cobra"
)

func planCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "plan [query]",
		Short:   "Build a workflow plan for a query",
		Example: `  toolroute plan "Find the venue for Iration in San Diego and then use Google Maps to find the closest car rental"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			plan := a.engine.PlanWorkflow(strings.Join(args, " "))
			return printJSON(cmd.OutOrStdout(), plan)
		},
	}
}

func routeCmd() *cobra.Command {
	var category, hint string

	cmd := &cobra.Command{
		Use:   "route [step text]",
		Short: "List candidate capabilities for one workflow step",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			step := domain.WorkflowStep{
				Text:             strings.Join(args, " "),
				RequiredCategory: domain.ParseCategory(category),
				ToolHint:         hint,
			}
			refs := a.engine.SelectCapabilitiesForStep(step)
			if len(refs) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "no capability available for this step")
				return nil
			}
			return printJSON(cmd.OutOrStdout(), refs)
		},
	}
	cmd.Flags().StringVar(&category, "category", "unclassified", "step category (location, live, news, orchestration)")
	cmd.Flags().StringVar(&hint, "hint", "", "preferred tool named in the step")
	return cmd
}

func answerCmd() *cobra.Command {
	var query, dumpPath, capability string

	cmd := &cobra.Command{
		Use:   "answer",
		Short: "Condense a raw tool output dump into a reply",
		Long:  "Reads a labeled-node dump from --dump (or stdin with '-') and prints the user-facing reply for --query.",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), dumpPath)
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			chosen := chosenCapability(cmd.Context(), a, capability)
			fmt.Fprintln(cmd.OutOrStdout(), a.engine.FormatAnswer(query, raw, chosen))
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "the user query the dump answers")
	cmd.Flags().StringVarP(&dumpPath, "dump", "d", "-", "dump file path, or - for stdin")
	cmd.Flags().StringVar(&capability, "capability", "", "server ID of the capability that produced the dump")
	return cmd
}

func readInput(stdin io.Reader, path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read dump: %w", err)
	}
	return string(data), nil
}

// chosenCapability looks serverID up in the registry. Unknown IDs still name
// the source in generic replies.
func chosenCapability(ctx context.Context, a *app, serverID string) domain.CapabilityDescriptor {
	if serverID == "" {
		return domain.CapabilityDescriptor{}
	}
	if d, ok := a.engine.Catalog().Snapshot().Get(serverID); ok {
		return d
	}
	if d, err := a.store.Get(ctx, serverID); err == nil {
		return d
	}
	return domain.CapabilityDescriptor{ServerID: serverID}
}
