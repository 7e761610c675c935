package main

import (
	"fmt"

	"github.com/goliatone/go-locsync"
	"github.com/spf13/cobra"
)

func newVectorizeCommand(state *cliState) *cobra.Command {
	var (
		tenantID string
		scopes   []string
		inline   bool
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "vectorize",
		Short: "Embed stored translations that have no vector yet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			resources, err := state.build(ctx)
			if err != nil {
				return err
			}
			defer resources.Close()

			outcome, err := resources.Module.Vectorize(ctx, locsync.VectorizeCommand{
				TenantID: tenantID,
				Scopes:   scopes,
				Inline:   inline,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if outcome.Task != nil {
				if asJSON {
					return printJSON(out, map[string]string{"task_id": outcome.Task.ID})
				}
				fmt.Fprintf(out, "Sweep queued (task %s)\n", outcome.Task.ID)
				return nil
			}
			if outcome.Result == nil {
				return nil
			}
			if asJSON {
				return printJSON(out, outcome.Result)
			}
			fmt.Fprintf(out, "Vectorized %d translations (%d errors)\n", outcome.Result.Vectorized, outcome.Result.Errors)
			return nil
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant identifier")
	cmd.Flags().StringSliceVar(&scopes, "scopes", nil, "Scopes to sweep")
	cmd.Flags().BoolVar(&inline, "sync", false, "Run the sweep inline instead of queueing it")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON output")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("scopes")
	return cmd
}
