package main

import (
	"fmt"

	"github.com/goliatone/go-locsync"
	"github.com/goliatone/go-locsync/cmd/locsync/internal/bootstrap"
	"github.com/spf13/cobra"
)

func newCaptureCommand(state *cliState) *cobra.Command {
	var (
		tenantID string
		scope    string
		lang     string
		reviewer string
		pairs    []string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Record source texts for a scope",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fields, err := bootstrap.ParseFields(pairs)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			resources, err := state.build(ctx)
			if err != nil {
				return err
			}
			defer resources.Close()

			if lang == "" {
				lang = resources.Config.SourceLocale
			}
			result, err := resources.Module.Capture(ctx, locsync.CaptureCommand{
				TenantID: tenantID,
				Scope:    scope,
				Lang:     lang,
				Fields:   fields,
				Reviewer: reviewer,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, map[string]int{
					"keys_created": result.KeysCreated,
					"created":      result.Created,
					"updated":      result.Updated,
					"unchanged":    result.Unchanged,
				})
			}
			fmt.Fprintf(out, "Captured %d fields (%d new keys, %d created, %d updated, %d unchanged)\n",
				len(fields), result.KeysCreated, result.Created, result.Updated, result.Unchanged)
			return nil
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant identifier")
	cmd.Flags().StringVar(&scope, "scope", "", "Scope the fields belong to")
	cmd.Flags().StringVar(&lang, "lang", "", "Language of the source texts (defaults to the configured source locale)")
	cmd.Flags().StringVar(&reviewer, "reviewer", "", "Reviewer recorded on the captured texts")
	cmd.Flags().StringArrayVar(&pairs, "field", nil, "Field as key=value, repeatable")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON output")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("scope")
	_ = cmd.MarkFlagRequired("field")
	return cmd
}
