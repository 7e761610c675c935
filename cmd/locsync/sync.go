package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/goliatone/go-locsync"
	"github.com/goliatone/go-locsync/cmd/locsync/internal/bootstrap"
	"github.com/goliatone/go-locsync/internal/domain"
	"github.com/goliatone/go-locsync/internal/orchestrator"
	"github.com/goliatone/go-locsync/internal/textutil"
	"github.com/spf13/cobra"
)

const (
	messageSelectorRequired = "Either --scope or --item-ids must be provided"
	messageSelectorConflict = "Cannot specify both --scope and --item-ids"
)

type syncFlags struct {
	tenantID     string
	scope        string
	fields       []string
	itemIDs      []string
	targetLangs  []string
	sourceLang   string
	inline       bool
	dryRun       bool
	asJSON       bool
	all          bool
	skipExisting bool
	noSEO        bool
	timeout      time.Duration
}

func newSyncCommand(state *cliState) *cobra.Command {
	flags := &syncFlags{}
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Translate captured source texts into target languages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd, state, flags)
		},
	}
	cmd.Flags().StringVar(&flags.tenantID, "tenant", "", "Tenant identifier")
	cmd.Flags().StringVar(&flags.scope, "scope", "", "Scope selector, matching the scope and its children")
	cmd.Flags().StringSliceVar(&flags.fields, "fields", nil, "Field keys to translate (defaults to configured fields)")
	cmd.Flags().StringSliceVar(&flags.itemIDs, "item-ids", nil, "Translatable key ids to translate")
	cmd.Flags().StringSliceVar(&flags.targetLangs, "target-langs", nil, "Target languages")
	cmd.Flags().StringVar(&flags.sourceLang, "source-lang", "", "Source language (defaults to the configured source locale)")
	cmd.Flags().BoolVar(&flags.inline, "sync", false, "Run the job inline instead of queueing it")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Only estimate the number of translations")
	cmd.Flags().BoolVar(&flags.asJSON, "json", false, "Print JSON output")
	cmd.Flags().BoolVar(&flags.all, "all", false, "Retranslate targets that are already up to date")
	cmd.Flags().BoolVar(&flags.skipExisting, "skip-existing", false, "Never overwrite an existing target translation")
	cmd.Flags().BoolVar(&flags.noSEO, "no-seo", false, "Skip SEO fields")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "Deadline for inline runs")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func runSync(cmd *cobra.Command, state *cliState, flags *syncFlags) error {
	ids, err := bootstrap.ParseUUIDs(flags.itemIDs)
	if err != nil {
		return err
	}
	scope := flags.scope
	switch {
	case scope == "" && len(ids) == 0:
		return errors.New(messageSelectorRequired)
	case scope != "" && len(ids) > 0:
		return errors.New(messageSelectorConflict)
	}
	targets := textutil.NormalizeLocales(flags.targetLangs)
	if len(targets) == 0 {
		return errors.New(orchestrator.MessageTargetsRequired)
	}

	ctx := cmd.Context()
	resources, err := state.build(ctx)
	if err != nil {
		return err
	}
	defer resources.Close()

	cfg := resources.Config
	msg := locsync.SyncCommand{
		TenantID:           flags.tenantID,
		Scope:              scope,
		ItemIDs:            ids,
		SourceLang:         flags.sourceLang,
		TargetLangs:        targets,
		OnlyMissing:        cfg.Translation.OnlyMissing && !flags.all,
		IncludeSEO:         cfg.Translation.IncludeSEO && !flags.noSEO,
		SkipIfTargetExists: cfg.Translation.SkipIfTargetExists || flags.skipExisting,
		Inline:             flags.inline,
	}
	if msg.SourceLang == "" {
		msg.SourceLang = cfg.SourceLocale
	}
	if len(flags.fields) > 0 {
		msg.Fields = flags.fields
	} else if scope != "" {
		msg.Fields = cfg.Translation.Fields
	}

	out := cmd.OutOrStdout()
	if flags.dryRun {
		estimate, err := resources.Module.Estimate(ctx, msg)
		if err != nil {
			return err
		}
		if flags.asJSON {
			return printJSON(out, estimate)
		}
		fmt.Fprintf(out, "Estimated %d translations\n", estimate.Estimated)
		return nil
	}

	if flags.inline && flags.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flags.timeout)
		defer cancel()
	}

	handle, err := resources.Module.Sync(ctx, msg)
	if err != nil {
		if domain.HasTextCode(err, domain.TextCodeTranslationTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return errors.New(domain.MessageTranslationTimeout)
		}
		return err
	}

	if !flags.inline {
		if flags.asJSON {
			return printJSON(out, map[string]string{
				"job_id":  handle.JobID.String(),
				"task_id": handle.TaskID,
			})
		}
		fmt.Fprintf(out, "Job %s queued (task %s)\n", handle.JobID, handle.TaskID)
		return nil
	}

	stats := orchestrator.NewStats()
	if handle.Job != nil && handle.Job.Stats != nil {
		stats = *handle.Job.Stats
	}
	if flags.asJSON {
		return printJSON(out, stats)
	}
	printReport(cmd, handle.JobID.String(), stats)
	return nil
}

func printReport(cmd *cobra.Command, jobID string, stats orchestrator.Stats) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job %s done\n", jobID)
	fmt.Fprintf(out, "Processed: %d\n", stats.Processed)
	fmt.Fprintf(out, "Skipped: %d\n", stats.Skipped)
	for _, lang := range sortedKeys(stats.PerLang) {
		fmt.Fprintf(out, "  %s: %d\n", lang, stats.PerLang[lang])
	}
	for _, origin := range sortedKeys(stats.OriginBreakdown) {
		fmt.Fprintf(out, "  origin %s: %d\n", origin, stats.OriginBreakdown[origin])
	}
	if len(stats.Errors) > 0 {
		fmt.Fprintf(out, "Errors: %d\n", len(stats.Errors))
		for _, msg := range stats.Errors {
			fmt.Fprintf(out, "  - %s\n", msg)
		}
	}
}

func sortedKeys(values map[string]int) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
