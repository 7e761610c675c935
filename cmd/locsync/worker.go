package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newWorkerCommand(state *cliState) *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Process queued translation jobs and embedding sweeps",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			resources, err := state.build(ctx)
			if err != nil {
				return err
			}
			defer resources.Close()

			worker := resources.Module.Worker()
			if once {
				processed, err := worker.Process(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Processed %d tasks\n", processed)
				return nil
			}

			resources.Logger.Info("worker.starting", "poll_interval", resources.Config.Jobs.PollInterval.String())
			return worker.Run(ctx, resources.Config.Jobs.PollInterval)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "Process the due tasks once and exit")
	return cmd
}
