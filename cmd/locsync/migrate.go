package main

import (
	"fmt"

	"github.com/goliatone/go-locsync"
	"github.com/spf13/cobra"
)

func newMigrateCommand(state *cliState) *cobra.Command {
	var (
		rollback bool
		status   bool
	)
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded SQL migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			resources, err := state.build(ctx)
			if err != nil {
				return err
			}
			defer resources.Close()

			out := cmd.OutOrStdout()
			db := resources.Module.Container().BunDB()
			if db == nil {
				fmt.Fprintln(out, "Memory storage needs no migrations")
				return nil
			}

			switch {
			case status:
				list, err := locsync.MigrationsStatus(ctx, db)
				if err != nil {
					return err
				}
				for _, migration := range list {
					label := "pending"
					if migration.Applied {
						label = "applied"
					}
					fmt.Fprintf(out, "%s %s\n", migration.Name, label)
				}
				return nil
			case rollback:
				names, err := locsync.RollbackMigrations(ctx, db)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Rolled back %d migrations\n", len(names))
				return nil
			}

			names, err := resources.Module.Migrate(ctx)
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Fprintln(out, "No pending migrations")
				return nil
			}
			fmt.Fprintf(out, "Applied %d migrations\n", len(names))
			for _, name := range names {
				fmt.Fprintf(out, "  %s\n", name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&rollback, "rollback", false, "Revert the last applied migration group")
	cmd.Flags().BoolVar(&status, "status", false, "List migrations and their state")
	return cmd
}
