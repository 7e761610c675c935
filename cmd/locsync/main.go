package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/goliatone/go-locsync/cmd/locsync/internal/bootstrap"
	"github.com/spf13/cobra"
)

var moduleBuilder = bootstrap.BuildModule

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type cliState struct {
	envFile   string
	envPrefix string
}

func (s *cliState) build(ctx context.Context) (*bootstrap.Resources, error) {
	return moduleBuilder(ctx, bootstrap.Options{
		EnvFile:   s.envFile,
		EnvPrefix: s.envPrefix,
	})
}

func run(ctx context.Context, args []string, out io.Writer) error {
	root := newRootCommand(&cliState{})
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(out)
	return root.ExecuteContext(ctx)
}

func newRootCommand(state *cliState) *cobra.Command {
	root := &cobra.Command{
		Use:           "locsync",
		Short:         "Translation synchronization pipeline",
		Long:          "Captures source texts, translates them into target languages through LLM providers and keeps embeddings in sync.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&state.envFile, "env-file", ".env", "Path to a dotenv file loaded before configuration")
	root.PersistentFlags().StringVar(&state.envPrefix, "env-prefix", bootstrap.DefaultEnvPrefix, "Prefix of configuration environment variables")

	root.AddCommand(
		newSyncCommand(state),
		newCaptureCommand(state),
		newVectorizeCommand(state),
		newWorkerCommand(state),
		newMigrateCommand(state),
	)
	return root
}

func printJSON(out io.Writer, value any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
