package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conveyci/convey/config"
	"github.com/conveyci/convey/observe"
	"github.com/conveyci/convey/pipeline"
	"github.com/conveyci/convey/validate"
	"github.com/conveyci/convey/webhook"
)

var (
	servePort    int
	serveRuntime string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Listen for push webhooks and run the pipeline on each delivery",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8484, "port for the webhook listener")
	serveCmd.Flags().StringVar(&serveRuntime, "runtime", "auto", "container runtime: auto, docker, or podman")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfgPath, err := resolveConfigPath()
	if err != nil {
		return err
	}

	cfg, err := config.LoadPipelineConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	result := validate.ValidatePipelineConfig(cfg)
	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "WARNING: %s\n", w)
	}
	if !result.IsValid() {
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", e)
		}
		return fmt.Errorf("config validation failed: %d error(s)", len(result.Errors))
	}

	parts, err := assembleRuntime(cfg, filepath.Dir(cfgPath), serveRuntime)
	if err != nil {
		return err
	}

	srv := webhook.NewServer(webhook.ServerConfig{
		Port:   servePort,
		Logger: parts.logger,
		Runner: func(ctx context.Context, branch, commit string) (int, error) {
			run, err := newRun(parts, branch, commit)
			if err != nil {
				return 0, err
			}
			execErr := executeAndRecord(ctx, parts, run, &observe.LogEmitter{Logger: parts.logger})
			if execErr != nil && run.Status != pipeline.StatusAborted {
				return run.Context.Number, execErr
			}
			return run.Context.Number, nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		cancel()
	}()

	return srv.Start(ctx)
}
