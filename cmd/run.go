package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/conveyci/convey/config"
	"github.com/conveyci/convey/internal/tui"
	"github.com/conveyci/convey/observe"
	"github.com/conveyci/convey/pipeline"
	"github.com/conveyci/convey/types"
	"github.com/conveyci/convey/validate"
)

var (
	runBranch  string
	runCommit  string
	runRuntime string
	runPlain   bool
	runDryRun  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline once for a branch and commit",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runBranch, "branch", "main", "branch being built")
	runCmd.Flags().StringVar(&runCommit, "commit", "", "commit SHA being built (required)")
	runCmd.Flags().StringVar(&runRuntime, "runtime", "auto", "container runtime: auto, docker, or podman")
	runCmd.Flags().BoolVar(&runPlain, "plain", false, "log progress as JSON lines instead of the TUI")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "validate and print the stage plan without executing")
	runCmd.MarkFlagRequired("commit") //nolint:errcheck
}

func runRun(cmd *cobra.Command, args []string) error {
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

	if runDryRun {
		return printPlan(cfg)
	}

	parts, err := assembleRuntime(cfg, filepath.Dir(cfgPath), runRuntime)
	if err != nil {
		return err
	}

	run, err := newRun(parts, runBranch, runCommit)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nAborting run...")
		cancel()
	}()

	if runPlain || !term.IsTerminal(int(os.Stdout.Fd())) {
		execErr := executeAndRecord(ctx, parts, run, &observe.LogEmitter{Logger: parts.logger})
		printSummary(run)
		if execErr != nil {
			return fmt.Errorf("run #%d %s: %w", run.Context.Number, run.Status, execErr)
		}
		return nil
	}

	return runWithTUI(ctx, parts, run)
}

// runWithTUI executes the run with a live progress view. Events flow from
// the executor to the view; the view exits when the channel closes.
func runWithTUI(ctx context.Context, parts *runtimeParts, run *pipeline.Run) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := observe.NewChannelEmitter(64)

	names := make([]string, 0, len(run.Stages))
	for _, s := range run.Stages {
		names = append(names, s.Name)
	}
	model := tui.NewRunModel(
		tui.DetectTheme(themeOverride),
		ch.C,
		parts.cfg.Pipeline,
		run.Context.Number,
		run.Context.Branch,
		run.Context.Commit,
		names,
	).OnInterrupt(cancel)
	prog := tea.NewProgram(model)

	errCh := make(chan error, 1)
	go func() {
		defer ch.Close()
		errCh <- executeAndRecord(ctx, parts, run, observe.MultiEmitter{
			ch,
			&observe.LogEmitter{Logger: parts.logger},
		})
	}()

	_, viewErr := prog.Run()

	// The view may exit before the run is terminal (ctrl+c or a render
	// error); cancel so the executor aborts and releases environments.
	cancel()
	execErr := <-errCh
	if viewErr != nil {
		return fmt.Errorf("rendering progress: %w", viewErr)
	}
	if execErr != nil {
		return fmt.Errorf("run #%d %s: %w", run.Context.Number, run.Status, execErr)
	}
	fmt.Printf("run #%d Succeeded (%s)\n", run.Context.Number, run.Context.DeployRef())
	return nil
}

// printSummary writes the per-stage outcome after a plain-mode run.
func printSummary(run *pipeline.Run) {
	fmt.Printf("run #%d %s\n", run.Context.Number, run.Status)
	for _, res := range run.Results {
		line := fmt.Sprintf("  %-10s %s", res.Name, res.Status)
		if res.Attempts > 1 {
			line += fmt.Sprintf(" (attempts: %d)", res.Attempts)
		}
		if res.Duration > 0 {
			line += " " + res.Duration.Round(time.Millisecond).String()
		}
		fmt.Println(line)
	}
	if ref := run.Context.DeployRef(); ref != "" && run.Status == pipeline.StatusSucceeded {
		fmt.Printf("  deployed: %s\n", ref)
	}
}

// printPlan writes the resolved stage plan without acquiring anything.
func printPlan(cfg *types.PipelineConfig) error {
	refs := cfg.Stages
	if len(refs) == 0 {
		refs = types.DefaultStages()
	}

	fmt.Printf("pipeline: %s\n", cfg.Pipeline)
	fmt.Printf("repository: %s\n", cfg.Repository)
	for _, ref := range refs {
		image := cfg.Environment.Image
		if ref.Environment != nil && ref.Environment.Image != "" {
			image = ref.Environment.Image
		}
		line := fmt.Sprintf("  %s (%s) image=%s", ref.Name, ref.Action, image)
		if len(ref.Secrets) > 0 {
			line += fmt.Sprintf(" secrets=%v", ref.Secrets)
		}
		if ref.Retry.MaxAttempts > 1 {
			line += fmt.Sprintf(" attempts=%d", ref.Retry.MaxAttempts)
		}
		fmt.Println(line)
	}
	return nil
}
