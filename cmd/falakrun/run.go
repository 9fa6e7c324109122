package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/caffeineduck/falakrun/executor"
	"github.com/caffeineduck/falakrun/harness"
	"github.com/caffeineduck/falakrun/hostfunc"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var runCmd = &cobra.Command{
	Use:   "run [files...]",
	Short: "Run test programs and report exit codes",
	Long: `Run WebAssembly test programs in order and report each result.

Cases can be provided via:
  - File arguments: falakrun run a.wat b.wat
  - A suite manifest: falakrun run --suite regress.yaml
  - Nothing: the fixed Test_Files/001_hello.wat .. 010_breaks.wat list

The process exits with status 1 if any case failed or missed an expectation.`,
	Args: cobra.ArbitraryArgs,
	RunE: runRun,
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("suite", "", "YAML suite manifest")
	cmd.Flags().String("dir", ".", "Directory holding Test_Files for the default list")
	cmd.Flags().String("entry", "", "Entry point export (default: start)")
	cmd.Flags().Duration("timeout", 0, "Per-case timeout (default: 30s)")
	cmd.Flags().StringSlice("bundle", nil, "Host bundle: falak, wasi, assemblyscript (repeatable)")
	cmd.Flags().String("format", "text", "Report format: text, json, junit")
	cmd.Flags().StringP("output", "o", "", "Write the report to a file")
	cmd.Flags().Bool("echo", false, "Mirror guest output to stderr while running")
	cmd.Flags().Bool("no-color", false, "Disable colored output")
	cmd.Flags().StringSlice("mount", nil, "Mount a directory for WASI guests virtual:host:mode (repeatable)")

	// Falak runtime limits
	cmd.Flags().Int("max-handles", 0, "Max live Falak lists per case (0: unlimited)")
	cmd.Flags().Int("max-handle-size", 0, "Max elements per Falak list (0: unlimited)")
}

func buildLimits(cmd *cobra.Command) ([]harness.RunnerOption, error) {
	mounts, _ := cmd.Flags().GetStringSlice("mount")
	maxHandles, _ := cmd.Flags().GetInt("max-handles")
	maxHandleSize, _ := cmd.Flags().GetInt("max-handle-size")

	var opts []harness.RunnerOption
	for _, spec := range mounts {
		m, err := executor.ParseMount(spec)
		if err != nil {
			return nil, err
		}
		opts = append(opts, harness.WithMounts(m))
	}

	var handles []hostfunc.HandleOption
	if maxHandles > 0 {
		handles = append(handles, hostfunc.WithMaxHandles(maxHandles))
	}
	if maxHandleSize > 0 {
		handles = append(handles, hostfunc.WithMaxHandleSize(maxHandleSize))
	}
	if len(handles) > 0 {
		opts = append(opts, harness.WithHandleLimits(handles...))
	}
	return opts, nil
}

func loadCases(cmd *cobra.Command, args []string) (*harness.Suite, error) {
	suitePath, _ := cmd.Flags().GetString("suite")
	dir, _ := cmd.Flags().GetString("dir")

	switch {
	case suitePath != "" && len(args) > 0:
		return nil, fmt.Errorf("give either files or --suite, not both")
	case suitePath != "":
		return harness.LoadSuite(suitePath)
	case len(args) > 0:
		return &harness.Suite{Name: "falakrun", Cases: harness.CasesFromPaths(args...)}, nil
	default:
		return harness.DefaultSuite(dir), nil
	}
}

func buildFactory(cmd *cobra.Command, suite *harness.Suite) (hostfunc.Factory, error) {
	names, _ := cmd.Flags().GetStringSlice("bundle")
	if len(names) == 0 {
		return suite.Factory()
	}
	bundles := make([]hostfunc.Bundle, 0, len(names))
	for _, name := range names {
		b, err := hostfunc.ParseBundle(name)
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, b)
	}
	return hostfunc.NewFactory(bundles...)
}

func runRun(cmd *cobra.Command, args []string) error {
	entry, _ := cmd.Flags().GetString("entry")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")
	echo, _ := cmd.Flags().GetBool("echo")
	noColor, _ := cmd.Flags().GetBool("no-color")

	suite, err := loadCases(cmd, args)
	if err != nil {
		return err
	}
	factory, err := buildFactory(cmd, suite)
	if err != nil {
		return err
	}
	limits, err := buildLimits(cmd)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	color := !noColor && w == os.Stdout && term.IsTerminal(int(os.Stdout.Fd()))
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		defer f.Close()
		w, color = f, false
	}
	reporter, err := harness.NewReporter(format, w, color)
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true

	exec, logger, err := newExecutor(cmd)
	if err != nil {
		return err
	}
	defer exec.Close()
	defer logger.Sync()

	opts := append(suite.RunnerOptions(), harness.WithLogger(logger))
	opts = append(opts, limits...)
	if entry != "" {
		opts = append(opts, harness.WithDefaultEntry(entry))
	}
	if cmd.Flags().Changed("timeout") {
		opts = append(opts, harness.WithDefaultTimeout(timeout))
	}
	if echo {
		opts = append(opts, harness.WithEcho(cmd.ErrOrStderr()))
	}
	runner := harness.New(exec, factory, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	summary, err := harness.Drain(runner.RunAll(ctx, suite.Cases), reporter, suite.Name)
	if err != nil {
		return err
	}
	logger.Debug("run complete",
		zap.String("suite", suite.Name),
		zap.Int("total", summary.Total),
		zap.Int("failed", summary.Failed))

	if !summary.OK() {
		return errCasesFailed
	}
	return nil
}
