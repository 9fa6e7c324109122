package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caffeineduck/falakrun/executor"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var rootCmd = &cobra.Command{
	Use:   "falakrun [files...]",
	Short: "Regression harness for Falak WebAssembly programs",
	Long: `falakrun - Run compiled Falak programs and report their exit codes.

Each WebAssembly text file is loaded, linked against the Falak runtime
library and run from its "start" export. Traps, link errors and timeouts
are reported per file; one broken program never stops the run.

With no files and no --suite, the fixed Test_Files/001..010 list is run.`,
	Args:          cobra.ArbitraryArgs,
	RunE:          runRun, // Default to run command behavior
	SilenceErrors: true,
}

// errCasesFailed signals a completed run with failing cases.
var errCasesFailed = errors.New("one or more cases failed")

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errCasesFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Bool("no-cache", false, "Disable compilation cache")
	rootCmd.PersistentFlags().String("memory", "", "Memory limit: 1mb, 16mb, 64mb, 256mb, 1gb (default: none)")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "console", "Log format: console, json")

	addRunFlags(rootCmd)
}

func parseMemoryLimit(s string) (uint32, error) {
	switch strings.ToLower(s) {
	case "":
		return 0, nil
	case "1mb":
		return executor.MemoryLimit1MB, nil
	case "16mb":
		return executor.MemoryLimit16MB, nil
	case "64mb":
		return executor.MemoryLimit64MB, nil
	case "256mb":
		return executor.MemoryLimit256MB, nil
	case "1gb":
		return executor.MemoryLimit1GB, nil
	default:
		return 0, fmt.Errorf("invalid memory limit %q (expected 1mb, 16mb, 64mb, 256mb, or 1gb)", s)
	}
}

func newLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	if format != "console" && format != "json" {
		return nil, fmt.Errorf("invalid log format %q (expected console or json)", format)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = format
	cfg.Sampling = nil
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if format == "console" {
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	return cfg.Build()
}

// newExecutor builds the engine handle from the persistent flags.
func newExecutor(cmd *cobra.Command) (*executor.Executor, *zap.Logger, error) {
	flags := cmd.Root().PersistentFlags()
	noCache, _ := flags.GetBool("no-cache")
	memory, _ := flags.GetString("memory")
	logLevel, _ := flags.GetString("log-level")
	logFormat, _ := flags.GetString("log-format")

	logger, err := newLogger(logLevel, logFormat)
	if err != nil {
		return nil, nil, err
	}
	pages, err := parseMemoryLimit(memory)
	if err != nil {
		return nil, nil, err
	}

	execOpts := []executor.ExecutorOption{executor.WithLogger(logger)}
	if !noCache {
		execOpts = append(execOpts, executor.WithDiskCache())
	}
	if pages > 0 {
		execOpts = append(execOpts, executor.WithMemoryLimit(pages))
	}

	exec, err := executor.New(execOpts...)
	if err != nil {
		return nil, nil, err
	}
	return exec, logger, nil
}
