package main

import (
	"fmt"
	"os"

	"github.com/caffeineduck/falakrun/executor"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Compilation cache management commands",
	Long: `Inspect or clear the on-disk compilation cache.

Compiled modules are cached so repeated runs skip native compilation.
Disable the cache for a single run with --no-cache.`,
}

var cacheDirCmd = &cobra.Command{
	Use:   "dir",
	Short: "Print the cache directory",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), cacheDir)
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the compilation cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.RemoveAll(cacheDir); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
		return nil
	},
}

var cacheDir string

func init() {
	cacheCmd.PersistentFlags().StringVar(&cacheDir, "dir", executor.DefaultCacheDir(), "Cache directory")

	cacheCmd.AddCommand(cacheDirCmd, cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
