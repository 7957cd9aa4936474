// Package main provides the siteaudit CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		plain      bool
	)

	rootCmd := &cobra.Command{
		Use:   "siteaudit",
		Short: "Performance and health audits for WordPress sites",
		Long: `siteaudit runs internal checks against a WordPress site, combines them with
PageSpeed Insights when a key or proxy is configured, and reports explainable
0-100 scores with the most useful fix per section.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// The renderers honor NO_COLOR; piped output is never colored.
			if plain || !stdoutIsTerminal() {
				_ = os.Setenv("NO_COLOR", "1")
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml (default: search for .siteaudit/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&plain, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		newAuditCmd(&configPath),
		newPSICmd(&configPath),
		newSEOCmd(&configPath),
		newShowCmd(&configPath),
		newCacheLayersCmd(&configPath),
		newSiteInfoCmd(&configPath),
	)
	return rootCmd
}

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
