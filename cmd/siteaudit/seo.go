package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/siteaudit/siteaudit/pkg/checks"
	"github.com/siteaudit/siteaudit/pkg/seo"
	"github.com/siteaudit/siteaudit/pkg/surface"
)

func newSEOCmd(configPath *string) *cobra.Command {
	var outputFmt string

	cmd := &cobra.Command{
		Use:   "seo [url]",
		Short: "Check title, meta description and H1 of a page",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSEO(cmd.Context(), *configPath, args, outputFmt)
		},
	}

	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text or json")

	return cmd
}

func runSEO(ctx context.Context, configPath string, args []string, outputFmt string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	target, err := resolveTarget(cfg, args)
	if err != nil {
		return err
	}

	fetcher := checks.NewHTTPFetcher(cfg.Fetch.UserAgent, cfg.FetchTimeout(), cfg.HeadTimeout())
	res := seo.Run(ctx, fetcher, target)

	switch outputFmt {
	case "json":
		return surface.WriteJSON(os.Stdout, res)
	case "text", "":
		return (&surface.TerminalRenderer{}).RenderSEO(os.Stdout, res)
	default:
		return fmt.Errorf("unknown output format %q", outputFmt)
	}
}
