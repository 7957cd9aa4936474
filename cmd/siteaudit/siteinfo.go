package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/siteaudit/siteaudit/pkg/siteinfo"
	"github.com/siteaudit/siteaudit/pkg/surface"
)

func newSiteInfoCmd(configPath *string) *cobra.Command {
	var outputFmt string

	cmd := &cobra.Command{
		Use:   "site-info [url]",
		Short: "Show a diagnostics snapshot: versions, theme, plugins, REST API and cron",
		Long: `Reads the WordPress and database versions, theme, active plugins and cron
schedule from the site database (when configured), and checks the home page
and REST API over HTTP.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSiteInfo(cmd.Context(), *configPath, args, outputFmt)
		},
	}

	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text or json")

	return cmd
}

func runSiteInfo(ctx context.Context, configPath string, args []string, outputFmt string) error {
	if outputFmt != "text" && outputFmt != "json" && outputFmt != "" {
		return fmt.Errorf("unknown output format %q", outputFmt)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	home := cfg.Site.HomeURL
	if len(args) > 0 {
		home = args[0]
	}
	target, err := resolveTarget(cfg, []string{home})
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	info := siteinfo.NewCollector(a.fetcher, a.siteDB, target).Collect(ctx, true)
	if outputFmt == "json" {
		return surface.WriteJSON(os.Stdout, info)
	}
	return (&surface.TerminalRenderer{}).RenderSiteInfo(os.Stdout, info)
}
