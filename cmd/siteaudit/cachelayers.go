package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/siteaudit/siteaudit/pkg/cachelayers"
	"github.com/siteaudit/siteaudit/pkg/surface"
)

func newCacheLayersCmd(configPath *string) *cobra.Command {
	var (
		outputFmt  string
		contentDir string
	)

	cmd := &cobra.Command{
		Use:   "cache-layers [url]",
		Short: "Detect CDNs, server caches and caching plugins, and flag conflicts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheLayers(cmd.Context(), *configPath, args, outputFmt, contentDir)
		},
	}

	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text or json")
	cmd.Flags().StringVar(&contentDir, "content-dir", "", "wp-content directory for drop-in detection (default: site.content_dir)")

	return cmd
}

func runCacheLayers(ctx context.Context, configPath string, args []string, outputFmt, contentDir string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	home := ""
	if len(args) > 0 {
		home = args[0]
	}
	if home == "" {
		home = cfg.Site.HomeURL
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

	rep := cachelayers.Scan(ctx, a.fetcher, a.site, target, firstNonEmpty(contentDir, cfg.Site.ContentDir))

	switch outputFmt {
	case "json":
		return surface.WriteJSON(os.Stdout, rep)
	case "text", "":
		return (&surface.TerminalRenderer{}).RenderCacheLayers(os.Stdout, rep)
	default:
		return fmt.Errorf("unknown output format %q", outputFmt)
	}
}
