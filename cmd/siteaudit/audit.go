package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/siteaudit/siteaudit/pkg/audit"
	"github.com/siteaudit/siteaudit/pkg/surface"
)

type auditOpts struct {
	force     bool
	seo       bool
	outputFmt string
	checks    bool
}

func newAuditCmd(configPath *string) *cobra.Command {
	var opts auditOpts

	cmd := &cobra.Command{
		Use:   "audit [url]",
		Short: "Run a full audit and store it as the current payload",
		Long: `Runs the internal checks, PageSpeed Insights (when a key or proxy is
configured, otherwise estimates), composes the overall score and stores the
result as the site's current payload.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(cmd.Context(), *configPath, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.force, "force", false, "Ignore a cached result")
	cmd.Flags().BoolVar(&opts.seo, "seo", false, "Also run the SEO basics scan")
	cmd.Flags().StringVar(&opts.outputFmt, "output", "text", "Output format: text, json or markdown")
	cmd.Flags().BoolVar(&opts.checks, "checks", false, "List every check under its section")

	return cmd
}

func runAudit(ctx context.Context, configPath string, args []string, opts auditOpts) error {
	renderer, ok := surface.ForFormat(opts.outputFmt)
	if !ok {
		return fmt.Errorf("unknown output format %q", opts.outputFmt)
	}
	if t, isTerminal := renderer.(*surface.TerminalRenderer); isTerminal {
		t.Checks = opts.checks
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	target, err := resolveTarget(cfg, args)
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	runner, err := a.runner(ctx, target)
	if err != nil {
		return err
	}

	if a.psi.Configured() {
		fmt.Fprintf(os.Stderr, "Auditing %s (internal checks + PageSpeed Insights)...\n", target)
	} else {
		fmt.Fprintf(os.Stderr, "Auditing %s (internal checks only)...\n", target)
	}

	p, err := runner.Run(ctx, audit.Request{URL: target, Force: opts.force, SEO: opts.seo})
	if err != nil {
		return err
	}
	return renderer.Render(os.Stdout, p)
}
