package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/siteaudit/siteaudit/pkg/psi"
	"github.com/siteaudit/siteaudit/pkg/scoring"
	"github.com/siteaudit/siteaudit/pkg/surface"
)

func newPSICmd(configPath *string) *cobra.Command {
	var (
		strategy  string
		outputFmt string
	)

	cmd := &cobra.Command{
		Use:   "psi [url]",
		Short: "Query PageSpeed Insights without storing a payload",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPSI(cmd.Context(), *configPath, args, strategy, outputFmt)
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", "", "mobile, desktop or both (default: psi.strategy)")
	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text or json")

	return cmd
}

func runPSI(ctx context.Context, configPath string, args []string, strategy, outputFmt string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	target, err := resolveTarget(cfg, args)
	if err != nil {
		return err
	}

	client := psi.NewClient(cfg.PSI.APIKey, cfg.PSI.ProxyURL)
	client.Timeout = cfg.PSITimeout()
	if !client.Configured() {
		fmt.Fprintln(os.Stderr, "warning: no PageSpeed API key or proxy configured; the request will be rejected")
	}

	var results []psi.RunResult
	switch psi.ParseStrategy(firstNonEmpty(strategy, cfg.PSI.Strategy)) {
	case psi.StrategyBoth:
		runs := client.RunBoth(ctx, target)
		results = []psi.RunResult{runs.Mobile, runs.Desktop}
	case psi.StrategyDesktop:
		results = []psi.RunResult{client.Run(ctx, target, psi.StrategyDesktop)}
	default:
		results = []psi.RunResult{client.Run(ctx, target, psi.StrategyMobile)}
	}

	switch outputFmt {
	case "json":
		if len(results) == 1 {
			return surface.WriteJSON(os.Stdout, results[0])
		}
		return surface.WriteJSON(os.Stdout, psi.Runs{Mobile: results[0], Desktop: results[1]})
	case "text", "":
		for _, res := range results {
			printRun(os.Stdout, target, res)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q", outputFmt)
	}
}

func printRun(w io.Writer, target string, res psi.RunResult) {
	fmt.Fprintf(w, "PageSpeed Insights (%s): %s\n", res.Strategy, firstNonEmpty(res.FinalURL, target))
	if !res.OK {
		fmt.Fprintf(w, "  error: %s\n\n", res.Error)
		return
	}
	fmt.Fprintf(w, "  Performance     %s\n", score(res.Scores.Performance))
	fmt.Fprintf(w, "  Best Practices  %s\n", score(res.Scores.BestPractices))
	fmt.Fprintf(w, "  SEO             %s\n", score(res.Scores.SEO))
	fmt.Fprintf(w, "  Web Vitals      %s (%s)\n", score(res.WebVitals), res.VitalsSource)
	for _, key := range scoring.LabMetricOrder {
		if m, ok := res.LabMetrics[key]; ok {
			fmt.Fprintf(w, "  %-26s %8s  %s\n", m.Label, m.ValueFmt, score(m.Score))
		}
	}
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "  ! %s\n", warn)
	}
	fmt.Fprintln(w)
}

func score(v *int) string {
	if v == nil {
		return scoring.ValueUnknown
	}
	return fmt.Sprintf("%d", *v)
}
