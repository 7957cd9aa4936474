package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/siteaudit/siteaudit/pkg/audit"
	"github.com/siteaudit/siteaudit/pkg/surface"
)

func newShowCmd(configPath *string) *cobra.Command {
	var (
		outputFmt string
		checks    bool
	)

	cmd := &cobra.Command{
		Use:   "show [url]",
		Short: "Render the stored current payload without re-running the audit",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd.Context(), *configPath, args, outputFmt, checks)
		},
	}

	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text, json or markdown")
	cmd.Flags().BoolVar(&checks, "checks", false, "List every check under its section")

	return cmd
}

func runShow(ctx context.Context, configPath string, args []string, outputFmt string, checks bool) error {
	renderer, ok := surface.ForFormat(outputFmt)
	if !ok {
		return fmt.Errorf("unknown output format %q", outputFmt)
	}
	if t, isTerminal := renderer.(*surface.TerminalRenderer); isTerminal {
		t.Checks = checks
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	target, err := resolveTarget(cfg, args)
	if err != nil {
		return err
	}

	a := &app{cfg: cfg}
	store, err := a.store(ctx, target)
	if err != nil {
		return err
	}

	p, err := store.LoadCurrent(ctx)
	if errors.Is(err, audit.ErrNoPayload) {
		return fmt.Errorf("no stored audit for %s; run `siteaudit audit` first", target)
	}
	if err != nil {
		return err
	}
	return renderer.Render(os.Stdout, p)
}
