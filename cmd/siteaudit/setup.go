package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/siteaudit/siteaudit/internal/storage"
	"github.com/siteaudit/siteaudit/internal/wpdb"
	"github.com/siteaudit/siteaudit/pkg/audit"
	"github.com/siteaudit/siteaudit/pkg/checks"
	"github.com/siteaudit/siteaudit/pkg/config"
	"github.com/siteaudit/siteaudit/pkg/psi"
	"github.com/siteaudit/siteaudit/pkg/siteinfo"
)

// loadConfig loads the config at path, or the nearest .siteaudit/config.yaml
// when path is empty. PSI credentials fall back to the environment.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if cwd, err := os.Getwd(); err == nil {
			path = config.FindConfigFile(cwd)
		}
	}
	cfg := config.DefaultConfig()
	if path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	}
	cfg.PSI.APIKey = firstNonEmpty(cfg.PSI.APIKey, os.Getenv("PSI_API_KEY"))
	cfg.PSI.ProxyURL = firstNonEmpty(cfg.PSI.ProxyURL, os.Getenv("PSI_PROXY_URL"))
	cfg.Site.DatabaseURL = firstNonEmpty(cfg.Site.DatabaseURL, os.Getenv("SITE_DATABASE_URL"))
	return cfg, nil
}

// resolveTarget picks the audited URL: the argument, else the configured one.
func resolveTarget(cfg *config.Config, args []string) (string, error) {
	target := ""
	if len(args) > 0 {
		target = args[0]
	}
	target = strings.TrimSpace(firstNonEmpty(target, cfg.TargetURL()))
	if target == "" {
		return "", fmt.Errorf("no URL given and site.home_url is not configured")
	}
	return psi.NormalizeURL(target), nil
}

// app bundles the collaborators built from a config.
type app struct {
	cfg     *config.Config
	fetcher *checks.HTTPFetcher
	site    checks.SiteStats
	siteDB  siteinfo.Database
	psi     *psi.Client
	closers []func() error
}

func newApp(cfg *config.Config) (*app, error) {
	a := &app{
		cfg:     cfg,
		fetcher: checks.NewHTTPFetcher(cfg.Fetch.UserAgent, cfg.FetchTimeout(), cfg.HeadTimeout()),
	}

	a.psi = psi.NewClient(cfg.PSI.APIKey, cfg.PSI.ProxyURL)
	a.psi.Timeout = cfg.PSITimeout()

	if cfg.Site.DatabaseURL != "" {
		stats, err := wpdb.Open(cfg.Site.DatabaseURL, cfg.Site.TablePrefix)
		if err != nil {
			return nil, fmt.Errorf("opening site database: %w", err)
		}
		a.site = stats
		a.siteDB = stats
		a.closers = append(a.closers, stats.Close)
	}
	return a, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		_ = c()
	}
}

func (a *app) store(ctx context.Context, target string) (*storage.PayloadStore, error) {
	blobs, err := storage.New(ctx, a.cfg.Storage, config.StorageRoot())
	if err != nil {
		return nil, fmt.Errorf("opening payload storage: %w", err)
	}
	return storage.NewPayloadStore(blobs, config.SiteKey(target)), nil
}

func (a *app) runner(ctx context.Context, target string) (*audit.Runner, error) {
	store, err := a.store(ctx, target)
	if err != nil {
		return nil, err
	}

	suite := checks.NewSuite(checks.DefaultChecks(checks.Options{
		Fetcher:       a.fetcher,
		Site:          a.site,
		StylesheetURL: a.cfg.Site.StylesheetURL,
		CacheConstant: a.cfg.Site.CacheConstant,
	})...)

	var psiRunner audit.PSIRunner
	if a.psi.Configured() {
		psiRunner = a.psi
	}

	r := audit.NewRunner(suite, psiRunner, a.fetcher, store)
	r.Cache = audit.NewCache[*audit.Payload](a.cfg.CacheTTL(), 0)
	r.Logf = func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
	return r, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
