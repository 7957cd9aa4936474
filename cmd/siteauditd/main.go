// Command siteauditd is the siteaudit service.
// It serves the audit REST API and a health check.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/siteaudit/siteaudit/internal/api"
	"github.com/siteaudit/siteaudit/internal/platform"
	"github.com/siteaudit/siteaudit/internal/storage"
	"github.com/siteaudit/siteaudit/internal/wpdb"
	"github.com/siteaudit/siteaudit/pkg/audit"
	"github.com/siteaudit/siteaudit/pkg/checks"
	"github.com/siteaudit/siteaudit/pkg/config"
	"github.com/siteaudit/siteaudit/pkg/psi"
	"github.com/siteaudit/siteaudit/pkg/siteinfo"
)

type daemonConfig struct {
	Port        string
	DatabaseURL string
	APIKey      string
	Audit       *config.Config
}

// loadConfig reads the optional SITEAUDIT_CONFIG file and applies the
// environment on top of it.
func loadConfig() (daemonConfig, error) {
	site := config.DefaultConfig()
	if path := os.Getenv("SITEAUDIT_CONFIG"); path != "" {
		var err error
		if site, err = config.Load(path); err != nil {
			return daemonConfig{}, err
		}
	}
	applyEnv(site)
	if err := site.Validate(); err != nil {
		return daemonConfig{}, err
	}

	return daemonConfig{
		Port:        envOrDefault("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		APIKey:      os.Getenv("API_KEY"),
		Audit:       site,
	}, nil
}

func applyEnv(c *config.Config) {
	c.Site.HomeURL = envOrDefault("SITE_URL", c.Site.HomeURL)
	c.Site.DatabaseURL = envOrDefault("SITE_DATABASE_URL", c.Site.DatabaseURL)
	c.Site.ContentDir = envOrDefault("WP_CONTENT_DIR", c.Site.ContentDir)
	c.PSI.APIKey = envOrDefault("PSI_API_KEY", c.PSI.APIKey)
	c.PSI.ProxyURL = envOrDefault("PSI_PROXY_URL", c.PSI.ProxyURL)
	c.Storage.Backend = envOrDefault("STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.LocalDir = envOrDefault("LOCAL_STORAGE_PATH", c.Storage.LocalDir)
	switch c.Storage.Backend {
	case "gcs":
		c.Storage.Bucket = envOrDefault("GCS_BUCKET", c.Storage.Bucket)
	case "s3":
		c.Storage.Bucket = envOrDefault("S3_BUCKET", c.Storage.Bucket)
		c.Storage.Region = envOrDefault("S3_REGION", c.Storage.Region)
		c.Storage.Endpoint = envOrDefault("S3_ENDPOINT", c.Storage.Endpoint)
	}
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var pings []func(context.Context) error
	siteKey := config.SiteKey(cfg.Audit.Site.HomeURL)

	// Payload store: Postgres when configured, else blob storage.
	var store audit.Store
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			log.Fatalf("ping database: %v", err)
		}
		version, err := platform.AutoMigrate(db)
		if err != nil {
			log.Fatalf("migrate database: %v", err)
		}
		log.Printf("database schema at version %d", version)

		store = platform.NewPayloadStore(db, siteKey)
		pings = append(pings, db.PingContext)
	} else {
		blobs, err := storage.New(ctx, cfg.Audit.Storage, envOrDefault("LOCAL_STORAGE_PATH", "/tmp/siteaudit-data"))
		if err != nil {
			log.Fatalf("open storage: %v", err)
		}
		store = storage.NewPayloadStore(blobs, siteKey)
	}

	var (
		site   checks.SiteStats
		siteDB siteinfo.Database
	)
	if cfg.Audit.Site.DatabaseURL != "" {
		stats, err := wpdb.Open(cfg.Audit.Site.DatabaseURL, cfg.Audit.Site.TablePrefix)
		if err != nil {
			log.Fatalf("open site database: %v", err)
		}
		defer stats.Close()
		site = stats
		siteDB = stats
		pings = append(pings, stats.Ping)
	} else {
		log.Printf("SITE_DATABASE_URL not set; database checks will report fallback scores")
	}

	fetcher := checks.NewHTTPFetcher(cfg.Audit.Fetch.UserAgent, cfg.Audit.FetchTimeout(), cfg.Audit.HeadTimeout())
	suite := checks.NewSuite(checks.DefaultChecks(checks.Options{
		Fetcher:       fetcher,
		Site:          site,
		StylesheetURL: cfg.Audit.Site.StylesheetURL,
		CacheConstant: cfg.Audit.Site.CacheConstant,
	})...)

	client := psi.NewClient(cfg.Audit.PSI.APIKey, cfg.Audit.PSI.ProxyURL)
	client.Timeout = cfg.Audit.PSITimeout()
	var psiRunner audit.PSIRunner
	if client.Configured() {
		psiRunner = client
	} else {
		log.Printf("no PSI key or proxy configured; category scores will be estimated")
	}

	runner := audit.NewRunner(suite, psiRunner, fetcher, store)
	runner.Cache = audit.NewCache[*audit.Payload](cfg.Audit.CacheTTL(), 0)
	runner.Logf = log.Printf

	handler := api.NewHandler(runner, api.Options{
		Fetcher:    fetcher,
		Site:       site,
		SiteDB:     siteDB,
		HomeURL:    cfg.Audit.TargetURL(),
		ContentDir: cfg.Audit.Site.ContentDir,
		Ping: func(ctx context.Context) error {
			for _, ping := range pings {
				if err := ping(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	})

	// Set up HTTP routes
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.CORS(api.APIKeyAuth(cfg.APIKey)(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("starting siteauditd on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Println("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
