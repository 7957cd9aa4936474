// Package config handles loading and managing siteaudit configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for siteaudit.
type Config struct {
	PSI     PSIConfig     `yaml:"psi"`
	Site    SiteConfig    `yaml:"site"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Cache   CacheConfig   `yaml:"cache"`
	Storage StorageConfig `yaml:"storage"`
}

// PSIConfig controls PageSpeed Insights access.
type PSIConfig struct {
	APIKey   string `yaml:"api_key"`
	ProxyURL string `yaml:"proxy_url"`
	Strategy string `yaml:"strategy"` // mobile, desktop or both
	Timeout  int    `yaml:"timeout"`  // seconds
}

// SiteConfig describes the audited site.
type SiteConfig struct {
	HomeURL       string `yaml:"home_url"`
	TestURL       string `yaml:"test_url"`
	StylesheetURL string `yaml:"stylesheet_url"`
	TablePrefix   string `yaml:"table_prefix"`
	DatabaseURL   string `yaml:"database_url"`
	ContentDir    string `yaml:"content_dir"`    // wp-content, for drop-in detection
	CacheConstant bool   `yaml:"cache_constant"` // WP_CACHE is defined
}

// FetchConfig controls the live HTTP probes.
type FetchConfig struct {
	Timeout     int    `yaml:"timeout"`      // seconds
	HeadTimeout int    `yaml:"head_timeout"` // seconds
	UserAgent   string `yaml:"user_agent"`
}

// CacheConfig controls the audit result cache.
type CacheConfig struct {
	TTL int `yaml:"ttl"` // seconds
}

// StorageConfig selects where payloads are archived.
type StorageConfig struct {
	Backend  string `yaml:"backend"` // local, s3 or gcs
	LocalDir string `yaml:"local_dir"`
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

// DefaultUserAgent identifies siteaudit's probes.
const DefaultUserAgent = "SiteAudit/1.0 (+https://github.com/siteaudit/siteaudit)"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		PSI: PSIConfig{
			Strategy: "mobile",
			Timeout:  40,
		},
		Site: SiteConfig{
			TablePrefix: "wp_",
		},
		Fetch: FetchConfig{
			Timeout:     15,
			HeadTimeout: 12,
			UserAgent:   DefaultUserAgent,
		},
		Cache: CacheConfig{
			TTL: 300,
		},
		Storage: StorageConfig{
			Backend: "local",
		},
	}
}

// Load reads a config file from the given path.
// If the file does not exist, it returns the default config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	switch strings.ToLower(c.PSI.Strategy) {
	case "", "mobile", "desktop", "both":
	default:
		return fmt.Errorf("psi.strategy must be mobile, desktop or both, got %q", c.PSI.Strategy)
	}
	switch c.Storage.Backend {
	case "", "local", "s3", "gcs":
	default:
		return fmt.Errorf("storage.backend must be local, s3 or gcs, got %q", c.Storage.Backend)
	}
	if (c.Storage.Backend == "s3" || c.Storage.Backend == "gcs") && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required for the %s backend", c.Storage.Backend)
	}
	return nil
}

// TargetURL is the page audited by default: the test URL, else the home URL.
func (c *Config) TargetURL() string {
	if c.Site.TestURL != "" {
		return c.Site.TestURL
	}
	return c.Site.HomeURL
}

func seconds(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}

// FetchTimeout is the GET timeout of live probes.
func (c *Config) FetchTimeout() time.Duration { return seconds(c.Fetch.Timeout, 15) }

// HeadTimeout is the HEAD timeout of live probes.
func (c *Config) HeadTimeout() time.Duration { return seconds(c.Fetch.HeadTimeout, 12) }

// PSITimeout is the timeout of a direct PSI request.
func (c *Config) PSITimeout() time.Duration { return seconds(c.PSI.Timeout, 40) }

// CacheTTL is how long audit results are reused.
func (c *Config) CacheTTL() time.Duration { return seconds(c.Cache.TTL, 300) }

// FindConfigFile looks for .siteaudit/config.yaml in the given directory
// and its parents, returning the path if found, or "" if not.
func FindConfigFile(dir string) string {
	for {
		candidate := filepath.Join(dir, ".siteaudit", "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// CacheDir returns the cache directory for a site.
// Uses ~/.cache/siteaudit/<site-slug>/.
func CacheDir(siteURL string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to temp dir if HOME isn't available
		home = os.TempDir()
	}
	return filepath.Join(home, ".cache", "siteaudit", siteSlug(siteURL))
}

// PayloadDir returns the local payload storage directory for a site.
func PayloadDir(siteURL string) string {
	return filepath.Join(CacheDir(siteURL), "payloads")
}

// siteSlug creates a filesystem-safe identifier from a site URL
// (e.g., "example.com_blog" from "https://example.com/blog/").
func siteSlug(siteURL string) string {
	s := strings.TrimSpace(siteURL)
	if u, err := url.Parse(s); err == nil && u.Host != "" {
		s = u.Host + u.Path
	}
	s = strings.Trim(s, "/")
	if s == "" {
		return "default"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		default:
			return '_'
		}
	}, s)
}

// SiteKey is the storage key of a site, the same slug CacheDir uses.
func SiteKey(siteURL string) string {
	return siteSlug(siteURL)
}

// StorageRoot returns the local directory holding every site's cache dir.
func StorageRoot() string {
	return filepath.Dir(CacheDir(""))
}
