package checks

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/siteaudit/siteaudit/pkg/scoring"
)

var (
	cacheHitPattern = regexp.MustCompile(`(?i)hit|cached`)
	maxAgePattern   = regexp.MustCompile(`(?i)max-age\s*=\s*(\d+)`)
)

// cacheStatusHeaders are read in order; the first non-empty one is matched.
var cacheStatusHeaders = []string{"X-Cache", "X-Proxy-Cache", "X-Cache-Status", "CF-Cache-Status"}

// KnownCachePlugins maps plugin basenames to display names. Order matters:
// when several are active the last match is reported.
var KnownCachePlugins = []struct {
	Basename string
	Name     string
}{
	{"w3-total-cache/w3-total-cache.php", "W3 Total Cache"},
	{"wp-rocket/wp-rocket.php", "WP Rocket"},
	{"litespeed-cache/litespeed-cache.php", "LiteSpeed Cache"},
}

// CachePresentCheck detects a page cache from response headers, active
// caching plugins or the WP_CACHE constant.
type CachePresentCheck struct {
	Fetcher       Fetcher
	Site          SiteStats // optional
	CacheConstant bool      // WP_CACHE is defined
}

func (c *CachePresentCheck) Slug() string { return scoring.CheckCachePresent }

func (c *CachePresentCheck) Run(ctx context.Context, target string) scoring.CheckResult {
	meta := &scoring.CacheMeta{}
	resp := c.Fetcher.Get(ctx, target)
	if resp.Error != "" {
		meta.Error = resp.Error
	}

	if headerSignalsCache(resp) {
		meta.Cached = true
	}
	if c.Site != nil {
		if active, err := c.Site.ActivePlugins(ctx); err == nil {
			if name := activeCachePlugin(active); name != "" {
				meta.Cached = true
				meta.Plugin = name
			}
		}
	}
	if c.CacheConstant {
		meta.Cached = true
	}

	score := 0
	if meta.Cached {
		score = 100
	}
	return scoring.CheckResult{Score: score, Meta: meta}
}

func headerSignalsCache(resp Response) bool {
	if resp.Header == nil {
		return false
	}
	for _, h := range cacheStatusHeaders {
		if v := resp.Header.Get(h); v != "" {
			if cacheHitPattern.MatchString(v) {
				return true
			}
			break
		}
	}
	age, err := strconv.Atoi(strings.TrimSpace(resp.Header.Get("Age")))
	return err == nil && age > 0
}

func activeCachePlugin(active []string) string {
	set := make(map[string]bool, len(active))
	for _, p := range active {
		set[p] = true
	}
	name := ""
	for _, known := range KnownCachePlugins {
		if set[known.Basename] {
			name = known.Name
		}
	}
	return name
}

// CompressionCheck verifies the page is served with gzip or Brotli.
type CompressionCheck struct {
	Fetcher Fetcher
}

func (c *CompressionCheck) Slug() string { return scoring.CheckCompression }

func (c *CompressionCheck) Run(ctx context.Context, target string) scoring.CheckResult {
	resp := c.Fetcher.Get(ctx, target)
	meta := &scoring.CompressionMeta{Encoding: "n/a"}
	if resp.Error != "" {
		meta.Error = resp.Error
	}

	var enc string
	if resp.Header != nil {
		enc = strings.ToLower(resp.Header.Get("Content-Encoding"))
	}
	if enc != "" {
		meta.Encoding = enc
	}
	score := 0
	if strings.Contains(enc, "gzip") || strings.Contains(enc, "br") {
		score = 100
	}
	return scoring.CheckResult{Score: score, Meta: meta}
}

// Client cache max-age thresholds, in seconds.
const (
	oneYear = 31536000
	oneDay  = 86400
)

// ClientCacheCheck inspects browser caching headers on a stylesheet.
type ClientCacheCheck struct {
	Fetcher       Fetcher
	StylesheetURL string // used when the page links no stylesheet
}

func (c *ClientCacheCheck) Slug() string { return scoring.CheckClientCache }

func (c *ClientCacheCheck) Run(ctx context.Context, target string) scoring.CheckResult {
	meta := &scoring.ClientCacheMeta{CacheControl: "n/a"}

	asset := ""
	page := c.Fetcher.Get(ctx, target)
	if page.OK && page.HTML != "" {
		asset = firstStylesheet(page.HTML, target)
	}
	if asset == "" {
		asset = c.StylesheetURL
	}
	if asset == "" {
		meta.Error = "no stylesheet found"
		return scoring.CheckResult{Score: fallbackScore, Meta: meta}
	}
	meta.Asset = asset

	resp := c.Fetcher.Head(ctx, asset)
	if resp.Header == nil || (resp.StatusCode == 0 && resp.Error != "") {
		meta.Error = resp.Error
		return scoring.CheckResult{Score: fallbackScore, Meta: meta}
	}

	cc := resp.Header.Get("Cache-Control")
	if cc == "" {
		return scoring.CheckResult{Score: fallbackScore, Meta: meta}
	}
	meta.CacheControl = cc
	return scoring.CheckResult{Score: scoreCacheControl(cc), Meta: meta}
}

func scoreCacheControl(cc string) int {
	m := maxAgePattern.FindStringSubmatch(cc)
	if m == nil {
		return fallbackScore
	}
	age, err := strconv.Atoi(m[1])
	if err != nil {
		// overflow: far beyond a year
		return 100
	}
	switch {
	case age >= oneYear:
		return 100
	case age >= oneDay:
		return 80
	default:
		return 60
	}
}
