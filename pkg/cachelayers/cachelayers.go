// Package cachelayers detects the caching layers in front of a site (CDNs,
// server caches and cache plugins) and flags combinations that conflict.
package cachelayers

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/siteaudit/siteaudit/pkg/checks"
)

// Plugin is an active cache plugin.
type Plugin struct {
	Slug  string `json:"slug"`
	Label string `json:"label"`
}

// Report is the outcome of a cache layer scan.
type Report struct {
	PageCachePlugins   []Plugin          `json:"active_page_cache_plugins"`
	ObjectCachePlugins []Plugin          `json:"active_object_cache_plugins"`
	Dropins            []string          `json:"dropins"`
	Headers            map[string]string `json:"headers"`
	CDN                []string          `json:"cdn"`
	ServerCache        []string          `json:"server_cache"`
	Risks              []string          `json:"risks"`
	Recommendations    []string          `json:"recommendations"`
}

// Drop-in files WordPress loads from wp-content.
const (
	DropinAdvancedCache = "advanced-cache.php"
	DropinObjectCache   = "object-cache.php"
)

var pageCachePlugins = []Plugin{
	{"wp-rocket/wp-rocket.php", "WP Rocket"},
	{"w3-total-cache/w3-total-cache.php", "W3 Total Cache"},
	{"wp-super-cache/wp-cache.php", "WP Super Cache"},
	{"litespeed-cache/litespeed-cache.php", "LiteSpeed Cache"},
	{"hummingbird-performance/wp-hummingbird.php", "Hummingbird"},
	{"cache-enabler/cache-enabler.php", "Cache Enabler"},
	{"sg-cachepress/sg-cachepress.php", "SG Optimizer"},
	{"swift-performance-lite/performance.php", "Swift Performance"},
	{"comet-cache/comet-cache.php", "Comet Cache"},
	{"nitropack/main.php", "NitroPack"},
}

var objectCachePlugins = []Plugin{
	{"redis-cache/redis-cache.php", "Redis Object Cache"},
	{"w3-total-cache/w3-total-cache.php", "W3TC (Object Cache)"},
	{"litespeed-cache/litespeed-cache.php", "LiteSpeed (Object Cache)"},
	{"memcached-redux/memcached-redux.php", "Memcached Redux"},
	{"docket-cache/docket-cache.php", "Docket Cache"},
	{"object-cache-pro/object-cache-pro.php", "Object Cache Pro"},
}

// nginxStatuses are the values NGINX cache status headers report.
var nginxStatuses = []string{"hit", "miss", "bypass", "expired", "updating", "revalidated"}

// Detect builds a report from the home page response headers, the active
// plugin slugs and the drop-ins present. A nil header means the home page
// could not be fetched; only plugin-based findings are reported then.
func Detect(header http.Header, activePlugins, dropins []string) Report {
	r := Report{
		PageCachePlugins:   matchPlugins(pageCachePlugins, activePlugins),
		ObjectCachePlugins: matchPlugins(objectCachePlugins, activePlugins),
		Dropins:            append([]string{}, dropins...),
		Headers:            map[string]string{},
		CDN:                []string{},
		ServerCache:        []string{},
		Risks:              []string{},
	}

	if header != nil {
		for k, v := range header {
			r.Headers[strings.ToLower(k)] = strings.Join(v, ", ")
		}
		r.CDN = detectCDN(r.Headers)
		r.ServerCache = detectServerCache(r.Headers)
	}

	objectDropin := slices.Contains(dropins, DropinObjectCache)

	if len(r.PageCachePlugins) > 1 {
		r.Risks = append(r.Risks, "Multiple page cache plugins are active—this often causes stale pages and hard-to-debug cache hits.")
	}
	if len(r.PageCachePlugins) > 0 && (len(r.CDN) > 0 || len(r.ServerCache) > 0) {
		r.Risks = append(r.Risks, "Page cache plugin + CDN/server cache detected. Use only one layer to cache HTML; others should be pass-through or disabled.")
	}
	if objectDropin && len(r.ObjectCachePlugins) > 1 {
		r.Risks = append(r.Risks, "Multiple object cache systems detected (drop-in + plugin). Use only one Redis/Memcached provider.")
	}

	r.Recommendations = recommendations(r, objectDropin)
	return r
}

func matchPlugins(known []Plugin, active []string) []Plugin {
	found := []Plugin{}
	for _, p := range known {
		if slices.Contains(active, p.Slug) {
			found = append(found, p)
		}
	}
	return found
}

func has(h map[string]string, key string) bool {
	_, ok := h[key]
	return ok
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), substr)
}

func detectCDN(h map[string]string) []string {
	var cdn []string
	if has(h, "cf-cache-status") || containsFold(h["server"], "cloudflare") {
		cdn = append(cdn, "Cloudflare")
	}
	if containsFold(h["x-served-by"], "fastly") {
		cdn = append(cdn, "Fastly")
	}
	if has(h, "x-akamai-staging") || has(h, "x-akamai-transformed") {
		cdn = append(cdn, "Akamai")
	}
	if containsFold(h["x-cache"], "cloudfront") {
		cdn = append(cdn, "Amazon CloudFront")
	}
	return dedupe(cdn)
}

func detectServerCache(h map[string]string) []string {
	lower := func(k string) string { return strings.ToLower(strings.TrimSpace(h[k])) }
	nginx := func(k string) bool { return slices.Contains(nginxStatuses, lower(k)) }
	xCache := lower("x-cache")

	var sc []string
	if has(h, "x-varnish") || (h["age"] != "" && strings.Contains(xCache, "hit")) {
		sc = append(sc, "Varnish")
	}
	if nginx("x-fastcgi-cache") || nginx("x-cache-status") || nginx("x-nginx-cache") || nginx("x-nginx-cache-status") {
		sc = append(sc, "NGINX FastCGI cache")
	}
	if nginx("x-proxy-cache") {
		sc = append(sc, "NGINX/Proxy cache")
	}
	if strings.Contains(xCache, "nginx") {
		sc = append(sc, "NGINX cache")
	}
	if h["x-accel-expires"] != "" {
		sc = append(sc, "NGINX (X-Accel-Expires)")
	}
	store, fetch := lower("x-srcache-store-status"), lower("x-srcache-fetch-status")
	if store == "store" || store == "bypass" || fetch == "hit" || fetch == "miss" || fetch == "bypass" {
		sc = append(sc, "OpenResty srcache (NGINX)")
	}
	if has(h, "x-litespeed-cache") || containsFold(h["server"], "litespeed") {
		sc = append(sc, "LiteSpeed Server Cache")
	}
	return dedupe(sc)
}

func dedupe(in []string) []string {
	out := []string{}
	for _, s := range in {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

func recommendations(r Report, objectDropin bool) []string {
	var rec []string
	if len(r.PageCachePlugins) > 1 {
		rec = append(rec, "Deactivate extra page cache plugins. Keep only **one** page cache plugin active.")
	}
	if len(r.CDN) > 0 && len(r.PageCachePlugins) > 0 {
		rec = append(rec, "If using a CDN ("+strings.Join(r.CDN, ", ")+"), set HTML caching at **either** the CDN **or** the plugin, not both. Prefer CDN for static assets only.")
	}
	if len(r.ServerCache) > 0 {
		rec = append(rec, "Host/server cache detected ("+strings.Join(r.ServerCache, ", ")+"). Ensure it does not also cache HTML if a plugin/CDN already does.")
	}
	if objectDropin && len(r.ObjectCachePlugins) > 1 {
		rec = append(rec, "Use only one object cache (e.g., Redis **or** Memcached) to avoid conflicts.")
	}
	return append(rec,
		"After changes, purge all layers: plugin cache → CDN cache → server cache.",
		"For Cloudflare users, use **Development Mode** while editing, then disable and purge when done.",
	)
}

// Dropins lists the cache drop-ins present in a wp-content directory.
func Dropins(contentDir string) []string {
	found := []string{}
	if contentDir == "" {
		return found
	}
	for _, name := range []string{DropinAdvancedCache, DropinObjectCache} {
		if _, err := os.Stat(filepath.Join(contentDir, name)); err == nil {
			found = append(found, name)
		}
	}
	return found
}

// Scan fetches homeURL and detects cache layers. site may be nil, in which
// case no plugins are considered active.
func Scan(ctx context.Context, f checks.Fetcher, site checks.SiteStats, homeURL, contentDir string) Report {
	var header http.Header
	if resp := f.Get(ctx, homeURL); resp.StatusCode != 0 {
		header = resp.Header
	}

	var active []string
	if site != nil {
		if plugins, err := site.ActivePlugins(ctx); err == nil {
			active = plugins
		}
	}
	return Detect(header, active, Dropins(contentDir))
}
