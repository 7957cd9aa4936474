package cachelayers_test

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/siteaudit/siteaudit/pkg/cachelayers"
	"github.com/siteaudit/siteaudit/pkg/checks"
)

func headers(kv ...string) http.Header {
	h := http.Header{}
	for i := 0; i+1 < len(kv); i += 2 {
		h.Set(kv[i], kv[i+1])
	}
	return h
}

func TestDetectCDN(t *testing.T) {
	tests := []struct {
		name   string
		header http.Header
		want   []string
	}{
		{"none", headers("Server", "Apache"), []string{}},
		{"cloudflare status", headers("CF-Cache-Status", "HIT"), []string{"Cloudflare"}},
		{"cloudflare server", headers("Server", "cloudflare"), []string{"Cloudflare"}},
		{"fastly", headers("X-Served-By", "cache-fra-Fastly-123"), []string{"Fastly"}},
		{"akamai", headers("X-Akamai-Transformed", "9 - 0 pmb=mRUM,1"), []string{"Akamai"}},
		{"cloudfront", headers("X-Cache", "Miss from cloudfront"), []string{"Amazon CloudFront"}},
		{"several", headers("CF-Cache-Status", "DYNAMIC", "X-Served-By", "fastly"), []string{"Cloudflare", "Fastly"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cachelayers.Detect(tt.header, nil, nil).CDN
			if !slices.Equal(got, tt.want) {
				t.Errorf("CDN = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectServerCache(t *testing.T) {
	tests := []struct {
		name   string
		header http.Header
		want   []string
	}{
		{"varnish", headers("X-Varnish", "12345"), []string{"Varnish"}},
		{"varnish by age", headers("Age", "30", "X-Cache", "HIT"), []string{"Varnish"}},
		{"fastcgi", headers("X-FastCGI-Cache", "HIT"), []string{"NGINX FastCGI cache"}},
		{"fastcgi dedup", headers("X-FastCGI-Cache", "MISS", "X-Cache-Status", "HIT"), []string{"NGINX FastCGI cache"}},
		{"proxy", headers("X-Proxy-Cache", "EXPIRED"), []string{"NGINX/Proxy cache"}},
		{"nginx x-cache", headers("X-Cache", "nginx-edge"), []string{"NGINX cache"}},
		{"accel", headers("X-Accel-Expires", "60"), []string{"NGINX (X-Accel-Expires)"}},
		{"srcache", headers("X-Srcache-Fetch-Status", "HIT"), []string{"OpenResty srcache (NGINX)"}},
		{"litespeed", headers("Server", "LiteSpeed"), []string{"LiteSpeed Server Cache"}},
		{"unknown status", headers("X-FastCGI-Cache", "maybe"), []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cachelayers.Detect(tt.header, nil, nil).ServerCache
			if !slices.Equal(got, tt.want) {
				t.Errorf("ServerCache = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectRisks(t *testing.T) {
	plugins := []string{
		"wp-rocket/wp-rocket.php",
		"w3-total-cache/w3-total-cache.php",
		"redis-cache/redis-cache.php",
	}
	r := cachelayers.Detect(headers("CF-Cache-Status", "HIT"), plugins, []string{cachelayers.DropinObjectCache})

	if len(r.PageCachePlugins) != 2 {
		t.Errorf("PageCachePlugins = %v, want 2", r.PageCachePlugins)
	}
	if len(r.ObjectCachePlugins) != 2 {
		t.Errorf("ObjectCachePlugins = %v, want 2", r.ObjectCachePlugins)
	}
	if len(r.Risks) != 3 {
		t.Fatalf("Risks = %v, want 3", r.Risks)
	}
	if !strings.HasPrefix(r.Risks[0], "Multiple page cache plugins") {
		t.Errorf("Risks[0] = %q", r.Risks[0])
	}
	// 4 specific + 2 generic.
	if len(r.Recommendations) != 6 {
		t.Errorf("Recommendations = %v, want 6", r.Recommendations)
	}
	if !strings.Contains(r.Recommendations[1], "(Cloudflare)") {
		t.Errorf("Recommendations[1] = %q", r.Recommendations[1])
	}
}

func TestDetectUnreachable(t *testing.T) {
	r := cachelayers.Detect(nil, []string{"wp-rocket/wp-rocket.php"}, nil)
	if len(r.CDN) != 0 || len(r.ServerCache) != 0 || len(r.Headers) != 0 {
		t.Errorf("expected no header findings, got %+v", r)
	}
	if len(r.Risks) != 0 {
		t.Errorf("Risks = %v, want none", r.Risks)
	}
	if len(r.Recommendations) != 2 {
		t.Errorf("Recommendations = %v, want the 2 generic ones", r.Recommendations)
	}
}

func TestDropins(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, cachelayers.DropinObjectCache), []byte("<?php"), 0o644); err != nil {
		t.Fatal(err)
	}

	got := cachelayers.Dropins(dir)
	if !slices.Equal(got, []string{cachelayers.DropinObjectCache}) {
		t.Errorf("Dropins() = %v", got)
	}
	if got := cachelayers.Dropins(""); len(got) != 0 {
		t.Errorf("Dropins(\"\") = %v, want empty", got)
	}
}

type homeFetcher struct{ resp checks.Response }

func (f homeFetcher) Get(context.Context, string) checks.Response  { return f.resp }
func (f homeFetcher) Head(context.Context, string) checks.Response { return f.resp }

type pluginSite struct{ plugins []string }

func (pluginSite) AutoloadedOptionBytes(context.Context) (int64, error)      { return 0, nil }
func (pluginSite) RecentPostMetaCounts(context.Context, int) ([]int, error)  { return nil, nil }
func (pluginSite) ExpiredTransients(context.Context, time.Time) (int, error) { return 0, nil }
func (pluginSite) PendingUpdates(context.Context) (checks.Updates, error)    { return checks.Updates{}, nil }
func (s pluginSite) ActivePlugins(context.Context) ([]string, error)         { return s.plugins, nil }

func TestScan(t *testing.T) {
	f := homeFetcher{checks.Response{OK: true, StatusCode: 200, Header: headers("X-LiteSpeed-Cache", "hit")}}
	site := pluginSite{plugins: []string{"litespeed-cache/litespeed-cache.php"}}

	r := cachelayers.Scan(context.Background(), f, site, "https://example.com/", "")
	if !slices.Equal(r.ServerCache, []string{"LiteSpeed Server Cache"}) {
		t.Errorf("ServerCache = %v", r.ServerCache)
	}
	if len(r.PageCachePlugins) != 1 || r.PageCachePlugins[0].Label != "LiteSpeed Cache" {
		t.Errorf("PageCachePlugins = %v", r.PageCachePlugins)
	}
	if len(r.Risks) != 1 {
		t.Errorf("Risks = %v, want plugin + server cache risk", r.Risks)
	}
	if r.Headers["x-litespeed-cache"] != "hit" {
		t.Errorf("Headers = %v", r.Headers)
	}
}
