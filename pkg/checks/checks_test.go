package checks_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/siteaudit/siteaudit/pkg/checks"
	"github.com/siteaudit/siteaudit/pkg/scoring"
)

// fakeFetcher serves canned responses keyed by URL.
type fakeFetcher struct {
	get   map[string]checks.Response
	head  map[string]checks.Response
	calls int
}

func (f *fakeFetcher) Get(_ context.Context, url string) checks.Response {
	f.calls++
	if r, ok := f.get[url]; ok {
		return r
	}
	return checks.Response{Header: http.Header{}, Error: "connection refused"}
}

func (f *fakeFetcher) Head(_ context.Context, url string) checks.Response {
	f.calls++
	if r, ok := f.head[url]; ok {
		return r
	}
	return checks.Response{Header: http.Header{}, Error: "connection refused"}
}

func page(html string, headers map[string]string) checks.Response {
	h := http.Header{}
	for k, v := range headers {
		h.Set(k, v)
	}
	return checks.Response{OK: true, HTML: html, Header: h, StatusCode: 200}
}

type fakeSite struct {
	autoload   int64
	metaCounts []int
	expired    int
	updates    checks.Updates
	plugins    []string
	err        error
}

func (s *fakeSite) AutoloadedOptionBytes(context.Context) (int64, error) { return s.autoload, s.err }
func (s *fakeSite) RecentPostMetaCounts(_ context.Context, limit int) ([]int, error) {
	if len(s.metaCounts) > limit {
		return s.metaCounts[:limit], s.err
	}
	return s.metaCounts, s.err
}
func (s *fakeSite) ExpiredTransients(context.Context, time.Time) (int, error) { return s.expired, s.err }
func (s *fakeSite) PendingUpdates(context.Context) (checks.Updates, error)    { return s.updates, s.err }
func (s *fakeSite) ActivePlugins(context.Context) ([]string, error)           { return s.plugins, s.err }

const home = "https://example.com/"

func TestCachePresent(t *testing.T) {
	tests := []struct {
		name      string
		headers   map[string]string
		site      checks.SiteStats
		constant  bool
		wantScore int
		wantName  string
	}{
		{name: "no signal", wantScore: 0},
		{name: "x-cache hit", headers: map[string]string{"X-Cache": "HIT from edge"}, wantScore: 100},
		{name: "cloudflare miss", headers: map[string]string{"CF-Cache-Status": "MISS"}, wantScore: 0},
		{name: "age header", headers: map[string]string{"Age": "42"}, wantScore: 100},
		{name: "zero age", headers: map[string]string{"Age": "0"}, wantScore: 0},
		{
			name:      "caching plugin",
			site:      &fakeSite{plugins: []string{"akismet/akismet.php", "wp-rocket/wp-rocket.php"}},
			wantScore: 100,
			wantName:  "WP Rocket",
		},
		{name: "WP_CACHE constant", constant: true, wantScore: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFetcher{get: map[string]checks.Response{home: page("<html></html>", tt.headers)}}
			c := &checks.CachePresentCheck{Fetcher: f, Site: tt.site, CacheConstant: tt.constant}
			res := c.Run(context.Background(), home)
			if res.Score != tt.wantScore {
				t.Errorf("score = %d, want %d", res.Score, tt.wantScore)
			}
			meta := res.Meta.(*scoring.CacheMeta)
			if meta.Plugin != tt.wantName {
				t.Errorf("plugin = %q, want %q", meta.Plugin, tt.wantName)
			}
		})
	}
}

func TestCachePresentFetchFailure(t *testing.T) {
	c := &checks.CachePresentCheck{Fetcher: &fakeFetcher{}}
	res := c.Run(context.Background(), home)
	if res.Score != 0 {
		t.Errorf("score = %d, want 0", res.Score)
	}
	if res.Meta.ErrorMessage() == "" {
		t.Error("expected error in meta")
	}
}

func TestCompression(t *testing.T) {
	tests := []struct {
		enc  string
		want int
		meta string
	}{
		{"gzip", 100, "gzip"},
		{"BR", 100, "br"},
		{"", 0, "n/a"},
		{"identity", 0, "identity"},
	}
	for _, tt := range tests {
		f := &fakeFetcher{get: map[string]checks.Response{home: page("x", map[string]string{"Content-Encoding": tt.enc})}}
		res := (&checks.CompressionCheck{Fetcher: f}).Run(context.Background(), home)
		if res.Score != tt.want {
			t.Errorf("encoding %q: score = %d, want %d", tt.enc, res.Score, tt.want)
		}
		if got := res.Meta.(*scoring.CompressionMeta).Encoding; got != tt.meta {
			t.Errorf("encoding %q: meta = %q, want %q", tt.enc, got, tt.meta)
		}
	}
}

func TestClientCache(t *testing.T) {
	const asset = "https://example.com/style.css"
	doc := `<head><link rel="stylesheet" href="/style.css"></head>`

	tests := []struct {
		name string
		cc   string
		want int
	}{
		{"one year", "public, max-age=31536000, immutable", 100},
		{"one day", "max-age=86400", 80},
		{"short", "max-age=600", 60},
		{"no max-age", "no-cache", 50},
		{"missing header", "", 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFetcher{
				get:  map[string]checks.Response{home: page(doc, nil)},
				head: map[string]checks.Response{asset: page("", map[string]string{"Cache-Control": tt.cc})},
			}
			res := (&checks.ClientCacheCheck{Fetcher: f}).Run(context.Background(), home)
			if res.Score != tt.want {
				t.Errorf("score = %d, want %d", res.Score, tt.want)
			}
			if got := res.Meta.(*scoring.ClientCacheMeta).Asset; got != asset {
				t.Errorf("asset = %q, want %q", got, asset)
			}
		})
	}
}

func TestClientCacheFallbacks(t *testing.T) {
	res := (&checks.ClientCacheCheck{Fetcher: &fakeFetcher{}}).Run(context.Background(), home)
	if res.Score != 50 || res.Meta.ErrorMessage() == "" {
		t.Errorf("expected 50 with error when no stylesheet, got %d %q", res.Score, res.Meta.ErrorMessage())
	}

	const themeCSS = "https://example.com/wp-content/themes/demo/style.css"
	f := &fakeFetcher{head: map[string]checks.Response{themeCSS: page("", map[string]string{"Cache-Control": "max-age=31536000"})}}
	res = (&checks.ClientCacheCheck{Fetcher: f, StylesheetURL: themeCSS}).Run(context.Background(), home)
	if res.Score != 100 {
		t.Errorf("expected configured stylesheet to be used, got %d", res.Score)
	}
}

func TestAssetCounts(t *testing.T) {
	doc := ""
	for i := 0; i < 5; i++ {
		doc += `<link rel="stylesheet" href="/s.css">`
	}
	for i := 0; i < 8; i++ {
		doc += `<script src="/s.js"></script>`
	}
	f := &fakeFetcher{get: map[string]checks.Response{home: page(doc, nil)}}
	res := (&checks.AssetCountsCheck{Fetcher: f}).Run(context.Background(), home)
	// 100 - 5*2 - 5*3
	if res.Score != 75 {
		t.Errorf("score = %d, want 75", res.Score)
	}

	res = (&checks.AssetCountsCheck{Fetcher: &fakeFetcher{}}).Run(context.Background(), home)
	if res.Score != 50 {
		t.Errorf("fallback score = %d, want 50", res.Score)
	}
}

func TestRenderBlockingFloor(t *testing.T) {
	doc := "<head>"
	for i := 0; i < 12; i++ {
		doc += `<script src="/s.js"></script>`
	}
	doc += "</head>"
	f := &fakeFetcher{get: map[string]checks.Response{home: page(doc, nil)}}
	res := (&checks.RenderBlockingCheck{Fetcher: f}).Run(context.Background(), home)
	if res.Score != 0 {
		t.Errorf("score = %d, want 0", res.Score)
	}
}

// stepClock advances by step on every call.
func stepClock(step time.Duration) func() time.Time {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t := now
		now = now.Add(step)
		return t
	}
}

func TestTTFBBands(t *testing.T) {
	tests := []struct {
		elapsed time.Duration
		want    int
	}{
		{150 * time.Millisecond, 100},
		{200 * time.Millisecond, 100},
		{250 * time.Millisecond, 90},
		{350 * time.Millisecond, 80},
		{450 * time.Millisecond, 60},
		{700 * time.Millisecond, 40},
		{2 * time.Second, 20},
	}
	for _, tt := range tests {
		f := &fakeFetcher{get: map[string]checks.Response{home: page("x", nil)}}
		res := (&checks.TTFBCheck{Fetcher: f, Clock: stepClock(tt.elapsed)}).Run(context.Background(), home)
		if res.Score != tt.want {
			t.Errorf("elapsed %v: score = %d, want %d", tt.elapsed, res.Score, tt.want)
		}
		if ms := res.Meta.(*scoring.TTFBMeta).TTFBMs; ms != int(tt.elapsed/time.Millisecond) {
			t.Errorf("elapsed %v: ttfb_ms = %d", tt.elapsed, ms)
		}
	}
}

func TestTTFBTransportFailure(t *testing.T) {
	res := (&checks.TTFBCheck{Fetcher: &fakeFetcher{}, Clock: stepClock(time.Second)}).Run(context.Background(), home)
	if res.Score != 50 {
		t.Errorf("score = %d, want 50", res.Score)
	}
}

func TestProtocolAlwaysSeventy(t *testing.T) {
	f := &fakeFetcher{head: map[string]checks.Response{home: {OK: true, StatusCode: 200, Header: http.Header{}, Proto: "HTTP/2.0"}}}
	res := (&checks.ProtocolCheck{Fetcher: f}).Run(context.Background(), home)
	if res.Score != 70 {
		t.Errorf("score = %d, want 70", res.Score)
	}
	if alpn := res.Meta.(*scoring.ProtocolMeta).ALPN; alpn != "HTTP/2.0" {
		t.Errorf("alpn = %q", alpn)
	}

	res = (&checks.ProtocolCheck{Fetcher: &fakeFetcher{}}).Run(context.Background(), home)
	if res.Score != 70 || res.Meta.(*scoring.ProtocolMeta).ALPN != "h2/h3-unknown" {
		t.Errorf("unexpected fallback: %d %+v", res.Score, res.Meta)
	}
}

func TestDatabaseChecks(t *testing.T) {
	site := &fakeSite{
		autoload:   600 << 10,
		metaCounts: []int{50, 45, 40},
		expired:    250,
		updates:    checks.Updates{Core: 1, Plugins: 9, Themes: 0},
	}

	tests := []struct {
		check checks.Check
		want  int
	}{
		{&checks.AutoloadSizeCheck{Site: site}, 60},
		{&checks.PostmetaBloatCheck{Site: site}, 80},
		{&checks.TransientsCheck{Site: site}, 60},
		{&checks.UpdatesCheck{Site: site, Kind: checks.UpdateCore}, 60},
		{&checks.UpdatesCheck{Site: site, Kind: checks.UpdatePlugins}, 40},
		{&checks.UpdatesCheck{Site: site, Kind: checks.UpdateThemes}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.check.Slug(), func(t *testing.T) {
			res := tt.check.Run(context.Background(), home)
			if res.Score != tt.want {
				t.Errorf("score = %d, want %d", res.Score, tt.want)
			}
		})
	}
}

func TestPostmetaAverage(t *testing.T) {
	site := &fakeSite{metaCounts: []int{10, 11, 11}}
	res := (&checks.PostmetaBloatCheck{Site: site}).Run(context.Background(), home)
	if got := res.Meta.(*scoring.PostmetaMeta).AvgMeta; got != 10.7 {
		t.Errorf("avg_meta = %v, want 10.7", got)
	}

	res = (&checks.PostmetaBloatCheck{Site: &fakeSite{}}).Run(context.Background(), home)
	if res.Score != 100 {
		t.Errorf("score without posts = %d, want 100", res.Score)
	}
}

func TestDatabaseChecksWithoutSite(t *testing.T) {
	for _, c := range checks.DefaultChecks(checks.Options{Fetcher: &fakeFetcher{}})[8:] {
		res := c.Run(context.Background(), home)
		if res.Score != 50 {
			t.Errorf("%s: score = %d, want 50", c.Slug(), res.Score)
		}
		if res.Meta.ErrorMessage() != "site database not configured" {
			t.Errorf("%s: error = %q", c.Slug(), res.Meta.ErrorMessage())
		}
	}
}

func TestDatabaseChecksQueryError(t *testing.T) {
	site := &fakeSite{err: errors.New("table missing")}
	res := (&checks.AutoloadSizeCheck{Site: site}).Run(context.Background(), home)
	if res.Score != 50 || res.Meta.ErrorMessage() != "table missing" {
		t.Errorf("unexpected result: %d %q", res.Score, res.Meta.ErrorMessage())
	}
}

func TestSuiteRunAllFetchesFail(t *testing.T) {
	f := &fakeFetcher{}
	suite := checks.NewSuite(checks.DefaultChecks(checks.Options{Fetcher: f, Clock: stepClock(0)})...)
	res := suite.Run(context.Background(), home, scoring.DefaultSections())

	if len(res.Checks) != 14 {
		t.Fatalf("expected 14 checks, got %d", len(res.Checks))
	}
	want := map[string]int{
		scoring.CheckCachePresent: 0,
		scoring.CheckCompression:  0,
		scoring.CheckClientCache:  50,
		scoring.CheckTTFB:         50,
		scoring.CheckProtocol:     70,
		scoring.CheckImages:       50,
	}
	for slug, score := range want {
		if got := res.Checks[slug].Score; got != score {
			t.Errorf("%s = %d, want %d", slug, got, score)
		}
	}
	// caching (0+0+50)/3, assets 50, images 50, server 60, database 50, core 50
	if s := res.Sections[scoring.SectionCaching].Score; s != 17 {
		t.Errorf("caching = %d, want 17", s)
	}
	if res.Overall != 46 {
		t.Errorf("overall = %d, want 46", res.Overall)
	}
}

func TestPageChecksTreatErrorStatusAsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<html><head><title>Error</title></head><body>Internal error</body></html>`))
	}))
	defer srv.Close()

	f := checks.NewHTTPFetcher("siteaudit-test", time.Second, time.Second)
	tests := []struct {
		name  string
		check checks.Check
		err   func(scoring.CheckResult) string
	}{
		{
			name:  "assets_counts",
			check: &checks.AssetCountsCheck{Fetcher: f},
			err:   func(r scoring.CheckResult) string { return r.Meta.(*scoring.AssetCountsMeta).Error },
		},
		{
			name:  "render_blocking",
			check: &checks.RenderBlockingCheck{Fetcher: f},
			err:   func(r scoring.CheckResult) string { return r.Meta.(*scoring.RenderBlockingMeta).Error },
		},
		{
			name:  "images_dims_and_size",
			check: &checks.ImagesCheck{Fetcher: f},
			err:   func(r scoring.CheckResult) string { return r.Meta.(*scoring.ImagesMeta).Error },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tt.check.Run(context.Background(), srv.URL+"/")
			if res.Score != 50 {
				t.Errorf("score = %d, want fallback 50", res.Score)
			}
			if got := tt.err(res); got != "HTTP 500" {
				t.Errorf("meta error = %q, want HTTP 500", got)
			}
		})
	}
}

func TestFailedPageWithBodyCountsAsFailure(t *testing.T) {
	failed := checks.Response{HTML: `<img src="/a.png">`, Header: http.Header{}, StatusCode: 404}
	f := &fakeFetcher{get: map[string]checks.Response{home: failed}}

	res := (&checks.ImagesCheck{Fetcher: f}).Run(context.Background(), home)
	if res.Score != 50 || res.Meta.(*scoring.ImagesMeta).Error != "HTTP 404" {
		t.Errorf("images on 404 = %d %+v, want fallback with HTTP 404", res.Score, res.Meta)
	}
}

func TestClientCacheIgnoresErrorPage(t *testing.T) {
	const themeCSS = "https://example.com/wp-content/themes/demo/style.css"
	errorPage := checks.Response{
		HTML:       `<link rel="stylesheet" href="https://example.com/error.css">`,
		Header:     http.Header{},
		StatusCode: 503,
		Error:      "HTTP 503",
	}
	f := &fakeFetcher{
		get:  map[string]checks.Response{home: errorPage},
		head: map[string]checks.Response{themeCSS: page("", map[string]string{"Cache-Control": "max-age=86400"})},
	}

	res := (&checks.ClientCacheCheck{Fetcher: f, StylesheetURL: themeCSS}).Run(context.Background(), home)
	meta := res.Meta.(*scoring.ClientCacheMeta)
	if meta.Asset != themeCSS || res.Score != 80 {
		t.Errorf("asset = %q score = %d, want configured stylesheet scored 80", meta.Asset, res.Score)
	}
}
