package siteinfo_test

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/siteaudit/siteaudit/pkg/checks"
	"github.com/siteaudit/siteaudit/pkg/siteinfo"
)

const home = "https://example.com/"

var now = time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC)

type fakeDB struct {
	options map[string]string
	plugins []string
	version string
	err     error
}

func (f fakeDB) Option(_ context.Context, name string) (string, error) {
	return f.options[name], nil
}

func (f fakeDB) ActivePlugins(context.Context) ([]string, error) {
	return f.plugins, f.err
}

func (f fakeDB) ServerVersion(context.Context) (string, error) {
	return f.version, nil
}

type routeFetcher struct {
	get   map[string]checks.Response
	calls int
}

func (f *routeFetcher) Get(_ context.Context, url string) checks.Response {
	f.calls++
	if r, ok := f.get[url]; ok {
		return r
	}
	return checks.Response{Header: http.Header{}, Error: "connection refused"}
}

func (f *routeFetcher) Head(ctx context.Context, url string) checks.Response {
	return f.Get(ctx, url)
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func TestCollect(t *testing.T) {
	overdue := now.Add(-time.Hour).Unix()
	upcoming := now.Add(time.Hour).Unix()
	db := fakeDB{
		options: map[string]string{
			"db_version": "57155",
			"stylesheet": "astra-child",
			"template":   "astra",
			"siteurl":    "https://example.com/wp",
			"home":       "https://example.com",
			"cron": `a:3:{i:` + itoa(overdue) + `;a:1:{s:16:"wp_version_check";a:0:{}}i:` +
				itoa(upcoming) + `;a:1:{s:17:"wp_update_plugins";a:0:{}}s:7:"version";i:2;}`,
		},
		plugins: []string{"akismet/akismet.php", "wp-rocket/wp-rocket.php"},
		version: "10.6.12-MariaDB",
	}
	f := &routeFetcher{get: map[string]checks.Response{
		home: {
			OK:         true,
			StatusCode: 200,
			HTML:       `<head><meta name="generator" content="WordPress 6.4.3"></head>`,
			Header:     http.Header{"Server": {"nginx"}},
		},
		home + "wp-json/": {StatusCode: 401, Header: http.Header{}, Error: "HTTP 401"},
	}}

	c := siteinfo.NewCollector(f, db, home)
	c.Now = func() time.Time { return now }
	info := c.Collect(context.Background(), false)

	wp := info.WordPress
	if wp.Version != "6.4.3" || wp.DBVersion != "57155" || wp.Locale != "en_US" {
		t.Errorf("wordpress = %+v", wp)
	}
	if wp.RESTAPI != siteinfo.StatusReachable {
		t.Errorf("rest_api = %q, want reachable for a 401", wp.RESTAPI)
	}
	if wp.Cron != siteinfo.StatusOverdue || wp.CronEvents != 2 || wp.CronOverdue != 1 {
		t.Errorf("cron = %q (%d events, %d overdue)", wp.Cron, wp.CronEvents, wp.CronOverdue)
	}
	if info.Theme != (siteinfo.Theme{Stylesheet: "astra-child", Template: "astra"}) {
		t.Errorf("theme = %+v", info.Theme)
	}
	if info.Plugins.TotalActive != 2 || !reflect.DeepEqual(info.Plugins.Active, db.plugins) {
		t.Errorf("plugins = %+v", info.Plugins)
	}
	if info.Server != (siteinfo.Server{Software: "nginx", DBVersion: "10.6.12-MariaDB"}) {
		t.Errorf("server = %+v", info.Server)
	}
	wantURLs := siteinfo.URLs{SiteURL: "https://example.com/wp", HomeURL: "https://example.com", RESTURL: home + "wp-json/"}
	if info.URLs != wantURLs {
		t.Errorf("urls = %+v, want %+v", info.URLs, wantURLs)
	}
	if info.GeneratedAt != "2024-03-09 14:05:00" {
		t.Errorf("generated_at = %q", info.GeneratedAt)
	}
	if len(info.Errors) != 0 {
		t.Errorf("errors = %v", info.Errors)
	}
}

func TestCollectWithoutDatabase(t *testing.T) {
	f := &routeFetcher{get: map[string]checks.Response{
		home: {OK: true, StatusCode: 200, HTML: "<html></html>", Header: http.Header{}},
	}}
	info := siteinfo.NewCollector(f, nil, home).Collect(context.Background(), false)

	if info.WordPress.Version != siteinfo.StatusUnknown || info.WordPress.Cron != siteinfo.StatusUnknown {
		t.Errorf("wordpress = %+v, want unknown fields", info.WordPress)
	}
	if info.WordPress.RESTAPI != siteinfo.StatusUnreachable {
		t.Errorf("rest_api = %q, want unreachable", info.WordPress.RESTAPI)
	}
	if info.Plugins.Active == nil || info.Plugins.TotalActive != 0 {
		t.Errorf("plugins = %+v, want empty list", info.Plugins)
	}
}

func TestCollectRecordsErrors(t *testing.T) {
	db := fakeDB{err: errors.New("read option active_plugins: timeout")}
	f := &routeFetcher{get: map[string]checks.Response{
		home: {StatusCode: 503, HTML: "down", Header: http.Header{}, Error: "HTTP 503"},
	}}
	info := siteinfo.NewCollector(f, db, home).Collect(context.Background(), false)

	want := []string{"read option active_plugins: timeout", "home page: HTTP 503"}
	if !reflect.DeepEqual(info.Errors, want) {
		t.Errorf("errors = %v, want %v", info.Errors, want)
	}
}

func TestCollectCachesUntilRefresh(t *testing.T) {
	f := &routeFetcher{}
	c := siteinfo.NewCollector(f, nil, home)
	ctx := context.Background()

	first := c.Collect(ctx, false)
	calls := f.calls
	if again := c.Collect(ctx, false); again != first || f.calls != calls {
		t.Errorf("second collect was not cached (fetches %d -> %d)", calls, f.calls)
	}
	if fresh := c.Collect(ctx, true); fresh == first || f.calls == calls {
		t.Error("refresh reused the cached snapshot")
	}
}

func TestGeneratorVersion(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"name first", `<meta name="generator" content="WordPress 6.5">`, "6.5"},
		{"content first", `<META content='WordPress 6.4.3' NAME='generator' />`, "6.4.3"},
		{"other generator", `<meta name="generator" content="Site Kit by Google 1.2"><meta name="generator" content="WordPress 6.2-beta1">`, "6.2-beta1"},
		{"hidden", `<meta name="description" content="WordPress 6.5">`, ""},
		{"none", `<html></html>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := siteinfo.GeneratorVersion(tt.doc); got != tt.want {
				t.Errorf("GeneratorVersion() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCronCounts(t *testing.T) {
	graceEdge := now.Add(-5 * time.Minute).Unix()
	stale := now.Add(-2 * time.Hour).Unix()
	v := `a:3:{i:` + itoa(graceEdge) + `;a:0:{}i:` + itoa(stale) + `;a:0:{}s:7:"version";i:2;}`

	events, overdue := siteinfo.CronCounts(v, now)
	if events != 2 || overdue != 1 {
		t.Errorf("CronCounts() = %d, %d, want 2, 1", events, overdue)
	}
	if events, overdue := siteinfo.CronCounts("", now); events != 0 || overdue != 0 {
		t.Errorf("empty option = %d, %d", events, overdue)
	}
}

func TestRESTStatus(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, siteinfo.StatusReachable},
		{403, siteinfo.StatusReachable},
		{500, siteinfo.StatusUnreachable},
		{0, siteinfo.StatusUnreachable},
	}
	for _, tt := range tests {
		if got := siteinfo.RESTStatus(checks.Response{StatusCode: tt.code}); got != tt.want {
			t.Errorf("RESTStatus(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}
