// Package siteinfo collects an environment snapshot of a WordPress site for
// diagnostics: versions, theme, active plugins, REST API and cron status.
// Everything is read off-host, from the site database and the public pages.
package siteinfo

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/siteaudit/siteaudit/pkg/audit"
	"github.com/siteaudit/siteaudit/pkg/checks"
)

// DefaultCacheTTL is how long a snapshot is reused.
const DefaultCacheTTL = 10 * time.Minute

// cronGrace is how far past due a cron event may be before it counts as overdue.
const cronGrace = 10 * time.Minute

// Status values for the REST API and cron fields.
const (
	StatusUnknown     = "unknown"
	StatusReachable   = "reachable"
	StatusUnreachable = "unreachable"
	StatusEnabled     = "enabled"
	StatusOverdue     = "overdue"
)

// Database is the read access the collector needs to the site database.
type Database interface {
	Option(ctx context.Context, name string) (string, error)
	ActivePlugins(ctx context.Context) ([]string, error)
	ServerVersion(ctx context.Context) (string, error)
}

// Info is one environment snapshot.
type Info struct {
	GeneratedAt string    `json:"generated_at"`
	WordPress   WordPress `json:"wordpress"`
	Theme       Theme     `json:"theme"`
	Plugins     Plugins   `json:"plugins"`
	Server      Server    `json:"server"`
	URLs        URLs      `json:"urls"`
	Errors      []string  `json:"errors,omitempty"`
}

type WordPress struct {
	Version     string `json:"version"`
	DBVersion   string `json:"db_version"`
	Locale      string `json:"locale"`
	RESTAPI     string `json:"rest_api"`
	Cron        string `json:"cron"`
	CronEvents  int    `json:"cron_events"`
	CronOverdue int    `json:"cron_overdue"`
}

type Theme struct {
	Stylesheet string `json:"stylesheet"`
	Template   string `json:"template"`
}

type Plugins struct {
	Active      []string `json:"active"`
	TotalActive int      `json:"total_active"`
}

type Server struct {
	Software  string `json:"software"`
	DBVersion string `json:"db_version"`
}

type URLs struct {
	SiteURL string `json:"site_url"`
	HomeURL string `json:"home_url"`
	RESTURL string `json:"rest_url"`
}

// Collector builds snapshots. DB and Fetcher are optional; the fields they
// feed are reported as unknown without them.
type Collector struct {
	Fetcher checks.Fetcher
	DB      Database
	HomeURL string
	Cache   *audit.Cache[*Info]
	Now     func() time.Time
}

// NewCollector creates a collector with a ten minute snapshot cache.
func NewCollector(fetcher checks.Fetcher, db Database, homeURL string) *Collector {
	return &Collector{
		Fetcher: fetcher,
		DB:      db,
		HomeURL: homeURL,
		Cache:   audit.NewCache[*Info](DefaultCacheTTL, 1),
	}
}

func (c *Collector) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Collect returns the cached snapshot unless refresh is set or it expired.
// Failures are recorded in Info.Errors and never abort the snapshot.
func (c *Collector) Collect(ctx context.Context, refresh bool) *Info {
	if !refresh && c.Cache != nil {
		if info, ok := c.Cache.Get(c.HomeURL); ok {
			return info
		}
	}

	now := c.now()
	info := &Info{
		GeneratedAt: now.Format(audit.TimestampLayout),
		WordPress: WordPress{
			Version: StatusUnknown,
			RESTAPI: StatusUnknown,
			Cron:    StatusUnknown,
		},
		Plugins: Plugins{Active: []string{}},
		URLs:    URLs{HomeURL: c.HomeURL},
	}
	c.collectDB(ctx, info, now)
	c.collectHTTP(ctx, info)

	if c.Cache != nil {
		c.Cache.Set(c.HomeURL, info)
	}
	return info
}

func (c *Collector) collectDB(ctx context.Context, info *Info, now time.Time) {
	if c.DB == nil {
		return
	}
	fail := func(err error) { info.Errors = append(info.Errors, err.Error()) }
	option := func(name string) string {
		v, err := c.DB.Option(ctx, name)
		if err != nil {
			fail(err)
		}
		return v
	}

	info.WordPress.DBVersion = option("db_version")
	info.WordPress.Locale = option("WPLANG")
	if info.WordPress.Locale == "" {
		info.WordPress.Locale = "en_US"
	}
	info.Theme.Stylesheet = option("stylesheet")
	info.Theme.Template = option("template")
	info.URLs.SiteURL = option("siteurl")
	if home := option("home"); home != "" {
		info.URLs.HomeURL = home
	}

	if cron := option("cron"); cron != "" {
		events, overdue := CronCounts(cron, now)
		info.WordPress.CronEvents = events
		info.WordPress.CronOverdue = overdue
		info.WordPress.Cron = StatusEnabled
		if overdue > 0 {
			info.WordPress.Cron = StatusOverdue
		}
	}

	if plugins, err := c.DB.ActivePlugins(ctx); err != nil {
		fail(err)
	} else if plugins != nil {
		info.Plugins.Active = plugins
	}
	info.Plugins.TotalActive = len(info.Plugins.Active)

	if v, err := c.DB.ServerVersion(ctx); err != nil {
		fail(err)
	} else {
		info.Server.DBVersion = v
	}
}

func (c *Collector) collectHTTP(ctx context.Context, info *Info) {
	home := info.URLs.HomeURL
	if home == "" {
		return
	}
	if !strings.HasSuffix(home, "/") {
		home += "/"
	}
	info.URLs.RESTURL = home + "wp-json/"
	if c.Fetcher == nil {
		return
	}

	page := c.Fetcher.Get(ctx, home)
	if page.Header != nil {
		info.Server.Software = page.Header.Get("Server")
	}
	if page.OK {
		if v := GeneratorVersion(page.HTML); v != "" {
			info.WordPress.Version = v
		}
	} else if page.Error != "" {
		info.Errors = append(info.Errors, "home page: "+page.Error)
	}

	info.WordPress.RESTAPI = RESTStatus(c.Fetcher.Get(ctx, info.URLs.RESTURL))
}

// RESTStatus treats any answer below 500 as a reachable REST API; auth
// errors still prove the route is served.
func RESTStatus(resp checks.Response) string {
	if resp.StatusCode >= 200 && resp.StatusCode < 500 {
		return StatusReachable
	}
	return StatusUnreachable
}

var (
	metaTagPattern   = regexp.MustCompile(`(?is)<meta\b[^>]*>`)
	generatorName    = regexp.MustCompile(`(?i)\bname\s*=\s*["']generator["']`)
	generatorContent = regexp.MustCompile(`(?i)\bcontent\s*=\s*["']WordPress\s+([0-9][0-9A-Za-z.\-]*)["']`)
	cronTimestamp    = regexp.MustCompile(`i:(\d{9,11});a:`)
)

// GeneratorVersion extracts the version from a WordPress generator meta tag.
func GeneratorVersion(doc string) string {
	for _, tag := range metaTagPattern.FindAllString(doc, -1) {
		if !generatorName.MatchString(tag) {
			continue
		}
		if m := generatorContent.FindStringSubmatch(tag); m != nil {
			return m[1]
		}
	}
	return ""
}

// CronCounts counts the scheduled timestamps in a serialized cron option and
// how many of them are overdue at now.
func CronCounts(serialized string, now time.Time) (events, overdue int) {
	cutoff := now.Add(-cronGrace).Unix()
	for _, m := range cronTimestamp.FindAllStringSubmatch(serialized, -1) {
		ts, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		events++
		if ts < cutoff {
			overdue++
		}
	}
	return events, overdue
}
