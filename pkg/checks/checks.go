// Package checks implements the internal site audit checks.
// Each check probes one aspect of a site and always yields a score; failures
// degrade to a documented fallback score with the error recorded in meta.
package checks

import (
	"context"
	"time"

	"github.com/siteaudit/siteaudit/pkg/scoring"
)

// Check is the interface every internal check implements.
type Check interface {
	// Slug returns the machine-readable check identifier.
	Slug() string
	// Run evaluates the check against target. It never fails; errors are
	// reported through the result's meta.
	Run(ctx context.Context, target string) scoring.CheckResult
}

// Updates is the number of pending updates per kind.
type Updates struct {
	Core    int
	Plugins int
	Themes  int
}

// SiteStats exposes the database-backed facts about a site.
type SiteStats interface {
	AutoloadedOptionBytes(ctx context.Context) (int64, error)
	// RecentPostMetaCounts returns the meta row count of each of the most
	// recent published posts, newest first.
	RecentPostMetaCounts(ctx context.Context, limit int) ([]int, error)
	ExpiredTransients(ctx context.Context, now time.Time) (int, error)
	PendingUpdates(ctx context.Context) (Updates, error)
	// ActivePlugins returns plugin basenames such as "wp-rocket/wp-rocket.php".
	ActivePlugins(ctx context.Context) ([]string, error)
}

const (
	fallbackScore     = 50
	errNoSiteDatabase = "site database not configured"
)

// band maps values above a threshold to a score. Bands are checked in order.
type band struct {
	above float64
	score int
}

// scoreBands returns the score of the first band v exceeds, or 100.
func scoreBands(v float64, bands []band) int {
	for _, b := range bands {
		if v > b.above {
			return b.score
		}
	}
	return 100
}

// Suite runs the full set of checks for one site.
type Suite struct {
	checks []Check
}

// NewSuite creates a suite with the given checks.
func NewSuite(checks ...Check) *Suite {
	return &Suite{checks: checks}
}

// Checks returns the suite's checks in run order.
func (s *Suite) Checks() []Check {
	return s.checks
}

// Run executes every check sequentially and groups the results into defs.
func (s *Suite) Run(ctx context.Context, target string, defs []scoring.SectionDef) *scoring.InternalAuditResult {
	results := make(map[string]scoring.CheckResult, len(s.checks))
	for _, c := range s.checks {
		results[c.Slug()] = c.Run(ctx, target)
	}
	return scoring.NewInternalAuditResult(defs, results)
}
