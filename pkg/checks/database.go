package checks

import (
	"context"
	"math"
	"time"

	"github.com/siteaudit/siteaudit/pkg/scoring"
)

var (
	autoloadBands = []band{
		{1 << 20, 40},   // 1 MiB
		{512 << 10, 60}, // 512 KiB
		{128 << 10, 80}, // 128 KiB
	}
	postmetaBands   = []band{{120, 40}, {80, 60}, {40, 80}}
	transientsBands = []band{{1000, 40}, {200, 60}, {20, 80}}
)

// postmetaSample is how many recent published posts are averaged.
const postmetaSample = 20

// AutoloadSizeCheck measures the options loaded on every request.
type AutoloadSizeCheck struct {
	Site SiteStats
}

func (c *AutoloadSizeCheck) Slug() string { return scoring.CheckAutoloadSize }

func (c *AutoloadSizeCheck) Run(ctx context.Context, _ string) scoring.CheckResult {
	meta := &scoring.AutoloadMeta{}
	if c.Site == nil {
		meta.Error = errNoSiteDatabase
		return scoring.CheckResult{Score: fallbackScore, Meta: meta}
	}
	n, err := c.Site.AutoloadedOptionBytes(ctx)
	if err != nil {
		meta.Error = err.Error()
		return scoring.CheckResult{Score: fallbackScore, Meta: meta}
	}
	meta.Bytes = n
	return scoring.CheckResult{Score: scoreBands(float64(n), autoloadBands), Meta: meta}
}

// PostmetaBloatCheck averages meta rows across recent posts.
type PostmetaBloatCheck struct {
	Site SiteStats
}

func (c *PostmetaBloatCheck) Slug() string { return scoring.CheckPostmetaBloat }

func (c *PostmetaBloatCheck) Run(ctx context.Context, _ string) scoring.CheckResult {
	meta := &scoring.PostmetaMeta{}
	if c.Site == nil {
		meta.Error = errNoSiteDatabase
		return scoring.CheckResult{Score: fallbackScore, Meta: meta}
	}
	counts, err := c.Site.RecentPostMetaCounts(ctx, postmetaSample)
	if err != nil {
		meta.Error = err.Error()
		return scoring.CheckResult{Score: fallbackScore, Meta: meta}
	}
	meta.AvgMeta = averageMeta(counts)
	return scoring.CheckResult{Score: scoreBands(meta.AvgMeta, postmetaBands), Meta: meta}
}

// averageMeta is the mean of counts rounded to one decimal, 0 for no posts.
func averageMeta(counts []int) float64 {
	if len(counts) == 0 {
		return 0
	}
	total := 0
	for _, c := range counts {
		total += c
	}
	return math.Round(float64(total)/float64(len(counts))*10) / 10
}

// TransientsCheck counts transients whose timeout has passed.
type TransientsCheck struct {
	Site  SiteStats
	Clock func() time.Time // defaults to time.Now
}

func (c *TransientsCheck) Slug() string { return scoring.CheckTransients }

func (c *TransientsCheck) Run(ctx context.Context, _ string) scoring.CheckResult {
	meta := &scoring.TransientsMeta{}
	if c.Site == nil {
		meta.Error = errNoSiteDatabase
		return scoring.CheckResult{Score: fallbackScore, Meta: meta}
	}
	now := time.Now
	if c.Clock != nil {
		now = c.Clock
	}
	n, err := c.Site.ExpiredTransients(ctx, now())
	if err != nil {
		meta.Error = err.Error()
		return scoring.CheckResult{Score: fallbackScore, Meta: meta}
	}
	meta.Expired = n
	return scoring.CheckResult{Score: scoreBands(float64(n), transientsBands), Meta: meta}
}
