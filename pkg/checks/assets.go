package checks

import (
	"context"
	"fmt"

	"github.com/siteaudit/siteaudit/pkg/scoring"
)

// fetchFailed reports whether a response carries no usable document.
// Error pages served with a 4xx or 5xx status count as failures.
func fetchFailed(resp Response) bool {
	return !resp.OK
}

// fetchError describes a failed fetch for check meta.
func fetchError(resp Response) string {
	switch {
	case resp.Error != "":
		return resp.Error
	case resp.StatusCode != 0:
		return fmt.Sprintf("HTTP %d", resp.StatusCode)
	default:
		return "fetch failed"
	}
}

// Request budgets before penalties apply.
const (
	freeStylesheets = 3
	freeScripts     = 5
	assetPenalty    = 5
	blockingPenalty = 10
)

// AssetCountsCheck penalizes pages that load many stylesheets and scripts.
type AssetCountsCheck struct {
	Fetcher Fetcher
}

func (c *AssetCountsCheck) Slug() string { return scoring.CheckAssetsCounts }

func (c *AssetCountsCheck) Run(ctx context.Context, target string) scoring.CheckResult {
	resp := c.Fetcher.Get(ctx, target)
	if fetchFailed(resp) {
		return scoring.CheckResult{Score: fallbackScore, Meta: &scoring.AssetCountsMeta{Failure: scoring.Failure{Error: fetchError(resp)}}}
	}

	css, js := countAssets(resp.HTML)
	score := 100 - assetPenalty*max(0, css-freeStylesheets) - assetPenalty*max(0, js-freeScripts)
	return scoring.CheckResult{
		Score: max(0, score),
		Meta:  &scoring.AssetCountsMeta{CSS: css, JS: js},
	}
}

// RenderBlockingCheck counts synchronous stylesheets and scripts in <head>.
type RenderBlockingCheck struct {
	Fetcher Fetcher
}

func (c *RenderBlockingCheck) Slug() string { return scoring.CheckRenderBlocking }

func (c *RenderBlockingCheck) Run(ctx context.Context, target string) scoring.CheckResult {
	resp := c.Fetcher.Get(ctx, target)
	if fetchFailed(resp) {
		return scoring.CheckResult{Score: fallbackScore, Meta: &scoring.RenderBlockingMeta{Failure: scoring.Failure{Error: fetchError(resp)}}}
	}

	css, js := countBlocking(resp.HTML)
	return scoring.CheckResult{
		Score: max(0, 100-blockingPenalty*(css+js)),
		Meta:  &scoring.RenderBlockingMeta{BlockingCSS: css, BlockingJS: js},
	}
}
