package checks

import (
	"context"

	"github.com/siteaudit/siteaudit/pkg/scoring"
)

const (
	missingDimsPenalty = 4
	missingDimsCap     = 40
	noNextGenPenalty   = 9
)

// ImagesCheck flags images without explicit dimensions and pages that serve
// no WebP or AVIF at all.
type ImagesCheck struct {
	Fetcher Fetcher
}

func (c *ImagesCheck) Slug() string { return scoring.CheckImages }

func (c *ImagesCheck) Run(ctx context.Context, target string) scoring.CheckResult {
	resp := c.Fetcher.Get(ctx, target)
	if fetchFailed(resp) {
		return scoring.CheckResult{Score: fallbackScore, Meta: &scoring.ImagesMeta{Failure: scoring.Failure{Error: fetchError(resp)}}}
	}
	return scoreImages(resp.HTML)
}

func scoreImages(doc string) scoring.CheckResult {
	st := scanImages(doc)
	score := 100 - min(missingDimsCap, missingDimsPenalty*st.missingDims)
	if st.total > 0 && st.nextGen == 0 {
		score -= noNextGenPenalty
	}
	return scoring.CheckResult{
		Score: scoring.Clamp(score),
		Meta: &scoring.ImagesMeta{
			Total:       st.total,
			MissingDims: st.missingDims,
			NextGen:     st.nextGen,
		},
	}
}
