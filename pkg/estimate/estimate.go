// Package estimate derives approximate PSI category scores and lab metrics
// from internal check results when PageSpeed Insights is unavailable.
//
// Every formula here is a weak heuristic. Estimated values are shown to
// users but never treated as measurements: estimated vitals are excluded
// from the overall score.
package estimate

import (
	"math"

	"github.com/siteaudit/siteaudit/pkg/scoring"
)

// Categories approximates the three PSI categories from section scores.
// Missing sections count as 0 in their fixed denominator.
func Categories(internal *scoring.InternalAuditResult) scoring.CategoryScores {
	get := func(key string) int {
		s, _ := internal.SectionScore(key)
		return s
	}

	perf := roundDiv(get(scoring.SectionCaching)+get(scoring.SectionAssets)+get(scoring.SectionImages)+get(scoring.SectionServer), 4)
	bp := roundDiv(get(scoring.SectionCore)+get(scoring.SectionDatabase)+get(scoring.SectionServer), 3)
	seo := get(scoring.SectionSEOBasics)

	return scoring.CategoryScores{
		Performance:   scoring.Int(scoring.Clamp(perf)),
		BestPractices: scoring.Int(scoring.Clamp(bp)),
		SEO:           scoring.Int(scoring.Clamp(seo)),
		Estimated:     true,
	}
}

func roundDiv(sum, n int) int {
	return int(math.Round(float64(sum) / float64(n)))
}

// signals are the check measurements the lab estimates are built from.
type signals struct {
	ttfbMs      int
	css, js     int
	blockingCSS int
	blockingJS  int
	images      int
	missingDims int
	nextGen     int
}

func collect(internal *scoring.InternalAuditResult) signals {
	var s signals
	if internal == nil {
		return s
	}
	if m, ok := internal.Checks[scoring.CheckTTFB].Meta.(*scoring.TTFBMeta); ok {
		s.ttfbMs = max(0, m.TTFBMs)
	}
	if m, ok := internal.Checks[scoring.CheckAssetsCounts].Meta.(*scoring.AssetCountsMeta); ok {
		s.css, s.js = m.CSS, m.JS
	}
	if m, ok := internal.Checks[scoring.CheckRenderBlocking].Meta.(*scoring.RenderBlockingMeta); ok {
		s.blockingCSS, s.blockingJS = m.BlockingCSS, m.BlockingJS
	}
	if m, ok := internal.Checks[scoring.CheckImages].Meta.(*scoring.ImagesMeta); ok {
		s.images, s.missingDims, s.nextGen = m.Total, m.MissingDims, m.NextGen
	}
	return s
}

// ratio is part/total clamped to [0, 1].
func ratio(part, total int) float64 {
	return math.Max(0, math.Min(1, float64(part)/float64(max(1, total))))
}

func clampF(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// WebVitals synthesizes the five lab metrics from internal results. The
// result has source internal and must not count toward the overall score.
func WebVitals(internal *scoring.InternalAuditResult) scoring.LabResult {
	s := collect(internal)
	assets := s.css + s.js
	blocking := s.blockingCSS + s.blockingJS

	// FCP: server time plus render-blocking and request overhead.
	fcp := 800 + s.ttfbMs
	fcp += min(2000, 200*s.blockingCSS+100*s.blockingJS)
	fcp += min(1000, 10*max(0, assets-20))
	fcp = min(4000, max(500, fcp))

	// LCP: FCP plus image costs.
	imgPenalty := 0.0
	if s.images > 0 {
		imgPenalty += (1 - ratio(s.nextGen, s.images)) * 400
		imgPenalty += ratio(s.missingDims, s.images) * 600
		if s.images > 30 {
			imgPenalty += float64(min(800, (s.images-30)*12))
		}
	}
	lcp := fcp + int(0.6*imgPenalty) + 120*blocking
	lcp = min(5000, max(800, lcp))

	// TBT: blocking scripts and script count.
	tbt := 75*s.blockingJS + 15*max(0, s.js-20)
	tbt = min(1000, max(0, tbt))

	// CLS: share of images without dimensions.
	var cls float64
	if s.images > 0 {
		cls = math.Round(0.30*ratio(s.missingDims, s.images)*1000) / 1000
	} else if blocking > 0 {
		cls = 0.07
	} else {
		cls = 0.03
	}
	cls = clampF(cls, 0, 0.4)

	// SI: requests, blocking resources and server time.
	si := 1500 + 40*assets + 250*blocking + int(0.2*float64(s.ttfbMs))
	si = min(6000, max(1000, si))

	res := scoring.BuildLabMetrics(scoring.LabValues{
		FCP: scoring.Float(float64(fcp)),
		LCP: scoring.Float(float64(lcp)),
		TBT: scoring.Float(float64(tbt)),
		CLS: scoring.Float(cls),
		SI:  scoring.Float(float64(si)),
	})
	res.Source = scoring.SourceInternal
	return res
}
