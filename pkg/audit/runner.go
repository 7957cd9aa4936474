package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/siteaudit/siteaudit/pkg/checks"
	"github.com/siteaudit/siteaudit/pkg/estimate"
	"github.com/siteaudit/siteaudit/pkg/psi"
	"github.com/siteaudit/siteaudit/pkg/scoring"
	"github.com/siteaudit/siteaudit/pkg/seo"
)

// ErrMissingURL is returned when a request has no URL.
var ErrMissingURL = errors.New("missing URL")

// PSIRunner runs PageSpeed Insights for both strategies.
type PSIRunner interface {
	Configured() bool
	RunBoth(ctx context.Context, pageURL string) psi.Runs
}

// Runner executes audits. Suite and Store are required; every other field
// has a usable zero value.
type Runner struct {
	Suite           *checks.Suite
	Sections        []scoring.SectionDef
	PSI             PSIRunner      // nil when neither key nor proxy is set
	Fetcher         checks.Fetcher // used by the SEO scan
	Store           Store
	Cache           *Cache[*Payload]
	Recommendations scoring.Registry

	Now   func() time.Time
	NewID func() string
	Logf  func(format string, args ...any)
}

// NewRunner creates a runner with the default sections, recommendations and
// a five minute result cache.
func NewRunner(suite *checks.Suite, psiRunner PSIRunner, fetcher checks.Fetcher, store Store) *Runner {
	return &Runner{
		Suite:           suite,
		Sections:        scoring.DefaultSections(),
		PSI:             psiRunner,
		Fetcher:         fetcher,
		Store:           store,
		Cache:           NewCache[*Payload](DefaultCacheTTL, 0),
		Recommendations: scoring.DefaultRecommendations(),
	}
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) newID() string {
	if r.NewID != nil {
		return r.NewID()
	}
	return uuid.NewString()
}

func (r *Runner) logf(format string, args ...any) {
	if r.Logf != nil {
		r.Logf(format, args...)
	}
}

func (r *Runner) sections() []scoring.SectionDef {
	if r.Sections != nil {
		return r.Sections
	}
	return scoring.DefaultSections()
}

func (r *Runner) recommendations() scoring.Registry {
	if r.Recommendations != nil {
		return r.Recommendations
	}
	return scoring.DefaultRecommendations()
}

func cacheKey(req Request) string {
	if req.SEO {
		return req.URL + "|seo"
	}
	return req.URL
}

// Run audits req.URL, stores the result as the current payload and returns
// it. A result younger than the cache TTL, held in memory or as the stored
// current payload, is returned and made current unless req.Force is set. Check and PSI failures never fail the run; only a
// missing URL or a storage error does.
func (r *Runner) Run(ctx context.Context, req Request) (*Payload, error) {
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		return nil, ErrMissingURL
	}
	if r.Suite == nil || r.Store == nil {
		return nil, errors.New("audit runner requires a check suite and a store")
	}

	key := cacheKey(req)
	if !req.Force {
		if p, ok := r.cached(ctx, req, key); ok {
			return p, nil
		}
	}

	start := r.now()
	defs := r.sections()
	internal := r.Suite.Run(ctx, req.URL, defs)

	p := &Payload{
		ID:           r.newID(),
		Timestamp:    start.Format(TimestampLayout),
		URL:          req.URL,
		FinalURL:     req.URL,
		LabMetrics:   map[string]scoring.LabMetric{},
		VitalsSource: scoring.SourceNone,
		Internal:     internal,
	}

	if req.SEO && r.Fetcher != nil {
		res := seo.Run(ctx, r.Fetcher, req.URL)
		internal.AddSection(scoring.SectionSEOBasics, res.Score)
		p.SEO = &res
	}

	if r.PSI == nil || !r.PSI.Configured() {
		r.applyEstimates(p)
		p.Warnings = append(p.Warnings, WarningNoPSI)
	} else {
		runs := r.PSI.RunBoth(ctx, req.URL)
		p.Runs = &runs
		r.applyPSI(p, runs.Primary())
	}

	p.Overall = scoring.ComposeOverall(internal, p.PSIScores, p.WebVitals, p.VitalsSource)
	p.Grade = scoring.GradeFromScore(p.Overall)
	p.Recommendations = scoring.SectionRecommendations(defs, internal.Checks, r.recommendations())

	if err := r.Store.SaveCurrent(ctx, p); err != nil {
		return nil, fmt.Errorf("saving audit payload: %w", err)
	}
	if r.Cache != nil {
		r.Cache.Set(key, p)
	}
	r.logf("audit %s: overall %d (%s), psi_ok=%t, took %s", req.URL, p.Overall, p.Grade, p.PSIOK, r.now().Sub(start).Round(time.Millisecond))
	return p, nil
}

// cached returns a fresh result for req from the in-memory cache, falling
// back to the stored current payload so separate processes sharing a store
// see each other's results.
func (r *Runner) cached(ctx context.Context, req Request, key string) (*Payload, bool) {
	if r.Cache != nil {
		if p, ok := r.Cache.Get(key); ok {
			// Another URL may have been audited since; this result becomes current again.
			if err := r.Store.SaveCurrent(ctx, p); err != nil {
				r.logf("audit %s: restoring cached result %s: %v", req.URL, p.ID, err)
				return nil, false
			}
			r.logf("audit %s: serving cached result %s", req.URL, p.ID)
			return p, true
		}
	}

	p, err := r.Store.LoadCurrent(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoPayload) {
			r.logf("audit %s: loading stored payload: %v", req.URL, err)
		}
		return nil, false
	}
	if p.URL != req.URL || (req.SEO && p.SEO == nil) || !r.fresh(p) {
		return nil, false
	}
	r.logf("audit %s: serving stored result %s", req.URL, p.ID)
	return p, true
}

// fresh reports whether p was produced within the cache TTL.
func (r *Runner) fresh(p *Payload) bool {
	ttl := DefaultCacheTTL
	if r.Cache != nil {
		ttl = r.Cache.TTL()
	}
	now := r.now()
	ts, err := time.ParseInLocation(TimestampLayout, p.Timestamp, now.Location())
	if err != nil {
		return false
	}
	age := now.Sub(ts)
	return age >= 0 && age < ttl
}

// applyEstimates fills the category scores from internal checks and attaches
// the estimated lab metrics for display.
func (r *Runner) applyEstimates(p *Payload) {
	p.PSIScores = estimate.Categories(p.Internal)
	est := estimate.WebVitals(p.Internal)
	p.EstimatedVitals = &est
	p.WebVitals = nil
	p.LabOverall = nil
	p.VitalsSource = scoring.SourceNone
}

func (r *Runner) applyPSI(p *Payload, primary psi.RunResult) {
	if !primary.OK {
		p.PSIError = primary.Error
		if p.PSIError == "" {
			p.PSIError = "Unknown error"
		}
		r.logf("audit %s: psi failed: %s", p.URL, p.PSIError)
		r.applyEstimates(p)
		return
	}

	p.PSIOK = true
	p.PSIScores = primary.Scores
	p.WebVitals = primary.WebVitals
	if primary.LabMetrics != nil {
		p.LabMetrics = primary.LabMetrics
	}
	p.LabOverall = primary.LabOverall
	p.VitalsSource = primary.VitalsSource
	if p.VitalsSource == "" {
		p.VitalsSource = scoring.SourceNone
	}
	if primary.FinalURL != "" {
		p.FinalURL = primary.FinalURL
	}
	p.Warnings = append(p.Warnings, primary.Warnings...)
}

// Current returns the stored current payload.
func (r *Runner) Current(ctx context.Context) (*Payload, error) {
	return r.Store.LoadCurrent(ctx)
}
