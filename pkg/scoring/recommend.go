package scoring

import "sort"

// Registry maps check slugs to their recommendation.
type Registry map[string]RecommendationEntry

// DefaultRecommendations returns a fresh copy of the built-in registry.
func DefaultRecommendations() Registry {
	reg := make(Registry, len(defaultRecommendations))
	for _, e := range defaultRecommendations {
		reg[e.Slug] = e
	}
	return reg
}

var defaultRecommendations = []RecommendationEntry{
	{
		Slug:     CheckCachePresent,
		Title:    "Enable full-page caching",
		Message:  "No page cache detected. Enable server/page caching (e.g., W3 Total Cache, WP Rocket, LiteSpeed, or host cache).",
		DocsURL:  "https://developer.wordpress.org/caching/",
		Severity: SeverityHigh,
	},
	{
		Slug:     CheckCompression,
		Title:    "Turn on gzip/Brotli compression",
		Message:  "Responses are not compressed. Enable gzip/Brotli at the server or via plugin/CDN.",
		DocsURL:  "https://wordpress.org/support/article/optimization/",
		Severity: SeverityHigh,
	},
	{
		Slug:     CheckClientCache,
		Title:    "Add long-lived browser caching for assets",
		Message:  "CSS/JS lack Cache-Control max-age. Set far-future headers on static assets.",
		DocsURL:  "https://web.dev/http-cache/",
		Severity: SeverityMedium,
	},
	{
		Slug:     CheckAssetsCounts,
		Title:    "Reduce CSS/JS requests",
		Message:  "Too many individual files. Concatenate where possible and remove unused enqueues.",
		DocsURL:  "https://web.dev/requests/",
		Severity: SeverityMedium,
	},
	{
		Slug:     CheckRenderBlocking,
		Title:    "Eliminate render-blocking resources",
		Message:  "Add defer/async to non-critical scripts and inline critical CSS.",
		DocsURL:  "https://web.dev/render-blocking-resources/",
		Severity: SeverityHigh,
	},
	{
		Slug:     CheckImages,
		Title:    "Serve next-gen / sized images",
		Message:  "Define width/height and serve WebP/AVIF where supported.",
		DocsURL:  "https://web.dev/uses-webp-images/",
		Severity: SeverityMedium,
	},
	{
		Slug:     CheckTTFB,
		Title:    "Reduce server TTFB",
		Message:  "Add page cache, optimize PHP/DB, and reduce slow queries.",
		DocsURL:  "https://web.dev/ttfb/",
		Severity: SeverityHigh,
	},
	{
		Slug:     CheckProtocol,
		Title:    "Enable HTTP/2 or HTTP/3",
		Message:  "Upgrade server/CDN to support multiplexing and HPACK/QPACK.",
		DocsURL:  "https://web.dev/http2/",
		Severity: SeverityLow,
	},
	{
		Slug:     CheckAutoloadSize,
		Title:    "Shrink autoloaded options",
		Message:  "Large autoload bloat slows every page load. Prune options and avoid marking big data autoload=yes.",
		DocsURL:  "https://wordpress.org/documentation/article/optimization/",
		Severity: SeverityMedium,
	},
	{
		Slug:     CheckPostmetaBloat,
		Title:    "Normalize postmeta",
		Message:  "Heavy meta per post - clean up unused keys and index frequently-queried ones.",
		DocsURL:  "https://make.wordpress.org/core/",
		Severity: SeverityLow,
	},
	{
		Slug:     CheckTransients,
		Title:    "Purge expired transients",
		Message:  "Expired transients found - schedule cleanup.",
		DocsURL:  "https://developer.wordpress.org/apis/option/trns/",
		Severity: SeverityLow,
	},
	{
		Slug:     CheckUpdatesCore,
		Title:    "Update WordPress core",
		Message:  "Keep core up to date for security and performance fixes.",
		DocsURL:  "https://wordpress.org/download/releases/",
		Severity: SeverityHigh,
	},
	{
		Slug:     CheckUpdatesPlugins,
		Title:    "Update plugins",
		Message:  "Outdated plugins increase risk and overhead. Remove unused ones.",
		DocsURL:  "https://wordpress.org/plugins/",
		Severity: SeverityMedium,
	},
	{
		Slug:     CheckUpdatesThemes,
		Title:    "Update themes",
		Message:  "Keep your active/child themes updated.",
		DocsURL:  "https://wordpress.org/themes/",
		Severity: SeverityLow,
	},
}

// TopRecommendation picks the most urgent fix among slugs: checks scoring
// below 100 that have a registry entry, ordered by severity then by score.
// It returns nil when nothing qualifies.
func TopRecommendation(results map[string]CheckResult, slugs []string, reg Registry) *RecommendationEntry {
	type candidate struct {
		entry RecommendationEntry
		score int
	}
	var cands []candidate
	for _, slug := range slugs {
		r, ok := results[slug]
		if !ok || r.Score >= 100 {
			continue
		}
		e, ok := reg[slug]
		if !ok {
			continue
		}
		if e.Slug == "" {
			e.Slug = slug
		}
		cands = append(cands, candidate{entry: e, score: r.Score})
	}
	if len(cands) == 0 {
		return nil
	}

	sort.SliceStable(cands, func(i, j int) bool {
		ri, rj := cands[i].entry.Severity.rank(), cands[j].entry.Severity.rank()
		if ri != rj {
			return ri < rj
		}
		return cands[i].score < cands[j].score
	})
	top := cands[0].entry
	return &top
}

// SectionRecommendations returns the top recommendation of every section that has one.
func SectionRecommendations(defs []SectionDef, results map[string]CheckResult, reg Registry) map[string]RecommendationEntry {
	out := make(map[string]RecommendationEntry)
	for _, def := range defs {
		if rec := TopRecommendation(results, def.Checks, reg); rec != nil {
			out[def.Key] = *rec
		}
	}
	return out
}
