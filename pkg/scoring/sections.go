package scoring

// Check slugs.
const (
	CheckCachePresent   = "cache_present"
	CheckCompression    = "compression"
	CheckClientCache    = "client_cache"
	CheckAssetsCounts   = "assets_counts"
	CheckRenderBlocking = "render_blocking"
	CheckImages         = "images_dims_and_size"
	CheckTTFB           = "ttfb"
	CheckProtocol       = "h2_h3"
	CheckAutoloadSize   = "autoload_size"
	CheckPostmetaBloat  = "postmeta_bloat"
	CheckTransients     = "transients"
	CheckUpdatesCore    = "updates_core"
	CheckUpdatesPlugins = "updates_plugins"
	CheckUpdatesThemes  = "updates_themes"
)

// Section keys.
const (
	SectionCaching   = "caching"
	SectionAssets    = "assets"
	SectionImages    = "images"
	SectionServer    = "server"
	SectionDatabase  = "database"
	SectionCore      = "core"
	SectionSEOBasics = "seo_basics"
)

// SectionDef assigns an ordered list of check slugs to a section.
type SectionDef struct {
	Key    string
	Label  string
	Checks []string
}

// DefaultSections returns the fixed section mapping. The returned slice is a
// fresh copy and may be modified by the caller.
func DefaultSections() []SectionDef {
	return []SectionDef{
		{Key: SectionCaching, Label: "Caching", Checks: []string{CheckCachePresent, CheckCompression, CheckClientCache}},
		{Key: SectionAssets, Label: "Assets", Checks: []string{CheckAssetsCounts, CheckRenderBlocking}},
		{Key: SectionImages, Label: "Images", Checks: []string{CheckImages}},
		{Key: SectionServer, Label: "Server", Checks: []string{CheckTTFB, CheckProtocol}},
		{Key: SectionDatabase, Label: "Database", Checks: []string{CheckAutoloadSize, CheckPostmetaBloat, CheckTransients}},
		{Key: SectionCore, Label: "Core & Updates", Checks: []string{CheckUpdatesCore, CheckUpdatesPlugins, CheckUpdatesThemes}},
	}
}

// CheckLabels maps check slugs to display names.
var CheckLabels = map[string]string{
	CheckCachePresent:   "Page Cache Present",
	CheckCompression:    "HTTP Compression",
	CheckClientCache:    "Browser Cache (Assets)",
	CheckAssetsCounts:   "CSS/JS Requests",
	CheckRenderBlocking: "Render-Blocking Resources",
	CheckImages:         "Image Dimensions / Next-Gen",
	CheckTTFB:           "TTFB",
	CheckProtocol:       "HTTP/2 / HTTP/3",
	CheckAutoloadSize:   "Autoloaded Options Size",
	CheckPostmetaBloat:  "Postmeta Bloat",
	CheckTransients:     "Expired Transients",
	CheckUpdatesCore:    "Core Updates",
	CheckUpdatesPlugins: "Plugin Updates",
	CheckUpdatesThemes:  "Theme Updates",
}

// CheckLabel returns the display name of a check, or the slug when unknown.
func CheckLabel(slug string) string {
	if l, ok := CheckLabels[slug]; ok {
		return l
	}
	return slug
}

// Aggregate is the rounded mean of the check scores, 0 when there are none.
func Aggregate(results []CheckResult) int {
	scores := make([]int, 0, len(results))
	for _, r := range results {
		scores = append(scores, r.Score)
	}
	return meanOrZero(scores)
}

// BuildSections aggregates every section in defs. Checks missing from the
// map are skipped, so a section with no results scores 0.
func BuildSections(defs []SectionDef, checks map[string]CheckResult) map[string]Section {
	sections := make(map[string]Section, len(defs))
	for _, def := range defs {
		var results []CheckResult
		for _, slug := range def.Checks {
			if r, ok := checks[slug]; ok {
				results = append(results, r)
			}
		}
		sections[def.Key] = Section{Key: def.Key, Score: Aggregate(results)}
	}
	return sections
}
