package scoring

// ComposeOverall blends internal sections, category scores and web vitals into
// one score. Sections come from the check mapping (seo_basics is excluded, it
// feeds the SEO category estimate instead). Every defined category score counts,
// estimated or not, while web vitals count only when measured by PSI.
func ComposeOverall(internal *InternalAuditResult, cats CategoryScores, webVitals *int, source VitalsSource) int {
	var parts []int
	if internal != nil {
		for key, s := range internal.Sections {
			if key == SectionSEOBasics {
				continue
			}
			parts = append(parts, s.Score)
		}
	}
	parts = append(parts, cats.Values()...)
	if webVitals != nil && source.Measured() {
		parts = append(parts, *webVitals)
	}
	return clamp(meanOrZero(parts))
}
