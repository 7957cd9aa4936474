package psi

import "github.com/siteaudit/siteaudit/pkg/scoring"

// ExtractLabMetrics scores the five Lighthouse lab metrics of resp.
func ExtractLabMetrics(resp *Response) scoring.LabResult {
	res := scoring.BuildLabMetrics(scoring.LabValues{
		FCP: resp.audit(AuditFCP),
		LCP: resp.audit(AuditLCP),
		TBT: resp.audit(AuditTBT),
		CLS: resp.audit(AuditCLS),
		SI:  resp.audit(AuditSI),
	})
	res.Source = scoring.SourceLab
	return res
}

// normalizeFieldCLS undoes the x100 scaling CrUX sometimes applies to CLS.
func normalizeFieldCLS(v *float64) *float64 {
	if v != nil && *v > 1 {
		return scoring.Float(*v / 100)
	}
	return v
}

// ComputeWebVitals resolves the web vitals score, preferring field (CrUX)
// data over lab data. Field data counts when any of LCP, CLS or INP is
// present; lab data falls back to FCP when none of them is.
func ComputeWebVitals(resp *Response) scoring.VitalsResult {
	if resp != nil && resp.LoadingExperience != nil && len(resp.LoadingExperience.Metrics) > 0 {
		lcp := scoring.ScoreLCP(resp.field(FieldLCP))
		cls := scoring.ScoreCLS(normalizeFieldCLS(resp.field(FieldCLS)))
		inp := scoring.ScoreINP(resp.field(FieldINP))
		if overall := scoring.ResolveVitals(lcp, cls, inp, nil, false); overall != nil {
			return scoring.VitalsResult{
				Source:  scoring.SourceField,
				Overall: overall,
				Components: map[string]*int{
					scoring.MetricLCP: lcp,
					scoring.MetricCLS: cls,
					scoring.MetricINP: inp,
					scoring.MetricFCP: scoring.ScoreFCP(resp.field(FieldFCP)),
				},
			}
		}
	}

	lcp := scoring.ScoreLCP(resp.audit(AuditLCP))
	cls := scoring.ScoreCLS(resp.audit(AuditCLS))
	inp := scoring.ScoreINP(resp.audit(AuditINP))
	fcp := scoring.ScoreFCP(resp.audit(AuditFCP))

	res := scoring.VitalsResult{
		Source:  scoring.SourceNone,
		Overall: scoring.ResolveVitals(lcp, cls, inp, fcp, true),
		Components: map[string]*int{
			scoring.MetricLCP: lcp,
			scoring.MetricCLS: cls,
			scoring.MetricINP: inp,
			scoring.MetricFCP: fcp,
		},
	}
	if res.Overall != nil {
		res.Source = scoring.SourceLab
	}
	return res
}

// overallCategoryScores maps CrUX overall_category to a vitals score.
var overallCategoryScores = map[string]int{
	"GOOD":              95,
	"NEEDS_IMPROVEMENT": 70,
	"POOR":              40,
}
