package scoring

// Lab metric keys.
const (
	MetricFCP = "FCP"
	MetricLCP = "LCP"
	MetricTBT = "TBT"
	MetricCLS = "CLS"
	MetricSI  = "SI"
	MetricINP = "INP"
)

// LabMetricOrder is the display order of lab metrics.
var LabMetricOrder = []string{MetricFCP, MetricLCP, MetricTBT, MetricCLS, MetricSI}

var labMetricLabels = map[string]string{
	MetricFCP: "First Contentful Paint",
	MetricLCP: "Largest Contentful Paint",
	MetricTBT: "Total Blocking Time",
	MetricCLS: "Cumulative Layout Shift",
	MetricSI:  "Speed Index",
}

// LabValues are raw lab measurements; nil means unmeasured.
type LabValues struct {
	FCP *float64 // ms
	LCP *float64 // ms
	TBT *float64 // ms
	CLS *float64
	SI  *float64 // ms
}

// LabMetric is one normalized lab measurement. Score is nil iff ValueRaw is nil.
type LabMetric struct {
	Label    string   `json:"label"`
	ValueRaw *float64 `json:"value_raw"`
	ValueFmt string   `json:"value_fmt"`
	Score    *int     `json:"score"`
	Grade    string   `json:"grade"`
}

// LabResult holds the five lab metrics and their rounded mean.
type LabResult struct {
	Metrics map[string]LabMetric `json:"metrics"`
	Overall *int                 `json:"overall"`
	Source  VitalsSource         `json:"source,omitempty"`
}

// BuildLabMetrics scores and formats lab values. Overall is the mean of the
// defined metric scores, nil when none are defined.
func BuildLabMetrics(v LabValues) LabResult {
	type entry struct {
		key   string
		raw   *float64
		score *int
		fmt   string
	}
	entries := []entry{
		{MetricFCP, v.FCP, ScoreFCP(v.FCP), FormatMs(v.FCP)},
		{MetricLCP, v.LCP, ScoreLCP(v.LCP), FormatMs(v.LCP)},
		{MetricTBT, v.TBT, ScoreTBT(v.TBT), FormatMs(v.TBT)},
		{MetricCLS, v.CLS, ScoreCLS(v.CLS), FormatCLS(v.CLS)},
		{MetricSI, v.SI, ScoreSI(v.SI), FormatMs(v.SI)},
	}

	res := LabResult{Metrics: make(map[string]LabMetric, len(entries))}
	var scores []*int
	for _, e := range entries {
		res.Metrics[e.key] = LabMetric{
			Label:    labMetricLabels[e.key],
			ValueRaw: e.raw,
			ValueFmt: e.fmt,
			Score:    e.score,
			Grade:    Grade(e.score),
		}
		scores = append(scores, e.score)
	}
	res.Overall = meanDefined(scores...)
	return res
}

// VitalsResult is the resolved web vitals score and where it came from.
type VitalsResult struct {
	Source     VitalsSource    `json:"source"`
	Overall    *int            `json:"overall"`
	Components map[string]*int `json:"components"`
}

// ResolveVitals averages LCP, CLS and INP. When INP is absent and fallbackFCP
// is set, FCP takes its place. It returns nil when nothing is defined.
func ResolveVitals(lcp, cls, inp, fcp *int, fallbackFCP bool) *int {
	if m := meanDefined(lcp, cls, inp); m != nil {
		return m
	}
	if fallbackFCP {
		return meanDefined(lcp, cls, fcp)
	}
	return nil
}
