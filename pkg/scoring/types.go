// Package scoring implements the siteaudit scoring engine.
// It normalizes lab, field and internal signals into explainable 0-100 scores.
package scoring

import (
	"encoding/json"
	"fmt"
)

// Placeholders used when a value could not be measured.
const (
	GradeUnknown = "–"
	ValueUnknown = "—"
)

// CheckResult is the outcome of a single internal check.
// Immutable once computed.
type CheckResult struct {
	Score int       `json:"score"` // 0-100
	Meta  CheckMeta `json:"meta"`
}

// Section is the aggregated score of a group of checks.
type Section struct {
	Key   string `json:"key"`
	Score int    `json:"score"`
}

// InternalAuditResult holds every check result of one run plus the derived sections.
type InternalAuditResult struct {
	Sections map[string]Section     `json:"sections"`
	Checks   map[string]CheckResult `json:"checks"`
	Overall  int                    `json:"overall"`
}

// NewInternalAuditResult groups checks into sections and computes the internal overall.
func NewInternalAuditResult(defs []SectionDef, checks map[string]CheckResult) *InternalAuditResult {
	if checks == nil {
		checks = map[string]CheckResult{}
	}
	res := &InternalAuditResult{
		Sections: BuildSections(defs, checks),
		Checks:   checks,
	}
	scores := make([]int, 0, len(res.Sections))
	for _, s := range res.Sections {
		scores = append(scores, s.Score)
	}
	res.Overall = meanOrZero(scores)
	return res
}

// AddSection records an extra section such as seo_basics. The internal overall
// covers the check sections only and is left unchanged.
func (r *InternalAuditResult) AddSection(key string, score int) {
	if r.Sections == nil {
		r.Sections = map[string]Section{}
	}
	r.Sections[key] = Section{Key: key, Score: clamp(score)}
}

// SectionScore returns the score of a section and whether it exists.
func (r *InternalAuditResult) SectionScore(key string) (int, bool) {
	if r == nil {
		return 0, false
	}
	s, ok := r.Sections[key]
	return s.Score, ok
}

// UnmarshalJSON decodes check meta into the concrete type registered for each slug.
func (r *InternalAuditResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		Sections map[string]Section `json:"sections"`
		Checks   map[string]struct {
			Score int             `json:"score"`
			Meta  json.RawMessage `json:"meta"`
		} `json:"checks"`
		Overall int `json:"overall"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Sections = raw.Sections
	r.Overall = raw.Overall
	r.Checks = make(map[string]CheckResult, len(raw.Checks))
	for slug, c := range raw.Checks {
		meta := NewMeta(slug)
		if len(c.Meta) > 0 && string(c.Meta) != "null" {
			if err := json.Unmarshal(c.Meta, meta); err != nil {
				return fmt.Errorf("decoding meta for %s: %w", slug, err)
			}
		}
		r.Checks[slug] = CheckResult{Score: c.Score, Meta: meta}
	}
	return nil
}

// Severity ranks how urgently a recommendation should be acted on.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// rank orders severities for prioritization; unknown values sort last.
func (s Severity) rank() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	case SeverityLow:
		return 2
	default:
		return 3
	}
}

// RecommendationEntry is a static, human-readable fix for a failing check.
type RecommendationEntry struct {
	Slug     string   `json:"slug"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	DocsURL  string   `json:"docs_url"`
	Severity Severity `json:"severity"`
}

// VitalsSource tells where a web vitals value came from.
type VitalsSource string

const (
	SourceField    VitalsSource = "field"
	SourceLab      VitalsSource = "lab"
	SourceNone     VitalsSource = "none"
	SourceInternal VitalsSource = "internal"
)

// Measured reports whether the source is real PSI data (lab or field).
func (s VitalsSource) Measured() bool {
	return s == SourceField || s == SourceLab
}

// CategoryScores are the PSI category scores, or estimates of them.
type CategoryScores struct {
	Performance   *int `json:"performance"`
	BestPractices *int `json:"best_practices"`
	SEO           *int `json:"seo"`
	Estimated     bool `json:"_estimated,omitempty"`
}

// Values returns the defined category scores in a fixed order.
func (c CategoryScores) Values() []int {
	var out []int
	for _, v := range []*int{c.Performance, c.BestPractices, c.SEO} {
		if v != nil {
			out = append(out, *v)
		}
	}
	return out
}

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
