// Package psi talks to the PageSpeed Insights v5 API and resolves lab and
// field metrics from its responses.
package psi

import (
	"encoding/json"
	"strings"
)

// Number decodes a JSON number and silently ignores anything else, so one
// malformed field leaves a metric unmeasured instead of failing the response.
type Number struct {
	v *float64
}

func (n *Number) UnmarshalJSON(b []byte) error {
	n.v = nil
	if string(b) == "null" {
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		n.v = &f
	}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if n.v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.v)
}

// Value returns the decoded number, or nil.
func (n Number) Value() *float64 { return n.v }

// NewNumber wraps v.
func NewNumber(v float64) Number { return Number{v: &v} }

// Response is the subset of a runPagespeed response siteaudit reads.
type Response struct {
	LighthouseResult  *LighthouseResult  `json:"lighthouseResult,omitempty"`
	LoadingExperience *LoadingExperience `json:"loadingExperience,omitempty"`
	FinalURL          string             `json:"finalUrl,omitempty"`
}

type LighthouseResult struct {
	FinalURL    string              `json:"finalUrl,omitempty"`
	RunWarnings []json.RawMessage   `json:"runWarnings,omitempty"`
	Categories  map[string]Category `json:"categories,omitempty"`
	Audits      map[string]Audit    `json:"audits,omitempty"`
}

type Category struct {
	Score Number `json:"score"`
}

type Audit struct {
	NumericValue Number `json:"numericValue"`
}

type LoadingExperience struct {
	OverallCategory string                 `json:"overall_category,omitempty"`
	Metrics         map[string]FieldMetric `json:"metrics,omitempty"`
}

type FieldMetric struct {
	Percentile Number `json:"percentile"`
}

// Lighthouse audit ids.
const (
	AuditFCP = "first-contentful-paint"
	AuditLCP = "largest-contentful-paint"
	AuditTBT = "total-blocking-time"
	AuditCLS = "cumulative-layout-shift"
	AuditSI  = "speed-index"
	AuditINP = "interaction-to-next-paint"
)

// CrUX field metric ids.
const (
	FieldLCP = "LARGEST_CONTENTFUL_PAINT_MS"
	FieldCLS = "CUMULATIVE_LAYOUT_SHIFT_SCORE"
	FieldINP = "INTERACTION_TO_NEXT_PAINT"
	FieldFCP = "FIRST_CONTENTFUL_PAINT_MS"
)

// audit returns an audit's numeric value, or nil.
func (r *Response) audit(id string) *float64 {
	if r == nil || r.LighthouseResult == nil {
		return nil
	}
	a, ok := r.LighthouseResult.Audits[id]
	if !ok {
		return nil
	}
	return a.NumericValue.Value()
}

// field returns a field metric percentile, or nil.
func (r *Response) field(id string) *float64 {
	if r == nil || r.LoadingExperience == nil {
		return nil
	}
	m, ok := r.LoadingExperience.Metrics[id]
	if !ok {
		return nil
	}
	return m.Percentile.Value()
}

// category returns a category score on the 0-1 scale, or nil.
func (r *Response) category(id string) *float64 {
	if r == nil || r.LighthouseResult == nil {
		return nil
	}
	c, ok := r.LighthouseResult.Categories[id]
	if !ok {
		return nil
	}
	return c.Score.Value()
}

// Warnings returns the Lighthouse run warnings as text.
func (r *Response) Warnings() []string {
	if r == nil || r.LighthouseResult == nil {
		return nil
	}
	out := make([]string, 0, len(r.LighthouseResult.RunWarnings))
	for _, raw := range r.LighthouseResult.RunWarnings {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			out = append(out, s)
			continue
		}
		out = append(out, strings.TrimSpace(string(raw)))
	}
	return out
}
