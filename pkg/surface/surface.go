// Package surface renders audit payloads for people and machines.
// Implementations handle different output targets: terminal, Markdown, JSON.
package surface

import (
	"io"
	"strconv"

	"github.com/siteaudit/siteaudit/pkg/audit"
	"github.com/siteaudit/siteaudit/pkg/scoring"
)

// Renderer produces formatted output from an audit payload.
type Renderer interface {
	// Render writes the formatted payload to the writer.
	Render(w io.Writer, p *audit.Payload) error
}

// ForFormat returns the renderer registered for a --format value.
func ForFormat(format string) (Renderer, bool) {
	switch format {
	case "", "text", "terminal":
		return &TerminalRenderer{}, true
	case "json":
		return &JSONRenderer{}, true
	case "markdown", "md":
		return &MarkdownRenderer{}, true
	default:
		return nil, false
	}
}

func scoreText(v *int) string {
	if v == nil {
		return scoring.ValueUnknown
	}
	return strconv.Itoa(*v)
}

// orderedSections yields the payload's sections in display order, followed
// by seo_basics when present.
func orderedSections(defs []scoring.SectionDef, internal *scoring.InternalAuditResult) []sectionRow {
	if internal == nil {
		return nil
	}
	if defs == nil {
		defs = scoring.DefaultSections()
	}
	var rows []sectionRow
	for _, def := range defs {
		s, ok := internal.Sections[def.Key]
		if !ok {
			continue
		}
		rows = append(rows, sectionRow{def: def, score: s.Score})
	}
	if s, ok := internal.Sections[scoring.SectionSEOBasics]; ok {
		rows = append(rows, sectionRow{
			def:   scoring.SectionDef{Key: scoring.SectionSEOBasics, Label: "SEO Basics"},
			score: s.Score,
		})
	}
	return rows
}

type sectionRow struct {
	def   scoring.SectionDef
	score int
}

// labMetrics returns the metrics to display and whether they are estimates.
func labMetrics(p *audit.Payload) (map[string]scoring.LabMetric, bool) {
	if len(p.LabMetrics) > 0 {
		return p.LabMetrics, false
	}
	if p.EstimatedVitals != nil {
		return p.EstimatedVitals.Metrics, true
	}
	return nil, false
}

// orderedRecommendations lists recommendations in section display order.
func orderedRecommendations(defs []scoring.SectionDef, recs map[string]scoring.RecommendationEntry) []scoring.RecommendationEntry {
	if defs == nil {
		defs = scoring.DefaultSections()
	}
	var out []scoring.RecommendationEntry
	for _, def := range defs {
		if rec, ok := recs[def.Key]; ok {
			out = append(out, rec)
		}
	}
	return out
}
