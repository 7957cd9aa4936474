package surface

import (
	"fmt"
	"io"
	"strings"

	"github.com/siteaudit/siteaudit/pkg/audit"
	"github.com/siteaudit/siteaudit/pkg/scoring"
)

// MarkdownRenderer produces a Markdown report, suitable for tickets and
// pull request comments.
type MarkdownRenderer struct {
	Sections []scoring.SectionDef
}

func (r *MarkdownRenderer) Render(w io.Writer, p *audit.Payload) error {
	_, err := io.WriteString(w, r.Build(p))
	return err
}

// Build returns the report as a string.
func (r *MarkdownRenderer) Build(p *audit.Payload) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## siteaudit: Grade %s — Score %d\n\n", p.Grade, p.Overall)
	fmt.Fprintf(&sb, "`%s` audited %s\n\n", p.URL, p.Timestamp)

	// Categories
	sb.WriteString("### Overview\n\n")
	sb.WriteString("| Category | Score | Grade |\n|----------|-------|-------|\n")
	row := func(label string, v *int) {
		fmt.Fprintf(&sb, "| %s | %s | %s |\n", label, scoreText(v), scoring.Grade(v))
	}
	suffix := ""
	if p.PSIScores.Estimated {
		suffix = " (est.)"
	}
	row("Performance"+suffix, p.PSIScores.Performance)
	row("Best Practices"+suffix, p.PSIScores.BestPractices)
	row("SEO"+suffix, p.PSIScores.SEO)
	row(fmt.Sprintf("Web Vitals (%s)", p.VitalsSource), p.WebVitals)
	if p.Internal != nil {
		v := p.Internal.Overall
		row("Internal audit", &v)
	}
	sb.WriteString("\n")

	// Lab metrics
	if metrics, estimated := labMetrics(p); len(metrics) > 0 {
		sb.WriteString("### Lab Metrics")
		if estimated {
			sb.WriteString(" (estimated)")
		}
		sb.WriteString("\n\n| Metric | Value | Score |\n|--------|-------|-------|\n")
		for _, key := range scoring.LabMetricOrder {
			if m, ok := metrics[key]; ok {
				fmt.Fprintf(&sb, "| %s | %s | %s |\n", m.Label, m.ValueFmt, scoreText(m.Score))
			}
		}
		sb.WriteString("\n")
	}

	// Sections
	if rows := orderedSections(r.Sections, p.Internal); len(rows) > 0 {
		sb.WriteString("### Sections\n\n")
		for _, s := range rows {
			fmt.Fprintf(&sb, "- **%s**: %d (%s)\n", s.def.Label, s.score, scoring.GradeFromScore(s.score))
		}
		sb.WriteString("\n")
	}

	// Recommendations (max 5)
	if recs := orderedRecommendations(r.Sections, p.Recommendations); len(recs) > 0 {
		sb.WriteString("### Recommendations\n\n")
		for i, rec := range recs {
			if i == 5 {
				fmt.Fprintf(&sb, "_... and %d more_\n", len(recs)-5)
				break
			}
			fmt.Fprintf(&sb, "- %s **%s** — %s\n", severityIcon(rec.Severity), rec.Title, rec.Message)
		}
		sb.WriteString("\n")
	}

	if len(p.Warnings) > 0 || p.PSIError != "" {
		sb.WriteString("### Notes\n\n")
		if p.PSIError != "" {
			fmt.Fprintf(&sb, "- PSI error: %s\n", p.PSIError)
		}
		for _, warn := range p.Warnings {
			fmt.Fprintf(&sb, "- %s\n", warn)
		}
	}

	return sb.String()
}

func severityIcon(sev scoring.Severity) string {
	switch sev {
	case scoring.SeverityHigh:
		return ":red_circle:"
	case scoring.SeverityMedium:
		return ":orange_circle:"
	case scoring.SeverityLow:
		return ":yellow_circle:"
	default:
		return ":blue_circle:"
	}
}
