package surface

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/siteaudit/siteaudit/pkg/audit"
	"github.com/siteaudit/siteaudit/pkg/cachelayers"
	"github.com/siteaudit/siteaudit/pkg/scoring"
	"github.com/siteaudit/siteaudit/pkg/seo"
	"github.com/siteaudit/siteaudit/pkg/siteinfo"
)

// TerminalRenderer renders payloads as colored terminal output.
type TerminalRenderer struct {
	// Sections controls section order; nil means the default sections.
	Sections []scoring.SectionDef
	// Checks lists every check result under its section.
	Checks bool
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

func gradeColor(grade string) string {
	if noColor() {
		return ""
	}
	switch grade {
	case "A", "B":
		return colorGreen
	case "C":
		return colorYellow
	case "D", "F":
		return colorRed
	default:
		return ""
	}
}

func noColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

func bold(s string) string {
	if noColor() {
		return s
	}
	return colorBold + s + colorReset
}

func dim(s string) string {
	if noColor() {
		return s
	}
	return colorDim + s + colorReset
}

func colored(s, color string) string {
	if noColor() || color == "" {
		return s
	}
	return color + s + colorReset
}

func gradeText(grade string) string {
	return colored(grade, gradeColor(grade))
}

func severityColor(sev scoring.Severity) string {
	switch sev {
	case scoring.SeverityHigh:
		return colorRed
	case scoring.SeverityMedium:
		return colorYellow
	default:
		return ""
	}
}

func (r *TerminalRenderer) Render(w io.Writer, p *audit.Payload) error {
	fmt.Fprintf(w, "%s\n",
		bold(fmt.Sprintf("siteaudit: Grade %s — Score %d", gradeText(p.Grade), p.Overall)))
	fmt.Fprintf(w, "%s\n", p.URL)
	if p.FinalURL != "" && p.FinalURL != p.URL {
		fmt.Fprintf(w, "%s\n", dim("→ "+p.FinalURL))
	}
	fmt.Fprintf(w, "%s\n\n", dim("Audited "+p.Timestamp))

	// Categories
	title := "Categories:"
	if p.PSIScores.Estimated {
		title = "Categories (estimated):"
	}
	fmt.Fprintln(w, title)
	for _, c := range []struct {
		label string
		score *int
	}{
		{"Performance", p.PSIScores.Performance},
		{"Best Practices", p.PSIScores.BestPractices},
		{"SEO", p.PSIScores.SEO},
	} {
		fmt.Fprintf(w, "  %-16s %4s  %s\n", c.label, scoreText(c.score), gradeText(scoring.Grade(c.score)))
	}
	fmt.Fprintf(w, "  %-16s %4s  %s\n\n", "Web Vitals", scoreText(p.WebVitals), dim(string(p.VitalsSource)))

	// Lab metrics
	if metrics, estimated := labMetrics(p); len(metrics) > 0 {
		if estimated {
			fmt.Fprintln(w, "Lab metrics (estimated from internal checks):")
		} else {
			fmt.Fprintln(w, "Lab metrics:")
		}
		for _, key := range scoring.LabMetricOrder {
			m, ok := metrics[key]
			if !ok {
				continue
			}
			fmt.Fprintf(w, "  %-26s %8s %4s  %s\n", m.Label, m.ValueFmt, scoreText(m.Score), gradeText(m.Grade))
		}
		fmt.Fprintln(w)
	}

	// Sections
	if rows := orderedSections(r.Sections, p.Internal); len(rows) > 0 {
		fmt.Fprintf(w, "Internal audit: %d\n", p.Internal.Overall)
		for _, row := range rows {
			fmt.Fprintf(w, "  %-16s %4d  %s\n", row.def.Label, row.score, gradeText(scoring.GradeFromScore(row.score)))
			if !r.Checks {
				continue
			}
			for _, slug := range row.def.Checks {
				res, ok := p.Internal.Checks[slug]
				if !ok {
					continue
				}
				fmt.Fprintf(w, "    %s\n", dim(fmt.Sprintf("%-28s %3d", scoring.CheckLabel(slug), res.Score)))
			}
		}
		fmt.Fprintln(w)
	}

	// Recommendations
	if recs := orderedRecommendations(r.Sections, p.Recommendations); len(recs) > 0 {
		fmt.Fprintln(w, "Recommendations:")
		for _, rec := range recs {
			sev := colored(strings.ToUpper(string(rec.Severity)), severityColor(rec.Severity))
			fmt.Fprintf(w, "  • [%s] %s\n", sev, bold(rec.Title))
			for _, line := range wrapText(rec.Message, 70) {
				fmt.Fprintf(w, "    %s\n", dim(line))
			}
			if rec.DocsURL != "" {
				fmt.Fprintf(w, "    %s\n", dim(rec.DocsURL))
			}
		}
		fmt.Fprintln(w)
	}

	if p.SEO != nil {
		fmt.Fprintf(w, "SEO basics: %d  %s\n\n", p.SEO.Score, gradeText(p.SEO.Grade))
	}

	if p.PSIError != "" {
		fmt.Fprintf(w, "%s %s\n", colored("PSI error:", colorRed), p.PSIError)
	}
	for _, warn := range p.Warnings {
		fmt.Fprintf(w, "%s %s\n", colored("!", colorYellow), warn)
	}
	return nil
}

// RenderSEO writes an SEO basics result.
func (r *TerminalRenderer) RenderSEO(w io.Writer, res seo.Result) error {
	fmt.Fprintf(w, "%s\n", bold(fmt.Sprintf("SEO basics: Grade %s — Score %d", gradeText(res.Grade), res.Score)))
	if res.URL != "" {
		fmt.Fprintf(w, "%s\n", res.URL)
	}
	fmt.Fprintln(w)

	text := func(label string, c seo.TextCheck) {
		if !c.Exists {
			fmt.Fprintf(w, "  %-18s %4d  %s\n", label, c.Score, dim("missing"))
			return
		}
		fmt.Fprintf(w, "  %-18s %4d  %s\n", label, c.Score, dim(fmt.Sprintf("%d chars", c.Length)))
	}
	text("Title", res.Checks.Title)
	text("Meta description", res.Checks.MetaDescription)
	fmt.Fprintf(w, "  %-18s %4d  %s\n\n", "H1", res.Checks.H1.Score, dim(fmt.Sprintf("%d found", res.Checks.H1.Count)))

	for _, msg := range res.Messages {
		fmt.Fprintf(w, "  • %s\n", msg)
	}
	return nil
}

// RenderCacheLayers writes a cache layer report.
func (r *TerminalRenderer) RenderCacheLayers(w io.Writer, rep cachelayers.Report) error {
	fmt.Fprintf(w, "%s\n\n", bold("Cache layers"))

	list := func(label string, items []string) {
		value := dim("none detected")
		if len(items) > 0 {
			value = strings.Join(items, ", ")
		}
		fmt.Fprintf(w, "  %-20s %s\n", label, value)
	}
	labels := func(plugins []cachelayers.Plugin) []string {
		out := make([]string, 0, len(plugins))
		for _, p := range plugins {
			out = append(out, p.Label)
		}
		return out
	}
	list("CDN", rep.CDN)
	list("Server cache", rep.ServerCache)
	list("Page cache plugins", labels(rep.PageCachePlugins))
	list("Object cache", labels(rep.ObjectCachePlugins))
	list("Drop-ins", rep.Dropins)
	fmt.Fprintln(w)

	if len(rep.Risks) > 0 {
		fmt.Fprintln(w, "Risks:")
		for _, risk := range rep.Risks {
			fmt.Fprintf(w, "  %s %s\n", colored("●", colorRed), risk)
		}
		fmt.Fprintln(w)
	}
	if len(rep.Recommendations) > 0 {
		fmt.Fprintln(w, "Recommendations:")
		for _, rec := range rep.Recommendations {
			lines := wrapText(rec, 70)
			for i, line := range lines {
				if i == 0 {
					fmt.Fprintf(w, "  • %s\n", line)
					continue
				}
				fmt.Fprintf(w, "    %s\n", line)
			}
		}
	}
	return nil
}

// RenderSiteInfo prints an environment snapshot.
func (r *TerminalRenderer) RenderSiteInfo(w io.Writer, info *siteinfo.Info) error {
	fmt.Fprintf(w, "%s\n", bold("Site info"))
	fmt.Fprintf(w, "%s\n\n", dim("Generated "+info.GeneratedAt))

	row := func(label, value string) {
		if value == "" {
			value = dim("n/a")
		}
		fmt.Fprintf(w, "  %-20s %s\n", label, value)
	}
	cron := info.WordPress.Cron
	if info.WordPress.CronEvents > 0 {
		cron = fmt.Sprintf("%s (%d scheduled, %d overdue)", cron, info.WordPress.CronEvents, info.WordPress.CronOverdue)
	}
	if info.WordPress.CronOverdue > 0 {
		cron = colored(cron, colorYellow)
	}

	row("WordPress", info.WordPress.Version)
	row("DB schema", info.WordPress.DBVersion)
	row("Locale", info.WordPress.Locale)
	row("REST API", info.WordPress.RESTAPI)
	row("Cron", cron)
	row("Theme", strings.TrimSpace(info.Theme.Stylesheet+" "+parenthesized(info.Theme.Template, info.Theme.Stylesheet)))
	row("Web server", info.Server.Software)
	row("Database server", info.Server.DBVersion)
	row("Site URL", info.URLs.SiteURL)
	row("Home URL", info.URLs.HomeURL)
	row("REST URL", info.URLs.RESTURL)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Active plugins (%d):\n", info.Plugins.TotalActive)
	for _, p := range info.Plugins.Active {
		fmt.Fprintf(w, "  • %s\n", p)
	}
	for _, e := range info.Errors {
		fmt.Fprintf(w, "%s %s\n", colored("!", colorYellow), e)
	}
	return nil
}

// parenthesized shows a parent theme only when it differs from the child.
func parenthesized(template, stylesheet string) string {
	if template == "" || template == stylesheet {
		return ""
	}
	return "(child of " + template + ")"
}

// wrapText wraps a string at the given width, returning lines.
func wrapText(s string, width int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]

	for _, word := range words[1:] {
		if len(current)+1+len(word) > width {
			lines = append(lines, current)
			current = word
		} else {
			current += " " + word
		}
	}
	lines = append(lines, current)
	return lines
}
