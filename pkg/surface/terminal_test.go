package surface_test

import (
	"bytes"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/siteaudit/siteaudit/pkg/audit"
	"github.com/siteaudit/siteaudit/pkg/cachelayers"
	"github.com/siteaudit/siteaudit/pkg/scoring"
	"github.com/siteaudit/siteaudit/pkg/seo"
	"github.com/siteaudit/siteaudit/pkg/siteinfo"
	"github.com/siteaudit/siteaudit/pkg/surface"
)

func intp(v int) *int { return &v }

func floatp(v float64) *float64 { return &v }

func samplePayload() *audit.Payload {
	checks := map[string]scoring.CheckResult{}
	for _, def := range scoring.DefaultSections() {
		for _, slug := range def.Checks {
			checks[slug] = scoring.CheckResult{Score: 80, Meta: scoring.NewMeta(slug)}
		}
	}
	checks[scoring.CheckCachePresent] = scoring.CheckResult{Score: 40, Meta: scoring.NewMeta(scoring.CheckCachePresent)}
	internal := scoring.NewInternalAuditResult(scoring.DefaultSections(), checks)

	lab := scoring.BuildLabMetrics(scoring.LabValues{
		FCP: floatp(1600), LCP: floatp(2170), TBT: floatp(75), CLS: floatp(0.075), SI: floatp(2910),
	})

	return &audit.Payload{
		ID:        "7c1f",
		Timestamp: "2024-03-09 14:05:00",
		URL:       "https://example.com/",
		FinalURL:  "https://www.example.com/",
		PSIScores: scoring.CategoryScores{
			Performance: intp(67), BestPractices: intp(73), SEO: nil, Estimated: true,
		},
		VitalsSource:    scoring.SourceNone,
		Internal:        internal,
		Overall:         64,
		Grade:           "D",
		EstimatedVitals: &lab,
		Recommendations: map[string]scoring.RecommendationEntry{
			scoring.SectionCaching: {
				Slug:     scoring.CheckCachePresent,
				Title:    "Enable full-page caching",
				Message:  "Serve cached HTML to anonymous visitors.",
				Severity: scoring.SeverityHigh,
			},
		},
		Warnings: []string{audit.WarningNoPSI},
	}
}

func TestTerminalRenderer_BasicOutput(t *testing.T) {
	// Set NO_COLOR to avoid ANSI codes in test comparison
	os.Setenv("NO_COLOR", "1")
	defer os.Unsetenv("NO_COLOR")

	r := &surface.TerminalRenderer{Checks: true}
	var buf bytes.Buffer

	if err := r.Render(&buf, samplePayload()); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	output := buf.String()

	wants := []string{
		"Grade D — Score 64",
		"→ https://www.example.com/",
		"Audited 2024-03-09 14:05:00",
		"Categories (estimated):",
		"Lab metrics (estimated from internal checks):",
		"First Contentful Paint",
		"Caching",
		"Page Cache Present",
		"[HIGH] Enable full-page caching",
		"Serve cached HTML to anonymous visitors.",
		audit.WarningNoPSI,
	}
	for _, want := range wants {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q\n%s", want, output)
		}
	}

	// Categories without a score show the placeholder.
	if !strings.Contains(output, scoring.ValueUnknown) {
		t.Error("expected placeholder for the missing SEO category")
	}
}

func TestTerminalRenderer_SectionOrder(t *testing.T) {
	os.Setenv("NO_COLOR", "1")
	defer os.Unsetenv("NO_COLOR")

	p := samplePayload()
	p.Internal.AddSection(scoring.SectionSEOBasics, 90)

	var buf bytes.Buffer
	if err := (&surface.TerminalRenderer{}).Render(&buf, p); err != nil {
		t.Fatal(err)
	}
	output := buf.String()

	last := -1
	for _, label := range []string{"Caching", "Assets", "Images", "Server", "Database", "Core & Updates", "SEO Basics"} {
		i := strings.Index(output, "  "+label)
		if i < 0 {
			t.Fatalf("section %q not rendered", label)
		}
		if i < last {
			t.Errorf("section %q out of order", label)
		}
		last = i
	}
	if strings.Contains(output, "Page Cache Present") {
		t.Error("check rows rendered without Checks")
	}
}

func TestTerminalRenderer_ColorRespected(t *testing.T) {
	// Without NO_COLOR, output should have ANSI codes
	os.Unsetenv("NO_COLOR")

	r := &surface.TerminalRenderer{}
	var buf bytes.Buffer

	if err := r.Render(&buf, samplePayload()); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.Contains(buf.String(), "\033[31mD\033[0m") {
		t.Error("expected a red D grade when NO_COLOR is not set")
	}
}

func TestTerminalRenderer_SEO(t *testing.T) {
	os.Setenv("NO_COLOR", "1")
	defer os.Unsetenv("NO_COLOR")

	res := seo.Analyze(`<html><head><title>Hi</title></head><body></body></html>`, "https://example.com/")

	var buf bytes.Buffer
	if err := (&surface.TerminalRenderer{}).RenderSEO(&buf, res); err != nil {
		t.Fatal(err)
	}
	output := buf.String()
	for _, want := range []string{
		"SEO basics: Grade F",
		"Title",
		"2 chars",
		"Meta description",
		"missing",
		"0 found",
		"Missing meta description.",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q\n%s", want, output)
		}
	}
}

func TestTerminalRenderer_CacheLayers(t *testing.T) {
	os.Setenv("NO_COLOR", "1")
	defer os.Unsetenv("NO_COLOR")

	header := http.Header{"Cf-Cache-Status": {"HIT"}}
	rep := cachelayers.Detect(header, []string{"wp-rocket/wp-rocket.php", "w3-total-cache/w3-total-cache.php"}, nil)

	var buf bytes.Buffer
	if err := (&surface.TerminalRenderer{}).RenderCacheLayers(&buf, rep); err != nil {
		t.Fatal(err)
	}
	output := buf.String()
	for _, want := range []string{"Cloudflare", "WP Rocket, W3 Total Cache", "Risks:", "Recommendations:"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q\n%s", want, output)
		}
	}
	if !strings.Contains(output, "Server cache         none detected") {
		t.Errorf("expected empty server cache row\n%s", output)
	}
}

func TestTerminalRenderer_SiteInfo(t *testing.T) {
	os.Setenv("NO_COLOR", "1")
	defer os.Unsetenv("NO_COLOR")

	info := &siteinfo.Info{
		GeneratedAt: "2024-03-09 14:05:00",
		WordPress: siteinfo.WordPress{
			Version:     "6.4.3",
			RESTAPI:     siteinfo.StatusReachable,
			Cron:        siteinfo.StatusOverdue,
			CronEvents:  4,
			CronOverdue: 1,
		},
		Theme:   siteinfo.Theme{Stylesheet: "astra-child", Template: "astra"},
		Plugins: siteinfo.Plugins{Active: []string{"akismet/akismet.php"}, TotalActive: 1},
		Errors:  []string{"read server version: timeout"},
	}

	var buf bytes.Buffer
	if err := (&surface.TerminalRenderer{}).RenderSiteInfo(&buf, info); err != nil {
		t.Fatal(err)
	}
	output := buf.String()
	for _, want := range []string{
		"WordPress            6.4.3",
		"overdue (4 scheduled, 1 overdue)",
		"astra-child (child of astra)",
		"Database server      n/a",
		"Active plugins (1):",
		"• akismet/akismet.php",
		"! read server version: timeout",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q\n%s", want, output)
		}
	}
}

func TestMarkdownRenderer(t *testing.T) {
	md := (&surface.MarkdownRenderer{}).Build(samplePayload())

	for _, want := range []string{
		"## siteaudit: Grade D — Score 64",
		"| Performance (est.) | 67 | D |",
		"| SEO (est.) | " + scoring.ValueUnknown + " | " + scoring.GradeUnknown + " |",
		"| Web Vitals (none) |",
		"### Lab Metrics (estimated)",
		"- **Caching**: 67 (D)",
		":red_circle: **Enable full-page caching**",
		"- " + audit.WarningNoPSI,
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}
}

func TestForFormat(t *testing.T) {
	for _, f := range []string{"", "text", "json", "markdown", "md"} {
		if _, ok := surface.ForFormat(f); !ok {
			t.Errorf("ForFormat(%q) not found", f)
		}
	}
	if _, ok := surface.ForFormat("xml"); ok {
		t.Error("ForFormat(xml) should not exist")
	}
}
