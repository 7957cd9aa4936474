package seo_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/siteaudit/siteaudit/pkg/checks"
	"github.com/siteaudit/siteaudit/pkg/seo"
)

func doc(title, description string, h1s ...string) string {
	var b strings.Builder
	b.WriteString("<!doctype html><html><head>")
	if title != "" {
		b.WriteString("<title>" + title + "</title>")
	}
	if description != "" {
		b.WriteString(`<meta name="description" content="` + description + `">`)
	}
	b.WriteString("</head><body>")
	for _, h := range h1s {
		b.WriteString("<h1>" + h + "</h1>")
	}
	b.WriteString("<p>body</p></body></html>")
	return b.String()
}

func TestAnalyzeIdealPage(t *testing.T) {
	res := seo.Analyze(doc(strings.Repeat("t", 55), strings.Repeat("d", 140), "Welcome"), "https://example.com/")

	if res.Score != 100 || res.Grade != "A" {
		t.Errorf("score = %d grade = %q, want 100 A", res.Score, res.Grade)
	}
	if res.Checks.Title.Length != 55 || !res.Checks.Title.Exists {
		t.Errorf("title = %+v", res.Checks.Title)
	}
	if res.Checks.H1.Count != 1 || res.Checks.H1.Texts[0] != "Welcome" {
		t.Errorf("h1 = %+v", res.Checks.H1)
	}
	want := "SEO basics scan completed for https://example.com/."
	if len(res.Messages) != 1 || res.Messages[0] != want {
		t.Errorf("messages = %v, want [%s]", res.Messages, want)
	}
}

func TestAnalyzeIssues(t *testing.T) {
	res := seo.Analyze(doc(strings.Repeat("t", 20), "", "One", "Two"), "")

	if res.Checks.Title.Score != 75 {
		t.Errorf("title score = %d, want 75", res.Checks.Title.Score)
	}
	if res.Checks.MetaDescription.Score != 0 || res.Checks.MetaDescription.Exists {
		t.Errorf("meta = %+v, want missing", res.Checks.MetaDescription)
	}
	if res.Checks.H1.Score != 90 {
		t.Errorf("h1 score = %d, want 90", res.Checks.H1.Score)
	}
	// round(75*0.34 + 0 + 90*0.33) = round(55.2)
	if res.Score != 55 || res.Grade != "F" {
		t.Errorf("score = %d grade = %q, want 55 F", res.Score, res.Grade)
	}

	want := []string{
		"Title is very short (20 chars). Consider adding context/key terms.",
		"Missing meta description.",
		"Found 2 <h1> tags. Use a single H1 for clarity.",
	}
	if len(res.Messages) != len(want) {
		t.Fatalf("messages = %v, want %v", res.Messages, want)
	}
	for i := range want {
		if res.Messages[i] != want[i] {
			t.Errorf("messages[%d] = %q, want %q", i, res.Messages[i], want[i])
		}
	}
}

func TestAnalyzeLengthBands(t *testing.T) {
	tests := []struct {
		name      string
		title     int
		meta      int
		wantTitle int
		wantMeta  int
	}{
		{"soft range", 40, 100, 100, 100},
		{"ideal range", 50, 120, 100, 100},
		{"too long", 70, 200, 85, 85},
		{"too short", 10, 30, 75, 75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := seo.Analyze(doc(strings.Repeat("a", tt.title), strings.Repeat("b", tt.meta), "h"), "")
			if res.Checks.Title.Score != tt.wantTitle {
				t.Errorf("title score = %d, want %d", res.Checks.Title.Score, tt.wantTitle)
			}
			if res.Checks.MetaDescription.Score != tt.wantMeta {
				t.Errorf("meta score = %d, want %d", res.Checks.MetaDescription.Score, tt.wantMeta)
			}
		})
	}
}

func TestAnalyzeH1Decay(t *testing.T) {
	h1s := make([]string, 8)
	for i := range h1s {
		h1s[i] = "x"
	}
	res := seo.Analyze(doc("title", "desc", h1s...), "")
	if res.Checks.H1.Score != 50 {
		t.Errorf("h1 score = %d, want 50", res.Checks.H1.Score)
	}
}

func TestAnalyzeMarkupDetails(t *testing.T) {
	html := `<html><head>
<title>  Shop &amp;   More  </title>
<meta content="Fresh  &quot;deals&quot;" NAME="Description">
</head><body><h1 class="hero">Big <em>sale</em></h1></body></html>`

	res := seo.Analyze(html, "")
	if got := res.Checks.Title.Text; got != "Shop & More" {
		t.Errorf("title = %q, want %q", got, "Shop & More")
	}
	if got := res.Checks.MetaDescription.Text; got != `Fresh "deals"` {
		t.Errorf("meta = %q", got)
	}
	if got := res.Checks.H1.Texts; len(got) != 1 || got[0] != "Big sale" {
		t.Errorf("h1 texts = %v, want [Big sale]", got)
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	res := seo.Analyze("", "https://example.com/")
	if res.Score != 0 || res.Grade != "F" {
		t.Errorf("score = %d grade = %q, want 0 F", res.Score, res.Grade)
	}
	want := "Empty HTML received; unable to run SEO basics. URL: https://example.com/"
	if len(res.Messages) != 1 || res.Messages[0] != want {
		t.Errorf("messages = %v", res.Messages)
	}
}

type stubFetcher struct{ resp checks.Response }

func (s stubFetcher) Get(context.Context, string) checks.Response  { return s.resp }
func (s stubFetcher) Head(context.Context, string) checks.Response { return s.resp }

func TestRun(t *testing.T) {
	ok := stubFetcher{checks.Response{OK: true, StatusCode: 200, Header: http.Header{},
		HTML: doc(strings.Repeat("t", 55), strings.Repeat("d", 140), "Hi")}}
	if res := seo.Run(context.Background(), ok, "https://example.com/"); res.Score != 100 {
		t.Errorf("Run() score = %d, want 100", res.Score)
	}

	failing := stubFetcher{checks.Response{Header: http.Header{}, Error: "HTTP 500", StatusCode: 500}}
	res := seo.Run(context.Background(), failing, "https://example.com/")
	if res.Score != 0 || res.Grade != "F" {
		t.Errorf("score = %d grade = %q, want 0 F", res.Score, res.Grade)
	}
	if len(res.Messages) != 1 || res.Messages[0] != "Could not retrieve HTML for SEO checks." {
		t.Errorf("messages = %v", res.Messages)
	}
	if res.URL != "https://example.com/" {
		t.Errorf("URL = %q", res.URL)
	}
}
