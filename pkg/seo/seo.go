// Package seo scores the basic on-page SEO signals of an HTML document:
// the title tag, the meta description and the H1 headings.
package seo

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/siteaudit/siteaudit/pkg/checks"
	"github.com/siteaudit/siteaudit/pkg/scoring"
)

// Length bands in characters. The ideal band earns a small bonus, the soft
// bounds a deduction when crossed.
const (
	titleIdealMin = 50
	titleIdealMax = 60
	titleSoftMin  = 35
	titleSoftMax  = 65

	metaIdealMin = 120
	metaIdealMax = 160
	metaSoftMin  = 80
	metaSoftMax  = 180
)

// Weights of the three checks in the overall score.
const (
	weightTitle = 0.34
	weightMeta  = 0.33
	weightH1    = 0.33
)

const (
	msgEmptyHTML  = "Empty HTML received; unable to run SEO basics."
	msgFetchError = "Could not retrieve HTML for SEO checks."
)

// TextCheck is the result of a single-text check such as the title.
type TextCheck struct {
	Exists bool     `json:"exists"`
	Text   string   `json:"text"`
	Length int      `json:"length"`
	Score  int      `json:"score"`
	Issues []string `json:"issues"`
}

// HeadingCheck is the result of the H1 check.
type HeadingCheck struct {
	Count  int      `json:"count"`
	Texts  []string `json:"texts"`
	Score  int      `json:"score"`
	Issues []string `json:"issues"`
}

// Checks groups the individual check results.
type Checks struct {
	Title           TextCheck    `json:"title"`
	MetaDescription TextCheck    `json:"meta_description"`
	H1              HeadingCheck `json:"h1"`
}

// Result is an SEO basics scan.
type Result struct {
	URL      string   `json:"url,omitempty"`
	Score    int      `json:"score"`
	Grade    string   `json:"grade"`
	Checks   Checks   `json:"checks"`
	Messages []string `json:"messages"`
}

func emptyResult(msg string) Result {
	return Result{
		Score: 0,
		Grade: scoring.GradeFromScore(0),
		Checks: Checks{
			Title:           TextCheck{Issues: []string{}},
			MetaDescription: TextCheck{Issues: []string{}},
			H1:              HeadingCheck{Texts: []string{}, Issues: []string{}},
		},
		Messages: []string{msg},
	}
}

// Analyze scores doc. pageURL is only used in messages.
func Analyze(doc, pageURL string) Result {
	if doc == "" {
		msg := msgEmptyHTML
		if pageURL != "" {
			msg += " URL: " + pageURL
		}
		res := emptyResult(msg)
		res.URL = pageURL
		return res
	}

	p := parse(doc)
	title := checkText(p.title,
		titleSoftMin, titleSoftMax, titleIdealMin, titleIdealMax,
		"Missing <title> tag.",
		"Title is very short (%d chars). Consider adding context/key terms.",
		"Title is long (%d chars). It may be truncated in SERPs.")
	meta := checkText(p.description,
		metaSoftMin, metaSoftMax, metaIdealMin, metaIdealMax,
		"Missing meta description.",
		"Meta description is very short (%d chars). Add more detail/keywords.",
		"Meta description is long (%d chars). It may be truncated.")
	h1 := checkH1(p.h1s)

	score := int(math.Round(float64(title.Score)*weightTitle +
		float64(meta.Score)*weightMeta +
		float64(h1.Score)*weightH1))
	score = scoring.Clamp(score)

	return Result{
		URL:   pageURL,
		Score: score,
		Grade: scoring.GradeFromScore(score),
		Checks: Checks{
			Title:           title,
			MetaDescription: meta,
			H1:              h1,
		},
		Messages: collectMessages(pageURL, title.Issues, meta.Issues, h1.Issues),
	}
}

// Run fetches pageURL and analyzes it. A failed fetch scores 0.
func Run(ctx context.Context, f checks.Fetcher, pageURL string) Result {
	resp := f.Get(ctx, pageURL)
	if !resp.OK || resp.HTML == "" {
		res := emptyResult(msgFetchError)
		res.URL = pageURL
		return res
	}
	return Analyze(resp.HTML, pageURL)
}

func checkText(text string, softMin, softMax, idealMin, idealMax int, missing, short, long string) TextCheck {
	if text == "" {
		return TextCheck{Issues: []string{missing}}
	}

	n := utf8.RuneCountInString(text)
	res := TextCheck{Exists: true, Text: text, Length: n, Score: 100, Issues: []string{}}
	switch {
	case n < softMin:
		res.Issues = append(res.Issues, fmt.Sprintf(short, n))
		res.Score -= 25
	case n > softMax:
		res.Issues = append(res.Issues, fmt.Sprintf(long, n))
		res.Score -= 15
	}
	if n >= idealMin && n <= idealMax {
		res.Score = min(100, res.Score+5)
	}
	res.Score = scoring.Clamp(res.Score)
	return res
}

func checkH1(texts []string) HeadingCheck {
	res := HeadingCheck{Count: len(texts), Texts: texts, Score: 100, Issues: []string{}}
	if res.Texts == nil {
		res.Texts = []string{}
	}
	switch {
	case res.Count == 0:
		res.Issues = append(res.Issues, "No <h1> found. Add a single descriptive H1 heading.")
		res.Score = 0
	case res.Count > 1:
		res.Issues = append(res.Issues, fmt.Sprintf("Found %d <h1> tags. Use a single H1 for clarity.", res.Count))
		res.Score -= min(50, 10*(res.Count-1))
	}
	return res
}

func collectMessages(pageURL string, groups ...[]string) []string {
	seen := map[string]bool{}
	msgs := []string{}
	for _, g := range groups {
		for _, m := range g {
			if m == "" || seen[m] {
				continue
			}
			seen[m] = true
			msgs = append(msgs, m)
		}
	}
	if len(msgs) == 0 && pageURL != "" {
		msgs = append(msgs, "SEO basics scan completed for "+pageURL+".")
	}
	return msgs
}

// parsed holds the raw signals pulled from a document.
type parsed struct {
	title       string
	description string
	h1s         []string
}

func parse(doc string) parsed {
	var (
		p        parsed
		sawTitle bool
		inTitle  bool
		titleBuf strings.Builder
		h1Depth  int
		h1Buf    strings.Builder
	)

	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if inTitle {
				p.title = normalizeSpace(titleBuf.String())
			}
			return p

		case html.TextToken:
			if inTitle {
				titleBuf.Write(z.Text())
			}
			if h1Depth > 0 {
				h1Buf.Write(z.Text())
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.DataAtom {
			case atom.Title:
				if !sawTitle {
					sawTitle, inTitle = true, true
				}
			case atom.H1:
				if h1Depth == 0 {
					h1Buf.Reset()
				}
				h1Depth++
			case atom.Meta:
				if p.description == "" {
					p.description = metaDescription(tok)
				}
			}

		case html.EndTagToken:
			tok := z.Token()
			switch tok.DataAtom {
			case atom.Title:
				if inTitle {
					inTitle = false
					p.title = normalizeSpace(titleBuf.String())
				}
			case atom.H1:
				if h1Depth > 0 {
					h1Depth--
					if h1Depth == 0 {
						p.h1s = append(p.h1s, normalizeSpace(h1Buf.String()))
					}
				}
			}
		}
	}
}

func metaDescription(tok html.Token) string {
	var name, content string
	var hasContent bool
	for _, a := range tok.Attr {
		switch a.Key {
		case "name":
			name = a.Val
		case "content":
			content, hasContent = a.Val, true
		}
	}
	if !hasContent || !strings.EqualFold(strings.TrimSpace(name), "description") {
		return ""
	}
	return normalizeSpace(content)
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
