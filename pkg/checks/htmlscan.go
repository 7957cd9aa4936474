package checks

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// tag is a start tag with lowercased attribute keys.
type tag struct {
	name  atom.Atom
	attrs []html.Attribute
}

func (t tag) attr(key string) (string, bool) {
	for _, a := range t.attrs {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// firstAttr returns the value of whichever of keys appears first in the tag.
func (t tag) firstAttr(keys ...string) string {
	for _, a := range t.attrs {
		for _, k := range keys {
			if a.Key == k {
				return a.Val
			}
		}
	}
	return ""
}

func (t tag) isStylesheet() bool {
	if t.name != atom.Link {
		return false
	}
	rel, _ := t.attr("rel")
	for _, r := range strings.Fields(strings.ToLower(rel)) {
		if r == "stylesheet" {
			return true
		}
	}
	return false
}

func (t tag) isExternalScript() bool {
	if t.name != atom.Script {
		return false
	}
	src, _ := t.attr("src")
	return strings.TrimSpace(src) != ""
}

// scanTags walks every start tag in doc. inHead reports whether the tag sits
// between <head> and </head> (or the first <body>).
func scanTags(doc string, fn func(t tag, inHead bool)) {
	z := html.NewTokenizer(strings.NewReader(doc))
	inHead := false
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return
		case html.EndTagToken:
			if tok := z.Token(); tok.DataAtom == atom.Head {
				inHead = false
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.DataAtom {
			case atom.Head:
				inHead = true
				continue
			case atom.Body:
				inHead = false
			}
			fn(tag{name: tok.DataAtom, attrs: tok.Attr}, inHead)
		}
	}
}

// countAssets returns the number of stylesheet links and external scripts.
func countAssets(doc string) (css, js int) {
	scanTags(doc, func(t tag, _ bool) {
		switch {
		case t.isStylesheet():
			css++
		case t.isExternalScript():
			js++
		}
	})
	return css, js
}

// countBlocking counts render-blocking resources inside <head>: stylesheets
// not limited to print, and external scripts without defer or async.
func countBlocking(doc string) (css, js int) {
	scanTags(doc, func(t tag, inHead bool) {
		if !inHead {
			return
		}
		switch {
		case t.isStylesheet():
			if media, _ := t.attr("media"); strings.EqualFold(strings.TrimSpace(media), "print") {
				return
			}
			css++
		case t.isExternalScript():
			_, deferred := t.attr("defer")
			_, async := t.attr("async")
			if !deferred && !async {
				js++
			}
		}
	})
	return css, js
}

var (
	nextGenSrc    = regexp.MustCompile(`(?i)\.(webp|avif)(\?|$)`)
	nextGenSrcset = regexp.MustCompile(`(?i)\.(webp|avif)(\s|,|$)`)
)

type imageStats struct {
	total       int
	missingDims int
	nextGen     int
}

// scanImages counts <img> tags, those lacking a numeric width or height, and
// those referencing WebP or AVIF.
func scanImages(doc string) imageStats {
	var st imageStats
	scanTags(doc, func(t tag, _ bool) {
		if t.name != atom.Img {
			return
		}
		st.total++

		w, _ := t.attr("width")
		h, _ := t.attr("height")
		if !startsWithDigit(w) || !startsWithDigit(h) {
			st.missingDims++
		}

		src := t.firstAttr("src", "data-src", "data-lazy-src")
		srcset, _ := t.attr("srcset")
		if nextGenSrc.MatchString(strings.TrimSpace(src)) || nextGenSrcset.MatchString(srcset) {
			st.nextGen++
		}
	})
	return st
}

func startsWithDigit(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

// firstStylesheet returns the absolute URL of the first stylesheet in doc.
func firstStylesheet(doc, pageURL string) string {
	var href string
	scanTags(doc, func(t tag, _ bool) {
		if href != "" || !t.isStylesheet() {
			return
		}
		if h, ok := t.attr("href"); ok && strings.TrimSpace(h) != "" {
			href = strings.TrimSpace(h)
		}
	})
	if href == "" {
		return ""
	}
	return resolveURL(pageURL, href)
}

func resolveURL(base, ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil || base == "" {
		return ref
	}
	return b.ResolveReference(u).String()
}
