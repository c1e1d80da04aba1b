// Package extract pulls organic search results out of Google result pages.
// Google rotates its result markup between sessions, so extraction walks an
// ordered list of selector strategies and falls back to a raw anchor scan
// when none of them match.
package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/serpdriver/serpdriver/internal/logger"
)

// Result is one organic search result in page order.
type Result struct {
	Rank    int    `json:"rank"`
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet,omitempty"`
}

// strategy is one selector triple tried against the page. Container matches
// one result block; title and snippet are searched within it.
type strategy struct {
	name      string
	container string
	title     string
	snippet   string
}

// strategies in preference order, newest Google markup first.
var strategies = []strategy{
	{name: "search-hveid", container: "#search div[data-hveid]", title: "h3", snippet: "[data-sncf='1']"},
	{name: "rso-hveid", container: "#rso div[data-hveid]", title: "h3", snippet: "[data-sncf='1']"},
	{name: "classic-g", container: ".g", title: "h3", snippet: "div[style*='-webkit-line-clamp']"},
	{name: "jscontroller", container: "div[jscontroller][data-hveid]", title: "h3", snippet: "div[role='text']"},
}

const fallbackStrategy = "anchor-scan"

// excludedHosts filters Google's own navigation out of results. Matched as
// suffixes so country domains (google.de, google.co.uk) are covered too.
var excludedHostParts = []string{
	"google.com",
	"google.co",
	"google.de",
	"google.fr",
	"googleusercontent.com",
	"gstatic.com",
	"googleadservices.com",
}

// Extractor parses result pages. Safe to reuse across pages within one run.
type Extractor struct {
	log   *logger.Logger
	dedup *Deduplicator
}

// New creates an extractor logging through the given logger.
func New(log *logger.Logger) *Extractor {
	return &Extractor{
		log:   log.WithComponent("extract"),
		dedup: NewDeduplicator(200),
	}
}

// Extract parses html and returns up to limit organic results in page
// order. baseURL resolves relative links. An empty slice with nil error
// means the page genuinely had no recognizable results.
func (e *Extractor) Extract(html, baseURL string, limit int) ([]Result, string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, "", err
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}

	e.dedup.Reset()

	for _, s := range strategies {
		results := e.applyStrategy(doc, s, base, limit)
		if len(results) > 0 {
			e.log.Event(logger.DebugLevel).Str("strategy", s.name).Int("count", len(results)).Msg("Strategy matched")
			return results, s.name, nil
		}
	}

	results := e.anchorScan(doc, base, limit)
	return results, fallbackStrategy, nil
}

func (e *Extractor) applyStrategy(doc *goquery.Document, s strategy, base *url.URL, limit int) []Result {
	var results []Result

	doc.Find(s.container).Each(func(_ int, sel *goquery.Selection) {
		if limit > 0 && len(results) >= limit {
			return
		}

		title := strings.TrimSpace(sel.Find(s.title).First().Text())
		if title == "" {
			return
		}

		link := e.firstValidLink(sel, base)
		if link == "" || e.dedup.Seen(link) {
			return
		}

		snippet := strings.TrimSpace(sel.Find(s.snippet).First().Text())

		results = append(results, Result{
			Rank:    len(results) + 1,
			Title:   title,
			Link:    link,
			Snippet: snippet,
		})
	})

	return results
}

// anchorScan is the last-resort strategy: every external absolute anchor
// becomes a candidate result, with the snippet synthesized from the nearest
// ancestor whose text adds something beyond the title.
func (e *Extractor) anchorScan(doc *goquery.Document, base *url.URL, limit int) []Result {
	var results []Result

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		if limit > 0 && len(results) >= limit {
			return
		}

		link := e.resolveLink(sel, base)
		if link == "" || e.dedup.Seen(link) {
			return
		}

		title := strings.TrimSpace(sel.Find("h3").First().Text())
		if title == "" {
			title = strings.TrimSpace(sel.Text())
		}
		if title == "" {
			return
		}

		results = append(results, Result{
			Rank:    len(results) + 1,
			Title:   title,
			Link:    link,
			Snippet: ancestorSnippet(sel, title),
		})
	})

	return results
}

// ancestorSnippet walks up to three ancestors looking for surrounding text
// that is longer than, and not merely a copy of, the title.
func ancestorSnippet(sel *goquery.Selection, title string) string {
	node := sel.Parent()
	for depth := 0; depth < 3 && node.Length() > 0; depth++ {
		text := strings.TrimSpace(node.Text())
		if len(text) > len(title) && text != title {
			if runes := []rune(text); len(runes) > 300 {
				text = string(runes[:300])
			}
			return text
		}
		node = node.Parent()
	}
	return ""
}

// firstValidLink returns the first anchor in the block that resolves to an
// external destination. Blocks often lead with Google-internal anchors.
func (e *Extractor) firstValidLink(block *goquery.Selection, base *url.URL) string {
	link := ""
	block.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if resolved := e.resolveLink(a, base); resolved != "" {
			link = resolved
			return false
		}
		return true
	})
	return link
}

// resolveLink extracts and normalizes an anchor's destination. Only
// absolute http(s) URLs outside Google's own properties survive.
func (e *Extractor) resolveLink(sel *goquery.Selection, base *url.URL) string {
	href, ok := sel.Attr("href")
	if !ok {
		return ""
	}
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if isExcludedHost(u.Host) {
		return ""
	}
	return u.String()
}

func isExcludedHost(host string) bool {
	host = strings.ToLower(host)
	for _, part := range excludedHostParts {
		if host == part || strings.HasSuffix(host, "."+part) || strings.Contains(host, part) {
			return true
		}
	}
	return false
}
