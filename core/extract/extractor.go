// ABOUTME: Content extractor turning raw HTML into a normalized ExtractedContent record
// ABOUTME: Extraction never panics; unparseable input yields an empty body with diagnostics

package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"content-fetch-api/core/domain"
	htmlutil "content-fetch-api/pkg/utils/html"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// noiseSelector lists elements whose text never counts as page content
const noiseSelector = "script, style, noscript, template, svg, iframe"

// standardMeta are the name= meta tags copied into Meta
var standardMeta = map[string]bool{
	"description": true,
	"keywords":    true,
	"author":      true,
	"robots":      true,
}

// Extractor parses HTML documents
type Extractor struct {
	markdown bool
}

// Option configures an Extractor
type Option func(*Extractor)

// WithMarkdown toggles the Markdown rendition of the chosen body
func WithMarkdown(on bool) Option {
	return func(e *Extractor) { e.markdown = on }
}

// New creates an extractor. Markdown output is on by default.
func New(opts ...Option) *Extractor {
	e := &Extractor{markdown: true}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract parses raw as UTF-8 (or meta-declared) HTML
func (e *Extractor) Extract(raw []byte, baseURL string) *domain.ExtractedContent {
	return e.ExtractWithContentType(raw, "", baseURL)
}

// ExtractWithContentType uses the Content-Type header to pick the charset
func (e *Extractor) ExtractWithContentType(raw []byte, contentType, baseURL string) (content *domain.ExtractedContent) {
	defer func() {
		if r := recover(); r != nil {
			content = domain.NewExtractedContent()
			content.ParseFailed = true
			content.AddDiagnostic(fmt.Sprintf("extraction panic: %v", r))
		}
	}()

	content = domain.NewExtractedContent()

	base, err := url.Parse(baseURL)
	if err != nil {
		base = &url.URL{}
		content.AddDiagnostic("invalid base url: " + err.Error())
	}

	reader, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		content.AddDiagnostic("charset detection failed: " + err.Error())
		reader = bytes.NewReader(raw)
	}

	root, err := html.Parse(reader)
	if err != nil {
		content.ParseFailed = true
		content.AddDiagnostic("html parse failed: " + err.Error())
		return content
	}
	doc := goquery.NewDocumentFromNode(root)

	content.FooterLinks = footerLinks(doc, base)
	collectMeta(doc, content)
	content.Title = title(doc, content.OGMeta)
	content.CanonicalURL, content.CanonicalMismatch = canonical(doc, base)

	doc.Find(noiseSelector).Remove()

	bodyHTML := e.body(doc, base, content)
	if e.markdown && bodyHTML != "" {
		if markdown, err := toMarkdown(bodyHTML, base); err == nil {
			content.Markdown = markdown
		} else {
			content.AddDiagnostic("markdown conversion failed: " + err.Error())
		}
	}

	return content
}

// body fills content.Body and returns the HTML of the chosen container
func (e *Extractor) body(doc *goquery.Document, base *url.URL, content *domain.ExtractedContent) string {
	if sel, text := longestContainer(doc); text != "" {
		content.Body = text
		h, _ := goquery.OuterHtml(sel)
		return h
	}

	if article, err := readabilityArticle(doc, base); err == nil {
		if text := normalizeMultiline(article.TextContent); text != "" {
			content.Body = text
			content.AddDiagnostic("body from readability")
			return article.Content
		}
	} else {
		content.AddDiagnostic("readability failed: " + err.Error())
	}

	if blockHTML, text := longestParagraphBlock(doc); text != "" {
		content.Body = text
		content.AddDiagnostic("body from paragraph block")
		return blockHTML
	}

	for _, key := range []string{"og:description", "twitter:description"} {
		if d := content.OGMeta[key]; d != "" {
			content.Body = htmlutil.NormalizeText(d)
			content.AddDiagnostic("body from " + key)
			return ""
		}
	}
	if d := content.Meta["description"]; d != "" {
		content.Body = htmlutil.NormalizeText(d)
		content.AddDiagnostic("body from meta description")
	}
	return ""
}

func readabilityArticle(doc *goquery.Document, base *url.URL) (readability.Article, error) {
	h, err := doc.Html()
	if err != nil {
		return readability.Article{}, err
	}
	return readability.FromReader(strings.NewReader(h), base)
}

// longestContainer picks the article, main or role=main element with the most text
func longestContainer(doc *goquery.Document) (*goquery.Selection, string) {
	var best *goquery.Selection
	var bestText string

	doc.Find("article, main, [role=main]").Each(func(_ int, s *goquery.Selection) {
		text := containerText(s)
		if len([]rune(text)) > len([]rune(bestText)) {
			best, bestText = s, text
		}
	})
	return best, bestText
}

// containerText keeps paragraph breaks between block elements
func containerText(s *goquery.Selection) string {
	var blocks []string
	s.Find("p, h1, h2, h3, h4, h5, h6, li, blockquote, pre").Each(func(_ int, b *goquery.Selection) {
		// Nested blocks are reached through their ancestor
		if b.ParentsUntilSelection(s).Filter("p, li, blockquote").Length() > 0 {
			return
		}
		blocks = append(blocks, b.Text())
	})
	if text := htmlutil.NormalizeBlocks(blocks); text != "" {
		return text
	}
	return htmlutil.NormalizeText(s.Text())
}

// longestParagraphBlock finds the run of adjacent <p> siblings with the most text
func longestParagraphBlock(doc *goquery.Document) (string, string) {
	type run struct {
		nodes []*goquery.Selection
		texts []string
	}
	var runs []*run
	var current *run
	var lastNode *html.Node

	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		prev := p.Prev()
		if current != nil && prev.Length() > 0 && prev.Get(0) == lastNode {
			current.nodes = append(current.nodes, p)
			current.texts = append(current.texts, p.Text())
		} else {
			current = &run{nodes: []*goquery.Selection{p}, texts: []string{p.Text()}}
			runs = append(runs, current)
		}
		lastNode = p.Get(0)
	})

	var best *run
	var bestText string
	for _, r := range runs {
		text := htmlutil.NormalizeBlocks(r.texts)
		if len([]rune(text)) > len([]rune(bestText)) {
			best, bestText = r, text
		}
	}
	if best == nil {
		return "", ""
	}

	var b strings.Builder
	for _, n := range best.nodes {
		h, _ := goquery.OuterHtml(n)
		b.WriteString(h)
	}
	return b.String(), bestText
}

func title(doc *goquery.Document, og map[string]string) string {
	if t := htmlutil.NormalizeText(doc.Find("title").First().Text()); t != "" {
		return t
	}
	if t := og["og:title"]; t != "" {
		return htmlutil.NormalizeText(t)
	}
	if t := og["twitter:title"]; t != "" {
		return htmlutil.NormalizeText(t)
	}
	return htmlutil.NormalizeText(doc.Find("h1").First().Text())
}

// collectMeta copies Open Graph, Twitter and standard meta tags. The first
// occurrence of a key wins.
func collectMeta(doc *goquery.Document, content *domain.ExtractedContent) {
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		value, ok := s.Attr("content")
		if !ok {
			return
		}
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}

		key := strings.ToLower(strings.TrimSpace(s.AttrOr("property", "")))
		if key == "" {
			key = strings.ToLower(strings.TrimSpace(s.AttrOr("name", "")))
		}

		switch {
		case strings.HasPrefix(key, "og:"), strings.HasPrefix(key, "twitter:"):
			if _, exists := content.OGMeta[key]; !exists {
				content.OGMeta[key] = value
			}
		case standardMeta[key]:
			if _, exists := content.Meta[key]; !exists {
				content.Meta[key] = value
			}
		}
	})
}

func canonical(doc *goquery.Document, base *url.URL) (string, bool) {
	href, ok := doc.Find("link[rel~='canonical']").First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return "", false
	}
	abs := resolve(base, href)
	if abs == "" {
		return "", false
	}
	return abs, canonicalForm(abs) != canonicalForm(base.String())
}

// canonicalForm reduces a URL to the parts that decide canonical equality
func canonicalForm(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return strings.ToLower(raw)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	path := strings.TrimSuffix(u.EscapedPath(), "/")
	out := host + path
	if u.RawQuery != "" {
		out += "?" + u.RawQuery
	}
	return out
}

// footerLinks scans footer anchors, or all anchors when the footer has none
func footerLinks(doc *goquery.Document, base *url.URL) domain.FooterLinks {
	var links domain.FooterLinks

	anchors := doc.Find("footer a[href]")
	if anchors.Length() == 0 {
		anchors = doc.Find("a[href]")
	}

	anchors.EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" {
			return true
		}
		text := strings.ToLower(htmlutil.NormalizeText(a.Text()))
		hrefLower := strings.ToLower(href)

		if links.Privacy == "" && (strings.Contains(hrefLower, "privacy") || strings.Contains(text, "privacy") || strings.Contains(text, "cookie")) {
			links.Privacy = resolve(base, href)
		}
		if links.Terms == "" && (strings.Contains(hrefLower, "term") || strings.Contains(text, "term") || strings.Contains(text, "conditions")) {
			links.Terms = resolve(base, href)
		}
		return links.Privacy == "" || links.Terms == ""
	})
	return links
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

func normalizeMultiline(text string) string {
	lines := strings.Split(text, "\n")
	return htmlutil.NormalizeBlocks(lines)
}
