package httpfetch

import (
	"bytes"
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"EditaisScanner/internal/dates"
	"EditaisScanner/internal/domain"
	"EditaisScanner/internal/text"
)

// contentSelectors are tried in order; the first one with text wins.
var contentSelectors = []string{
	"article",
	"main",
	"[role=main]",
	"#content-core",
	"#content",
	".content",
	".entry-content",
	".post-content",
}

// machineDateSelectors carry a parseable date in an attribute.
var machineDateSelectors = []struct {
	selector string
	attr     string
}{
	{"time[datetime]", "datetime"},
	{`meta[property="article:published_time"]`, "content"},
	{`meta[property="article:modified_time"]`, "content"},
	{`meta[itemprop="datePublished"]`, "content"},
	{`meta[name="DC.date.created"]`, "content"},
	{`meta[name="date"]`, "content"},
}

// textDateSelectors hold human-readable dates and are read last.
var textDateSelectors = []string{
	".documentPublished",
	".documentModified",
	"time",
	".date",
	".data",
	".published",
}

// FetchPage downloads rawURL and extracts its title, readable text and publication date.
func (f *Fetcher) FetchPage(ctx context.Context, rawURL string) (domain.Page, error) {
	resp, err := f.Get(ctx, rawURL, nil)
	if err != nil {
		return domain.Page{}, err
	}
	return f.ParsePage(resp.URL, resp.Body)
}

// ParsePage extracts page data from an already downloaded HTML body.
func (f *Fetcher) ParsePage(pageURL string, body []byte) (domain.Page, error) {
	return ParseDocument(pageURL, body, f.dates)
}

// ParseDocument extracts the title, readable text and publication date of an HTML body.
func ParseDocument(pageURL string, body []byte, inferencer *dates.Inferencer) (domain.Page, error) {
	if inferencer == nil {
		inferencer = dates.NewInferencer(dates.DefaultPolicy())
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return domain.Page{}, &domain.ParseError{Format: "html", Err: err}
	}

	page := domain.Page{
		URL:   pageURL,
		Title: PageTitle(doc),
		Date:  pageDate(doc, inferencer),
	}

	StripNoise(doc)
	page.Text = MainText(doc)
	if page.Text == "" {
		page.Text = readableText(pageURL, body)
	}
	if page.Text == "" {
		page.Text = SelectionText(doc.Find("body"))
	}

	return page, nil
}

// StripNoise removes elements that never carry notice text.
func StripNoise(doc *goquery.Document) {
	doc.Find("script, style, noscript, template").Remove()
}

// PageTitle prefers <title>, then the Open Graph title, then the first heading.
func PageTitle(doc *goquery.Document) string {
	if t := text.Clean(doc.Find("title").First().Text()); t != "" {
		return t
	}
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(og) != "" {
		return text.Clean(og)
	}
	return text.Clean(doc.Find("h1").First().Text())
}

// MainText returns the text of the first structural container that has any.
func MainText(doc *goquery.Document) string {
	for _, sel := range contentSelectors {
		if t := SelectionText(doc.Find(sel).First()); t != "" {
			return t
		}
	}
	return ""
}

// SelectionText renders a selection as clean text with block elements separated by spaces.
func SelectionText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	html, err := sel.Html()
	if err != nil {
		return text.Clean(sel.Text())
	}
	return text.Clean(html)
}

func readableText(pageURL string, body []byte) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return ""
	}
	return text.Clean(article.TextContent)
}

func pageDate(doc *goquery.Document, inferencer *dates.Inferencer) *time.Time {
	for _, ms := range machineDateSelectors {
		var found *time.Time
		doc.Find(ms.selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if v, ok := s.Attr(ms.attr); ok {
				found = inferencer.ParseLenient(v)
			}
			return found == nil
		})
		if found != nil {
			return found
		}
	}

	for _, sel := range textDateSelectors {
		var found *time.Time
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			found = inferencer.Infer(s.Text())
			return found == nil
		})
		if found != nil {
			return found
		}
	}
	return nil
}
