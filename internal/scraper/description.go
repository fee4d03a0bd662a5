package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultDescriptionSelector is the content region of a justjoin.it offer
// page when the embedded page data is unavailable.
const DefaultDescriptionSelector = "div.MuiBox-root.css-7nl6k4"

const nextDataSelector = "script#__NEXT_DATA__"

// PageFetcher reads a remote page as text.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// DescriptionFetcher reads a listing detail page and returns the plain text
// of its description region.
type DescriptionFetcher struct {
	fetcher  PageFetcher
	Selector string
}

// NewDescriptionFetcher constructs a DescriptionFetcher. An empty selector
// falls back to DefaultDescriptionSelector.
func NewDescriptionFetcher(f PageFetcher, selector string) *DescriptionFetcher {
	if selector == "" {
		selector = DefaultDescriptionSelector
	}
	return &DescriptionFetcher{fetcher: f, Selector: selector}
}

// Describe fetches url and extracts its description. The embedded Next.js
// page data is preferred; the CSS selector is the fallback.
func (d *DescriptionFetcher) Describe(ctx context.Context, url string) (string, error) {
	body, err := d.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	return d.Parse(body)
}

// Parse extracts the description from an already fetched detail page.
func (d *DescriptionFetcher) Parse(page string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", &MalformedResponseError{Stage: StageParseFailure, Detail: "detail page markup", Err: err}
	}

	if text, ok := fromNextData(doc); ok {
		return text, nil
	}

	region := doc.Find(d.Selector).First()
	if region.Length() == 0 {
		return "", &MalformedResponseError{
			Stage:  StageMarkerNotFound,
			Detail: fmt.Sprintf("description region %q", d.Selector),
		}
	}
	return PlainText(region), nil
}

// fromNextData reads props.pageProps.offer.body out of the embedded page
// data script. The body is HTML itself.
func fromNextData(doc *goquery.Document) (string, bool) {
	script := doc.Find(nextDataSelector).First()
	if script.Length() == 0 {
		return "", false
	}
	var data struct {
		Props struct {
			PageProps struct {
				Offer struct {
					Body string `json:"body"`
				} `json:"offer"`
			} `json:"pageProps"`
		} `json:"props"`
	}
	if err := json.Unmarshal([]byte(script.Text()), &data); err != nil {
		return "", false
	}
	html := strings.TrimSpace(data.Props.PageProps.Offer.Body)
	if html == "" {
		return "", false
	}
	body, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}
	text := PlainText(body.Find("body"))
	return text, text != ""
}

var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "tr": true, "table": true,
}

// PlainText renders a selection as text, breaking lines at block elements
// and collapsing runs of whitespace.
func PlainText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(*goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			name := goquery.NodeName(c)
			switch name {
			case "#text":
				b.WriteString(c.Text())
			case "script", "style":
			default:
				if blockTags[name] {
					b.WriteString("\n")
				}
				walk(c)
				if blockTags[name] {
					b.WriteString("\n")
				}
			}
		})
	}
	walk(sel)

	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
