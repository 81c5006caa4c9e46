package crawler

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/linkatlas/linkatlas/pkg/urlutil"
)

// extractLinks pulls every eligible anchor target out of a page. Empty,
// javascript: and fragment-only hrefs are skipped; the rest are resolved
// against the page's own URL, normalized, and kept only when scheme and
// authority are present. Duplicates survive in extraction order.
func extractLinks(pageURL string, content []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "#") {
			return
		}
		link := urlutil.Normalize(urlutil.Resolve(pageURL, href))
		if !urlutil.IsCrawlable(link) {
			return
		}
		links = append(links, link)
	})
	return links, nil
}

// extractTitle returns the page's <title> text, or "" when absent.
func extractTitle(content []byte) string {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return ""
	}
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}
