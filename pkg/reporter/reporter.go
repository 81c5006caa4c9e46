package reporter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/linkatlas/linkatlas/internal/models"
)

const exampleLimit = 5

// Reporter renders link-structure analysis reports in various formats.
type Reporter struct{}

// New creates a new Reporter instance.
func New() *Reporter {
	return &Reporter{}
}

// Render produces the report in the requested format: "text" (default),
// "markdown" or "json".
func (r *Reporter) Render(report *models.LinkReport, format string) (string, error) {
	switch format {
	case "", "text":
		return r.renderText(report), nil
	case "markdown":
		return r.renderMarkdown(report), nil
	case "json":
		return r.renderJSON(report)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func (r *Reporter) renderJSON(report *models.LinkReport) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	return string(data), nil
}

func (r *Reporter) renderText(report *models.LinkReport) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Link Structure Analysis\n")
	fmt.Fprintf(&buf, "=======================\n\n")
	fmt.Fprintf(&buf, "Seed:                %s\n", report.Seed)
	fmt.Fprintf(&buf, "Total pages:         %d\n", report.TotalPages)
	fmt.Fprintf(&buf, "Total links:         %d\n", report.TotalLinks)
	fmt.Fprintf(&buf, "Avg links per page:  %.2f\n", report.AvgLinksPerPage)
	fmt.Fprintf(&buf, "Fetch errors:        %d\n", report.ErrorCount)
	fmt.Fprintf(&buf, "Crawl duration:      %s\n", report.CrawlDuration)

	writeTextCategory(&buf, "Orphaned Pages", report.Orphaned)
	writeTextCategory(&buf, "Hub Pages", report.Hubs)
	writeTextCategory(&buf, "Authority Pages", report.Authorities)

	fmt.Fprintf(&buf, "\nTop Pages by PageRank:\n")
	for _, page := range report.TopPages {
		fmt.Fprintf(&buf, "  %.4f  %s\n", page.Score, page.URL)
	}

	return buf.String()
}

func writeTextCategory(buf *bytes.Buffer, title string, urls []string) {
	fmt.Fprintf(buf, "\n%s (%d):\n", title, len(urls))
	for i, url := range urls {
		if i == exampleLimit {
			fmt.Fprintf(buf, "  ... and %d more\n", len(urls)-exampleLimit)
			return
		}
		fmt.Fprintf(buf, "  - %s\n", url)
	}
}

func (r *Reporter) renderMarkdown(report *models.LinkReport) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Link Structure Analysis for %s\n\n", report.Seed)
	fmt.Fprintf(&buf, "*Generated on %s*\n\n", report.GeneratedAt.Format("January 2, 2006"))

	fmt.Fprintf(&buf, "## Summary\n\n")
	fmt.Fprintf(&buf, "| Metric | Value |\n")
	fmt.Fprintf(&buf, "|--------|-------|\n")
	fmt.Fprintf(&buf, "| Total pages | %d |\n", report.TotalPages)
	fmt.Fprintf(&buf, "| Total links | %d |\n", report.TotalLinks)
	fmt.Fprintf(&buf, "| Avg links per page | %.2f |\n", report.AvgLinksPerPage)
	fmt.Fprintf(&buf, "| Fetch errors | %d |\n", report.ErrorCount)
	fmt.Fprintf(&buf, "| Crawl duration | %s |\n\n", report.CrawlDuration)

	writeMarkdownCategory(&buf, "Orphaned Pages", report.Orphaned)
	writeMarkdownCategory(&buf, "Hub Pages", report.Hubs)
	writeMarkdownCategory(&buf, "Authority Pages", report.Authorities)

	fmt.Fprintf(&buf, "## Top Pages by PageRank\n\n")
	for i, page := range report.TopPages {
		fmt.Fprintf(&buf, "%d. %s (%.4f)\n", i+1, page.URL, page.Score)
	}

	return buf.String()
}

func writeMarkdownCategory(buf *bytes.Buffer, title string, urls []string) {
	fmt.Fprintf(buf, "## %s (%d)\n\n", title, len(urls))
	for i, url := range urls {
		if i == exampleLimit {
			fmt.Fprintf(buf, "- ... and %d more\n", len(urls)-exampleLimit)
			break
		}
		fmt.Fprintf(buf, "- %s\n", url)
	}
	fmt.Fprintf(buf, "\n")
}

// RenderStructure dumps the full URL -> outbound-links listing, sorted by
// URL, with page titles where known. Shown under --verbose before the
// analysis report.
func (r *Reporter) RenderStructure(result *models.CrawlResult) string {
	urls := make([]string, 0, len(result.Graph))
	for url := range result.Graph {
		urls = append(urls, url)
	}
	sort.Strings(urls)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Website Link Structure\n")
	fmt.Fprintf(&buf, "======================\n")
	for _, url := range urls {
		links := result.Graph[url]
		if title, ok := result.Titles[url]; ok {
			fmt.Fprintf(&buf, "\n%s (%s)\n", url, title)
		} else {
			fmt.Fprintf(&buf, "\n%s\n", url)
		}
		fmt.Fprintf(&buf, "  Outgoing links (%d):\n", len(links))
		sorted := append([]string(nil), links...)
		sort.Strings(sorted)
		for _, link := range sorted {
			fmt.Fprintf(&buf, "    -> %s\n", link)
		}
	}
	fmt.Fprintf(&buf, "\nTotal pages crawled: %d\n", len(result.Graph))
	return buf.String()
}
