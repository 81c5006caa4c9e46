package models

import "time"

// LinkGraph maps a normalized page URL to its outbound link targets in
// extraction order. Duplicate targets are preserved as discovered; the
// analyzer decides where to collapse them.
type LinkGraph map[string][]string

// TotalLinks counts every raw outbound entry in the graph.
func (g LinkGraph) TotalLinks() int {
	total := 0
	for _, links := range g {
		total += len(links)
	}
	return total
}

// CrawlTask is a frontier entry: a normalized URL paired with its BFS
// depth. The seed is depth 1; discovered links inherit parent depth + 1.
type CrawlTask struct {
	URL   string
	Depth int
}

// CrawlResult contains the output of a completed crawl.
type CrawlResult struct {
	Seed       string            `json:"seed"`
	Graph      LinkGraph         `json:"graph"`
	Titles     map[string]string `json:"titles,omitempty"`
	TotalPages int               `json:"total_pages"`
	ErrorCount int               `json:"error_count"`
	Duration   time.Duration     `json:"duration"`
	CrawlTime  time.Time         `json:"crawl_time"`
}

// PageScore pairs a URL with its PageRank score.
type PageScore struct {
	URL   string  `json:"url"`
	Score float64 `json:"score"`
}

// LinkReport is the analyzer output rendered by the reporter.
type LinkReport struct {
	Seed            string      `json:"seed"`
	GeneratedAt     time.Time   `json:"generated_at"`
	TotalPages      int         `json:"total_pages"`
	TotalLinks      int         `json:"total_links"`
	AvgLinksPerPage float64     `json:"avg_links_per_page"`
	ErrorCount      int         `json:"error_count"`
	CrawlDuration   string      `json:"crawl_duration"`
	Orphaned        []string    `json:"orphaned_pages"`
	Hubs            []string    `json:"hub_pages"`
	Authorities     []string    `json:"authority_pages"`
	TopPages        []PageScore `json:"top_pages"`
}
