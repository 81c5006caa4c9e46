package analyzer

import (
	"sort"
	"time"

	"github.com/linkatlas/linkatlas/internal/models"
)

const (
	dampingFactor      = 0.85
	pageRankIterations = 10

	hubFloor       = 10.0
	authorityFloor = 5.0

	topPageCount = 5
)

// Analyzer runs structural analyses over a completed link graph. All
// methods are pure: the graph is never mutated.
type Analyzer struct {
	graph models.LinkGraph
}

// New creates an Analyzer over the given link graph.
func New(graph models.LinkGraph) *Analyzer {
	return &Analyzer{graph: graph}
}

// PageRank computes a fixed-iteration PageRank approximation. Each key
// starts at 1/N; every iteration seeds keys with the base rank (1-d)/N
// and each source distributes d×score across its distinct targets. A
// target outside the key set receives a fresh entry holding exactly its
// contribution. Dangling pages distribute nothing, so their mass is lost
// each iteration; scores are returned without renormalization.
func (a *Analyzer) PageRank() map[string]float64 {
	n := float64(len(a.graph))
	if n == 0 {
		return map[string]float64{}
	}

	scores := make(map[string]float64, len(a.graph))
	for url := range a.graph {
		scores[url] = 1.0 / n
	}

	for i := 0; i < pageRankIterations; i++ {
		next := make(map[string]float64, len(scores))
		for url := range a.graph {
			next[url] = (1.0 - dampingFactor) / n
		}

		for source, links := range a.graph {
			distinct := make(map[string]struct{}, len(links))
			for _, link := range links {
				distinct[link] = struct{}{}
			}
			if len(distinct) == 0 {
				continue
			}

			weight := scores[source] * dampingFactor / float64(len(distinct))
			for target := range distinct {
				if _, ok := next[target]; ok {
					next[target] += weight
				} else {
					next[target] = weight
				}
			}
		}

		scores = next
	}

	return scores
}

// FindOrphanedPages returns the graph keys no other page links to.
// Incoming links are counted per raw occurrence, but only for targets
// that are themselves keys of the graph. Order is unspecified.
func (a *Analyzer) FindOrphanedPages() []string {
	incoming := a.incomingCounts()
	var orphaned []string
	for url, count := range incoming {
		if count == 0 {
			orphaned = append(orphaned, url)
		}
	}
	return orphaned
}

// FindHubs returns keys whose raw outbound count exceeds twice the
// average outbound count, with a floor of 10.
func (a *Analyzer) FindHubs() []string {
	if len(a.graph) == 0 {
		return nil
	}

	total := 0
	for _, links := range a.graph {
		total += len(links)
	}
	avg := float64(total) / float64(len(a.graph))
	threshold := max(avg*2, hubFloor)

	var hubs []string
	for url, links := range a.graph {
		if float64(len(links)) > threshold {
			hubs = append(hubs, url)
		}
	}
	return hubs
}

// FindAuthorities returns keys whose incoming count exceeds twice the
// average incoming count, with a floor of 5.
func (a *Analyzer) FindAuthorities() []string {
	incoming := a.incomingCounts()
	if len(incoming) == 0 {
		return nil
	}

	total := 0
	for _, count := range incoming {
		total += count
	}
	avg := float64(total) / float64(len(incoming))
	threshold := max(avg*2, authorityFloor)

	var authorities []string
	for url, count := range incoming {
		if float64(count) > threshold {
			authorities = append(authorities, url)
		}
	}
	return authorities
}

// TopPages returns up to limit pages ranked by PageRank descending, ties
// broken by URL for stable output.
func (a *Analyzer) TopPages(limit int) []models.PageScore {
	scores := a.PageRank()
	ranked := make([]models.PageScore, 0, len(scores))
	for url, score := range scores {
		ranked = append(ranked, models.PageScore{URL: url, Score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score == ranked[j].Score {
			return ranked[i].URL < ranked[j].URL
		}
		return ranked[i].Score > ranked[j].Score
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// BuildReport runs all four analyses over a crawl result and assembles
// the report consumed by the reporter. Category lists are sorted for
// stable output; the renderer decides how many examples to show.
func BuildReport(result *models.CrawlResult) *models.LinkReport {
	a := New(result.Graph)

	totalLinks := result.Graph.TotalLinks()
	avg := 0.0
	if len(result.Graph) > 0 {
		avg = float64(totalLinks) / float64(len(result.Graph))
	}

	orphaned := a.FindOrphanedPages()
	hubs := a.FindHubs()
	authorities := a.FindAuthorities()
	sort.Strings(orphaned)
	sort.Strings(hubs)
	sort.Strings(authorities)

	return &models.LinkReport{
		Seed:            result.Seed,
		GeneratedAt:     result.CrawlTime,
		TotalPages:      len(result.Graph),
		TotalLinks:      totalLinks,
		AvgLinksPerPage: avg,
		ErrorCount:      result.ErrorCount,
		CrawlDuration:   result.Duration.Round(time.Millisecond).String(),
		Orphaned:        orphaned,
		Hubs:            hubs,
		Authorities:     authorities,
		TopPages:        a.TopPages(topPageCount),
	}
}

func (a *Analyzer) incomingCounts() map[string]int {
	incoming := make(map[string]int, len(a.graph))
	for url := range a.graph {
		incoming[url] = 0
	}
	for _, links := range a.graph {
		for _, link := range links {
			if _, ok := incoming[link]; ok {
				incoming[link]++
			}
		}
	}
	return incoming
}
