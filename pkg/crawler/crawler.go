package crawler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/linkatlas/linkatlas/internal/models"
	"github.com/linkatlas/linkatlas/pkg/urlutil"
)

// Options configures a crawl session.
type Options struct {
	MaxDepth       int           // deepest depth fetched; the seed is depth 1
	MaxWorkers     int           // bounded worker pool size per batch
	RateLimit      time.Duration // minimum spacing between same-domain fetches
	RestrictDomain bool          // drop links whose authority differs from the seed's
	SavePath       string        // cache directory; empty disables caching
	UserAgent      string
	FetchTimeout   time.Duration
}

// Crawler owns a single crawl session: the BFS frontier, the visited set
// and the shared link graph. It dispatches batches of tasks to a bounded
// worker pool and waits for each batch to drain before forming the next,
// so all depth-d pages are processed before any depth-(d+1) page.
type Crawler struct {
	seed       string
	seedDomain string
	opts       Options
	fetcher    Fetcher
	limiter    *DomainLimiter
	cache      *Cache
	logger     zerolog.Logger

	visitedMu sync.Mutex
	visited   map[string]struct{}

	graphMu sync.Mutex
	graph   models.LinkGraph
	titles  map[string]string

	errorCount atomic.Int32
}

// New creates a crawl session for the given seed. A bare-host seed gains
// an https scheme before normalization.
func New(seed string, opts Options, logger zerolog.Logger) (*Crawler, error) {
	normalized := urlutil.Normalize(urlutil.WithScheme(seed))
	if !urlutil.IsCrawlable(normalized) {
		return nil, fmt.Errorf("invalid seed URL %q", seed)
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 1
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 1
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "LinkAtlas/1.0"
	}

	c := &Crawler{
		seed:       normalized,
		seedDomain: urlutil.Domain(normalized),
		opts:       opts,
		fetcher:    NewHTTPFetcher(opts.FetchTimeout, opts.UserAgent),
		limiter:    NewDomainLimiter(opts.RateLimit),
		logger:     logger,
		visited:    make(map[string]struct{}),
		graph:      make(models.LinkGraph),
		titles:     make(map[string]string),
	}

	if opts.SavePath != "" {
		cache, err := NewCache(opts.SavePath, logger)
		if err != nil {
			return nil, err
		}
		c.cache = cache
	}
	return c, nil
}

// SetFetcher swaps the fetch collaborator, mainly for tests.
func (c *Crawler) SetFetcher(f Fetcher) {
	c.fetcher = f
}

// Crawl runs the frontier to exhaustion and returns the completed link
// graph. Page-level failures are logged and counted, never returned; a
// canceled context stops batch formation and returns the partial result
// with the context error.
func (c *Crawler) Crawl(ctx context.Context) (*models.CrawlResult, error) {
	start := time.Now()
	queue := []models.CrawlTask{{URL: c.seed, Depth: 1}}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return c.result(start), err
		}

		batch := c.selectBatch(&queue)
		if len(batch) == 0 {
			break
		}

		results := make([][]string, len(batch))
		g := new(errgroup.Group)
		for i, task := range batch {
			i, task := i, task
			g.Go(func() error {
				results[i] = c.process(ctx, task)
				return nil
			})
		}
		// Batch barrier: the next batch forms only once this one drains.
		_ = g.Wait()

		for i, task := range batch {
			for _, link := range results[i] {
				queue = append(queue, models.CrawlTask{URL: link, Depth: task.Depth + 1})
			}
		}
	}

	return c.result(start), nil
}

// selectBatch pops up to MaxWorkers eligible tasks from the frontier.
// Tasks beyond the depth bound are discarded outright; tasks already
// visited in an earlier batch are skipped here as a shortcut, with the
// worker's atomic check remaining the dedup authority.
func (c *Crawler) selectBatch(queue *[]models.CrawlTask) []models.CrawlTask {
	var batch []models.CrawlTask
	q := *queue
	for len(q) > 0 && len(batch) < c.opts.MaxWorkers {
		task := q[0]
		q = q[1:]
		if task.Depth > c.opts.MaxDepth {
			continue
		}
		if c.isVisited(task.URL) {
			continue
		}
		batch = append(batch, task)
	}
	*queue = q
	return batch
}

// process runs one fetch-and-extract worker invocation and returns the
// newly discovered links eligible for the frontier. Every failure inside
// is contained: logged, counted, and converted to an empty result.
func (c *Crawler) process(ctx context.Context, task models.CrawlTask) []string {
	pageURL := urlutil.Normalize(task.URL)
	if !urlutil.IsCrawlable(pageURL) {
		return nil
	}
	if !c.markVisited(pageURL) {
		return nil
	}

	// Claim the graph entry before fetching so no reader ever sees a
	// missing key for a URL that has been dispatched.
	c.graphMu.Lock()
	c.graph[pageURL] = []string{}
	c.graphMu.Unlock()

	c.logger.Info().Str("url", pageURL).Int("depth", task.Depth).Msg("crawling")

	if err := c.limiter.Wait(ctx, urlutil.Domain(pageURL)); err != nil {
		c.logger.Warn().Err(err).Str("url", pageURL).Msg("rate limit wait aborted")
		return nil
	}

	content, cached := c.readCache(pageURL)
	if cached {
		c.logger.Debug().Str("url", pageURL).Msg("using cached version")
	} else {
		var err error
		content, err = c.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			c.errorCount.Add(1)
			c.logger.Warn().Err(err).Str("url", pageURL).Msg("fetch failed")
			return nil
		}
		if c.cache != nil && len(content) > 0 {
			c.cache.Write(pageURL, content)
		}
	}

	links, err := extractLinks(pageURL, content)
	if err != nil {
		c.errorCount.Add(1)
		c.logger.Warn().Err(err).Str("url", pageURL).Msg("link extraction failed")
		return nil
	}

	c.graphMu.Lock()
	c.graph[pageURL] = links
	if title := extractTitle(content); title != "" {
		c.titles[pageURL] = title
	}
	c.graphMu.Unlock()

	var next []string
	for _, link := range links {
		if c.isVisited(link) {
			continue
		}
		if c.opts.RestrictDomain && urlutil.Domain(link) != c.seedDomain {
			continue
		}
		next = append(next, link)
	}
	return next
}

func (c *Crawler) readCache(pageURL string) ([]byte, bool) {
	if c.cache == nil {
		return nil, false
	}
	return c.cache.Read(pageURL)
}

// markVisited atomically tests and sets membership, guaranteeing at most
// one fetch per normalized URL across the whole run.
func (c *Crawler) markVisited(pageURL string) bool {
	c.visitedMu.Lock()
	defer c.visitedMu.Unlock()
	if _, ok := c.visited[pageURL]; ok {
		return false
	}
	c.visited[pageURL] = struct{}{}
	return true
}

func (c *Crawler) isVisited(pageURL string) bool {
	c.visitedMu.Lock()
	defer c.visitedMu.Unlock()
	_, ok := c.visited[pageURL]
	return ok
}

func (c *Crawler) result(start time.Time) *models.CrawlResult {
	c.graphMu.Lock()
	defer c.graphMu.Unlock()
	return &models.CrawlResult{
		Seed:       c.seed,
		Graph:      c.graph,
		Titles:     c.titles,
		TotalPages: len(c.graph),
		ErrorCount: int(c.errorCount.Load()),
		Duration:   time.Since(start),
		CrawlTime:  time.Now(),
	}
}
