package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testOptions() Options {
	return Options{
		MaxDepth:       3,
		MaxWorkers:     4,
		RestrictDomain: true,
		FetchTimeout:   5 * time.Second,
	}
}

// stubFetcher serves pages from memory and counts per-URL fetches.
type stubFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls map[string]int
}

func newStubFetcher(pages map[string]string) *stubFetcher {
	return &stubFetcher{pages: pages, calls: make(map[string]int)}
}

func (f *stubFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	f.calls[url]++
	page, ok := f.pages[url]
	f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no such page: %s", url)
	}
	return []byte(page), nil
}

func (f *stubFetcher) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func htmlPage(hrefs ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, href := range hrefs {
		fmt.Fprintf(&b, `<a href=%q>link</a>`, href)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		seed    string
		wantErr bool
	}{
		{name: "valid URL", seed: "https://example.com", wantErr: false},
		{name: "bare host gains scheme", seed: "example.com", wantErr: false},
		{name: "relative path", seed: "/just/a/path", wantErr: true},
		{name: "empty", seed: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.seed, testOptions(), testLogger())
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, c)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, c)
			}
		})
	}
}

func TestCrawlEndToEnd(t *testing.T) {
	// The reference walk: / links to /a and /b, /a links to /b, /b has
	// no outbound links. With max depth 2 everything is reached, and
	// only the seed ends up with zero incoming links.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Path {
		case "/":
			fmt.Fprint(w, htmlPage("/a", "/b"))
		case "/a":
			fmt.Fprint(w, htmlPage("/b"))
		case "/b":
			fmt.Fprint(w, htmlPage())
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	opts := testOptions()
	opts.MaxDepth = 2
	c, err := New(server.URL, opts, testLogger())
	require.NoError(t, err)

	result, err := c.Crawl(context.Background())
	require.NoError(t, err)

	root := server.URL + "/"
	a := server.URL + "/a"
	b := server.URL + "/b"

	require.Len(t, result.Graph, 3)
	assert.Equal(t, []string{a, b}, result.Graph[root])
	assert.Equal(t, []string{b}, result.Graph[a])
	assert.Empty(t, result.Graph[b])
	assert.Equal(t, 3, result.TotalPages)
	assert.Equal(t, 0, result.ErrorCount)
}

func TestAtMostOneFetch(t *testing.T) {
	// Every page links to every other page several times over, so the
	// frontier fills with duplicates. The visited set must still keep
	// each URL to a single fetch.
	urls := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		urls = append(urls, fmt.Sprintf("http://x.test/p%d", i))
	}
	pages := make(map[string]string, len(urls)+1)
	dupes := append(append([]string{}, urls...), urls...)
	pages["http://x.test/"] = htmlPage(dupes...)
	for _, u := range urls {
		pages[u] = htmlPage(dupes...)
	}

	fetcher := newStubFetcher(pages)
	opts := testOptions()
	opts.MaxWorkers = 8
	c, err := New("http://x.test/", opts, testLogger())
	require.NoError(t, err)
	c.SetFetcher(fetcher)

	result, err := c.Crawl(context.Background())
	require.NoError(t, err)

	assert.Len(t, result.Graph, len(urls)+1)
	for url := range pages {
		assert.Equal(t, 1, fetcher.callCount(url), "url %s fetched more than once", url)
	}
}

func TestDepthBound(t *testing.T) {
	pages := map[string]string{
		"http://x.test/":       htmlPage("/level2"),
		"http://x.test/level2": htmlPage("/level3"),
		"http://x.test/level3": htmlPage("/level4"),
	}
	fetcher := newStubFetcher(pages)

	opts := testOptions()
	opts.MaxDepth = 2
	c, err := New("http://x.test/", opts, testLogger())
	require.NoError(t, err)
	c.SetFetcher(fetcher)

	result, err := c.Crawl(context.Background())
	require.NoError(t, err)

	assert.Len(t, result.Graph, 2)
	assert.Contains(t, result.Graph, "http://x.test/")
	assert.Contains(t, result.Graph, "http://x.test/level2")
	assert.Equal(t, 0, fetcher.callCount("http://x.test/level3"))
}

func TestRestrictDomain(t *testing.T) {
	pages := map[string]string{
		"http://x.test/":         htmlPage("/internal", "http://other.test/external"),
		"http://x.test/internal": htmlPage(),
	}
	fetcher := newStubFetcher(pages)

	c, err := New("http://x.test/", testOptions(), testLogger())
	require.NoError(t, err)
	c.SetFetcher(fetcher)

	result, err := c.Crawl(context.Background())
	require.NoError(t, err)

	// The off-domain link stays in the outbound list but is never crawled.
	assert.Contains(t, result.Graph["http://x.test/"], "http://other.test/external")
	assert.NotContains(t, result.Graph, "http://other.test/external")
	assert.Equal(t, 0, fetcher.callCount("http://other.test/external"))
}

func TestOffDomainFollowedWhenUnrestricted(t *testing.T) {
	pages := map[string]string{
		"http://x.test/":             htmlPage("http://other.test/external"),
		"http://other.test/external": htmlPage(),
	}
	fetcher := newStubFetcher(pages)

	opts := testOptions()
	opts.RestrictDomain = false
	c, err := New("http://x.test/", opts, testLogger())
	require.NoError(t, err)
	c.SetFetcher(fetcher)

	result, err := c.Crawl(context.Background())
	require.NoError(t, err)

	assert.Contains(t, result.Graph, "http://other.test/external")
	assert.Equal(t, 1, fetcher.callCount("http://other.test/external"))
}

func TestFailedFetchKeepsEmptyEntry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			fmt.Fprint(w, htmlPage("/broken"))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	c, err := New(server.URL, testOptions(), testLogger())
	require.NoError(t, err)

	result, err := c.Crawl(context.Background())
	require.NoError(t, err)

	broken := server.URL + "/broken"
	require.Contains(t, result.Graph, broken)
	assert.Empty(t, result.Graph[broken])
	assert.Equal(t, 1, result.ErrorCount)
}

func TestCrawlUsesCache(t *testing.T) {
	var hits int
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		switch r.URL.Path {
		case "/":
			fmt.Fprint(w, htmlPage("/a"))
		case "/a":
			fmt.Fprint(w, htmlPage())
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	dir := t.TempDir()
	opts := testOptions()
	opts.SavePath = dir

	first, err := New(server.URL, opts, testLogger())
	require.NoError(t, err)
	firstResult, err := first.Crawl(context.Background())
	require.NoError(t, err)

	mu.Lock()
	afterFirst := hits
	mu.Unlock()
	require.Equal(t, 2, afterFirst)

	// A second session over the same save path must answer every page
	// from disk without touching the network.
	second, err := New(server.URL, opts, testLogger())
	require.NoError(t, err)
	secondResult, err := second.Crawl(context.Background())
	require.NoError(t, err)

	mu.Lock()
	afterSecond := hits
	mu.Unlock()
	assert.Equal(t, afterFirst, afterSecond)
	assert.Equal(t, firstResult.Graph, secondResult.Graph)
}

func TestCrawlBreadthFirstOrder(t *testing.T) {
	// With a single worker each batch holds one task, so completed
	// depths must be non-decreasing across the whole run.
	pages := map[string]string{
		"http://x.test/":   htmlPage("/a", "/b"),
		"http://x.test/a":  htmlPage("/a1", "/a2"),
		"http://x.test/b":  htmlPage("/b1"),
		"http://x.test/a1": htmlPage(),
		"http://x.test/a2": htmlPage(),
		"http://x.test/b1": htmlPage(),
	}

	var order []string
	var mu sync.Mutex
	fetcher := &orderedFetcher{
		stub: newStubFetcher(pages),
		record: func(url string) {
			mu.Lock()
			order = append(order, url)
			mu.Unlock()
		},
	}

	opts := testOptions()
	opts.MaxWorkers = 1
	c, err := New("http://x.test/", opts, testLogger())
	require.NoError(t, err)
	c.SetFetcher(fetcher)

	_, err = c.Crawl(context.Background())
	require.NoError(t, err)

	require.Len(t, order, len(pages))
	assert.Equal(t, "http://x.test/", order[0])
	depth2 := order[1:3]
	sort.Strings(depth2)
	assert.Equal(t, []string{"http://x.test/a", "http://x.test/b"}, depth2)
}

type orderedFetcher struct {
	stub   *stubFetcher
	record func(url string)
}

func (f *orderedFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.record(url)
	return f.stub.Fetch(ctx, url)
}

func TestCrawlCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, err := New("http://x.test/", testOptions(), testLogger())
	require.NoError(t, err)
	c.SetFetcher(newStubFetcher(map[string]string{"http://x.test/": htmlPage()}))

	result, err := c.Crawl(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotNil(t, result)
}
