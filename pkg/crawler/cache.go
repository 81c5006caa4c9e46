package crawler

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/rs/zerolog"
)

// Cache persists fetched page content as one HTML file per URL under a
// directory, doubling as the crawl artifact output. Filenames are derived
// deterministically from the URL and memoized so concurrent derivations
// for the same URL always agree.
type Cache struct {
	dir    string
	logger zerolog.Logger

	mu        sync.Mutex
	filenames map[string]string

	// Per-filename write locks; writes to distinct files stay independent.
	writeLocks sync.Map
}

// NewCache creates the cache rooted at dir, creating the directory if it
// does not exist.
func NewCache(dir string, logger zerolog.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{
		dir:       dir,
		logger:    logger,
		filenames: make(map[string]string),
	}, nil
}

// FilenameFor derives the on-disk filename for a normalized URL. The
// domain loses a leading "www.", the path joins with "_" separators, and
// names over 100 characters collapse to a short MD5 prefix of the path.
func (c *Cache) FilenameFor(rawURL string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name, ok := c.filenames[rawURL]; ok {
		return name
	}
	name := deriveFilename(rawURL)
	c.filenames[rawURL] = name
	return name
}

func deriveFilename(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		u = &url.URL{Path: rawURL}
	}
	domain := strings.TrimPrefix(u.Host, "www.")

	var name string
	if u.Path != "" && u.Path != "/" {
		path := strings.TrimSuffix(u.Path, "/")
		name = domain + strings.ReplaceAll(path, "/", "_")
		if len(name) > 100 {
			sum := md5.Sum([]byte(u.Path))
			name = domain + "_" + hex.EncodeToString(sum[:])[:8]
		}
	} else {
		name = domain + "_index"
	}

	return sanitizeFilename(name) + ".html"
}

func sanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '_' || r == '-' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// Read returns the cached content for a URL, or ok=false on a miss.
// Errors reading an existing file are logged and treated as misses.
func (c *Cache) Read(rawURL string) ([]byte, bool) {
	path := filepath.Join(c.dir, c.FilenameFor(rawURL))
	content, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn().Err(err).Str("url", rawURL).Msg("cache read failed, treating as miss")
		}
		return nil, false
	}
	return content, true
}

// Write persists content under the URL's derived filename. Concurrent
// writes to the same filename are serialized; distinct files do not block
// each other.
func (c *Cache) Write(rawURL string, content []byte) {
	name := c.FilenameFor(rawURL)
	lock, _ := c.writeLocks.LoadOrStore(name, &sync.Mutex{})
	mu := lock.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	path := filepath.Join(c.dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		c.logger.Warn().Err(err).Str("url", rawURL).Msg("cache write failed")
	}
}
