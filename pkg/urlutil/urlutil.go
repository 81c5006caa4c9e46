package urlutil

import (
	"net/url"
	"strings"
)

// Normalize canonicalizes a URL for use as a graph and dedup key: the
// fragment is stripped and an empty path is rewritten to "/", leaving
// scheme, authority, path and query intact. Normalization is idempotent.
// Unparseable input is returned unchanged; validity is a separate check.
func Normalize(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

// IsCrawlable reports whether a URL carries both a scheme and an
// authority. URLs failing this check are silently dropped by the crawler.
func IsCrawlable(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

// Domain extracts the authority component, used as the rate-limiting and
// domain-restriction key. Returns "" for unparseable input.
func Domain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}

// Resolve turns href into an absolute URL relative to base. If either
// side fails to parse, href is returned as-is.
func Resolve(base, href string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	refURL, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(refURL).String()
}

// WithScheme prefixes bare-host seeds with https so "example.com" is
// accepted on the command line.
func WithScheme(seed string) string {
	if strings.Contains(seed, "://") {
		return seed
	}
	return "https://" + seed
}
