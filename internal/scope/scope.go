// Package scope canonicalizes URLs and decides whether a discovered
// link belongs to the crawl.
//
// Normalization collapses equivalent spellings of the same URL to one
// canonical key so the visited set deduplicates correctly: relative
// references are resolved against the page they were found on,
// fragments are dropped, scheme and host are lower-cased, default
// ports are removed, and trailing slashes are made consistent.
package scope

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidURL is returned for malformed URLs and for schemes the
// crawler does not fetch (anything other than http and https).
var ErrInvalidURL = errors.New("invalid or unsupported URL")

// Scope classifies a normalized URL relative to the crawl's seed origin.
type Scope int

const (
	// OutOfScope links are dropped without being enqueued.
	OutOfScope Scope = iota

	// InScope links share the seed's origin and are crawled normally.
	InScope

	// External links have a different origin. They are crawled only
	// when the include-external option is on, and always as leaves.
	External
)

// String returns a human-readable scope name.
func (s Scope) String() string {
	switch s {
	case InScope:
		return "in-scope"
	case External:
		return "external"
	default:
		return "out-of-scope"
	}
}

// Normalize resolves raw against base and returns the canonical form
// of the resulting URL.
//
// base may be empty when raw is already absolute (e.g. the seed URL).
// Non-HTTP(S) schemes, including javascript:, mailto:, tel: and data:,
// fail with ErrInvalidURL.
func Normalize(raw, base string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "#" {
		return "", fmt.Errorf("%w: empty reference", ErrInvalidURL)
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	u := ref
	if base != "" {
		b, err := url.Parse(base)
		if err != nil {
			return "", fmt.Errorf("%w: bad base %q: %v", ErrInvalidURL, base, err)
		}
		u = b.ResolveReference(ref)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	u.Host = strings.ToLower(u.Host)
	u.Host = stripDefaultPort(u.Scheme, u.Host)

	// Fragments never change the fetched content.
	u.Fragment = ""

	// "http://example.com" and "http://example.com/" are the same page,
	// as are "/page" and "/page/". Root keeps its slash; deeper paths
	// lose a trailing one.
	switch {
	case u.Path == "":
		u.Path = "/"
	case u.Path != "/" && strings.HasSuffix(u.Path, "/"):
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	return u.String(), nil
}

// Origin returns the scheme://host[:port] tuple of a normalized URL.
// Origins bound robots policies and in-scope decisions.
func Origin(normalized string) (string, error) {
	u, err := url.Parse(normalized)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q has no origin", ErrInvalidURL, normalized)
	}
	return u.Scheme + "://" + u.Host, nil
}

// Classify decides whether a normalized URL should be crawled.
//
// A URL sharing the seed's origin is InScope. A URL with a different
// origin is External when includeExternal is set, otherwise
// OutOfScope. Callers are expected to have normalized the URL first;
// unparseable input is OutOfScope.
func Classify(normalized, seedOrigin string, includeExternal bool) Scope {
	origin, err := Origin(normalized)
	if err != nil {
		return OutOfScope
	}

	if origin == seedOrigin {
		return InScope
	}
	if includeExternal {
		return External
	}
	return OutOfScope
}

// stripDefaultPort removes :80 from http hosts and :443 from https hosts.
func stripDefaultPort(scheme, host string) string {
	switch {
	case scheme == "http" && strings.HasSuffix(host, ":80"):
		return strings.TrimSuffix(host, ":80")
	case scheme == "https" && strings.HasSuffix(host, ":443"):
		return strings.TrimSuffix(host, ":443")
	}
	return host
}
