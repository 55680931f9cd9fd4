package model

// FrontierEntry is one unit of pending crawl work: a normalized URL
// paired with the depth at which it was discovered.
//
// Entries are created when a link is found in scope and not yet
// visited, and consumed exactly once when popped for fetching.
type FrontierEntry struct {
	// URL is the normalized URL to fetch.
	URL string `json:"url"`

	// Depth is the distance from the seed. The seed itself is depth 0.
	Depth int `json:"depth"`

	// Origin is the scheme://host[:port] tuple of URL. Cached here so
	// policy decisions don't re-parse the URL.
	Origin string `json:"origin"`

	// External marks an entry whose origin differs from the seed's.
	// External pages are leaves: their outbound links are never
	// expanded, which bounds cross-site crawl blow-up.
	External bool `json:"external,omitempty"`
}
