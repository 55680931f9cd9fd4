package model

// StateVersion is the crawl state schema version. Bump it whenever the
// persisted layout changes in a way old binaries cannot read.
const StateVersion = 1

// CrawlState is the full serializable snapshot of a crawl: the pending
// frontier, the visited set, the scalar configuration the snapshot was
// taken under, and the results accumulated so far.
//
// The state is owned and mutated exclusively by one crawl controller.
// It is written to the state store after each processed page and on
// pause, and read back at startup to resume an interrupted run.
type CrawlState struct {
	// SeedURL is the normalized start URL. A saved state only resumes
	// a crawl with the same seed.
	SeedURL string `json:"seed_url"`

	// DepthLimit is the maximum crawl depth the snapshot was taken under.
	DepthLimit int `json:"depth_limit"`

	// IncludeExternal records whether external links were followed.
	IncludeExternal bool `json:"include_external"`

	// Frontier holds the pending entries in FIFO order.
	Frontier []FrontierEntry `json:"frontier"`

	// Visited holds every normalized URL already enqueued or fetched,
	// sorted lexicographically so snapshots compare deterministically.
	Visited []string `json:"visited"`

	// Results holds the pages processed so far, in frontier order.
	// Keeping them in the snapshot avoids re-fetching on resume.
	Results []*PageResult `json:"results"`
}

// NewCrawlState returns an empty state for the given seed and limits.
// Slices are non-nil so snapshots round-trip through storage cleanly.
func NewCrawlState(seedURL string, depthLimit int, includeExternal bool) *CrawlState {
	return &CrawlState{
		SeedURL:         seedURL,
		DepthLimit:      depthLimit,
		IncludeExternal: includeExternal,
		Frontier:        make([]FrontierEntry, 0),
		Visited:         make([]string, 0),
		Results:         make([]*PageResult, 0),
	}
}
