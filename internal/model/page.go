package model

// PageResult is the outcome of fetching one frontier entry and running
// content extraction over the response.
//
// A result is produced for every popped entry, including failed
// fetches: FetchErr carries the failure and the content fields stay
// empty. Results are appended in frontier order so the assembled
// document is deterministic regardless of fetch completion order.
type PageResult struct {
	// URL is the normalized URL that was fetched.
	URL string `json:"url"`

	// Depth is the crawl depth of the page.
	Depth int `json:"depth"`

	// External mirrors FrontierEntry.External.
	External bool `json:"external,omitempty"`

	// StatusCode is the HTTP status code, or 0 when the request never
	// completed.
	StatusCode int `json:"status_code,omitempty"`

	// Title is the page title from the <title> tag.
	Title string `json:"title,omitempty"`

	// Text is the extracted, sanitized page text.
	Text string `json:"text,omitempty"`

	// ImageURL is the absolute URL of the page's representative image,
	// when one was discovered.
	ImageURL string `json:"image_url,omitempty"`

	// Image holds the display-ready JPEG bytes of the representative
	// image. Nil when no image was found, the image type was filtered
	// out, or conversion failed.
	Image []byte `json:"image,omitempty"`

	// Links are the raw discovered link values in document order,
	// before normalization and scope filtering.
	Links []string `json:"links,omitempty"`

	// FetchErr describes why the fetch failed. Empty on success.
	FetchErr string `json:"fetch_err,omitempty"`
}

// Failed reports whether the page fetch failed.
func (p *PageResult) Failed() bool {
	return p.FetchErr != ""
}
