package jobs

// Record is a single normalized search hit. URL is the identity used for
// deduplication; Provider and Keyword record where the hit came from.
type Record struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Snippet  string `json:"snippet"`
	Provider string `json:"provider"`
	Keyword  string `json:"keyword"`
}

// Posting is a deduplicated Record annotated for rendering.
type Posting struct {
	Record
	// Tags lists the configured keywords mentioned in the title or snippet.
	Tags []string `json:"tags,omitempty"`
	// New is true when the URL has not been archived by a previous run.
	New bool `json:"new"`
}
