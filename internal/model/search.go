package model

// SearchHit is one frame whose cleaned text matched a search term.
type SearchHit struct {
	FrameIndex   uint64    `json:"frame"`
	Timestamp    Timestamp `json:"timestamp"`
	RelativeTime float64   `json:"relative_time"` // seconds since the first frame
	Snippet      string    `json:"snippet"`
}
