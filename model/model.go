package model

// Record is the per-session submission document stored as results.json
// inside a record directory.
type Record struct {
	User  map[string]any `json:"user"`
	Edits Edits          `json:"edits"`
}

// Edits tracks how a record came to be: how many times it was
// (re)submitted, when, and by whom.
type Edits struct {
	Total     int    `json:"total"`
	Last      int64  `json:"last"` // epoch milliseconds
	UserAgent string `json:"user_agent"`
	IP        string `json:"ip"`
}
