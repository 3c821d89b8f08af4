package progress

// Progress carries the run counters. Percentage is derived from the
// stored counters, never from an entry scan.
type Progress struct {
	Total        int     `json:"total"`
	Completed    int     `json:"completed"`
	Failed       int     `json:"failed"`
	Skipped      int     `json:"skipped"`
	CurrentIndex int     `json:"current_index"`
	Percentage   float64 `json:"percentage"`
}

// EntryUpdate describes the single keyword entry that just transitioned.
type EntryUpdate struct {
	Keyword         string `json:"keyword"`
	Position        int    `json:"position"`
	Status          string `json:"status"`
	ListingsSeen    int    `json:"listings_seen"`
	ListingsNew     int    `json:"listings_new"`
	ListingsUpdated int    `json:"listings_updated"`
	ErrorKind       string `json:"error_kind,omitempty"`
}

// Snapshot is the incremental payload published after every keyword
// transition. An observer receiving snapshots in order reconstructs the
// full run state without the publisher resending the keyword list.
type Snapshot struct {
	RunID    string       `json:"run_id"`
	Status   string       `json:"status"`
	Progress Progress     `json:"progress"`
	Entry    *EntryUpdate `json:"entry,omitempty"`
}
