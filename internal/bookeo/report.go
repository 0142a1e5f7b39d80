package bookeo

import "github.com/novus-dashboard/novus/internal/booking"

// ChunkStatus tags the outcome of one window.
type ChunkStatus string

const (
	// ChunkSuccess means every page of the window was fetched.
	ChunkSuccess ChunkStatus = "success"
	// ChunkFailed means the window was skipped after exhausting retries.
	ChunkFailed ChunkStatus = "failed"
)

// ChunkOutcome records what happened to one window.
type ChunkOutcome struct {
	Window    Window      `json:"window"`
	Status    ChunkStatus `json:"status"`
	Records   int         `json:"records"`
	Pages     int         `json:"pages"`
	Attempts  int         `json:"attempts"`
	Truncated bool        `json:"truncated,omitempty"`
	Reason    string      `json:"reason,omitempty"`
}

// Result holds the concatenated records of all successful windows and the
// per-window report.
type Result struct {
	Records []booking.Raw  `json:"-"`
	Chunks  []ChunkOutcome `json:"chunks"`
}

// FailedChunks counts windows that were skipped.
func (r Result) FailedChunks() int {
	n := 0
	for _, c := range r.Chunks {
		if c.Status == ChunkFailed {
			n++
		}
	}
	return n
}

// Complete reports whether every window succeeded without truncation.
func (r Result) Complete() bool {
	for _, c := range r.Chunks {
		if c.Status != ChunkSuccess || c.Truncated {
			return false
		}
	}
	return true
}

// Observer receives chunk outcomes, typically to update metrics.
type Observer interface {
	ObserveChunk(outcome ChunkOutcome)
}
