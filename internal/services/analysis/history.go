package analysis

import "github.com/bobmcallan/chartsage/internal/models"

// DefaultHistorySize is the number of results retained per desk.
const DefaultHistorySize = 10

// history is a bounded newest-first result list. Every add builds a new
// slice so snapshots handed out earlier are never mutated.
type history struct {
	items    []models.AnalysisResult
	capacity int
}

func newHistory(capacity int) *history {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &history{capacity: capacity}
}

func (h *history) add(r models.AnalysisResult) {
	n := len(h.items) + 1
	if n > h.capacity {
		n = h.capacity
	}
	next := make([]models.AnalysisResult, 0, n)
	next = append(next, r)
	next = append(next, h.items[:n-1]...)
	h.items = next
}

func (h *history) snapshot() []models.AnalysisResult {
	out := make([]models.AnalysisResult, len(h.items))
	copy(out, h.items)
	return out
}

func (h *history) len() int {
	return len(h.items)
}
