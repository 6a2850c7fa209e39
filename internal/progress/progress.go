// Package progress derives the user-facing progress of a translation run.
package progress

import (
	"fmt"
	"math"
)

const (
	StatusScanning = "Scanning uploads..."
	StatusSuccess  = "Success! Your manuscript is ready."
)

// Snapshot is the progress published after each completed unit.
type Snapshot struct {
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Percent   int    `json:"percent"`
	Status    string `json:"status"`
}

// Tracker is a value type; every method returns the updated copy.
type Tracker struct {
	completed int
	total     int
	percent   int
	status    string
}

func New(total int) Tracker {
	if total < 0 {
		total = 0
	}
	return Tracker{total: total, status: StatusScanning}
}

// Complete counts one finished unit (translated or skipped).
func (t Tracker) Complete(source string) Tracker {
	if t.completed < t.total {
		t.completed++
	}
	t.status = TranslatingStatus(source)
	t.percent = max(t.percent, Percent(t.completed, t.total))
	return t
}

// Finish marks the run done; percent is forced to 100.
func (t Tracker) Finish() Tracker {
	t.completed = t.total
	t.percent = 100
	t.status = StatusSuccess
	return t
}

func (t Tracker) Snapshot() Snapshot {
	return Snapshot{
		Completed: t.completed,
		Total:     t.total,
		Percent:   t.percent,
		Status:    t.status,
	}
}

func (t Tracker) Done() bool {
	return t.completed >= t.total
}

// Percent is round(100*done/total); an empty run counts as complete.
func Percent(done, total int) int {
	if total <= 0 {
		return 100
	}
	if done >= total {
		return 100
	}
	if done <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(done) / float64(total)))
}

func TranslatingStatus(source string) string {
	return fmt.Sprintf("Translating %s...", source)
}
