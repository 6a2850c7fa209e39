// Package session holds the state of the single active translation run.
package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thywilljoshua/urdu-link/internal/domain"
	"github.com/thywilljoshua/urdu-link/internal/progress"
)

type Status string

const (
	StatusIdle       Status = "idle"
	StatusProcessing Status = "processing"
	StatusFinished   Status = "finished"
	StatusFailed     Status = "failed"
)

// Snapshot is a copy of the session state safe to hand to callers.
type Snapshot struct {
	ID         string                     `json:"id"`
	Status     Status                     `json:"status"`
	Progress   progress.Snapshot          `json:"progress"`
	Records    []domain.TranslationRecord `json:"records"`
	Warnings   []domain.Warning           `json:"warnings"`
	Error      string                     `json:"error,omitempty"`
	StartedAt  time.Time                  `json:"started_at"`
	FinishedAt time.Time                  `json:"finished_at"`
}

// Session is the explicit state of a translation run. Every change goes
// through one of the event methods; at most one run is processing at a time.
type Session struct {
	mu sync.Mutex
	// pub is held from taking a progress snapshot until its callback
	// returns, so subscribers see snapshots in the order they were taken.
	pub sync.Mutex

	id       string
	status   Status
	tracker  progress.Tracker
	records  []domain.TranslationRecord
	warnings []domain.Warning
	err      error
	started  time.Time
	finished time.Time

	onProgress func(progress.Snapshot)
	now        func() time.Time
}

func New() *Session {
	return &Session{status: StatusIdle, now: time.Now}
}

// OnProgress registers a callback invoked after every progress change.
// Callbacks run outside the state lock, one at a time and in order; they
// must not call back into the session's event methods.
func (s *Session) OnProgress(fn func(progress.Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onProgress = fn
}

// Begin starts a new run and clears the previous results. It fails with
// ErrSessionBusy while another run is processing.
func (s *Session) Begin() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusProcessing {
		return "", domain.ErrSessionBusy
	}
	s.id = uuid.NewString()
	s.status = StatusProcessing
	s.tracker = progress.New(0)
	s.records = nil
	s.warnings = nil
	s.err = nil
	s.started = s.now()
	s.finished = time.Time{}
	return s.id, nil
}

// UnitsDiscovered records the total unit count and any planning warnings.
func (s *Session) UnitsDiscovered(total int, warnings []domain.Warning) {
	s.pub.Lock()
	defer s.pub.Unlock()
	s.mu.Lock()
	if s.status != StatusProcessing {
		s.mu.Unlock()
		return
	}
	s.tracker = progress.New(total)
	s.warnings = append(s.warnings, warnings...)
	snap, fn := s.tracker.Snapshot(), s.onProgress
	s.mu.Unlock()
	notify(fn, snap)
}

// UnitCompleted counts one unit. A nil record with a warning is a skipped unit.
func (s *Session) UnitCompleted(source string, rec *domain.TranslationRecord, warn *domain.Warning) {
	s.pub.Lock()
	defer s.pub.Unlock()
	s.mu.Lock()
	if s.status != StatusProcessing {
		s.mu.Unlock()
		return
	}
	if rec != nil {
		s.records = append(s.records, *rec)
	}
	if warn != nil {
		s.warnings = append(s.warnings, *warn)
	}
	s.tracker = s.tracker.Complete(source)
	snap, fn := s.tracker.Snapshot(), s.onProgress
	s.mu.Unlock()
	notify(fn, snap)
}

// RunFailed ends the run in the failed state; records gathered so far are kept.
func (s *Session) RunFailed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusProcessing {
		return
	}
	s.status = StatusFailed
	s.err = err
	s.finished = s.now()
}

// RunFinished ends the run successfully at 100%.
func (s *Session) RunFinished() {
	s.pub.Lock()
	defer s.pub.Unlock()
	s.mu.Lock()
	if s.status != StatusProcessing {
		s.mu.Unlock()
		return
	}
	s.status = StatusFinished
	s.tracker = s.tracker.Finish()
	s.finished = s.now()
	snap, fn := s.tracker.Snapshot(), s.onProgress
	s.mu.Unlock()
	notify(fn, snap)
}

// Reset returns to idle. It fails while a run is processing.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusProcessing {
		return domain.ErrSessionBusy
	}
	s.id = ""
	s.status = StatusIdle
	s.tracker = progress.New(0)
	s.records = nil
	s.warnings = nil
	s.err = nil
	return nil
}

func (s *Session) Processing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status == StatusProcessing
}

// Snapshot copies the state with records in unit order.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]domain.TranslationRecord, len(s.records))
	copy(records, s.records)
	sort.SliceStable(records, func(i, j int) bool { return records[i].Index < records[j].Index })

	warnings := make([]domain.Warning, len(s.warnings))
	copy(warnings, s.warnings)

	snap := Snapshot{
		ID:         s.id,
		Status:     s.status,
		Progress:   s.tracker.Snapshot(),
		Records:    records,
		Warnings:   warnings,
		StartedAt:  s.started,
		FinishedAt: s.finished,
	}
	if s.err != nil {
		snap.Error = s.err.Error()
	}
	return snap
}

func notify(fn func(progress.Snapshot), snap progress.Snapshot) {
	if fn != nil {
		fn(snap)
	}
}
