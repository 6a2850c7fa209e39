package convert

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/thywilljoshua/urdu-link/internal/ai"
	"github.com/thywilljoshua/urdu-link/internal/dispatch"
	"github.com/thywilljoshua/urdu-link/internal/domain"
	"github.com/thywilljoshua/urdu-link/internal/export"
	"github.com/thywilljoshua/urdu-link/internal/ingest"
	"github.com/thywilljoshua/urdu-link/internal/progress"
	"github.com/thywilljoshua/urdu-link/internal/raster"
	"github.com/thywilljoshua/urdu-link/internal/session"
	"github.com/thywilljoshua/urdu-link/internal/store"
)

// RunRecorder keeps a history of finished runs.
type RunRecorder interface {
	RecordRun(ctx context.Context, r store.Run) error
}

type Config struct {
	// OutDir receives both exports when set; empty writes nothing.
	OutDir     string
	FilePrefix string
	PDF        export.PDFOptions

	Quality     domain.Quality
	Concurrency int
	Limits      ingest.Limits
	Raster      raster.Options

	Translator ai.Translator
	Cache      dispatch.Cache
	Runs       RunRecorder
	// Session receives every state change; a fresh one is used when nil.
	Session *session.Session
	// Planner overrides the default PDF/image planner.
	Planner *ingest.Planner
	Logger  zerolog.Logger
}

type Result struct {
	SessionID string                     `json:"session_id"`
	Records   []domain.TranslationRecord `json:"records"`
	Warnings  []domain.Warning           `json:"warnings"`
	Progress  progress.Snapshot          `json:"progress"`
	Cached    int                        `json:"cached"`
	Files     []string                   `json:"files,omitempty"`
}
