// Package convert runs a whole translation: plan the uploads, dispatch
// every unit, collect the records and optionally write the manuscripts.
package convert

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/thywilljoshua/urdu-link/internal/dispatch"
	"github.com/thywilljoshua/urdu-link/internal/domain"
	"github.com/thywilljoshua/urdu-link/internal/export"
	"github.com/thywilljoshua/urdu-link/internal/ingest"
	"github.com/thywilljoshua/urdu-link/internal/markup"
	"github.com/thywilljoshua/urdu-link/internal/session"
	"github.com/thywilljoshua/urdu-link/internal/store"
)

// Job is a run started in the background.
type Job struct {
	ID string

	done chan struct{}
	res  *Result
	err  error
}

// Done is closed when the run has ended.
func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the run ends.
func (j *Job) Wait() (*Result, error) {
	<-j.done
	return j.res, j.err
}

// Run translates uploads end to end and waits for the result.
func Run(ctx context.Context, uploads []ingest.Upload, cfg Config) (*Result, error) {
	job, err := Start(ctx, uploads, cfg)
	if err != nil {
		return nil, err
	}
	return job.Wait()
}

// Start rejects an oversized batch before the session changes, claims the
// session and continues in the background. Unit failures become warnings;
// the job error is reserved for cancellation, configuration and export
// failures. On cancellation the partial result is kept alongside the error.
func Start(ctx context.Context, uploads []ingest.Upload, cfg Config) (*Job, error) {
	if err := ingest.CheckSize(uploads, cfg.Limits); err != nil {
		return nil, err
	}
	if cfg.Session == nil {
		cfg.Session = session.New()
	}
	id, err := cfg.Session.Begin()
	if err != nil {
		return nil, err
	}
	job := &Job{ID: id, done: make(chan struct{})}
	go func() {
		defer close(job.done)
		job.res, job.err = execute(ctx, id, uploads, cfg)
	}()
	return job, nil
}

func execute(ctx context.Context, id string, uploads []ingest.Upload, cfg Config) (*Result, error) {
	sess := cfg.Session
	log := cfg.Logger.With().Str("session", id).Logger()
	started := time.Now()

	res, runErr := translate(ctx, uploads, cfg, sess)
	if runErr != nil {
		sess.RunFailed(runErr)
		log.Error().Err(runErr).Msg("translation run failed")
	} else {
		sess.RunFinished()
	}

	snap := sess.Snapshot()
	if res == nil {
		res = &Result{}
	}
	res.SessionID = id
	res.Progress = snap.Progress
	res.Warnings = snap.Warnings

	if cfg.Runs != nil {
		run := store.Run{
			ID:         id,
			Status:     string(snap.Status),
			Quality:    cfg.Quality,
			TotalUnits: snap.Progress.Total,
			Records:    len(res.Records),
			Warnings:   len(res.Warnings),
			Error:      snap.Error,
			StartedAt:  started,
			FinishedAt: time.Now(),
		}
		// a canceled run is still recorded
		if err := cfg.Runs.RecordRun(context.WithoutCancel(ctx), run); err != nil {
			log.Warn().Err(err).Msg("could not record run")
		}
	}
	if runErr != nil {
		return res, runErr
	}

	if cfg.OutDir != "" && len(res.Records) > 0 {
		files, err := WriteExports(res.Records, cfg.OutDir, cfg.FilePrefix, cfg.PDF)
		res.Files = files
		if err != nil {
			return res, err
		}
	}
	log.Info().
		Int("records", len(res.Records)).
		Int("warnings", len(res.Warnings)).
		Int("cached", res.Cached).
		Dur("elapsed", time.Since(started)).
		Msg(snap.Progress.Status)
	return res, nil
}

func translate(ctx context.Context, uploads []ingest.Upload, cfg Config, sess *session.Session) (*Result, error) {
	planner := cfg.Planner
	if planner == nil {
		planner = ingest.NewPlanner(cfg.Limits, cfg.Raster, cfg.Logger)
	}
	manifest, err := planner.Plan(ctx, uploads)
	if err != nil {
		return nil, err
	}
	defer manifest.Close()
	sess.UnitsDiscovered(manifest.Total(), manifest.Warnings)

	d := &dispatch.Dispatcher{
		Translator:  cfg.Translator,
		Quality:     cfg.Quality,
		Concurrency: cfg.Concurrency,
		Cache:       cfg.Cache,
		Logger:      cfg.Logger,
	}
	out, err := d.Run(ctx, manifest.Units, manifest, sess)
	return &Result{Records: out.Records, Cached: out.Cached}, err
}

// WriteExports writes the flowed document and, when a font is configured,
// the paginated one into dir. It returns the paths written.
func WriteExports(records []domain.TranslationRecord, dir, prefix string, pdfOpts export.PDFOptions) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, domain.IOError(fmt.Sprintf("create %s", dir), err)
	}
	blocks := markup.Normalize(records)

	var files []string
	var buf bytes.Buffer
	if err := export.Flow(&buf, blocks); err != nil {
		return nil, err
	}
	docPath := filepath.Join(dir, export.FileName(prefix, ".doc"))
	if err := os.WriteFile(docPath, buf.Bytes(), 0o644); err != nil {
		return nil, domain.IOError(fmt.Sprintf("write %s", docPath), err)
	}
	files = append(files, docPath)

	if pdfOpts.FontPath == "" && len(pdfOpts.FontData) == 0 {
		return files, nil
	}
	buf.Reset()
	if err := export.PDF(&buf, blocks, pdfOpts); err != nil {
		return files, err
	}
	pdfPath := filepath.Join(dir, export.FileName(prefix, ".pdf"))
	if err := os.WriteFile(pdfPath, buf.Bytes(), 0o644); err != nil {
		return files, domain.IOError(fmt.Sprintf("write %s", pdfPath), err)
	}
	return append(files, pdfPath), nil
}
