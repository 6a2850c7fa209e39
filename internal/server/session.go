package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/thywilljoshua/urdu-link/internal/convert"
	"github.com/thywilljoshua/urdu-link/internal/domain"
	"github.com/thywilljoshua/urdu-link/internal/export"
	"github.com/thywilljoshua/urdu-link/internal/ingest"
	"github.com/thywilljoshua/urdu-link/internal/markup"
	"github.com/thywilljoshua/urdu-link/internal/progress"
	"github.com/thywilljoshua/urdu-link/internal/session"
)

// formOverhead allows for multipart boundaries and form fields on top of
// the file bytes.
const formOverhead = 1 << 20

// sessionView is the session without its records.
type sessionView struct {
	ID          string            `json:"id,omitempty"`
	Status      session.Status    `json:"status"`
	Progress    progress.Snapshot `json:"progress"`
	Warnings    []domain.Warning  `json:"warnings"`
	Error       string            `json:"error,omitempty"`
	RecordCount int               `json:"record_count"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	FinishedAt  *time.Time        `json:"finished_at,omitempty"`
}

func viewOf(snap session.Snapshot) sessionView {
	v := sessionView{
		ID:          snap.ID,
		Status:      snap.Status,
		Progress:    snap.Progress,
		Warnings:    snap.Warnings,
		Error:       snap.Error,
		RecordCount: len(snap.Records),
	}
	if !snap.StartedAt.IsZero() {
		v.StartedAt = &snap.StartedAt
	}
	if !snap.FinishedAt.IsZero() {
		v.FinishedAt = &snap.FinishedAt
	}
	return v
}

// handleTranslate handles POST /api/translate with multipart "files" and an
// optional "quality" field. The run continues after the response.
func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if s.session.Processing() {
		s.writeError(w, domain.ErrSessionBusy)
		return
	}
	cfg := s.run
	if lim := cfg.Limits.MaxTotal; lim > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, lim+formOverhead)
	}
	if err := r.ParseMultipartForm(DefaultMultipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.writeError(w, domain.SizeLimitError(fmt.Sprintf("upload exceeds the %d byte limit", cfg.Limits.MaxTotal)))
			return
		}
		s.writeError(w, domain.ValidationError("expected a multipart form", err))
		return
	}
	// an absent tier means the configured one
	q := cfg.Quality
	if v := r.FormValue("quality"); v != "" {
		parsed, err := domain.ParseQuality(v)
		if err != nil {
			s.writeError(w, err)
			return
		}
		q = parsed
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["files[]"]
	}
	if len(headers) == 0 {
		s.writeError(w, domain.ValidationError("no files uploaded", nil))
		return
	}

	// sizes are declared by the form; check them before reading anything
	declared := make([]ingest.Upload, len(headers))
	for i, fh := range headers {
		declared[i] = ingest.Upload{Name: fh.Filename, Size: fh.Size}
	}
	if err := ingest.CheckSize(declared, cfg.Limits); err != nil {
		s.writeError(w, err)
		return
	}

	uploads := make([]ingest.Upload, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			s.writeError(w, domain.IOError(fmt.Sprintf("read %s", fh.Filename), err))
			return
		}
		uploads = append(uploads, ingest.FromBytes(fh.Filename, data))
	}

	cfg.Quality = q
	cfg.Session = s.session
	cfg.Translator = s.ai
	cfg.OutDir = ""

	job, err := convert.Start(s.baseCtx, uploads, cfg)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.mu.Lock()
	s.job = job
	s.mu.Unlock()

	s.log.Info().Str("session", job.ID).Int("files", len(uploads)).Str("quality", string(q)).Msg("translation started")
	writeJSON(w, http.StatusAccepted, viewOf(s.session.Snapshot()))
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewOf(s.session.Snapshot()))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Reset(); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRecords returns the records in unit order. Each carries the raw
// translated markup for copying.
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	records := filterSource(s.session.Snapshot().Records, r.URL.Query().Get("source"))
	writeJSON(w, http.StatusOK, records)
}

// handlePreview renders the styled sections, optionally for one source.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	records := filterSource(s.session.Snapshot().Records, r.URL.Query().Get("source"))
	var buf bytes.Buffer
	if err := export.Preview(&buf, markup.Normalize(records)); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func filterSource(records []domain.TranslationRecord, source string) []domain.TranslationRecord {
	if source == "" {
		return records
	}
	out := make([]domain.TranslationRecord, 0, 1)
	for _, rec := range records {
		if rec.Source == source {
			out = append(out, rec)
		}
	}
	return out
}

// exportable returns the records of an ended run, or an error while a run
// is still going or nothing was translated.
func (s *Server) exportable() ([]domain.TranslationRecord, error) {
	snap := s.session.Snapshot()
	if snap.Status == session.StatusProcessing {
		return nil, domain.ErrSessionBusy
	}
	if len(snap.Records) == 0 {
		return nil, domain.ValidationError("nothing to export: no translated records", nil)
	}
	return snap.Records, nil
}

func (s *Server) handleExportDoc(w http.ResponseWriter, r *http.Request) {
	records, err := s.exportable()
	if err != nil {
		s.writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := export.Flow(&buf, markup.Normalize(records)); err != nil {
		s.writeError(w, err)
		return
	}
	attach(w, export.DocMIMEType, export.DocFileName)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	records, err := s.exportable()
	if err != nil {
		s.writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := export.PDF(&buf, markup.Normalize(records), s.run.PDF); err != nil {
		s.writeError(w, err)
		return
	}
	attach(w, export.PDFMIMEType, export.PDFFileName)
	_, _ = buf.WriteTo(w)
}

func attach(w http.ResponseWriter, mimeType, name string) {
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
}
