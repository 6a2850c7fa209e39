// Package server exposes translation runs, exports and the assistant
// features over HTTP.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/thywilljoshua/urdu-link/internal/ai"
	"github.com/thywilljoshua/urdu-link/internal/convert"
	"github.com/thywilljoshua/urdu-link/internal/domain"
	"github.com/thywilljoshua/urdu-link/internal/session"
)

// DefaultMultipartMemory is how much of a multipart body is kept in memory
// before spilling to temporary files.
const DefaultMultipartMemory = 32 << 20

type Options struct {
	AI      ai.Service
	Session *session.Session
	// Run is the template for every translation run. Session and
	// Translator are filled in by the server; Run.Quality is the tier used
	// when a request names none.
	Run            convert.Config
	RequestTimeout time.Duration
	Logger         zerolog.Logger
}

type Server struct {
	ai      ai.Service
	session *session.Session
	run     convert.Config
	timeout time.Duration
	log     zerolog.Logger

	// runs outlive the request that started them
	baseCtx context.Context
	cancel  context.CancelFunc

	mu  sync.Mutex
	job *convert.Job
}

func New(opts Options) *Server {
	if opts.AI == nil {
		opts.AI = ai.Noop{}
	}
	if opts.Session == nil {
		opts.Session = session.New()
	}
	if opts.Run.Quality == "" {
		opts.Run.Quality = domain.QualityFast
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		ai:      opts.AI,
		session: opts.Session,
		run:     opts.Run,
		timeout: opts.RequestTimeout,
		log:     opts.Logger,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Router builds the HTTP handler with all routes configured.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/translate", s.handleTranslate)

		r.Route("/session", func(r chi.Router) {
			r.Get("/", s.handleSession)
			r.Delete("/", s.handleReset)
			r.Get("/records", s.handleRecords)
			r.Get("/preview", s.handlePreview)
			r.Get("/export/doc", s.handleExportDoc)
			r.Get("/export/pdf", s.handleExportPDF)
		})

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(s.timeout))
			r.Post("/images/generate", s.handleGenerateImage)
			r.Post("/images/analyze", s.handleAnalyzeImage)
			r.Post("/videos/analyze", s.handleAnalyzeVideo)
			r.Post("/chat", s.handleChat)
			r.Post("/fast", s.handleFast)
		})
	})
	return r
}

// Shutdown cancels an active run and waits for it to stop.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	s.mu.Lock()
	job := s.job
	s.mu.Unlock()
	if job == nil {
		return nil
	}
	select {
	case <-job.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info().
				Str("request_id", chimiddleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", time.Since(start)).
				Msg("request")
		})
	}
}
