// Package ingest turns uploaded files into an ordered plan of work units.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/thywilljoshua/urdu-link/internal/domain"
	"github.com/thywilljoshua/urdu-link/internal/raster"
)

const (
	GiB = int64(1) << 30
	MiB = int64(1) << 20

	DefaultMaxTotal   = 2 * GiB
	SingleFileMaxSize = 200 * MiB
)

// Limits bounds what a single run accepts. Zero disables a bound.
type Limits struct {
	MaxTotal   int64 `mapstructure:"max_total"`
	MaxPerFile int64 `mapstructure:"max_per_file"`
}

// DefaultLimits is the 2 GiB aggregate ceiling of the multi-document flow.
func DefaultLimits() Limits {
	return Limits{MaxTotal: DefaultMaxTotal}
}

// SingleFileLimits is the 200 MiB ceiling of the single-document flow.
func SingleFileLimits() Limits {
	return Limits{MaxTotal: SingleFileMaxSize, MaxPerFile: SingleFileMaxSize}
}

// Upload is one file offered for translation. Size is checked before
// the content is read.
type Upload struct {
	Name string
	Size int64

	data []byte
	path string
}

// FromBytes wraps in-memory content.
func FromBytes(name string, data []byte) Upload {
	return Upload{Name: name, Size: int64(len(data)), data: data}
}

// FromFile stats path without reading it.
func FromFile(path string) (Upload, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Upload{}, domain.IOError(fmt.Sprintf("cannot access %s", path), err)
	}
	if info.IsDir() {
		return Upload{}, domain.ValidationError(fmt.Sprintf("%s is a directory", path), nil)
	}
	return Upload{Name: filepath.Base(path), Size: info.Size(), path: path}, nil
}

func (u Upload) read() ([]byte, error) {
	if u.data != nil || u.path == "" {
		return u.data, nil
	}
	b, err := os.ReadFile(u.path)
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("read %s", u.Name), err)
	}
	return b, nil
}

// CheckSize rejects oversized uploads without touching their content.
func CheckSize(uploads []Upload, lim Limits) error {
	var total int64
	for _, u := range uploads {
		if lim.MaxPerFile > 0 && u.Size > lim.MaxPerFile {
			return domain.SizeLimitError(fmt.Sprintf("%s is %s, limit is %s", u.Name, humanSize(u.Size), humanSize(lim.MaxPerFile)))
		}
		total += u.Size
	}
	if lim.MaxTotal > 0 && total > lim.MaxTotal {
		return domain.SizeLimitError(fmt.Sprintf("combined file size %s exceeds %s limit", humanSize(total), humanSize(lim.MaxTotal)))
	}
	return nil
}

func humanSize(n int64) string {
	switch {
	case n >= GiB && n%GiB == 0:
		return fmt.Sprintf("%dGB", n/GiB)
	case n >= GiB:
		return fmt.Sprintf("%.2fGB", float64(n)/float64(GiB))
	case n >= MiB:
		return fmt.Sprintf("%.1fMB", float64(n)/float64(MiB))
	default:
		return fmt.Sprintf("%dB", n)
	}
}

// PageRenderer renders pages of one paged document.
type PageRenderer interface {
	NumPages() int
	RenderPage(ctx context.Context, page int) ([]byte, error)
	Close() error
}

// Planner builds manifests. The function fields default to the real
// PDF readers and may be replaced in tests.
type Planner struct {
	Limits     Limits
	CountPages func(data []byte) (int, error)
	OpenPaged  func(data []byte) (PageRenderer, error)
	Logger     zerolog.Logger
}

// NewPlanner returns a Planner using rsc.io/pdf style counting and go-fitz rendering.
func NewPlanner(lim Limits, opts raster.Options, logger zerolog.Logger) *Planner {
	return &Planner{
		Limits:     lim,
		CountPages: CountPages,
		OpenPaged: func(data []byte) (PageRenderer, error) {
			return raster.Open(data, opts)
		},
		Logger: logger,
	}
}

type source struct {
	name string
	kind FileKind
	data []byte
}

type unitRef struct {
	src  *source
	page int // zero-based, PDF only
}

// Manifest is the full, ordered unit plan of a run. Units of PDF pages carry
// no payload until Materialize renders them.
type Manifest struct {
	Units    []domain.WorkUnit
	Warnings []domain.Warning

	refs      []unitRef
	openPaged func(data []byte) (PageRenderer, error)

	mu   sync.Mutex
	docs map[*source]PageRenderer
}

// Total is the unit count used for progress accounting.
func (m *Manifest) Total() int {
	return len(m.Units)
}

// Plan checks sizes, then pre-scans every file so the total unit count is
// known before any unit is dispatched. Unsupported or unreadable files are
// skipped with a warning.
func (p *Planner) Plan(ctx context.Context, uploads []Upload) (*Manifest, error) {
	if len(uploads) == 0 {
		return nil, domain.ValidationError("no files to translate", nil)
	}
	if err := CheckSize(uploads, p.Limits); err != nil {
		return nil, err
	}

	m := &Manifest{openPaged: p.OpenPaged, docs: make(map[*source]PageRenderer)}
	for _, up := range uploads {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := up.read()
		if err != nil {
			m.warn(up.Name, err)
			continue
		}
		head := data
		if len(head) > 512 {
			head = head[:512]
		}
		kind, mimeType := Detect(up.Name, head)
		src := &source{name: up.Name, kind: kind, data: data}

		switch kind {
		case KindPDF:
			n, err := p.pageCount(data)
			if err != nil {
				m.warn(up.Name, domain.IOError("cannot read PDF", err))
				continue
			}
			if n == 0 {
				m.warn(up.Name, domain.ValidationError("PDF has no pages", nil))
				continue
			}
			for page := 0; page < n; page++ {
				m.add(domain.WorkUnit{
					SourceLabel: PageLabel(up.Name, page+1),
					Kind:        domain.RasterImage,
					MIMEType:    "image/jpeg",
				}, unitRef{src: src, page: page})
			}
		case KindImage:
			m.add(domain.WorkUnit{
				SourceLabel: up.Name,
				Kind:        domain.RasterImage,
				MIMEType:    mimeType,
				Payload:     data,
			}, unitRef{src: src})
		case KindDOCX:
			text, err := ExtractDOCXText(data)
			if err != nil {
				m.warn(up.Name, domain.IOError("cannot read DOCX", err))
				continue
			}
			m.add(domain.WorkUnit{
				SourceLabel: up.Name,
				Kind:        domain.RawText,
				MIMEType:    "text/plain",
				Text:        text,
			}, unitRef{src: src})
			src.data = nil
		default:
			m.warn(up.Name, domain.UnsupportedError(fmt.Sprintf("skipped %s: only PDF, DOCX and images are supported", up.Name)))
		}
	}

	p.Logger.Info().
		Int("files", len(uploads)).
		Int("units", m.Total()).
		Int("warnings", len(m.Warnings)).
		Msg("upload plan ready")
	return m, nil
}

func (p *Planner) pageCount(data []byte) (int, error) {
	n, err := p.CountPages(data)
	if err == nil && n > 0 {
		return n, nil
	}
	if p.OpenPaged == nil {
		return 0, err
	}
	// The renderer is the most tolerant reader; use it as the final fallback.
	doc, openErr := p.OpenPaged(data)
	if openErr != nil {
		if err != nil {
			return 0, err
		}
		return 0, openErr
	}
	defer doc.Close()
	p.Logger.Debug().Err(err).Msg("page count fell back to renderer")
	return doc.NumPages(), nil
}

// PageLabel is the user-visible source of one document page.
func PageLabel(name string, page int) string {
	return fmt.Sprintf("%s (P%d)", name, page)
}

func (m *Manifest) add(u domain.WorkUnit, ref unitRef) {
	u.Index = len(m.Units)
	m.Units = append(m.Units, u)
	m.refs = append(m.refs, ref)
}

func (m *Manifest) warn(source string, err error) {
	m.Warnings = append(m.Warnings, domain.WarningFrom(source, err))
}

// Materialize returns u with its payload filled in, rendering PDF pages on
// demand so only the page being translated is held as an image.
func (m *Manifest) Materialize(ctx context.Context, u domain.WorkUnit) (domain.WorkUnit, error) {
	if u.Index < 0 || u.Index >= len(m.refs) {
		return u, domain.ValidationError(fmt.Sprintf("unit %d is not part of this plan", u.Index), nil)
	}
	ref := m.refs[u.Index]
	if ref.src.kind != KindPDF || len(u.Payload) > 0 {
		return u, nil
	}
	doc, err := m.document(ref.src)
	if err != nil {
		return u, err
	}
	img, err := doc.RenderPage(ctx, ref.page)
	if err != nil {
		return u, err
	}
	u.Payload = img
	return u, nil
}

func (m *Manifest) document(src *source) (PageRenderer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc, ok := m.docs[src]; ok {
		return doc, nil
	}
	if m.openPaged == nil {
		return nil, domain.ConfigError("no page renderer configured", nil)
	}
	doc, err := m.openPaged(src.data)
	if err != nil {
		return nil, err
	}
	m.docs[src] = doc
	return doc, nil
}

// Close releases every document opened by Materialize.
func (m *Manifest) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var firstErr error
	for src, doc := range m.docs {
		if err := doc.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(m.docs, src)
	}
	return firstErr
}
