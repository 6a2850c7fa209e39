// Package raster renders document pages to JPEG images for the vision model.
package raster

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"sync"

	"github.com/gen2brain/go-fitz"

	"github.com/thywilljoshua/urdu-link/internal/domain"
)

const (
	DefaultScale   = 1.5
	DefaultQuality = 80

	// baseDPI is the PDF user-space resolution; scale multiplies it.
	baseDPI = 72.0
)

// Options controls page rendering.
type Options struct {
	Scale   float64 `mapstructure:"scale"`
	Quality int     `mapstructure:"quality"`
}

// DefaultOptions returns the 1.5x / quality 80 settings used for OCR input.
func DefaultOptions() Options {
	return Options{Scale: DefaultScale, Quality: DefaultQuality}
}

// Validate checks scale and JPEG quality bounds.
func (o Options) Validate() error {
	if o.Scale <= 0 || o.Scale > 8 {
		return domain.ValidationError(fmt.Sprintf("raster scale must be in (0, 8], got %v", o.Scale), nil)
	}
	if o.Quality < 1 || o.Quality > 100 {
		return domain.ValidationError(fmt.Sprintf("jpeg quality must be between 1 and 100, got %d", o.Quality), nil)
	}
	return nil
}

// DPI is the render resolution for the configured scale.
func (o Options) DPI() float64 {
	return baseDPI * o.Scale
}

// Document is an open paged document. Rendering is serialized because the
// underlying MuPDF context is not safe for concurrent use.
type Document struct {
	mu   sync.Mutex
	doc  *fitz.Document
	opts Options
}

// Open parses a PDF held in memory.
func Open(data []byte, opts Options) (*Document, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, domain.IOError("failed to open document", err)
	}
	return &Document{doc: doc, opts: opts}, nil
}

// NumPages returns the page count.
func (d *Document) NumPages() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.NumPage()
}

// RenderPage renders the zero-based page and returns JPEG bytes. The bitmap
// is released as soon as it is encoded; nothing is kept between pages.
func (d *Document) RenderPage(ctx context.Context, page int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if page < 0 || page >= d.doc.NumPage() {
		return nil, domain.ValidationError(fmt.Sprintf("page %d out of range", page+1), nil)
	}
	img, err := d.doc.ImageDPI(page, d.opts.DPI())
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("failed to render page %d", page+1), err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: d.opts.Quality}); err != nil {
		return nil, domain.IOError(fmt.Sprintf("failed to encode page %d as JPEG", page+1), err)
	}
	return buf.Bytes(), nil
}

// Close releases the document.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return nil
	}
	err := d.doc.Close()
	d.doc = nil
	return err
}
