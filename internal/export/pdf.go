package export

import (
	"bytes"
	"fmt"
	"io"
	"os"

	gopdf "github.com/VantageDataChat/GoPDF2"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/thywilljoshua/urdu-link/internal/domain"
	"github.com/thywilljoshua/urdu-link/internal/markup"
)

const (
	fontFamily = "urdu"
	ptPerMM    = 72.0 / 25.4
)

// PDFOptions configures the paginated export. The font must cover Urdu
// script, e.g. Noto Naskh Arabic or Noto Nastaliq Urdu.
type PDFOptions struct {
	FontPath string
	FontData []byte
	Geometry Geometry
	// SkipValidation disables the structural check of the produced file.
	SkipValidation bool
}

func (o PDFOptions) font() ([]byte, error) {
	if len(o.FontData) > 0 {
		return o.FontData, nil
	}
	if o.FontPath == "" {
		return nil, domain.ConfigError("PDF export needs a TTF font with Urdu glyphs (set export.pdf_font)", nil)
	}
	b, err := os.ReadFile(o.FontPath)
	if err != nil {
		return nil, domain.ConfigError(fmt.Sprintf("read PDF font %s", o.FontPath), err)
	}
	return b, nil
}

// gopdfMeasurer measures with the document's current font, in millimetres.
type gopdfMeasurer struct {
	pdf *gopdf.GoPdf
}

func (m gopdfMeasurer) TextWidth(text string, fontSize float64) (float64, error) {
	if err := m.pdf.SetFont(fontFamily, "", fontSize); err != nil {
		return 0, err
	}
	w, err := m.pdf.MeasureTextWidth(text)
	if err != nil {
		return 0, err
	}
	return w / ptPerMM, nil
}

// PDF renders blocks as an A4 document, right-aligned, breaking pages by
// the Paginate rules.
func PDF(w io.Writer, blocks []markup.Block, opts PDFOptions) error {
	font, err := opts.font()
	if err != nil {
		return err
	}
	geom := opts.Geometry
	if geom.LineStep == 0 {
		geom = A4()
	}

	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	if err := pdf.AddTTFFontData(fontFamily, font); err != nil {
		return domain.ConfigError("load PDF font", err)
	}

	lay, err := Paginate(blocks, gopdfMeasurer{pdf: pdf}, geom)
	if err != nil {
		return fmt.Errorf("paginate: %w", err)
	}

	page := 0
	for _, ln := range lay.Lines {
		for page < ln.Page {
			pdf.AddPage()
			page++
		}
		if err := pdf.SetFont(fontFamily, "", ln.FontSize); err != nil {
			return fmt.Errorf("set font: %w", err)
		}
		pdf.SetTextColor(ln.Color.R, ln.Color.G, ln.Color.B)

		text := VisualOrder(ln.Text)
		width, err := pdf.MeasureTextWidth(text)
		if err != nil {
			return fmt.Errorf("measure line: %w", err)
		}
		x := ln.X * ptPerMM
		switch ln.Align {
		case AlignRight:
			x -= width
		case AlignCenter:
			x -= width / 2
		}
		// Y is a baseline; gopdf cells hang from their top edge.
		pdf.SetXY(x, ln.Y*ptPerMM-ln.FontSize)
		if err := pdf.Cell(nil, text); err != nil {
			return fmt.Errorf("draw line on page %d: %w", ln.Page, err)
		}
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return fmt.Errorf("write PDF: %w", err)
	}
	if !opts.SkipValidation {
		if err := api.Validate(bytes.NewReader(buf.Bytes()), model.NewDefaultConfiguration()); err != nil {
			return fmt.Errorf("generated PDF failed validation: %w", err)
		}
	}
	_, err = buf.WriteTo(w)
	return err
}
