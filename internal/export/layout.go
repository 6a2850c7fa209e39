package export

import (
	"fmt"
	"strings"

	"github.com/thywilljoshua/urdu-link/internal/markup"
)

const PaginatedTitle = "Urdu Book Manuscript"

// Geometry is the page model of the paginated export, in millimetres.
// A line is drawn only at a cursor at or above BreakAt; otherwise the page
// breaks first and the cursor returns to Top.
type Geometry struct {
	PageWidth  float64
	PageHeight float64
	Top        float64
	BreakAt    float64
	LineStep   float64
	BlockGap   float64
	RecordGap  float64
	WrapWidth  float64
	RightX     float64
	CenterX    float64
	TitleSize  float64
	TitleGap   float64
}

// A4 is the default page model.
func A4() Geometry {
	return Geometry{
		PageWidth:  210,
		PageHeight: 297,
		Top:        20,
		BreakAt:    280,
		LineStep:   7,
		BlockGap:   8,
		RecordGap:  5,
		WrapWidth:  180,
		RightX:     190,
		CenterX:    105,
		TitleSize:  22,
		TitleGap:   20,
	}
}

type Align int

const (
	AlignRight Align = iota
	AlignCenter
)

// Line is one positioned line of text. Page is 1-based; Y is the baseline.
type Line struct {
	Page     int
	X, Y     float64
	Align    Align
	Text     string
	FontSize float64
	Color    markup.RGB
	Kind     markup.Kind
	Title    bool
}

type Layout struct {
	Pages int
	Lines []Line
}

// Measurer reports text width in millimetres at a font size.
type Measurer interface {
	TextWidth(text string, fontSize float64) (float64, error)
}

// Paginate lays out blocks top to bottom, record by record, without
// mutating them.
func Paginate(blocks []markup.Block, m Measurer, g Geometry) (Layout, error) {
	lay := Layout{Pages: 1}
	y := g.Top
	lay.Lines = append(lay.Lines, Line{
		Page: 1, X: g.CenterX, Y: y, Align: AlignCenter,
		Text: PaginatedTitle, FontSize: g.TitleSize, Title: true,
	})
	y += g.TitleGap

	for _, group := range markup.GroupByRecord(blocks) {
		for _, b := range group {
			st := markup.StyleFor(b.Kind)
			var lines []string
			for _, para := range blockLines(b) {
				wrapped, err := Wrap(para, g.WrapWidth, st.PDFFontSize, m)
				if err != nil {
					return Layout{}, fmt.Errorf("wrap %s block of %s: %w", b.Kind, b.Source, err)
				}
				lines = append(lines, wrapped...)
			}
			for _, ln := range lines {
				if y > g.BreakAt {
					lay.Pages++
					y = g.Top
				}
				lay.Lines = append(lay.Lines, Line{
					Page: lay.Pages, X: g.RightX, Y: y, Align: AlignRight,
					Text: ln, FontSize: st.PDFFontSize, Color: st.RGB, Kind: b.Kind,
				})
				y += g.LineStep
			}
			y += g.BlockGap
		}
		y += g.RecordGap
	}
	return lay, nil
}

const listBullet = "• "

func blockLines(b markup.Block) []string {
	if b.Kind == markup.ListBlock {
		out := make([]string, len(b.Items))
		for i, it := range b.Items {
			out[i] = listBullet + it
		}
		return out
	}
	return strings.Split(b.Text, "\n")
}

// Wrap breaks text into lines no wider than width, on spaces where possible
// and between characters for words that alone exceed the width.
func Wrap(text string, width, fontSize float64, m Measurer) ([]string, error) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}
	var (
		lines []string
		cur   string
	)
	for _, w := range words {
		candidate := w
		if cur != "" {
			candidate = cur + " " + w
		}
		cw, err := m.TextWidth(candidate, fontSize)
		if err != nil {
			return nil, err
		}
		if cw <= width {
			cur = candidate
			continue
		}
		if cur != "" {
			lines = append(lines, cur)
			cur = ""
		}
		ww, err := m.TextWidth(w, fontSize)
		if err != nil {
			return nil, err
		}
		if ww <= width {
			cur = w
			continue
		}
		pieces, err := breakWord(w, width, fontSize, m)
		if err != nil {
			return nil, err
		}
		lines = append(lines, pieces[:len(pieces)-1]...)
		cur = pieces[len(pieces)-1]
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines, nil
}

func breakWord(w string, width, fontSize float64, m Measurer) ([]string, error) {
	var (
		pieces []string
		cur    []rune
	)
	for _, r := range w {
		next := string(append(cur, r))
		nw, err := m.TextWidth(next, fontSize)
		if err != nil {
			return nil, err
		}
		if nw > width && len(cur) > 0 {
			pieces = append(pieces, string(cur))
			cur = []rune{r}
			continue
		}
		cur = append(cur, r)
	}
	pieces = append(pieces, string(cur))
	return pieces, nil
}
