// Package pdftest builds small PDF fixtures for tests.
package pdftest

import (
	"bytes"
	"os"
	"testing"

	gopdf "github.com/VantageDataChat/GoPDF2"
	"github.com/stretchr/testify/require"
)

// FontEnv names a TTF to use instead of the system fonts below.
const FontEnv = "URDULINK_TEST_FONT"

var fontPaths = []string{
	"/usr/share/fonts/truetype/noto/NotoNaskhArabic-Regular.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/TTF/DejaVuSans.ttf",
	"/Library/Fonts/Arial Unicode.ttf",
}

// Document returns an A4 PDF with the given number of pages. Each page
// carries different line art so rendered pages are distinguishable.
func Document(t testing.TB, pages int) []byte {
	t.Helper()
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	for i := 0; i < pages; i++ {
		pdf.AddPage()
		pdf.SetLineWidth(4)
		for j := 0; j <= i; j++ {
			y := 80 + float64(j)*60
			pdf.Line(60, y, 520, y)
		}
		pdf.Line(60+float64(i)*40, 400, 60+float64(i)*40, 760)
	}
	var buf bytes.Buffer
	_, err := pdf.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

// Font returns a TrueType font for tests that draw text, skipping the test
// when none is installed.
func Font(t testing.TB) []byte {
	t.Helper()
	paths := fontPaths
	if p := os.Getenv(FontEnv); p != "" {
		paths = append([]string{p}, paths...)
	}
	for _, p := range paths {
		if b, err := os.ReadFile(p); err == nil {
			return b
		}
	}
	t.Skipf("no TTF font found; set %s to run", FontEnv)
	return nil
}
