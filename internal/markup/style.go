package markup

// RGB is an 8-bit color for renderers that do not take hex strings.
type RGB struct {
	R, G, B uint8
}

// Style is how one block kind looks in every output.
type Style struct {
	Color        string  // CSS hex color
	RGB          RGB     // same color for the PDF renderer
	FontSizePt   float64 // flowed document
	PDFFontSize  float64 // paginated document
	Bold         bool
	LineHeight   float64
	MarginBottom float64 // pt, flowed document
}

var (
	accent  = Style{Color: "#1e40af", RGB: RGB{30, 64, 175}}
	neutral = Style{Color: "#000000", RGB: RGB{0, 0, 0}}
)

// Styles is the single style table keyed by block kind. Only Heading1 uses
// the accent color.
var Styles = map[Kind]Style{
	Heading1:  with(accent, 26, 18, true, 1.4, 20),
	Heading2:  with(neutral, 20, 15, true, 1.4, 15),
	ListBlock: with(neutral, 15, 11, false, 2.0, 8),
	Paragraph: with(neutral, 15, 12, false, 2.2, 15),
}

func with(base Style, htmlSize, pdfSize float64, bold bool, lineHeight, margin float64) Style {
	base.FontSizePt = htmlSize
	base.PDFFontSize = pdfSize
	base.Bold = bold
	base.LineHeight = lineHeight
	base.MarginBottom = margin
	return base
}

func StyleFor(k Kind) Style {
	if s, ok := Styles[k]; ok {
		return s
	}
	return Styles[Paragraph]
}
