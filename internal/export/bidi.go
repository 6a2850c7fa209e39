package export

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/bidi"
)

// IsRTL reports whether the first strong directional character of s is
// right-to-left.
func IsRTL(s string) bool {
	rtl, found := firstStrong(s)
	return found && rtl
}

// Dir is the HTML base direction of s: "ltr" only when its first strong
// character is left-to-right, "rtl" otherwise.
func Dir(s string) string {
	if rtl, found := firstStrong(s); found && !rtl {
		return "ltr"
	}
	return "rtl"
}

func firstStrong(s string) (rtl, found bool) {
	for _, r := range s {
		p, _ := bidi.LookupRune(r)
		switch p.Class() {
		case bidi.R, bidi.AL:
			return true, true
		case bidi.L:
			return false, true
		}
	}
	return false, false
}

// VisualOrder reorders a logical-order line into left-to-right drawing
// order for renderers without bidi support. Lines with no RTL text are
// returned unchanged.
func VisualOrder(line string) (out string) {
	if !strings.ContainsFunc(line, isRTLRune) {
		return line
	}
	defer func() {
		if recover() != nil {
			out = line
		}
	}()

	var p bidi.Paragraph
	if _, err := p.SetString(line, bidi.DefaultDirection(bidi.RightToLeft)); err != nil {
		return line
	}
	ord, err := p.Order()
	if err != nil {
		return line
	}
	var b strings.Builder
	for i := 0; i < ord.NumRuns(); i++ {
		run := ord.Run(i)
		s := run.String()
		if run.Direction() == bidi.RightToLeft {
			s = bidi.ReverseString(s)
		}
		b.WriteString(s)
	}
	return b.String()
}

func isRTLRune(r rune) bool {
	if r < 0x0590 || unicode.IsSpace(r) {
		return false
	}
	p, _ := bidi.LookupRune(r)
	c := p.Class()
	return c == bidi.R || c == bidi.AL
}
