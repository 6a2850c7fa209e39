package export

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/thywilljoshua/urdu-link/internal/markup"
)

const (
	FlowTitle = "Unified Urdu Manuscript"
	bodyFont  = "'Arial Unicode MS', 'Noto Nastaliq Urdu', serif"
	utf8BOM   = "\ufeff"
)

type flowBlock struct {
	Tag   string
	Dir   string
	Style template.CSS
	Lines []string
	Items []string
}

type flowSection struct {
	Source string
	Dir    string
	Blocks []flowBlock
}

const sectionsTmpl = `{{define "lines"}}{{range $i, $l := .}}{{if $i}}<br/>{{end}}{{$l}}{{end}}{{end}}
{{- define "sections"}}{{range .}}<div dir="{{.Dir}}" data-source="{{.Source}}" style="margin-bottom: 40pt;">
{{- range .Blocks}}
{{- if eq .Tag "h1"}}<h1 dir="{{.Dir}}" style="{{.Style}}">{{template "lines" .Lines}}</h1>
{{- else if eq .Tag "h2"}}<h2 dir="{{.Dir}}" style="{{.Style}}">{{template "lines" .Lines}}</h2>
{{- else if eq .Tag "ul"}}<ul dir="{{.Dir}}" style="{{.Style}}">{{range .Items}}<li style="text-align: right;">{{.}}</li>{{end}}</ul>
{{- else}}<p dir="{{.Dir}}" style="{{.Style}}">{{template "lines" .Lines}}</p>
{{- end}}{{end}}</div>
{{end}}{{end}}`

const documentTmpl = `<html xmlns:o='urn:schemas-microsoft-com:office:office' xmlns:w='urn:schemas-microsoft-com:office:word' xmlns='http://www.w3.org/TR/REC-html40'>
<head><meta charset='utf-8'><title>{{.Title}}</title></head>
<body dir="rtl" style="{{.BodyStyle}}">
<h1 style="text-align: center; font-size: 32pt; color: #000; border-bottom: 2pt solid #eee; padding-bottom: 20pt; margin-bottom: 50pt;">{{.Title}}</h1>
{{template "sections" .Sections}}</body>
</html>
`

var tmpl = template.Must(template.New("document").Parse(sectionsTmpl + documentTmpl))

func blockCSS(k markup.Kind, dir string) template.CSS {
	st := markup.StyleFor(k)
	var b strings.Builder
	fmt.Fprintf(&b, "text-align: right; direction: %s; color: %s; font-size: %gpt; margin-bottom: %gpt;", dir, st.Color, st.FontSizePt, st.MarginBottom)
	if st.LineHeight > 0 {
		fmt.Fprintf(&b, " line-height: %g;", st.LineHeight)
	}
	if st.Bold {
		b.WriteString(" font-weight: bold;")
	}
	if k == markup.ListBlock {
		b.WriteString(" padding-right: 30pt;")
	}
	return template.CSS(b.String())
}

func toFlowSections(blocks []markup.Block) []flowSection {
	var out []flowSection
	for _, group := range markup.GroupByRecord(blocks) {
		sec := flowSection{Source: group[0].Source, Dir: Dir(blockText(group[0]))}
		for _, b := range group {
			dir := Dir(blockText(b))
			fb := flowBlock{Dir: dir, Style: blockCSS(b.Kind, dir)}
			switch b.Kind {
			case markup.Heading1:
				fb.Tag, fb.Lines = "h1", strings.Split(b.Text, "\n")
			case markup.Heading2:
				fb.Tag, fb.Lines = "h2", strings.Split(b.Text, "\n")
			case markup.ListBlock:
				fb.Tag, fb.Items = "ul", b.Items
			default:
				fb.Tag, fb.Lines = "p", strings.Split(b.Text, "\n")
			}
			sec.Blocks = append(sec.Blocks, fb)
		}
		out = append(out, sec)
	}
	return out
}

func blockText(b markup.Block) string {
	if b.Kind == markup.ListBlock {
		return strings.Join(b.Items, "\n")
	}
	return b.Text
}

// Flow writes a Word-compatible HTML document (.doc): right-to-left,
// right-aligned, one section per record in record order.
func Flow(w io.Writer, blocks []markup.Block) error {
	var buf bytes.Buffer
	buf.WriteString(utf8BOM)
	err := tmpl.ExecuteTemplate(&buf, "document", struct {
		Title     string
		BodyStyle template.CSS
		Sections  []flowSection
	}{
		Title:     FlowTitle,
		BodyStyle: template.CSS("font-family: " + bodyFont + "; padding: 50pt;"),
		Sections:  toFlowSections(blocks),
	})
	if err != nil {
		return fmt.Errorf("render flow document: %w", err)
	}
	_, err = buf.WriteTo(w)
	return err
}

// Preview writes the same styled sections without the document shell.
func Preview(w io.Writer, blocks []markup.Block) error {
	if err := tmpl.ExecuteTemplate(w, "sections", toFlowSections(blocks)); err != nil {
		return fmt.Errorf("render preview: %w", err)
	}
	return nil
}
