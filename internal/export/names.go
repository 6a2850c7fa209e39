package export

import (
	"regexp"
	"strings"
)

const (
	ManuscriptBase = "Urdu_Manuscript"
	DocFileName    = ManuscriptBase + ".doc"
	PDFFileName    = ManuscriptBase + ".pdf"

	DocMIMEType = "application/msword"
	PDFMIMEType = "application/pdf"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9\-]+`)

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "-", "/", "-", ".", "-", "_", "-").Replace(s)
	s = nonSlug.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return s
}

// FileName is the download name for ext (".doc" or ".pdf"). A prefix is
// slugged and prepended; a prefix with no ASCII letters is ignored.
func FileName(prefix, ext string) string {
	if slug := slugify(prefix); slug != "" {
		return slug + "_" + ManuscriptBase + ext
	}
	return ManuscriptBase + ext
}
