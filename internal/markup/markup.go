// Package markup turns the model's Markdown-flavored translations into a
// flat sequence of typed blocks shared by preview and every exporter.
package markup

import (
	"regexp"
	"strings"

	"github.com/thywilljoshua/urdu-link/internal/domain"
)

type Kind int

const (
	Heading1 Kind = iota
	Heading2
	ListBlock
	Paragraph
)

func (k Kind) String() string {
	switch k {
	case Heading1:
		return "heading1"
	case Heading2:
		return "heading2"
	case ListBlock:
		return "list"
	default:
		return "paragraph"
	}
}

// Block is one structural unit. Items is set for lists, Text otherwise.
// Record is the position of the originating record in the normalized sequence.
type Block struct {
	Kind   Kind
	Text   string
	Items  []string
	Record int
	Source string
}

var (
	orderedMarker = regexp.MustCompile(`^\d+\.\s`)
	itemMarker    = regexp.MustCompile(`^\s*(?:[*\-]|\d+\.)\s+`)
)

// Parse classifies each blank-line separated segment of text by its prefix.
func Parse(text string) []Block {
	var out []Block
	for _, seg := range strings.Split(text, "\n\n") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		switch {
		case strings.HasPrefix(seg, "# "):
			out = append(out, Block{Kind: Heading1, Text: strings.TrimSpace(seg[2:])})
		case strings.HasPrefix(seg, "## "):
			out = append(out, Block{Kind: Heading2, Text: strings.TrimSpace(seg[3:])})
		case isListStart(seg):
			out = append(out, Block{Kind: ListBlock, Items: listItems(seg)})
		default:
			out = append(out, Block{Kind: Paragraph, Text: seg})
		}
	}
	return out
}

func isListStart(seg string) bool {
	return strings.HasPrefix(seg, "* ") || strings.HasPrefix(seg, "- ") || orderedMarker.MatchString(seg)
}

func listItems(seg string) []string {
	lines := strings.Split(seg, "\n")
	items := make([]string, 0, len(lines))
	for _, ln := range lines {
		ln = strings.TrimSpace(itemMarker.ReplaceAllString(ln, ""))
		if ln != "" {
			items = append(items, ln)
		}
	}
	return items
}

// Normalize parses every record and concatenates the blocks in record order.
func Normalize(records []domain.TranslationRecord) []Block {
	var out []Block
	for i, r := range records {
		for _, b := range Parse(r.TranslatedText) {
			b.Record = i
			b.Source = r.Source
			out = append(out, b)
		}
	}
	return out
}

// GroupByRecord splits a normalized sequence back into per-record runs,
// preserving order.
func GroupByRecord(blocks []Block) [][]Block {
	var groups [][]Block
	for i, b := range blocks {
		if i == 0 || b.Record != blocks[i-1].Record {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], b)
	}
	return groups
}
