package domain

import (
	"fmt"
	"strings"
)

// PayloadKind tells the dispatcher how a WorkUnit's content is carried.
type PayloadKind int

const (
	RasterImage PayloadKind = iota
	RawText
)

func (k PayloadKind) String() string {
	switch k {
	case RasterImage:
		return "raster_image"
	case RawText:
		return "raw_text"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// WorkUnit is one atomic chunk of source content awaiting translation.
// Index is its position in upload order and is the sort key for records.
type WorkUnit struct {
	Index       int
	SourceLabel string
	Kind        PayloadKind
	MIMEType    string
	Payload     []byte // image bytes for RasterImage
	Text        string // extracted text for RawText
}

// PlaceholderTranslation replaces an empty model answer so downstream
// normalization never sees an empty fragment.
const PlaceholderTranslation = "[اس حصے کا ترجمہ دستیاب نہیں۔ The model returned no text for this section.]"

// TranslationRecord is the stored result of translating one WorkUnit.
type TranslationRecord struct {
	Index          int    `json:"index"`
	Source         string `json:"source"`
	OriginalText   string `json:"original"`
	TranslatedText string `json:"translated"`
}

// NewRecord builds a record; a blank translation becomes the placeholder.
func NewRecord(u WorkUnit, original, translated string) TranslationRecord {
	if strings.TrimSpace(translated) == "" {
		translated = PlaceholderTranslation
	}
	return TranslationRecord{
		Index:          u.Index,
		Source:         u.SourceLabel,
		OriginalText:   original,
		TranslatedText: translated,
	}
}

// Quality selects the remote model tier.
type Quality string

const (
	QualityFast    Quality = "fast"
	QualityPrecise Quality = "precise"
)

func ParseQuality(s string) (Quality, error) {
	switch Quality(strings.ToLower(strings.TrimSpace(s))) {
	case "", QualityFast:
		return QualityFast, nil
	case QualityPrecise:
		return QualityPrecise, nil
	}
	return "", ValidationError(fmt.Sprintf("unknown quality %q (want fast|precise)", s), nil)
}

// Warning is a non-fatal problem surfaced to the user alongside results.
type Warning struct {
	Source  string    `json:"source"`
	Kind    ErrorType `json:"kind"`
	Message string    `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Source, w.Message)
}

// WarningFrom turns an error into a Warning for source, keeping its type when known.
func WarningFrom(source string, err error) Warning {
	kind := TypeOf(err)
	if kind == "" {
		kind = ErrorTypeRemoteCall
	}
	return Warning{Source: source, Kind: kind, Message: err.Error()}
}
