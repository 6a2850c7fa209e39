package ingest

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// FileKind is the detected container type of an upload.
type FileKind int

const (
	KindUnsupported FileKind = iota
	KindPDF
	KindImage
	KindDOCX
)

func (k FileKind) String() string {
	switch k {
	case KindPDF:
		return "pdf"
	case KindImage:
		return "image"
	case KindDOCX:
		return "docx"
	default:
		return "unsupported"
	}
}

var imageExts = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".heic": "image/heic",
}

// Detect classifies a file from its name and leading bytes. The extension
// decides for .docx since its sniffed type is a plain zip archive.
func Detect(name string, head []byte) (FileKind, string) {
	ext := strings.ToLower(filepath.Ext(name))
	sniffed := ""
	if len(head) > 0 {
		sniffed = http.DetectContentType(head)
	}

	switch {
	case ext == ".pdf" || sniffed == "application/pdf":
		return KindPDF, "application/pdf"
	case ext == ".docx":
		return KindDOCX, "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case strings.HasPrefix(sniffed, "image/"):
		return KindImage, sniffed
	}
	if mt, ok := imageExts[ext]; ok {
		return KindImage, mt
	}
	if mt := mime.TypeByExtension(ext); strings.HasPrefix(mt, "image/") {
		return KindImage, mt
	}
	return KindUnsupported, sniffed
}
