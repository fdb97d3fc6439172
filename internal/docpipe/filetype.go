// Package docpipe coordinates end-to-end processing of one invoice
// document: fetch, page rendering, relevancy filtering, field extraction,
// and stamp workflows.
package docpipe

import (
	"path/filepath"
	"strings"
)

// FileType classifies a document by its extension.
type FileType int

const (
	FileTypeUnknown FileType = iota
	FileTypeImage
	FileTypePDF
)

var imageExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
}

// DetectFileType classifies a path by extension, case-insensitively.
func DetectFileType(path string) FileType {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case imageExtensions[ext]:
		return FileTypeImage
	case ext == ".pdf":
		return FileTypePDF
	default:
		return FileTypeUnknown
	}
}

func (t FileType) String() string {
	switch t {
	case FileTypeImage:
		return "image"
	case FileTypePDF:
		return "pdf"
	default:
		return "unknown"
	}
}
