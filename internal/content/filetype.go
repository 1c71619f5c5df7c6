package content

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLength is how much of an upload is inspected to detect its type.
const sniffLength = 3072

// allowedTypes maps accepted MIME types to the extension used for storage keys.
var allowedTypes = map[string]string{
	"application/pdf":      ".pdf",
	"application/epub+zip": ".epub",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	"application/msword": ".doc",
	"text/plain":         ".txt",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": ".xlsx",
	"application/vnd.ms-excel": ".xls",
	"image/jpeg":               ".jpg",
	"image/png":                ".png",
	"image/gif":                ".gif",
}

// containerTypes are generic archive formats whose concrete document type
// is taken from the file name when the header alone is inconclusive.
var containerTypes = map[string][]string{
	"application/zip":          {".docx", ".xlsx", ".epub"},
	"application/x-ole-storage": {".doc", ".xls"},
}

type fileType struct {
	MIME string
	Ext  string
}

// detectFileType sniffs head and returns the accepted type it matches.
func detectFileType(head []byte, fileName string) (fileType, bool) {
	detected := mimetype.Detect(head)
	for candidate, ext := range allowedTypes {
		if detected.Is(candidate) {
			return fileType{MIME: candidate, Ext: ext}, true
		}
	}

	nameExt := strings.ToLower(filepath.Ext(fileName))
	for container, exts := range containerTypes {
		if !detected.Is(container) {
			continue
		}
		for _, ext := range exts {
			if ext == nameExt {
				return fileType{MIME: mimeForExt(ext), Ext: ext}, true
			}
		}
	}
	return fileType{}, false
}

func mimeForExt(ext string) string {
	for mime, candidate := range allowedTypes {
		if candidate == ext {
			return mime
		}
	}
	return ""
}

func allowedExtensions() string {
	exts := make([]string, 0, len(allowedTypes))
	for _, ext := range allowedTypes {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}
