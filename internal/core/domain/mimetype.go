package domain

import (
	"mime"
	"path"
	"strings"
)

// Common MIME types.
const (
	MimeOctetStream = "application/octet-stream"
	MimeHTML        = "text/html"
	MimePDF         = "application/pdf"
	MimeLink        = "application/stf-link"
)

// extMIMETypes covers extensions the platform registry misses or gets wrong.
var extMIMETypes = map[string]string{
	".txt": "text/plain", ".md": "text/markdown", ".markdown": "text/markdown",
	".csv": "text/csv", ".rtf": "application/rtf",
	".doc": "application/msword", ".xls": "application/vnd.ms-excel", ".ppt": "application/vnd.ms-powerpoint",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".odt": "application/vnd.oasis.opendocument.text",
	".epub": "application/epub+zip", ".zip": "application/zip",
	".mp3": "audio/mpeg", ".wav": "audio/wav", ".mp4": "video/mp4", ".mov": "video/quicktime",
	".go": "text/x-go", ".py": "text/x-python", ".ts": "text/typescript",
	".yaml": "text/yaml", ".yml": "text/yaml", ".toml": "text/toml",
	".eml": "message/rfc822",
}

// LookupMimeType resolves a filename or bare extension ("pdf", ".pdf",
// "report.pdf") to a MIME type. It returns "" when the type is unknown.
func LookupMimeType(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	ext := path.Ext(name)
	if ext == "" {
		ext = "." + strings.TrimPrefix(name, ".")
	}
	if t, ok := extMIMETypes[ext]; ok {
		return t
	}
	return BaseMimeType(mime.TypeByExtension(ext))
}

// BaseMimeType strips parameters such as charset from a Content-Type value.
func BaseMimeType(contentType string) string {
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	return strings.TrimSpace(contentType)
}
