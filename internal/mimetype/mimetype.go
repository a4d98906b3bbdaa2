// Package mimetype maps file extensions to MIME type strings for the
// listing builder and the static file dispatcher.
package mimetype

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"example.com/dirserve/internal/config"
)

// defaultTypes provides a built-in set of common MIME types keyed by bare
// extension (no leading dot). Unknown extensions fall back to text/plain.
var defaultTypes = map[string]string{
	"aac":   "audio/aac",
	"avif":  "image/avif",
	"avi":   "video/x-msvideo",
	"bin":   "application/octet-stream",
	"bmp":   "image/bmp",
	"bz2":   "application/x-bzip2",
	"css":   "text/css",
	"csv":   "text/csv",
	"doc":   "application/msword",
	"docx":  "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"epub":  "application/epub+zip",
	"gz":    "application/gzip",
	"gif":   "image/gif",
	"htm":   "text/html",
	"html":  "text/html",
	"ico":   "image/vnd.microsoft.icon",
	"ics":   "text/calendar",
	"jar":   "application/java-archive",
	"jpeg":  "image/jpeg",
	"jpg":   "image/jpeg",
	"js":    "text/javascript",
	"json":  "application/json",
	"md":    "text/markdown",
	"mid":   "audio/midi",
	"midi":  "audio/midi",
	"mjs":   "text/javascript",
	"mp3":   "audio/mpeg",
	"mp4":   "video/mp4",
	"mpeg":  "video/mpeg",
	"oga":   "audio/ogg",
	"ogv":   "video/ogg",
	"opus":  "audio/opus",
	"otf":   "font/otf",
	"png":   "image/png",
	"pdf":   "application/pdf",
	"ppt":   "application/vnd.ms-powerpoint",
	"pptx":  "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"rar":   "application/vnd.rar",
	"rtf":   "application/rtf",
	"sh":    "application/x-sh",
	"svg":   "image/svg+xml",
	"tar":   "application/x-tar",
	"tif":   "image/tiff",
	"tiff":  "image/tiff",
	"ttf":   "font/ttf",
	"txt":   "text/plain",
	"wasm":  "application/wasm",
	"wav":   "audio/wav",
	"webm":  "video/webm",
	"webp":  "image/webp",
	"woff":  "font/woff",
	"woff2": "font/woff2",
	"xhtml": "application/xhtml+xml",
	"xls":   "application/vnd.ms-excel",
	"xlsx":  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"xml":   "application/xml",
	"zip":   "application/zip",
	"7z":    "application/x-7z-compressed",
}

const (
	// fallbackType is returned when no mapping exists for an extension.
	fallbackType = "text/plain"
	// defaultExtension stands in for filenames with no usable extension.
	defaultExtension = "txt"
)

// extensionRe matches a trailing dot-separated alphanumeric suffix.
var extensionRe = regexp.MustCompile(`\.([A-Za-z0-9]+)$`)

// Resolver encapsulates MIME type determination, with optional custom
// overrides layered over the built-in table.
type Resolver struct {
	custom map[string]string
}

// NewResolver creates a Resolver from the serve configuration. Inline
// overrides are loaded first; entries from MimeTypesPath (a JSON object
// of extension to type) take precedence over inline ones. Extension keys
// may be spelled with or without a leading dot.
func NewResolver(sc *config.ServeConfig) (*Resolver, error) {
	r := &Resolver{custom: make(map[string]string)}
	if sc == nil {
		return r, nil
	}

	for ext, mimeType := range sc.MimeTypesMap {
		key, err := normalizeExtensionKey(ext, mimeType)
		if err != nil {
			return nil, err
		}
		r.custom[key] = mimeType
	}

	if sc.MimeTypesPath != nil && *sc.MimeTypesPath != "" {
		fromFile, err := LoadCustomTypesFromFile(*sc.MimeTypesPath)
		if err != nil {
			return nil, err
		}
		for ext, mimeType := range fromFile {
			r.custom[ext] = mimeType
		}
	}

	return r, nil
}

// LoadCustomTypesFromFile reads a JSON object of extension-to-type pairs.
// Keys in the returned map are lowercased with any leading dot stripped.
func LoadCustomTypesFromFile(filePath string) (map[string]string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read MIME types file %q: %w", filePath, err)
	}

	var parsed map[string]string
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse JSON from MIME types file %q: %w", filePath, err)
	}

	custom := make(map[string]string, len(parsed))
	for ext, mimeType := range parsed {
		key, err := normalizeExtensionKey(ext, mimeType)
		if err != nil {
			return nil, fmt.Errorf("%w in MIME types file %q", err, filePath)
		}
		custom[key] = mimeType
	}
	return custom, nil
}

func normalizeExtensionKey(ext, mimeType string) (string, error) {
	key := strings.ToLower(strings.TrimPrefix(ext, "."))
	if key == "" {
		return "", fmt.Errorf("invalid empty extension")
	}
	if mimeType == "" {
		return "", fmt.Errorf("empty MIME type for extension %q", ext)
	}
	return key, nil
}

// ExtractExtension returns the lowercased trailing alphanumeric extension
// of name, without its dot, or "" when name has no such suffix.
func ExtractExtension(name string) string {
	m := extensionRe.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}

// TypeByExtension resolves a bare (dotless, lowercase) extension.
// Precedence: custom overrides, then the built-in table; text/plain when
// nothing matches. An empty extension is treated as "txt". The platform
// MIME database is deliberately not consulted so listings are identical
// across hosts.
func (r *Resolver) TypeByExtension(ext string) string {
	if ext == "" {
		ext = defaultExtension
	}
	if mimeType, ok := r.custom[ext]; ok {
		return mimeType
	}
	if mimeType, ok := defaultTypes[ext]; ok {
		return mimeType
	}
	return fallbackType
}

// TypeForFile resolves the MIME type for a file basename.
func (r *Resolver) TypeForFile(name string) string {
	return r.TypeByExtension(ExtractExtension(name))
}
