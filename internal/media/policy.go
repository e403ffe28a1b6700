// Package media validates uploaded files and writes them to an object store.
package media

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

var (
	ErrNoFiles         = errors.New("no files uploaded")
	ErrTooManyFiles    = errors.New("too many files")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file too large")
)

// allowedExtensions is consulted when the declared content type is not
// image/* or video/*.
var allowedExtensions = map[string]struct{}{
	".jpeg": {}, ".jpg": {}, ".png": {}, ".gif": {}, ".webp": {}, ".heic": {}, ".heif": {},
	".mp4": {}, ".mov": {}, ".avi": {}, ".webm": {}, ".mkv": {},
}

// Upload is one incoming file.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// Item describes a stored file.
type Item struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
	Format   string `json:"format,omitempty"`
	Type     string `json:"type"`
	Bytes    int64  `json:"bytes"`
}

// Policy bounds a single upload request.
type Policy struct {
	MaxFiles     int
	MaxFileBytes int64
}

// Check validates the batch before anything is stored.
func (p Policy) Check(uploads []Upload) error {
	if len(uploads) == 0 {
		return ErrNoFiles
	}
	if p.MaxFiles > 0 && len(uploads) > p.MaxFiles {
		return fmt.Errorf("%w: %d files, at most %d allowed", ErrTooManyFiles, len(uploads), p.MaxFiles)
	}
	for _, u := range uploads {
		if !Allowed(u.ContentType, u.Filename) {
			return fmt.Errorf("%w: %s", ErrUnsupportedType, u.Filename)
		}
		if p.MaxFileBytes > 0 && u.Size > p.MaxFileBytes {
			return fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, u.Filename, p.MaxFileBytes)
		}
	}
	return nil
}

// Allowed accepts image/* and video/* content types, then falls back to the
// file extension.
func Allowed(contentType, filename string) bool {
	if IsImageOrVideo(contentType) {
		return true
	}
	_, ok := allowedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// IsImageOrVideo reports whether contentType is image/* or video/*.
func IsImageOrVideo(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	return strings.HasPrefix(ct, "image/") || strings.HasPrefix(ct, "video/")
}

// Extension returns the stored file extension, deriving one from the content
// type when the name has none.
func Extension(contentType, filename string) string {
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" {
		return ext
	}
	ct := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(ct, "image/"):
		return ".jpg"
	case strings.HasPrefix(ct, "video/"):
		return ".mp4"
	}
	return ""
}
