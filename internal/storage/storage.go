// Package storage holds uploaded blobs and hands out their public URLs.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"strings"
)

var (
	// ErrInvalidPath is returned for empty, absolute or escaping blob paths.
	ErrInvalidPath = errors.New("storage: invalid blob path")
	// ErrForeignURL is returned when deleting a URL this storage did not issue.
	ErrForeignURL = errors.New("storage: url not owned by this storage")
)

// Uploader is the storage collaborator.
type Uploader interface {
	// Upload stores the blob under path and returns its durable URL.
	Upload(ctx context.Context, r io.Reader, path string) (string, error)
	// Delete releases the blob behind url.
	Delete(ctx context.Context, url string) error
}

var extensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"video/mp4":       ".mp4",
	"application/pdf": ".pdf",
}

// BlobPath returns the content-addressed path uploads/<owner>/<sha256><ext>.
func BlobPath(ownerID string, data []byte, mimeType string) string {
	sum := sha256.Sum256(data)
	return "uploads/" + sanitizeSegment(ownerID) + "/" + hex.EncodeToString(sum[:]) + extensions[mimeType]
}

func sanitizeSegment(s string) string {
	if s == "" {
		return "_"
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
