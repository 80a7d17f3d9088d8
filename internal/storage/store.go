package storage

import (
	"context"
	"mime"
	"strings"

	"github.com/google/uuid"
)

// BlobStore keeps downloaded media behind opaque handles. Handles are local
// to the process or bucket that issued them.
type BlobStore interface {
	Put(ctx context.Context, prefix string, data []byte, mediaType string) (string, error)
	Get(ctx context.Context, handle string) ([]byte, string, error)
	Delete(ctx context.Context, handle string) error
}

// NewKey builds a unique storage key under prefix with an extension that
// matches mediaType.
func NewKey(prefix, mediaType string) string {
	key := uuid.NewString() + extensionFor(mediaType)
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

func extensionFor(mediaType string) string {
	switch strings.ToLower(strings.TrimSpace(mediaType)) {
	case "video/mp4":
		return ".mp4"
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "":
		return ".bin"
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

func mediaTypeFor(key string) string {
	idx := strings.LastIndex(key, ".")
	if idx < 0 {
		return "application/octet-stream"
	}
	switch ext := strings.ToLower(key[idx:]); ext {
	case ".mp4":
		return "video/mp4"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
		return "application/octet-stream"
	}
}
