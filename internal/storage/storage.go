// Package storage keeps uploaded listing photos and identity documents.
// Rows in MySQL only hold the blob key; the bytes live in a BlobStore.
package storage

import (
	"context"
	"errors"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Open when no blob exists under the key.
var ErrNotFound = errors.New("blob not found")

// ErrInvalidKey is returned for keys that are empty or escape the store.
var ErrInvalidKey = errors.New("invalid blob key")

// BlobStore is implemented by FileStore and GridFSStore.
type BlobStore interface {
	// Put stores r under key and returns the number of bytes written.
	Put(ctx context.Context, key, contentType string, r io.Reader) (int64, error)
	// Open returns the blob and its content type.  Callers close the reader.
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
	// Delete removes the blob.  Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// NewKey returns a fresh key below prefix with an extension matching
// contentType, for example "photos/5f0c...e1.jpg".
func NewKey(prefix, contentType string) string {
	ext := ""
	switch contentType {
	case "image/jpeg":
		ext = ".jpg"
	case "image/png":
		ext = ".png"
	default:
		if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
			ext = exts[0]
		}
	}
	return path.Join(prefix, uuid.NewString()+ext)
}

func cleanKey(key string) (string, error) {
	if key == "" || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	k := path.Clean(key)
	if k == "." || strings.HasPrefix(k, "/") || k == ".." || strings.HasPrefix(k, "../") {
		return "", ErrInvalidKey
	}
	return k, nil
}
