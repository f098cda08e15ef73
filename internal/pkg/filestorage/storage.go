package filestorage

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// BlobStorage stores uploaded bytes and resolves their public URL
type BlobStorage interface {
	// Store writes data under objectPath and returns its URL
	Store(ctx context.Context, objectPath string, data []byte) (string, error)

	// URLFor returns the public URL for objectPath
	URLFor(objectPath string) string

	// Delete removes the object; missing objects are not an error
	Delete(ctx context.Context, objectPath string) error
}

// ObjectPath builds a collision-free object path under prefix that keeps
// the extension of the original filename.
func ObjectPath(prefix, filename string) string {
	name := uuid.New().String() + strings.ToLower(filepath.Ext(filename))
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// cleanObjectPath normalizes p and rejects paths escaping the storage root.
func cleanObjectPath(p string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("invalid object path %q", p)
	}
	return cleaned, nil
}

// ReadUpload reads a multipart upload, refusing files over maxBytes.
func ReadUpload(fileHeader *multipart.FileHeader, maxBytes int64) ([]byte, error) {
	if fileHeader == nil {
		return nil, nil
	}
	if maxBytes > 0 && fileHeader.Size > maxBytes {
		return nil, fmt.Errorf("file %s exceeds %d bytes", fileHeader.Filename, maxBytes)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	var r io.Reader = file
	if maxBytes > 0 {
		r = io.LimitReader(file, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("file %s exceeds %d bytes", fileHeader.Filename, maxBytes)
	}
	return data, nil
}
