package filestorage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// LocalStorage handles saving files to the local filesystem.
type LocalStorage struct {
	basePath string // root directory on disk
	baseURL  string // URL prefix the files are served under
	logger   zerolog.Logger
}

// NewLocalStorage creates a new LocalStorage instance, creating basePath if
// needed. Without a baseURL, returned URLs are relative to "/uploads".
func NewLocalStorage(basePath, baseURL string, logger zerolog.Logger) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	if baseURL == "" {
		baseURL = "/uploads"
	}

	return &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger.With().Str("component", "filestorage").Str("backend", "local").Logger(),
	}, nil
}

// Store writes data to basePath/objectPath
func (ls *LocalStorage) Store(_ context.Context, objectPath string, data []byte) (string, error) {
	key, err := cleanObjectPath(objectPath)
	if err != nil {
		return "", err
	}

	dstPath := filepath.Join(ls.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create subdirectory: %w", err)
	}

	if err := os.WriteFile(dstPath, data, 0o644); err != nil {
		ls.logger.Error().Err(err).Str("path", dstPath).Msg("Failed to write file")
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("failed to save file content: %w", err)
	}

	url := ls.URLFor(key)
	ls.logger.Info().Str("path", dstPath).Int("bytes", len(data)).Str("url", url).Msg("File saved successfully")
	return url, nil
}

// URLFor returns the served URL of objectPath
func (ls *LocalStorage) URLFor(objectPath string) string {
	key, err := cleanObjectPath(objectPath)
	if err != nil {
		return ""
	}
	return ls.baseURL + "/" + key
}

// Delete removes objectPath; a missing file is not an error.
func (ls *LocalStorage) Delete(_ context.Context, objectPath string) error {
	key, err := cleanObjectPath(objectPath)
	if err != nil {
		return err
	}

	physicalPath := filepath.Join(ls.basePath, filepath.FromSlash(key))
	if err := os.Remove(physicalPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			ls.logger.Warn().Str("path", physicalPath).Msg("File to delete does not exist")
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// BasePath returns the directory files are written to.
func (ls *LocalStorage) BasePath() string {
	return ls.basePath
}
