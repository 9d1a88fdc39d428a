// Package storage provides locked, atomic JSON file storage for the
// documents a mod keeps next to its FlexMod.json.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var (
	ErrNotFound = errors.New("not found")
)

const (
	// RenameRetries is the number of extra attempts for a failed temp-file rename.
	RenameRetries = 3
	// RenameInitialInterval is the first wait between rename attempts.
	RenameInitialInterval = 20 * time.Millisecond
	// RenameMaxInterval caps the wait between rename attempts.
	RenameMaxInterval = 200 * time.Millisecond
)

// Storage reads and writes JSON files below a base directory. A key path
// such as []string{"FlexMod"} maps to <base>/FlexMod.json.
type Storage struct {
	basePath string
	mu       sync.RWMutex
	locks    map[string]*FileLock
}

// New creates a new Storage rooted at basePath.
func New(basePath string) *Storage {
	return &Storage{
		basePath: basePath,
		locks:    make(map[string]*FileLock),
	}
}

// BasePath returns the directory the storage is rooted at.
func (s *Storage) BasePath() string {
	return s.basePath
}

// Path returns the file a key path maps to.
func (s *Storage) Path(path ...string) string {
	parts := append([]string{s.basePath}, path...)
	return filepath.Join(parts...) + ".json"
}

// Read returns the raw bytes stored at path.
func (s *Storage) Read(ctx context.Context, path []string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(path...))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// Get decodes the JSON stored at path into v.
func (s *Storage) Get(ctx context.Context, path []string, v any) error {
	data, err := s.Read(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal: %w", err)
	}
	return nil
}

// Put encodes v as indented JSON and writes it to path. HTML characters
// are written as-is.
func (s *Storage) Put(ctx context.Context, path []string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}
	return s.Write(ctx, path, buf.Bytes())
}

// Write stores data at path under a file lock. The data goes to a temp file
// first and is renamed into place, so readers never see a partial file.
func (s *Storage) Write(ctx context.Context, path []string, data []byte) error {
	filePath := s.Path(path...)

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	lock := s.getLock(filePath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer lock.Unlock()

	tmpPath := filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	rename := func() error {
		return os.Rename(tmpPath, filePath)
	}
	if err := backoff.Retry(rename, newRenameBackoff(ctx)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}

// Delete removes the file at path. A missing file is not an error.
func (s *Storage) Delete(ctx context.Context, path []string) error {
	filePath := s.Path(path...)

	lock := s.getLock(filePath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer lock.Unlock()

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// Exists checks if a path exists.
func (s *Storage) Exists(ctx context.Context, path []string) bool {
	_, err := os.Stat(s.Path(path...))
	return err == nil
}

func newRenameBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = RenameInitialInterval
	b.MaxInterval = RenameMaxInterval
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, RenameRetries), ctx)
}

func (s *Storage) getLock(filePath string) *FileLock {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[filePath]
	if !ok {
		lock = NewFileLock(filePath)
		s.locks[filePath] = lock
	}

	return lock
}
