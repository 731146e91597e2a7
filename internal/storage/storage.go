// Package storage provides file-backed JSON document storage for project
// metadata, plus atomic raw writes for generated page files.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	ErrNotFound = errors.New("not found")
)

// Store persists JSON documents under a base directory. Documents are
// addressed by a path slice; each document is one pretty-printed JSON file.
type Store struct {
	basePath string
	mu       sync.RWMutex
	locks    map[string]*FileLock
}

// New creates a Store rooted at basePath.
func New(basePath string) *Store {
	return &Store{
		basePath: basePath,
		locks:    make(map[string]*FileLock),
	}
}

// BasePath returns the directory the store is rooted at.
func (s *Store) BasePath() string {
	return s.basePath
}

func (s *Store) pathToFile(path []string) string {
	parts := append([]string{s.basePath}, path...)
	return filepath.Join(parts...) + ".json"
}

func (s *Store) pathToDir(path []string) string {
	parts := append([]string{s.basePath}, path...)
	return filepath.Join(parts...)
}

// Get reads the document at path into v.
func (s *Store) Get(ctx context.Context, path []string, v any) error {
	data, err := os.ReadFile(s.pathToFile(path))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to read file: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal: %w", err)
	}

	return nil
}

// Put writes v as the document at path. The write is atomic: the document
// is staged to a temp file and renamed into place under an flock.
func (s *Store) Put(ctx context.Context, path []string, v any) error {
	filePath := s.pathToFile(path)

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	lock := s.getLock(filePath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer lock.Unlock()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}

	return atomicWrite(filePath, data)
}

// Delete removes the document at path. Deleting a missing document is not
// an error.
func (s *Store) Delete(ctx context.Context, path []string) error {
	filePath := s.pathToFile(path)

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

// DeleteDir removes the directory at path and everything under it.
func (s *Store) DeleteDir(ctx context.Context, path []string) error {
	if err := os.RemoveAll(s.pathToDir(path)); err != nil {
		return fmt.Errorf("failed to delete directory: %w", err)
	}
	return nil
}

// List returns the keys of all documents and subdirectories at path.
func (s *Store) List(ctx context.Context, path []string) ([]string, error) {
	entries, err := os.ReadDir(s.pathToDir(path))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var items []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			items = append(items, name)
		} else if strings.HasSuffix(name, ".json") {
			items = append(items, strings.TrimSuffix(name, ".json"))
		}
	}

	return items, nil
}

// Scan iterates over all documents at path, handing each key and raw body
// to fn. Unreadable files are skipped.
func (s *Store) Scan(ctx context.Context, path []string, fn func(key string, data json.RawMessage) error) error {
	dirPath := s.pathToDir(path)

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dirPath, name))
		if err != nil {
			continue
		}

		key := strings.TrimSuffix(name, ".json")
		if err := fn(key, json.RawMessage(data)); err != nil {
			return err
		}
	}

	return nil
}

// Exists reports whether a document exists at path.
func (s *Store) Exists(ctx context.Context, path []string) bool {
	_, err := os.Stat(s.pathToFile(path))
	return err == nil
}

// WriteRaw writes content verbatim to the named file under path. Used for
// generated page sources, which are served as-is rather than as JSON
// documents. The write goes through the same temp-then-rename dance as Put.
func (s *Store) WriteRaw(ctx context.Context, path []string, name string, content []byte) error {
	dirPath := s.pathToDir(path)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	filePath := filepath.Join(dirPath, name)

	lock := s.getLock(filePath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer lock.Unlock()

	return atomicWrite(filePath, content)
}

// ReadRaw reads the named file under path verbatim.
func (s *Store) ReadRaw(ctx context.Context, path []string, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.pathToDir(path), name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

func atomicWrite(filePath string, data []byte) error {
	tmpPath := filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}

func (s *Store) getLock(filePath string) *FileLock {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[filePath]
	if !ok {
		lock = NewFileLock(filePath)
		s.locks[filePath] = lock
	}

	return lock
}
