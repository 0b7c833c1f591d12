package rolestore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store persists the set of active roles between invocations
type Store interface {
	// Load returns the active roles in file order with duplicates collapsed.
	// A missing file reads as an empty set.
	Load() ([]string, error)
	// Save replaces the stored role set
	Save(roles []string) error
}

// FileStore implements Store on a plain text file with one role per line
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the file at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the location of the backing file
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the role set from disk
func (s *FileStore) Load() ([]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read roles file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var roles []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		role := strings.TrimSpace(scanner.Text())
		if role == "" || seen[role] {
			continue
		}
		seen[role] = true
		roles = append(roles, role)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read roles file: %w", err)
	}

	return roles, nil
}

// Save writes the role set with an atomic replace so a crash mid-write cannot
// leave a truncated file behind
func (s *FileStore) Save(roles []string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create roles directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".roles-tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}() // cleanup on error

	for _, role := range roles {
		if _, err := fmt.Fprintln(tmpFile, role); err != nil {
			_ = tmpFile.Close()
			return fmt.Errorf("failed to write roles file: %w", err)
		}
	}

	if err := tmpFile.Chmod(0644); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to set roles file permissions: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to write roles file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to replace roles file: %w", err)
	}

	return nil
}
