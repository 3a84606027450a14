// Package jsonstore persists the ingestion and output documents as JSON files.
package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/custodia-labs/findingaid/internal/core/domain"
	"github.com/custodia-labs/findingaid/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*Store)(nil)

const indent = "    "

// Store implements driven.DocumentStore on the local filesystem.
// Writes go to a temporary file in the target directory and are renamed
// into place, so readers never observe a partial file.
type Store struct{}

// NewStore creates a new Store
func NewStore() *Store {
	return &Store{}
}

// ReadCorpus loads an ingestion-shape file
func (s *Store) ReadCorpus(_ context.Context, path string) (*domain.Corpus, error) {
	var corpus domain.Corpus
	if err := readJSON(path, &corpus); err != nil {
		return nil, err
	}
	return &corpus, nil
}

// WriteCorpus saves an ingestion-shape file
func (s *Store) WriteCorpus(_ context.Context, path string, corpus *domain.Corpus) error {
	return writeJSON(path, corpus)
}

// ReadOutput loads an output-shape file
func (s *Store) ReadOutput(_ context.Context, path string) (*domain.Output, error) {
	var out domain.Output
	if err := readJSON(path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WriteOutput saves an output-shape file
func (s *Store) WriteOutput(_ context.Context, path string, out *domain.Output) error {
	return writeJSON(path, out)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", path, domain.ErrNotFound)
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w: %v", path, domain.ErrInvalidInput, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", indent)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
