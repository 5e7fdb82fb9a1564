// Package state persists small pieces of bootstrap state across restarts.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// File is a tiny JSON key-value record on disk. It currently tracks the
// vector store id created by the startup bootstrap so later runs reuse it.
type File struct {
	path string
}

type record struct {
	VectorStoreID string `json:"vector_store_id,omitempty"`
}

// NewFile returns a state file at the given path. The file does not need to
// exist yet.
func NewFile(path string) *File {
	return &File{path: path}
}

// VectorStoreID returns the persisted vector store id, or "" if none is
// recorded.
func (f *File) VectorStoreID() (string, error) {
	rec, err := f.read()
	if err != nil {
		return "", err
	}
	return rec.VectorStoreID, nil
}

// SaveVectorStoreID records the vector store id, preserving any other fields.
func (f *File) SaveVectorStoreID(id string) error {
	rec, err := f.read()
	if err != nil {
		return err
	}
	rec.VectorStoreID = id

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

func (f *File) read() (*record, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return &record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	return &rec, nil
}
