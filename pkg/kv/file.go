package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// fileIndex is the on-disk document of a File store.
type fileIndex struct {
	Version string            `json:"version"`
	Entries map[string]string `json:"entries"`
	Updated time.Time         `json:"updated"`
}

// File is a Store persisted as a single JSON document. The document is read
// once when the store is opened and rewritten atomically on every change.
type File struct {
	mu    sync.RWMutex
	path  string
	index *fileIndex
}

// OpenFile opens or creates the store at path. A missing or corrupted
// document starts an empty store.
func OpenFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	f := &File{path: path, index: newFileIndex()}
	if err := f.load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		// Corrupted document, start fresh
		f.index = newFileIndex()
	}
	return f, nil
}

func newFileIndex() *fileIndex {
	return &fileIndex{
		Version: "1.0",
		Entries: make(map[string]string),
		Updated: time.Now(),
	}
}

// Path returns the document location.
func (f *File) Path() string { return f.path }

func (f *File) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.index.Entries[key]
	return v, ok, nil
}

func (f *File) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, existed := f.index.Entries[key]
	f.index.Entries[key] = value
	if err := f.saveNoLock(); err != nil {
		if existed {
			f.index.Entries[key] = prev
		} else {
			delete(f.index.Entries, key)
		}
		return err
	}
	return nil
}

func (f *File) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, ok := f.index.Entries[key]
	if !ok {
		return nil
	}
	delete(f.index.Entries, key)
	if err := f.saveNoLock(); err != nil {
		f.index.Entries[key] = prev
		return err
	}
	return nil
}

func (f *File) load() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return err
	}

	var index fileIndex
	if err := json.Unmarshal(data, &index); err != nil {
		return err
	}
	if index.Entries == nil {
		index.Entries = make(map[string]string)
	}
	f.index = &index
	return nil
}

// saveNoLock writes the document. Caller must hold the write lock.
func (f *File) saveNoLock() error {
	f.index.Updated = time.Now()
	data, err := json.MarshalIndent(f.index, "", "  ")
	if err != nil {
		return err
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
