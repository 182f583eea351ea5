// Package store persists the whole sync state as one JSON document on disk.
// Every mutation is a full load-modify-save cycle; a process-wide mutex
// serializes the cycles so concurrent requests cannot lose each other's
// writes.
package store

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// Store reads and writes the sync document at a fixed path.
type Store struct {
	mu   sync.Mutex
	path string
}

// New creates a store backed by the JSON file at path. The file is not
// created until the first save.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
		}
	}
	return &Store{path: path}, nil
}

// Load reads the document from disk. A missing file yields the zero
// document; a document written by an older version without the urls
// collection gets empty defaults.
func (s *Store) Load() (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save writes the document back to disk, replacing the previous contents.
func (s *Store) Save(doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(doc)
}

// Update runs fn against the current document and persists the result if fn
// succeeds. The lock is held across the whole cycle.
func (s *Store) Update(fn func(doc *Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.save(doc)
}

// View runs fn against a freshly loaded document without persisting.
func (s *Store) View(fn func(doc *Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	return fn(doc)
}

func (s *Store) load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return emptyDocument(), nil
		}
		return nil, fmt.Errorf("failed to read data file %s: %w", s.path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse data file %s: %w", s.path, err)
	}

	// Older documents predate the url collections; nil slices would also
	// serialize as null instead of [].
	if doc.Texts == nil {
		doc.Texts = []TextRecord{}
	}
	if doc.Files == nil {
		doc.Files = []FileRecord{}
	}
	if doc.URLs == nil {
		doc.URLs = []URLRecord{}
	}

	return &doc, nil
}

func (s *Store) save(doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	// Write-then-rename so a crash mid-write cannot leave a torn file.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write data file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace data file: %w", err)
	}
	return nil
}

func emptyDocument() *Document {
	return &Document{
		Texts: []TextRecord{},
		Files: []FileRecord{},
		URLs:  []URLRecord{},
	}
}

// ShortCode derives the short code for a counter value: the first 8 hex
// characters of the MD5 of its decimal representation. Codes cannot collide
// while the counter is strictly increasing and never reused.
func ShortCode(counter int64) string {
	sum := md5.Sum([]byte(strconv.FormatInt(counter, 10)))
	return hex.EncodeToString(sum[:])[:8]
}
