// Package docstore keeps board documents on disk: crash-safe saves, an
// append-only revision archive, and a watcher for external edits.
package docstore

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dd0wney/patchboard/pkg/document"
	"github.com/dd0wney/patchboard/pkg/logging"
)

// Store reads and writes one board document at a fixed path. Saves go
// through a temporary sibling file and an atomic rename, so a crash leaves
// either the old document or the new one, never a torn write.
type Store struct {
	path    string
	archive *Archive
	logger  logging.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithArchive attaches a revision archive. Every successful Save appends
// one revision after the document file is replaced.
func WithArchive(a *Archive) StoreOption {
	return func(s *Store) { s.archive = a }
}

// WithStoreLogger overrides the default logger.
func WithStoreLogger(l logging.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// ArchivePath returns the conventional archive location for a document:
// the document path with ".revs" appended.
func ArchivePath(docPath string) string {
	return docPath + ".revs"
}

// NewStore creates a store for the document at path.
func NewStore(path string, opts ...StoreOption) *Store {
	s := &Store{
		path:   path,
		logger: logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logging.Component("docstore"), logging.Path(path))
	return s
}

// Path returns the document path.
func (s *Store) Path() string { return s.path }

// Archive returns the attached revision archive, or nil.
func (s *Store) Archive() *Archive { return s.archive }

// Exists reports whether the document file is present on disk.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads and decodes the document. Malformed entities are skipped by
// the decoder and returned as diagnostics; err is non-nil only for I/O or
// document-level failures.
func (s *Store) Load() (doc *document.Document, malformed []error, err error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, nil, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()

	dec := document.NewDecoder(f)
	doc, err = dec.Decode()
	if err != nil {
		return nil, nil, err
	}

	malformed = dec.Malformed()
	s.logger.Info("document loaded",
		logging.Int("nodes", len(doc.Nodes)),
		logging.Int("edges", len(doc.Edges)),
		logging.Int("malformed", len(malformed)))
	return doc, malformed, nil
}

// Save encodes doc and atomically replaces the document file, then appends
// a revision when an archive is attached.
func (s *Store) Save(doc *document.Document) error {
	var buf bytes.Buffer
	if err := document.Encode(&buf, doc); err != nil {
		return err
	}

	if err := s.writeAtomic(buf.Bytes()); err != nil {
		return err
	}

	if s.archive != nil {
		if _, err := s.archive.Append(doc); err != nil {
			s.logger.Error("revision append failed", logging.Err(err))
			return fmt.Errorf("append revision: %w", err)
		}
	}

	s.logger.Info("document saved",
		logging.Int("nodes", len(doc.Nodes)),
		logging.Int("edges", len(doc.Edges)),
		logging.Int("bytes", buf.Len()))
	return nil
}

// writeAtomic writes data next to the document and renames it into place.
func (s *Store) writeAtomic(data []byte) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create document directory: %w", err)
		}
	}

	tmpPath := s.path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temporary file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temporary file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temporary file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace document: %w", err)
	}
	return nil
}
