// Package corpus is the durable template store: one JSON file per slug plus
// a single aggregated index artifact alongside them.
package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/flowhub-cloud/flowdex/internal/domain"
	"github.com/flowhub-cloud/flowdex/internal/domain/index"
	"github.com/flowhub-cloud/flowdex/internal/domain/template"
	"github.com/flowhub-cloud/flowdex/internal/slug"
)

const (
	docExt        = ".json"
	indexFileName = "index.json"
)

// Store reads and writes templates under a single directory.
type Store struct {
	dir string
}

// New creates a corpus store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the corpus directory.
func (s *Store) Dir() string { return s.dir }

// Read returns the template stored at slug. Missing file maps to
// domain.ErrNotFound, unparseable content to domain.ErrMalformedDocument.
func (s *Store) Read(slugID string) (template.Template, error) {
	path, err := s.docPath(slugID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("template %q: %w", slugID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read template %q: %w", slugID, err)
	}

	var tpl template.Template
	if err := json.Unmarshal(data, &tpl); err != nil {
		return nil, fmt.Errorf("parse template %q: %w: %w", slugID, domain.ErrMalformedDocument, err)
	}
	return tpl, nil
}

// Write persists the template at slug, replacing any existing file. The
// write goes to a temp file first and is renamed into place, so a reader
// never observes a partial record.
func (s *Store) Write(slugID string, tpl template.Template) error {
	path, err := s.docPath(slugID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(tpl)
	if err != nil {
		return fmt.Errorf("marshal template %q: %w", slugID, err)
	}
	return atomicWrite(path, data)
}

// ListSlugs enumerates all persisted templates. The index artifact is
// excluded. Enumeration order is implementation-defined.
func (s *Store) ListSlugs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read corpus dir: %w", err)
	}

	slugs := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == indexFileName || !strings.HasSuffix(name, docExt) {
			continue
		}
		slugs = append(slugs, strings.TrimSuffix(name, docExt))
	}
	return slugs, nil
}

// ReadIndex loads the index artifact. A missing artifact maps to
// domain.ErrNotFound so readers can degrade to an empty view.
func (s *Store) ReadIndex() ([]index.Record, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, indexFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("index artifact: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read index artifact: %w", err)
	}

	var records []index.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse index artifact: %w: %w", domain.ErrMalformedDocument, err)
	}
	return records, nil
}

// WriteIndex atomically replaces the index artifact with the given records,
// serialized compactly. Returns the artifact size in bytes.
func (s *Store) WriteIndex(records []index.Record) (int, error) {
	if records == nil {
		records = []index.Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return 0, fmt.Errorf("marshal index: %w", err)
	}
	if err := atomicWrite(filepath.Join(s.dir, indexFileName), data); err != nil {
		return 0, err
	}
	return len(data), nil
}

// docPath validates the slug before building any filesystem path.
func (s *Store) docPath(slugID string) (string, error) {
	if err := slug.Validate(slugID); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, slugID+docExt), nil
}

func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
