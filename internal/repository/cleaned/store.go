// Package cleaned stores sanitized template copies used as retrieval
// context. The directory is a derived artifact, separate from the canonical
// corpus, and may be absent before the first cleanse run.
package cleaned

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/flowhub-cloud/flowdex/internal/domain"
	"github.com/flowhub-cloud/flowdex/internal/slug"
)

const docExt = ".json"

// Store reads and writes cleaned templates under a single directory.
type Store struct {
	dir string
}

// New creates a cleaned store rooted at dir. The directory is created lazily
// on the first write so an empty deployment stays empty.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// List enumerates cleaned template slugs. A missing directory yields an
// empty list: "no context available" is a valid state, not an error.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cleaned dir: %w", err)
	}

	slugs := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), docExt) {
			continue
		}
		slugs = append(slugs, strings.TrimSuffix(e.Name(), docExt))
	}
	return slugs, nil
}

// Read returns the raw JSON of a cleaned template.
func (s *Store) Read(slugID string) ([]byte, error) {
	if err := slug.Validate(slugID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, slugID+docExt))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("cleaned template %q: %w", slugID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read cleaned template %q: %w", slugID, err)
	}
	return data, nil
}

// Write persists a cleaned template body.
func (s *Store) Write(slugID string, body any) error {
	if err := slug.Validate(slugID); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("mkdir %s: %w", s.dir, err)
	}

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal cleaned template %q: %w", slugID, err)
	}

	path := filepath.Join(s.dir, slugID+docExt)
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
