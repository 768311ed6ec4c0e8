package cleaned

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"sort"
	"testing"

	"github.com/flowhub-cloud/flowdex/internal/domain"
)

func TestListMissingDir(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "never-created"))
	slugs, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(slugs) != 0 {
		t.Errorf("List = %v, want empty", slugs)
	}
}

func TestWriteCreatesDirAndRoundtrips(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cleaned")
	s := New(dir)

	body := map[string]any{"name": "A", "webhookId": "{{WEBHOOKID}}"}
	if err := s.Write("a", body); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := s.Read("a")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["webhookId"] != "{{WEBHOOKID}}" {
		t.Errorf("roundtrip = %v", got)
	}
}

func TestReadMissing(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.Read("nope")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestInvalidSlug(t *testing.T) {
	s := New(t.TempDir())
	if _, err := s.Read("../x"); !errors.Is(err, domain.ErrInvalidIdentifier) {
		t.Errorf("Read = %v, want ErrInvalidIdentifier", err)
	}
	if err := s.Write("a/b", map[string]any{}); !errors.Is(err, domain.ErrInvalidIdentifier) {
		t.Errorf("Write = %v, want ErrInvalidIdentifier", err)
	}
}

func TestList(t *testing.T) {
	s := New(t.TempDir())
	for _, slug := range []string{"x", "y"} {
		if err := s.Write(slug, map[string]any{"name": slug}); err != nil {
			t.Fatalf("Write(%q): %v", slug, err)
		}
	}

	slugs, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	sort.Strings(slugs)
	if len(slugs) != 2 || slugs[0] != "x" || slugs[1] != "y" {
		t.Errorf("List = %v", slugs)
	}
}
