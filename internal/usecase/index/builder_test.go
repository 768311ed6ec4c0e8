package index

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/flowhub-cloud/flowdex/internal/domain"
	domindex "github.com/flowhub-cloud/flowdex/internal/domain/index"
	"github.com/flowhub-cloud/flowdex/internal/domain/template"
)

// --- Mocks ---

type mockCorpus struct {
	docs     map[string]template.Template
	badSlugs map[string]bool
	listErr  error
	writeErr error

	written []domindex.Record
}

func (m *mockCorpus) ListSlugs() ([]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	slugs := make([]string, 0, len(m.docs)+len(m.badSlugs))
	for s := range m.docs {
		slugs = append(slugs, s)
	}
	for s := range m.badSlugs {
		slugs = append(slugs, s)
	}
	return slugs, nil
}

func (m *mockCorpus) Read(slug string) (template.Template, error) {
	if m.badSlugs[slug] {
		return nil, fmt.Errorf("parse: %w", domain.ErrMalformedDocument)
	}
	tpl, ok := m.docs[slug]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return tpl, nil
}

func (m *mockCorpus) WriteIndex(records []domindex.Record) (int, error) {
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	m.written = records
	return len(records) * 10, nil
}

func TestRebuild(t *testing.T) {
	corpus := &mockCorpus{
		docs: map[string]template.Template{
			"a": {"id": "1", "name": "A", "slug": "a", "category": "Sales"},
			"b": {"id": "2", "name": "B", "slug": "b"},
		},
	}
	b := NewBuilder(corpus, 0, nil)

	summary, err := b.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	if summary.Records != 2 || summary.Skipped != 0 {
		t.Errorf("summary = %+v", summary)
	}
	if len(corpus.written) != 2 {
		t.Errorf("written %d records", len(corpus.written))
	}
	for _, r := range corpus.written {
		if r.Slug == "b" && r.Category != template.DefaultCategory {
			t.Errorf("record b category = %q", r.Category)
		}
	}
}

func TestRebuildSkipsMalformed(t *testing.T) {
	corpus := &mockCorpus{
		docs: map[string]template.Template{
			"good": {"id": "1", "name": "Good", "slug": "good"},
		},
		badSlugs: map[string]bool{"bad": true},
	}
	b := NewBuilder(corpus, 0, nil)

	summary, err := b.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if summary.Records != 1 || summary.Skipped != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if len(corpus.written) != 1 || corpus.written[0].Slug != "good" {
		t.Errorf("written = %+v", corpus.written)
	}
}

func TestRebuildEmptyCorpus(t *testing.T) {
	corpus := &mockCorpus{docs: map[string]template.Template{}}
	b := NewBuilder(corpus, 0, nil)

	summary, err := b.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if summary.Records != 0 {
		t.Errorf("summary = %+v", summary)
	}
	if corpus.written == nil {
		t.Error("empty index not written")
	}
}

func TestRebuildListError(t *testing.T) {
	corpus := &mockCorpus{listErr: errors.New("disk gone")}
	b := NewBuilder(corpus, 0, nil)

	if _, err := b.Rebuild(context.Background()); err == nil {
		t.Error("Rebuild = nil, want error")
	}
}

func TestRebuildCancelled(t *testing.T) {
	corpus := &mockCorpus{
		docs: map[string]template.Template{"a": {"name": "A"}},
	}
	b := NewBuilder(corpus, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := b.Rebuild(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
