package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/flowhub-cloud/flowdex/internal/domain"
	"github.com/flowhub-cloud/flowdex/internal/domain/template"
)

// --- Mocks ---

type mockStore struct {
	docs     map[string]template.Template
	readErrs map[string]error
	writeErr error
}

func newMockStore() *mockStore {
	return &mockStore{docs: map[string]template.Template{}}
}

func (m *mockStore) Read(slug string) (template.Template, error) {
	if err := m.readErrs[slug]; err != nil {
		return nil, err
	}
	tpl, ok := m.docs[slug]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return tpl, nil
}

func (m *mockStore) Write(slug string, tpl template.Template) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.docs[slug] = tpl
	return nil
}

func TestImportBareArray(t *testing.T) {
	store := newMockStore()
	imp := NewBulkImporter(store, nil)

	payload := []byte(`[
		{"id": "1", "name": "Lead Capture"},
		{"id": "2", "name": "Invoice Bot"}
	]`)

	report, err := imp.Import(context.Background(), payload)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report.Imported != 2 || report.Skipped != 0 {
		t.Errorf("report = %+v", report)
	}
	if _, ok := store.docs["lead-capture"]; !ok {
		t.Errorf("lead-capture missing, have %v", keys(store.docs))
	}
	if store.docs["invoice-bot"].Slug() != "invoice-bot" {
		t.Error("slug not assigned on document")
	}
}

func TestImportTemplatesEnvelope(t *testing.T) {
	store := newMockStore()
	imp := NewBulkImporter(store, nil)

	payload := []byte(`{"templates": [{"name": "A"}], "meta": {"count": 1}}`)
	report, err := imp.Import(context.Background(), payload)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report.Imported != 1 {
		t.Errorf("report = %+v", report)
	}
}

func TestImportScenariosEnvelope(t *testing.T) {
	store := newMockStore()
	imp := NewBulkImporter(store, nil)

	payload := []byte(`{"scenarios": [{"name": "B"}, {"name": "C"}]}`)
	report, err := imp.Import(context.Background(), payload)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report.Imported != 2 {
		t.Errorf("report = %+v", report)
	}
}

func TestImportMapOfDocuments(t *testing.T) {
	store := newMockStore()
	imp := NewBulkImporter(store, nil)

	payload := []byte(`{
		"first": {"name": "First Flow"},
		"second": {"name": "Second Flow"},
		"junk": "not a document"
	}`)

	report, err := imp.Import(context.Background(), payload)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report.Imported != 2 {
		t.Errorf("report = %+v", report)
	}
}

func TestImportSkipsUnnamed(t *testing.T) {
	store := newMockStore()
	imp := NewBulkImporter(store, nil)

	payload := []byte(`[
		{"name": "Named"},
		{"id": "2"},
		{"name": ""}
	]`)

	report, err := imp.Import(context.Background(), payload)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report.Imported != 1 || report.Skipped != 2 {
		t.Errorf("report = %+v", report)
	}
}

func TestImportKeepsExistingSlug(t *testing.T) {
	store := newMockStore()
	imp := NewBulkImporter(store, nil)

	payload := []byte(`[{"name": "Renamed Later", "slug": "original-slug"}]`)
	if _, err := imp.Import(context.Background(), payload); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if _, ok := store.docs["original-slug"]; !ok {
		t.Errorf("existing slug not kept, have %v", keys(store.docs))
	}
}

func TestImportInvalidPayload(t *testing.T) {
	imp := NewBulkImporter(newMockStore(), nil)

	for _, payload := range []string{`"just a string"`, `42`, `{invalid`} {
		_, err := imp.Import(context.Background(), []byte(payload))
		if !errors.Is(err, domain.ErrMalformedDocument) {
			t.Errorf("Import(%s) = %v, want ErrMalformedDocument", payload, err)
		}
	}
}

func TestImportWriteError(t *testing.T) {
	store := newMockStore()
	store.writeErr = errors.New("disk full")
	imp := NewBulkImporter(store, nil)

	if _, err := imp.Import(context.Background(), []byte(`[{"name": "A"}]`)); err == nil {
		t.Error("Import = nil, want error")
	}
}

func keys(m map[string]template.Template) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
