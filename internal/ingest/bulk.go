package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/flowhub-cloud/flowdex/internal/domain"
	"github.com/flowhub-cloud/flowdex/internal/domain/template"
	"github.com/flowhub-cloud/flowdex/internal/metrics"
	"github.com/flowhub-cloud/flowdex/internal/slug"
)

// BulkImporter ingests a raw JSON payload of templates in one batch.
type BulkImporter struct {
	store  Store
	logger *zap.Logger
}

// NewBulkImporter creates a bulk importer.
func NewBulkImporter(store Store, logger *zap.Logger) *BulkImporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BulkImporter{store: store, logger: logger}
}

// Import normalizes the payload to a flat sequence and writes every named
// document. Accepted shapes: a bare array, an object with a "templates" or
// "scenarios" array, or (best effort) a plain map whose values are
// document-shaped. Documents lacking a name are counted and skipped, never
// fatal: partial corpora from noisy sources are expected.
func (b *BulkImporter) Import(ctx context.Context, payload []byte) (Report, error) {
	items, err := normalizePayload(payload)
	if err != nil {
		return Report{}, err
	}

	var report Report
	for _, item := range items {
		select {
		case <-ctx.Done():
			return report, fmt.Errorf("bulk import cancelled: %w", ctx.Err())
		default:
		}

		written, err := writeTemplate(b.store, item, "bulk", b.logger)
		if err != nil {
			return report, err
		}
		if written {
			report.Imported++
		} else {
			report.Skipped++
		}
	}

	b.logger.Info("bulk import finished",
		zap.Int("imported", report.Imported),
		zap.Int("skipped", report.Skipped),
	)
	return report, nil
}

// normalizePayload flattens the accepted payload shapes into a sequence.
func normalizePayload(payload []byte) ([]template.Template, error) {
	var root any
	if err := json.Unmarshal(payload, &root); err != nil {
		return nil, fmt.Errorf("parse bulk payload: %w: %w", domain.ErrMalformedDocument, err)
	}

	switch v := root.(type) {
	case []any:
		return templatesFromSlice(v), nil
	case map[string]any:
		for _, field := range []string{"templates", "scenarios"} {
			if arr, ok := v[field].([]any); ok {
				return templatesFromSlice(arr), nil
			}
		}
		// Unrecognized object shape: treat it as a map of documents.
		items := make([]template.Template, 0, len(v))
		for _, e := range v {
			if m, ok := e.(map[string]any); ok {
				items = append(items, template.Template(m))
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("bulk payload must be an array or object: %w", domain.ErrMalformedDocument)
	}
}

func templatesFromSlice(arr []any) []template.Template {
	items := make([]template.Template, 0, len(arr))
	for _, e := range arr {
		if m, ok := e.(map[string]any); ok {
			items = append(items, template.Template(m))
		}
	}
	return items
}

// writeTemplate assigns a slug and persists one document. Returns false when
// the document was skipped for lacking a name. An already-present valid slug
// is kept: slugs are minted once and immutable thereafter.
func writeTemplate(store Store, tpl template.Template, source string, logger *zap.Logger) (bool, error) {
	if tpl.Name() == "" {
		metrics.DocumentsSkipped.WithLabelValues(source, "no_name").Inc()
		return false, nil
	}

	s := tpl.Slug()
	if slug.Validate(s) != nil {
		s = slug.Slugify(tpl.Name())
		if s == "" {
			metrics.DocumentsSkipped.WithLabelValues(source, "empty_slug").Inc()
			logger.Warn("skipping document with unslugifiable name", zap.String("name", tpl.Name()))
			return false, nil
		}
		tpl.SetSlug(s)
	}

	if err := store.Write(s, tpl); err != nil {
		return false, fmt.Errorf("write %q: %w", s, err)
	}
	metrics.DocumentsIngested.WithLabelValues(source).Inc()
	return true, nil
}
