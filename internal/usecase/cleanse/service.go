// Package cleanse is the batch pass that produces the sanitized copy of the
// corpus used as retrieval context.
package cleanse

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/flowhub-cloud/flowdex/internal/domain/template"
	"github.com/flowhub-cloud/flowdex/internal/sanitize"
)

// Corpus enumerates and reads canonical templates.
type Corpus interface {
	ListSlugs() ([]string, error)
	Read(slug string) (template.Template, error)
}

// CleanedWriter persists sanitized copies.
type CleanedWriter interface {
	Write(slug string, body any) error
}

// Report summarizes one cleanse run.
type Report struct {
	Cleaned int
	Skipped int
}

// Service walks the corpus, sanitizes every document and writes the cleaned
// copy. Originals are never mutated.
type Service struct {
	corpus  Corpus
	cleaned CleanedWriter
	logger  *zap.Logger
}

// New creates a cleanse service.
func New(corpus Corpus, cleaned CleanedWriter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{corpus: corpus, cleaned: cleaned, logger: logger}
}

// Run cleans the whole corpus. Unreadable documents are skipped and logged,
// matching the index builder's skip-and-log policy for whole-corpus scans.
func (s *Service) Run(ctx context.Context) (Report, error) {
	slugs, err := s.corpus.ListSlugs()
	if err != nil {
		return Report{}, fmt.Errorf("list slugs: %w", err)
	}

	var report Report
	for _, sl := range slugs {
		select {
		case <-ctx.Done():
			return report, fmt.Errorf("cleanse cancelled: %w", ctx.Err())
		default:
		}

		tpl, err := s.corpus.Read(sl)
		if err != nil {
			report.Skipped++
			s.logger.Warn("skipping unreadable document", zap.String("slug", sl), zap.Error(err))
			continue
		}

		if err := s.cleaned.Write(sl, sanitize.Clean(map[string]any(tpl))); err != nil {
			return report, fmt.Errorf("write cleaned %q: %w", sl, err)
		}
		report.Cleaned++
	}

	s.logger.Info("corpus cleansed",
		zap.Int("cleaned", report.Cleaned),
		zap.Int("skipped", report.Skipped),
	)
	return report, nil
}
