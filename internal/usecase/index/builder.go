// Package index rebuilds the aggregated listing index from the corpus.
package index

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	domindex "github.com/flowhub-cloud/flowdex/internal/domain/index"
	"github.com/flowhub-cloud/flowdex/internal/metrics"
)

// Builder recomputes the index artifact in one synchronous pass.
type Builder struct {
	corpus  Corpus
	maxDesc int
	logger  *zap.Logger
}

// Summary reports the outcome of a rebuild.
type Summary struct {
	Records  int           `json:"records"`
	Skipped  int           `json:"skipped"`
	Bytes    int           `json:"bytes"`
	Duration time.Duration `json:"-"`
}

// NewBuilder creates an index builder. maxDesc bounds record descriptions
// (0 uses the domain default).
func NewBuilder(corpus Corpus, maxDesc int, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{corpus: corpus, maxDesc: maxDesc, logger: logger}
}

// Rebuild enumerates every document, projects it to a record and atomically
// replaces the index artifact. A document that fails to parse is skipped and
// logged; it never aborts the rebuild. An empty corpus produces an empty
// index.
func (b *Builder) Rebuild(ctx context.Context) (Summary, error) {
	start := time.Now()

	slugs, err := b.corpus.ListSlugs()
	if err != nil {
		return Summary{}, fmt.Errorf("list slugs: %w", err)
	}

	records := make([]domindex.Record, 0, len(slugs))
	skipped := 0
	for _, s := range slugs {
		select {
		case <-ctx.Done():
			return Summary{}, fmt.Errorf("rebuild cancelled: %w", ctx.Err())
		default:
		}

		tpl, err := b.corpus.Read(s)
		if err != nil {
			skipped++
			metrics.IndexMalformedSkipped.Inc()
			b.logger.Warn("skipping unreadable document",
				zap.String("slug", s),
				zap.Error(err),
			)
			continue
		}
		records = append(records, domindex.FromTemplate(tpl, b.maxDesc))
	}

	size, err := b.corpus.WriteIndex(records)
	if err != nil {
		return Summary{}, fmt.Errorf("write index: %w", err)
	}

	summary := Summary{
		Records:  len(records),
		Skipped:  skipped,
		Bytes:    size,
		Duration: time.Since(start),
	}

	metrics.IndexRecords.Set(float64(summary.Records))
	metrics.IndexArtifactBytes.Set(float64(summary.Bytes))
	metrics.IndexRebuildDuration.Observe(summary.Duration.Seconds())

	b.logger.Info("index rebuilt",
		zap.Int("records", summary.Records),
		zap.Int("skipped", summary.Skipped),
		zap.Int("bytes", summary.Bytes),
		zap.Duration("duration", summary.Duration),
	)
	return summary, nil
}
