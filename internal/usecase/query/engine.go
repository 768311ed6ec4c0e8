// Package query serves filtered, paginated, substring-searched views over
// the cached index.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/flowhub-cloud/flowdex/internal/domain"
	domindex "github.com/flowhub-cloud/flowdex/internal/domain/index"
)

// CategoryAll is the sentinel that disables category filtering.
const CategoryAll = "All"

// IndexReader loads the index artifact.
type IndexReader interface {
	ReadIndex() ([]domindex.Record, error)
}

// Params describe one query. Page is 1-indexed.
type Params struct {
	Page       int
	PageSize   int
	Search     string
	Category   string
	Complexity string
}

// Result is the filtered, paginated view. Total counts post-filter,
// pre-pagination.
type Result struct {
	Records []domindex.Record
	Total   int
	HasMore bool
}

// Engine caches the index in memory for the process lifetime. The cache has
// no automatic invalidation: Reload, triggered by the index builder's
// completion hook or an operator action, is the only refresh mechanism.
// Safe for concurrent readers; Reload swaps the cache under a write lock.
type Engine struct {
	src    IndexReader
	logger *zap.Logger

	mu      sync.RWMutex
	records []domindex.Record
	loaded  bool
}

// NewEngine creates a query engine over the given index source.
func NewEngine(src IndexReader, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{src: src, logger: logger}
}

// Reload replaces the cached index from the artifact. A missing artifact
// yields an empty cache, not an error: the engine degrades gracefully until
// the first rebuild has run.
func (e *Engine) Reload(_ context.Context) error {
	records, err := e.src.ReadIndex()
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			records = nil
		} else {
			return fmt.Errorf("reload index: %w", err)
		}
	}

	e.mu.Lock()
	e.records = records
	e.loaded = true
	e.mu.Unlock()

	e.logger.Info("index cache reloaded", zap.Int("records", len(records)))
	return nil
}

// Query filters and paginates the cached index. Filters compose with AND in
// the order category, complexity, search. A page past the end returns an
// empty record list with the correct total.
func (e *Engine) Query(ctx context.Context, p Params) (Result, error) {
	if p.Page < 1 {
		return Result{}, fmt.Errorf("page must be >= 1, got %d", p.Page)
	}
	if p.PageSize < 1 {
		return Result{}, fmt.Errorf("pageSize must be >= 1, got %d", p.PageSize)
	}
	if p.Complexity != "" && !domindex.ValidComplexity(p.Complexity) {
		return Result{}, fmt.Errorf("unknown complexity %q", p.Complexity)
	}

	all, err := e.cached(ctx)
	if err != nil {
		return Result{}, err
	}

	filtered := filter(all, p)

	total := len(filtered)
	start := (p.Page - 1) * p.PageSize
	end := start + p.PageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return Result{
		Records: filtered[start:end],
		Total:   total,
		HasMore: total > p.Page*p.PageSize,
	}, nil
}

// cached returns the in-memory index, loading it on first use.
func (e *Engine) cached(ctx context.Context) ([]domindex.Record, error) {
	e.mu.RLock()
	if e.loaded {
		records := e.records
		e.mu.RUnlock()
		return records, nil
	}
	e.mu.RUnlock()

	if err := e.Reload(ctx); err != nil {
		return nil, err
	}

	e.mu.RLock()
	records := e.records
	e.mu.RUnlock()
	return records, nil
}

func filter(records []domindex.Record, p Params) []domindex.Record {
	out := make([]domindex.Record, 0, len(records))
	search := strings.ToLower(strings.TrimSpace(p.Search))

	for _, r := range records {
		if p.Category != "" && p.Category != CategoryAll && r.Category != p.Category {
			continue
		}
		if p.Complexity != "" && domindex.ComplexityFor(r.Usage) != p.Complexity {
			continue
		}
		if search != "" && !matchesSearch(r, search) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matchesSearch(r domindex.Record, search string) bool {
	return strings.Contains(strings.ToLower(r.Name), search) ||
		strings.Contains(strings.ToLower(r.Description), search) ||
		strings.Contains(strings.ToLower(r.Slug), search)
}
