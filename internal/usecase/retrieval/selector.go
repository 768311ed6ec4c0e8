// Package retrieval selects top-K cleaned templates by keyword overlap for
// prompt augmentation. The signal is intentionally coarse: tokens are matched
// against the template slug, not the document body. Precision is a known
// limitation of this selector, not something to fix here without changing
// the scoring contract.
package retrieval

import (
	"math/rand"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// DefaultTopK is the number of context chunks selected when k <= 0.
const DefaultTopK = 3

// CleanedStore enumerates and reads sanitized templates.
type CleanedStore interface {
	List() ([]string, error)
	Read(slug string) ([]byte, error)
}

// Chunk is one selected context document, tagged with its source slug for
// traceability.
type Chunk struct {
	Slug    string
	Content []byte
}

// Selector scores cleaned templates against a free-text query.
type Selector struct {
	store  CleanedStore
	logger *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector creates a selector. rng is injectable for deterministic tests;
// nil seeds from the clock.
func NewSelector(store CleanedStore, rng *rand.Rand, logger *zap.Logger) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{store: store, rng: rng, logger: logger}
}

// SelectContext returns up to k cleaned templates ranked by how many query
// tokens their slug contains, with a small random jitter to break ties.
// When no token matches anything the jitter alone orders the candidates, so
// the result still has k entries as long as k documents exist. A missing
// cleaned-document directory yields an empty slice: callers proceed without
// augmentation.
func (s *Selector) SelectContext(query string, k int) ([]Chunk, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	slugs, err := s.store.List()
	if err != nil {
		return nil, err
	}
	if len(slugs) == 0 {
		return nil, nil
	}

	tokens := Tokenize(query)

	type scored struct {
		slug  string
		score float64
	}
	candidates := make([]scored, len(slugs))
	for i, sl := range slugs {
		score := 0.0
		for _, tok := range tokens {
			if strings.Contains(sl, tok) {
				score++
			}
		}
		candidates[i] = scored{slug: sl, score: score + s.jitter()}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	chunks := make([]Chunk, 0, k)
	for _, c := range candidates {
		if len(chunks) == k {
			break
		}
		content, err := s.store.Read(c.slug)
		if err != nil {
			s.logger.Warn("skipping unreadable cleaned document",
				zap.String("slug", c.slug),
				zap.Error(err),
			)
			continue
		}
		chunks = append(chunks, Chunk{Slug: c.slug, Content: content})
	}
	return chunks, nil
}

// jitter returns a tie-breaking value uniform in [0, 0.1).
func (s *Selector) jitter() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() * 0.1
}

// Tokenize splits a query into lowercased alphanumeric runs, discarding runs
// of length <= 2 as non-discriminating.
func Tokenize(query string) []string {
	lower := strings.ToLower(query)
	var tokens []string
	var run strings.Builder

	flush := func() {
		if run.Len() > 2 {
			tokens = append(tokens, run.String())
		}
		run.Reset()
	}

	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			run.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}
