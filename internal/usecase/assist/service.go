// Package assist assembles RAG-augmented prompts and forwards them to the
// generation provider.
package assist

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/flowhub-cloud/flowdex/internal/usecase/retrieval"
)

const systemPrompt = "You are an automation-workflow assistant. " +
	"Use the provided workflow templates as reference when they are relevant."

// ContextSelector picks top-K cleaned templates for a query.
type ContextSelector interface {
	SelectContext(query string, k int) ([]retrieval.Chunk, error)
}

// Generator produces a completion for an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Answer is the generation result with its context provenance.
type Answer struct {
	Text    string
	Sources []string
}

// Service wires retrieval into prompt assembly.
type Service struct {
	selector ContextSelector
	gen      Generator
	topK     int
	logger   *zap.Logger
}

// New creates an assist service. topK <= 0 uses the selector default.
func New(selector ContextSelector, gen Generator, topK int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{selector: selector, gen: gen, topK: topK, logger: logger}
}

// Answer selects context for the query, formats the prompt and calls the
// generator. An empty context selection is not an error: the prompt simply
// goes out unaugmented.
func (s *Service) Answer(ctx context.Context, query string) (Answer, error) {
	if strings.TrimSpace(query) == "" {
		return Answer{}, fmt.Errorf("query is required")
	}

	chunks, err := s.selector.SelectContext(query, s.topK)
	if err != nil {
		return Answer{}, fmt.Errorf("select context: %w", err)
	}

	sources := make([]string, 0, len(chunks))
	var prompt strings.Builder
	if len(chunks) > 0 {
		prompt.WriteString("Reference templates:\n\n")
		for _, c := range chunks {
			sources = append(sources, c.Slug)
			fmt.Fprintf(&prompt, "=== Template: %s ===\n%s\n\n", c.Slug, c.Content)
		}
	}
	prompt.WriteString("Request: ")
	prompt.WriteString(query)

	s.logger.Debug("assist prompt assembled",
		zap.Int("context_chunks", len(chunks)),
		zap.Int("prompt_bytes", prompt.Len()),
	)

	text, err := s.gen.Generate(ctx, systemPrompt, prompt.String())
	if err != nil {
		return Answer{}, fmt.Errorf("generate: %w", err)
	}

	return Answer{Text: text, Sources: sources}, nil
}
