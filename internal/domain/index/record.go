package index

import (
	"strings"

	"github.com/flowhub-cloud/flowdex/internal/domain/template"
)

// MaxDescription is the default description truncation length for records.
const MaxDescription = 150

// Record is the compact listing projection of a template. The whole index is
// a derived artifact: it holds nothing that cannot be recomputed from the
// corpus.
type Record struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags,omitempty"`
	Price       float64  `json:"price"`
	Usage       int      `json:"usage"`
}

// FromTemplate projects a template into a Record, collapsing whitespace in
// the description and truncating it to maxDesc runes (MaxDescription if
// maxDesc <= 0).
func FromTemplate(t template.Template, maxDesc int) Record {
	if maxDesc <= 0 {
		maxDesc = MaxDescription
	}
	return Record{
		ID:          t.ID(),
		Name:        t.Name(),
		Slug:        t.Slug(),
		Description: truncate(collapseWhitespace(t.Description()), maxDesc),
		Category:    t.Category(),
		Tags:        t.Tags(),
		Price:       t.Price(),
		Usage:       t.Usage(),
	}
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
