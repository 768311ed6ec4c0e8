package index

import (
	domindex "github.com/flowhub-cloud/flowdex/internal/domain/index"
	"github.com/flowhub-cloud/flowdex/internal/domain/template"
)

// Corpus defines the storage contract the builder enumerates and writes to.
type Corpus interface {
	ListSlugs() ([]string, error)
	Read(slug string) (template.Template, error)
	WriteIndex(records []domindex.Record) (int, error)
}
