package ingest

import (
	"context"

	"github.com/flowhub-cloud/flowdex/internal/domain/template"
	indexuc "github.com/flowhub-cloud/flowdex/internal/usecase/index"
)

// Store is the corpus contract ingestion jobs write through.
type Store interface {
	Read(slug string) (template.Template, error)
	Write(slug string, tpl template.Template) error
}

// IndexRebuilder regenerates the index artifact. The authoritative sync job
// triggers it as its last step.
type IndexRebuilder interface {
	Rebuild(ctx context.Context) (indexuc.Summary, error)
}

// Report summarizes one ingestion run. Partial ingestion is a valid terminal
// state: Imported counts documents written before any halt.
type Report struct {
	Imported int
	Skipped  int
}
