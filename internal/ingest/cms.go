package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/flowhub-cloud/flowdex/internal/domain"
	"github.com/flowhub-cloud/flowdex/internal/domain/template"
	"github.com/flowhub-cloud/flowdex/internal/metrics"
	"github.com/flowhub-cloud/flowdex/internal/slug"
)

// CMSConfig configures the authoritative content sync.
type CMSConfig struct {
	BaseURL  string
	Token    string
	PageSize int
}

// CMSJob syncs the corpus against the content database, the authoritative
// source: its field values win on conflict, while local-only fields survive.
type CMSJob struct {
	cfg       CMSConfig
	client    *http.Client
	store     Store
	rebuilder IndexRebuilder
	logger    *zap.Logger
}

// NewCMSJob creates a CMS sync job.
func NewCMSJob(cfg CMSConfig, store Store, rebuilder IndexRebuilder, logger *zap.Logger) *CMSJob {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CMSJob{
		cfg:       cfg,
		client:    &http.Client{Timeout: 30 * time.Second},
		store:     store,
		rebuilder: rebuilder,
		logger:    logger,
	}
}

// cmsPage is the content API page envelope.
type cmsPage struct {
	Records    []template.Template `json:"records"`
	Page       int                 `json:"page"`
	TotalPages int                 `json:"totalPages"`
}

// Sync merges every remote record into the corpus, then rebuilds the index
// so the cached listing never drifts far from a sync.
func (j *CMSJob) Sync(ctx context.Context) (Report, error) {
	var report Report

	for page := 1; ; page++ {
		records, err := j.fetchPage(ctx, page)
		if err != nil {
			return report, err
		}
		if len(records) == 0 {
			break
		}

		for _, remote := range records {
			merged, ok := j.mergeRecord(remote)
			if !ok {
				report.Skipped++
				continue
			}
			if err := j.store.Write(merged.Slug(), merged); err != nil {
				return report, fmt.Errorf("write %q: %w", merged.Slug(), err)
			}
			metrics.DocumentsIngested.WithLabelValues("cms").Inc()
			report.Imported++
		}
	}

	summary, err := j.rebuilder.Rebuild(ctx)
	if err != nil {
		return report, fmt.Errorf("post-sync index rebuild: %w", err)
	}

	j.logger.Info("cms sync finished",
		zap.Int("imported", report.Imported),
		zap.Int("skipped", report.Skipped),
		zap.Int("index_records", summary.Records),
	)
	return report, nil
}

// mergeRecord overlays the authoritative record onto any existing local
// document. Records without a stable external id are skipped with a warning.
func (j *CMSJob) mergeRecord(remote template.Template) (template.Template, bool) {
	if remote.ID() == "" {
		metrics.DocumentsSkipped.WithLabelValues("cms", "no_id").Inc()
		j.logger.Warn("skipping record without stable id", zap.String("name", remote.Name()))
		return nil, false
	}

	s := remote.Slug()
	if slug.Validate(s) != nil {
		s = slug.Slugify(remote.Name())
	}
	if s == "" {
		metrics.DocumentsSkipped.WithLabelValues("cms", "empty_slug").Inc()
		j.logger.Warn("skipping record without usable slug", zap.String("id", remote.ID()))
		return nil, false
	}

	existing, err := j.store.Read(s)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			// Malformed local file: the authoritative record replaces it.
			j.logger.Warn("existing document unreadable, replacing", zap.String("slug", s), zap.Error(err))
		}
		existing = template.Template{}
	}

	merged := template.Merge(existing, remote)
	merged.SetSlug(s)
	return merged, true
}

func (j *CMSJob) fetchPage(ctx context.Context, page int) ([]template.Template, error) {
	url := fmt.Sprintf("%s/records?page=%d&pageSize=%d", j.cfg.BaseURL, page, j.cfg.PageSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if j.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+j.cfg.Token)
	}

	resp, err := j.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cms page %d: %w: %w", page, domain.ErrUpstreamUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("cms page %d returned status %d: %w", page, resp.StatusCode, domain.ErrUpstreamUnavailable)
	}

	var body cmsPage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("parse cms page %d: %w: %w", page, domain.ErrMalformedDocument, err)
	}
	return body.Records, nil
}
