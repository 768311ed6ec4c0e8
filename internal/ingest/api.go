package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/flowhub-cloud/flowdex/internal/domain"
	"github.com/flowhub-cloud/flowdex/internal/domain/template"
)

const (
	defaultPageSize  = 50
	defaultPageDelay = 500 * time.Millisecond
)

// APIConfig configures the authenticated paginated fetch.
type APIConfig struct {
	// Regions maps region names to API base URLs. The job probes them and
	// uses the first one that authenticates.
	Regions   map[string]string
	Token     string
	PageSize  int
	PageDelay time.Duration
}

// APIJob pulls templates from a remote paginated API.
type APIJob struct {
	cfg     APIConfig
	client  *http.Client
	store   Store
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewAPIJob creates an API ingestion job. The page delay becomes a rate
// limiter: it is a politeness requirement of the upstream source, not an
// optimization.
func NewAPIJob(cfg APIConfig, store Store, logger *zap.Logger) *APIJob {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.PageDelay <= 0 {
		cfg.PageDelay = defaultPageDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIJob{
		cfg:     cfg,
		client:  &http.Client{Timeout: 30 * time.Second},
		store:   store,
		limiter: rate.NewLimiter(rate.Every(cfg.PageDelay), 1),
		logger:  logger,
	}
}

// Fetch probes the regional endpoints, then pages through the winning one
// with an offset cursor until a page comes back empty. A non-success status
// mid-run halts the job: everything already written stays, and the report
// carries the partial count alongside domain.ErrUpstreamUnavailable.
func (j *APIJob) Fetch(ctx context.Context) (Report, error) {
	region, baseURL, err := j.detectRegion(ctx)
	if err != nil {
		return Report{}, err
	}
	j.logger.Info("region selected", zap.String("region", region))

	var report Report
	offset := 0
	for {
		if err := j.limiter.Wait(ctx); err != nil {
			return report, fmt.Errorf("page delay: %w", err)
		}

		items, status, err := j.fetchPage(ctx, baseURL, offset)
		if err != nil {
			return report, err
		}
		if status != http.StatusOK {
			return report, fmt.Errorf(
				"page at offset %d returned status %d after %d documents: %w",
				offset, status, report.Imported, domain.ErrUpstreamUnavailable,
			)
		}
		if len(items) == 0 {
			break
		}

		for _, item := range items {
			written, err := writeTemplate(j.store, item, "api", j.logger)
			if err != nil {
				return report, err
			}
			if written {
				report.Imported++
			} else {
				report.Skipped++
			}
		}

		j.logger.Debug("page ingested", zap.Int("offset", offset), zap.Int("items", len(items)))
		offset += j.cfg.PageSize
	}

	j.logger.Info("api fetch finished",
		zap.String("region", region),
		zap.Int("imported", report.Imported),
		zap.Int("skipped", report.Skipped),
	)
	return report, nil
}

// detectRegion probes each configured region with a one-item request and
// returns the first that authenticates. Probing order is sorted by region
// name so runs are deterministic.
func (j *APIJob) detectRegion(ctx context.Context) (string, string, error) {
	names := make([]string, 0, len(j.cfg.Regions))
	for name := range j.cfg.Regions {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		baseURL := j.cfg.Regions[name]
		status, err := j.probe(ctx, baseURL)
		if err != nil {
			j.logger.Warn("region probe failed", zap.String("region", name), zap.Error(err))
			continue
		}
		if status == http.StatusOK {
			return name, baseURL, nil
		}
		j.logger.Warn("region rejected credentials",
			zap.String("region", name),
			zap.Int("status", status),
		)
	}

	return "", "", fmt.Errorf(
		"no region accepted credentials (probed: %s): %w",
		strings.Join(names, ", "), domain.ErrAuthenticationFailed,
	)
}

func (j *APIJob) probe(ctx context.Context, baseURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/templates?limit=1&offset=0", baseURL), http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+j.cfg.Token)

	resp, err := j.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("probe request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	return resp.StatusCode, nil
}

// apiPage is the upstream page envelope. Some deployments return a bare
// array instead, which fetchPage also accepts.
type apiPage struct {
	Templates []template.Template `json:"templates"`
}

func (j *APIJob) fetchPage(ctx context.Context, baseURL string, offset int) ([]template.Template, int, error) {
	url := fmt.Sprintf("%s/templates?limit=%d&offset=%d", baseURL, j.cfg.PageSize, offset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, 0, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+j.cfg.Token)

	resp, err := j.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("page request at offset %d: %w: %w", offset, domain.ErrUpstreamUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, resp.StatusCode, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read page at offset %d: %w", offset, err)
	}

	var page apiPage
	if err := json.Unmarshal(body, &page); err == nil && page.Templates != nil {
		return page.Templates, http.StatusOK, nil
	}

	var bare []template.Template
	if err := json.Unmarshal(body, &bare); err != nil {
		return nil, 0, fmt.Errorf("parse page at offset %d: %w: %w", offset, domain.ErrMalformedDocument, err)
	}
	return bare, http.StatusOK, nil
}
