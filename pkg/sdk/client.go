package flowdex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client is the flowdex API client.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpc = c }
}

// WithTimeout sets the request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.httpc.Timeout = d }
}

// New creates a flowdex Client for the given base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("flowdex: base URL required")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// TemplateSummary is a single listing entry.
type TemplateSummary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Price       float64  `json:"price"`
	Usage       int      `json:"usage"`
	Complexity  string   `json:"complexity"`
}

// ListParams filters and paginates a listing request. Zero values are
// omitted and fall back to server defaults.
type ListParams struct {
	Page       int
	PageSize   int
	Search     string
	Category   string
	Complexity string
}

// ListResult is a page of the corpus listing.
type ListResult struct {
	Templates []TemplateSummary `json:"templates"`
	Total     int               `json:"total"`
	Page      int               `json:"page"`
	PageSize  int               `json:"pageSize"`
	HasMore   bool              `json:"hasMore"`
}

// Answer is a generated assist response with its context provenance.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// APIError is a non-2xx response from the service.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("flowdex: %s (%d): %s", e.Code, e.Status, e.Message)
}

// List fetches a page of the template listing.
func (c *Client) List(ctx context.Context, params ListParams) (ListResult, error) {
	q := url.Values{}
	if params.Page > 0 {
		q.Set("page", strconv.Itoa(params.Page))
	}
	if params.PageSize > 0 {
		q.Set("limit", strconv.Itoa(params.PageSize))
	}
	if params.Search != "" {
		q.Set("search", params.Search)
	}
	if params.Category != "" {
		q.Set("category", params.Category)
	}
	if params.Complexity != "" {
		q.Set("complexity", params.Complexity)
	}

	path := "/api/templates"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out ListResult
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return ListResult{}, err
	}
	return out, nil
}

// Get fetches a full template document by slug.
func (c *Client) Get(ctx context.Context, slug string) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, http.MethodGet, "/api/templates/"+url.PathEscape(slug), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Download fetches the raw template JSON for export.
func (c *Client) Download(ctx context.Context, slug string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/templates/"+url.PathEscape(slug)+"/download", nil)
	if err != nil {
		return nil, fmt.Errorf("flowdex: build request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("flowdex: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, parseError(resp)
	}
	return io.ReadAll(resp.Body)
}

// Assist asks the service for a generated answer grounded in the corpus.
func (c *Client) Assist(ctx context.Context, query string) (Answer, error) {
	body := map[string]string{"query": query}
	var out Answer
	if err := c.do(ctx, http.MethodPost, "/api/assist", body, &out); err != nil {
		return Answer{}, err
	}
	return out, nil
}

// Reindex asks the service to rebuild the index artifact.
func (c *Client) Reindex(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/admin/reindex", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("flowdex: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("flowdex: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("flowdex: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("flowdex: decode response: %w", err)
	}
	return nil
}

// parseError turns an error response into an APIError wrapping the matching
// sentinel where one exists.
func parseError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Message
	}

	switch apiErr.Code {
	case "not_found":
		return fmt.Errorf("%w: %w", ErrNotFound, apiErr)
	case "invalid_identifier":
		return fmt.Errorf("%w: %w", ErrInvalidIdentifier, apiErr)
	case "generation_unavailable", "generation_unconfigured":
		return fmt.Errorf("%w: %w", ErrGenerationUnavailable, apiErr)
	}
	return apiErr
}
