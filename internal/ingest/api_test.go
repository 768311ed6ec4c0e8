package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/flowhub-cloud/flowdex/internal/domain"
)

// fakeAPI serves a fixed set of templates with limit/offset pagination.
type fakeAPI struct {
	token     string
	templates []map[string]any
	failAfter int // return 500 once this many items were served; 0 disables
	served    int
}

func (f *fakeAPI) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+f.token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		if f.failAfter > 0 && f.served >= f.failAfter {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		end := offset + limit
		if offset > len(f.templates) {
			offset = len(f.templates)
		}
		if end > len(f.templates) {
			end = len(f.templates)
		}
		page := f.templates[offset:end]
		if limit > 1 { // probes do not count as served pages
			f.served += len(page)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"templates": page})
	}
}

func makeTemplates(n int) []map[string]any {
	out := make([]map[string]any, n)
	for i := range out {
		out[i] = map[string]any{
			"id":   fmt.Sprintf("%d", i+1),
			"name": fmt.Sprintf("Flow %02d", i+1),
		}
	}
	return out
}

func fastAPIConfig(regions map[string]string, token string) APIConfig {
	return APIConfig{
		Regions:   regions,
		Token:     token,
		PageSize:  10,
		PageDelay: time.Millisecond,
	}
}

func TestFetchPagesUntilEmpty(t *testing.T) {
	api := &fakeAPI{token: "tok", templates: makeTemplates(25)}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	store := newMockStore()
	job := NewAPIJob(fastAPIConfig(map[string]string{"eu": srv.URL}, "tok"), store, nil)

	report, err := job.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if report.Imported != 25 || report.Skipped != 0 {
		t.Errorf("report = %+v", report)
	}
	if len(store.docs) != 25 {
		t.Errorf("stored %d docs", len(store.docs))
	}
}

func TestFetchRegionProbing(t *testing.T) {
	// The first region (by name) rejects the token, the second accepts.
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer bad.Close()

	api := &fakeAPI{token: "tok", templates: makeTemplates(3)}
	good := httptest.NewServer(api.handler())
	defer good.Close()

	store := newMockStore()
	job := NewAPIJob(fastAPIConfig(map[string]string{
		"a-region": bad.URL,
		"b-region": good.URL,
	}, "tok"), store, nil)

	report, err := job.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if report.Imported != 3 {
		t.Errorf("report = %+v", report)
	}
}

func TestFetchAllRegionsReject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	job := NewAPIJob(fastAPIConfig(map[string]string{
		"eu": srv.URL,
		"us": srv.URL,
	}, "wrong"), newMockStore(), nil)

	_, err := job.Fetch(context.Background())
	if !errors.Is(err, domain.ErrAuthenticationFailed) {
		t.Fatalf("err = %v, want ErrAuthenticationFailed", err)
	}
	// The error names every probed region.
	for _, region := range []string{"eu", "us"} {
		if !strings.Contains(err.Error(), region) {
			t.Errorf("error does not name region %q: %v", region, err)
		}
	}
}

func TestFetchHaltsMidRunKeepsPartial(t *testing.T) {
	api := &fakeAPI{token: "tok", templates: makeTemplates(25), failAfter: 10}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	store := newMockStore()
	job := NewAPIJob(fastAPIConfig(map[string]string{"eu": srv.URL}, "tok"), store, nil)

	report, err := job.Fetch(context.Background())
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("err = %v, want ErrUpstreamUnavailable", err)
	}
	if report.Imported != 10 {
		t.Errorf("partial imported = %d, want 10", report.Imported)
	}
	if len(store.docs) != 10 {
		t.Errorf("stored %d docs, want 10", len(store.docs))
	}
}

func TestFetchBareArrayPage(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit == 1 { // probe
			_, _ = w.Write([]byte(`[{"name":"x"}]`))
			return
		}
		calls++
		if calls == 1 {
			_, _ = w.Write([]byte(`[{"id":"1","name":"Bare One"}]`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	store := newMockStore()
	job := NewAPIJob(fastAPIConfig(map[string]string{"eu": srv.URL}, "tok"), store, nil)

	report, err := job.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if report.Imported != 1 {
		t.Errorf("report = %+v", report)
	}
}
