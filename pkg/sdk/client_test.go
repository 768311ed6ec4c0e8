package flowdex

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func fakeService(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/templates", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"templates": []map[string]any{
				{"id": "1", "name": "A", "slug": "a", "category": "Sales", "complexity": "Beginner"},
			},
			"total":    1,
			"page":     1,
			"pageSize": 20,
			"hasMore":  false,
		})
	})
	mux.HandleFunc("GET /api/templates/a", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","name":"A","slug":"a","nodes":[]}`))
	})
	mux.HandleFunc("GET /api/templates/missing", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"not_found","message":"template not found"}`))
	})
	mux.HandleFunc("POST /api/assist", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req["query"] == "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":"bad_request","message":"query is required"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"answer":"try template a","sources":["a"]}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestList(t *testing.T) {
	client, err := New(fakeService(t).URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	page, err := client.List(context.Background(), ListParams{Category: "Sales", PageSize: 20})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 1 || len(page.Templates) != 1 {
		t.Errorf("page = %+v", page)
	}
	if page.Templates[0].Slug != "a" || page.Templates[0].Complexity != "Beginner" {
		t.Errorf("record = %+v", page.Templates[0])
	}
}

func TestGet(t *testing.T) {
	client, err := New(fakeService(t).URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tpl, err := client.Get(context.Background(), "a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if tpl["name"] != "A" {
		t.Errorf("tpl = %v", tpl)
	}
}

func TestGetNotFound(t *testing.T) {
	client, err := New(fakeService(t).URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = client.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Errorf("APIError not preserved: %v", err)
	}
}

func TestAssist(t *testing.T) {
	client, err := New(fakeService(t).URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	answer, err := client.Assist(context.Background(), "what should I use")
	if err != nil {
		t.Fatalf("Assist: %v", err)
	}
	if answer.Answer != "try template a" || len(answer.Sources) != 1 {
		t.Errorf("answer = %+v", answer)
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("empty base URL accepted")
	}
}
