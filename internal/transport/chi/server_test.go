package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/feedrank/feedrank/internal/domain"
	searchuc "github.com/feedrank/feedrank/internal/usecase/search"
)

// fakeContentStore serves a fixed content list and captures query filters.
type fakeContentStore struct {
	contents    []domain.Content
	searchErr   error
	upsertErr   error
	lastKeyword string
	lastType    string
	upserts     int
}

func (f *fakeContentStore) Search(_ context.Context, keyword, contentType string) ([]domain.Content, error) {
	f.lastKeyword, f.lastType = keyword, contentType
	return f.contents, f.searchErr
}

func (f *fakeContentStore) Upsert(_ context.Context, _ domain.Content) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts++
	return nil
}

// noopCache always delegates to the producer.
type noopCache struct{}

func (noopCache) Get(
	ctx context.Context, _ string, produce func(ctx context.Context) (domain.Page, error),
) (domain.Page, error) {
	return produce(ctx)
}

func (noopCache) Clear(context.Context) error { return nil }

type fakeAggregator struct {
	contents []domain.Content
}

func (f *fakeAggregator) FetchAll(context.Context) []domain.Content { return f.contents }

type noopNotifier struct{}

func (noopNotifier) Info(context.Context, string, map[string]string)    {}
func (noopNotifier) Success(context.Context, string, map[string]string) {}
func (noopNotifier) Warning(context.Context, string, map[string]string) {}
func (noopNotifier) Error(context.Context, string, map[string]string)   {}

type fakePinger struct{ err error }

func (p *fakePinger) Ping(context.Context) error { return p.err }

func newTestRouter(t *testing.T, store *fakeContentStore, agg *fakeAggregator, pingers ...Pinger) chi.Router {
	t.Helper()
	pipeline := searchuc.New(store, noopCache{}, agg, noopNotifier{}, zap.NewNop())
	srv := NewServer(pipeline, zap.NewNop(), pingers...)
	r := chi.NewRouter()
	srv.Register(r)
	return r
}

func doRequest(t *testing.T, r chi.Router, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v\n%s", err, rec.Body.String())
	}
	return body
}

func TestHandleSearch_ResponseShape(t *testing.T) {
	store := &fakeContentStore{contents: []domain.Content{{
		ID:          "1",
		Title:       "Observability on a Budget",
		Type:        domain.TypeArticle,
		Metrics:     domain.Metrics{"reading_time": 7.0, "reactions": 70.0},
		PublishedAt: time.Date(2026, 2, 20, 11, 0, 0, 0, time.UTC),
	}}}
	r := newTestRouter(t, store, &fakeAggregator{})

	rec := doRequest(t, r, http.MethodGet, "/api/search?keyword=budget")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Errorf("success = %v, want true", body["success"])
	}

	data, ok := body["data"].([]any)
	if !ok || len(data) != 1 {
		t.Fatalf("data = %v, want one item", body["data"])
	}
	item := data[0].(map[string]any)
	if item["published_at"] != "2026-02-20 11:00:00" {
		t.Errorf("published_at = %v", item["published_at"])
	}
	if _, ok := item["score"].(float64); !ok {
		t.Errorf("score = %v, want a number", item["score"])
	}

	pagination, ok := body["pagination"].(map[string]any)
	if !ok {
		t.Fatalf("pagination = %v", body["pagination"])
	}
	for _, key := range []string{"total", "page", "per_page", "total_pages"} {
		if _, ok := pagination[key]; !ok {
			t.Errorf("pagination missing %q: %v", key, pagination)
		}
	}
}

func TestHandleSearch_ParamAliases(t *testing.T) {
	store := &fakeContentStore{}
	r := newTestRouter(t, store, &fakeAggregator{})

	rec := doRequest(t, r, http.MethodGet, "/api/search?query=golang&sort_by=date&per_page=5&type=video")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	if store.lastKeyword != "golang" {
		t.Errorf("keyword = %q, want golang (query alias)", store.lastKeyword)
	}
	if store.lastType != "video" {
		t.Errorf("type = %q, want video", store.lastType)
	}

	body := decodeBody(t, rec)
	pagination := body["pagination"].(map[string]any)
	if pagination["per_page"] != 5.0 {
		t.Errorf("per_page = %v, want 5 (per_page alias)", pagination["per_page"])
	}
}

func TestHandleSearch_PrimaryParamsWinOverAliases(t *testing.T) {
	store := &fakeContentStore{}
	r := newTestRouter(t, store, &fakeAggregator{})

	doRequest(t, r, http.MethodGet, "/api/search?keyword=primary&query=legacy")
	if store.lastKeyword != "primary" {
		t.Errorf("keyword = %q, want primary", store.lastKeyword)
	}
}

func TestHandleSearch_MalformedNumbersFallBackToDefaults(t *testing.T) {
	store := &fakeContentStore{}
	r := newTestRouter(t, store, &fakeAggregator{})

	rec := doRequest(t, r, http.MethodGet, "/api/search?page=two&perPage=ten")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := decodeBody(t, rec)
	pagination := body["pagination"].(map[string]any)
	if pagination["page"] != 1.0 || pagination["per_page"] != 10.0 {
		t.Errorf("pagination = %v, want defaults page=1 per_page=10", pagination)
	}
}

func TestHandleSearch_EmptyResultHasEmptyArray(t *testing.T) {
	r := newTestRouter(t, &fakeContentStore{}, &fakeAggregator{})

	rec := doRequest(t, r, http.MethodGet, "/api/search")
	body := decodeBody(t, rec)
	if _, ok := body["data"].([]any); !ok {
		t.Errorf("data = %v (%T), want empty JSON array", body["data"], body["data"])
	}
}

func TestHandleSearch_StoreFailure(t *testing.T) {
	store := &fakeContentStore{searchErr: errors.New("io error")}
	r := newTestRouter(t, store, &fakeAggregator{})

	rec := doRequest(t, r, http.MethodGet, "/api/search")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	body := decodeBody(t, rec)
	if body["success"] != false {
		t.Errorf("success = %v, want false", body["success"])
	}
	if _, ok := body["error"].(string); !ok {
		t.Errorf("error = %v, want a message", body["error"])
	}
}

func TestHandleSync(t *testing.T) {
	now := time.Now()
	store := &fakeContentStore{}
	agg := &fakeAggregator{contents: []domain.Content{
		{ID: "1", Title: "a", Type: domain.TypeArticle, PublishedAt: now},
		{ID: "2", Title: "b", Type: domain.TypeArticle, PublishedAt: now},
	}}
	r := newTestRouter(t, store, agg)

	rec := doRequest(t, r, http.MethodPost, "/api/sync")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Errorf("success = %v, want true", body["success"])
	}
	if body["synced_count"] != 2.0 {
		t.Errorf("synced_count = %v, want 2", body["synced_count"])
	}
	if _, ok := body["message"].(string); !ok {
		t.Errorf("message = %v, want a string", body["message"])
	}
	if store.upserts != 2 {
		t.Errorf("upserts = %d, want 2", store.upserts)
	}
}

func TestHandleSync_Failure(t *testing.T) {
	store := &fakeContentStore{upsertErr: errors.New("disk full")}
	agg := &fakeAggregator{contents: []domain.Content{
		{ID: "1", Title: "a", Type: domain.TypeArticle, PublishedAt: time.Now()},
	}}
	r := newTestRouter(t, store, agg)

	rec := doRequest(t, r, http.MethodPost, "/api/sync")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["success"] != false {
		t.Errorf("success = %v, want false", body["success"])
	}
}

func TestHandleSync_MethodNotAllowed(t *testing.T) {
	r := newTestRouter(t, &fakeContentStore{}, &fakeAggregator{})
	rec := doRequest(t, r, http.MethodGet, "/api/sync")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	r := newTestRouter(t, &fakeContentStore{}, &fakeAggregator{}, &fakePinger{})
	rec := doRequest(t, r, http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
}

func TestHandleHealth_FailingDependency(t *testing.T) {
	r := newTestRouter(t, &fakeContentStore{}, &fakeAggregator{},
		&fakePinger{}, &fakePinger{err: errors.New("gone")})
	rec := doRequest(t, r, http.MethodGet, "/health")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}
