package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Clark-Hu/watchlist-tracker/internal/config"
	"github.com/Clark-Hu/watchlist-tracker/internal/domain"
	"github.com/Clark-Hu/watchlist-tracker/internal/repository"
	"github.com/Clark-Hu/watchlist-tracker/internal/store"
)

type testServer struct {
	*Server
	sqlite *store.SQLite
}

func buildTestServer(tb testing.TB, opts ...func(*config.Config)) *testServer {
	tb.Helper()
	cfg := config.Config{
		Port:               "0",
		DBDriver:           config.DriverSQLite,
		ReadTimeoutSecs:    15,
		WriteTimeoutSecs:   15,
		IdleTimeoutSecs:    60,
		CORSTrustedOrigins: []string{"*"},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := log.New(io.Discard, "", 0)
	st, err := store.OpenSQLite(context.Background(), filepath.Join(tb.TempDir(), "watchlist.db"), logger)
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	tb.Cleanup(st.Close)

	repo := repository.NewSQLite(st)
	return &testServer{Server: New(cfg, st, repo, logger), sqlite: st}
}

func (s *testServer) do(tb testing.TB, method, path, body string) *httptest.ResponseRecorder {
	tb.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeItem(tb testing.TB, rec *httptest.ResponseRecorder) domain.Item {
	tb.Helper()
	var item domain.Item
	if err := json.Unmarshal(rec.Body.Bytes(), &item); err != nil {
		tb.Fatalf("decode item from %q: %v", rec.Body.String(), err)
	}
	return item
}

func decodeItems(tb testing.TB, rec *httptest.ResponseRecorder) []domain.Item {
	tb.Helper()
	var items []domain.Item
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		tb.Fatalf("decode items from %q: %v", rec.Body.String(), err)
	}
	return items
}

func decodeError(tb testing.TB, rec *httptest.ResponseRecorder) errorResponse {
	tb.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		tb.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestWatchlistLifecycle(t *testing.T) {
	srv := buildTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/watchlist", `{"title":"Inception","type":"movie","status":"plan_to_watch","rating":0}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decodeItem(t, rec)
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("server-assigned fields missing: %+v", created)
	}
	if created.Bookmarked {
		t.Fatalf("new item should not be bookmarked")
	}

	rec = srv.do(t, http.MethodGet, "/api/watchlist", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if items := decodeItems(t, rec); len(items) != 1 || items[0].ID != created.ID {
		t.Fatalf("list = %+v, want the created item", items)
	}

	rec = srv.do(t, http.MethodPut, "/api/watchlist/"+created.ID+"/bookmark", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("bookmark status = %d", rec.Code)
	}
	if !decodeItem(t, rec).Bookmarked {
		t.Fatalf("toggle should bookmark the item")
	}

	rec = srv.do(t, http.MethodGet, "/api/watchlist/bookmarks", "")
	if items := decodeItems(t, rec); len(items) != 1 || items[0].ID != created.ID {
		t.Fatalf("bookmarks = %+v, want the created item", items)
	}

	rec = srv.do(t, http.MethodPut, "/api/watchlist/"+created.ID, `{"status":"completed","rating":9}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}
	updated := decodeItem(t, rec)
	if updated.Status != domain.StatusCompleted || updated.Rating != 9 || !updated.Bookmarked {
		t.Fatalf("update result = %+v", updated)
	}
	if updated.Title != "Inception" || !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("update touched absent fields: %+v", updated)
	}

	rec = srv.do(t, http.MethodDelete, "/api/watchlist/"+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	var msg messageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil || msg.Message != "watchlist item removed" {
		t.Fatalf("delete body = %s (%v)", rec.Body.String(), err)
	}

	rec = srv.do(t, http.MethodGet, "/api/watchlist/"+created.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", rec.Code)
	}
	if code := decodeError(t, rec).Code; code != "NOT_FOUND" {
		t.Fatalf("error code = %s, want NOT_FOUND", code)
	}
}

func TestHandleCreateItem_Validation(t *testing.T) {
	srv := buildTestServer(t)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"rating above range", `{"title":"Tenet","rating":11}`, "rating"},
		{"negative rating", `{"title":"Tenet","rating":-0.5}`, "rating"},
		{"unknown type", `{"title":"Tenet","type":"podcast"}`, "type"},
		{"unknown status", `{"title":"Tenet","status":"finished"}`, "status"},
		{"blank title", `{"title":"   "}`, "title"},
		{"missing title", `{"genre":"Sci-Fi"}`, "title"},
		{"release year too early", `{"title":"Tenet","releaseYear":1500}`, "releaseYear"},
		{"relative image url", `{"title":"Tenet","imageUrl":"/poster.png"}`, "imageUrl"},
		{"non-http image url", `{"title":"Tenet","imageUrl":"javascript://alert(1)"}`, "imageUrl"},
		{"rating wrong type", `{"title":"Tenet","rating":"high"}`, "rating"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, http.MethodPost, "/api/watchlist", tt.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422 (body %s)", rec.Code, rec.Body.String())
			}
			resp := decodeError(t, rec)
			if resp.Code != "VALIDATION_ERROR" {
				t.Fatalf("code = %s, want VALIDATION_ERROR", resp.Code)
			}
			details, ok := resp.Details.(map[string]interface{})
			if !ok {
				t.Fatalf("details = %#v, want field map", resp.Details)
			}
			if _, ok := details[tt.field]; !ok {
				t.Fatalf("details %v missing field %s", details, tt.field)
			}
		})
	}

	rec := srv.do(t, http.MethodGet, "/api/watchlist", "")
	if items := decodeItems(t, rec); len(items) != 0 {
		t.Fatalf("rejected creates persisted %d items", len(items))
	}
}

func TestHandlers_WrongTypeReportsJSONFieldName(t *testing.T) {
	srv := buildTestServer(t)
	created := decodeItem(t, srv.do(t, http.MethodPost, "/api/watchlist", `{"title":"Memento"}`))

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		field  string
	}{
		{"create rating", http.MethodPost, "/api/watchlist", `{"title":"Tenet","rating":"high"}`, "rating"},
		{"create bookmarked", http.MethodPost, "/api/watchlist", `{"title":"Tenet","bookmarked":"yes"}`, "bookmarked"},
		{"update release year", http.MethodPut, "/api/watchlist/" + created.ID, `{"releaseYear":"1999"}`, "releaseYear"},
		{"update title", http.MethodPut, "/api/watchlist/" + created.ID, `{"title":42}`, "title"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, tt.method, tt.path, tt.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422 (body %s)", rec.Code, rec.Body.String())
			}
			resp := decodeError(t, rec)
			details, ok := resp.Details.(map[string]interface{})
			if !ok || len(details) != 1 {
				t.Fatalf("details = %#v, want a single field", resp.Details)
			}
			if _, ok := details[tt.field]; !ok {
				t.Fatalf("details %v missing field %s", details, tt.field)
			}
			if want := "Invalid value for field " + tt.field; resp.Message != want {
				t.Fatalf("message = %q, want %q", resp.Message, want)
			}
		})
	}
}

func TestJSONFieldName(t *testing.T) {
	tests := map[string]string{
		"ItemInput.rating":      "rating",
		"ItemPatch.releaseYear": "releaseYear",
		"title":                 "title",
		"":                      "",
	}
	for in, want := range tests {
		if got := jsonFieldName(in); got != want {
			t.Fatalf("jsonFieldName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHandleCreateItem_IgnoresServerAssignedFields(t *testing.T) {
	srv := buildTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/watchlist", `{"id":"client-id","createdAt":"1999-01-01T00:00:00Z","title":"Arrival"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	item := decodeItem(t, rec)
	if item.ID == "client-id" {
		t.Fatalf("client supplied id was used")
	}
	if item.CreatedAt.Year() == 1999 {
		t.Fatalf("client supplied createdAt was used")
	}
}

func TestHandleCreateItem_InvalidPayload(t *testing.T) {
	srv := buildTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `invalid json`},
		{"truncated json", `{"title":"Up"`},
		{"unknown field", `{"title":"Up","director":"Docter"}`},
		{"trailing value", `{"title":"Up"}{"title":"Down"}`},
		{"array body", `[{"title":"Up"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, http.MethodPost, "/api/watchlist", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
			if code := decodeError(t, rec).Code; code != "BAD_REQUEST" {
				t.Fatalf("code = %s, want BAD_REQUEST", code)
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/watchlist", http.NoBody)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty body status = %d, want 400", rec.Code)
	}

	oversized := `{"title":"` + strings.Repeat("a", maxRequestBody) + `"}`
	rec = srv.do(t, http.MethodPost, "/api/watchlist", oversized)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized body status = %d, want 413", rec.Code)
	}
}

func TestHandlers_UnknownAndMalformedIDs(t *testing.T) {
	srv := buildTestServer(t)

	for _, id := range []string{"6f1c4c2e-9b8a-4d57-a1a0-2f7a8f0d1c11", "not-a-uuid"} {
		checks := []struct {
			method string
			path   string
			body   string
		}{
			{http.MethodGet, "/api/watchlist/" + id, ""},
			{http.MethodPut, "/api/watchlist/" + id, `{"rating":5}`},
			{http.MethodPut, "/api/watchlist/" + id + "/bookmark", ""},
			{http.MethodDelete, "/api/watchlist/" + id, ""},
		}
		for _, c := range checks {
			rec := srv.do(t, c.method, c.path, c.body)
			if rec.Code != http.StatusNotFound {
				t.Fatalf("%s %s status = %d, want 404", c.method, c.path, rec.Code)
			}
		}
	}
}

func TestHandleUpdateItem_PartialSemantics(t *testing.T) {
	const seed = `{"title":"Dune","genre":"Sci-Fi","notes":"Part one","rating":7,"releaseYear":2021,"bookmarked":true}`

	t.Run("present empty values apply", func(t *testing.T) {
		srv := buildTestServer(t)
		created := decodeItem(t, srv.do(t, http.MethodPost, "/api/watchlist", seed))

		rec := srv.do(t, http.MethodPut, "/api/watchlist/"+created.ID, `{"notes":"","genre":"","releaseYear":0,"rating":0,"bookmarked":false}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		item := decodeItem(t, rec)
		if item.Notes != "" || item.Genre != "" || item.ReleaseYear != nil {
			t.Fatalf("optional fields not cleared: %+v", item)
		}
		if item.Rating != 0 || item.Bookmarked {
			t.Fatalf("zero values not applied: %+v", item)
		}
	})

	t.Run("legacy mode drops empty values", func(t *testing.T) {
		srv := buildTestServer(t, func(cfg *config.Config) { cfg.LegacyPartialUpdate = true })
		created := decodeItem(t, srv.do(t, http.MethodPost, "/api/watchlist", seed))

		rec := srv.do(t, http.MethodPut, "/api/watchlist/"+created.ID, `{"title":"","notes":"","genre":"","releaseYear":0,"rating":0,"bookmarked":false}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		item := decodeItem(t, rec)
		if item.Title != "Dune" || item.Notes != "Part one" || item.Genre != "Sci-Fi" {
			t.Fatalf("legacy mode cleared text fields: %+v", item)
		}
		if item.ReleaseYear == nil || *item.ReleaseYear != 2021 {
			t.Fatalf("legacy mode cleared release year: %v", item.ReleaseYear)
		}
		if item.Rating != 0 || item.Bookmarked {
			t.Fatalf("legacy mode must still apply rating and bookmarked: %+v", item)
		}
	})

	t.Run("blank title rejected", func(t *testing.T) {
		srv := buildTestServer(t)
		created := decodeItem(t, srv.do(t, http.MethodPost, "/api/watchlist", seed))

		rec := srv.do(t, http.MethodPut, "/api/watchlist/"+created.ID, `{"title":"  "}`)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want 422", rec.Code)
		}
	})
}

func TestHandleToggleBookmark_Involutive(t *testing.T) {
	srv := buildTestServer(t)
	created := decodeItem(t, srv.do(t, http.MethodPost, "/api/watchlist", `{"title":"Paprika","type":"anime"}`))

	first := decodeItem(t, srv.do(t, http.MethodPut, "/api/watchlist/"+created.ID+"/bookmark", ""))
	second := decodeItem(t, srv.do(t, http.MethodPut, "/api/watchlist/"+created.ID+"/bookmark", ""))
	if first.Bookmarked == created.Bookmarked {
		t.Fatalf("first toggle did not flip")
	}
	if second.Bookmarked != created.Bookmarked {
		t.Fatalf("second toggle did not restore the original state")
	}

	rec := srv.do(t, http.MethodGet, "/api/watchlist/bookmarks", "")
	if items := decodeItems(t, rec); len(items) != 0 {
		t.Fatalf("bookmarks = %+v, want empty", items)
	}
}

func TestHandleIndexAndHealthz(t *testing.T) {
	srv := buildTestServer(t)

	rec := srv.do(t, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "Watchlist Tracker API is running" {
		t.Fatalf("index = %d %q", rec.Code, rec.Body.String())
	}

	rec = srv.do(t, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}

	srv.sqlite.Close()
	rec = srv.do(t, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("healthz after close = %d, want 503", rec.Code)
	}
}

func TestHandleDebugVars(t *testing.T) {
	srv := buildTestServer(t)
	srv.do(t, http.MethodGet, "/api/watchlist", "")

	rec := srv.do(t, http.MethodGet, "/debug/vars", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var vars map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &vars); err != nil {
		t.Fatalf("debug vars not valid JSON: %v\n%s", err, rec.Body.String())
	}
	for _, key := range []string{"total_requests_received", "total_responses_sent_by_status", "store"} {
		if _, ok := vars[key]; !ok {
			t.Fatalf("debug vars missing %s", key)
		}
	}
	if !bytes.Contains(vars["store"], []byte(`"sqlite"`)) {
		t.Fatalf("store stats = %s, want sqlite driver", vars["store"])
	}
}
