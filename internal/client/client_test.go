package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHistorySendsCursorQuery(t *testing.T) {
	var gotURI string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURI = r.URL.RequestURI()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"dialog_id":"d1",
			"events":[
				{"type":"user","content":"hi","idx":280},
				{"type":"file_edit","path":"a.go","diff":"@@","idx":281},
				{"content":"no type"},
				{"type":"chat","content":"ok","idx":"bad"}
			],
			"total_events":320,
			"has_more":true,
			"first_idx":280,
			"last_idx":299
		}`)
	}))
	defer server.Close()

	page, err := New(server.URL).History(context.Background(), "d1", 20, 300)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if gotURI != "/api/dialogs/d1/history?before=300&limit=20" {
		t.Fatalf("unexpected request uri: %q", gotURI)
	}
	if page.DialogID != "d1" || !page.HasMore || page.TotalEvents != 320 {
		t.Fatalf("unexpected page: %#v", page)
	}
	if page.FirstIdx == nil || *page.FirstIdx != 280 || page.LastIdx == nil || *page.LastIdx != 299 {
		t.Fatalf("unexpected page bounds: %#v", page)
	}
	if len(page.Events) != 3 {
		t.Fatalf("expected untyped event to be skipped, got %d events", len(page.Events))
	}
	if page.Events[1].File != "a.go" {
		t.Fatalf("expected path fallback for file, got %q", page.Events[1].File)
	}
	if page.Events[2].Idx != nil {
		t.Fatalf("expected wrong-typed idx to be dropped")
	}
}

func TestHistoryLatestOmitsBefore(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = io.WriteString(w, `{"events":[],"has_more":false}`)
	}))
	defer server.Close()

	page, err := New(server.URL).History(context.Background(), "d9", 0, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if gotQuery != "limit=20" {
		t.Fatalf("unexpected query: %q", gotQuery)
	}
	if page.DialogID != "d9" {
		t.Fatalf("expected dialog id fallback, got %q", page.DialogID)
	}
}

func TestListDialogsDefensiveParsing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{
			"items":[
				{"id":"a","title":"First","updated_at":"2025-01-02T03:04:05Z"},
				{"id":"b","title":7,"created_at":"2025-01-02 03:04:05.123"},
				{"title":"missing id"},
				"junk"
			],
			"current_dialog_id":42
		}`)
	}))
	defer server.Close()

	list, err := New(server.URL).ListDialogs(context.Background())
	if err != nil {
		t.Fatalf("ListDialogs: %v", err)
	}
	if len(list.Items) != 2 {
		t.Fatalf("expected two dialogs, got %#v", list.Items)
	}
	if list.CurrentDialogID != "" {
		t.Fatalf("expected wrong-typed current id to default, got %q", list.CurrentDialogID)
	}
	if list.Items[1].Title != nil || list.Items[1].DisplayTitle() != "New dialog" {
		t.Fatalf("expected wrong-typed title to default")
	}
	if list.Items[0].UpdatedAt.IsZero() || list.Items[1].CreatedAt.IsZero() {
		t.Fatalf("expected timestamps to parse")
	}
}

func TestUpdateConfigValidationErrors(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/config" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"detail":{"message":"invalid config","errors":["models.agent: unknown provider",{"loc":["body","config","port"],"msg":"must be int"}]}}`)
	}))
	defer server.Close()

	_, err := New(server.URL).UpdateConfig(context.Background(), map[string]any{"port": "x"})
	apiErr := AsAPIError(err)
	if apiErr == nil {
		t.Fatalf("expected api error, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity || apiErr.Message != "invalid config" {
		t.Fatalf("unexpected api error: %#v", apiErr)
	}
	want := []string{"models.agent: unknown provider", "body.config.port: must be int"}
	if len(apiErr.ValidationErrors) != len(want) {
		t.Fatalf("unexpected validation errors: %#v", apiErr.ValidationErrors)
	}
	for i := range want {
		if apiErr.ValidationErrors[i] != want[i] {
			t.Fatalf("validation error %d: got %q want %q", i, apiErr.ValidationErrors[i], want[i])
		}
	}
	if _, ok := gotBody["config"].(map[string]any); !ok {
		t.Fatalf("expected patch under config key, got %#v", gotBody)
	}
}

func TestDialogMutationsUseExpectedRoutes(t *testing.T) {
	var calls []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.RequestURI())
		if r.Method == http.MethodPost && r.URL.Path == "/api/dialogs" {
			_, _ = io.WriteString(w, `{"id":"new","title":"Plan"}`)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := New(server.URL + "/")
	ctx := context.Background()
	created, err := c.CreateDialog(ctx, " Plan ")
	if err != nil || created.ID != "new" {
		t.Fatalf("CreateDialog: %#v %v", created, err)
	}
	if err := c.SetCurrentDialog(ctx, "new"); err != nil {
		t.Fatalf("SetCurrentDialog: %v", err)
	}
	if err := c.UpdateDialog(ctx, "new", "Renamed"); err != nil {
		t.Fatalf("UpdateDialog: %v", err)
	}
	if err := c.DeleteDialog(ctx, "new"); err != nil {
		t.Fatalf("DeleteDialog: %v", err)
	}
	want := []string{
		"POST /api/dialogs",
		"PATCH /api/dialogs/current?id=new",
		"PATCH /api/dialogs/new",
		"DELETE /api/dialogs/new",
	}
	if len(calls) != len(want) {
		t.Fatalf("unexpected calls: %#v", calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("call %d: got %q want %q", i, calls[i], want[i])
		}
	}
}

func TestRequireDialogID(t *testing.T) {
	c := New("http://127.0.0.1:1")
	if _, err := c.History(context.Background(), "  ", 20, 0); err == nil {
		t.Fatalf("expected error for blank dialog id")
	}
	if _, err := c.Restore(context.Background(), "d1", ""); err == nil {
		t.Fatalf("expected error for blank checkpoint id")
	}
}

func TestNotFoundError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"Dialog not found"}`)
	}))
	defer server.Close()

	_, err := New(server.URL).GetDialog(context.Background(), "gone")
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSessionStatusParsing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{
			"active_session":"session_2",
			"has_unapproved":true,
			"last_approved_at":"2025-03-01T10:00:00Z",
			"changed_files":[{"path":"a.go","status":"modified","additions":3,"deletions":1},{"status":"added"}]
		}`)
	}))
	defer server.Close()

	status, err := New(server.URL).SessionStatus(context.Background(), "d1")
	if err != nil {
		t.Fatalf("SessionStatus: %v", err)
	}
	if !status.HasUnapproved || status.ActiveSession != "session_2" || status.LastApprovedAt == nil {
		t.Fatalf("unexpected status: %#v", status)
	}
	if len(status.ChangedFiles) != 1 || status.ChangedFiles[0].Additions != 3 {
		t.Fatalf("unexpected changed files: %#v", status.ChangedFiles)
	}
}

func TestAsIntPtrRejectsUnrepresentableNumbers(t *testing.T) {
	for _, raw := range []any{1e300, -1e300, 9.3e18, 1.5, "7", nil} {
		if got, ok := asIntPtr(map[string]any{"n": raw}, "n"); ok {
			t.Fatalf("%v: expected rejection, got %d", raw, *got)
		}
	}
	got, ok := asIntPtr(map[string]any{"n": float64(42)}, "n")
	if !ok || *got != 42 {
		t.Fatalf("expected 42, got %v ok=%v", got, ok)
	}
	page := parseHistoryPage(map[string]any{"first_idx": 1e300, "has_more": true})
	if page.FirstIdx != nil {
		t.Fatalf("expected out-of-range cursor to be dropped, got %d", *page.FirstIdx)
	}
}
