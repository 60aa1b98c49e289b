package supervisor

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"segfetch/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIsStreamingSite(t *testing.T) {
	tests := []struct {
		url    string
		stream bool
	}{
		{"https://www.youtube.com/watch?v=abc", true},
		{"https://youtu.be/abc", true},
		{"https://vimeo.com/12345", true},
		{"https://www.dailymotion.com/video/abc", true},
		{"https://example.com/file.zip", false},
		{"https://files.example.org/movie.mp4", false},
	}

	for _, tt := range tests {
		if got := IsStreamingSite(tt.url); got != tt.stream {
			t.Errorf("IsStreamingSite(%q) = %v, want %v", tt.url, got, tt.stream)
		}
	}
}

func TestAddRejectsStreamingSites(t *testing.T) {
	sup := New(discardLogger(), "", 0)
	dir := t.TempDir()

	_, err := sup.Add(context.Background(), "https://www.youtube.com/watch?v=abc", dir, "", 4, time.Time{})
	if err == nil {
		t.Fatal("expected Add to reject a streaming-site URL")
	}
	if _, ok := err.(*StreamingSiteError); !ok {
		t.Fatalf("expected *StreamingSiteError, got %T", err)
	}
}

func TestAddAndListRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "4")
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			w.Write([]byte("data"))
		}
	}))
	defer srv.Close()

	sup := New(discardLogger(), "", 0)
	dir := t.TempDir()

	id, err := sup.Add(context.Background(), srv.URL, dir, "out.bin", 1, time.Time{})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	views := sup.List()
	if len(views) != 1 {
		t.Fatalf("List returned %d tasks, want 1", len(views))
	}
	if views[0].ID != id {
		t.Errorf("listed task ID = %q, want %q", views[0].ID, id)
	}
}

func TestOperationsOnUnknownIDReturnErrNotFound(t *testing.T) {
	sup := New(discardLogger(), "", 0)

	if err := sup.Pause("missing"); err != ErrNotFound {
		t.Errorf("Pause on unknown ID = %v, want ErrNotFound", err)
	}
	if err := sup.Resume(context.Background(), "missing"); err != ErrNotFound {
		t.Errorf("Resume on unknown ID = %v, want ErrNotFound", err)
	}
	if err := sup.Stop("missing", false); err != ErrNotFound {
		t.Errorf("Stop on unknown ID = %v, want ErrNotFound", err)
	}
	if err := sup.Remove("missing"); err != ErrNotFound {
		t.Errorf("Remove on unknown ID = %v, want ErrNotFound", err)
	}
}

func TestSortByDateAddedOrdersOldestFirst(t *testing.T) {
	now := time.Now()
	views := []model.TaskView{
		{ID: "b", DateAdded: now},
		{ID: "a", DateAdded: now.Add(-time.Hour)},
		{ID: "c", DateAdded: now.Add(time.Hour)},
	}
	SortByDateAdded(views)

	want := []string{"a", "b", "c"}
	for i, id := range want {
		if views[i].ID != id {
			t.Errorf("views[%d].ID = %q, want %q", i, views[i].ID, id)
		}
	}
}

// TestAddWithFutureScheduleLeavesTaskScheduled covers the deferred-start
// path: a future schedule_time must land the task in Scheduled without
// starting it, and TickScheduler must be the only thing that moves it on
// once the time arrives.
func TestAddWithFutureScheduleLeavesTaskScheduled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "4")
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			w.Write([]byte("data"))
		}
	}))
	defer srv.Close()

	sup := New(discardLogger(), "", 0)
	dir := t.TempDir()

	future := time.Now().Add(time.Hour)
	id, err := sup.Add(context.Background(), srv.URL, dir, "out.bin", 1, future)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	views := sup.List()
	if len(views) != 1 || views[0].Status != model.StatusScheduled {
		t.Fatalf("status after scheduling a future task = %v, want Scheduled", views[0].Status)
	}

	// TickScheduler must not start anything before the scheduled time.
	sup.TickScheduler(context.Background())
	if got := sup.List()[0].Status; got != model.StatusScheduled {
		t.Fatalf("status after an early TickScheduler = %v, want still Scheduled", got)
	}

	h, err := sup.get(id)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	h.scheduleAt = time.Now().Add(-time.Second)

	sup.TickScheduler(context.Background())

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if got := sup.List()[0].Status; got != model.StatusScheduled {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("task never left Scheduled after its due time passed")
}

func TestRemoveEvictsFromList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sup := New(discardLogger(), "", 0)
	dir := t.TempDir()

	id, err := sup.Add(context.Background(), srv.URL, dir, "out.bin", 1, time.Time{})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := sup.Remove(id); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if len(sup.List()) != 0 {
		t.Errorf("List after Remove = %d tasks, want 0", len(sup.List()))
	}
}
