package segment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"segfetch/internal/bandwidth"
	"segfetch/internal/httpclient"
	"segfetch/internal/model"
)

func waitForState(t *testing.T, seg *model.Segment, mu *sync.Mutex, want model.SegmentState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		state := seg.State
		mu.Unlock()
		if state == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("segment never reached state %v", want)
}

func TestWorkerDownloadsClosedSegmentToCompletion(t *testing.T) {
	body := []byte("the quick brown fox jumps over the lazy dog")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Range", "bytes 0-43/44")
		w.WriteHeader(http.StatusPartialContent)
		w.Write(body)
	}))
	defer srv.Close()

	dir := t.TempDir()
	seg := &model.Segment{Start: 0, End: int64(len(body) - 1), State: model.SegmentActive, TempPath: filepath.Join(dir, "part")}

	w := &Worker{URL: srv.URL, Client: httpclient.New(""), Bandwidth: bandwidth.NewManager(), Logger: discardLogger()}
	var mu sync.Mutex
	sig := &Signals{}

	w.Run(context.Background(), seg, &mu, sig)

	if seg.State != model.SegmentFinished {
		t.Fatalf("segment state = %v, want Finished", seg.State)
	}
	got, err := os.ReadFile(seg.TempPath)
	if err != nil {
		t.Fatalf("reading part file: %v", err)
	}
	if string(got) != string(body) {
		t.Errorf("part file content = %q, want %q", got, body)
	}
}

func TestWorkerStopsCooperatively(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		for i := 0; i < 10; i++ {
			select {
			case <-block:
				return
			default:
			}
			w.Write(make([]byte, httpclient.ChunkSize))
			if flusher != nil {
				flusher.Flush()
			}
			time.Sleep(20 * time.Millisecond)
		}
	}))
	defer srv.Close()
	defer close(block)

	dir := t.TempDir()
	seg := &model.Segment{Start: 0, End: model.OpenEnd, State: model.SegmentActive, TempPath: filepath.Join(dir, "part")}

	w := &Worker{URL: srv.URL, Client: httpclient.New(""), Bandwidth: bandwidth.NewManager(), Logger: discardLogger()}
	var mu sync.Mutex
	sig := &Signals{}

	done := make(chan struct{})
	go func() {
		w.Run(context.Background(), seg, &mu, sig)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	sig.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop within 2s of Stop()")
	}

	if seg.State != model.SegmentStopped {
		t.Errorf("segment state = %v, want Stopped", seg.State)
	}
}

func TestWorkerPauseBlocksThenResumes(t *testing.T) {
	body := make([]byte, 4*httpclient.ChunkSize)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}))
	defer srv.Close()

	dir := t.TempDir()
	seg := &model.Segment{Start: 0, End: int64(len(body) - 1), State: model.SegmentActive, TempPath: filepath.Join(dir, "part")}

	w := &Worker{URL: srv.URL, Client: httpclient.New(""), Bandwidth: bandwidth.NewManager(), Logger: discardLogger()}
	var mu sync.Mutex
	sig := &Signals{}
	sig.Pause()

	done := make(chan struct{})
	go func() {
		w.Run(context.Background(), seg, &mu, sig)
		close(done)
	}()

	time.Sleep(150 * time.Millisecond)
	mu.Lock()
	downloaded := seg.Downloaded
	mu.Unlock()
	if downloaded != 0 {
		t.Errorf("downloaded = %d while paused, want 0", downloaded)
	}

	sig.Resume()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not finish after Resume()")
	}
	waitForState(t, seg, &mu, model.SegmentFinished)
}

func TestSplitHalvesRemainingBytes(t *testing.T) {
	seg := &model.Segment{Start: 0, End: 999, Downloaded: 200}
	newSeg, err := Split(seg)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	// remaining before split = 1000 - 200 = 800, half = 400
	// midpoint = 0 + 200 + 400 = 600
	if seg.End != 600 {
		t.Errorf("shrunk segment End = %d, want 600", seg.End)
	}
	if newSeg.Start != 601 {
		t.Errorf("new segment Start = %d, want 601", newSeg.Start)
	}
	if newSeg.End != 999 {
		t.Errorf("new segment End = %d, want 999", newSeg.End)
	}
	if newSeg.State != model.SegmentActive {
		t.Errorf("new segment state = %v, want Active", newSeg.State)
	}
}

func TestSplitRejectsOpenEnded(t *testing.T) {
	seg := &model.Segment{Start: 0, End: model.OpenEnd}
	if _, err := Split(seg); err == nil {
		t.Error("expected Split to reject an open-ended segment")
	}
}

func TestSplitRejectsNearlyDoneSegment(t *testing.T) {
	seg := &model.Segment{Start: 0, End: 99, Downloaded: 99}
	if _, err := Split(seg); err == nil {
		t.Error("expected Split to reject a segment with nothing left to split")
	}
}
