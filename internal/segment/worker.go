// Package segment runs one worker per download segment: a single ranged
// GET streamed to a temporary part file, cooperatively paused/stopped at
// chunk boundaries.
package segment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"segfetch/internal/bandwidth"
	"segfetch/internal/httpclient"
	"segfetch/internal/model"
)

// pausePoll is how often a paused worker re-checks for resume/stop,
// matching the ~100ms responsiveness the concurrency model requires.
const pausePoll = 100 * time.Millisecond

// Signals is the broadcast stop/pause pair a task shares with every one
// of its workers and its monitor. Stop is one-way; Pause toggles.
type Signals struct {
	stopped atomic.Bool
	paused  atomic.Bool
}

func (s *Signals) Stop()           { s.stopped.Store(true) }
func (s *Signals) IsStopped() bool { return s.stopped.Load() }
func (s *Signals) Pause()          { s.paused.Store(true) }
func (s *Signals) Resume()         { s.paused.Store(false) }
func (s *Signals) IsPaused() bool  { return s.paused.Load() }

// Rearm clears the stop flag so a controller can reuse the same Signals
// across a Stop(pause_only=true)-then-Resume cycle, where workers fully
// exited and must be respawned rather than just unblocked.
func (s *Signals) Rearm() { s.stopped.Store(false) }

// Worker executes one segment's ranged GET against url, writing to its
// temp file and reporting progress through the segment's atomic counter.
type Worker struct {
	URL       string
	Client    *httpclient.Facade
	Bandwidth *bandwidth.Manager
	Logger    *slog.Logger
}

// Run streams the segment until it finishes, is stopped, or hits an
// unrecoverable error. mu guards the segment's Start/End/State fields,
// which the controller's monitor may mutate concurrently via Split; Run
// takes the lock only for the brief reads/writes of those fields, never
// while blocked on network I/O.
func (w *Worker) Run(ctx context.Context, seg *model.Segment, mu *sync.Mutex, sig *Signals) {
	actualStart := seg.Start + atomic.LoadInt64(&seg.Downloaded)

	f, err := os.OpenFile(seg.TempPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		w.Logger.Error("segment temp file open failed", "path", seg.TempPath, "error", err)
		w.finish(mu, seg, model.SegmentStopped)
		return
	}
	defer f.Close()

	mu.Lock()
	end := seg.End
	mu.Unlock()

	stream, err := w.Client.OpenRangedStream(ctx, w.URL, actualStart, end)
	if err != nil {
		w.Logger.Error("segment GET failed", "start", actualStart, "end", end, "error", err)
		w.finish(mu, seg, model.SegmentStopped)
		return
	}
	defer stream.Close()

	buf := make([]byte, httpclient.ChunkSize)
	for {
		if sig.IsStopped() {
			w.finish(mu, seg, model.SegmentStopped)
			return
		}
		for sig.IsPaused() && !sig.IsStopped() {
			time.Sleep(pausePoll)
		}
		if sig.IsStopped() {
			w.finish(mu, seg, model.SegmentStopped)
			return
		}

		// Re-read end/downloaded before every chunk: a split may have
		// shrunk our end while we were mid-stream. The underlying GET
		// still has bytes in flight for the original, larger range, so
		// completion is detected here rather than by re-issuing a
		// request — the design notes' "next chunk boundary" contract.
		mu.Lock()
		currentEnd := seg.End
		mu.Unlock()
		if currentEnd != model.OpenEnd {
			want := currentEnd - seg.Start + 1
			if atomic.LoadInt64(&seg.Downloaded) >= want {
				w.finish(mu, seg, model.SegmentFinished)
				return
			}
		}

		if err := w.Bandwidth.Wait(ctx, len(buf)); err != nil {
			w.finish(mu, seg, model.SegmentStopped)
			return
		}

		n, readErr := stream.Read(buf)
		if n > 0 {
			// A split during this read may leave part of the chunk past
			// our (shrunk) end; those bytes belong to the new segment.
			mu.Lock()
			currentEnd = seg.End
			mu.Unlock()
			if currentEnd != model.OpenEnd {
				if left := currentEnd - seg.Start + 1 - atomic.LoadInt64(&seg.Downloaded); int64(n) > left {
					n = int(max(left, 0))
				}
			}
			if _, writeErr := f.Write(buf[:n]); writeErr != nil {
				w.Logger.Error("segment write failed", "path", seg.TempPath, "error", writeErr)
				w.finish(mu, seg, model.SegmentStopped)
				return
			}
			atomic.AddInt64(&seg.Downloaded, int64(n))
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				w.completeOnEOF(mu, seg)
				return
			}
			w.Logger.Error("segment read failed", "path", seg.TempPath, "error", readErr)
			w.finish(mu, seg, model.SegmentStopped)
			return
		}
	}
}

// completeOnEOF decides is_finished vs a short read: for a closed range
// the worker must have received every byte up to the (possibly shrunk)
// end; for an open-ended range, server-closed is the only completion
// signal.
func (w *Worker) completeOnEOF(mu *sync.Mutex, seg *model.Segment) {
	mu.Lock()
	defer mu.Unlock()
	if seg.IsOpenEnded() {
		seg.State = model.SegmentFinished
		return
	}
	want := seg.End - seg.Start + 1
	if atomic.LoadInt64(&seg.Downloaded) >= want {
		seg.State = model.SegmentFinished
	} else {
		seg.State = model.SegmentStopped
	}
}

func (w *Worker) finish(mu *sync.Mutex, seg *model.Segment, state model.SegmentState) {
	mu.Lock()
	defer mu.Unlock()
	seg.State = state
}

// Split shrinks an active segment's end to the safe midpoint and returns
// a new segment covering the upper half, ready for a fresh worker. The
// midpoint is recomputed from the segment's current downloaded counter
// (not a stale snapshot) plus half its current remaining bytes, so the
// new segment never starts inside bytes the shrinking worker has already
// claimed in flight — see the design notes on split safety.
func Split(seg *model.Segment) (*model.Segment, error) {
	if seg.IsOpenEnded() {
		return nil, fmt.Errorf("segment: cannot split an open-ended segment")
	}
	remaining := seg.Remaining()
	downloaded := atomic.LoadInt64(&seg.Downloaded)
	half := remaining / 2
	if half < 0 {
		half = 0
	}
	midpoint := seg.Start + downloaded + half

	oldEnd := seg.End
	if midpoint >= oldEnd {
		return nil, fmt.Errorf("segment: nothing left to split")
	}

	seg.End = midpoint

	newSeg := &model.Segment{
		Start: midpoint + 1,
		End:   oldEnd,
		State: model.SegmentActive,
	}
	return newSeg, nil
}
