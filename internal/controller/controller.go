// Package controller owns a single download end to end: probing size,
// planning segments, spawning workers and a monitor, dynamic
// re-segmentation, merging, and the task state machine.
package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"segfetch/internal/bandwidth"
	"segfetch/internal/herrors"
	"segfetch/internal/httpclient"
	"segfetch/internal/model"
	"segfetch/internal/segment"
)

// splitThreshold is the minimum remaining bytes an active segment must
// have before the monitor bothers splitting it. A var, not a const, so
// tests can lower it to make a live split deterministic without waiting
// out a multi-megabyte transfer.
var splitThreshold int64 = 1 << 20 // 1 MiB

const monitorTick = 1 * time.Second

// speedWindow is how many per-tick deltas feed the moving-average speed,
// the windowed variant the monitor loop names as preferred for smoothness.
const speedWindow = 5

// Controller drives one download. Zero value is not usable; build with
// New.
type Controller struct {
	ID                  string
	URL                 string
	DestDir             string
	InitialSegmentCount int

	client    *httpclient.Facade
	bandwidth *bandwidth.Manager
	logger    *slog.Logger

	mu        sync.Mutex
	fileName  string
	status    model.Status
	totalSize int64
	segments  []*model.Segment
	startTime time.Time
	dateAdded time.Time
	speedKbps float64
	eta       string
	errMsg    string

	signals      *segment.Signals
	activeWorkers atomic.Int32
	wg           sync.WaitGroup

	cancel context.CancelFunc

	speedHistory []speedSample
}

type speedSample struct {
	at        time.Time
	bytesSoFar int64
}

// New constructs a controller for one download. fileName may be empty,
// in which case it is derived from the URL's last path component by
// Start.
func New(id, url, destDir, fileName string, initialSegmentCount int, client *httpclient.Facade, bw *bandwidth.Manager, logger *slog.Logger) *Controller {
	if initialSegmentCount < 1 {
		initialSegmentCount = 1
	}
	return &Controller{
		ID:                  id,
		URL:                 url,
		DestDir:             destDir,
		InitialSegmentCount: initialSegmentCount,
		client:              client,
		bandwidth:           bw,
		logger:              logger,
		fileName:            fileName,
		status:              model.StatusQueued,
		dateAdded:           time.Now(),
		signals:             &segment.Signals{},
	}
}

// SetScheduled marks a freshly constructed task Scheduled instead of
// Queued, for a caller (the supervisor) that knows scheduleTime is in the
// future before Start is ever called; Start still performs the normal
// planning and transition to Downloading whenever it is eventually
// invoked, regardless of which of the two it is transitioning from.
func (c *Controller) SetScheduled() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == model.StatusQueued {
		c.status = model.StatusScheduled
	}
}

func deriveFileName(url string) string {
	name := filepath.Base(url)
	if name == "." || name == "/" || name == "" {
		return "download"
	}
	// strip query strings that filepath.Base does not know about
	if i := strings.IndexByte(name, '?'); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return "download"
	}
	return name
}

// Start performs initial planning (probe, partition, resume from any
// existing temp files) and spawns one worker per segment plus the
// monitor. It returns once planning has happened; the download continues
// in the background.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.fileName == "" {
		c.fileName = deriveFileName(c.URL)
	}
	c.mu.Unlock()

	size, err := c.client.ProbeSize(ctx, c.URL)
	if err != nil {
		var probeErr *herrors.ProbeError
		if errors.As(err, &probeErr) && probeErr.Hard {
			c.setStatus(model.StatusError, err.Error())
			return err
		}
		c.logger.Warn("probe degraded to unknown size", "id", c.ID, "url", c.URL, "error", err)
		size = 0
	}

	c.mu.Lock()
	c.totalSize = size
	c.segments = c.planSegments(size)
	c.startTime = time.Now()
	c.status = model.StatusDownloading
	c.speedHistory = []speedSample{{at: c.startTime, bytesSoFar: 0}}
	segs := append([]*model.Segment(nil), c.segments...)
	c.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	for _, seg := range segs {
		c.spawnWorker(runCtx, seg)
	}

	go c.monitor(runCtx)

	c.logger.Info("download started", "id", c.ID, "url", c.URL, "size", size, "segments", len(segs))
	return nil
}

// planSegments partitions [0, size-1] into InitialSegmentCount equal
// contiguous ranges (last absorbs the remainder), or a single open-ended
// segment when size is unknown. initialSegmentCount is clamped so that no
// segment is empty when size is smaller than the requested count
// (boundary behavior from the testable properties).
func (c *Controller) planSegments(size int64) []*model.Segment {
	if size <= 0 {
		return []*model.Segment{c.newSegment(0, model.OpenEnd)}
	}

	n := int64(c.InitialSegmentCount)
	if n > size {
		n = size
	}
	if n < 1 {
		n = 1
	}

	base := size / n

	segs := make([]*model.Segment, 0, n)
	var start int64
	for i := int64(0); i < n; i++ {
		length := base
		if i == n-1 {
			length = size - start
		}
		end := start + length - 1
		segs = append(segs, c.newSegment(start, end))
		start = end + 1
	}
	return segs
}

// newSegment builds a segment and resumes its Downloaded counter from
// any existing temp file, the re-entry path that makes Start idempotent
// across pause/resume of the same controller instance.
func (c *Controller) newSegment(start, end int64) *model.Segment {
	seg := &model.Segment{Start: start, End: end, State: model.SegmentActive}
	seg.TempPath = c.partPath(start, end)
	if fi, err := os.Stat(seg.TempPath); err == nil {
		seg.Downloaded = fi.Size()
	}
	return seg
}

func (c *Controller) partPath(start, end int64) string {
	endStr := "end"
	if end != model.OpenEnd {
		endStr = fmt.Sprintf("%d", end)
	}
	return filepath.Join(c.DestDir, fmt.Sprintf("%s.part_%d-%s", c.fileName, start, endStr))
}

func (c *Controller) spawnWorker(ctx context.Context, seg *model.Segment) {
	c.activeWorkers.Add(1)
	c.wg.Add(1)
	w := &segment.Worker{URL: c.URL, Client: c.client, Bandwidth: c.bandwidth, Logger: c.logger}
	go func() {
		defer c.wg.Done()
		defer c.activeWorkers.Add(-1)
		w.Run(ctx, seg, &c.mu, c.signals)
	}()
}

// monitor is the single 1Hz supervisory loop for this download: it
// recomputes progress/speed/eta, triggers dynamic re-segmentation, and
// decides the terminal outcome once no worker is still running.
func (c *Controller) monitor(ctx context.Context) {
	ticker := time.NewTicker(monitorTick)
	defer ticker.Stop()

	for range ticker.C {
		if c.tick(ctx) {
			return
		}
	}
}

func (c *Controller) tick(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	downloaded := c.sumDownloadedLocked()
	c.updateSpeedAndETALocked(downloaded)

	if c.status == model.StatusPaused {
		// either still blocked at a chunk boundary (in-place pause) or
		// fully torn down awaiting a respawning Resume; either way there
		// is nothing for the monitor to decide until Resume acts.
		return false
	}

	if c.activeWorkers.Load() > 0 {
		c.maybeSplitLocked(ctx)
		return false
	}

	// every worker has exited: decide the terminal status
	if c.signals.IsStopped() && !c.allFinishedLocked() {
		c.status = model.StatusCancelled
		c.logger.Info("download cancelled", "id", c.ID)
		return true
	}
	if c.anyStoppedLocked() {
		c.status = model.StatusError
		c.errMsg = "one or more segments failed"
		c.logger.Error("download failed", "id", c.ID)
		return true
	}
	if c.allFinishedLocked() {
		if err := c.mergeLocked(); err != nil {
			c.status = model.StatusError
			c.errMsg = err.Error()
			c.logger.Error("merge failed", "id", c.ID, "error", err)
			return true
		}
		c.status = model.StatusCompleted
		c.logger.Info("download completed", "id", c.ID, "bytes", downloaded)
		return true
	}
	// no workers running, none stopped, not all finished: nothing left to
	// do but nothing to report either (can only happen transiently).
	return false
}

func (c *Controller) sumDownloadedLocked() int64 {
	var total int64
	for _, s := range c.segments {
		total += atomic.LoadInt64(&s.Downloaded)
	}
	return total
}

func (c *Controller) updateSpeedAndETALocked(downloaded int64) {
	now := time.Now()
	c.speedHistory = append(c.speedHistory, speedSample{at: now, bytesSoFar: downloaded})
	if len(c.speedHistory) > speedWindow+1 {
		c.speedHistory = c.speedHistory[len(c.speedHistory)-(speedWindow+1):]
	}

	oldest := c.speedHistory[0]
	elapsed := now.Sub(oldest.at).Seconds()
	if elapsed <= 0 {
		c.speedKbps = 0
	} else {
		c.speedKbps = float64(downloaded-oldest.bytesSoFar) / elapsed / 1024
	}

	if c.totalSize <= 0 || c.speedKbps <= 0 {
		c.eta = "N/A"
		return
	}
	remaining := c.totalSize - downloaded
	if remaining < 0 {
		remaining = 0
	}
	seconds := float64(remaining) / (c.speedKbps * 1024)
	c.eta = formatETA(seconds)
}

func formatETA(seconds float64) string {
	if math.IsInf(seconds, 0) || math.IsNaN(seconds) {
		return "N/A"
	}
	d := time.Duration(seconds) * time.Second
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func (c *Controller) allFinishedLocked() bool {
	for _, s := range c.segments {
		if s.State != model.SegmentFinished {
			return false
		}
	}
	return true
}

func (c *Controller) anyStoppedLocked() bool {
	for _, s := range c.segments {
		if s.State == model.SegmentStopped {
			return true
		}
	}
	return false
}

// maybeSplitLocked performs dynamic re-segmentation: only when size is
// known, only when at least one segment is finished and another is still
// active, and only when the largest-remaining active segment has more
// than splitThreshold bytes left.
func (c *Controller) maybeSplitLocked(ctx context.Context) {
	if c.totalSize <= 0 {
		return
	}

	haveFinished := false
	var largest *model.Segment
	var largestRemaining int64
	for _, s := range c.segments {
		if s.State == model.SegmentFinished {
			haveFinished = true
			continue
		}
		if s.State != model.SegmentActive {
			continue
		}
		r := s.Remaining()
		if largest == nil || r > largestRemaining {
			largest = s
			largestRemaining = r
		}
	}

	if !haveFinished || largest == nil || largestRemaining <= splitThreshold {
		return
	}

	newSeg, err := segment.Split(largest)
	if err != nil {
		return
	}
	newSeg.TempPath = c.partPath(newSeg.Start, newSeg.End)
	c.segments = append(c.segments, newSeg)
	c.logger.Info("segment split", "id", c.ID, "new_start", newSeg.Start, "new_end", newSeg.End)
	c.spawnWorker(ctx, newSeg)
}

// mergeLocked concatenates every segment's temp file, in ascending start
// order, into the final file, deleting each temp file as it is consumed.
func (c *Controller) mergeLocked() error {
	ordered := append([]*model.Segment(nil), c.segments...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Start < ordered[j].Start })

	finalPath := filepath.Join(c.DestDir, c.fileName)
	out, err := os.Create(finalPath)
	if err != nil {
		return fmt.Errorf("merge: creating final file: %w", err)
	}
	defer out.Close()

	for _, s := range ordered {
		if err := appendPart(out, s.TempPath); err != nil {
			return fmt.Errorf("merge: %s: %w", s.TempPath, err)
		}
		os.Remove(s.TempPath)
	}
	return nil
}

func appendPart(out *os.File, partPath string) error {
	in, err := os.Open(partPath)
	if err != nil {
		return err
	}
	defer in.Close()
	_, err = io.Copy(out, in)
	return err
}

// Pause cooperatively suspends every worker at their next chunk boundary;
// connections stay open (the worker blocks in its sleep-and-recheck loop)
// so Resume just unblocks them in place — one of the two conformant
// pause implementations the concurrency model allows.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != model.StatusDownloading {
		return fmt.Errorf("controller: cannot pause from status %s", c.status)
	}
	c.signals.Pause()
	c.status = model.StatusPaused
	return nil
}

// Resume re-enters the download. If workers are still alive (a plain
// Pause), it just clears the pause signal. If they fully exited (a
// Stop(pause_only=true)), it respawns one worker per non-finished
// segment, each recomputing its start from the segment's current
// Downloaded counter — the same re-entry shape the original's
// resume_task uses via start_download.
func (c *Controller) Resume(ctx context.Context) error {
	c.mu.Lock()
	if c.status != model.StatusPaused {
		status := c.status
		c.mu.Unlock()
		return fmt.Errorf("controller: cannot resume from status %s", status)
	}

	if c.activeWorkers.Load() > 0 {
		c.signals.Resume()
		c.status = model.StatusDownloading
		c.mu.Unlock()
		return nil
	}

	c.signals.Rearm()
	var toRespawn []*model.Segment
	for _, s := range c.segments {
		if s.State != model.SegmentFinished {
			s.State = model.SegmentActive
			toRespawn = append(toRespawn, s)
		}
	}
	c.status = model.StatusDownloading
	c.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	for _, s := range toRespawn {
		c.spawnWorker(runCtx, s)
	}
	return nil
}

// Stop halts the download by tearing every worker down. pauseOnly=true
// lands on Paused (resumable via Resume's respawn path) instead of the
// terminal Cancelled.
func (c *Controller) Stop(pauseOnly bool) {
	c.mu.Lock()
	if c.status.IsTerminal() {
		c.mu.Unlock()
		return
	}
	if pauseOnly {
		c.status = model.StatusPaused
	}
	c.mu.Unlock()

	c.signals.Stop()
	if c.cancel != nil {
		c.cancel()
	}
}

// View returns a point-in-time snapshot of the task's public fields.
func (c *Controller) View() model.TaskView {
	c.mu.Lock()
	defer c.mu.Unlock()

	downloaded := c.sumDownloadedLocked()
	progress := 0
	if c.totalSize > 0 {
		progress = int(math.Floor(100 * float64(downloaded) / float64(c.totalSize)))
		if progress > 100 {
			progress = 100
		}
	}
	return model.TaskView{
		ID:              c.ID,
		FileName:        c.fileName,
		FileSize:        c.totalSize,
		Status:          c.status,
		ProgressPercent: progress,
		SpeedKbps:       c.speedKbps,
		ETA:             c.eta,
		DateAdded:       c.dateAdded,
	}
}

// Wait blocks until every worker goroutine for this download has exited.
// Used by tests and by the supervisor's Remove.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) setStatus(s model.Status, errMsg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = s
	c.errMsg = errMsg
}
