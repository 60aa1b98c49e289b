// Package supervisor owns the collection of downloads: create, list,
// pause, resume, stop, remove, and deferred scheduling.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"segfetch/internal/bandwidth"
	"segfetch/internal/controller"
	"segfetch/internal/diskstat"
	"segfetch/internal/httpclient"
	"segfetch/internal/model"
	"segfetch/internal/netcheck"
)

// streamingHosts is the literal domain list the original's add_download
// checks before handing a URL to its segmented path; grounded on
// download_manager.py's add_download (`any(domain in url.lower() for
// domain in [...])`).
var streamingHosts = []string{"youtube", "youtu.be", "vimeo", "dailymotion"}

// StreamingSiteError signals that a URL matched a known streaming host
// and must be handed to an external extractor instead of the segmented
// engine; the extractor itself is out of scope.
type StreamingSiteError struct {
	URL string
}

func (e *StreamingSiteError) Error() string {
	return fmt.Sprintf("supervisor: %q is a streaming-site URL, not a direct download", e.URL)
}

// IsStreamingSite reports whether url's host matches one of the known
// streaming sites by the same simple substring rule as the original.
func IsStreamingSite(url string) bool {
	lower := strings.ToLower(url)
	for _, host := range streamingHosts {
		if strings.Contains(lower, host) {
			return true
		}
	}
	return false
}

// handle is the supervisor's internal record for one task.
type handle struct {
	ctrl        *controller.Controller
	scheduleAt  time.Time
	started     bool
}

// Supervisor owns the task set under a single mutex; only it mutates the
// set, readers snapshot under the same lock.
type Supervisor struct {
	mu      sync.Mutex
	tasks   map[string]*handle
	order   []string // stable add-order for list()

	client    *httpclient.Facade
	bandwidth *bandwidth.Manager
	logger    *slog.Logger
}

// New builds a Supervisor. userAgent and rateLimitBytesPerSec come from
// the external configuration collaborator (see config.Values).
func New(logger *slog.Logger, userAgent string, rateLimitBytesPerSec int) *Supervisor {
	bw := bandwidth.NewManager()
	bw.SetLimit(rateLimitBytesPerSec)
	return &Supervisor{
		tasks:     make(map[string]*handle),
		client:    httpclient.New(userAgent),
		bandwidth: bw,
		logger:    logger,
	}
}

// Add constructs a controller for url and, unless scheduleTime is in the
// future, starts it immediately in the background. scheduleTime is the
// zero time.Time for "start now".
func (s *Supervisor) Add(ctx context.Context, url, destDir, fileName string, segments int, scheduleTime time.Time) (string, error) {
	if IsStreamingSite(url) {
		return "", &StreamingSiteError{URL: url}
	}

	id := uuid.NewString()
	ctrl := controller.New(id, url, destDir, fileName, segments, s.client, s.bandwidth, s.logger)

	h := &handle{ctrl: ctrl, scheduleAt: scheduleTime}

	s.mu.Lock()
	s.tasks[id] = h
	s.order = append(s.order, id)
	s.mu.Unlock()

	if scheduleTime.IsZero() || !scheduleTime.After(time.Now()) {
		if err := ctrl.Start(ctx); err != nil {
			return id, err
		}
		h.started = true
	} else {
		ctrl.SetScheduled()
	}

	return id, nil
}

// List returns a stable-order snapshot of every task's public view.
func (s *Supervisor) List() []model.TaskView {
	s.mu.Lock()
	defer s.mu.Unlock()

	views := make([]model.TaskView, 0, len(s.order))
	for _, id := range s.order {
		h, ok := s.tasks[id]
		if !ok {
			continue
		}
		views = append(views, h.ctrl.View())
	}
	return views
}

var ErrNotFound = errors.New("supervisor: task not found")

func (s *Supervisor) get(id string) (*handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return h, nil
}

// Pause delegates to the controller.
func (s *Supervisor) Pause(id string) error {
	h, err := s.get(id)
	if err != nil {
		return err
	}
	return h.ctrl.Pause()
}

// Resume delegates to the controller.
func (s *Supervisor) Resume(ctx context.Context, id string) error {
	h, err := s.get(id)
	if err != nil {
		return err
	}
	return h.ctrl.Resume(ctx)
}

// Stop delegates to the controller.
func (s *Supervisor) Stop(id string, pauseOnly bool) error {
	h, err := s.get(id)
	if err != nil {
		return err
	}
	h.ctrl.Stop(pauseOnly)
	return nil
}

// Remove stops (full cancel) then evicts the task from the set.
func (s *Supervisor) Remove(id string) error {
	h, err := s.get(id)
	if err != nil {
		return err
	}
	h.ctrl.Stop(false)
	h.ctrl.Wait()

	s.mu.Lock()
	delete(s.tasks, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	return nil
}

// StopAll stops every task not already in a terminal state.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.tasks))
	for id, h := range s.tasks {
		if !h.ctrl.View().Status.IsTerminal() {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()

	for _, id := range ids {
		if h, err := s.get(id); err == nil {
			h.ctrl.Stop(false)
		}
	}
}

// TickScheduler starts every task whose schedule time has arrived.
// Callers (the CLI's serve loop, typically) invoke this periodically;
// the spec leaves scheduling-at-time as a deferred-invocation detail
// with no design content beyond "transition to Downloading and start".
func (s *Supervisor) TickScheduler(ctx context.Context) {
	now := time.Now()

	s.mu.Lock()
	var due []*handle
	for _, id := range s.order {
		h := s.tasks[id]
		if h == nil || h.started {
			continue
		}
		if !h.scheduleAt.IsZero() && !h.scheduleAt.After(now) {
			due = append(due, h)
		}
	}
	s.mu.Unlock()

	for _, h := range due {
		h.started = true
		if err := h.ctrl.Start(ctx); err != nil {
			s.logger.Error("scheduled start failed", "error", err)
		}
	}
}

// Stats is the supervisor-facing surface for the "can this disk take
// another download" and "how fast is this link" questions, tying
// diskstat and netcheck into the operations the controller itself has
// no business knowing about.
type Stats struct {
	Disk  diskstat.Usage  `json:"disk"`
	Speed *netcheck.Result `json:"speed,omitempty"`
}

// DiskUsage reports free/used/total space for destDir's volume.
func (s *Supervisor) DiskUsage(destDir string) (diskstat.Usage, error) {
	return diskstat.ForPath(destDir)
}

// HasRoomFor reports whether destDir's volume can hold requiredBytes
// more. Add does not call it; it is a query for callers.
func (s *Supervisor) HasRoomFor(destDir string, requiredBytes int64) (bool, error) {
	return diskstat.HasRoomFor(destDir, requiredBytes)
}

// RunSpeedTest runs a one-off network speed probe, surfaced by the CLI's
// speedtest subcommand.
func (s *Supervisor) RunSpeedTest(ctx context.Context) (*netcheck.Result, error) {
	return netcheck.Run(ctx)
}

// SortByDateAdded is a small helper the CLI's `ls` subcommand uses to
// present tasks oldest-first, matching the original's treeview default.
func SortByDateAdded(views []model.TaskView) {
	sort.Slice(views, func(i, j int) bool { return views[i].DateAdded.Before(views[j].DateAdded) })
}
