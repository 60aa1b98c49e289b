// Package model holds the shared value types passed between the segment
// worker, download controller, and task supervisor layers.
package model

import (
	"sync/atomic"
	"time"
)

// Status is the closed set of task lifecycle states from the task state
// machine. Transitions are monotonic toward the terminal states.
type Status string

const (
	StatusQueued      Status = "Queued"
	StatusScheduled   Status = "Scheduled"
	StatusDownloading Status = "Downloading"
	StatusPaused      Status = "Paused"
	StatusCompleted   Status = "Completed"
	StatusCancelled   Status = "Cancelled"
	StatusError       Status = "Error"
)

// IsTerminal reports whether the status only leaves via remove().
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusError:
		return true
	default:
		return false
	}
}

// SegmentState replaces the pair of booleans (is_finished, is_stopped) from
// the source with an exhaustive enum so the worker's exit path is a single
// switch instead of two independent flags that could disagree.
type SegmentState int32

const (
	SegmentActive SegmentState = iota
	SegmentFinished
	SegmentStopped
)

func (s SegmentState) String() string {
	switch s {
	case SegmentFinished:
		return "finished"
	case SegmentStopped:
		return "stopped"
	default:
		return "active"
	}
}

// OpenEnd marks a segment whose upper bound is unknown because the server
// did not advertise a Content-Length.
const OpenEnd int64 = -1

// Segment is one contiguous byte range of the target file, owned by exactly
// one worker at a time. Downloaded is updated with atomic adds from the
// worker goroutine and read by the monitor and by splitting logic; Start,
// End and State are only ever touched while the controller holds its task
// lock (workers read their own End under the same lock before each chunk).
type Segment struct {
	Start      int64
	End        int64 // OpenEnd when unknown
	Downloaded int64 // atomic
	State      SegmentState
	TempPath   string
}

// IsOpenEnded reports whether the segment has no known upper bound.
func (s *Segment) IsOpenEnded() bool {
	return s.End == OpenEnd
}

// Remaining returns end - start + 1 - downloaded for a closed segment,
// clamped at 0. It returns 0 for an open-ended segment.
func (s *Segment) Remaining() int64 {
	if s.IsOpenEnded() {
		return 0
	}
	size := s.End - s.Start + 1
	left := size - atomic.LoadInt64(&s.Downloaded)
	if left < 0 {
		return 0
	}
	return left
}

// TaskView is the read-only public handle a shell polls, matching the
// field list in the external interfaces section plus an ID for addressing.
type TaskView struct {
	ID              string
	FileName        string
	FileSize        int64
	Status          Status
	ProgressPercent int
	SpeedKbps       float64
	ETA             string
	DateAdded       time.Time
}
