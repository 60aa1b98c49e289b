package model

import "testing"

func TestStatusIsTerminal(t *testing.T) {
	tests := []struct {
		status   Status
		terminal bool
	}{
		{StatusQueued, false},
		{StatusScheduled, false},
		{StatusDownloading, false},
		{StatusPaused, false},
		{StatusCompleted, true},
		{StatusCancelled, true},
		{StatusError, true},
	}

	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.terminal {
			t.Errorf("Status(%s).IsTerminal() = %v, want %v", tt.status, got, tt.terminal)
		}
	}
}

func TestSegmentRemaining(t *testing.T) {
	tests := []struct {
		name       string
		seg        Segment
		remaining  int64
	}{
		{"fresh segment", Segment{Start: 0, End: 99, Downloaded: 0}, 100},
		{"half done", Segment{Start: 0, End: 99, Downloaded: 50}, 50},
		{"fully done", Segment{Start: 0, End: 99, Downloaded: 100}, 0},
		{"overshoot clamps to zero", Segment{Start: 0, End: 99, Downloaded: 150}, 0},
		{"open ended is always zero", Segment{Start: 0, End: OpenEnd, Downloaded: 50}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.seg.Remaining(); got != tt.remaining {
				t.Errorf("Remaining() = %d, want %d", got, tt.remaining)
			}
		})
	}
}

func TestSegmentIsOpenEnded(t *testing.T) {
	closed := Segment{Start: 0, End: 10}
	open := Segment{Start: 0, End: OpenEnd}

	if closed.IsOpenEnded() {
		t.Error("closed segment reported as open-ended")
	}
	if !open.IsOpenEnded() {
		t.Error("open-ended segment not reported as open-ended")
	}
}

func TestSegmentStateString(t *testing.T) {
	tests := []struct {
		state SegmentState
		want  string
	}{
		{SegmentActive, "active"},
		{SegmentFinished, "finished"},
		{SegmentStopped, "stopped"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("SegmentState(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
