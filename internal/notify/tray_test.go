package notify

import (
	"testing"
	"time"
)

func TestTrayAutoDismisses(t *testing.T) {
	tray := NewTray(20 * time.Millisecond)
	tray.Success("Employee added successfully")
	if _, ok := tray.Peek(); !ok {
		t.Fatalf("expected notice right after show")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := tray.Peek(); !ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected notice to auto-dismiss")
}

func TestTrayTakeStopsTimer(t *testing.T) {
	tray := NewTray(time.Hour)
	tray.Error("Failed to fetch employees")

	notice, ok := tray.Take()
	if !ok {
		t.Fatalf("expected a notice")
	}
	if notice.Kind != KindError || notice.Message != "Failed to fetch employees" {
		t.Fatalf("unexpected notice %+v", notice)
	}
	if notice.Remaining <= 0 || notice.Remaining > time.Hour {
		t.Fatalf("unexpected remaining %s", notice.Remaining)
	}
	if tray.pending() {
		t.Fatalf("expected timer released after take")
	}
	if _, ok := tray.Take(); ok {
		t.Fatalf("a notice is shown once")
	}
}

func TestTrayDismissCancelsTimer(t *testing.T) {
	tray := NewTray(time.Hour)
	tray.Success("saved")
	tray.Dismiss()
	if tray.pending() {
		t.Fatalf("expected timer released on dismiss")
	}
	if _, ok := tray.Peek(); ok {
		t.Fatalf("expected no notice after dismiss")
	}
}

func TestTrayShowReplacesNotice(t *testing.T) {
	tray := NewTray(30 * time.Millisecond)
	tray.Success("first")
	time.Sleep(20 * time.Millisecond)
	tray.Error("second")
	time.Sleep(15 * time.Millisecond)

	notice, ok := tray.Peek()
	if !ok {
		t.Fatalf("the first timer must not clear the second notice")
	}
	if notice.Message != "second" {
		t.Fatalf("expected replacement notice, got %q", notice.Message)
	}
}

func TestTrayCloseIgnoresLaterShows(t *testing.T) {
	tray := NewTray(time.Hour)
	tray.Success("before close")
	tray.Close()
	if tray.pending() {
		t.Fatalf("expected timer released on close")
	}
	tray.Success("after close")
	if _, ok := tray.Peek(); ok {
		t.Fatalf("closed tray must stay empty")
	}
}

func TestNoticeDismissAfterMS(t *testing.T) {
	notice := Notice{Kind: KindSuccess, Remaining: 1500 * time.Millisecond}
	if notice.DismissAfterMS() != 1500 {
		t.Fatalf("unexpected ms %d", notice.DismissAfterMS())
	}
	if !notice.IsSuccess() {
		t.Fatalf("expected success")
	}
}
