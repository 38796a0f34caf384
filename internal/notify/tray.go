// Package notify keeps the transient success/error notice a workspace shows in
// the bottom corner of every page.
package notify

import (
	"sync"
	"time"
)

const DefaultTTL = 4 * time.Second

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

type Notice struct {
	Kind    Kind
	Message string
	// Remaining is how long the browser should keep the notice on screen.
	Remaining time.Duration
}

func (n Notice) IsSuccess() bool {
	return n.Kind == KindSuccess
}

func (n Notice) DismissAfterMS() int64 {
	return n.Remaining.Milliseconds()
}

// Tray holds at most one notice. Showing a new notice replaces the old one and
// re-arms the auto-dismiss timer; every exit path stops the timer it owns.
type Tray struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	current *Notice
	shownAt time.Time
	timer   *time.Timer
	seq     uint64
	closed  bool
}

func NewTray(ttl time.Duration) *Tray {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tray{ttl: ttl, now: time.Now}
}

func (t *Tray) Success(message string) {
	t.Show(KindSuccess, message)
}

func (t *Tray) Error(message string) {
	t.Show(KindError, message)
}

func (t *Tray) Show(kind Kind, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || message == "" {
		return
	}
	t.stopLocked()
	t.seq++
	seq := t.seq
	t.current = &Notice{Kind: kind, Message: message}
	t.shownAt = t.now()
	t.timer = time.AfterFunc(t.ttl, func() { t.expire(seq) })
}

// Take hands the notice to a renderer and clears the tray. The browser keeps
// the auto-dismiss countdown for whatever time is left.
func (t *Tray) Take() (Notice, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return Notice{}, false
	}
	notice := *t.current
	notice.Remaining = t.ttl - t.now().Sub(t.shownAt)
	if notice.Remaining < time.Second {
		notice.Remaining = time.Second
	}
	t.stopLocked()
	return notice, true
}

func (t *Tray) Peek() (Notice, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return Notice{}, false
	}
	return *t.current, true
}

func (t *Tray) Dismiss() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

// Close stops the pending timer for good. Later Show calls are ignored.
func (t *Tray) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
	t.closed = true
}

func (t *Tray) pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}

func (t *Tray) expire(seq uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	// A timer that lost the race with Show/Take must not clear a newer notice.
	if seq != t.seq || t.current == nil {
		return
	}
	t.current = nil
	t.timer = nil
}

func (t *Tray) stopLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.current = nil
	t.seq++
}
