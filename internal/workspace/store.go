// Package workspace keeps one set of page controllers per browser. A browser
// is identified by an opaque cookie; idle workspaces are evicted and their
// notification timers stopped.
package workspace

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phillip-england/hrmslite/internal/controller"
	"github.com/phillip-england/hrmslite/internal/hrmsclient"
	"github.com/phillip-england/hrmslite/internal/notify"
)

const CookieName = "hrms_workspace"

// Workspace is the state one browser sees: the three pages and the shared
// notification tray they report into.
type Workspace struct {
	ID         string
	Dashboard  *controller.Dashboard
	Employees  *controller.Employees
	Attendance *controller.Attendance
	Tray       *notify.Tray

	lastSeen time.Time
}

type Options struct {
	NotifyTTL time.Duration
	IdleTTL   time.Duration
	// MaxWorkspaces caps how many browsers are tracked at once; the least
	// recently seen workspace is evicted to make room.
	MaxWorkspaces int
	Now           func() time.Time
}

const DefaultMaxWorkspaces = 5000

type Store struct {
	api       *hrmsclient.Client
	notifyTTL time.Duration
	idleTTL   time.Duration
	max       int
	now       func() time.Time

	mu         sync.Mutex
	workspaces map[string]*Workspace
	stop       chan struct{}
	stopOnce   sync.Once
}

func NewStore(api *hrmsclient.Client, opts Options) *Store {
	if opts.NotifyTTL <= 0 {
		opts.NotifyTTL = notify.DefaultTTL
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 2 * time.Hour
	}
	if opts.MaxWorkspaces <= 0 {
		opts.MaxWorkspaces = DefaultMaxWorkspaces
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		api:        api,
		notifyTTL:  opts.NotifyTTL,
		idleTTL:    opts.IdleTTL,
		max:        opts.MaxWorkspaces,
		now:        opts.Now,
		workspaces: map[string]*Workspace{},
		stop:       make(chan struct{}),
	}
}

// Resolve returns the workspace named by the request cookie, creating one
// (and setting the cookie) when the cookie is missing or unknown.
func (s *Store) Resolve(w http.ResponseWriter, r *http.Request) *Workspace {
	id := ""
	if cookie, err := r.Cookie(CookieName); err == nil {
		id = cookie.Value
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ws, ok := s.workspaces[id]; ok && id != "" {
		ws.lastSeen = s.now()
		return ws
	}

	ws := s.newWorkspaceLocked()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    ws.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	return ws
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.workspaces)
}

// Sweep evicts workspaces idle for longer than the idle TTL and returns how
// many were removed.
func (s *Store) Sweep() int {
	cutoff := s.now().Add(-s.idleTTL)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, ws := range s.workspaces {
		if ws.lastSeen.Before(cutoff) {
			ws.Tray.Close()
			delete(s.workspaces, id)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep every interval until Close.
func (s *Store) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ws := range s.workspaces {
		ws.Tray.Close()
		delete(s.workspaces, id)
	}
}

func (s *Store) newWorkspaceLocked() *Workspace {
	for len(s.workspaces) >= s.max {
		s.evictOldestLocked()
	}
	tray := notify.NewTray(s.notifyTTL)
	ws := &Workspace{
		ID:         uuid.NewString(),
		Dashboard:  controller.NewDashboard(s.api),
		Employees:  controller.NewEmployees(s.api, tray),
		Attendance: controller.NewAttendance(s.api, tray, s.now),
		Tray:       tray,
		lastSeen:   s.now(),
	}
	s.workspaces[ws.ID] = ws
	return ws
}

func (s *Store) evictOldestLocked() {
	var oldest *Workspace
	for _, ws := range s.workspaces {
		if oldest == nil || ws.lastSeen.Before(oldest.lastSeen) {
			oldest = ws
		}
	}
	if oldest == nil {
		return
	}
	oldest.Tray.Close()
	delete(s.workspaces, oldest.ID)
}
