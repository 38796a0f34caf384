package controller

import (
	"context"
	"sync"

	"github.com/phillip-england/hrmslite/internal/hrms"
)

const dashboardLoadError = "Failed to load dashboard statistics."

type DashboardAPI interface {
	DashboardStats(ctx context.Context) (hrms.DashboardStats, error)
}

type DashboardView struct {
	Phase          Phase
	Stats          hrms.DashboardStats
	AttendanceRate int
	Error          string
}

// Dashboard reads the aggregate stats once per mount. There is no refresh or
// polling; a failed read leaves the page in the error state.
type Dashboard struct {
	api DashboardAPI

	mu    sync.Mutex
	phase Phase
	stats hrms.DashboardStats
	err   string
}

func NewDashboard(api DashboardAPI) *Dashboard {
	return &Dashboard{api: api, phase: PhaseIdle}
}

func (d *Dashboard) Load(ctx context.Context) error {
	d.mu.Lock()
	d.phase = PhaseLoading
	d.stats = hrms.DashboardStats{}
	d.err = ""
	d.mu.Unlock()

	stats, err := d.api.DashboardStats(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.phase = PhaseError
		d.err = dashboardLoadError
		return err
	}
	d.phase = PhaseReady
	d.stats = stats
	return nil
}

func (d *Dashboard) View() DashboardView {
	d.mu.Lock()
	defer d.mu.Unlock()
	view := DashboardView{Phase: d.phase, Error: d.err}
	if d.phase == PhaseReady {
		view.Stats = d.stats
		view.AttendanceRate = hrms.DashboardAttendanceRate(d.stats)
	}
	return view
}
