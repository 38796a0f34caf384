package controller

import (
	"context"
	"sync"
	"time"

	"github.com/phillip-england/hrmslite/internal/hrms"
	"github.com/phillip-england/hrmslite/internal/hrmsclient"
)

type AttendanceAPI interface {
	ListEmployees(ctx context.Context) ([]hrms.Employee, error)
	ListAttendance(ctx context.Context, employeeID string) ([]hrms.AttendanceRecord, error)
	MarkAttendance(ctx context.Context, req hrms.MarkAttendanceRequest) (hrms.AttendanceRecord, error)
}

type AttendanceView struct {
	Employees  []hrms.Employee
	SelectedID string
	Selected   *hrms.Employee
	Loading    bool
	Range      hrms.DateRange
	Records    []hrms.AttendanceRecord
	Summary    hrms.AttendanceSummary
	MarkDate   string
	MarkStatus hrms.Status
}

type attendanceMemoKey struct {
	version uint64
	rng     hrms.DateRange
}

// Attendance is the attendance page. Selecting an employee fetches that
// employee's history; every fetch takes a new generation and cancels the one
// before it, so an older response can never overwrite a newer selection.
type Attendance struct {
	api    AttendanceAPI
	notify Notifier
	now    func() time.Time

	mu         sync.Mutex
	employees  []hrms.Employee
	selected   string
	records    []hrms.AttendanceRecord
	version    uint64
	gen        uint64
	cancel     context.CancelFunc
	loading    bool
	rng        hrms.DateRange
	markDate   string
	markStatus hrms.Status

	memoKey     attendanceMemoKey
	memoValid   bool
	memoRecords []hrms.AttendanceRecord
	memoSummary hrms.AttendanceSummary
}

func NewAttendance(api AttendanceAPI, notifier Notifier, now func() time.Time) *Attendance {
	if now == nil {
		now = time.Now
	}
	return &Attendance{
		api:        api,
		notify:     notifierOrDiscard(notifier),
		now:        now,
		markDate:   hrms.Today(now()),
		markStatus: hrms.StatusPresent,
	}
}

// LoadEmployees is the page mount: selection, history, range and the mark
// form go back to their defaults and the employee list is fetched.
func (a *Attendance) LoadEmployees(ctx context.Context) error {
	a.mu.Lock()
	a.abandonFetchLocked()
	a.selected = ""
	a.setRecordsLocked(nil)
	a.rng = hrms.DateRange{}
	a.markDate = hrms.Today(a.now())
	a.markStatus = hrms.StatusPresent
	a.mu.Unlock()

	employees, err := a.api.ListEmployees(ctx)
	if err != nil {
		a.notify.Error("Failed to fetch employees")
		return err
	}

	a.mu.Lock()
	a.employees = employees
	a.mu.Unlock()
	return nil
}

// Select switches the selected employee. An empty id clears the history
// without touching the network.
func (a *Attendance) Select(ctx context.Context, id string) error {
	a.mu.Lock()
	if id == "" {
		a.selected = ""
		a.abandonFetchLocked()
		a.setRecordsLocked(nil)
		a.mu.Unlock()
		return nil
	}
	employee, ok := hrms.FindEmployee(a.employees, id)
	a.selected = id
	// The previous employee's rows never show under the new selection.
	a.abandonFetchLocked()
	a.setRecordsLocked(nil)
	a.mu.Unlock()
	if !ok {
		return ErrUnknownEmployee
	}

	return a.fetch(ctx, employee.EmployeeID)
}

func (a *Attendance) SelectedID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.selected
}

func (a *Attendance) HasEmployees() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.employees != nil
}

// Mark records attendance for the selected employee and re-reads that
// employee's history so any server-side merge shows up.
func (a *Attendance) Mark(ctx context.Context, date string, status hrms.Status) error {
	a.mu.Lock()
	selected := a.selected
	employee, found := hrms.FindEmployee(a.employees, selected)
	if date == "" {
		date = a.markDate
	} else {
		a.markDate = date
	}
	if status == "" {
		status = a.markStatus
	} else {
		a.markStatus = status
	}
	a.mu.Unlock()

	if selected == "" {
		a.notify.Error("Please select an employee")
		return ErrNoSelection
	}
	if !found {
		a.notify.Error("Please select an employee")
		return ErrUnknownEmployee
	}

	req := hrms.MarkAttendanceRequest{
		EmployeeID: employee.EmployeeID,
		Date:       date,
		Status:     status,
	}
	if _, err := a.api.MarkAttendance(ctx, req); err != nil {
		a.notify.Error(hrmsclient.Message(err, "Failed to mark attendance"))
		return err
	}

	a.notify.Success("Attendance marked successfully")
	if err := a.fetch(ctx, employee.EmployeeID); err != nil && err != ErrStale {
		return err
	}
	return nil
}

func (a *Attendance) SetRange(start, end string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rng = hrms.DateRange{Start: start, End: end}
}

func (a *Attendance) ClearRange() {
	a.SetRange("", "")
}

func (a *Attendance) View() AttendanceView {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := attendanceMemoKey{version: a.version, rng: a.rng}
	if !a.memoValid || a.memoKey != key {
		a.memoRecords = hrms.FilterAttendanceByRange(a.records, a.rng)
		a.memoSummary = hrms.SummarizeAttendance(a.memoRecords)
		a.memoKey = key
		a.memoValid = true
	}

	view := AttendanceView{
		Employees:  a.employees,
		SelectedID: a.selected,
		Loading:    a.loading,
		Range:      a.rng,
		Records:    a.memoRecords,
		Summary:    a.memoSummary,
		MarkDate:   a.markDate,
		MarkStatus: a.markStatus,
	}
	if employee, ok := hrms.FindEmployee(a.employees, a.selected); ok && a.selected != "" {
		view.Selected = &employee
	}
	return view
}

func (a *Attendance) fetch(ctx context.Context, employeeID string) error {
	a.mu.Lock()
	a.abandonFetchLocked()
	a.gen++
	gen := a.gen
	fetchCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.loading = true
	a.mu.Unlock()

	records, err := a.api.ListAttendance(fetchCtx, employeeID)

	a.mu.Lock()
	defer a.mu.Unlock()
	cancel()
	if gen != a.gen {
		return ErrStale
	}
	a.cancel = nil
	a.loading = false
	if err != nil {
		a.notify.Error("Failed to fetch attendance")
		return err
	}
	hrms.SortAttendanceByDateDesc(records)
	a.setRecordsLocked(records)
	return nil
}

// abandonFetchLocked cancels the in-flight fetch and bumps the generation so
// its response is dropped when it lands.
func (a *Attendance) abandonFetchLocked() {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.gen++
	a.loading = false
}

func (a *Attendance) setRecordsLocked(records []hrms.AttendanceRecord) {
	a.records = records
	a.version++
}
