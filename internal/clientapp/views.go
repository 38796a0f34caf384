package clientapp

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/phillip-england/hrmslite/internal/controller"
	"github.com/phillip-england/hrmslite/internal/hrms"
	"github.com/phillip-england/hrmslite/internal/notify"
	"github.com/phillip-england/hrmslite/internal/theme"
	"github.com/phillip-england/hrmslite/internal/workspace"
)

type pageData struct {
	Title      string
	Subtitle   string
	Active     string
	ReturnPath string
	Today      string

	Dark            bool
	ThemeTransition bool
	TransitionMS    int64
	Notice          *noticeView

	Departments []string

	Dashboard  *dashboardView
	Employees  *employeesView
	Attendance *attendanceView
}

type noticeView struct {
	Message        string
	Success        bool
	DismissAfterMS int64
}

type employeeRow struct {
	ID         string
	EmployeeID string
	FullName   string
	Email      string
	Department string
	Badge      string
	Initial    string
	AvatarURL  string
}

type dashboardView struct {
	Loading        bool
	Error          string
	TotalEmployees int
	PresentToday   int
	AbsentToday    int
	AttendanceRate int
}

type employeesView struct {
	Loading       bool
	Rows          []employeeRow
	Total         int
	Query         string
	EditorOpen    bool
	Editing       bool
	EditingID     string
	Form          hrms.EmployeeForm
	PendingDelete *employeeRow
	ExportURL     string
}

type employeeOption struct {
	ID       string
	Label    string
	Selected bool
}

type attendanceRow struct {
	Date      string
	DateLabel string
	Status    string
	Present   bool
	LoggedAt  string
}

type attendanceView struct {
	Options    []employeeOption
	SelectedID string
	Selected   *employeeRow
	Loading    bool
	Start      string
	End        string
	Filtered   bool
	Records    []attendanceRow
	Total      int
	Present    int
	Absent     int
	RateLabel  string
	MarkDate   string
	MarkStatus string
	ClearURL   string
	ExportURL  string
}

// basePage fills the layout fields every page shares. It takes the pending
// notice out of the tray, so each notice renders exactly once.
func (s *server) basePage(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace, active string) pageData {
	theme.Advertise(w)
	data := pageData{
		Active:          active,
		ReturnPath:      r.URL.RequestURI(),
		Today:           hrms.FormatLongDate(s.now()),
		Dark:            s.themes.Resolve(r).IsDark(),
		ThemeTransition: s.themes.TakeTransition(w, r),
		TransitionMS:    theme.TransitionDuration.Milliseconds(),
		Departments:     hrms.Departments,
	}
	if notice, ok := ws.Tray.Take(); ok {
		data.Notice = newNoticeView(notice)
	}
	return data
}

func newNoticeView(n notify.Notice) *noticeView {
	return &noticeView{Message: n.Message, Success: n.IsSuccess(), DismissAfterMS: n.DismissAfterMS()}
}

func newEmployeeRow(e hrms.Employee) employeeRow {
	initial := hrms.Initial(e.FullName)
	return employeeRow{
		ID:         e.ID.Hex(),
		EmployeeID: e.EmployeeID,
		FullName:   e.FullName,
		Email:      e.Email,
		Department: e.Department,
		Badge:      hrms.DepartmentBadge(e.Department),
		Initial:    initial,
		AvatarURL:  "/avatars/" + url.PathEscape(initial) + ".png?department=" + url.QueryEscape(e.Department),
	}
}

func newDashboardView(v controller.DashboardView) *dashboardView {
	return &dashboardView{
		Loading:        v.Phase == controller.PhaseLoading || v.Phase == controller.PhaseIdle,
		Error:          v.Error,
		TotalEmployees: v.Stats.TotalEmployees,
		PresentToday:   v.Stats.PresentToday,
		AbsentToday:    v.Stats.AbsentToday,
		AttendanceRate: v.AttendanceRate,
	}
}

func newEmployeesView(v controller.EmployeesView) *employeesView {
	view := &employeesView{
		Loading:    v.Phase == controller.PhaseLoading || v.Phase == controller.PhaseIdle,
		Rows:       make([]employeeRow, 0, len(v.Employees)),
		Total:      v.Total,
		Query:      v.Query,
		EditorOpen: v.EditorOpen,
		Editing:    v.Editing(),
		EditingID:  v.EditingID,
		Form:       v.Form,
		ExportURL:  "/employees/export.xlsx",
	}
	for _, e := range v.Employees {
		view.Rows = append(view.Rows, newEmployeeRow(e))
	}
	if v.PendingDelete != nil {
		row := newEmployeeRow(*v.PendingDelete)
		view.PendingDelete = &row
	}
	return view
}

func newAttendanceView(v controller.AttendanceView) *attendanceView {
	view := &attendanceView{
		Options:    make([]employeeOption, 0, len(v.Employees)),
		SelectedID: v.SelectedID,
		Loading:    v.Loading,
		Start:      v.Range.Start,
		End:        v.Range.End,
		Filtered:   !v.Range.IsZero(),
		Records:    make([]attendanceRow, 0, len(v.Records)),
		Total:      v.Summary.Total,
		Present:    v.Summary.Present,
		Absent:     v.Summary.Absent,
		RateLabel:  formatRate(v.Summary.Rate),
		MarkDate:   v.MarkDate,
		MarkStatus: string(v.MarkStatus),
	}
	for _, e := range v.Employees {
		view.Options = append(view.Options, employeeOption{
			ID:       e.ID.Hex(),
			Label:    fmt.Sprintf("%s - %s", e.FullName, e.EmployeeID),
			Selected: e.ID.Hex() == v.SelectedID,
		})
	}
	if v.Selected != nil {
		row := newEmployeeRow(*v.Selected)
		view.Selected = &row
	}
	for _, record := range v.Records {
		view.Records = append(view.Records, attendanceRow{
			Date:      hrms.NormalizeDate(record.Date),
			DateLabel: hrms.FormatRecordDate(record.Date),
			Status:    string(record.Status),
			Present:   record.Status == hrms.StatusPresent,
			LoggedAt:  hrms.FormatLoggedAt(record.Timestamp),
		})
	}

	clearQuery := url.Values{"cached": {"1"}, "employee": {v.SelectedID}, "start": {""}, "end": {""}}
	view.ClearURL = "/attendance?" + clearQuery.Encode()
	view.ExportURL = "/attendance/export.xlsx"
	return view
}

// formatRate prints one decimal place, dropping a trailing ".0".
func formatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64) + "%"
}
