package clientapp

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/phillip-england/hrmslite/internal/controller"
	"github.com/phillip-england/hrmslite/internal/hrms"
	"github.com/phillip-england/hrmslite/internal/roster"
)

const maxRosterUpload = 10 << 20

// A GET without cached=1 is a page mount and re-reads the backend. Redirects
// after a form post carry cached=1 so the page renders from what the
// workspace already holds.
func isCachedRender(r *http.Request) bool {
	return r.URL.Query().Get("cached") == "1"
}

func (s *server) dashboardPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ws := s.workspaces.Resolve(w, r)
	if err := ws.Dashboard.Load(r.Context()); err != nil {
		log.Printf("dashboard stats: %v", err)
	}

	data := s.basePage(w, r, ws, "dashboard")
	data.Title = "HRMS Lite Dashboard"
	data.Subtitle = "Overview of your workforce today"
	data.Dashboard = newDashboardView(ws.Dashboard.View())
	if err := renderHTMLTemplate(w, s.dashboardTmpl, data); err != nil {
		http.Error(w, "template render failed", http.StatusInternalServerError)
		log.Printf("dashboard template render failed: %v", err)
	}
}

func (s *server) employeesRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.employeesPage(w, r)
	case http.MethodPost:
		requireSameOrigin(http.HandlerFunc(s.employeeSubmit)).ServeHTTP(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *server) employeesPage(w http.ResponseWriter, r *http.Request) {
	ws := s.workspaces.Resolve(w, r)
	page := ws.Employees
	query := r.URL.Query()

	if !isCachedRender(r) || !page.Loaded() {
		page.CloseEditor()
		page.CancelDelete()
		page.SetQuery(query.Get("q"))
		if err := page.Refresh(r.Context()); err != nil && !errors.Is(err, controller.ErrStale) {
			log.Printf("employees list: %v", err)
		}
	} else if _, ok := query["q"]; ok {
		page.SetQuery(query.Get("q"))
	}

	data := s.basePage(w, r, ws, "employees")
	data.Title = "Employee Management"
	data.Subtitle = "Manage your organization's workforce"
	data.Employees = newEmployeesView(page.View())
	if err := renderHTMLTemplate(w, s.employeesTmpl, data); err != nil {
		http.Error(w, "template render failed", http.StatusInternalServerError)
		log.Printf("employees template render failed: %v", err)
	}
}

func (s *server) employeeSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectEmployees(w, r)
		return
	}
	ws := s.workspaces.Resolve(w, r)
	form := hrms.EmployeeForm{
		EmployeeID: r.FormValue("employee_id"),
		FullName:   r.FormValue("full_name"),
		Email:      r.FormValue("email"),
		Department: r.FormValue("department"),
	}

	page := ws.Employees
	// The hidden id decides create versus update, whatever the editor
	// state in this workspace says.
	id := strings.TrimSpace(r.FormValue("id"))
	switch editing := page.View().EditingID; {
	case id != "" && editing != id:
		if err := page.OpenEdit(id); err != nil {
			ws.Tray.Error("Failed to update employee")
			redirectEmployees(w, r)
			return
		}
	case id == "" && editing != "":
		page.OpenCreate()
	}
	if err := page.Submit(r.Context(), form); err != nil {
		log.Printf("employee submit: %v", err)
	}
	redirectEmployees(w, r)
}

func (s *server) employeeEditor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	_ = r.ParseForm()
	page := s.workspaces.Resolve(w, r).Employees
	switch r.FormValue("action") {
	case "new":
		page.OpenCreate()
	case "edit":
		if err := page.OpenEdit(r.FormValue("id")); err != nil {
			log.Printf("employee editor: %v", err)
		}
	default:
		page.CloseEditor()
	}
	redirectEmployees(w, r)
}

func (s *server) employeeDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	_ = r.ParseForm()
	page := s.workspaces.Resolve(w, r).Employees
	switch r.FormValue("action") {
	case "request":
		if err := page.RequestDelete(r.FormValue("id")); err != nil {
			log.Printf("employee delete request: %v", err)
		}
	case "confirm":
		if err := page.ConfirmDelete(r.Context()); err != nil && !errors.Is(err, controller.ErrNoPendingDelete) {
			log.Printf("employee delete: %v", err)
		}
	default:
		page.CancelDelete()
	}
	redirectEmployees(w, r)
}

func (s *server) employeeImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ws := s.workspaces.Resolve(w, r)
	r.Body = http.MaxBytesReader(w, r.Body, maxRosterUpload)
	if err := r.ParseMultipartForm(maxRosterUpload); err != nil {
		ws.Tray.Error("Roster upload is too large or malformed")
		redirectEmployees(w, r)
		return
	}
	file, header, err := r.FormFile("roster_file")
	if err != nil {
		ws.Tray.Error("Choose a roster file to import")
		redirectEmployees(w, r)
		return
	}
	defer file.Close()

	entries, err := roster.Read(file, header.Filename)
	if err != nil {
		ws.Tray.Error(fmt.Sprintf("Unable to read roster: %v", err))
		redirectEmployees(w, r)
		return
	}
	result := ws.Employees.Import(r.Context(), entries)
	log.Printf("roster import %q: %d added, %d failed", header.Filename, result.Added, len(result.Failures))
	redirectEmployees(w, r)
}

func (s *server) employeeExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	page := s.workspaces.Resolve(w, r).Employees
	if !page.Loaded() {
		if err := page.Refresh(r.Context()); err != nil {
			http.Error(w, "unable to load employees", http.StatusBadGateway)
			return
		}
	}
	employees := page.Visible()
	writeWorkbook(w, "employees.xlsx", func(out io.Writer) error {
		return roster.WriteEmployees(out, employees)
	})
}

func (s *server) attendancePage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ws := s.workspaces.Resolve(w, r)
	page := ws.Attendance
	query := r.URL.Query()

	if !isCachedRender(r) || !page.HasEmployees() {
		if err := page.LoadEmployees(r.Context()); err != nil {
			log.Printf("attendance employees: %v", err)
		}
	}
	if values, ok := query["employee"]; ok {
		id := strings.TrimSpace(values[0])
		if id != page.SelectedID() {
			if err := page.Select(r.Context(), id); err != nil && !errors.Is(err, controller.ErrStale) {
				log.Printf("attendance select: %v", err)
			}
		}
	}
	_, hasStart := query["start"]
	_, hasEnd := query["end"]
	if hasStart || hasEnd {
		page.SetRange(strings.TrimSpace(query.Get("start")), strings.TrimSpace(query.Get("end")))
	}

	data := s.basePage(w, r, ws, "attendance")
	data.Title = "Attendance Management"
	data.Subtitle = "Track and manage employee attendance"
	data.Attendance = newAttendanceView(page.View())
	if err := renderHTMLTemplate(w, s.attendanceTmpl, data); err != nil {
		http.Error(w, "template render failed", http.StatusInternalServerError)
		log.Printf("attendance template render failed: %v", err)
	}
}

func (s *server) attendanceMark(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	_ = r.ParseForm()
	ws := s.workspaces.Resolve(w, r)
	// Blank fields fall back to the date and status the page already holds.
	status, _ := hrms.ParseStatus(r.FormValue("status"))
	date := hrms.NormalizeDate(r.FormValue("date"))
	if err := ws.Attendance.Mark(r.Context(), date, status); err != nil {
		log.Printf("attendance mark: %v", err)
	}
	http.Redirect(w, r, "/attendance?cached=1", http.StatusSeeOther)
}

func (s *server) attendanceExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	view := s.workspaces.Resolve(w, r).Attendance.View()
	if view.Selected == nil {
		http.Error(w, "select an employee first", http.StatusBadRequest)
		return
	}
	filename := "attendance-" + safeFilename(view.Selected.EmployeeID) + ".xlsx"
	writeWorkbook(w, filename, func(out io.Writer) error {
		return roster.WriteAttendance(out, view.Records)
	})
}

// writeWorkbook builds the whole file before sending headers so a failed
// export is a clean 500.
func writeWorkbook(w http.ResponseWriter, filename string, write func(io.Writer) error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		http.Error(w, "workbook export failed", http.StatusInternalServerError)
		log.Printf("workbook %s export failed: %v", filename, err)
		return
	}
	w.Header().Set("Content-Type", roster.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

func redirectEmployees(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/employees?cached=1", http.StatusSeeOther)
}

func safeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "employee"
	}
	return b.String()
}
