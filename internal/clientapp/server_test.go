package clientapp

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/phillip-england/hrmslite/internal/apiapp"
	"github.com/phillip-england/hrmslite/internal/hrms"
	"github.com/phillip-england/hrmslite/internal/hrmsclient"
	"github.com/phillip-england/hrmslite/internal/roster"
)

func fixedNow() time.Time {
	return time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
}

type harness struct {
	t       *testing.T
	console *httptest.Server
	api     *hrmsclient.Client
	browser *http.Client
}

func newHarness(t *testing.T, backend apiapp.Config) *harness {
	t.Helper()
	backend.Now = fixedNow
	apiHandler, err := apiapp.NewHandler(backend)
	if err != nil {
		t.Fatalf("backend: %v", err)
	}
	apiServer := httptest.NewServer(apiHandler)
	t.Cleanup(apiServer.Close)
	return newHarnessForAPI(t, apiServer.URL)
}

func newHarnessForAPI(t *testing.T, apiURL string) *harness {
	t.Helper()
	handler, closeWorkspaces, err := NewHandler(Config{
		APIBaseURL: apiURL,
		APITimeout: 2 * time.Second,
		Now:        fixedNow,
	})
	if err != nil {
		t.Fatalf("console: %v", err)
	}
	t.Cleanup(closeWorkspaces)
	console := httptest.NewServer(handler)
	t.Cleanup(console.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &harness{
		t:       t,
		console: console,
		api:     hrmsclient.New(apiURL, &http.Client{Timeout: 2 * time.Second}),
		browser: &http.Client{Jar: jar, Timeout: 5 * time.Second},
	}
}

func (h *harness) document(resp *http.Response) *goquery.Document {
	h.t.Helper()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		h.t.Fatalf("unexpected status %d for %s", resp.StatusCode, resp.Request.URL)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		h.t.Fatalf("parse html: %v", err)
	}
	return doc
}

func (h *harness) get(path string) *goquery.Document {
	h.t.Helper()
	resp, err := h.browser.Get(h.console.URL + path)
	if err != nil {
		h.t.Fatalf("GET %s: %v", path, err)
	}
	return h.document(resp)
}

func (h *harness) post(path string, form url.Values) *goquery.Document {
	h.t.Helper()
	resp, err := h.browser.PostForm(h.console.URL+path, form)
	if err != nil {
		h.t.Fatalf("POST %s: %v", path, err)
	}
	return h.document(resp)
}

func (h *harness) create(form hrms.EmployeeForm) hrms.Employee {
	h.t.Helper()
	employee, err := h.api.CreateEmployee(context.Background(), form)
	if err != nil {
		h.t.Fatalf("seed employee: %v", err)
	}
	return employee
}

func notice(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("#notice span").First().Text())
}

func stat(doc *goquery.Document, name string) string {
	return strings.TrimSpace(doc.Find(`[data-stat="` + name + `"] .stat-value`).Text())
}

var jane = hrms.EmployeeForm{EmployeeID: "EMP010", FullName: "Jane Doe", Email: "jane@x.com", Department: "Engineering"}

func TestDashboardShowsStats(t *testing.T) {
	h := newHarness(t, apiapp.Config{})
	h.create(jane)
	h.create(hrms.EmployeeForm{EmployeeID: "EMP011", FullName: "Sam Roe", Email: "sam@x.com", Department: "Sales"})
	if _, err := h.api.MarkAttendance(context.Background(), hrms.MarkAttendanceRequest{EmployeeID: "EMP010", Date: "2024-03-01", Status: hrms.StatusPresent}); err != nil {
		t.Fatalf("mark: %v", err)
	}

	doc := h.get("/dashboard")
	if got := strings.TrimSpace(doc.Find(".page-title").Text()); got != "HRMS Lite Dashboard" {
		t.Fatalf("unexpected title %q", got)
	}
	if stat(doc, "total") != "2" || stat(doc, "present") != "1" || stat(doc, "absent") != "0" || stat(doc, "rate") != "50%" {
		t.Fatalf("unexpected stats total=%s present=%s absent=%s rate=%s",
			stat(doc, "total"), stat(doc, "present"), stat(doc, "absent"), stat(doc, "rate"))
	}
	if got := strings.TrimSpace(doc.Find(".today").Text()); got != "Friday, March 1, 2024" {
		t.Fatalf("unexpected date label %q", got)
	}
}

func TestDashboardBackendDown(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	h := newHarnessForAPI(t, deadURL)
	doc := h.get("/dashboard")
	if got := strings.TrimSpace(doc.Find(".panel-error").Text()); got != "Failed to load dashboard statistics." {
		t.Fatalf("unexpected error panel %q", got)
	}
	if doc.Find(".stat-card").Length() != 0 {
		t.Fatalf("expected no stat cards when the backend is down")
	}
}

func TestCreateEmployeeFlow(t *testing.T) {
	h := newHarness(t, apiapp.Config{})

	doc := h.get("/employees")
	if doc.Find("#employee-table").Length() != 0 {
		t.Fatalf("expected empty directory")
	}

	doc = h.post("/employees/editor", url.Values{"action": {"new"}})
	if got := strings.TrimSpace(doc.Find("#editor-title").Text()); got != "Add New Employee" {
		t.Fatalf("expected add modal, got %q", got)
	}

	doc = h.post("/employees", url.Values{
		"id":          {""},
		"employee_id": {" EMP010 "},
		"full_name":   {"Jane Doe"},
		"email":       {"jane@x.com"},
		"department":  {"Engineering"},
	})
	if got := notice(doc); got != "Employee added successfully" {
		t.Fatalf("unexpected notice %q", got)
	}
	if doc.Find("#employee-form").Length() != 0 {
		t.Fatalf("expected editor closed after create")
	}
	row := doc.Find(`tr[data-employee-id="EMP010"]`)
	if row.Length() != 1 {
		t.Fatalf("expected EMP010 in the table")
	}
	if badge := row.Find(".badge"); !badge.HasClass("badge-engineering") {
		t.Fatalf("expected engineering badge")
	}

	// The notice is shown once.
	doc = h.get("/employees?cached=1")
	if notice(doc) != "" {
		t.Fatalf("expected notice consumed")
	}
}

func TestCreateEmployeeDuplicateKeepsEditorOpen(t *testing.T) {
	h := newHarness(t, apiapp.Config{})
	h.create(jane)
	h.get("/employees")
	h.post("/employees/editor", url.Values{"action": {"new"}})

	other := url.Values{
		"employee_id": {"EMP010"},
		"full_name":   {"Other Person"},
		"email":       {"other@x.com"},
		"department":  {"HR"},
	}
	doc := h.post("/employees", other)
	if got := notice(doc); got != "Employee ID already exists" {
		t.Fatalf("unexpected notice %q", got)
	}
	if v, _ := doc.Find(`#employee-form input[name="full_name"]`).Attr("value"); v != "Other Person" {
		t.Fatalf("expected submitted values kept, got %q", v)
	}
	if _, ok := doc.Find(`#employee-form option[value="HR"]`).Attr("selected"); !ok {
		t.Fatalf("expected department kept")
	}
}

func TestEditEmployee(t *testing.T) {
	h := newHarness(t, apiapp.Config{})
	created := h.create(jane)
	h.get("/employees")

	doc := h.post("/employees/editor", url.Values{"action": {"edit"}, "id": {created.ID.Hex()}})
	if got := strings.TrimSpace(doc.Find("#editor-title").Text()); got != "Edit Employee" {
		t.Fatalf("expected edit modal, got %q", got)
	}
	if v, _ := doc.Find(`#employee-form input[name="email"]`).Attr("value"); v != "jane@x.com" {
		t.Fatalf("expected form prefilled, got %q", v)
	}

	doc = h.post("/employees", url.Values{
		"id":          {created.ID.Hex()},
		"employee_id": {"EMP010"},
		"full_name":   {"Jane Smith"},
		"email":       {"jane@x.com"},
		"department":  {"Finance"},
	})
	if got := notice(doc); got != "Employee updated successfully" {
		t.Fatalf("unexpected notice %q", got)
	}
	row := doc.Find(`tr[data-employee-id="EMP010"]`)
	if got := strings.TrimSpace(row.Find(".person-name").Text()); got != "Jane Smith" {
		t.Fatalf("expected updated name, got %q", got)
	}
}

func TestDeleteEmployeeNeedsConfirmation(t *testing.T) {
	h := newHarness(t, apiapp.Config{})
	created := h.create(jane)
	h.get("/employees")

	doc := h.post("/employees/delete", url.Values{"action": {"request"}, "id": {created.ID.Hex()}})
	if !strings.Contains(doc.Find("#delete-title").Parent().Text(), "Jane Doe") {
		t.Fatalf("expected confirmation naming the employee")
	}

	doc = h.post("/employees/delete", url.Values{"action": {"cancel"}})
	if doc.Find("#delete-title").Length() != 0 || doc.Find(`tr[data-employee-id="EMP010"]`).Length() != 1 {
		t.Fatalf("expected cancel to keep the employee")
	}

	h.post("/employees/delete", url.Values{"action": {"request"}, "id": {created.ID.Hex()}})
	doc = h.post("/employees/delete", url.Values{"action": {"confirm"}})
	if got := notice(doc); got != "Employee deleted successfully" {
		t.Fatalf("unexpected notice %q", got)
	}
	if doc.Find(`tr[data-employee-id="EMP010"]`).Length() != 0 {
		t.Fatalf("expected row removed")
	}
	if list, _ := h.api.ListEmployees(context.Background()); len(list) != 0 {
		t.Fatalf("expected backend delete, got %d employees", len(list))
	}
}

func TestSearchFiltersCachedList(t *testing.T) {
	h := newHarness(t, apiapp.Config{Seed: true})
	h.get("/employees")

	doc := h.get("/employees?cached=1&q=engineering")
	if got := doc.Find("#employee-table tbody tr").Length(); got != 2 {
		t.Fatalf("expected 2 engineering rows, got %d", got)
	}
	if got := strings.TrimSpace(doc.Find(".table-footer").Text()); got != "Showing 2 of 6 employees" {
		t.Fatalf("unexpected footer %q", got)
	}
	if v, _ := doc.Find("#employee-search").Attr("value"); v != "engineering" {
		t.Fatalf("expected query echoed, got %q", v)
	}
}

func TestAttendanceSelectAndMark(t *testing.T) {
	h := newHarness(t, apiapp.Config{})
	created := h.create(jane)

	doc := h.get("/attendance")
	if doc.Find(`select[name="employee"] option[value="` + created.ID.Hex() + `"]`).Length() != 1 {
		t.Fatalf("expected employee option")
	}
	if got := strings.TrimSpace(doc.Find(`select[name="employee"] option[value="` + created.ID.Hex() + `"]`).Text()); got != "Jane Doe - EMP010" {
		t.Fatalf("unexpected option label %q", got)
	}

	doc = h.get("/attendance?cached=1&employee=" + created.ID.Hex())
	if stat(doc, "total") != "0" {
		t.Fatalf("expected empty history")
	}

	doc = h.post("/attendance/mark", url.Values{"date": {"2024-03-01"}, "status": {"Present"}})
	if got := notice(doc); got != "Attendance marked successfully" {
		t.Fatalf("unexpected notice %q", got)
	}
	row := doc.Find(`#attendance-table tr[data-date="2024-03-01"]`)
	if row.Length() != 1 {
		t.Fatalf("expected the new record in history")
	}
	if got := strings.TrimSpace(row.Find("td").First().Text()); got != "Fri, Mar 1, 2024" {
		t.Fatalf("unexpected date label %q", got)
	}
	if stat(doc, "total") != "1" || stat(doc, "rate") != "100%" {
		t.Fatalf("unexpected summary total=%s rate=%s", stat(doc, "total"), stat(doc, "rate"))
	}

	doc = h.post("/attendance/mark", url.Values{"date": {"2024-03-01"}, "status": {"Absent"}})
	if got := notice(doc); got != "Attendance already marked for this date" {
		t.Fatalf("unexpected notice %q", got)
	}
}

func TestAttendanceRangeFilter(t *testing.T) {
	h := newHarness(t, apiapp.Config{})
	created := h.create(jane)
	ctx := context.Background()
	for _, date := range []string{"2024-02-27", "2024-02-28", "2024-02-29"} {
		if _, err := h.api.MarkAttendance(ctx, hrms.MarkAttendanceRequest{EmployeeID: "EMP010", Date: date, Status: hrms.StatusPresent}); err != nil {
			t.Fatalf("mark %s: %v", date, err)
		}
	}
	h.get("/attendance")
	id := created.ID.Hex()

	doc := h.get("/attendance?cached=1&employee=" + id + "&start=2024-02-28&end=")
	if got := doc.Find("#attendance-table tbody tr").Length(); got != 2 {
		t.Fatalf("expected 2 records from 2024-02-28, got %d", got)
	}
	first, _ := doc.Find("#attendance-table tbody tr").First().Attr("data-date")
	if first != "2024-02-29" {
		t.Fatalf("expected newest first, got %q", first)
	}
	clearURL, ok := doc.Find(".range-form a").Attr("href")
	if !ok {
		t.Fatalf("expected clear link while filtered")
	}

	doc = h.get(clearURL)
	if got := doc.Find("#attendance-table tbody tr").Length(); got != 3 {
		t.Fatalf("expected all records after clear, got %d", got)
	}
}

func TestMarkBlankDateUsesHeldDate(t *testing.T) {
	h := newHarness(t, apiapp.Config{})
	created := h.create(jane)
	h.get("/attendance")
	h.get("/attendance?cached=1&employee=" + created.ID.Hex())

	doc := h.post("/attendance/mark", url.Values{"date": {""}, "status": {""}})
	if got := notice(doc); got != "Attendance marked successfully" {
		t.Fatalf("unexpected notice %q", got)
	}
	if doc.Find(`#attendance-table tr[data-date="2024-03-01"]`).Length() != 1 {
		t.Fatalf("expected a record for the held date 2024-03-01")
	}
}

func TestMarkWithoutSelection(t *testing.T) {
	h := newHarness(t, apiapp.Config{})
	h.create(jane)
	h.get("/attendance")

	doc := h.post("/attendance/mark", url.Values{"date": {"2024-03-01"}, "status": {"Present"}})
	if got := notice(doc); got != "Please select an employee" {
		t.Fatalf("unexpected notice %q", got)
	}
}

func TestThemeToggleAnimatesOnce(t *testing.T) {
	h := newHarness(t, apiapp.Config{})

	doc := h.get("/dashboard")
	if doc.Find("html").HasClass("dark") {
		t.Fatalf("expected light theme by default")
	}

	doc = h.post("/theme/toggle", url.Values{"return": {"/dashboard"}})
	if !doc.Find("html").HasClass("dark") || !doc.Find("html").HasClass("theme-transitioning") {
		t.Fatalf("expected dark theme with transition")
	}

	doc = h.get("/dashboard")
	if !doc.Find("html").HasClass("dark") || doc.Find("html").HasClass("theme-transitioning") {
		t.Fatalf("expected dark theme kept without a second transition")
	}
}

func TestCrossOriginPostRejected(t *testing.T) {
	h := newHarness(t, apiapp.Config{})
	req, _ := http.NewRequest(http.MethodPost, h.console.URL+"/theme/toggle", strings.NewReader("return=%2Fdashboard"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", "https://evil.example")
	resp, err := h.browser.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestUnknownPathRedirectsToDashboard(t *testing.T) {
	h := newHarness(t, apiapp.Config{})
	resp, err := h.browser.Get(h.console.URL + "/nowhere")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.Request.URL.Path != "/dashboard" {
		t.Fatalf("expected redirect to /dashboard, landed on %s", resp.Request.URL.Path)
	}
}

func TestAvatarImage(t *testing.T) {
	h := newHarness(t, apiapp.Config{})
	resp, err := h.browser.Get(h.console.URL + "/avatars/J.png?department=Engineering")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("unexpected avatar response %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
}

func TestEmployeeExportAndImport(t *testing.T) {
	h := newHarness(t, apiapp.Config{Seed: true})
	h.get("/employees")

	resp, err := h.browser.Get(h.console.URL + "/employees/export.xlsx")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer resp.Body.Close()
	if resp.Header.Get("Content-Type") != roster.ContentType {
		t.Fatalf("unexpected content type %q", resp.Header.Get("Content-Type"))
	}
	rows, err := roster.ReadRows(resp.Body, "employees.xlsx")
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if len(rows) != 7 || rows[0][0] != "Employee ID" {
		t.Fatalf("unexpected export rows %v", rows)
	}

	var book bytes.Buffer
	if err := roster.WriteEmployees(&book, []hrms.Employee{
		{EmployeeID: "EMP020", FullName: "New Hire", Email: "new.hire@example.com", Department: "Sales"},
		{EmployeeID: "EMP001", FullName: "Clash", Email: "clash@example.com", Department: "HR"},
	}); err != nil {
		t.Fatalf("write roster: %v", err)
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("roster_file", "roster.xlsx")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	_, _ = part.Write(book.Bytes())
	_ = mw.Close()

	upload, err := h.browser.Post(h.console.URL+"/employees/import", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	doc := h.document(upload)
	if got := notice(doc); !strings.HasPrefix(got, "Imported 1 of 2 employees; row 3 (EMP001)") {
		t.Fatalf("unexpected notice %q", got)
	}
	if doc.Find(`tr[data-employee-id="EMP020"]`).Length() != 1 {
		t.Fatalf("expected imported employee listed")
	}
}
