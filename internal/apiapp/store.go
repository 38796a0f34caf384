package apiapp

import (
	"errors"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/phillip-england/hrmslite/internal/hrms"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	errNotFound        = errors.New("not found")
	errConflict        = errors.New("conflict")
	errUnknownEmployee = errors.New("employee not found")
)

// fieldError mirrors one entry of a validation error list.
type fieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

type validationError struct {
	fields []fieldError
}

func (e *validationError) Error() string {
	msgs := make([]string, 0, len(e.fields))
	for _, f := range e.fields {
		msgs = append(msgs, f.Msg)
	}
	return strings.Join(msgs, "; ")
}

type conflictError struct {
	detail string
}

func (e *conflictError) Error() string { return e.detail }

func (e *conflictError) Unwrap() error { return errConflict }

// memStore keeps employees in insertion order and attendance as a flat log.
type memStore struct {
	now func() time.Time

	mu         sync.RWMutex
	employees  []hrms.Employee
	attendance []hrms.AttendanceRecord
}

func newMemStore(now func() time.Time) *memStore {
	if now == nil {
		now = time.Now
	}
	return &memStore{now: now}
}

func (s *memStore) listEmployees() []hrms.Employee {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]hrms.Employee{}, s.employees...)
}

func (s *memStore) getEmployee(id primitive.ObjectID) (hrms.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return hrms.Employee{}, errNotFound
	}
	return s.employees[idx], nil
}

func (s *memStore) createEmployee(form hrms.EmployeeForm) (hrms.Employee, error) {
	form = form.Trimmed()
	if err := validateEmployee(form); err != nil {
		return hrms.Employee{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUniqueLocked(form, primitive.NilObjectID); err != nil {
		return hrms.Employee{}, err
	}
	created := hrms.Employee{
		ID:         primitive.NewObjectIDFromTimestamp(s.now()),
		EmployeeID: form.EmployeeID,
		FullName:   form.FullName,
		Email:      form.Email,
		Department: form.Department,
	}
	s.employees = append(s.employees, created)
	return created, nil
}

// updateEmployee replaces every editable field. A changed business id is
// carried over to the employee's attendance records.
func (s *memStore) updateEmployee(id primitive.ObjectID, form hrms.EmployeeForm) (hrms.Employee, error) {
	form = form.Trimmed()
	if err := validateEmployee(form); err != nil {
		return hrms.Employee{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return hrms.Employee{}, errNotFound
	}
	if err := s.checkUniqueLocked(form, id); err != nil {
		return hrms.Employee{}, err
	}
	previous := s.employees[idx].EmployeeID
	updated := hrms.Employee{
		ID:         id,
		EmployeeID: form.EmployeeID,
		FullName:   form.FullName,
		Email:      form.Email,
		Department: form.Department,
	}
	s.employees[idx] = updated
	if previous != updated.EmployeeID {
		for i := range s.attendance {
			if s.attendance[i].EmployeeID == previous {
				s.attendance[i].EmployeeID = updated.EmployeeID
			}
		}
	}
	return updated, nil
}

// deleteEmployee removes the employee and their attendance history.
func (s *memStore) deleteEmployee(id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return errNotFound
	}
	businessID := s.employees[idx].EmployeeID
	s.employees = append(s.employees[:idx:idx], s.employees[idx+1:]...)

	kept := s.attendance[:0]
	for _, record := range s.attendance {
		if record.EmployeeID != businessID {
			kept = append(kept, record)
		}
	}
	s.attendance = kept
	return nil
}

func (s *memStore) listAttendance(employeeID string) ([]hrms.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasBusinessIDLocked(employeeID) {
		return nil, errUnknownEmployee
	}
	out := []hrms.AttendanceRecord{}
	for _, record := range s.attendance {
		if record.EmployeeID == employeeID {
			out = append(out, record)
		}
	}
	return out, nil
}

func (s *memStore) markAttendance(req hrms.MarkAttendanceRequest) (hrms.AttendanceRecord, error) {
	req.EmployeeID = strings.TrimSpace(req.EmployeeID)
	var fields []fieldError
	if req.EmployeeID == "" {
		fields = append(fields, missingField("employee_id"))
	}
	date, dateOK := hrms.ParseCalendarDate(req.Date)
	if strings.TrimSpace(req.Date) == "" {
		fields = append(fields, missingField("date"))
	} else if !dateOK {
		fields = append(fields, fieldError{Loc: []string{"body", "date"}, Msg: "invalid date format", Type: "value_error.date"})
	}
	status, statusOK := hrms.ParseStatus(string(req.Status))
	if !statusOK {
		fields = append(fields, fieldError{Loc: []string{"body", "status"}, Msg: "status must be Present or Absent", Type: "value_error.enum"})
	}
	if len(fields) > 0 {
		return hrms.AttendanceRecord{}, &validationError{fields: fields}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasBusinessIDLocked(req.EmployeeID) {
		return hrms.AttendanceRecord{}, errUnknownEmployee
	}
	day := date.Format(hrms.DateLayout)
	for _, record := range s.attendance {
		if record.EmployeeID == req.EmployeeID && hrms.NormalizeDate(record.Date) == day {
			return hrms.AttendanceRecord{}, &conflictError{detail: "Attendance already marked for this date"}
		}
	}
	now := s.now()
	record := hrms.AttendanceRecord{
		ID:         primitive.NewObjectIDFromTimestamp(now),
		EmployeeID: req.EmployeeID,
		Date:       day,
		Status:     status,
		Timestamp:  now.UTC().Format(time.RFC3339),
	}
	s.attendance = append(s.attendance, record)
	return record, nil
}

// stats counts today's marks across all employees. "Today" is the server's
// local calendar day.
func (s *memStore) stats() hrms.DashboardStats {
	today := hrms.Today(s.now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := hrms.DashboardStats{TotalEmployees: len(s.employees)}
	for _, record := range s.attendance {
		if hrms.NormalizeDate(record.Date) != today {
			continue
		}
		switch record.Status {
		case hrms.StatusPresent:
			stats.PresentToday++
		case hrms.StatusAbsent:
			stats.AbsentToday++
		}
	}
	return stats
}

// load replaces the store contents, keeping ids as given.
func (s *memStore) load(employees []hrms.Employee, attendance []hrms.AttendanceRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees = append([]hrms.Employee{}, employees...)
	s.attendance = append([]hrms.AttendanceRecord{}, attendance...)
}

func (s *memStore) indexLocked(id primitive.ObjectID) int {
	for i, e := range s.employees {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (s *memStore) hasBusinessIDLocked(employeeID string) bool {
	for _, e := range s.employees {
		if e.EmployeeID == employeeID {
			return true
		}
	}
	return false
}

func (s *memStore) checkUniqueLocked(form hrms.EmployeeForm, self primitive.ObjectID) error {
	for _, e := range s.employees {
		if e.ID == self {
			continue
		}
		if e.EmployeeID == form.EmployeeID {
			return &conflictError{detail: "Employee ID already exists"}
		}
		if strings.EqualFold(e.Email, form.Email) {
			return &conflictError{detail: "Email already registered"}
		}
	}
	return nil
}

func validateEmployee(form hrms.EmployeeForm) error {
	var fields []fieldError
	if form.EmployeeID == "" {
		fields = append(fields, missingField("employee_id"))
	}
	if form.FullName == "" {
		fields = append(fields, missingField("full_name"))
	}
	if form.Email == "" {
		fields = append(fields, missingField("email"))
	} else if addr, err := mail.ParseAddress(form.Email); err != nil || addr.Address != form.Email {
		fields = append(fields, fieldError{Loc: []string{"body", "email"}, Msg: "value is not a valid email address", Type: "value_error.email"})
	}
	if form.Department == "" {
		fields = append(fields, missingField("department"))
	}
	if len(fields) > 0 {
		return &validationError{fields: fields}
	}
	return nil
}

func missingField(name string) fieldError {
	return fieldError{Loc: []string{"body", name}, Msg: name + " is required", Type: "value_error.missing"}
}
