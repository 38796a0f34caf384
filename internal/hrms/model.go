// Package hrms holds the HRMS entities as the console sees them and the pure
// functions that derive filtered lists and aggregates from them.
package hrms

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Status string

const (
	StatusPresent Status = "Present"
	StatusAbsent  Status = "Absent"
)

func ParseStatus(raw string) (Status, bool) {
	switch strings.TrimSpace(raw) {
	case string(StatusPresent):
		return StatusPresent, true
	case string(StatusAbsent):
		return StatusAbsent, true
	default:
		return "", false
	}
}

// Departments lists the departments the console styles. The backend owns the
// real set; unknown values are shown with the neutral badge.
var Departments = []string{"HR", "Engineering", "Sales", "Marketing", "Finance"}

type Employee struct {
	ID         primitive.ObjectID `json:"_id"`
	EmployeeID string             `json:"employee_id"`
	FullName   string             `json:"full_name"`
	Email      string             `json:"email"`
	Department string             `json:"department"`
}

// EmployeeForm is the editable subset of an Employee. It doubles as the
// request body for create and update.
type EmployeeForm struct {
	EmployeeID string `json:"employee_id"`
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Department string `json:"department"`
}

func (e Employee) Form() EmployeeForm {
	return EmployeeForm{
		EmployeeID: e.EmployeeID,
		FullName:   e.FullName,
		Email:      e.Email,
		Department: e.Department,
	}
}

func (f EmployeeForm) Trimmed() EmployeeForm {
	return EmployeeForm{
		EmployeeID: strings.TrimSpace(f.EmployeeID),
		FullName:   strings.TrimSpace(f.FullName),
		Email:      strings.TrimSpace(f.Email),
		Department: strings.TrimSpace(f.Department),
	}
}

type AttendanceRecord struct {
	ID         primitive.ObjectID `json:"_id"`
	EmployeeID string             `json:"employee_id"`
	Date       string             `json:"date"`
	Status     Status             `json:"status"`
	Timestamp  string             `json:"timestamp"`
}

type MarkAttendanceRequest struct {
	EmployeeID string `json:"employee_id"`
	Date       string `json:"date"`
	Status     Status `json:"status"`
}

type DashboardStats struct {
	TotalEmployees int `json:"total_employees"`
	PresentToday   int `json:"present_today"`
	AbsentToday    int `json:"absent_today"`
}

func FindEmployee(employees []Employee, id string) (Employee, bool) {
	for _, e := range employees {
		if e.ID.Hex() == id {
			return e, true
		}
	}
	return Employee{}, false
}

// RosterEntry is one employee read from an uploaded roster. Row is the
// 1-based spreadsheet row it came from.
type RosterEntry struct {
	Row  int
	Form EmployeeForm
}
