package apiapp

import (
	"time"

	"github.com/phillip-england/hrmslite/internal/hrms"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var demoRoster = []hrms.EmployeeForm{
	{EmployeeID: "EMP001", FullName: "Ana Lopez", Email: "ana.lopez@example.com", Department: "HR"},
	{EmployeeID: "EMP002", FullName: "Ben Carter", Email: "ben.carter@example.com", Department: "Engineering"},
	{EmployeeID: "EMP003", FullName: "Chloe Nguyen", Email: "chloe.nguyen@example.com", Department: "Engineering"},
	{EmployeeID: "EMP004", FullName: "Dev Patel", Email: "dev.patel@example.com", Department: "Sales"},
	{EmployeeID: "EMP005", FullName: "Erin Walsh", Email: "erin.walsh@example.com", Department: "Marketing"},
	{EmployeeID: "EMP006", FullName: "Femi Adeyemi", Email: "femi.adeyemi@example.com", Department: "Finance"},
}

const demoHistoryDays = 10

// seedDemo fills the store with a small roster and a deterministic history
// ending today, so the dashboard has something to show.
func seedDemo(s *memStore) {
	now := s.now()
	employees := make([]hrms.Employee, 0, len(demoRoster))
	var records []hrms.AttendanceRecord
	for i, form := range demoRoster {
		employee := hrms.Employee{
			ID:         primitive.NewObjectIDFromTimestamp(now.Add(time.Duration(i) * time.Second)),
			EmployeeID: form.EmployeeID,
			FullName:   form.FullName,
			Email:      form.Email,
			Department: form.Department,
		}
		employees = append(employees, employee)

		for day := 0; day < demoHistoryDays; day++ {
			// Skip a day now and then so histories differ in length.
			if (i+day)%7 == 6 {
				continue
			}
			date := now.AddDate(0, 0, -day)
			status := hrms.StatusPresent
			if (i*3+day)%5 == 0 {
				status = hrms.StatusAbsent
			}
			logged := time.Date(date.Year(), date.Month(), date.Day(), 9, i*7%60, 0, 0, date.Location())
			records = append(records, hrms.AttendanceRecord{
				ID:         primitive.NewObjectIDFromTimestamp(logged),
				EmployeeID: employee.EmployeeID,
				Date:       date.Format(hrms.DateLayout),
				Status:     status,
				Timestamp:  logged.UTC().Format(time.RFC3339),
			})
		}
	}
	s.load(employees, records)
}
