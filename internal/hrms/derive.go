package hrms

import (
	"math"
	"sort"
	"strings"
	"time"
)

// FilterEmployees keeps employees whose name, business id or department
// contains query, ignoring case. An empty query returns employees as is.
func FilterEmployees(employees []Employee, query string) []Employee {
	if query == "" {
		return employees
	}
	needle := strings.ToLower(query)
	out := make([]Employee, 0, len(employees))
	for _, e := range employees {
		if strings.Contains(strings.ToLower(e.FullName), needle) ||
			strings.Contains(strings.ToLower(e.EmployeeID), needle) ||
			strings.Contains(strings.ToLower(e.Department), needle) {
			out = append(out, e)
		}
	}
	return out
}

func RemoveEmployee(employees []Employee, id string) []Employee {
	out := make([]Employee, 0, len(employees))
	for _, e := range employees {
		if e.ID.Hex() == id {
			continue
		}
		out = append(out, e)
	}
	return out
}

// DateRange bounds are inclusive YYYY-MM-DD strings; an empty bound is open.
type DateRange struct {
	Start string
	End   string
}

func (r DateRange) IsZero() bool {
	return r.Start == "" && r.End == ""
}

// FilterAttendanceByRange keeps records with start <= date <= end. Records
// whose date cannot be read are dropped once any bound is set.
func FilterAttendanceByRange(records []AttendanceRecord, rng DateRange) []AttendanceRecord {
	if rng.IsZero() {
		return records
	}
	start, hasStart := ParseCalendarDate(rng.Start)
	end, hasEnd := ParseCalendarDate(rng.End)
	if !hasStart && !hasEnd {
		return records
	}
	out := make([]AttendanceRecord, 0, len(records))
	for _, record := range records {
		date, ok := ParseCalendarDate(record.Date)
		if !ok {
			continue
		}
		if hasStart && date.Before(start) {
			continue
		}
		if hasEnd && date.After(end) {
			continue
		}
		out = append(out, record)
	}
	return out
}

// SortAttendanceByDateDesc sorts newest first in place. Unreadable dates sink
// to the end in their original order.
func SortAttendanceByDateDesc(records []AttendanceRecord) {
	keys := make(map[string]time.Time, len(records))
	for _, record := range records {
		if date, ok := ParseCalendarDate(record.Date); ok {
			keys[record.Date] = date
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		a, aok := keys[records[i].Date]
		b, bok := keys[records[j].Date]
		if aok != bok {
			return aok
		}
		return a.After(b)
	})
}

type AttendanceSummary struct {
	Total   int
	Present int
	Absent  int
	Rate    float64
}

func SummarizeAttendance(records []AttendanceRecord) AttendanceSummary {
	summary := AttendanceSummary{Total: len(records)}
	for _, record := range records {
		if record.Status == StatusPresent {
			summary.Present++
		}
	}
	summary.Absent = summary.Total - summary.Present
	if summary.Total > 0 {
		rate := float64(summary.Present) / float64(summary.Total) * 100
		summary.Rate = math.Round(rate*10) / 10
	}
	return summary
}

func DashboardAttendanceRate(stats DashboardStats) int {
	if stats.TotalEmployees <= 0 {
		return 0
	}
	return int(math.Round(float64(stats.PresentToday) / float64(stats.TotalEmployees) * 100))
}

var departmentBadges = map[string]string{
	"HR":          "badge-hr",
	"Engineering": "badge-engineering",
	"Sales":       "badge-sales",
	"Marketing":   "badge-marketing",
	"Finance":     "badge-finance",
}

func DepartmentBadge(department string) string {
	if badge, ok := departmentBadges[department]; ok {
		return badge
	}
	return "badge-neutral"
}

func Initial(name string) string {
	for _, r := range strings.TrimSpace(name) {
		return strings.ToUpper(string(r))
	}
	return "?"
}
