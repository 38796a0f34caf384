package roster

import (
	"fmt"
	"io"

	"github.com/phillip-england/hrmslite/internal/hrms"
	"github.com/xuri/excelize/v2"
)

const (
	EmployeesSheet  = "Employees"
	AttendanceSheet = "Attendance"
	ContentType     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var employeeHeader = []any{"Employee ID", "Full Name", "Email", "Department"}

var attendanceHeader = []any{"Date", "Day", "Status", "Logged At"}

// WriteEmployees writes the directory as a one-sheet workbook whose header
// row ParseEmployees accepts, so an export can be re-imported.
func WriteEmployees(w io.Writer, employees []hrms.Employee) error {
	rows := make([][]any, 0, len(employees))
	for _, e := range employees {
		rows = append(rows, []any{e.EmployeeID, e.FullName, e.Email, e.Department})
	}
	return writeSheet(w, EmployeesSheet, employeeHeader, rows, []float64{14, 28, 32, 16})
}

// WriteAttendance writes one employee's history in the order given.
func WriteAttendance(w io.Writer, records []hrms.AttendanceRecord) error {
	rows := make([][]any, 0, len(records))
	for _, record := range records {
		rows = append(rows, []any{
			hrms.NormalizeDate(record.Date),
			hrms.FormatRecordDate(record.Date),
			string(record.Status),
			hrms.FormatLoggedAt(record.Timestamp),
		})
	}
	return writeSheet(w, AttendanceSheet, attendanceHeader, rows, []float64{14, 20, 12, 12})
}

func writeSheet(w io.Writer, sheet string, header []any, rows [][]any, widths []float64) error {
	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	if err := file.SetSheetName(file.GetSheetName(0), sheet); err != nil {
		return err
	}
	if err := file.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	bold, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := file.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := file.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
	}
	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := file.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}
	return file.Write(w)
}
