// Package roster reads employee rosters from spreadsheets and writes the
// employee directory and attendance history back out as workbooks.
package roster

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/phillip-england/hrmslite/internal/hrms"
	"github.com/xuri/excelize/v2"
)

const maxRows = 100000

var (
	ErrNoWorksheet     = errors.New("no worksheet found")
	ErrEmptyWorksheet  = errors.New("worksheet is empty")
	ErrMultipleSheets  = errors.New("multiple worksheets found; please upload a file with a single sheet")
	ErrMissingColumns  = errors.New("roster is missing required columns")
	ErrUnsupportedFile = errors.New("roster must be an .xlsx or .xls file")
)

var headerAliases = map[string]string{
	"employee_id":   "employee_id",
	"employee id":   "employee_id",
	"employeeid":    "employee_id",
	"id":            "employee_id",
	"full_name":     "full_name",
	"full name":     "full_name",
	"fullname":      "full_name",
	"name":          "full_name",
	"email":         "email",
	"email address": "email",
	"department":    "department",
	"dept":          "department",
}

var requiredColumns = []string{"employee_id", "full_name", "email", "department"}

// ReadRows returns every row of the single worksheet in the file. Legacy .xls
// workbooks go through the BIFF reader; everything else is opened as OOXML.
func ReadRows(reader io.Reader, filename string) ([][]string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xls":
		workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
		if err != nil {
			return nil, fmt.Errorf("open xls: %w", err)
		}
		if workbook.NumSheets() == 0 {
			return nil, ErrNoWorksheet
		}
		if workbook.NumSheets() > 1 {
			return nil, ErrMultipleSheets
		}
		rows := workbook.ReadAllCells(maxRows)
		if len(rows) == 0 {
			return nil, ErrEmptyWorksheet
		}
		return rows, nil
	case ".xlsx", ".xlsm", "":
		file, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("open xlsx: %w", err)
		}
		defer func() { _ = file.Close() }()

		sheetName := file.GetSheetName(0)
		if sheetName == "" {
			return nil, ErrNoWorksheet
		}
		rows, err := file.GetRows(sheetName)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, ErrEmptyWorksheet
		}
		return rows, nil
	default:
		return nil, ErrUnsupportedFile
	}
}

// ParseEmployees maps the header row onto employee fields and returns one
// entry per non-blank data row. Column order does not matter.
func ParseEmployees(rows [][]string) ([]hrms.RosterEntry, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyWorksheet
	}

	columns := map[string]int{}
	for idx, header := range rows[0] {
		if field, ok := headerAliases[normalizeHeader(header)]; ok {
			if _, seen := columns[field]; !seen {
				columns[field] = idx
			}
		}
	}
	var missing []string
	for _, field := range requiredColumns {
		if _, ok := columns[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	entries := make([]hrms.RosterEntry, 0, len(rows)-1)
	for i, row := range rows[1:] {
		form := hrms.EmployeeForm{
			EmployeeID: cellValue(row, columns["employee_id"]),
			FullName:   cellValue(row, columns["full_name"]),
			Email:      cellValue(row, columns["email"]),
			Department: cellValue(row, columns["department"]),
		}
		if form == (hrms.EmployeeForm{}) {
			continue
		}
		entries = append(entries, hrms.RosterEntry{Row: i + 2, Form: form})
	}
	return entries, nil
}

// Read is ReadRows followed by ParseEmployees.
func Read(reader io.Reader, filename string) ([]hrms.RosterEntry, error) {
	rows, err := ReadRows(reader, filename)
	if err != nil {
		return nil, err
	}
	return ParseEmployees(rows)
}

func normalizeHeader(header string) string {
	return strings.ToLower(strings.TrimSpace(header))
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
