package snapshot

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/phillip-england/hrmslite/internal/hrms"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type stubSource struct {
	employees  []hrms.Employee
	attendance map[string][]hrms.AttendanceRecord
	failFor    string
}

func (s stubSource) ListEmployees(context.Context) ([]hrms.Employee, error) {
	return s.employees, nil
}

func (s stubSource) ListAttendance(_ context.Context, employeeID string) ([]hrms.AttendanceRecord, error) {
	if employeeID == s.failFor {
		return nil, errors.New("boom")
	}
	return append([]hrms.AttendanceRecord(nil), s.attendance[employeeID]...), nil
}

func sampleSource() stubSource {
	return stubSource{
		employees: []hrms.Employee{
			{ID: primitive.NewObjectID(), EmployeeID: "EMP001", FullName: "Ana Lopez", Email: "ana@x.com", Department: "HR"},
			{ID: primitive.NewObjectID(), EmployeeID: "EMP002", FullName: "Bo Chen", Email: "bo@x.com", Department: "Sales"},
		},
		attendance: map[string][]hrms.AttendanceRecord{
			"EMP001": {
				{EmployeeID: "EMP001", Date: "2024-03-01", Status: hrms.StatusPresent},
				{EmployeeID: "EMP001", Date: "2024-03-04", Status: hrms.StatusAbsent},
			},
		},
	}
}

func TestCaptureWriteRead(t *testing.T) {
	taken := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	snap, err := Capture(context.Background(), sampleSource(), "http://localhost:8000", taken)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if snap.RecordCount() != 2 {
		t.Fatalf("expected 2 records, got %d", snap.RecordCount())
	}
	if snap.Attendance["EMP001"][0].Date != "2024-03-04" {
		t.Fatalf("expected histories newest first")
	}
	if _, ok := snap.Attendance["EMP002"]; !ok {
		t.Fatalf("expected an entry for employees without records")
	}

	var buf bytes.Buffer
	if err := Write(&buf, snap); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !got.TakenAt.Equal(taken) || len(got.Employees) != 2 || got.Employees[1].ID != snap.Employees[1].ID {
		t.Fatalf("unexpected snapshot %+v", got)
	}
}

func TestCaptureFailsOnHistoryError(t *testing.T) {
	src := sampleSource()
	src.failFor = "EMP002"
	if _, err := Capture(context.Background(), src, "", time.Now()); err == nil {
		t.Fatalf("expected capture error")
	}
}

func TestReadRejectsPlainJSON(t *testing.T) {
	if _, err := Read(bytes.NewReader([]byte(`{"version":1}`))); err == nil {
		t.Fatalf("expected error for uncompressed input")
	}
}

func TestWriteFileReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "hrms.json.xz")
	snap, _ := Capture(context.Background(), sampleSource(), "", time.Now())
	if err := WriteFile(path, snap); err != nil {
		t.Fatalf("write file: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if got.Version != FormatVersion || len(got.Employees) != 2 {
		t.Fatalf("unexpected snapshot %+v", got)
	}
}
