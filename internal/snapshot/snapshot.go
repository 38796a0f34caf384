// Package snapshot captures the employee directory and every attendance
// history into one xz-compressed JSON file. The dev backend can be seeded
// from a snapshot.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/phillip-england/hrmslite/internal/hrms"
	"github.com/ulikunitz/xz"
)

const FormatVersion = 1

var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

type Snapshot struct {
	Version    int                                `json:"version"`
	TakenAt    time.Time                          `json:"taken_at"`
	Source     string                             `json:"source,omitempty"`
	Employees  []hrms.Employee                    `json:"employees"`
	Attendance map[string][]hrms.AttendanceRecord `json:"attendance"`
}

// Source is the read side of the backend a snapshot is taken from.
type Source interface {
	ListEmployees(ctx context.Context) ([]hrms.Employee, error)
	ListAttendance(ctx context.Context, employeeID string) ([]hrms.AttendanceRecord, error)
}

// Capture reads every employee and then each employee's history. Histories
// are keyed by business id.
func Capture(ctx context.Context, src Source, source string, now time.Time) (Snapshot, error) {
	employees, err := src.ListEmployees(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list employees: %w", err)
	}
	snap := Snapshot{
		Version:    FormatVersion,
		TakenAt:    now.UTC(),
		Source:     source,
		Employees:  employees,
		Attendance: make(map[string][]hrms.AttendanceRecord, len(employees)),
	}
	for _, e := range employees {
		records, err := src.ListAttendance(ctx, e.EmployeeID)
		if err != nil {
			return Snapshot{}, fmt.Errorf("list attendance for %s: %w", e.EmployeeID, err)
		}
		hrms.SortAttendanceByDateDesc(records)
		snap.Attendance[e.EmployeeID] = records
	}
	return snap, nil
}

func (s Snapshot) RecordCount() int {
	total := 0
	for _, records := range s.Attendance {
		total += len(records)
	}
	return total
}

func Write(w io.Writer, snap Snapshot) error {
	zw, err := xz.NewWriter(w)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(zw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		_ = zw.Close()
		return err
	}
	return zw.Close()
}

func Read(r io.Reader) (Snapshot, error) {
	zr, err := xz.NewReader(r)
	if err != nil {
		return Snapshot{}, fmt.Errorf("open xz stream: %w", err)
	}
	var snap Snapshot
	if err := json.NewDecoder(zr).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != FormatVersion {
		return Snapshot{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, snap.Version)
	}
	if snap.Attendance == nil {
		snap.Attendance = map[string][]hrms.AttendanceRecord{}
	}
	return snap, nil
}

// WriteFile writes through a temp file in the same directory so a failed
// capture never truncates an earlier snapshot.
func WriteFile(path string, snap Snapshot) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := Write(tmp, snap); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func ReadFile(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, err
	}
	defer f.Close()
	return Read(f)
}
