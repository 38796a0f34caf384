package controller

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/phillip-england/hrmslite/internal/hrms"
	"github.com/phillip-england/hrmslite/internal/hrmsclient"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EmployeeAPI interface {
	ListEmployees(ctx context.Context) ([]hrms.Employee, error)
	CreateEmployee(ctx context.Context, form hrms.EmployeeForm) (hrms.Employee, error)
	UpdateEmployee(ctx context.Context, id primitive.ObjectID, form hrms.EmployeeForm) (hrms.Employee, error)
	DeleteEmployee(ctx context.Context, id primitive.ObjectID) error
}

type EmployeesView struct {
	Phase         Phase
	Total         int
	Employees     []hrms.Employee
	Query         string
	Form          hrms.EmployeeForm
	EditorOpen    bool
	EditingID     string
	PendingDelete *hrms.Employee
}

func (v EmployeesView) Editing() bool {
	return v.EditingID != ""
}

type ImportFailure struct {
	Row        int
	EmployeeID string
	Reason     string
}

type ImportResult struct {
	Added    int
	Failures []ImportFailure
}

// Employees is the directory page: the cached list, the create/edit form
// buffer, the delete confirmation and the search box.
type Employees struct {
	api    EmployeeAPI
	notify Notifier

	mu            sync.Mutex
	phase         Phase
	employees     []hrms.Employee
	listGen       uint64
	form          hrms.EmployeeForm
	editorOpen    bool
	editingID     string
	pendingDelete string
	query         string
}

func NewEmployees(api EmployeeAPI, notifier Notifier) *Employees {
	return &Employees{api: api, notify: notifierOrDiscard(notifier), phase: PhaseIdle}
}

// Refresh replaces the cache with the backend's list. A failure keeps the old
// cache and leaves the page usable.
func (e *Employees) Refresh(ctx context.Context) error {
	e.mu.Lock()
	e.listGen++
	gen := e.listGen
	e.phase = PhaseLoading
	e.mu.Unlock()

	employees, err := e.api.ListEmployees(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.listGen {
		return ErrStale
	}
	if err != nil {
		e.phase = PhaseError
		e.notify.Error("Failed to fetch employees")
		return err
	}
	e.phase = PhaseReady
	e.employees = employees
	return nil
}

// Loaded reports whether a list fetch has finished at least once.
func (e *Employees) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase == PhaseReady || e.phase == PhaseError
}

func (e *Employees) OpenCreate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetFormLocked()
	e.editorOpen = true
}

func (e *Employees) OpenEdit(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	employee, ok := hrms.FindEmployee(e.employees, id)
	if !ok {
		return ErrUnknownEmployee
	}
	e.form = employee.Form()
	e.editingID = id
	e.editorOpen = true
	return nil
}

func (e *Employees) CloseEditor() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.editorOpen = false
	e.resetFormLocked()
}

// Submit creates an employee, or updates the one the editor was opened for.
// On failure the editor stays open holding what was submitted.
func (e *Employees) Submit(ctx context.Context, form hrms.EmployeeForm) error {
	form = form.Trimmed()

	e.mu.Lock()
	e.form = form
	editingID := e.editingID
	e.mu.Unlock()

	var err error
	if editingID != "" {
		id, parseErr := primitive.ObjectIDFromHex(editingID)
		if parseErr != nil {
			e.notify.Error("Failed to update employee")
			return fmt.Errorf("edit target %q: %w", editingID, parseErr)
		}
		_, err = e.api.UpdateEmployee(ctx, id, form)
		if err != nil {
			e.notify.Error(hrmsclient.Message(err, "Failed to update employee"))
			return err
		}
		e.notify.Success("Employee updated successfully")
	} else {
		_, err = e.api.CreateEmployee(ctx, form)
		if err != nil {
			e.notify.Error(hrmsclient.Message(err, "Failed to add employee"))
			return err
		}
		e.notify.Success("Employee added successfully")
	}

	_ = e.Refresh(ctx)

	e.mu.Lock()
	e.editorOpen = false
	e.resetFormLocked()
	e.mu.Unlock()
	return nil
}

func (e *Employees) RequestDelete(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := hrms.FindEmployee(e.employees, id); !ok {
		return ErrUnknownEmployee
	}
	e.pendingDelete = id
	return nil
}

func (e *Employees) CancelDelete() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pendingDelete = ""
}

// ConfirmDelete deletes the employee awaiting confirmation. On success the
// entry is spliced out of the cache without a re-fetch.
func (e *Employees) ConfirmDelete(ctx context.Context) error {
	e.mu.Lock()
	target := e.pendingDelete
	e.mu.Unlock()
	if target == "" {
		return ErrNoPendingDelete
	}

	defer func() {
		e.mu.Lock()
		if e.pendingDelete == target {
			e.pendingDelete = ""
		}
		e.mu.Unlock()
	}()

	id, err := primitive.ObjectIDFromHex(target)
	if err != nil {
		e.notify.Error("Failed to delete employee")
		return fmt.Errorf("delete target %q: %w", target, err)
	}
	if err := e.api.DeleteEmployee(ctx, id); err != nil {
		e.notify.Error("Failed to delete employee")
		return err
	}

	e.mu.Lock()
	e.employees = hrms.RemoveEmployee(e.employees, target)
	e.mu.Unlock()
	e.notify.Success("Employee deleted successfully")
	return nil
}

func (e *Employees) SetQuery(query string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.query = query
}

// Import creates every entry in order, then refreshes the list once.
func (e *Employees) Import(ctx context.Context, rows []hrms.RosterEntry) ImportResult {
	var result ImportResult
	for _, entry := range rows {
		row := entry.Form.Trimmed()
		if _, err := e.api.CreateEmployee(ctx, row); err != nil {
			result.Failures = append(result.Failures, ImportFailure{
				Row:        entry.Row,
				EmployeeID: row.EmployeeID,
				Reason:     hrmsclient.Message(err, "request failed"),
			})
			continue
		}
		result.Added++
	}

	_ = e.Refresh(ctx)

	switch {
	case len(rows) == 0:
		e.notify.Error("No employees found in the roster file")
	case len(result.Failures) == 0:
		e.notify.Success(fmt.Sprintf("Imported %d employees", result.Added))
	default:
		first := result.Failures[0]
		e.notify.Error(fmt.Sprintf("Imported %d of %d employees; row %d (%s): %s",
			result.Added, len(rows), first.Row, strings.TrimSpace(first.EmployeeID), first.Reason))
	}
	return result
}

// Visible is the cached list narrowed by the search query.
func (e *Employees) Visible() []hrms.Employee {
	e.mu.Lock()
	defer e.mu.Unlock()
	return hrms.FilterEmployees(e.employees, e.query)
}

func (e *Employees) View() EmployeesView {
	e.mu.Lock()
	defer e.mu.Unlock()
	view := EmployeesView{
		Phase:      e.phase,
		Total:      len(e.employees),
		Employees:  hrms.FilterEmployees(e.employees, e.query),
		Query:      e.query,
		Form:       e.form,
		EditorOpen: e.editorOpen,
		EditingID:  e.editingID,
	}
	if e.pendingDelete != "" {
		if employee, ok := hrms.FindEmployee(e.employees, e.pendingDelete); ok {
			view.PendingDelete = &employee
		}
	}
	return view
}

func (e *Employees) resetFormLocked() {
	e.form = hrms.EmployeeForm{}
	e.editingID = ""
}
