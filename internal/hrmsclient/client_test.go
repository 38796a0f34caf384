package hrmsclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phillip-england/hrmslite/internal/hrms"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestListEmployeesDecodesObjectIDs(t *testing.T) {
	id := primitive.NewObjectID()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/employees/" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"_id":"` + id.Hex() + `","employee_id":"EMP001","full_name":"Jane Doe","email":"jane@x.com","department":"Engineering"}]`))
	}))
	defer srv.Close()

	employees, err := New(srv.URL, srv.Client()).ListEmployees(context.Background())
	if err != nil {
		t.Fatalf("list employees: %v", err)
	}
	if len(employees) != 1 || employees[0].ID != id || employees[0].EmployeeID != "EMP001" {
		t.Fatalf("unexpected employees %+v", employees)
	}
}

func TestCreateEmployeeSendsForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/employees/" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected json content type")
		}
		var form hrms.EmployeeForm
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(hrms.Employee{
			ID:         primitive.NewObjectID(),
			EmployeeID: form.EmployeeID,
			FullName:   form.FullName,
			Email:      form.Email,
			Department: form.Department,
		})
	}))
	defer srv.Close()

	created, err := New(srv.URL+"/", nil).CreateEmployee(context.Background(), hrms.EmployeeForm{
		EmployeeID: "EMP010",
		FullName:   "Jane Doe",
		Email:      "jane@x.com",
		Department: "Engineering",
	})
	if err != nil {
		t.Fatalf("create employee: %v", err)
	}
	if created.EmployeeID != "EMP010" || created.ID.IsZero() {
		t.Fatalf("unexpected created employee %+v", created)
	}
}

func TestErrorDetailIsSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"Employee ID already exists"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, nil).CreateEmployee(context.Background(), hrms.EmployeeForm{EmployeeID: "EMP001"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", apiErr.Status)
	}
	if got := Message(err, "Failed to add employee"); got != "Employee ID already exists" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestValidationDetailListIsJoined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":[{"loc":["body","email"],"msg":"value is not a valid email address"},{"msg":"field required"}]}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, nil).CreateEmployee(context.Background(), hrms.EmployeeForm{})
	if got := Message(err, "fallback"); got != "value is not a valid email address; field required" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestMessageFallsBackWithoutDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	err := New(srv.URL, nil).DeleteEmployee(context.Background(), primitive.NewObjectID())
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := Message(err, "Failed to delete employee"); got != "Failed to delete employee" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestTransportFailureUsesFallback(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	_, err := New(baseURL, nil).DashboardStats(context.Background())
	if err == nil {
		t.Fatalf("expected transport error")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Fatalf("transport failures are not APIErrors")
	}
	if got := Message(err, "Failed to load dashboard statistics."); got != "Failed to load dashboard statistics." {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestAttendancePathUsesBusinessKey(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	records, err := New(srv.URL, nil).ListAttendance(context.Background(), "EMP 7")
	if err != nil {
		t.Fatalf("list attendance: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Fatalf("expected empty non-nil slice")
	}
	if gotPath != "/attendance/EMP 7" {
		t.Fatalf("unexpected path %q", gotPath)
	}
}
