// Package apiapp is an in-memory implementation of the HRMS REST backend for
// local runs and tests. Errors use the {"detail": ...} body the console
// expects; validation failures return a list of field errors.
package apiapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/phillip-england/hrmslite/internal/hrms"
	"github.com/phillip-england/hrmslite/internal/middleware"
	"github.com/phillip-england/hrmslite/internal/snapshot"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxBodyBytes = 1 << 20

type Config struct {
	Addr         string
	Seed         bool
	SnapshotPath string
	Now          func() time.Time
}

type server struct {
	store *memStore
}

func DefaultConfigFromEnv() Config {
	seed, _ := strconv.ParseBool(strings.TrimSpace(os.Getenv("DEV_API_SEED")))
	return Config{
		Addr:         envOrDefault("DEV_API_ADDR", ":8000"),
		Seed:         seed,
		SnapshotPath: strings.TrimSpace(os.Getenv("DEV_API_SNAPSHOT")),
	}
}

// NewHandler builds the backend's routes around a fresh store, seeded from
// the snapshot or the demo roster when the config asks for it.
func NewHandler(cfg Config) (http.Handler, error) {
	s := &server{store: newMemStore(cfg.Now)}

	switch {
	case cfg.SnapshotPath != "":
		snap, err := snapshot.ReadFile(cfg.SnapshotPath)
		if err != nil {
			return nil, fmt.Errorf("load snapshot: %w", err)
		}
		var records []hrms.AttendanceRecord
		for _, e := range snap.Employees {
			records = append(records, snap.Attendance[e.EmployeeID]...)
		}
		s.store.load(snap.Employees, records)
	case cfg.Seed:
		seedDemo(s.store)
	}

	mux := http.NewServeMux()
	mux.Handle("/health", http.HandlerFunc(s.health))
	mux.Handle("/employees/", http.HandlerFunc(s.employeesHandler))
	mux.Handle("/attendance/", http.HandlerFunc(s.attendanceHandler))
	mux.Handle("/dashboard/stats", http.HandlerFunc(s.dashboardStats))
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	}))

	return middleware.Chain(
		mux,
		middleware.RequestID,
		middleware.RequestLog("api"),
		middleware.SecurityHeaders(middleware.SecurityHeadersConfig{ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'"}),
	), nil
}

func Run(ctx context.Context, cfg Config) error {
	handler, err := NewHandler(cfg)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("dev api listening on http://localhost%s", cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) employeesHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/employees/"), "/")
	if rest == "" {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, s.store.listEmployees())
		case http.MethodPost:
			s.createEmployee(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		}
		return
	}
	if strings.Contains(rest, "/") {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}

	id, err := primitive.ObjectIDFromHex(rest)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid employee ID")
		return
	}
	switch r.Method {
	case http.MethodGet:
		employee, err := s.store.getEmployee(id)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, employee)
	case http.MethodPut:
		s.updateEmployee(w, r, id)
	case http.MethodDelete:
		if err := s.store.deleteEmployee(id); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Employee deleted successfully"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	}
}

func (s *server) createEmployee(w http.ResponseWriter, r *http.Request) {
	var form hrms.EmployeeForm
	if !decodeJSON(w, r, &form) {
		return
	}
	created, err := s.store.createEmployee(form)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *server) updateEmployee(w http.ResponseWriter, r *http.Request, id primitive.ObjectID) {
	var form hrms.EmployeeForm
	if !decodeJSON(w, r, &form) {
		return
	}
	updated, err := s.store.updateEmployee(id, form)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *server) attendanceHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/attendance/"), "/")
	if rest == "" {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
			return
		}
		var req hrms.MarkAttendanceRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		record, err := s.store.markAttendance(req)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, record)
		return
	}

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}
	records, err := s.store.listAttendance(rest)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *server) dashboardStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.store.stats())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(out); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return false
	}
	return true
}

func writeStoreError(w http.ResponseWriter, err error) {
	var validation *validationError
	var conflict *conflictError
	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": validation.fields})
	case errors.As(err, &conflict):
		writeError(w, http.StatusBadRequest, conflict.detail)
	case errors.Is(err, errUnknownEmployee):
		writeError(w, http.StatusNotFound, "Employee not found")
	case errors.Is(err, errNotFound):
		writeError(w, http.StatusNotFound, "Employee not found")
	default:
		log.Printf("dev api store error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
