package hrmsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/phillip-england/hrmslite/internal/hrms"
	"github.com/phillip-england/hrmslite/internal/middleware"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// APIError is a non-2xx answer from the backend. Detail carries the server's
// message when the body had one.
type APIError struct {
	Method string
	Path   string
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.Status)
}

// Message returns the backend's detail for err, or fallback when there is
// none (transport failures, empty bodies).
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Detail) != "" {
		return apiErr.Detail
	}
	return fallback
}

func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) ListEmployees(ctx context.Context) ([]hrms.Employee, error) {
	var employees []hrms.Employee
	if err := c.do(ctx, http.MethodGet, "/employees/", nil, &employees); err != nil {
		return nil, err
	}
	if employees == nil {
		employees = []hrms.Employee{}
	}
	return employees, nil
}

func (c *Client) CreateEmployee(ctx context.Context, form hrms.EmployeeForm) (hrms.Employee, error) {
	var created hrms.Employee
	err := c.do(ctx, http.MethodPost, "/employees/", form, &created)
	return created, err
}

func (c *Client) UpdateEmployee(ctx context.Context, id primitive.ObjectID, form hrms.EmployeeForm) (hrms.Employee, error) {
	var updated hrms.Employee
	err := c.do(ctx, http.MethodPut, "/employees/"+url.PathEscape(id.Hex()), form, &updated)
	return updated, err
}

func (c *Client) DeleteEmployee(ctx context.Context, id primitive.ObjectID) error {
	return c.do(ctx, http.MethodDelete, "/employees/"+url.PathEscape(id.Hex()), nil, nil)
}

// ListAttendance reads one employee's history. The backend keys attendance by
// the business id, not the object id.
func (c *Client) ListAttendance(ctx context.Context, employeeID string) ([]hrms.AttendanceRecord, error) {
	var records []hrms.AttendanceRecord
	if err := c.do(ctx, http.MethodGet, "/attendance/"+url.PathEscape(employeeID), nil, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []hrms.AttendanceRecord{}
	}
	return records, nil
}

func (c *Client) MarkAttendance(ctx context.Context, req hrms.MarkAttendanceRequest) (hrms.AttendanceRecord, error) {
	var created hrms.AttendanceRecord
	err := c.do(ctx, http.MethodPost, "/attendance/", req, &created)
	return created, err
}

func (c *Client) DashboardStats(ctx context.Context) (hrms.DashboardStats, error) {
	var stats hrms.DashboardStats
	err := c.do(ctx, http.MethodGet, "/dashboard/stats", nil, &stats)
	return stats, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("prepare %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := middleware.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(middleware.RequestIDHeader, id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Method: method,
			Path:   path,
			Status: resp.StatusCode,
			Detail: parseDetail(respBody),
		}
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

type validationIssue struct {
	Msg string `json:"msg"`
}

// parseDetail understands a plain string detail and the list of
// {"msg": ...} objects validation failures carry.
func parseDetail(body []byte) string {
	var payload errorBody
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(payload.Detail, &text); err == nil {
		return strings.TrimSpace(text)
	}

	var issues []validationIssue
	if err := json.Unmarshal(payload.Detail, &issues); err == nil {
		messages := make([]string, 0, len(issues))
		for _, issue := range issues {
			if msg := strings.TrimSpace(issue.Msg); msg != "" {
				messages = append(messages, msg)
			}
		}
		return strings.Join(messages, "; ")
	}
	return ""
}
