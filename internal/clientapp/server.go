// Package clientapp serves the HRMS Lite admin console: server-rendered pages
// for the dashboard, the employee directory and attendance, backed by the
// HRMS REST API.
package clientapp

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/phillip-england/hrmslite/internal/avatar"
	"github.com/phillip-england/hrmslite/internal/hrmsclient"
	"github.com/phillip-england/hrmslite/internal/middleware"
	"github.com/phillip-england/hrmslite/internal/theme"
	"github.com/phillip-england/hrmslite/internal/workspace"
)

type Config struct {
	Addr             string
	APIBaseURL       string
	APITimeout       time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	DefaultTheme     string
	NotifyTTL        time.Duration
	WorkspaceIdleTTL time.Duration
	MaxWorkspaces    int
	Now              func() time.Time
}

//go:embed templates/layout.html templates/dashboard.html templates/employees.html templates/attendance.html assets/app.css
var templatesFS embed.FS

type server struct {
	api        *hrmsclient.Client
	workspaces *workspace.Store
	themes     *theme.Store
	avatars    *avatar.Cache
	now        func() time.Time

	dashboardTmpl  *template.Template
	employeesTmpl  *template.Template
	attendanceTmpl *template.Template
}

func DefaultConfigFromEnv() Config {
	return Config{
		Addr:             envOrDefault("CLIENT_ADDR", ":3000"),
		APIBaseURL:       envOrDefault("API_BASE_URL", "http://localhost:8000"),
		APITimeout:       durationOrDefault("API_TIMEOUT", 8*time.Second),
		ReadTimeout:      5 * time.Second,
		WriteTimeout:     30 * time.Second,
		DefaultTheme:     envOrDefault("DEFAULT_THEME", string(theme.Light)),
		NotifyTTL:        durationOrDefault("NOTIFY_TTL", 4*time.Second),
		WorkspaceIdleTTL: durationOrDefault("WORKSPACE_IDLE_TTL", 2*time.Hour),
		MaxWorkspaces:    intOrDefault("WORKSPACE_MAX", workspace.DefaultMaxWorkspaces),
	}
}

// NewHandler builds the console. The returned close func stops workspace
// timers and must be called when the handler is retired.
func NewHandler(cfg Config) (http.Handler, func(), error) {
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return nil, nil, errors.New("API_BASE_URL is required")
	}
	if _, err := url.ParseRequestURI(cfg.APIBaseURL); err != nil {
		return nil, nil, errors.New("API_BASE_URL must be an absolute url")
	}
	if cfg.APITimeout <= 0 {
		cfg.APITimeout = 8 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	api := hrmsclient.New(cfg.APIBaseURL, &http.Client{Timeout: cfg.APITimeout})
	defaultTheme, _ := theme.Parse(cfg.DefaultTheme)
	s := &server{
		api: api,
		workspaces: workspace.NewStore(api, workspace.Options{
			NotifyTTL:     cfg.NotifyTTL,
			IdleTTL:       cfg.WorkspaceIdleTTL,
			MaxWorkspaces: cfg.MaxWorkspaces,
			Now:           cfg.Now,
		}),
		themes:         theme.NewStore(defaultTheme),
		avatars:        avatar.NewCache(avatar.DefaultSize),
		now:            cfg.Now,
		dashboardTmpl:  template.Must(template.ParseFS(templatesFS, "templates/layout.html", "templates/dashboard.html")),
		employeesTmpl:  template.Must(template.ParseFS(templatesFS, "templates/layout.html", "templates/employees.html")),
		attendanceTmpl: template.Must(template.ParseFS(templatesFS, "templates/layout.html", "templates/attendance.html")),
	}

	s.workspaces.StartSweeper(time.Minute)

	mux := http.NewServeMux()
	mux.Handle("/", http.HandlerFunc(s.rootRedirect))
	mux.Handle("/healthz", http.HandlerFunc(s.healthz))
	mux.Handle("/assets/app.css", http.HandlerFunc(s.appCSSFile))
	mux.Handle("/avatars/", http.HandlerFunc(s.avatarImage))
	mux.Handle("/dashboard", http.HandlerFunc(s.dashboardPage))
	mux.Handle("/employees", http.HandlerFunc(s.employeesRoute))
	mux.Handle("/employees/editor", middleware.Chain(http.HandlerFunc(s.employeeEditor), requireSameOrigin))
	mux.Handle("/employees/delete", middleware.Chain(http.HandlerFunc(s.employeeDelete), requireSameOrigin))
	mux.Handle("/employees/import", middleware.Chain(http.HandlerFunc(s.employeeImport), requireSameOrigin))
	mux.Handle("/employees/export.xlsx", http.HandlerFunc(s.employeeExport))
	mux.Handle("/attendance", http.HandlerFunc(s.attendancePage))
	mux.Handle("/attendance/mark", middleware.Chain(http.HandlerFunc(s.attendanceMark), requireSameOrigin))
	mux.Handle("/attendance/export.xlsx", http.HandlerFunc(s.attendanceExport))
	mux.Handle("/theme/toggle", middleware.Chain(http.HandlerFunc(s.themeToggle), requireSameOrigin))
	mux.Handle("/notifications/dismiss", middleware.Chain(http.HandlerFunc(s.notificationDismiss), requireSameOrigin))

	csp := strings.Join([]string{
		"default-src 'self'",
		"style-src 'self' 'unsafe-inline'",
		"img-src 'self' data:",
		"script-src 'self' 'unsafe-inline'",
		"connect-src 'self'",
		"form-action 'self'",
		"frame-ancestors 'none'",
	}, "; ")

	handler := middleware.Chain(
		mux,
		middleware.RequestID,
		middleware.RequestLog("client"),
		middleware.SecurityHeaders(middleware.SecurityHeadersConfig{ContentSecurityPolicy: csp}),
	)
	return handler, s.workspaces.Close, nil
}

func Run(ctx context.Context, cfg Config) error {
	handler, closeWorkspaces, err := NewHandler(cfg)
	if err != nil {
		return err
	}
	defer closeWorkspaces()

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("client listening on http://localhost%s (api %s)", cfg.Addr, cfg.APIBaseURL)
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

func (s *server) rootRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (s *server) healthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *server) appCSSFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	data, err := templatesFS.ReadFile("assets/app.css")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, _ = w.Write(data)
}

func (s *server) avatarImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/avatars/")
	if !strings.HasSuffix(name, ".png") || strings.Contains(name, "/") {
		http.NotFound(w, r)
		return
	}
	initial := strings.TrimSuffix(name, ".png")
	data, err := s.avatars.PNG(initial, r.URL.Query().Get("department"))
	if err != nil {
		http.Error(w, "avatar render failed", http.StatusInternalServerError)
		log.Printf("avatar render failed: %v", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(data)
}

func (s *server) themeToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.themes.Toggle(w, r)
	http.Redirect(w, r, returnPath(r), http.StatusSeeOther)
}

func (s *server) notificationDismiss(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.workspaces.Resolve(w, r).Tray.Dismiss()
	http.Redirect(w, r, returnPath(r), http.StatusSeeOther)
}

// requireSameOrigin rejects cross-site form posts. Browsers send Origin on
// POST; requests without one (curl, tests) pass.
func requireSameOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if origin := r.Header.Get("Origin"); origin != "" {
				parsed, err := url.Parse(origin)
				if err != nil || !strings.EqualFold(parsed.Host, r.Host) {
					http.Error(w, "cross-origin request rejected", http.StatusForbidden)
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// returnPath reads the form's return field and keeps it only when it is a
// local path.
func returnPath(r *http.Request) string {
	_ = r.ParseForm()
	target := strings.TrimSpace(r.FormValue("return"))
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, `\`) {
		return "/dashboard"
	}
	return target
}

func renderHTMLTemplate(w http.ResponseWriter, tmpl *template.Template, data pageData) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, err := w.Write(buf.Bytes())
	return err
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func durationOrDefault(name string, fallback time.Duration) time.Duration {
	value, err := time.ParseDuration(strings.TrimSpace(os.Getenv(name)))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func intOrDefault(name string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(os.Getenv(name)))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
