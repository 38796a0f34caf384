// Package hrmscli implements the hrmslite command: writing a .env, running
// the console and the development backend, building assets, and moving data
// in and out of a backend.
package hrmscli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/phillip-england/hrmslite/internal/apiapp"
	"github.com/phillip-england/hrmslite/internal/clientapp"
	"github.com/phillip-england/hrmslite/internal/controller"
	"github.com/phillip-england/hrmslite/internal/envutil"
	"github.com/phillip-england/hrmslite/internal/hrms"
	"github.com/phillip-england/hrmslite/internal/hrmsclient"
	"github.com/phillip-england/hrmslite/internal/roster"
	"github.com/phillip-england/hrmslite/internal/snapshot"
	"github.com/phillip-england/hrmslite/internal/theme"
)

var ErrUsage = errors.New("usage")

// stdout is swapped in tests.
var stdout io.Writer = os.Stdout

func Execute(args []string) error {
	if len(args) < 1 || isHelpArg(args[0]) {
		return usageError()
	}

	switch args[0] {
	case "setup":
		return runSetup(args[1:])
	case "run":
		return runCommand(args[1:])
	case "assets":
		return runAssets(args[1:])
	case "import":
		return runImport(args[1:])
	case "snapshot":
		return runSnapshot(args[1:])
	default:
		return usageError()
	}
}

func PrintUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: hrmslite setup [--api-base-url url] [--seed] [--env-file .env] [--force]")
	fmt.Fprintln(w, "       hrmslite run api|client|all")
	fmt.Fprintln(w, "       hrmslite assets build")
	fmt.Fprintln(w, "       hrmslite import --file roster.xlsx [--api url]")
	fmt.Fprintln(w, "       hrmslite snapshot save --out hrms.json.xz [--api url]")
	fmt.Fprintln(w, "       hrmslite snapshot show --in hrms.json.xz")
}

func usageError() error {
	return fmt.Errorf("%w: hrmslite <setup|run|assets|import|snapshot> [...]", ErrUsage)
}

func isHelpArg(arg string) bool {
	switch arg {
	case "-h", "--help", "help":
		return true
	}
	return false
}

func runSetup(args []string) error {
	fs := flag.NewFlagSet("setup", flag.ContinueOnError)
	apiBaseURL := fs.String("api-base-url", "http://localhost:8000", "HRMS backend the console talks to")
	clientAddr := fs.String("client-addr", ":3000", "console listen address")
	devAPIAddr := fs.String("dev-api-addr", ":8000", "development backend listen address")
	seed := fs.Bool("seed", false, "seed the development backend with demo data")
	defaultTheme := fs.String("theme", string(theme.Light), "default theme: light or dark")
	envPath := fs.String("env-file", ".env", "path to .env file")
	force := fs.Bool("force", false, "overwrite existing env file")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return usageError()
		}
		return err
	}

	if _, ok := theme.Parse(*defaultTheme); !ok {
		return fmt.Errorf("invalid --theme %q: want light or dark", *defaultTheme)
	}
	if !strings.HasPrefix(*apiBaseURL, "http://") && !strings.HasPrefix(*apiBaseURL, "https://") {
		return fmt.Errorf("invalid --api-base-url %q: want an http(s) url", *apiBaseURL)
	}

	values := map[string]string{
		"CLIENT_ADDR":        *clientAddr,
		"API_BASE_URL":       strings.TrimRight(*apiBaseURL, "/"),
		"API_TIMEOUT":        "8s",
		"DEV_API_ADDR":       *devAPIAddr,
		"DEV_API_SEED":       fmt.Sprintf("%t", *seed),
		"DEFAULT_THEME":      *defaultTheme,
		"NOTIFY_TTL":         "4s",
		"WORKSPACE_IDLE_TTL": "2h",
		"WORKSPACE_MAX":      "5000",
	}

	if err := envutil.WriteDotEnv(*envPath, values, *force); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s\n", *envPath)
	return nil
}

func runCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: missing run target: api | client | all", ErrUsage)
	}

	if err := envutil.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch args[0] {
	case "api":
		return runAPI(ctx)
	case "client":
		return runClient(ctx)
	case "all":
		return runAll(ctx)
	default:
		return fmt.Errorf("%w: unknown run target %q", ErrUsage, args[0])
	}
}

func runAPI(ctx context.Context) error {
	cfg := apiapp.DefaultConfigFromEnv()
	if err := apiapp.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runClient(ctx context.Context) error {
	cfg := clientapp.DefaultConfigFromEnv()
	if err := clientapp.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runAll(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() { errCh <- runAPI(ctx) }()
	go func() {
		time.Sleep(500 * time.Millisecond)
		errCh <- runClient(ctx)
	}()

	for i := 0; i < 2; i++ {
		err := <-errCh
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}
	return nil
}

// printNotifier reports controller notices on the terminal.
type printNotifier struct {
	w io.Writer
}

func (p printNotifier) Success(message string) { fmt.Fprintln(p.w, message) }
func (p printNotifier) Error(message string)   { fmt.Fprintln(p.w, "error:", message) }

func runImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	file := fs.String("file", "", "roster spreadsheet (.xlsx or .xls)")
	apiURL := fs.String("api", "", "backend base url (default API_BASE_URL)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return usageError()
		}
		return err
	}
	if strings.TrimSpace(*file) == "" {
		return fmt.Errorf("%w: --file is required", ErrUsage)
	}

	api, err := backendClient(*apiURL)
	if err != nil {
		return err
	}
	entries, err := readRosterFile(*file)
	if err != nil {
		return err
	}

	page := controller.NewEmployees(api, printNotifier{w: stdout})
	result := page.Import(context.Background(), entries)
	for _, failure := range result.Failures {
		fmt.Fprintf(stdout, "  row %d (%s): %s\n", failure.Row, failure.EmployeeID, failure.Reason)
	}
	if len(result.Failures) > 0 {
		return fmt.Errorf("%d of %d rows failed", len(result.Failures), len(entries))
	}
	return nil
}

func readRosterFile(path string) ([]hrms.RosterEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()
	entries, err := roster.Read(f, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("read roster %s: %w", path, err)
	}
	return entries, nil
}

func runSnapshot(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: hrmslite snapshot save|show", ErrUsage)
	}
	switch args[0] {
	case "save":
		return runSnapshotSave(args[1:])
	case "show":
		return runSnapshotShow(args[1:])
	default:
		return fmt.Errorf("%w: unknown snapshot action %q", ErrUsage, args[0])
	}
}

func runSnapshotSave(args []string) error {
	fs := flag.NewFlagSet("snapshot save", flag.ContinueOnError)
	out := fs.String("out", "hrms.json.xz", "archive path")
	apiURL := fs.String("api", "", "backend base url (default API_BASE_URL)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return usageError()
		}
		return err
	}

	api, err := backendClient(*apiURL)
	if err != nil {
		return err
	}
	snap, err := snapshot.Capture(context.Background(), api, api.BaseURL(), time.Now())
	if err != nil {
		return err
	}
	if err := snapshot.WriteFile(*out, snap); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s: %d employees, %d attendance records\n", *out, len(snap.Employees), snap.RecordCount())
	return nil
}

func runSnapshotShow(args []string) error {
	fs := flag.NewFlagSet("snapshot show", flag.ContinueOnError)
	in := fs.String("in", "hrms.json.xz", "archive path")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return usageError()
		}
		return err
	}

	snap, err := snapshot.ReadFile(*in)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s\n  taken:      %s\n  source:     %s\n  employees:  %d\n  attendance: %d\n",
		*in, snap.TakenAt.Format(time.RFC3339), snap.Source, len(snap.Employees), snap.RecordCount())
	return nil
}

// backendClient builds an API client for flagURL, falling back to the .env
// and environment.
func backendClient(flagURL string) (*hrmsclient.Client, error) {
	if err := envutil.LoadDotEnv(".env"); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	base := strings.TrimSpace(flagURL)
	if base == "" {
		base = clientapp.DefaultConfigFromEnv().APIBaseURL
	}
	return hrmsclient.New(base, &http.Client{Timeout: 30 * time.Second}), nil
}
