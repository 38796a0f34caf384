package hrmscli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

const tailwindVersion = "v3.4.17"

// assetPaths locates the console stylesheet sources relative to the repo root.
type assetPaths struct {
	root string
}

func (p assetPaths) input() string {
	return filepath.Join(p.root, "internal", "clientapp", "assets", "tailwind.input.css")
}

func (p assetPaths) output() string {
	return filepath.Join(p.root, "internal", "clientapp", "assets", "app.css")
}

func (p assetPaths) config() string {
	return filepath.Join(p.root, "internal", "clientapp", "tailwind.config.js")
}

func (p assetPaths) binary(goos string) string {
	name := "tailwindcss"
	if goos == "windows" {
		name += ".exe"
	}
	return filepath.Join(p.root, "bin", name)
}

func runAssets(args []string) error {
	fs := flag.NewFlagSet("assets", flag.ContinueOnError)
	root := fs.String("root", ".", "repository root")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return usageError()
		}
		return err
	}
	if fs.NArg() != 1 || fs.Arg(0) != "build" {
		return fmt.Errorf("%w: usage: hrmslite assets build [--root dir]", ErrUsage)
	}
	return buildStylesheet(context.Background(), assetPaths{root: *root})
}

// buildStylesheet compiles app.css with the standalone tailwind binary,
// downloading it into bin/ on first use.
func buildStylesheet(ctx context.Context, paths assetPaths) error {
	if _, err := os.Stat(paths.input()); err != nil {
		return fmt.Errorf("stylesheet source: %w", err)
	}

	binary := paths.binary(runtime.GOOS)
	if err := installTailwind(ctx, binary, runtime.GOOS, runtime.GOARCH); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, binary,
		"-i", paths.input(),
		"-o", paths.output(),
		"--config", paths.config(),
		"--minify",
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("build tailwind css: %w", err)
	}
	fmt.Fprintf(stdout, "built %s\n", paths.output())
	return nil
}

func installTailwind(ctx context.Context, destination, goos, goarch string) error {
	if info, err := os.Stat(destination); err == nil && info.Mode()&0o111 != 0 {
		return nil
	}

	asset, err := tailwindAsset(goos, goarch)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return fmt.Errorf("create bin directory: %w", err)
	}

	url := fmt.Sprintf("https://github.com/tailwindlabs/tailwindcss/releases/download/%s/%s", tailwindVersion, asset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("prepare tailwind download request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("download tailwindcss binary: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download tailwindcss binary: unexpected status %s", resp.Status)
	}

	tmp := destination + ".tmp"
	if err := writeExecutable(tmp, resp.Body); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, destination); err != nil {
		return fmt.Errorf("install tailwind binary: %w", err)
	}
	return nil
}

func writeExecutable(path string, body io.Reader) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return fmt.Errorf("create temporary tailwind binary: %w", err)
	}
	if _, err := io.Copy(file, body); err != nil {
		_ = file.Close()
		return fmt.Errorf("write tailwind binary: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close temporary tailwind binary: %w", err)
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(path, 0o755); err != nil {
			return fmt.Errorf("mark tailwind binary executable: %w", err)
		}
	}
	return nil
}

func tailwindAsset(goos, goarch string) (string, error) {
	switch goos + "/" + goarch {
	case "darwin/arm64":
		return "tailwindcss-macos-arm64", nil
	case "darwin/amd64":
		return "tailwindcss-macos-x64", nil
	case "linux/amd64":
		return "tailwindcss-linux-x64", nil
	case "linux/arm64":
		return "tailwindcss-linux-arm64", nil
	case "windows/amd64":
		return "tailwindcss-windows-x64.exe", nil
	case "windows/arm64":
		return "tailwindcss-windows-arm64.exe", nil
	default:
		return "", fmt.Errorf("unsupported platform for automatic tailwind install: %s/%s", goos, goarch)
	}
}
