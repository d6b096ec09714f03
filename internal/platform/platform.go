// Package platform provides OS-aware helpers for data paths.
// All code that needs to behave differently per OS must use this package.
package platform

import (
	"os"
	"path/filepath"
	"runtime"
)

// IsWindows returns true when running on Windows.
func IsWindows() bool { return runtime.GOOS == "windows" }

// IsMac returns true when running on macOS.
func IsMac() bool { return runtime.GOOS == "darwin" }

// DefaultWorkDir returns the OS-appropriate data directory for Insight Lab.
//
//	Linux:   ~/.local/share/insightlab
//	macOS:   ~/Library/Application Support/InsightLab
//	Windows: %APPDATA%\InsightLab
//
// If WORK_DIR env var is set, that takes priority (used in Docker).
func DefaultWorkDir() string {
	if env := os.Getenv("WORK_DIR"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	switch {
	case IsWindows():
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, "InsightLab")
	case IsMac():
		return filepath.Join(home, "Library", "Application Support", "InsightLab")
	default:
		return filepath.Join(home, ".local", "share", "insightlab")
	}
}

// DataPath returns a path inside the work directory.
//
// Example: DataPath("pricing.yaml") → ~/.local/share/insightlab/pricing.yaml
func DataPath(parts ...string) string {
	return filepath.Join(append([]string{DefaultWorkDir()}, parts...)...)
}

// EnsureDir creates a directory and all parents if they don't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
