package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths is the single source of truth for every file system path the
// toolkit touches, all resolved relative to the executable directory so
// the binary behaves the same regardless of the working directory it is
// invoked from.
type Paths struct {
	ExecutableDir string
	DataDir       string
	CacheDir      string
	ReportsDir    string
	LogsDir       string
}

// GetPaths resolves all application paths relative to the executable location.
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}

	exeDir := filepath.Dir(exe)
	dataDir := filepath.Join(exeDir, "data")

	return &Paths{
		ExecutableDir: exeDir,
		DataDir:       dataDir,
		CacheDir:      filepath.Join(dataDir, "cache"),
		ReportsDir:    filepath.Join(dataDir, "reports"),
		LogsDir:       filepath.Join(exeDir, "logs"),
	}, nil
}

// EnsureDirectories creates all directories the toolkit writes to.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.CacheDir, p.ReportsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// GetReportPath returns the path for a report file.
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetCachePath returns the path for a cached market-data file.
func (p *Paths) GetCachePath(filename string) string {
	return filepath.Join(p.CacheDir, filename)
}

// GetLogPath returns the path for a log file.
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// LogPathResolution logs the resolved directory layout for debugging.
func (p *Paths) LogPathResolution() {
	logger := slog.Default()
	if logger == nil {
		return
	}
	logger.Info("path resolution",
		slog.String("executable", p.ExecutableDir),
		slog.String("data", p.DataDir),
		slog.String("cache", p.CacheDir),
		slog.String("reports", p.ReportsDir),
		slog.String("logs", p.LogsDir))
}
