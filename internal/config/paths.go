package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths is the resolved directory layout. Every file the application
// touches is addressed through it, so path construction stays in one
// place.
//
//	<executable dir>/
//	  data/
//	    sessions/   Verifit session XML exports
//	    reports/    generated CSV and workbook files
//	    cache/      scratch space for half-written workbooks
//	  logs/
type Paths struct {
	ExecutableDir string
	DataDir       string
	SessionsDir   string
	ReportsDir    string
	CacheDir      string
	LogsDir       string

	// Report files inside ReportsDir
	MeasuredCSV  string
	TargetsCSV   string
	AidedSIICSV  string
	DiffsCSV     string
	WorkbookFile string
}

// PathsFrom resolves the layout from the configured roots. Relative
// entries resolve against the executable directory, never the working
// directory, so the binary behaves the same no matter where it is
// launched from.
func PathsFrom(pc PathsConfig) (*Paths, error) {
	exeDir := pc.ExecutableDir
	if exeDir == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locate executable: %w", err)
		}
		if exe, err = filepath.EvalSymlinks(exe); err != nil {
			return nil, fmt.Errorf("resolve executable symlinks: %w", err)
		}
		exeDir = filepath.Dir(exe)
	}

	abs := func(dir, fallback string) string {
		if dir == "" {
			dir = fallback
		}
		if filepath.IsAbs(dir) {
			return dir
		}
		return filepath.Join(exeDir, dir)
	}

	dataDir := abs(pc.DataDir, "data")
	p := &Paths{
		ExecutableDir: exeDir,
		DataDir:       dataDir,
		SessionsDir:   filepath.Join(dataDir, "sessions"),
		ReportsDir:    filepath.Join(dataDir, "reports"),
		CacheDir:      filepath.Join(dataDir, "cache"),
		LogsDir:       abs(pc.LogsDir, "logs"),
	}
	p.setReportFiles()
	return p, nil
}

// PathsFor roots the layout at explicit session and report
// directories. The processor CLI uses it when -dir or -out override
// the executable-relative layout; directories it leaves empty are
// skipped by EnsureDirectories.
func PathsFor(sessionsDir, reportsDir string) *Paths {
	p := &Paths{
		SessionsDir: sessionsDir,
		ReportsDir:  reportsDir,
	}
	p.setReportFiles()
	return p
}

// Report file names inside the reports directory. The exporter writes
// them in this order, workbook last.
const (
	MeasuredCSVName = "rem_measured_spl.csv"
	TargetsCSVName  = "rem_target_spl.csv"
	AidedSIICSVName = "rem_aided_sii.csv"
	DiffsCSVName    = "rem_measured_target_diffs.csv"
	WorkbookName    = "rem_session_data.xlsx"
)

func (p *Paths) setReportFiles() {
	p.MeasuredCSV = filepath.Join(p.ReportsDir, MeasuredCSVName)
	p.TargetsCSV = filepath.Join(p.ReportsDir, TargetsCSVName)
	p.AidedSIICSV = filepath.Join(p.ReportsDir, AidedSIICSVName)
	p.DiffsCSV = filepath.Join(p.ReportsDir, DiffsCSVName)
	p.WorkbookFile = filepath.Join(p.ReportsDir, WorkbookName)
}

// EnsureDirectories creates the directory tree, skipping entries the
// constructor left blank.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.SessionsDir, p.ReportsDir, p.CacheDir, p.LogsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// FileExists reports whether path names an existing file or directory.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// GetSessionPath returns the full path of a session export.
func (p *Paths) GetSessionPath(filename string) string {
	return filepath.Join(p.SessionsDir, filename)
}

// GetReportPath returns the full path of a report file.
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetCachePath returns the full path of a scratch file.
func (p *Paths) GetCachePath(filename string) string {
	return filepath.Join(p.CacheDir, filename)
}

// GetMeasuredCSVPath returns the measured SPL report path.
func (p *Paths) GetMeasuredCSVPath() string { return p.MeasuredCSV }

// GetTargetsCSVPath returns the target SPL report path.
func (p *Paths) GetTargetsCSVPath() string { return p.TargetsCSV }

// GetAidedSIICSVPath returns the aided SII report path.
func (p *Paths) GetAidedSIICSVPath() string { return p.AidedSIICSV }

// GetDiffsCSVPath returns the measured-target difference report path.
func (p *Paths) GetDiffsCSVPath() string { return p.DiffsCSV }

// GetWorkbookPath returns the combined xlsx workbook path.
func (p *Paths) GetWorkbookPath() string { return p.WorkbookFile }

// LogPathResolution records the resolved layout at startup.
func (p *Paths) LogPathResolution() {
	slog.Info("path layout resolved",
		slog.String("executable_dir", p.ExecutableDir),
		slog.String("data_dir", p.DataDir),
		slog.String("sessions_dir", p.SessionsDir),
		slog.String("reports_dir", p.ReportsDir),
		slog.String("cache_dir", p.CacheDir),
		slog.String("logs_dir", p.LogsDir))
}
