// Command processor extracts real-ear measurement data from a directory of
// Verifit session XML exports and writes the four report tables (measured
// SPL, target SPL, aided SII and measured-target differences) as CSV files,
// optionally bundled into an xlsx workbook.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"remcli/internal/config"
	"remcli/internal/dataset"
	"remcli/internal/exporter"
	"remcli/internal/infrastructure"
	"remcli/internal/validation"
	"remcli/internal/verifit"
	"remcli/pkg/contracts"
	"remcli/pkg/contracts/domain"
)

type options struct {
	configFile string
	dir        string
	out        string
	testType   string
	freqs      string
	workers    int
	workbook   bool
	bom        bool
	logLevel   string
	quiet      bool
	version    bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configFile, "config", "", "config file path (default: search config.yaml and configs/config.yaml)")
	flag.StringVar(&opts.dir, "dir", "", "input directory with Verifit session .xml files (defaults to data/sessions relative to the executable)")
	flag.StringVar(&opts.out, "out", "", "output directory for report files (defaults to data/reports relative to the executable)")
	flag.StringVar(&opts.testType, "test-type", "", "session test type: on-ear, test-box or speechmap (default from config)")
	flag.StringVar(&opts.freqs, "freqs", "", "comma separated analysis frequencies in Hz (default 250,500,...,8000)")
	flag.IntVar(&opts.workers, "workers", 0, "concurrent session parsers (default from config)")
	flag.BoolVar(&opts.workbook, "workbook", false, "also write an xlsx workbook containing all four tables")
	flag.BoolVar(&opts.bom, "bom", false, "prefix CSV files with a UTF-8 byte-order mark for Excel")
	flag.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error (default warn)")
	flag.BoolVar(&opts.quiet, "quiet", false, "suppress per-file progress output")
	flag.BoolVar(&opts.version, "version", false, "print version information and exit")
	flag.Parse()

	if opts.version {
		fmt.Println(contracts.FullVersion())
		return
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg, err := loadConfig(opts.configFile)
	if err != nil {
		return err
	}

	// Flags override configuration
	if opts.testType == "" {
		opts.testType = cfg.Extraction.TestType
	}
	if opts.workers == 0 {
		opts.workers = cfg.Extraction.Workers
	}
	bom := opts.bom || cfg.Extraction.CSVBOM
	workbook := opts.workbook || cfg.Extraction.Workbook

	freqs := cfg.Extraction.Frequencies
	if opts.freqs != "" {
		freqs, err = parseFreqs(opts.freqs)
		if err != nil {
			return fmt.Errorf("invalid -freqs: %w", err)
		}
	}

	if opts.dir == "" {
		opts.dir = cfg.Extraction.SourceDir
	}
	paths, err := resolvePaths(cfg, opts.dir, opts.out)
	if err != nil {
		return err
	}
	if err := paths.EnsureDirectories(); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}

	// The CLI reports through stdout, so keep the JSON log stream quiet
	// unless asked otherwise.
	cfg.Logging.Level = "warn"
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.quiet {
		cfg.Logging.Level = "error"
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("logger init failed, using default", "error", err)
		logger = slog.Default()
	}

	validator := validation.NewFileValidator(logger)
	if _, err := validator.ValidateSessionDirectory(paths.SessionsDir); err != nil {
		return err
	}
	if err := validator.ValidateReportsDirectory(paths.ReportsDir); err != nil {
		return err
	}

	ext, err := verifit.New(verifit.Options{
		TestType:    domain.TestType(opts.testType),
		Frequencies: freqs,
		Workers:     opts.workers,
		Logger:      logger,
		OnFileDone:  progressPrinter(opts.quiet),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	fmt.Printf("Extracting %s sessions from %s\n", ext.TestType(), paths.SessionsDir)

	res, err := ext.Run(ctx, paths.SessionsDir)
	if err != nil {
		return err
	}

	diffs := dataset.Diffs(dataset.Unpivot(res.Measured), dataset.Unpivot(res.Targets))

	exp := exporter.NewReportExporter(paths, exporter.ExportOptions{
		BOM:      bom,
		Workbook: workbook,
	})
	written, err := exp.ExportAll(ctx, exporter.ResultTables{
		Measured: res.Measured,
		Targets:  res.Targets,
		AidedSII: res.AidedSII,
		Diffs:    diffs,
	})
	if err != nil {
		return fmt.Errorf("write reports: %w", err)
	}

	curves := 0
	for _, f := range res.Files {
		if f.Session != nil {
			curves += len(f.Session.Measured) + len(f.Session.Targets)
		}
	}
	rows := len(res.Measured.Rows) + len(res.Targets.Rows) + len(res.AidedSII.Rows) + len(diffs)

	fmt.Printf("Processed %d of %d session files in %s\n",
		res.Processed, len(res.Files), time.Since(start).Round(time.Millisecond))
	fmt.Printf("Extracted %d curves, wrote %d table rows\n", curves, rows)
	for _, f := range res.Files {
		if f.Err != nil {
			fmt.Printf("  failed %s: %v\n", f.Filename, f.Err)
		}
	}
	for _, p := range written {
		fmt.Printf("Wrote %s\n", p)
	}

	return nil
}

// loadConfig loads the layered configuration. An explicitly named file
// must load cleanly, while the probed default locations fall back to
// built-in defaults so the CLI runs without any configuration present.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Warn("config load failed, using defaults", "error", err)
		cfg = config.Default()
	}
	return cfg, nil
}

// progressPrinter returns the per-file hook. Worker goroutines call it
// concurrently, so printing is serialized.
func progressPrinter(quiet bool) func(*verifit.FileResult) {
	if quiet {
		return nil
	}
	var mu sync.Mutex
	return func(f *verifit.FileResult) {
		mu.Lock()
		defer mu.Unlock()
		if f.Err != nil {
			fmt.Printf("  failed %s: %v\n", f.Filename, f.Err)
			return
		}
		curves := 0
		if f.Session != nil {
			curves = len(f.Session.Measured) + len(f.Session.Targets)
		}
		fmt.Printf("  ok %s (%d curves, %s)\n", f.Filename, curves, f.Duration.Round(time.Millisecond))
	}
}

// resolvePaths picks the session and report directories, letting flags
// override the configured layout.
func resolvePaths(cfg *config.Config, dir, out string) (*config.Paths, error) {
	base, err := config.PathsFrom(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("resolve paths: %w", err)
	}
	if dir == "" && out == "" {
		return base, nil
	}

	sessions := base.SessionsDir
	if dir != "" {
		if sessions, err = filepath.Abs(dir); err != nil {
			return nil, fmt.Errorf("invalid -dir: %w", err)
		}
	}
	reports := base.ReportsDir
	if out != "" {
		if reports, err = filepath.Abs(out); err != nil {
			return nil, fmt.Errorf("invalid -out: %w", err)
		}
	}
	return config.PathsFor(sessions, reports), nil
}

// parseFreqs parses the comma separated -freqs flag value.
func parseFreqs(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	freqs := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		hz, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("bad frequency %q", p)
		}
		if hz <= 0 || hz > 20000 {
			return nil, fmt.Errorf("frequency out of range: %d", hz)
		}
		freqs = append(freqs, hz)
	}
	if len(freqs) == 0 {
		return nil, errors.New("no frequencies given")
	}
	return freqs, nil
}
