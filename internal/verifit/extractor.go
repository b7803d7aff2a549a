package verifit

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	apperrors "remcli/internal/errors"
	"remcli/internal/files"
	"remcli/internal/infrastructure"
	"remcli/pkg/contracts/domain"
)

const tracerName = "remcli/internal/verifit"

// Options configures an Extractor. Zero values select the defaults: on-ear
// test type, the standard audiometric frequency set, one worker per CPU.
type Options struct {
	TestType    domain.TestType
	Frequencies []int
	Workers     int
	Logger      *slog.Logger
	Metrics     *infrastructure.BusinessMetrics

	// OnFileDone, when set, is invoked once per session file as soon as its
	// extraction finishes. Calls come from worker goroutines, so the hook
	// must be safe for concurrent use.
	OnFileDone func(*FileResult)
}

// Extractor runs the extraction pipeline over session files. All state is
// fixed at construction, so one Extractor may serve concurrent runs.
type Extractor struct {
	testType   domain.TestType
	scheme     string
	freqs      []int
	workers    int
	log        *slog.Logger
	metrics    *infrastructure.BusinessMetrics
	onFileDone func(*FileResult)
}

// New builds an Extractor from options.
func New(opts Options) (*Extractor, error) {
	tt := opts.TestType
	if tt == "" {
		tt = domain.TestTypeOnEar
	}
	if !tt.Valid() {
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("unknown test type %q", tt))
	}

	freqs := opts.Frequencies
	if len(freqs) == 0 {
		freqs = domain.DefaultFrequencies
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Extractor{
		testType:   tt,
		scheme:     tt.Scheme(),
		freqs:      freqs,
		workers:    workers,
		log:        infrastructure.WithComponent(log, "verifit"),
		metrics:    opts.Metrics,
		onFileDone: opts.OnFileDone,
	}, nil
}

// TestType returns the test type the extractor searches for.
func (e *Extractor) TestType() domain.TestType {
	return e.testType
}

// FileResult is the outcome of extracting one session file. Err is set only
// for failures that skip the whole file; per-node absences land in Notices.
type FileResult struct {
	Filename string
	Path     string
	Session  *domain.SessionData
	Notices  []*apperrors.AppError
	Err      error
	Duration time.Duration
}

// BatchResult aggregates one run: per-file outcomes in filename order plus
// the three assembled wide tables.
type BatchResult struct {
	Files    []*FileResult
	Measured *domain.WideTable
	Targets  *domain.WideTable
	AidedSII *domain.WideTable

	// Processed counts files that yielded measured data, Failed the files
	// skipped whole. Files that parsed but held no curves count as neither.
	Processed int
	Failed    int
}

// Run extracts every session file in dir and assembles the batch tables.
// Files are processed concurrently but assembled in filename order, so
// repeated runs over the same directory produce identical tables. A file
// whose frequency grids cannot be resolved is skipped and counted without
// disturbing its siblings; Run itself fails only when the directory cannot
// be read, the context ends, or no file at all yields measured data.
func (e *Extractor) Run(ctx context.Context, dir string) (*BatchResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "verifit.batch",
		trace.WithAttributes(
			attribute.String("dir", dir),
			attribute.String("test_type", string(e.testType))))
	defer span.End()

	sessions, err := files.NewDiscovery("").FindSessionFiles(dir)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	if len(sessions) == 0 {
		err := apperrors.NewEmptyBatchError(0)
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	e.log.Info("extracting session files",
		slog.Int("files", len(sessions)),
		slog.String("dir", dir),
		slog.String("test_type", string(e.testType)),
		slog.Int("workers", e.workers))

	results := make([]*FileResult, len(sessions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, fi := range sessions {
		g.Go(func() error {
			res := e.extractOne(gctx, fi)
			results[i] = res
			if e.onFileDone != nil {
				e.onFileDone(res)
			}
			return nil
		})
	}
	// Workers never return errors; per-file failures live in results.
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batch := &BatchResult{
		Files:    results,
		Measured: domain.NewWideTable(domain.TableMeasured),
		Targets:  domain.NewWideTable(domain.TableTarget),
		AidedSII: domain.NewWideTable(domain.TableAidedSII),
	}
	for _, res := range results {
		if res.Err != nil {
			batch.Failed++
			continue
		}
		if len(res.Session.Measured) == 0 {
			e.log.Warn("session file yielded no measured curves",
				slog.String("file", res.Filename))
			continue
		}
		batch.Processed++
		batch.Measured.AppendSegment(e.measuredSegment(res.Session))
		batch.Targets.AppendSegment(e.targetSegment(res.Session))
		batch.AidedSII.AppendSegment(e.metricSegment(res.Session))
	}

	if batch.Processed == 0 {
		err := apperrors.NewEmptyBatchError(len(sessions))
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	e.log.Info("extraction complete",
		slog.Int("processed", batch.Processed),
		slog.Int("failed", batch.Failed),
		slog.Int("measured_rows", len(batch.Measured.Rows)),
		slog.Int("target_rows", len(batch.Targets.Rows)))

	return batch, nil
}

// ExtractFile runs the full pipeline on a single session file.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (*domain.SessionData, error) {
	name := filepath.Base(path)
	res := e.extractOne(ctx, files.FileInfo{
		Path: path,
		Name: name,
		Stem: files.SessionStem(name),
	})
	if res.Err != nil {
		return nil, res.Err
	}
	return res.Session, nil
}

// extractOne runs every stage for one file. Failures before the grids are
// resolved fail the file; everything after degrades to notices.
func (e *Extractor) extractOne(ctx context.Context, fi files.FileInfo) *FileResult {
	res := &FileResult{Filename: fi.Stem, Path: fi.Path}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "verifit.file",
		trace.WithAttributes(attribute.String("file", fi.Stem)))
	defer span.End()

	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		infrastructure.RecordSessionFileMetrics(ctx, e.metrics, fi.Stem, string(e.testType), res.Duration, res.Err == nil)
	}()

	doc, err := ParseFile(fi.Path)
	if err != nil {
		res.Err = err
		infrastructure.RecordError(ctx, err)
		e.log.Error("session file unreadable, skipping",
			slog.String("file", fi.Name),
			slog.String("error", err.Error()))
		return res
	}

	fine, audiometric, err := doc.Grids()
	if err != nil {
		res.Err = err
		infrastructure.RecordError(ctx, err)
		e.log.Error("frequency grids unresolved, skipping file",
			slog.String("file", fi.Name),
			slog.String("error", err.Error()))
		return res
	}

	session := &domain.SessionData{
		Filename:        fi.Stem,
		FineGrid:        fine,
		AudiometricGrid: audiometric,
	}

	var notes []*apperrors.AppError
	session.Measured, notes = e.extractMeasured(doc)
	res.Notices = append(res.Notices, notes...)

	session.Keys, notes = e.resolveKeys(doc, session.Measured)
	res.Notices = append(res.Notices, notes...)

	session.Targets, notes = e.extractTargets(doc, session.Keys)
	res.Notices = append(res.Notices, notes...)

	session.Metrics, notes = e.extractAidedSII(doc, session.Keys)
	res.Notices = append(res.Notices, notes...)

	res.Session = session
	infrastructure.RecordCurvesExtracted(ctx, e.metrics, "measured", int64(len(session.Measured)))
	infrastructure.RecordCurvesExtracted(ctx, e.metrics, "target", int64(len(session.Targets)))
	infrastructure.RecordCurvesExtracted(ctx, e.metrics, "aided_sii", int64(len(session.Metrics)))

	return res
}
