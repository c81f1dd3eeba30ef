package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/Apsteward8/my-bet-tracker/internal/csvimport"
	"github.com/Apsteward8/my-bet-tracker/internal/domain"
	"github.com/Apsteward8/my-bet-tracker/internal/lock"
	"github.com/Apsteward8/my-bet-tracker/internal/reconcile"
	"github.com/Apsteward8/my-bet-tracker/internal/telemetry"
)

// ──────────────────────────────────────────────────────────────────────────────
// Interfaces injected into ImportService
// ──────────────────────────────────────────────────────────────────────────────

// RunStore persists finished batch reports.
// Implemented by repository.ImportRunRepository.
type RunStore interface {
	Save(ctx context.Context, r domain.BatchReport) error
	Recent(ctx context.Context, src domain.Source, limit int) ([]domain.BatchReport, error)
}

// EventPublisher announces finished batches.
// Implemented by events.Publisher.
type EventPublisher interface {
	ImportCompleted(ctx context.Context, r domain.BatchReport) error
}

const (
	defaultRecentRuns = 20
	maxRecentRuns     = 100
)

// ──────────────────────────────────────────────────────────────────────────────
// ImportService
// ──────────────────────────────────────────────────────────────────────────────

// ImportService runs one source export through the reconciliation engine.
// Imports of the same source are serialised by the locker.
type ImportService struct {
	engine    *reconcile.Engine
	locker    lock.Locker
	lockTTL   time.Duration
	runs      RunStore           // optional; nil skips run history
	metrics   *telemetry.Imports // optional
	publisher EventPublisher     // optional
	log       *zap.Logger
}

// NewImportService creates an ImportService.
func NewImportService(engine *reconcile.Engine, locker lock.Locker, lockTTL time.Duration, log *zap.Logger) *ImportService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ImportService{engine: engine, locker: locker, lockTTL: lockTTL, log: log}
}

// SetRunStore injects run history persistence post-construction.
func (s *ImportService) SetRunStore(r RunStore) { s.runs = r }

// SetMetrics injects the Prometheus collectors post-construction.
func (s *ImportService) SetMetrics(m *telemetry.Imports) { s.metrics = m }

// SetPublisher injects the event publisher post-construction.
func (s *ImportService) SetPublisher(p EventPublisher) { s.publisher = p }

// ──────────────────────────────────────────────────────────────────────────────
// Import
// ──────────────────────────────────────────────────────────────────────────────

// Import parses a CSV export of src and reconciles it as one batch.
//
// A malformed file or a held lock returns an error before any row is
// processed. Otherwise the report is always returned, together with the
// batch error when the batch was discarded.
func (s *ImportService) Import(ctx context.Context, src domain.Source, r io.Reader) (domain.BatchReport, error) {
	run, err := s.parse(src, r)
	if err != nil {
		return domain.BatchReport{}, fmt.Errorf("import_service.Import: %w", err)
	}

	release, err := s.locker.Acquire(ctx, "import:"+string(src), s.lockTTL)
	if err != nil {
		return domain.BatchReport{}, fmt.Errorf("import_service.Import: %w", err)
	}
	defer func() {
		if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
			s.log.Warn("import lock release failed", zap.String("source", string(src)), zap.Error(rerr))
		}
	}()

	report, batchErr := run(ctx)
	s.metrics.Observe(report)

	// Run history and events are recorded even when the caller has gone away.
	bg := context.WithoutCancel(ctx)
	if s.runs != nil {
		if err := s.runs.Save(bg, report); err != nil {
			s.log.Error("import run not recorded", zap.String("run_id", report.RunID.String()), zap.Error(err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.ImportCompleted(bg, report); err != nil {
			s.log.Warn("import event not published", zap.String("run_id", report.RunID.String()), zap.Error(err))
		}
	}

	if batchErr != nil {
		return report, fmt.Errorf("import_service.Import: %w", batchErr)
	}
	return report, nil
}

// ImportFile opens path and imports it.
func (s *ImportService) ImportFile(ctx context.Context, src domain.Source, path string) (domain.BatchReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.BatchReport{}, fmt.Errorf("import_service.ImportFile: %w", err)
	}
	defer f.Close()
	return s.Import(ctx, src, f)
}

// parse reads the whole export up front so a malformed file never takes the lock.
func (s *ImportService) parse(src domain.Source, r io.Reader) (func(context.Context) (domain.BatchReport, error), error) {
	switch src {
	case domain.SourceOddsJam:
		rows, err := csvimport.ReadOddsJam(r)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) (domain.BatchReport, error) { return s.engine.ImportOddsJam(ctx, rows) }, nil
	case domain.SourcePikkit:
		rows, err := csvimport.ReadPikkit(r)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) (domain.BatchReport, error) { return s.engine.ImportPikkit(ctx, rows) }, nil
	}
	return nil, domain.ErrUnknownSource
}

// ──────────────────────────────────────────────────────────────────────────────
// History
// ──────────────────────────────────────────────────────────────────────────────

// Recent lists past runs, newest first. An empty src lists every source.
func (s *ImportService) Recent(ctx context.Context, src domain.Source, limit int) ([]domain.BatchReport, error) {
	if s.runs == nil {
		return []domain.BatchReport{}, nil
	}
	if limit <= 0 {
		limit = defaultRecentRuns
	}
	if limit > maxRecentRuns {
		limit = maxRecentRuns
	}
	runs, err := s.runs.Recent(ctx, src, limit)
	if err != nil {
		return nil, fmt.Errorf("import_service.Recent: %w", err)
	}
	return runs, nil
}
