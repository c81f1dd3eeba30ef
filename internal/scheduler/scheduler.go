// Package scheduler re-imports the configured source exports on a cron
// schedule. Each tick imports every job in order; a failing job is logged and
// does not stop the others.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Apsteward8/my-bet-tracker/internal/domain"
)

// FileImporter is satisfied by *service.ImportService.
type FileImporter interface {
	ImportFile(ctx context.Context, src domain.Source, path string) (domain.BatchReport, error)
}

// Job is one export picked up on every tick.
type Job struct {
	Source domain.Source
	Path   string
}

// DefaultRunTimeout bounds one tick.
const DefaultRunTimeout = 10 * time.Minute

// Scheduler runs Jobs on a cron spec evaluated in the canonical timezone.
type Scheduler struct {
	cron     *cron.Cron
	importer FileImporter
	jobs     []Job
	timeout  time.Duration
	logger   *zap.Logger
}

// NewScheduler parses spec (standard five-field cron, or descriptors like
// "@hourly") and registers the import tick. Nothing runs until Start.
func NewScheduler(spec string, loc *time.Location, importer FileImporter, jobs []Job, logger *zap.Logger) (*Scheduler, error) {
	if len(jobs) == 0 {
		return nil, fmt.Errorf("scheduler: no jobs for %q", spec)
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		// SkipIfStillRunning: a slow tick never overlaps the next one.
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		importer: importer,
		jobs:     jobs,
		timeout:  DefaultRunTimeout,
		logger:   logger,
	}
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("scheduler: parse %q: %w", spec, err)
	}
	return s, nil
}

// Start begins ticking and returns immediately. The scheduler stops when ctx
// is cancelled; a tick already running is allowed to finish.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.jobs)))

	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
		s.logger.Info("scheduler stopped")
	}()
}

// RunOnce imports every job now.
func (s *Scheduler) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	for _, job := range s.jobs {
		if ctx.Err() != nil {
			return
		}
		s.run(ctx, job)
	}
}

func (s *Scheduler) run(ctx context.Context, job Job) {
	defer s.recoverAndLog(job)

	log := s.logger.With(zap.String("source", string(job.Source)), zap.String("path", job.Path))
	report, err := s.importer.ImportFile(ctx, job.Source, job.Path)
	if err != nil {
		log.Error("scheduled import failed", zap.Error(err))
		return
	}
	log.Info("scheduled import finished",
		zap.Int("inserted", report.Inserted),
		zap.Int("updated", report.Updated),
		zap.Int("errors", report.Errors),
	)
}

// ──────────────────────────────────────────────────────────────────────────────
// Panic recovery
// ──────────────────────────────────────────────────────────────────────────────

// recoverAndLog keeps one panicking job from taking the scheduler down.
func (s *Scheduler) recoverAndLog(job Job) {
	if r := recover(); r != nil {
		s.logger.Error("PANIC recovered in scheduled import",
			zap.String("source", string(job.Source)), zap.Any("panic", r))
	}
}
