package worker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/request-desk/internal/config"
	"github.com/spec-kit/request-desk/internal/domain"
	"github.com/spec-kit/request-desk/internal/observability"
	"github.com/spec-kit/request-desk/internal/service"
	"github.com/spec-kit/request-desk/internal/worktime"
)

// Job names accepted by RunOnce.
const (
	JobArchiveSweep = "archive-sweep"
	JobStatistics   = "statistics"
	JobBilling      = "billing"
)

const jobTimeout = 10 * time.Minute

var (
	ErrUnknownJob = errors.New("unknown job")
	ErrJobRunning = errors.New("job already running")
)

// ArchiveSweeper archives terminal requests left behind by failed archivals.
type ArchiveSweeper interface {
	SweepTerminal(ctx context.Context) (int, error)
}

// StatisticsRecalculator recomputes a month of statistics.
type StatisticsRecalculator interface {
	RecalculateAll(ctx context.Context, year, month int, actor domain.Actor) (*service.RecalculateResult, error)
}

// BillingGenerator builds billing periods on both aggregation axes.
type BillingGenerator interface {
	GenerateForAllClients(ctx context.Context, year, month int, actor domain.Actor) (*service.BillingRunResult, error)
	GenerateAutomatic(ctx context.Context, year, month int, actor domain.Actor) (*service.BillingRunResult, error)
}

// Jobs bundles the services driven by the scheduler.
type Jobs struct {
	Archive    ArchiveSweeper
	Statistics StatisticsRecalculator
	Billing    BillingGenerator
}

type job struct {
	name string
	spec string
	run  func(ctx context.Context) error
	mu   sync.Mutex
}

// Scheduler runs the reconciliation jobs on cron specs. A job never overlaps
// itself, whether it was triggered by cron or by RunOnce.
type Scheduler struct {
	cron    *cron.Cron
	jobs    map[string]*job
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time
	loc     *time.Location
	enabled bool

	mu   sync.Mutex
	base context.Context
}

// NewScheduler wires the jobs with the configured specs.
func NewScheduler(cfg config.SchedulerConfig, jobs Jobs, logger *zap.Logger, metrics *observability.Metrics, loc *time.Location) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	logger = logger.With(zap.String("component", "scheduler"))
	cronLogger := zapCronLogger{sugar: logger.Sugar()}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		jobs:    make(map[string]*job),
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
		loc:     loc,
		enabled: cfg.Enabled,
		base:    context.Background(),
	}

	if jobs.Archive != nil {
		s.add(JobArchiveSweep, cfg.ArchiveSweepSpec, func(ctx context.Context) error {
			archived, err := jobs.Archive.SweepTerminal(ctx)
			s.logger.Info("archive sweep finished", zap.Int("archived", archived))
			return err
		})
	}
	if jobs.Statistics != nil {
		s.add(JobStatistics, cfg.StatisticsSpec, func(ctx context.Context) error {
			year, month := s.currentMonth()
			_, err := jobs.Statistics.RecalculateAll(ctx, year, month, domain.SystemActor)
			return err
		})
	}
	if jobs.Billing != nil {
		s.add(JobBilling, cfg.BillingSpec, func(ctx context.Context) error {
			year, month := s.previousMonth()
			// resolution-based totals run second and win on shared periods
			_, createdErr := jobs.Billing.GenerateForAllClients(ctx, year, month, domain.SystemActor)
			_, resolvedErr := jobs.Billing.GenerateAutomatic(ctx, year, month, domain.SystemActor)
			return errors.Join(createdErr, resolvedErr)
		})
	}
	return s
}

func (s *Scheduler) add(name, spec string, run func(ctx context.Context) error) {
	s.jobs[name] = &job{name: name, spec: spec, run: run}
}

// Names lists the registered jobs.
func (s *Scheduler) Names() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start registers the cron entries and starts the cron loop. Jobs triggered by
// cron derive their context from ctx. It is a no-op when scheduling is disabled.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.enabled {
		s.logger.Info("scheduler disabled")
		return nil
	}
	s.mu.Lock()
	s.base = ctx
	s.mu.Unlock()

	for _, name := range s.Names() {
		j := s.jobs[name]
		if _, err := s.cron.AddFunc(j.spec, func() { _ = s.execute(s.baseContext(), j) }); err != nil {
			return fmt.Errorf("schedule %s %q: %w", j.name, j.spec, err)
		}
		s.logger.Info("job scheduled", zap.String("job", j.name), zap.String("spec", j.spec))
	}
	s.cron.Start()
	return nil
}

// Stop stops triggering jobs and waits for running ones until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce executes a job immediately and returns its error.
func (s *Scheduler) RunOnce(ctx context.Context, name string) error {
	j, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.execute(ctx, j)
}

func (s *Scheduler) execute(ctx context.Context, j *job) error {
	if !j.mu.TryLock() {
		s.metrics.RecordJobSkipped(j.name)
		s.logger.Warn("job skipped, previous run still active", zap.String("job", j.name))
		return fmt.Errorf("%w: %s", ErrJobRunning, j.name)
	}
	defer j.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	started := s.now()
	err := j.run(ctx)
	elapsed := s.now().Sub(started)
	s.metrics.RecordJob(j.name, started, elapsed, err)

	if err != nil {
		s.logger.Error("job failed", zap.String("job", j.name), zap.Duration("duration", elapsed), zap.Error(err))
		return err
	}
	s.logger.Info("job finished", zap.String("job", j.name), zap.Duration("duration", elapsed))
	return nil
}

func (s *Scheduler) baseContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base
}

func (s *Scheduler) currentMonth() (int, int) {
	now := s.now().In(s.loc)
	return now.Year(), int(now.Month())
}

func (s *Scheduler) previousMonth() (int, int) {
	year, month := worktime.PreviousMonth(s.now().In(s.loc))
	return year, int(month)
}

// zapCronLogger adapts zap to cron.Logger.
type zapCronLogger struct {
	sugar *zap.SugaredLogger
}

func (l zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
