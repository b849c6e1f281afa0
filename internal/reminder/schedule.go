package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"

	"github.com/vbonduro/plantpal/internal/logging"
	"github.com/vbonduro/plantpal/internal/metrics"
	"github.com/vbonduro/plantpal/internal/retry"
)

const (
	tagDaily      = "daily"
	tagDailyRetry = "daily-retry"
	tagImmediate  = "immediate"
)

// Runner performs one sweep. *Sweeper implements it.
type Runner interface {
	Run(ctx context.Context) (Result, error)
}

// NextReminderAt returns the next wall-clock occurrence of hour:00 in now's
// location that is strictly after now.
func NextReminderAt(now time.Time, hour int) time.Time {
	target := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !target.After(now) {
		target = time.Date(now.Year(), now.Month(), now.Day()+1, hour, 0, 0, 0, now.Location())
	}
	return target
}

// Scheduler runs sweeps on gocron: a daily job at a fixed local hour plus
// one-off immediate sweeps requested after every plant change. Failed sweeps
// are re-run according to the retry policy.
type Scheduler struct {
	scheduler gocron.Scheduler
	runner    Runner
	policy    retry.Policy
	clock     clockwork.Clock
	recorder  metrics.Recorder
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	daily gocron.Job
}

type SchedulerOptions struct {
	Location *time.Location
	Policy   retry.Policy
	Clock    clockwork.Clock
	Recorder metrics.Recorder
	Logger   *slog.Logger
}

func NewScheduler(runner Runner, opts SchedulerOptions) (*Scheduler, error) {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Policy == (retry.Policy{}) {
		opts.Policy = retry.DefaultPolicy()
	}
	if err := opts.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry policy: %w", err)
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s, err := gocron.NewScheduler(
		gocron.WithLocation(opts.Location),
		gocron.WithClock(opts.Clock),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: s,
		runner:    runner,
		policy:    opts.Policy,
		clock:     opts.Clock,
		recorder:  opts.Recorder,
		logger:    opts.Logger,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

func (s *Scheduler) Start() {
	s.logger.Info("Starting reminder scheduler")
	s.scheduler.Start()
}

// Stop cancels in-flight sweeps and waits for the scheduler to shut down.
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping reminder scheduler")
	s.cancel()
	return s.scheduler.Shutdown()
}

// ScheduleDaily registers the daily sweep at hour:00. An existing daily job
// is kept as is.
func (s *Scheduler) ScheduleDaily(hour int) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("reminder hour must be between 0 and 23, got %d", hour)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.daily != nil {
		return nil
	}

	job, err := s.scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(uint(hour), 0, 0))),
		gocron.NewTask(s.run, tagDaily, 0),
		gocron.WithName("daily-reminder-sweep"),
		gocron.WithTags(tagDaily),
	)
	if err != nil {
		return fmt.Errorf("failed to create daily reminder job: %w", err)
	}
	s.daily = job
	return nil
}

// NextDailyRun reports when the daily sweep fires next. It is only
// meaningful once the scheduler has started.
func (s *Scheduler) NextDailyRun() (time.Time, error) {
	s.mu.Lock()
	job := s.daily
	s.mu.Unlock()
	if job == nil {
		return time.Time{}, fmt.Errorf("daily reminder not scheduled")
	}
	next, err := job.NextRun()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get next daily run: %w", err)
	}
	return next, nil
}

// TriggerNow requests an immediate sweep. A pending immediate sweep or retry
// is replaced by the new one.
func (s *Scheduler) TriggerNow() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scheduler.RemoveByTags(tagImmediate, tagDailyRetry)
	if _, err := s.scheduler.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartImmediately()),
		gocron.NewTask(s.run, tagImmediate, 0),
		gocron.WithName("immediate-reminder-sweep"),
		gocron.WithTags(tagImmediate),
	); err != nil {
		s.logger.Error("failed to enqueue immediate reminder sweep", logging.Error(err))
	}
}

func (s *Scheduler) run(kind string, attempt int) {
	logger := s.logger.With(logging.Job(kind), logging.Attempt(attempt))

	_, err := s.runner.Run(s.ctx)
	if err == nil || s.ctx.Err() != nil {
		return
	}

	retryN := attempt + 1
	if !s.policy.Allows(retryN) {
		logger.Error("reminder sweep failed, retries exhausted", logging.Error(err))
		return
	}

	delay := s.policy.Delay(retryN)
	logger.Warn("reminder sweep failed, retrying", logging.Error(err), "delay", delay.String())
	s.recorder.IncSweepRetry()

	tag := tagImmediate
	if kind != tagImmediate {
		tag = tagDailyRetry
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.scheduler.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(s.clock.Now().Add(delay))),
		gocron.NewTask(s.run, kind, retryN),
		gocron.WithName(fmt.Sprintf("%s-reminder-retry-%d", kind, retryN)),
		gocron.WithTags(tag),
	); err != nil {
		logger.Error("failed to schedule reminder retry", logging.Error(err))
	}
}
