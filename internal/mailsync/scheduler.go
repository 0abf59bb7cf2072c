package mailsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrSyncInProgress is returned when a sync is requested while one runs.
var ErrSyncInProgress = errors.New("sync already in progress")

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule reports whether expr is a usable five-field cron
// expression. An empty expression disables scheduling and is valid.
func ValidateSchedule(expr string) error {
	if expr == "" {
		return nil
	}
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// Status describes the scheduler's most recent activity.
type Status struct {
	Running   bool      `json:"running"`
	Schedule  string    `json:"schedule,omitempty"`
	LastRun   time.Time `json:"lastRun,omitempty"`
	NextRun   time.Time `json:"nextRun,omitempty"`
	LastError string    `json:"lastError,omitempty"`
}

// Scheduler runs a Syncer on a cron schedule and on demand, never more than
// one at a time. It is itself a Syncer.
type Scheduler struct {
	syncer Syncer
	cron   *cron.Cron
	logger *slog.Logger

	mu       sync.Mutex
	schedule string
	entry    cron.EntryID
	running  bool
	lastRun  time.Time
	lastErr  error

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(syncer Syncer, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		syncer: syncer,
		cron:   cron.New(cron.WithParser(parser)),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetSchedule replaces the cron schedule. An empty expression removes it.
func (s *Scheduler) SetSchedule(expr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entry != 0 {
		s.cron.Remove(s.entry)
		s.entry = 0
		s.schedule = ""
	}
	if expr == "" {
		return nil
	}

	id, err := s.cron.AddFunc(expr, s.runScheduled)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	s.entry = id
	s.schedule = expr
	s.logger.Info("scheduled mail sync", "schedule", expr)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule, cancels a running sync and waits for it.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.cancel()
	s.wg.Wait()
}

// Sync runs the wrapped syncer now.
func (s *Scheduler) Sync(ctx context.Context) (Result, error) {
	if !s.begin() {
		return Result{}, ErrSyncInProgress
	}
	return s.run(ctx)
}

func (s *Scheduler) runScheduled() {
	if !s.begin() {
		s.logger.Info("skipping scheduled sync, previous run still active")
		return
	}
	if _, err := s.run(s.ctx); err != nil {
		s.logger.Error("scheduled sync failed", "error", err)
	}
}

func (s *Scheduler) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	s.wg.Add(1)
	return true
}

func (s *Scheduler) run(ctx context.Context) (Result, error) {
	defer s.wg.Done()

	start := time.Now()
	res, err := s.syncer.Sync(ctx)

	s.mu.Lock()
	s.running = false
	s.lastRun = start
	s.lastErr = err
	s.mu.Unlock()

	if err != nil {
		return Result{}, err
	}
	s.logger.Info("mail sync finished", "duration", time.Since(start))
	return res, nil
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Running:  s.running,
		Schedule: s.schedule,
		LastRun:  s.lastRun,
	}
	if s.entry != 0 {
		st.NextRun = s.cron.Entry(s.entry).Next
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}
