// Package scheduler runs the tracker tasks at fixed intervals. Tasks never
// overlap themselves; a run that is still going when the next tick fires
// makes the tick a no-op.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Task is one schedulable unit of work.
type Task interface {
	Name() string
	Run(ctx context.Context) error
}

// RunRecord is one finished (or panicked) task run.
type RunRecord struct {
	ID       string
	Task     string
	Started  time.Time
	Duration time.Duration
	Error    string
}

var (
	ErrDuplicateTask = errors.New("scheduler: task already registered")
	ErrUnknownTask   = errors.New("scheduler: unknown task")
)

const defaultHistorySize = 100

type registration struct {
	task  Task
	every time.Duration
	id    cron.EntryID
	// pending is true while RunNow holds the cron entry removed; whoever
	// changes the interval in that window must leave re-registration to
	// RunNow or a duplicate entry leaks.
	pending bool

	mu      sync.Mutex
	running bool
}

// Service wraps a cron runner. Register tasks before or after Start; Stop
// waits for in-flight runs.
type Service struct {
	log zerolog.Logger
	c   *cron.Cron

	mu      sync.Mutex
	entries map[string]*registration
	history []RunRecord
	histMax int
	runCtx  context.Context
}

func New(log zerolog.Logger) *Service {
	return &Service{
		log:     log,
		c:       cron.New(),
		entries: map[string]*registration{},
		histMax: defaultHistorySize,
	}
}

// Register schedules task to run every `every`. Intervals below a second are
// clamped by the cron runner.
func (s *Service) Register(task Task, every time.Duration) error {
	if every <= 0 {
		return fmt.Errorf("scheduler: task %s: interval must be positive", task.Name())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[task.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, task.Name())
	}
	reg := &registration{task: task, every: every}
	s.scheduleLocked(reg)
	s.entries[task.Name()] = reg
	s.log.Info().Str("task", task.Name()).Dur("every", every).Msg("task registered")
	return nil
}

func (s *Service) scheduleLocked(reg *registration) {
	reg.id = s.c.Schedule(cron.Every(reg.every), cron.FuncJob(func() {
		s.execute(reg)
	}))
}

// Reschedule changes a task's interval, resetting its timer to the full new
// interval.
func (s *Service) Reschedule(name string, every time.Duration) error {
	if every <= 0 {
		return fmt.Errorf("scheduler: task %s: interval must be positive", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.entries[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	if reg.every == every {
		return nil
	}
	reg.every = every
	if !reg.pending {
		s.c.Remove(reg.id)
		s.scheduleLocked(reg)
	}
	s.log.Info().Str("task", name).Dur("every", every).Msg("task rescheduled")
	return nil
}

// Start begins firing schedules. ctx is handed to every task run.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	s.runCtx = ctx
	s.mu.Unlock()
	s.c.Start()
}

// Stop halts the schedule and waits for in-flight runs, bounded by ctx.
func (s *Service) Stop(ctx context.Context) error {
	stopped := s.c.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow runs the named task immediately and resets its timer, so the next
// scheduled run happens a full interval from now. The run is synchronous.
func (s *Service) RunNow(name string) error {
	s.mu.Lock()
	reg, ok := s.entries[name]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	s.c.Remove(reg.id)
	reg.pending = true
	s.mu.Unlock()

	s.execute(reg)

	// reg.every may have changed while the entry was out; scheduleLocked
	// reads it under the lock, so the run resets to the current interval.
	s.mu.Lock()
	reg.pending = false
	s.scheduleLocked(reg)
	s.mu.Unlock()
	return nil
}

// Names returns the registered task names.
func (s *Service) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for name := range s.entries {
		out = append(out, name)
	}
	return out
}

// History returns a copy of the recent run records, oldest first.
func (s *Service) History() []RunRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RunRecord(nil), s.history...)
}

func (s *Service) execute(reg *registration) {
	reg.mu.Lock()
	if reg.running {
		reg.mu.Unlock()
		s.log.Debug().Str("task", reg.task.Name()).Msg("previous run still active, skipping")
		return
	}
	reg.running = true
	reg.mu.Unlock()
	defer func() {
		reg.mu.Lock()
		reg.running = false
		reg.mu.Unlock()
	}()

	s.mu.Lock()
	ctx := s.runCtx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	runID := uuid.NewString()
	log := s.log.With().Str("task", reg.task.Name()).Str("run", runID).Logger()
	start := time.Now()
	log.Info().Msg("task started")

	var runErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				runErr = fmt.Errorf("panic: %v", r)
				log.Error().Interface("panic", r).Str("stack", string(debug.Stack())).Msg("panic in task")
			}
		}()
		runErr = reg.task.Run(ctx)
	}()

	took := time.Since(start)
	if runErr != nil {
		log.Warn().Err(runErr).Dur("took", took).Msg("task failed")
	} else {
		log.Info().Dur("took", took).Msg("task finished")
	}
	s.appendHistory(RunRecord{ID: runID, Task: reg.task.Name(), Started: start, Duration: took, Error: errString(runErr)})
}

func (s *Service) appendHistory(rec RunRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, rec)
	if len(s.history) > s.histMax {
		s.history = s.history[len(s.history)-s.histMax:]
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
