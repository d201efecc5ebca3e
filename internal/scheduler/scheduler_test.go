package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type countingTask struct {
	name  string
	runs  atomic.Int32
	block chan struct{} // when non-nil, Run waits until closed
	err   error
}

func (t *countingTask) Name() string { return t.name }

func (t *countingTask) Run(ctx context.Context) error {
	t.runs.Add(1)
	if t.block != nil {
		<-t.block
	}
	return t.err
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	t.Parallel()
	s := New(zerolog.Nop())
	if err := s.Register(&countingTask{name: "a"}, time.Hour); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := s.Register(&countingTask{name: "a"}, time.Hour); !errors.Is(err, ErrDuplicateTask) {
		t.Fatalf("err = %v, want ErrDuplicateTask", err)
	}
	if err := s.Register(&countingTask{name: "b"}, 0); err == nil {
		t.Fatal("zero interval should be rejected")
	}
}

func TestRunNowExecutesAndRecordsHistory(t *testing.T) {
	t.Parallel()
	s := New(zerolog.Nop())
	task := &countingTask{name: "clan_info:#AAA"}
	if err := s.Register(task, time.Hour); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := s.RunNow("clan_info:#AAA"); err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if got := task.runs.Load(); got != 1 {
		t.Fatalf("runs = %d, want 1", got)
	}

	hist := s.History()
	if len(hist) != 1 {
		t.Fatalf("history = %+v", hist)
	}
	if hist[0].Task != "clan_info:#AAA" || hist[0].ID == "" || hist[0].Error != "" {
		t.Fatalf("record = %+v", hist[0])
	}

	if err := s.RunNow("nope"); !errors.Is(err, ErrUnknownTask) {
		t.Fatalf("err = %v, want ErrUnknownTask", err)
	}
}

func TestRunRecordsTaskError(t *testing.T) {
	t.Parallel()
	s := New(zerolog.Nop())
	task := &countingTask{name: "t", err: errors.New("api down")}
	if err := s.Register(task, time.Hour); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := s.RunNow("t"); err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	hist := s.History()
	if len(hist) != 1 || hist[0].Error != "api down" {
		t.Fatalf("history = %+v", hist)
	}
}

func TestOverlappingRunIsSkipped(t *testing.T) {
	t.Parallel()
	s := New(zerolog.Nop())
	task := &countingTask{name: "slow", block: make(chan struct{})}
	if err := s.Register(task, time.Hour); err != nil {
		t.Fatalf("Register: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.RunNow("slow")
	}()

	// Wait for the first run to be inside Run.
	deadline := time.Now().Add(2 * time.Second)
	for task.runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if task.runs.Load() != 1 {
		t.Fatal("first run never started")
	}

	// Second concurrent run must be skipped, not queued.
	if err := s.RunNow("slow"); err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if got := task.runs.Load(); got != 1 {
		t.Fatalf("overlapping run executed, runs = %d", got)
	}

	close(task.block)
	wg.Wait()
}

func TestPanicIsRecoveredIntoHistory(t *testing.T) {
	t.Parallel()
	s := New(zerolog.Nop())
	if err := s.Register(panicTask{}, time.Hour); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := s.RunNow("boom"); err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	hist := s.History()
	if len(hist) != 1 || hist[0].Error == "" {
		t.Fatalf("panic not recorded: %+v", hist)
	}
}

type panicTask struct{}

func (panicTask) Name() string                  { return "boom" }
func (panicTask) Run(ctx context.Context) error { panic("kaboom") }

func TestRescheduleDuringRunNowLeavesOneEntry(t *testing.T) {
	t.Parallel()
	s := New(zerolog.Nop())
	task := &countingTask{name: "slow", block: make(chan struct{})}
	if err := s.Register(task, time.Hour); err != nil {
		t.Fatalf("Register: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.RunNow("slow")
	}()

	deadline := time.Now().Add(2 * time.Second)
	for task.runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if task.runs.Load() != 1 {
		t.Fatal("run never started")
	}

	// Interval change while the entry is held out by RunNow.
	if err := s.Reschedule("slow", 30*time.Minute); err != nil {
		t.Fatalf("Reschedule: %v", err)
	}

	close(task.block)
	wg.Wait()

	if entries := s.c.Entries(); len(entries) != 1 {
		t.Fatalf("cron entries = %d, want 1", len(entries))
	}
	s.mu.Lock()
	every := s.entries["slow"].every
	s.mu.Unlock()
	if every != 30*time.Minute {
		t.Fatalf("interval = %v, want 30m", every)
	}
}

func TestRescheduleUnknownAndNoop(t *testing.T) {
	t.Parallel()
	s := New(zerolog.Nop())
	if err := s.Reschedule("missing", time.Hour); !errors.Is(err, ErrUnknownTask) {
		t.Fatalf("err = %v, want ErrUnknownTask", err)
	}
	task := &countingTask{name: "t"}
	if err := s.Register(task, time.Hour); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := s.Reschedule("t", time.Hour); err != nil {
		t.Fatalf("same-interval reschedule should be a no-op: %v", err)
	}
	if err := s.Reschedule("t", 2*time.Hour); err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
}
