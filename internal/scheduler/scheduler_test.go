package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"trackcourier/internal/config"

	"go.uber.org/zap"
)

// fakeSweeper считает обходы и может падать
type fakeSweeper struct {
	mu    sync.Mutex
	runs  int
	err   error
	done  chan struct{}
	first sync.Once
}

func newFakeSweeper(err error) *fakeSweeper {
	return &fakeSweeper{err: err, done: make(chan struct{})}
}

func (s *fakeSweeper) RunAll(ctx context.Context) error {
	s.mu.Lock()
	s.runs++
	s.mu.Unlock()
	s.first.Do(func() { close(s.done) })
	return s.err
}

func (s *fakeSweeper) runCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

func testConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		CheckInterval:   time.Hour,
		FailureCooldown: time.Hour,
	}
}

func TestScheduler_StartRunsImmediateSweep(t *testing.T) {
	sweeper := newFakeSweeper(nil)
	s := New(sweeper, testConfig(), zap.NewNop())

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	select {
	case <-sweeper.done:
	case <-time.After(5 * time.Second):
		t.Fatal("immediate sweep did not run")
	}

	// Успешный обход фиксирует время
	deadline := time.Now().Add(time.Second)
	for s.LastSweep().IsZero() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if s.LastSweep().IsZero() {
		t.Error("LastSweep() is zero after successful sweep")
	}
}

func TestScheduler_DoubleStartRejected(t *testing.T) {
	s := New(newFakeSweeper(nil), testConfig(), zap.NewNop())

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	if err := s.Start(); err == nil {
		t.Error("second Start() should fail")
	}
}

func TestScheduler_FailureTriggersCooldown(t *testing.T) {
	sweeper := newFakeSweeper(errors.New("catalog down"))
	s := New(sweeper, testConfig(), zap.NewNop())

	// Прямой вызов, без cron
	s.runSweep()
	if got := sweeper.runCount(); got != 1 {
		t.Fatalf("runs = %d, want 1", got)
	}
	if s.LastSweep() != (time.Time{}) {
		t.Error("LastSweep() set after failed sweep")
	}

	// Во время охлаждения обходы пропускаются
	s.runSweep()
	if got := sweeper.runCount(); got != 1 {
		t.Errorf("runs during cooldown = %d, want 1", got)
	}

	// После охлаждения обходы возобновляются
	s.mu.Lock()
	s.cooldownUntil = time.Now().Add(-time.Minute)
	s.mu.Unlock()

	s.runSweep()
	if got := sweeper.runCount(); got != 2 {
		t.Errorf("runs after cooldown = %d, want 2", got)
	}
}

func TestScheduler_SuccessClearsNothing(t *testing.T) {
	sweeper := newFakeSweeper(nil)
	s := New(sweeper, testConfig(), zap.NewNop())

	s.runSweep()
	if s.LastSweep().IsZero() {
		t.Error("LastSweep() is zero after successful sweep")
	}

	// Следующий обход не блокируется
	s.runSweep()
	if got := sweeper.runCount(); got != 2 {
		t.Errorf("runs = %d, want 2", got)
	}
}

func TestScheduler_TriggerSweep(t *testing.T) {
	sweeper := newFakeSweeper(nil)
	s := New(sweeper, testConfig(), zap.NewNop())

	if err := s.TriggerSweep(context.Background()); err != nil {
		t.Fatalf("TriggerSweep() error = %v", err)
	}
	if got := sweeper.runCount(); got != 1 {
		t.Errorf("runs = %d, want 1", got)
	}
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	s := New(newFakeSweeper(nil), testConfig(), zap.NewNop())

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	s.Stop()
	s.Stop()
}
