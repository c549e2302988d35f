// Package scheduler содержит планировщик периодических проверок плейлистов.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"trackcourier/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper определяет интерфейс полного обхода плейлистов
type Sweeper interface {
	RunAll(ctx context.Context) error
}

// Scheduler запускает обход всех плейлистов по расписанию.
// Ошибка обхода не роняет процесс: планировщик пропускает тики
// до конца периода охлаждения и пробует снова.
type Scheduler struct {
	sweeper Sweeper
	cron    *cron.Cron
	cfg     config.SchedulerConfig
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	running       bool
	lastSweep     time.Time
	cooldownUntil time.Time
}

// New создает новый планировщик проверок
func New(sweeper Sweeper, cfg config.SchedulerConfig, logger *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		sweeper: sweeper,
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(newCronLogger(logger))),
		),
		cfg:    cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start запускает планировщик и выполняет первый обход сразу
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	spec := fmt.Sprintf("@every %s", s.cfg.CheckInterval)
	if _, err := s.cron.AddFunc(spec, s.runSweep); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("Scheduler started",
		zap.Duration("check_interval", s.cfg.CheckInterval))

	// Первый обход сразу после старта
	go s.runSweep()

	return nil
}

// Stop останавливает планировщик
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	cronCtx := s.cron.Stop()
	<-cronCtx.Done()
	s.running = false

	s.logger.Info("Scheduler stopped")
}

// runSweep выполняет один обход всех плейлистов
func (s *Scheduler) runSweep() {
	s.mu.Lock()
	if time.Now().Before(s.cooldownUntil) {
		until := s.cooldownUntil
		s.mu.Unlock()
		s.logger.Warn("Skipping sweep, cooling down after failure",
			zap.Time("cooldown_until", until))
		return
	}
	s.mu.Unlock()

	s.logger.Info("Starting scheduled sweep")

	if err := s.sweeper.RunAll(s.ctx); err != nil {
		s.mu.Lock()
		s.cooldownUntil = time.Now().Add(s.cfg.FailureCooldown)
		s.mu.Unlock()

		s.logger.Error("Sweep failed, will retry after cooldown",
			zap.Duration("cooldown", s.cfg.FailureCooldown),
			zap.Error(err))
		return
	}

	s.mu.Lock()
	s.lastSweep = time.Now()
	s.mu.Unlock()

	s.logger.Info("Scheduled sweep complete")
}

// TriggerSweep запускает внеочередной обход всех плейлистов.
// Блокировки движка защищают от пересечения с плановым обходом.
func (s *Scheduler) TriggerSweep(ctx context.Context) error {
	return s.sweeper.RunAll(ctx)
}

// LastSweep возвращает время последнего успешного обхода
func (s *Scheduler) LastSweep() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSweep
}

// cronLogger адаптирует zap к интерфейсу cron.Logger
type cronLogger struct {
	logger *zap.Logger
}

func newCronLogger(logger *zap.Logger) cronLogger {
	return cronLogger{logger: logger}
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, zap.Any("details", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, zap.Error(err), zap.Any("details", keysAndValues))
}
