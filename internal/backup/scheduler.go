package backup

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mmeshcher/paybook/internal/model"
)

const jobTimeout = 5 * time.Minute

// Job выполняет одно резервное копирование.
type Job func(ctx context.Context) (string, error)

// Scheduler запускает Job по расписанию, заданному периодичностью из настроек.
type Scheduler struct {
	mu     sync.Mutex
	cron   *cron.Cron
	entry  cron.EntryID
	spec   string
	job    Job
	logger *zap.Logger
}

// NewScheduler создаёт планировщик. Пока Reschedule не вызван, задач нет.
func NewScheduler(job Job, logger *zap.Logger) *Scheduler {
	l := cronLogger{logger.Sugar()}
	return &Scheduler{
		cron:   cron.New(cron.WithLogger(l), cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l))),
		job:    job,
		logger: logger,
	}
}

// Reschedule заменяет расписание задачи.
func (s *Scheduler) Reschedule(interval model.BackupInterval) error {
	spec, err := Spec(interval)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entry != 0 {
		s.cron.Remove(s.entry)
		s.entry = 0
	}

	id, err := s.cron.AddFunc(spec, s.run)
	if err != nil {
		return err
	}
	s.entry = id
	s.spec = spec

	s.logger.Info("backup schedule updated", zap.String("spec", spec))
	return nil
}

// Spec возвращает текущее расписание cron или пустую строку.
func (s *Scheduler) Spec() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spec
}

// Run запускает планировщик и останавливает его при отмене ctx, дожидаясь текущей задачи.
func (s *Scheduler) Run(ctx context.Context) {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	path, err := s.job(ctx)
	if err != nil {
		s.logger.Error("scheduled backup failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduled backup created", zap.String("path", path))
}

type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
