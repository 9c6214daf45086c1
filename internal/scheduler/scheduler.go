// Package scheduler периодически закрывает прием предложений по тендерам
// с истекшим сроком.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Sweeper: операция, которую запускает планировщик; возвращает число
// закрытых тендеров.
type Sweeper interface {
	CloseExpired(ctx context.Context) (int, error)
}

type DeadlineScheduler struct {
	sweeper Sweeper
	log     *logrus.Logger
	cron    *cron.Cron
	spec    string
	timeout time.Duration

	mu      sync.Mutex
	running bool
}

func New(sweeper Sweeper, spec string, log *logrus.Logger) *DeadlineScheduler {
	return &DeadlineScheduler{
		sweeper: sweeper,
		log:     log,
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		spec:    spec,
		timeout: time.Minute,
	}
}

// Start регистрирует задачу и запускает cron.
func (s *DeadlineScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler is already running")
	}
	if _, err := s.cron.AddFunc(s.spec, s.RunOnce); err != nil {
		return fmt.Errorf("invalid deadline sweep schedule %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.running = true
	s.log.WithField("spec", s.spec).Info("deadline scheduler started")
	return nil
}

// Stop останавливает cron и дожидается текущего прогона.
func (s *DeadlineScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.log.Info("deadline scheduler stopped")
}

func (s *DeadlineScheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	closed, err := s.sweeper.CloseExpired(ctx)
	if err != nil {
		s.log.WithError(err).Error("deadline sweep failed")
		return
	}
	if closed > 0 {
		s.log.WithField("closed", closed).Info("expired tenders moved to review")
	}
}
