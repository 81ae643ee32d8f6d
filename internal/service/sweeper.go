package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mentorloop/relationship-engine/pkg/logger"
)

// Sweeper runs the expiration pass on a timer, independent of client
// traffic. A failed tick is logged and retried on the next one; the pass is
// idempotent so overlapping invocations (timer plus the check-expired
// endpoint) are harmless.
type Sweeper struct {
	sessions *SessionService
	interval time.Duration
	timeout  time.Duration
	logger   *logger.Logger

	stopCh    chan struct{}
	doneCh    chan struct{}
	started   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewSweeper creates a sweeper ticking at interval, with a per-tick timeout.
func NewSweeper(sessions *SessionService, interval, timeout time.Duration, log *logger.Logger) *Sweeper {
	if interval < time.Second {
		interval = time.Second
	}
	return &Sweeper{
		sessions: sessions,
		interval: interval,
		timeout:  timeout,
		logger:   log,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the sweep loop. Safe to call from multiple goroutines;
// only the first call starts anything.
func (s *Sweeper) Start() {
	s.startOnce.Do(func() {
		s.started.Store(true)
		go s.loop()
	})
}

// Stop halts the loop and waits for an in-flight pass to finish.
func (s *Sweeper) Stop() {
	if !s.started.Load() {
		return
	}
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.doneCh
}

func (s *Sweeper) loop() {
	ticker := time.NewTicker(s.interval)
	defer func() { ticker.Stop(); close(s.doneCh) }()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.runOnce()
		}
	}
}

func (s *Sweeper) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.sessions.SweepExpired(ctx, time.Now().UTC()); err != nil {
		s.logger.Warn("sweep tick failed", zap.Error(err))
	}
}
