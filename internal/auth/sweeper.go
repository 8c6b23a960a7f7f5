package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultSweepInterval is how often expired session rows are deleted.
const DefaultSweepInterval = time.Hour

// Sweeper periodically deletes expired session rows so the sessions table
// does not grow without bound.
type Sweeper struct {
	store    Store
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSweeper creates a sweeper with the given interval. A non-positive
// interval falls back to DefaultSweepInterval.
func NewSweeper(s Store, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{store: s, interval: interval, logger: logger}
}

// Start begins the sweep loop. It sweeps once immediately, then on each tick.
func (s *Sweeper) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the sweep loop and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Sweeper) run(ctx context.Context) {
	s.sweepOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	n, err := s.store.DeleteExpiredSessions(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error("session sweep failed", "err", err)
		return
	}
	if n > 0 {
		s.logger.Info("expired sessions deleted", "count", n)
	}
}
