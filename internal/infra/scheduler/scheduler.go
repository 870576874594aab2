package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"pals-portal/internal/infra/metrics"
)

// Refresher is the job the scheduler repeats.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler periodically runs a Refresher. The first run happens on Start.
type Scheduler struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	job      Refresher
	log      *zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler runs job every interval. If interval <= 0 it defaults to 30 minutes.
func NewScheduler(name string, interval time.Duration, job Refresher, logger *zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &Scheduler{
		name:     name,
		interval: interval,
		timeout:  30 * time.Second,
		job:      job,
		log:      logger,
		done:     make(chan struct{}),
	}
}

// Start begins the loop in a background goroutine. Calling Start twice has no effect.
func (s *Scheduler) Start(parentCtx context.Context) {
	if s.ctx != nil {
		return
	}
	s.ctx, s.cancel = context.WithCancel(parentCtx)
	go s.loop()
}

func (s *Scheduler) loop() {
	ticker := time.NewTicker(s.interval)
	defer func() {
		ticker.Stop()
		close(s.done)
	}()

	s.log.Info().Str("job", s.name).Dur("interval", s.interval).Msg("scheduler started")
	s.runOnce()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runOnce()
		}
	}
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	start := time.Now()
	if err := s.job.Refresh(ctx); err != nil {
		metrics.IncScheduledRun(s.name, "failed")
		s.log.Warn().Err(err).Str("job", s.name).Msg("scheduled run failed")
		return
	}
	metrics.IncScheduledRun(s.name, "ok")
	s.log.Debug().Str("job", s.name).Dur("took", time.Since(start)).Msg("scheduled run done")
}

// Stop cancels the loop and waits for it to finish. It is idempotent.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.ctx = nil
	s.cancel = nil
	s.done = make(chan struct{})
	s.log.Info().Str("job", s.name).Msg("scheduler stopped")
}
