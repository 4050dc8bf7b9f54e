package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Scheduler runs the delivery poller on a fixed interval using gocron. One
// instance exists per bot process.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	interval  time.Duration
	poller    *Poller
	mu        sync.Mutex
	running   bool
}

// NewScheduler creates the scheduler for one bot's delivery poller.
func NewScheduler(logger *slog.Logger, interval time.Duration, poller *Poller) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create gocron scheduler: %w", err)
	}
	return &Scheduler{
		scheduler: s,
		logger:    logger.With("component", "scheduler"),
		interval:  interval,
		poller:    poller,
	}, nil
}

// Start registers the delivery-poll job and starts the scheduler's internal
// ticking. ctx is handed to every poll run so in-flight store and Telegram
// calls are cancelled on shutdown.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(
			func(runCtx context.Context) {
				start := time.Now()
				if err := s.poller.Run(runCtx); err != nil {
					s.logger.Error("delivery cycle failed", "error", err)
					return
				}
				s.logger.Debug("delivery cycle finished", "duration", time.Since(start))
			},
			ctx,
		),
		gocron.WithName("delivery-poll"),
		// A slow cycle must delay the next one, never overlap it.
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule delivery poll: %w", err)
	}

	s.scheduler.Start()
	s.running = true
	s.logger.Info("scheduler started", "interval", s.interval)
	return nil
}

// Stop gracefully stops the scheduler, waiting for an in-flight poll run to
// finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	err := s.scheduler.Shutdown()
	s.running = false
	if err != nil {
		return fmt.Errorf("scheduler shutdown: %w", err)
	}
	s.logger.Info("scheduler stopped")
	return nil
}
