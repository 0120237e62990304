package correlator

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// sweeper periodically drops pending entries that never completed.
type sweeper struct {
	table    *PendingTable
	schedule string
	maxAge   time.Duration
	onSweep  func(removed int)

	cron    *cron.Cron
	mu      sync.Mutex
	logger  *slog.Logger
	running bool
}

func newSweeper(table *PendingTable, schedule string, maxAge time.Duration, onSweep func(int)) *sweeper {
	return &sweeper{
		table:    table,
		schedule: schedule,
		maxAge:   maxAge,
		onSweep:  onSweep,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "traffic.sweeper"),
	}
}

// start schedules the sweep. An empty schedule or max age disables it.
func (s *sweeper) start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" || s.maxAge <= 0 {
		s.logger.Info("pending sweep not configured, skipping")
		return nil
	}
	if s.running {
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}
	if _, err := s.cron.AddFunc(s.schedule, s.run); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("pending sweep started",
		"schedule", s.schedule,
		"max_age", s.maxAge,
	)
	return nil
}

func (s *sweeper) run() {
	removed := s.table.Sweep(time.Now().Add(-s.maxAge))
	if removed > 0 {
		s.logger.Info("swept stale pending requests", "removed", removed)
	}
	if s.onSweep != nil {
		s.onSweep(removed)
	}
}

// stop stops the scheduler and waits for a running sweep to finish.
func (s *sweeper) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.logger.Info("pending sweep stopped")
	}
}
