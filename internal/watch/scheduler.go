package watch

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the watcher on a fixed interval. Overlapping polls are
// skipped.
type Scheduler struct {
	cron    *cron.Cron
	watcher *Watcher
	timeout time.Duration
	log     *slog.Logger
}

// NewScheduler registers the watcher to run every interval. Each poll gets
// a deadline of one interval.
func NewScheduler(w *Watcher, interval time.Duration, log *slog.Logger) (*Scheduler, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	s := &Scheduler{
		cron:    c,
		watcher: w,
		timeout: interval,
		log:     log,
	}

	if _, err := c.AddFunc("@every "+interval.String(), s.run); err != nil {
		return nil, err
	}

	return s, nil
}

// Start begins running scheduled polls.
func (s *Scheduler) Start() {
	s.log.Info("watcher started")
	s.cron.Start()
}

// Stop gracefully stops the scheduler; the returned context is done once
// the running poll has finished.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("watcher stopping")
	return s.cron.Stop()
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.watcher.Poll(ctx)
	if err != nil {
		s.log.Error("seller-event poll failed", "error", err)
		return
	}
	if n > 0 {
		s.log.Info("seller events forwarded", "count", n)
	}
}
