package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tazhate/calclient/internal/domain"
	"github.com/tazhate/calclient/internal/logger"
)

// Refresher reloads the selected calendar
type Refresher interface {
	Reload(ctx context.Context) error
}

// Scheduler periodically refetches the selected calendar's events
type Scheduler struct {
	cron      *cron.Cron
	spec      string
	refresher Refresher
	log       logger.Logger
	timeout   time.Duration

	// AfterRefresh runs after each successful refresh
	AfterRefresh func(ctx context.Context)
}

func New(spec string, location *time.Location, refresher Refresher, log logger.Logger) *Scheduler {
	if location == nil {
		location = time.UTC
	}
	if log == nil {
		log = logger.Default()
	}
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(location)),
		spec:      spec,
		refresher: refresher,
		log:       log,
		timeout:   time.Minute,
	}
}

// Start schedules the refresh job and blocks until ctx is done
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.Refresh(ctx) }); err != nil {
		return fmt.Errorf("add refresh job: %w", err)
	}

	s.cron.Start()
	s.log.Info("scheduler started", "spec", s.spec)

	<-ctx.Done()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}

// Refresh runs one refresh. Having no calendar selected is not an error.
func (s *Scheduler) Refresh(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ctx = logger.WithContext(ctx, s.log)

	err := s.refresher.Reload(ctx)
	switch {
	case err == nil:
		s.log.Debug("calendar refreshed")
		if s.AfterRefresh != nil {
			s.AfterRefresh(ctx)
		}
	case errors.Is(err, domain.ErrNoCalendar):
		s.log.Debug("refresh skipped: no calendar selected")
	case errors.Is(err, domain.ErrCanceled):
		s.log.Debug("refresh superseded")
	default:
		s.log.Warn("refresh failed", "error", err)
	}
}
