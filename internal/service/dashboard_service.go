package service

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tazhate/calclient/internal/domain"
)

// DashboardAPI is the part of the calendar client the dashboard reads
type DashboardAPI interface {
	ListMyCalendars(ctx context.Context) ([]domain.UserInCalendar, error)
	ListSharedCalendars(ctx context.Context) ([]domain.Calendar, error)
	ListEvents(ctx context.Context, calendarID string, opts domain.PageOptions) (*domain.Page[domain.Event], error)
}

// Dashboard is the overview shown after login
type Dashboard struct {
	User            *domain.User      `json:"user,omitempty"`
	OwnCalendars    []domain.Calendar `json:"ownCalendars"`
	SharedCalendars []domain.Calendar `json:"sharedCalendars"`
	Upcoming        []domain.Event    `json:"upcoming"`
	EventCount      int               `json:"eventCount"`
}

const dashboardPageSize = 100

// DashboardService loads the dashboard
type DashboardService struct {
	api      DashboardAPI
	upcoming int
}

func NewDashboardService(api DashboardAPI, upcoming int) *DashboardService {
	if upcoming <= 0 {
		upcoming = 5
	}
	return &DashboardService{api: api, upcoming: upcoming}
}

// Load fetches own and shared calendars and, when calendarID is set, the
// next events of that calendar. The requests run concurrently; the first
// failure cancels the rest.
func (s *DashboardService) Load(ctx context.Context, user *domain.User, calendarID string, now time.Time) (*Dashboard, error) {
	d := &Dashboard{
		User:            user,
		OwnCalendars:    []domain.Calendar{},
		SharedCalendars: []domain.Calendar{},
		Upcoming:        []domain.Event{},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		memberships, err := s.api.ListMyCalendars(gctx)
		if err != nil {
			return err
		}
		d.OwnCalendars = append(d.OwnCalendars, domain.Calendars(memberships)...)
		return nil
	})
	g.Go(func() error {
		shared, err := s.api.ListSharedCalendars(gctx)
		if err != nil {
			return err
		}
		d.SharedCalendars = append(d.SharedCalendars, shared...)
		return nil
	})
	if calendarID != "" {
		g.Go(func() error {
			count, next, err := s.nextEvents(gctx, calendarID, now)
			if err != nil {
				return err
			}
			d.EventCount = count
			d.Upcoming = next
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}

// nextEvents walks the calendar's pages in start order until enough events
// that have not ended are found. It returns the total event count as well.
func (s *DashboardService) nextEvents(ctx context.Context, calendarID string, now time.Time) (int, []domain.Event, error) {
	var (
		total   int
		fetched int
		found   []domain.Event
	)
	for page := 1; ; page++ {
		p, err := s.api.ListEvents(ctx, calendarID, domain.PageOptions{
			Page:          page,
			Limit:         dashboardPageSize,
			SortField:     "startTime",
			SortDirection: domain.SortAsc,
		})
		if err != nil {
			return 0, nil, err
		}
		total = p.Total
		fetched += len(p.Items)
		found = append(found, upcoming(p.Items, now, s.upcoming)...)
		// later pages only start later than everything found so far
		if len(found) >= s.upcoming || len(p.Items) == 0 || fetched >= p.Total {
			break
		}
	}
	return total, upcoming(found, now, s.upcoming), nil
}

// upcoming returns up to limit events that have not ended yet, by start time
func upcoming(events []domain.Event, now time.Time, limit int) []domain.Event {
	out := make([]domain.Event, 0, limit)
	for _, e := range events {
		end := e.StartTime
		if !e.IsOpenEnded() {
			end = *e.EndTime
		}
		if end.Before(now) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
