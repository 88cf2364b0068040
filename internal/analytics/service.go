package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/toko-pos/internal/db"
	"github.com/noah-isme/toko-pos/internal/events"
	"github.com/noah-isme/toko-pos/internal/posapi"
)

// Querier defines the database access required for analytics operations.
type Querier interface {
	GetDashboardStats(ctx context.Context, arg db.GetDashboardStatsParams) (db.GetDashboardStatsRow, error)
}

// Service provides cached access to dashboard counters.
type Service struct {
	Q        Querier
	R        *redis.Client
	TTL      time.Duration
	Now      func() time.Time
	Location *time.Location
}

func (s *Service) now() time.Time {
	var t time.Time
	if s != nil && s.Now != nil {
		t = s.Now()
	} else {
		t = time.Now()
	}
	if s != nil && s.Location != nil {
		t = t.In(s.Location)
	}
	return t
}

func cacheKey(parts ...any) string {
	formatted := make([]string, 0, len(parts))
	for _, part := range parts {
		formatted = append(formatted, fmt.Sprint(part))
	}
	return strings.Join(formatted, ":")
}

func (s *Service) statsKey(day time.Time) string {
	return cacheKey("an", "stats", day.Format("2006-01-02"))
}

// Stats returns the dashboard totals; revenue covers the current local day.
func (s *Service) Stats(ctx context.Context) (posapi.Stats, error) {
	if s == nil || s.Q == nil {
		return posapi.Stats{}, fmt.Errorf("analytics service not configured")
	}
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	key := s.statsKey(dayStart)
	if stats, ok := s.getStatsFromCache(ctx, key); ok {
		return stats, nil
	}
	row, err := s.Q.GetDashboardStats(ctx, db.GetDashboardStatsParams{
		DayStart: pgtype.Timestamptz{Time: dayStart, Valid: true},
		DayEnd:   pgtype.Timestamptz{Time: dayStart.AddDate(0, 0, 1), Valid: true},
	})
	if err != nil {
		return posapi.Stats{}, err
	}
	stats := posapi.Stats{
		TotalInvoices:  row.TotalInvoices,
		TodayRevenue:   db.Decimal(row.TodayRevenue),
		TotalCustomers: row.TotalCustomers,
		TotalQuantity:  db.Decimal(row.TotalQuantity),
	}
	s.store(ctx, key, stats)
	return stats, nil
}

// Invalidate drops today's cached stats.
func (s *Service) Invalidate(ctx context.Context) error {
	if s == nil || s.R == nil {
		return nil
	}
	now := s.now()
	return s.R.Del(ctx, s.statsKey(now)).Err()
}

// Notifier invalidates the stats cache whenever an invoice is saved.
func (s *Service) Notifier() events.Notifier {
	return events.NotifierFunc(func(ctx context.Context, ev events.Event) error {
		if ev.Topic != events.TopicInvoiceSaved {
			return nil
		}
		return s.Invalidate(ctx)
	})
}

func (s *Service) getStatsFromCache(ctx context.Context, key string) (posapi.Stats, bool) {
	if s.R == nil || s.TTL <= 0 {
		return posapi.Stats{}, false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		return posapi.Stats{}, false
	}
	var stats posapi.Stats
	if err := json.Unmarshal(data, &stats); err != nil {
		return posapi.Stats{}, false
	}
	return stats, true
}

func (s *Service) store(ctx context.Context, key string, value any) {
	if s.R == nil || s.TTL <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = s.R.Set(ctx, key, data, s.TTL).Err()
}
