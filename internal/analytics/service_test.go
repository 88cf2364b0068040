package analytics_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pos/internal/analytics"
	"github.com/noah-isme/toko-pos/internal/db"
	"github.com/noah-isme/toko-pos/internal/events"
	"github.com/noah-isme/toko-pos/internal/posapi"
)

type stubQueries struct {
	calls int
	last  db.GetDashboardStatsParams
	err   error
}

func (s *stubQueries) GetDashboardStats(ctx context.Context, arg db.GetDashboardStatsParams) (db.GetDashboardStatsRow, error) {
	s.calls++
	s.last = arg
	if s.err != nil {
		return db.GetDashboardStatsRow{}, s.err
	}
	return db.GetDashboardStatsRow{
		TotalInvoices:  12,
		TodayRevenue:   db.Numeric(decimal.RequireFromString("1520.50")),
		TotalCustomers: 4,
		TotalQuantity:  db.Numeric(decimal.RequireFromString("37")),
	}, nil
}

func newService(t *testing.T, q analytics.Querier) *analytics.Service {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return &analytics.Service{
		Q:        q,
		R:        rdb,
		TTL:      time.Minute,
		Now:      func() time.Time { return time.Date(2026, 5, 1, 15, 4, 0, 0, time.UTC) },
		Location: time.UTC,
	}
}

func TestStatsCachedAndInvalidatedOnInvoiceSaved(t *testing.T) {
	queries := &stubQueries{}
	svc := newService(t, queries)
	ctx := context.Background()

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if stats.TotalInvoices != 12 || !stats.TodayRevenue.Equal(decimal.RequireFromString("1520.5")) {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if got := queries.last.DayStart.Time; !got.Equal(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected day start %v", got)
	}
	if got := queries.last.DayEnd.Time; !got.Equal(time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected day end %v", got)
	}
	if _, err := svc.Stats(ctx); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if queries.calls != 1 {
		t.Fatalf("expected 1 DB call, got %d", queries.calls)
	}

	bus := events.Bus{Notifiers: []events.Notifier{svc.Notifier()}}
	if _, err := bus.Emit(ctx, events.TopicItemAdded, "1", nil); err != nil {
		t.Fatalf("emit item.added: %v", err)
	}
	if _, err := svc.Stats(ctx); err != nil {
		t.Fatalf("third call: %v", err)
	}
	if queries.calls != 1 {
		t.Fatalf("item.added must not invalidate stats, got %d calls", queries.calls)
	}

	if _, err := bus.Emit(ctx, events.TopicInvoiceSaved, "INV-20260501-000001", nil); err != nil {
		t.Fatalf("emit invoice.saved: %v", err)
	}
	if _, err := svc.Stats(ctx); err != nil {
		t.Fatalf("fourth call: %v", err)
	}
	if queries.calls != 2 {
		t.Fatalf("expected cache refresh after invoice.saved, got %d calls", queries.calls)
	}
}

func TestStatsHandler(t *testing.T) {
	h := &analytics.Handler{Svc: newService(t, &stubQueries{})}
	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var resp posapi.StatsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Data == nil || resp.Data.TotalCustomers != 4 {
		t.Fatalf("unexpected response: %s", rec.Body.String())
	}

	failing := &analytics.Handler{Svc: newService(t, &stubQueries{err: errors.New("db down")})}
	rec = httptest.NewRecorder()
	failing.Stats(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
	if rec.Body.String() != "{\"success\":false}\n" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}
