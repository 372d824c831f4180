package order

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	pcache "github.com/glossydesign/pos-api/internal/cache"
	"github.com/glossydesign/pos-api/internal/store"
)

// Summary aggregates the day's takings for the counter dashboard.
// Money fields are satang and count deposits as received the moment
// they are taken.
type Summary struct {
	Date           string `json:"date"`
	SalesToday     int64  `json:"salesToday"`
	CashToday      int64  `json:"cashToday"`
	PromptPayToday int64  `json:"promptPayToday"`
	Completed      int64  `json:"completed"`
}

// SummaryService computes and caches the daily sales summary.
type SummaryService struct {
	Store *store.Store
	Redis *redis.Client
	TTL   time.Duration
	Now   func() time.Time
}

func (s *SummaryService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Summary returns today's totals, cache-aside with a short TTL so repeated
// dashboard polls do not hammer Postgres.
func (s *SummaryService) Summary(ctx context.Context) (Summary, error) {
	if s == nil || s.Store == nil {
		return Summary{}, errNotConfigured
	}
	day := s.now()
	key := pcache.KeySummary(day)

	if s.Redis != nil {
		if data, err := s.Redis.Get(ctx, key).Bytes(); err == nil {
			var cached Summary
			if json.Unmarshal(data, &cached) == nil {
				return cached, nil
			}
		}
	}
	return s.Refresh(ctx)
}

// Refresh recomputes today's totals from Postgres and rewrites the cache.
// The worker calls this on a schedule so the dashboard stays warm.
func (s *SummaryService) Refresh(ctx context.Context) (Summary, error) {
	if s == nil || s.Store == nil {
		return Summary{}, errNotConfigured
	}
	day := s.now()
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())

	row, err := s.Store.SalesSummarySince(ctx, midnight)
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{
		Date:           midnight.Format("2006-01-02"),
		SalesToday:     row.SalesTotal,
		CashToday:      row.CashTotal,
		PromptPayToday: row.PromptPayTotal,
		Completed:      row.Completed,
	}
	if s.Redis != nil {
		if data, err := json.Marshal(summary); err == nil {
			_ = s.Redis.Set(ctx, pcache.KeySummary(day), data, s.TTL).Err()
		}
	}
	return summary, nil
}

// Invalidate drops the cached summary after a write that changes the totals.
func (s *SummaryService) Invalidate(ctx context.Context) {
	if s == nil || s.Redis == nil {
		return
	}
	_ = s.Redis.Del(ctx, pcache.KeySummary(s.now())).Err()
}
