package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"cafe-order-service/internal/models"
	"cafe-order-service/internal/repository"
)

// Stats serves the read-only sales projections. Day windows are half-open
// [00:00, next day 00:00) in the service's local clock.
type Stats struct {
	queries repository.StatsQueries
	now     func() time.Time
}

func NewStats(queries repository.StatsQueries) *Stats {
	return &Stats{queries: queries, now: time.Now}
}

// Daily reports the total amount and count of CLOSE orders for the given
// calendar day, defaulting to today.
func (s *Stats) Daily(ctx context.Context, date *time.Time) (*models.DailyStats, error) {
	day := s.now()
	if date != nil {
		day = *date
	}
	from := startOfDay(day)
	to := from.AddDate(0, 0, 1)

	total, count, err := s.queries.TotalsBetween(ctx, from, to, models.StatusClose)
	if err != nil {
		return nil, err
	}
	return &models.DailyStats{Date: from, TotalAmount: total, OrderCount: count}, nil
}

// TopSelling returns the products with the highest sold quantity across all
// order lines, regardless of order status.
func (s *Stats) TopSelling(ctx context.Context, limit int) ([]models.TopProduct, error) {
	return s.queries.TopSelling(ctx, limit)
}

// RevenueBetween sums total amounts of orders with the given status over the
// end-date-inclusive calendar range.
func (s *Stats) RevenueBetween(ctx context.Context, startDate, endDate time.Time, status models.OrderStatus) (decimal.Decimal, error) {
	from := startOfDay(startDate)
	to := startOfDay(endDate).AddDate(0, 0, 1)

	total, _, err := s.queries.TotalsBetween(ctx, from, to, status)
	return total, err
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
