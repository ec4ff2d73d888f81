package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"cafe-order-service/internal/models"
)

// StatsQueries is the read-only projection surface over order data. Windows
// are half-open [from, to) as computed by the stats service.
type StatsQueries interface {
	TotalsBetween(ctx context.Context, from, to time.Time, status models.OrderStatus) (decimal.Decimal, int64, error)
	TopSelling(ctx context.Context, limit int) ([]models.TopProduct, error)
}

type statsQueries struct {
	pool *pgxpool.Pool
}

func NewStatsQueries(pool *pgxpool.Pool) StatsQueries {
	return &statsQueries{pool: pool}
}

// TotalsBetween sums total_amount and counts orders with the given status in
// the window.
func (s *statsQueries) TotalsBetween(ctx context.Context, from, to time.Time, status models.OrderStatus) (decimal.Decimal, int64, error) {
	var (
		total string
		count int64
	)
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_amount), 0)::text, COUNT(*)
		FROM orders
		WHERE status = $1 AND order_date >= $2 AND order_date < $3`,
		status, from, to).Scan(&total, &count)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("failed to query order totals: %w", err)
	}
	amount, err := decimal.NewFromString(total)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("invalid totals sum %q: %w", total, err)
	}
	return amount, count, nil
}

// TopSelling sums sold quantity per product over all order lines regardless
// of order status.
func (s *statsQueries) TopSelling(ctx context.Context, limit int) ([]models.TopProduct, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT product_id, product_name, SUM(quantity) AS total_sold
		FROM order_details
		GROUP BY product_id, product_name
		ORDER BY total_sold DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top-selling products: %w", err)
	}
	defer rows.Close()

	var top []models.TopProduct
	for rows.Next() {
		var p models.TopProduct
		if err := rows.Scan(&p.ProductID, &p.ProductName, &p.TotalSold); err != nil {
			return nil, err
		}
		top = append(top, p)
	}
	return top, rows.Err()
}
