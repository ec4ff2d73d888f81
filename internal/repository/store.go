// Package repository owns everything persisted locally: orders with their
// lines, café tables and payment methods, plus the read-only sales
// projections. Each lifecycle operation runs inside exactly one unit of work.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"cafe-order-service/internal/apperrors"
	"cafe-order-service/internal/models"
)

// OrderStore is the persistence boundary the lifecycle manager works
// against. WithinTx scopes one pgx transaction to one logical mutation; the
// remaining methods are plain reads.
type OrderStore interface {
	WithinTx(ctx context.Context, fn func(tx OrderTx) error) error
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	ListOrders(ctx context.Context) ([]*models.Order, error)
	ListTables(ctx context.Context) ([]models.CafeTable, error)
	UpdateTableStatus(ctx context.Context, tableNumber string, status int) (*models.CafeTable, error)
	ListPaymentMethods(ctx context.Context) ([]models.PaymentMethod, error)
}

type orderStore struct {
	pool *pgxpool.Pool
}

func NewOrderStore(pool *pgxpool.Pool) OrderStore {
	return &orderStore{pool: pool}
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so scan helpers can
// be shared between transactional and plain reads.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *orderStore) WithinTx(ctx context.Context, fn func(tx OrderTx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(&orderTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const orderColumns = `o.order_id, o.order_date, o.status, o.total_amount::text,
	o.table_id, t.table_number, o.payment_method_id, p.payment_method_type`

const orderFrom = `FROM orders o
	LEFT JOIN cafe_tables t ON t.table_id = o.table_id
	LEFT JOIN payment_methods p ON p.payment_method_id = o.payment_method_id`

func (s *orderStore) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	return loadOrder(ctx, s.pool, orderID, false)
}

func loadOrder(ctx context.Context, q querier, orderID string, forUpdate bool) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` ` + orderFrom + ` WHERE o.order_id = $1`
	if forUpdate {
		query += ` FOR UPDATE OF o`
	}

	order, err := scanOrder(q.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	lines, err := loadLines(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	order.Lines = lines
	return order, nil
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	var (
		order models.Order
		total string
	)
	if err := row.Scan(&order.OrderID, &order.OrderDate, &order.Status, &total,
		&order.TableID, &order.TableNumber, &order.PaymentMethodID, &order.PaymentMethodType); err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("invalid total_amount %q: %w", total, err)
	}
	order.TotalAmount = amount
	return &order, nil
}

func loadLines(ctx context.Context, q querier, orderID string) ([]models.OrderLine, error) {
	rows, err := q.Query(ctx, `
		SELECT product_id, product_name, quantity, unit_price::text, COALESCE(notes, '')
		FROM order_details
		WHERE order_id = $1
		ORDER BY seq`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order lines: %w", err)
	}
	defer rows.Close()

	var lines []models.OrderLine
	for rows.Next() {
		var (
			line  models.OrderLine
			price string
		)
		if err := rows.Scan(&line.ProductID, &line.ProductName, &line.Quantity, &price, &line.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		unitPrice, err := decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("invalid unit_price %q: %w", price, err)
		}
		line.UnitPrice = unitPrice
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (s *orderStore) ListOrders(ctx context.Context) ([]*models.Order, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+orderColumns+` `+orderFrom+` ORDER BY o.order_date`)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, order := range orders {
		lines, err := loadLines(ctx, s.pool, order.OrderID)
		if err != nil {
			return nil, err
		}
		order.Lines = lines
	}
	return orders, nil
}

func (s *orderStore) ListTables(ctx context.Context) ([]models.CafeTable, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT table_id, table_number, status FROM cafe_tables ORDER BY table_number`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []models.CafeTable
	for rows.Next() {
		var t models.CafeTable
		if err := rows.Scan(&t.TableID, &t.TableNumber, &t.Status); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func (s *orderStore) UpdateTableStatus(ctx context.Context, tableNumber string, status int) (*models.CafeTable, error) {
	var t models.CafeTable
	err := s.pool.QueryRow(ctx, `
		UPDATE cafe_tables SET status = $2
		WHERE table_number = $1
		RETURNING table_id, table_number, status`, tableNumber, status).
		Scan(&t.TableID, &t.TableNumber, &t.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTableNotFound
		}
		return nil, fmt.Errorf("failed to update table status: %w", err)
	}
	return &t, nil
}

func (s *orderStore) ListPaymentMethods(ctx context.Context) ([]models.PaymentMethod, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT payment_method_id, payment_method_type FROM payment_methods ORDER BY payment_method_type`)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}
	defer rows.Close()

	var methods []models.PaymentMethod
	for rows.Next() {
		var m models.PaymentMethod
		if err := rows.Scan(&m.PaymentMethodID, &m.PaymentMethodType); err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	return methods, rows.Err()
}
