package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"cafe-order-service/internal/apperrors"
	"cafe-order-service/internal/models"
)

// OrderTx is the transactional surface of one unit of work. LoadForMutation
// takes a row lock on the order, so concurrent mutations of the same order
// serialize here rather than in the lifecycle manager.
type OrderTx interface {
	TableByNumber(ctx context.Context, tableNumber string) (*models.CafeTable, error)
	PaymentMethodByType(ctx context.Context, paymentMethodType string) (*models.PaymentMethod, error)
	LoadForMutation(ctx context.Context, orderID string) (*models.Order, error)
	CreateOrder(ctx context.Context, order *models.Order, effect models.TableEffect) error
	Save(ctx context.Context, order *models.Order, effect models.TableEffect) error
}

type orderTx struct {
	tx pgx.Tx
}

func (t *orderTx) TableByNumber(ctx context.Context, tableNumber string) (*models.CafeTable, error) {
	var table models.CafeTable
	err := t.tx.QueryRow(ctx, `
		SELECT table_id, table_number, status FROM cafe_tables
		WHERE table_number = $1
		FOR UPDATE`, tableNumber).
		Scan(&table.TableID, &table.TableNumber, &table.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTableNotFound
		}
		return nil, fmt.Errorf("failed to look up table: %w", err)
	}
	return &table, nil
}

func (t *orderTx) PaymentMethodByType(ctx context.Context, paymentMethodType string) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	err := t.tx.QueryRow(ctx, `
		SELECT payment_method_id, payment_method_type FROM payment_methods
		WHERE payment_method_type = $1`, paymentMethodType).
		Scan(&method.PaymentMethodID, &method.PaymentMethodType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrPaymentMethodNotFound
		}
		return nil, fmt.Errorf("failed to look up payment method: %w", err)
	}
	return &method, nil
}

func (t *orderTx) LoadForMutation(ctx context.Context, orderID string) (*models.Order, error) {
	return loadOrder(ctx, t.tx, orderID, true)
}

func (t *orderTx) CreateOrder(ctx context.Context, order *models.Order, effect models.TableEffect) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders (order_id, order_date, status, total_amount, table_id, payment_method_id)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		order.OrderID, order.OrderDate, order.Status, order.TotalAmount.String(),
		order.TableID, order.PaymentMethodID)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for _, line := range order.Lines {
		_, err := t.tx.Exec(ctx, `
			INSERT INTO order_details (order_id, product_id, product_name, quantity, unit_price, notes)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			order.OrderID, line.ProductID, line.ProductName, line.Quantity,
			line.UnitPrice.String(), line.Notes)
		if err != nil {
			return fmt.Errorf("failed to insert order line %s: %w", line.ProductName, err)
		}
	}

	return t.applyTableEffect(ctx, order, effect)
}

// Save persists the aggregate: the order row, a line reconciliation
// (upsert present lines, delete vanished ones), and the table flip demanded
// by the status transition.
func (t *orderTx) Save(ctx context.Context, order *models.Order, effect models.TableEffect) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE orders SET status = $2, total_amount = $3
		WHERE order_id = $1`,
		order.OrderID, order.Status, order.TotalAmount.String())
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}

	keep := make([]string, 0, len(order.Lines))
	for _, line := range order.Lines {
		keep = append(keep, line.ProductID)
		_, err := t.tx.Exec(ctx, `
			INSERT INTO order_details (order_id, product_id, product_name, quantity, unit_price, notes)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (order_id, product_id)
			DO UPDATE SET quantity = EXCLUDED.quantity, notes = EXCLUDED.notes`,
			order.OrderID, line.ProductID, line.ProductName, line.Quantity,
			line.UnitPrice.String(), line.Notes)
		if err != nil {
			return fmt.Errorf("failed to upsert order line %s: %w", line.ProductName, err)
		}
	}

	_, err = t.tx.Exec(ctx, `
		DELETE FROM order_details WHERE order_id = $1 AND product_id <> ALL($2)`,
		order.OrderID, keep)
	if err != nil {
		return fmt.Errorf("failed to delete removed order lines: %w", err)
	}

	return t.applyTableEffect(ctx, order, effect)
}

func (t *orderTx) applyTableEffect(ctx context.Context, order *models.Order, effect models.TableEffect) error {
	if effect == models.TableUnchanged || order.TableID == nil {
		return nil
	}
	status := models.TableOccupied
	if effect == models.TableSetFree {
		status = models.TableFree
	}
	_, err := t.tx.Exec(ctx, `UPDATE cafe_tables SET status = $2 WHERE table_id = $1`,
		*order.TableID, status)
	if err != nil {
		return fmt.Errorf("failed to update table status: %w", err)
	}
	return nil
}
