package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"cafe-order-service/internal/apperrors"
)

// OrderStatus is the lifecycle state of an order. OPEN accepts line
// mutations, CLOSE does not.
type OrderStatus string

const (
	StatusOpen  OrderStatus = "OPEN"
	StatusClose OrderStatus = "CLOSE"
)

// Table occupancy, stored as an integer to match the shared schema.
const (
	TableFree     = 0
	TableOccupied = 1
)

// TableEffect is the table-side outcome of a status transition. It is
// returned instead of mutating the table inline so the store can persist the
// order and the table flip in the same transaction.
type TableEffect int

const (
	TableUnchanged TableEffect = iota
	TableSetFree
	TableSetOccupied
)

// Order is the aggregate root. Lines are owned by the order; the table and
// payment method are referenced by id only.
type Order struct {
	OrderID           string
	OrderDate         time.Time
	Status            OrderStatus
	TotalAmount       decimal.Decimal
	TableID           *string
	TableNumber       *string
	PaymentMethodID   *string
	PaymentMethodType *string
	Lines             []OrderLine
}

// OrderLine identity is (OrderID, ProductID): a product appears at most once
// per order. UnitPrice is captured when the line is first added and is never
// re-fetched on later quantity changes.
type OrderLine struct {
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Notes       string
}

// LineTotal is UnitPrice × Quantity at the line's decimal scale.
func (l OrderLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// FindLine returns the line for productID, or nil.
func (o *Order) FindLine(productID string) *OrderLine {
	for i := range o.Lines {
		if o.Lines[i].ProductID == productID {
			return &o.Lines[i]
		}
	}
	return nil
}

// MergeLine adds a line to the order. If a line for the same product already
// exists, only its quantity grows; the original price and notes stand.
func (o *Order) MergeLine(line OrderLine) {
	if existing := o.FindLine(line.ProductID); existing != nil {
		existing.Quantity += line.Quantity
		return
	}
	o.Lines = append(o.Lines, line)
}

// RemoveLine drops the line for productID from the order.
func (o *Order) RemoveLine(productID string) {
	for i := range o.Lines {
		if o.Lines[i].ProductID == productID {
			o.Lines = append(o.Lines[:i], o.Lines[i+1:]...)
			return
		}
	}
}

// RecalculateTotal restores the invariant
// TotalAmount == Σ line.UnitPrice × line.Quantity.
func (o *Order) RecalculateTotal() {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.LineTotal())
	}
	o.TotalAmount = total
}

// NormalizeStatus parses a caller-supplied status, case-insensitively.
func NormalizeStatus(raw string) (OrderStatus, error) {
	switch OrderStatus(strings.ToUpper(strings.TrimSpace(raw))) {
	case StatusOpen:
		return StatusOpen, nil
	case StatusClose:
		return StatusClose, nil
	default:
		return "", apperrors.ErrOrderStatusInvalid
	}
}

// Transition sets the order status and reports what has to happen to the
// linked table: CLOSE frees it, OPEN occupies it, no table means no effect.
func Transition(o *Order, status OrderStatus) TableEffect {
	o.Status = status
	if o.TableID == nil {
		return TableUnchanged
	}
	if status == StatusClose {
		return TableSetFree
	}
	return TableSetOccupied
}

// CafeTable is reference data mutated only as a side effect of order status
// transitions.
type CafeTable struct {
	TableID     string
	TableNumber string
	Status      int
}

// PaymentMethod is immutable reference data looked up by type.
type PaymentMethod struct {
	PaymentMethodID   string
	PaymentMethodType string
}

// ProductInfo is the read-only view of a product supplied by the Product
// service. Stock is never persisted locally, only relayed as deltas.
type ProductInfo struct {
	ProductID   string
	ProductName string
	Price       decimal.Decimal
	Amount      int
}

// DailyStats is the daily sales projection over closed orders.
type DailyStats struct {
	Date        time.Time
	TotalAmount decimal.Decimal
	OrderCount  int64
}

// TopProduct is one row of the top-selling projection.
type TopProduct struct {
	ProductID   string
	ProductName string
	TotalSold   int64
}
