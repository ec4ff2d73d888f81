// Package service implements the order lifecycle: creating orders, mutating
// their lines while keeping the remote inventory ledger in step, and status
// transitions with their table side effects. There is no distributed
// transaction with the Product service; per-line inventory adjustments happen
// in request order before the local commit, and a failure partway leaves
// earlier adjustments in place (see the package tests, which pin that down).
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cafe-order-service/internal/apperrors"
	"cafe-order-service/internal/events"
	"cafe-order-service/internal/logger"
	"cafe-order-service/internal/models"
	"cafe-order-service/internal/product"
	"cafe-order-service/internal/repository"
)

type Orders struct {
	store     repository.OrderStore
	inventory product.Inventory
	events    events.Publisher
	lg        *logger.Logger
	now       func() time.Time
}

func NewOrders(store repository.OrderStore, inventory product.Inventory, publisher events.Publisher, lg *logger.Logger) *Orders {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Orders{
		store:     store,
		inventory: inventory,
		events:    publisher,
		lg:        lg,
		now:       time.Now,
	}
}

// Create opens an order. Per item, in request order: resolve the product by
// name, then reserve stock. Any failed reservation aborts the whole
// operation; stock already reserved for earlier items is NOT released — the
// coordinator has no compensation step, the local transaction just rolls
// back with no order persisted.
func (s *Orders) Create(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, apperrors.ErrOrderItemsEmpty
	}

	var created *models.Order
	err := s.store.WithinTx(ctx, func(tx repository.OrderTx) error {
		order := &models.Order{
			OrderID:     uuid.NewString(),
			OrderDate:   s.now(),
			Status:      models.StatusOpen,
			TotalAmount: decimal.Zero,
		}

		effect := models.TableUnchanged
		if req.TableNumber != nil {
			table, err := tx.TableByNumber(ctx, *req.TableNumber)
			if err != nil {
				return err
			}
			order.TableID = &table.TableID
			order.TableNumber = &table.TableNumber
			effect = models.TableSetOccupied
		}

		if req.PaymentMethodType != nil {
			method, err := tx.PaymentMethodByType(ctx, *req.PaymentMethodType)
			if err != nil {
				return err
			}
			order.PaymentMethodID = &method.PaymentMethodID
			order.PaymentMethodType = &method.PaymentMethodType
		}

		for _, item := range req.Items {
			info, err := s.inventory.FetchByName(ctx, item.ProductName)
			if err != nil {
				return err
			}
			if err := s.inventory.DecreaseStock(ctx, info.ProductID, item.Quantity); err != nil {
				return err
			}
			order.MergeLine(models.OrderLine{
				ProductID:   info.ProductID,
				ProductName: info.ProductName,
				Quantity:    item.Quantity,
				UnitPrice:   info.Price,
				Notes:       item.Notes,
			})
		}

		order.RecalculateTotal()
		if err := tx.CreateOrder(ctx, order, effect); err != nil {
			return err
		}
		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.OrderCreated, created)
	return created, nil
}

// AddItem reserves stock for the new quantity and merges it into the order.
// An existing line keeps the price it was first added at.
func (s *Orders) AddItem(ctx context.Context, orderID string, req *models.OrderItemRequest) (*models.Order, error) {
	var updated *models.Order
	err := s.store.WithinTx(ctx, func(tx repository.OrderTx) error {
		order, err := tx.LoadForMutation(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status == models.StatusClose {
			return apperrors.ErrOrderAlreadyClosed
		}

		info, err := s.inventory.FetchByName(ctx, req.ProductName)
		if err != nil {
			return err
		}
		if err := s.inventory.DecreaseStock(ctx, info.ProductID, req.Quantity); err != nil {
			return err
		}

		order.MergeLine(models.OrderLine{
			ProductID:   info.ProductID,
			ProductName: info.ProductName,
			Quantity:    req.Quantity,
			UnitPrice:   info.Price,
			Notes:       req.Notes,
		})
		order.RecalculateTotal()

		if err := tx.Save(ctx, order, models.TableUnchanged); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DecreaseItem removes at most the line's current quantity and releases that
// much stock first. If the release call fails the operation fails whole,
// leaving the local line untouched — inventory must not drift ahead of the
// recorded order.
func (s *Orders) DecreaseItem(ctx context.Context, orderID string, req *models.OrderItemRequest) (*models.Order, error) {
	var updated *models.Order
	err := s.store.WithinTx(ctx, func(tx repository.OrderTx) error {
		order, err := tx.LoadForMutation(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status == models.StatusClose {
			return apperrors.ErrOrderAlreadyClosed
		}

		info, err := s.inventory.FetchByName(ctx, req.ProductName)
		if err != nil {
			return err
		}
		line := order.FindLine(info.ProductID)
		if line == nil {
			return apperrors.ErrOrderItemNotFound
		}

		removeQty := req.Quantity
		if removeQty > line.Quantity {
			removeQty = line.Quantity
		}

		if err := s.inventory.IncreaseStock(ctx, info.ProductID, removeQty); err != nil {
			return err
		}

		line.Quantity -= removeQty
		if line.Quantity <= 0 {
			order.RemoveLine(info.ProductID)
		}
		order.RecalculateTotal()

		if err := tx.Save(ctx, order, models.TableUnchanged); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateStatus normalizes and applies a status transition; the table side
// effect is persisted in the same transaction as the order.
func (s *Orders) UpdateStatus(ctx context.Context, orderID, rawStatus string) (*models.Order, error) {
	status, err := models.NormalizeStatus(rawStatus)
	if err != nil {
		return nil, err
	}

	var updated *models.Order
	err = s.store.WithinTx(ctx, func(tx repository.OrderTx) error {
		order, err := tx.LoadForMutation(ctx, orderID)
		if err != nil {
			return err
		}

		effect := models.Transition(order, status)
		if err := tx.Save(ctx, order, effect); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.OrderStatusChanged, updated)
	return updated, nil
}

func (s *Orders) Get(ctx context.Context, orderID string) (*models.Order, error) {
	return s.store.GetOrder(ctx, orderID)
}

func (s *Orders) List(ctx context.Context) ([]*models.Order, error) {
	return s.store.ListOrders(ctx)
}

func (s *Orders) publish(ctx context.Context, eventType string, order *models.Order) {
	if err := s.events.PublishOrderEvent(ctx, eventType, order); err != nil {
		s.lg.Error("event_publish_failed", "", "failed to publish order event", err, map[string]any{
			"event_type": eventType,
			"order_id":   order.OrderID,
		})
	}
}
