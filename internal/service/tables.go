package service

import (
	"context"

	"cafe-order-service/internal/models"
	"cafe-order-service/internal/repository"
)

// Tables is the thin reference-data surface for café tables and payment
// methods; table status is normally flipped by order transitions, the direct
// update exists for staff corrections.
type Tables struct {
	store repository.OrderStore
}

func NewTables(store repository.OrderStore) *Tables {
	return &Tables{store: store}
}

func (s *Tables) List(ctx context.Context) ([]models.CafeTable, error) {
	return s.store.ListTables(ctx)
}

func (s *Tables) UpdateStatus(ctx context.Context, tableNumber string, status int) (*models.CafeTable, error) {
	return s.store.UpdateTableStatus(ctx, tableNumber, status)
}

func (s *Tables) ListPaymentMethods(ctx context.Context) ([]models.PaymentMethod, error) {
	return s.store.ListPaymentMethods(ctx)
}
