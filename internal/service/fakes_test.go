package service

import (
	"context"
	"fmt"

	"cafe-order-service/internal/apperrors"
	"cafe-order-service/internal/models"
	"cafe-order-service/internal/repository"
)

// fakeStore is an in-memory OrderStore whose unit of work stages changes and
// discards them when the operation fails, mirroring a rolled-back
// transaction.
type fakeStore struct {
	orders  map[string]*models.Order
	tables  map[string]*models.CafeTable
	methods map[string]models.PaymentMethod
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:  map[string]*models.Order{},
		tables:  map[string]*models.CafeTable{},
		methods: map[string]models.PaymentMethod{},
	}
}

func cloneOrder(o *models.Order) *models.Order {
	c := *o
	c.Lines = append([]models.OrderLine(nil), o.Lines...)
	return &c
}

func (s *fakeStore) clone() *fakeStore {
	c := newFakeStore()
	for id, o := range s.orders {
		c.orders[id] = cloneOrder(o)
	}
	for n, t := range s.tables {
		copied := *t
		c.tables[n] = &copied
	}
	for typ, m := range s.methods {
		c.methods[typ] = m
	}
	return c
}

func (s *fakeStore) WithinTx(_ context.Context, fn func(tx repository.OrderTx) error) error {
	staged := s.clone()
	if err := fn(&fakeTx{state: staged}); err != nil {
		return err
	}
	s.orders, s.tables, s.methods = staged.orders, staged.tables, staged.methods
	return nil
}

func (s *fakeStore) GetOrder(_ context.Context, orderID string) (*models.Order, error) {
	o, ok := s.orders[orderID]
	if !ok {
		return nil, apperrors.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (s *fakeStore) ListOrders(context.Context) ([]*models.Order, error) {
	var out []*models.Order
	for _, o := range s.orders {
		out = append(out, cloneOrder(o))
	}
	return out, nil
}

func (s *fakeStore) ListTables(context.Context) ([]models.CafeTable, error) {
	var out []models.CafeTable
	for _, t := range s.tables {
		out = append(out, *t)
	}
	return out, nil
}

func (s *fakeStore) UpdateTableStatus(_ context.Context, tableNumber string, status int) (*models.CafeTable, error) {
	t, ok := s.tables[tableNumber]
	if !ok {
		return nil, apperrors.ErrTableNotFound
	}
	t.Status = status
	copied := *t
	return &copied, nil
}

func (s *fakeStore) ListPaymentMethods(context.Context) ([]models.PaymentMethod, error) {
	var out []models.PaymentMethod
	for _, m := range s.methods {
		out = append(out, m)
	}
	return out, nil
}

type fakeTx struct {
	state *fakeStore
}

func (t *fakeTx) TableByNumber(_ context.Context, tableNumber string) (*models.CafeTable, error) {
	table, ok := t.state.tables[tableNumber]
	if !ok {
		return nil, apperrors.ErrTableNotFound
	}
	copied := *table
	return &copied, nil
}

func (t *fakeTx) PaymentMethodByType(_ context.Context, typ string) (*models.PaymentMethod, error) {
	m, ok := t.state.methods[typ]
	if !ok {
		return nil, apperrors.ErrPaymentMethodNotFound
	}
	return &m, nil
}

func (t *fakeTx) LoadForMutation(_ context.Context, orderID string) (*models.Order, error) {
	o, ok := t.state.orders[orderID]
	if !ok {
		return nil, apperrors.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (t *fakeTx) CreateOrder(_ context.Context, order *models.Order, effect models.TableEffect) error {
	t.state.orders[order.OrderID] = cloneOrder(order)
	t.applyTableEffect(order, effect)
	return nil
}

func (t *fakeTx) Save(_ context.Context, order *models.Order, effect models.TableEffect) error {
	t.state.orders[order.OrderID] = cloneOrder(order)
	t.applyTableEffect(order, effect)
	return nil
}

func (t *fakeTx) applyTableEffect(order *models.Order, effect models.TableEffect) {
	if effect == models.TableUnchanged || order.TableNumber == nil {
		return
	}
	table, ok := t.state.tables[*order.TableNumber]
	if !ok {
		return
	}
	if effect == models.TableSetFree {
		table.Status = models.TableFree
	} else {
		table.Status = models.TableOccupied
	}
}

// fakeInventory tracks stock by product id and records every remote call in
// order, so tests can assert both call sequences and their absence.
type fakeInventory struct {
	products     map[string]models.ProductInfo // by name
	stock        map[string]int                // by product id
	calls        []string
	failLookup   map[string]error // by product name
	failDecrease map[string]error // by product id
	failIncrease map[string]error // by product id
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{
		products:     map[string]models.ProductInfo{},
		stock:        map[string]int{},
		failLookup:   map[string]error{},
		failDecrease: map[string]error{},
		failIncrease: map[string]error{},
	}
}

func (f *fakeInventory) add(info models.ProductInfo, stock int) {
	f.products[info.ProductName] = info
	f.stock[info.ProductID] = stock
}

func (f *fakeInventory) FetchByName(_ context.Context, name string) (*models.ProductInfo, error) {
	f.calls = append(f.calls, "lookup:"+name)
	if err := f.failLookup[name]; err != nil {
		return nil, err
	}
	info, ok := f.products[name]
	if !ok {
		return nil, apperrors.ErrProductNotFound
	}
	return &info, nil
}

func (f *fakeInventory) DecreaseStock(_ context.Context, productID string, quantity int) error {
	f.calls = append(f.calls, fmt.Sprintf("decrease:%s:%d", productID, quantity))
	if err := f.failDecrease[productID]; err != nil {
		return err
	}
	if f.stock[productID] < quantity {
		return apperrors.ErrProductOutOfStock
	}
	f.stock[productID] -= quantity
	return nil
}

func (f *fakeInventory) IncreaseStock(_ context.Context, productID string, quantity int) error {
	f.calls = append(f.calls, fmt.Sprintf("increase:%s:%d", productID, quantity))
	if err := f.failIncrease[productID]; err != nil {
		return err
	}
	f.stock[productID] += quantity
	return nil
}

type publishedEvent struct {
	eventType string
	orderID   string
	status    string
}

type fakePublisher struct {
	events []publishedEvent
	err    error
}

func (f *fakePublisher) PublishOrderEvent(_ context.Context, eventType string, order *models.Order) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, publishedEvent{
		eventType: eventType,
		orderID:   order.OrderID,
		status:    string(order.Status),
	})
	return nil
}
