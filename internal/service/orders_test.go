package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"cafe-order-service/internal/apperrors"
	"cafe-order-service/internal/logger"
	"cafe-order-service/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fixture struct {
	store     *fakeStore
	inventory *fakeInventory
	publisher *fakePublisher
	orders    *Orders
}

func newFixture() *fixture {
	store := newFakeStore()
	inventory := newFakeInventory()
	publisher := &fakePublisher{}
	return &fixture{
		store:     store,
		inventory: inventory,
		publisher: publisher,
		orders:    NewOrders(store, inventory, publisher, logger.New("order-service-test")),
	}
}

func (f *fixture) withCafeMenu() *fixture {
	f.inventory.add(models.ProductInfo{ProductID: "p-latte", ProductName: "Latte", Price: dec("50000")}, 10)
	f.inventory.add(models.ProductInfo{ProductID: "p-muffin", ProductName: "Muffin", Price: dec("30000")}, 10)
	return f
}

func (f *fixture) withTable(number string) *fixture {
	f.store.tables[number] = &models.CafeTable{TableID: "t-" + number, TableNumber: number, Status: models.TableFree}
	return f
}

func (f *fixture) withPaymentMethod(typ string) *fixture {
	f.store.methods[typ] = models.PaymentMethod{PaymentMethodID: "pm-" + typ, PaymentMethodType: typ}
	return f
}

func strptr(s string) *string { return &s }

func TestCreateOrder(t *testing.T) {
	f := newFixture().withCafeMenu().withTable("T1").withPaymentMethod("cash")

	order, err := f.orders.Create(context.Background(), &models.CreateOrderRequest{
		TableNumber:       strptr("T1"),
		PaymentMethodType: strptr("cash"),
		Items: []models.OrderItemRequest{
			{ProductName: "Latte", Quantity: 2, Notes: "less ice"},
			{ProductName: "Muffin", Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusOpen, order.Status)
	assert.True(t, order.TotalAmount.Equal(dec("130000")), "total = %s", order.TotalAmount)
	require.Len(t, order.Lines, 2)
	assert.Equal(t, "Latte", order.Lines[0].ProductName)
	assert.Equal(t, "less ice", order.Lines[0].Notes)
	assert.True(t, order.Lines[0].UnitPrice.Equal(dec("50000")))

	// stock reserved per line, in request order
	assert.Equal(t, []string{
		"lookup:Latte", "decrease:p-latte:2",
		"lookup:Muffin", "decrease:p-muffin:1",
	}, f.inventory.calls)
	assert.Equal(t, 8, f.inventory.stock["p-latte"])
	assert.Equal(t, 9, f.inventory.stock["p-muffin"])

	// persisted, table flipped, event published
	stored, err := f.store.GetOrder(context.Background(), order.OrderID)
	require.NoError(t, err)
	assert.True(t, stored.TotalAmount.Equal(dec("130000")))
	assert.Equal(t, models.TableOccupied, f.store.tables["T1"].Status)
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, "order.created", f.publisher.events[0].eventType)
}

func TestCreateOrderEmptyItems(t *testing.T) {
	f := newFixture().withCafeMenu()

	_, err := f.orders.Create(context.Background(), &models.CreateOrderRequest{})

	assert.ErrorIs(t, err, apperrors.ErrOrderItemsEmpty)
	assert.Empty(t, f.inventory.calls, "no inventory call may happen for an empty order")
	assert.Empty(t, f.store.orders)
}

func TestCreateOrderSecondItemOutOfStock(t *testing.T) {
	// The documented consistency gap: the first item's stock stays reserved,
	// the operation fails, and no order is persisted.
	f := newFixture().withCafeMenu()
	f.inventory.stock["p-muffin"] = 0

	_, err := f.orders.Create(context.Background(), &models.CreateOrderRequest{
		Items: []models.OrderItemRequest{
			{ProductName: "Latte", Quantity: 2},
			{ProductName: "Muffin", Quantity: 1},
		},
	})

	assert.ErrorIs(t, err, apperrors.ErrProductOutOfStock)
	assert.Equal(t, 8, f.inventory.stock["p-latte"], "first item's stock stays decreased")
	assert.Empty(t, f.store.orders, "no order may be persisted")
	assert.Empty(t, f.publisher.events)
}

func TestCreateOrderUnknownProduct(t *testing.T) {
	f := newFixture().withCafeMenu()

	_, err := f.orders.Create(context.Background(), &models.CreateOrderRequest{
		Items: []models.OrderItemRequest{{ProductName: "Ghost", Quantity: 1}},
	})

	assert.ErrorIs(t, err, apperrors.ErrProductNotFound)
	assert.Empty(t, f.store.orders)
}

func TestCreateOrderUnknownTable(t *testing.T) {
	f := newFixture().withCafeMenu()

	_, err := f.orders.Create(context.Background(), &models.CreateOrderRequest{
		TableNumber: strptr("T9"),
		Items:       []models.OrderItemRequest{{ProductName: "Latte", Quantity: 1}},
	})

	assert.ErrorIs(t, err, apperrors.ErrTableNotFound)
	assert.Empty(t, f.inventory.calls, "references resolve before any inventory call")
}

func TestCreateOrderUnknownPaymentMethod(t *testing.T) {
	f := newFixture().withCafeMenu()

	_, err := f.orders.Create(context.Background(), &models.CreateOrderRequest{
		PaymentMethodType: strptr("crypto"),
		Items:             []models.OrderItemRequest{{ProductName: "Latte", Quantity: 1}},
	})

	assert.ErrorIs(t, err, apperrors.ErrPaymentMethodNotFound)
}

func TestCreateOrderMergesDuplicateProducts(t *testing.T) {
	f := newFixture().withCafeMenu()

	order, err := f.orders.Create(context.Background(), &models.CreateOrderRequest{
		Items: []models.OrderItemRequest{
			{ProductName: "Latte", Quantity: 1},
			{ProductName: "Latte", Quantity: 2},
		},
	})
	require.NoError(t, err)

	require.Len(t, order.Lines, 1, "a product appears at most once per order")
	assert.Equal(t, 3, order.Lines[0].Quantity)
	assert.True(t, order.TotalAmount.Equal(dec("150000")))
	assert.Equal(t, 7, f.inventory.stock["p-latte"], "both decreases went out")
}

func createOpenOrder(t *testing.T, f *fixture, items ...models.OrderItemRequest) *models.Order {
	t.Helper()
	order, err := f.orders.Create(context.Background(), &models.CreateOrderRequest{Items: items})
	require.NoError(t, err)
	f.inventory.calls = nil
	f.publisher.events = nil
	return order
}

func TestAddItemNewLine(t *testing.T) {
	f := newFixture().withCafeMenu()
	order := createOpenOrder(t, f, models.OrderItemRequest{ProductName: "Latte", Quantity: 2})

	updated, err := f.orders.AddItem(context.Background(), order.OrderID, &models.OrderItemRequest{
		ProductName: "Muffin", Quantity: 1,
	})
	require.NoError(t, err)

	require.Len(t, updated.Lines, 2)
	assert.True(t, updated.TotalAmount.Equal(dec("130000")))
	assert.Equal(t, []string{"lookup:Muffin", "decrease:p-muffin:1"}, f.inventory.calls)
}

func TestAddItemExistingLineKeepsPrice(t *testing.T) {
	f := newFixture().withCafeMenu()
	order := createOpenOrder(t, f, models.OrderItemRequest{ProductName: "Latte", Quantity: 2})

	// the menu price changes after the line was first added
	f.inventory.add(models.ProductInfo{ProductID: "p-latte", ProductName: "Latte", Price: dec("60000")}, 8)

	updated, err := f.orders.AddItem(context.Background(), order.OrderID, &models.OrderItemRequest{
		ProductName: "Latte", Quantity: 1,
	})
	require.NoError(t, err)

	require.Len(t, updated.Lines, 1)
	assert.Equal(t, 3, updated.Lines[0].Quantity)
	assert.True(t, updated.Lines[0].UnitPrice.Equal(dec("50000")), "original line price stands")
	assert.True(t, updated.TotalAmount.Equal(dec("150000")))
}

func TestAddItemClosedOrder(t *testing.T) {
	f := newFixture().withCafeMenu()
	order := createOpenOrder(t, f, models.OrderItemRequest{ProductName: "Latte", Quantity: 1})
	_, err := f.orders.UpdateStatus(context.Background(), order.OrderID, "close")
	require.NoError(t, err)
	f.inventory.calls = nil

	_, err = f.orders.AddItem(context.Background(), order.OrderID, &models.OrderItemRequest{
		ProductName: "Muffin", Quantity: 1,
	})

	assert.ErrorIs(t, err, apperrors.ErrOrderAlreadyClosed)
	assert.Empty(t, f.inventory.calls, "a closed order makes no inventory call")
}

func TestAddItemUnknownOrder(t *testing.T) {
	f := newFixture().withCafeMenu()
	_, err := f.orders.AddItem(context.Background(), "missing", &models.OrderItemRequest{
		ProductName: "Latte", Quantity: 1,
	})
	assert.ErrorIs(t, err, apperrors.ErrOrderNotFound)
}

func TestAddItemOutOfStockLeavesOrderUntouched(t *testing.T) {
	f := newFixture().withCafeMenu()
	order := createOpenOrder(t, f, models.OrderItemRequest{ProductName: "Latte", Quantity: 2})
	f.inventory.stock["p-muffin"] = 0

	_, err := f.orders.AddItem(context.Background(), order.OrderID, &models.OrderItemRequest{
		ProductName: "Muffin", Quantity: 1,
	})
	assert.ErrorIs(t, err, apperrors.ErrProductOutOfStock)

	stored, err := f.store.GetOrder(context.Background(), order.OrderID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	assert.True(t, stored.TotalAmount.Equal(dec("100000")))
}

func TestDecreaseItemClampsToLineQuantity(t *testing.T) {
	f := newFixture().withCafeMenu()
	order := createOpenOrder(t, f, models.OrderItemRequest{ProductName: "Latte", Quantity: 3})

	updated, err := f.orders.DecreaseItem(context.Background(), order.OrderID, &models.OrderItemRequest{
		ProductName: "Latte", Quantity: 99,
	})
	require.NoError(t, err)

	assert.Empty(t, updated.Lines, "line removed when quantity reaches zero")
	assert.True(t, updated.TotalAmount.IsZero())
	assert.Equal(t, []string{"lookup:Latte", "increase:p-latte:3"}, f.inventory.calls,
		"released exactly the clamped quantity")
}

func TestDecreaseItemPartial(t *testing.T) {
	f := newFixture().withCafeMenu()
	order := createOpenOrder(t, f, models.OrderItemRequest{ProductName: "Latte", Quantity: 3})

	updated, err := f.orders.DecreaseItem(context.Background(), order.OrderID, &models.OrderItemRequest{
		ProductName: "Latte", Quantity: 1,
	})
	require.NoError(t, err)

	require.Len(t, updated.Lines, 1)
	assert.Equal(t, 2, updated.Lines[0].Quantity)
	assert.True(t, updated.TotalAmount.Equal(dec("100000")))
	assert.Equal(t, 8, f.inventory.stock["p-latte"], "3 reserved at create, 1 released")
}

func TestDecreaseItemNotOnOrder(t *testing.T) {
	f := newFixture().withCafeMenu()
	order := createOpenOrder(t, f, models.OrderItemRequest{ProductName: "Latte", Quantity: 1})

	_, err := f.orders.DecreaseItem(context.Background(), order.OrderID, &models.OrderItemRequest{
		ProductName: "Muffin", Quantity: 1,
	})
	assert.ErrorIs(t, err, apperrors.ErrOrderItemNotFound)
}

func TestDecreaseItemClosedOrder(t *testing.T) {
	f := newFixture().withCafeMenu()
	order := createOpenOrder(t, f, models.OrderItemRequest{ProductName: "Latte", Quantity: 1})
	_, err := f.orders.UpdateStatus(context.Background(), order.OrderID, "CLOSE")
	require.NoError(t, err)

	_, err = f.orders.DecreaseItem(context.Background(), order.OrderID, &models.OrderItemRequest{
		ProductName: "Latte", Quantity: 1,
	})
	assert.ErrorIs(t, err, apperrors.ErrOrderAlreadyClosed)
}

func TestDecreaseItemReleaseFailureLeavesLineUntouched(t *testing.T) {
	// If the stock release fails, the local line must not shrink: inventory
	// would otherwise drift ahead of the recorded order.
	f := newFixture().withCafeMenu()
	order := createOpenOrder(t, f, models.OrderItemRequest{ProductName: "Latte", Quantity: 3})
	f.inventory.failIncrease["p-latte"] = apperrors.ErrProductServiceUnavailable

	_, err := f.orders.DecreaseItem(context.Background(), order.OrderID, &models.OrderItemRequest{
		ProductName: "Latte", Quantity: 1,
	})
	assert.ErrorIs(t, err, apperrors.ErrProductServiceUnavailable)

	stored, err := f.store.GetOrder(context.Background(), order.OrderID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	assert.Equal(t, 3, stored.Lines[0].Quantity)
	assert.True(t, stored.TotalAmount.Equal(dec("150000")))
}

func TestUpdateStatusClose(t *testing.T) {
	f := newFixture().withCafeMenu().withTable("T1")
	order, err := f.orders.Create(context.Background(), &models.CreateOrderRequest{
		TableNumber: strptr("T1"),
		Items:       []models.OrderItemRequest{{ProductName: "Latte", Quantity: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, models.TableOccupied, f.store.tables["T1"].Status)
	f.publisher.events = nil

	updated, err := f.orders.UpdateStatus(context.Background(), order.OrderID, "close")
	require.NoError(t, err)

	assert.Equal(t, models.StatusClose, updated.Status)
	assert.Equal(t, models.TableFree, f.store.tables["T1"].Status)
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, "order.status_changed", f.publisher.events[0].eventType)
	assert.Equal(t, "CLOSE", f.publisher.events[0].status)
}

func TestUpdateStatusReopen(t *testing.T) {
	f := newFixture().withCafeMenu().withTable("T1")
	order, err := f.orders.Create(context.Background(), &models.CreateOrderRequest{
		TableNumber: strptr("T1"),
		Items:       []models.OrderItemRequest{{ProductName: "Latte", Quantity: 1}},
	})
	require.NoError(t, err)
	_, err = f.orders.UpdateStatus(context.Background(), order.OrderID, "close")
	require.NoError(t, err)

	updated, err := f.orders.UpdateStatus(context.Background(), order.OrderID, "open")
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, updated.Status)
	assert.Equal(t, models.TableOccupied, f.store.tables["T1"].Status)
}

func TestUpdateStatusInvalid(t *testing.T) {
	f := newFixture().withCafeMenu()
	order := createOpenOrder(t, f, models.OrderItemRequest{ProductName: "Latte", Quantity: 1})

	_, err := f.orders.UpdateStatus(context.Background(), order.OrderID, "cancelled")
	assert.ErrorIs(t, err, apperrors.ErrOrderStatusInvalid)

	stored, err := f.store.GetOrder(context.Background(), order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, stored.Status, "status unchanged on invalid input")
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture().withCafeMenu()
	f.publisher.err = assert.AnError

	order, err := f.orders.Create(context.Background(), &models.CreateOrderRequest{
		Items: []models.OrderItemRequest{{ProductName: "Latte", Quantity: 1}},
	})
	require.NoError(t, err)

	stored, err := f.store.GetOrder(context.Background(), order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, stored.Status)
}

func TestTotalInvariantAcrossLifecycle(t *testing.T) {
	f := newFixture().withCafeMenu()
	order := createOpenOrder(t, f,
		models.OrderItemRequest{ProductName: "Latte", Quantity: 2},
		models.OrderItemRequest{ProductName: "Muffin", Quantity: 1},
	)

	checkInvariant := func(o *models.Order) {
		t.Helper()
		sum := decimal.Zero
		for _, l := range o.Lines {
			sum = sum.Add(l.LineTotal())
		}
		assert.True(t, o.TotalAmount.Equal(sum), "total %s != Σ lines %s", o.TotalAmount, sum)
	}
	checkInvariant(order)

	order, err := f.orders.AddItem(context.Background(), order.OrderID, &models.OrderItemRequest{ProductName: "Latte", Quantity: 1})
	require.NoError(t, err)
	checkInvariant(order)

	order, err = f.orders.DecreaseItem(context.Background(), order.OrderID, &models.OrderItemRequest{ProductName: "Muffin", Quantity: 1})
	require.NoError(t, err)
	checkInvariant(order)
}
