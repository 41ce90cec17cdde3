package service

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/entity"
)

const (
	productP  = 1
	productQ  = 2
	missingID = 9999
	customer  = 7
)

func product(id int, name, price string, stock int) entity.Product {
	return entity.Product{ID: id, Name: name, Price: decimal.RequireFromString(price), Stock: stock}
}

func newTestOrderService(store *memStore) (*OrderService, *recordingPublisher) {
	publisher := &recordingPublisher{}
	svc := NewOrderService(store, store, entity.DefaultPickupLocations(), publisher, &memIdempotency{})
	svc.nowFunc = func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) }
	return svc, publisher
}

func request(location string, lines ...RawLine) PlaceOrderRequest {
	return PlaceOrderRequest{UserID: customer, PickupLocation: location, PickupTime: "2026-05-01T18:30", Lines: lines}
}

// assertUnchanged checks that a failed placement left no trace.
func assertUnchanged(t *testing.T, store *memStore, products map[int]entity.Product, orders int) {
	t.Helper()
	after, afterOrders := store.snapshot()
	assert.Equal(t, products, after)
	assert.Equal(t, orders, afterOrders)
	assert.Equal(t, 0, store.commits)
	assert.Equal(t, store.begins, store.rolls)
}

func TestPlaceOrder_ScenarioA_Success(t *testing.T) {
	store := newMemStore(product(productP, "Frango assado", "10.0", 5))
	svc, publisher := newTestOrderService(store)

	order, err := svc.PlaceOrder(context.Background(), request("frangolandia", RawLine{ProductID: productP, Quantity: 3}))
	require.NoError(t, err)

	assert.Equal(t, "40.00", order.Total.StringFixed(2))
	assert.Equal(t, "10.00", order.DeliveryFee.StringFixed(2))
	assert.Equal(t, entity.StatusReceived, order.Status)
	assert.Equal(t, time.Date(2026, 5, 1, 18, 30, 0, 0, time.UTC), order.PickupTime)
	require.Len(t, order.Items, 1)
	assert.Equal(t, order.ID, order.Items[0].OrderID)
	assert.Equal(t, 3, order.Items[0].Quantity)
	assert.Equal(t, "10.00", order.Items[0].UnitPrice.StringFixed(2))

	assert.Equal(t, 2, store.stock(productP))
	assert.Equal(t, 1, store.commits)
	assert.Equal(t, 0, store.rolls)
	assert.Equal(t, []string{"order.created"}, publisher.types())
}

func TestPlaceOrder_ScenarioB_InsufficientStock(t *testing.T) {
	store := newMemStore(product(productP, "Frango assado", "10.0", 2))
	svc, publisher := newTestOrderService(store)
	before, orders := store.snapshot()

	_, err := svc.PlaceOrder(context.Background(), request("frangolandia", RawLine{ProductID: productP, Quantity: 5}))

	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.ErrorContains(t, err, "Frango assado")
	assert.Equal(t, 2, store.stock(productP))
	assertUnchanged(t, store, before, orders)
	assert.Empty(t, publisher.types())
}

func TestPlaceOrder_ScenarioC_OnlyZeroQuantities(t *testing.T) {
	store := newMemStore(product(productP, "Frango assado", "10.0", 5), product(productQ, "Coxinha", "4.50", 5))
	svc, _ := newTestOrderService(store)
	before, orders := store.snapshot()

	_, err := svc.PlaceOrder(context.Background(), request("balcao",
		RawLine{ProductID: productP, Quantity: 0},
		RawLine{ProductID: productQ, Quantity: 0},
	))

	assert.ErrorIs(t, err, ErrEmptyOrder)
	assertUnchanged(t, store, before, orders)
}

func TestPlaceOrder_NoLines(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestOrderService(store)

	_, err := svc.PlaceOrder(context.Background(), request("balcao"))

	assert.ErrorIs(t, err, ErrEmptyOrder)
	assert.Equal(t, 0, store.orderCount())
}

func TestPlaceOrder_ScenarioD_UnknownProductRollsBackEarlierLines(t *testing.T) {
	store := newMemStore(product(productP, "Frango assado", "10.0", 5))
	svc, _ := newTestOrderService(store)
	before, orders := store.snapshot()

	_, err := svc.PlaceOrder(context.Background(), request("frangolandia",
		RawLine{ProductID: productP, Quantity: 2},
		RawLine{ProductID: missingID, Quantity: 1},
	))

	require.ErrorIs(t, err, ErrProductNotFound)
	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, missingID, failure.ProductID)
	assert.NotContains(t, failure.Message, "9999")

	assert.Equal(t, 5, store.stock(productP))
	assertUnchanged(t, store, before, orders)
}

func TestPlaceOrder_SkipsNonPositiveQuantities(t *testing.T) {
	store := newMemStore(product(productP, "Frango assado", "10.0", 5), product(productQ, "Coxinha", "4.50", 5))
	svc, _ := newTestOrderService(store)

	order, err := svc.PlaceOrder(context.Background(), request("balcao",
		RawLine{ProductID: productP, Quantity: 0},
		RawLine{ProductID: missingID, Quantity: -1},
		RawLine{ProductID: productQ, Quantity: 2},
	))
	require.NoError(t, err)

	require.Len(t, order.Items, 1)
	assert.Equal(t, productQ, order.Items[0].ProductID)
	assert.Equal(t, "9.00", order.Total.StringFixed(2))
	assert.Equal(t, 5, store.stock(productP))
	assert.Equal(t, 3, store.stock(productQ))
}

func TestPlaceOrder_RepeatedProductUsesRunningStock(t *testing.T) {
	t.Run("within stock", func(t *testing.T) {
		store := newMemStore(product(productP, "Frango assado", "10.0", 5))
		svc, _ := newTestOrderService(store)

		order, err := svc.PlaceOrder(context.Background(), request("balcao",
			RawLine{ProductID: productP, Quantity: 2},
			RawLine{ProductID: productP, Quantity: 3},
		))
		require.NoError(t, err)
		assert.Len(t, order.Items, 2)
		assert.Equal(t, 0, store.stock(productP))
	})

	t.Run("over stock", func(t *testing.T) {
		store := newMemStore(product(productP, "Frango assado", "10.0", 5))
		svc, _ := newTestOrderService(store)

		_, err := svc.PlaceOrder(context.Background(), request("balcao",
			RawLine{ProductID: productP, Quantity: 3},
			RawLine{ProductID: productP, Quantity: 3},
		))
		assert.ErrorIs(t, err, ErrInsufficientStock)
		assert.Equal(t, 5, store.stock(productP))
		assert.Equal(t, 0, store.orderCount())
	})
}

func TestPlaceOrder_TotalAndStockConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	locations := entity.DefaultPickupLocations()

	for round := 0; round < 50; round++ {
		store := newMemStore(
			product(1, "Frango assado", "45.90", 20),
			product(2, "Coxinha", "4.50", 20),
			product(3, "Farofa", "7.25", 20),
		)
		svc, _ := newTestOrderService(store)
		before, _ := store.snapshot()

		location := locations.Names()[rng.Intn(len(locations))]
		var lines []RawLine
		requested := map[int]int{}
		for id := 1; id <= 3; id++ {
			q := rng.Intn(6)
			lines = append(lines, RawLine{ProductID: id, Quantity: q})
			requested[id] += q
		}

		order, err := svc.PlaceOrder(context.Background(), request(location, lines...))
		if requested[1]+requested[2]+requested[3] == 0 {
			assert.ErrorIs(t, err, ErrEmptyOrder)
			continue
		}
		require.NoError(t, err)

		fee, _ := locations.Fee(location)
		expected := fee
		for _, item := range order.Items {
			expected = expected.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
		assert.True(t, order.Total.Equal(expected), "round %d: total %s != %s", round, order.Total, expected)
		assert.True(t, order.Total.Equal(order.ItemsTotal().Add(order.DeliveryFee)))

		for id, q := range requested {
			assert.Equal(t, before[id].Stock-q, store.stock(id), "round %d product %d", round, id)
			assert.GreaterOrEqual(t, store.stock(id), 0)
		}
	}
}

func TestPlaceOrder_PriceIsCapturedAtOrderTime(t *testing.T) {
	store := newMemStore(product(productP, "Frango assado", "10.0", 5))
	svc, _ := newTestOrderService(store)

	_, err := svc.PlaceOrder(context.Background(), request("balcao", RawLine{ProductID: productP, Quantity: 1}))
	require.NoError(t, err)

	store.setPrice(productP, decimal.RequireFromString("12.50"))

	latest, err := svc.LatestOrder(context.Background(), customer)
	require.NoError(t, err)
	require.Len(t, latest.Items, 1)
	assert.Equal(t, "10.00", latest.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "12.50", latest.Items[0].Product.Price.StringFixed(2))
	assert.Equal(t, "10.00", latest.Total.StringFixed(2))
}

func TestPlaceOrder_ValidationFailuresDoNotOpenUnitOfWork(t *testing.T) {
	tests := []struct {
		name string
		req  PlaceOrderRequest
	}{
		{name: "missing location", req: PlaceOrderRequest{UserID: customer, PickupTime: "2026-05-01T18:30"}},
		{name: "missing time", req: PlaceOrderRequest{UserID: customer, PickupLocation: "balcao"}},
		{name: "unknown location", req: PlaceOrderRequest{UserID: customer, PickupLocation: "lua", PickupTime: "2026-05-01T18:30"}},
		{name: "malformed time", req: PlaceOrderRequest{UserID: customer, PickupLocation: "balcao", PickupTime: "tomorrow"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore(product(productP, "Frango assado", "10.0", 5))
			svc, _ := newTestOrderService(store)
			tc.req.Lines = []RawLine{{ProductID: productP, Quantity: 1}}

			_, err := svc.PlaceOrder(context.Background(), tc.req)

			assert.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, 0, store.begins)
			assert.Equal(t, 5, store.stock(productP))
		})
	}
}

func TestPlaceOrder_PickupTimeIsLenient(t *testing.T) {
	for _, pickup := range []string{"2001-01-01T08:00", "2026-05-02T10:00:00-03:00"} {
		store := newMemStore(product(productP, "Frango assado", "10.0", 5))
		svc, _ := newTestOrderService(store)

		req := request("balcao", RawLine{ProductID: productP, Quantity: 1})
		req.PickupTime = pickup
		_, err := svc.PlaceOrder(context.Background(), req)
		assert.NoError(t, err, pickup)
	}
}

func TestPlaceOrder_StorageFaultRollsBack(t *testing.T) {
	for _, step := range []string{"InsertOrder", "LockProduct", "InsertLineItems"} {
		t.Run(step, func(t *testing.T) {
			store := newMemStore(product(productP, "Frango assado", "10.0", 5))
			store.failOn[step] = true
			svc, publisher := newTestOrderService(store)
			before, orders := store.snapshot()

			_, err := svc.PlaceOrder(context.Background(), request("balcao", RawLine{ProductID: productP, Quantity: 1}))

			require.ErrorIs(t, err, errStorage)
			var failure *Failure
			assert.False(t, errors.As(err, &failure))
			assertUnchanged(t, store, before, orders)
			assert.Empty(t, publisher.types())
		})
	}
}

func TestPlaceOrder_BeginAndCommitFaults(t *testing.T) {
	t.Run("begin", func(t *testing.T) {
		store := newMemStore(product(productP, "Frango assado", "10.0", 5))
		store.failOn["Begin"] = true
		svc, _ := newTestOrderService(store)

		_, err := svc.PlaceOrder(context.Background(), request("balcao", RawLine{ProductID: productP, Quantity: 1}))
		assert.ErrorIs(t, err, errStorage)
	})

	t.Run("commit ends the unit of work once", func(t *testing.T) {
		store := newMemStore(product(productP, "Frango assado", "10.0", 5))
		store.failOn["Commit"] = true
		svc, _ := newTestOrderService(store)

		_, err := svc.PlaceOrder(context.Background(), request("balcao", RawLine{ProductID: productP, Quantity: 1}))
		assert.ErrorIs(t, err, errStorage)
		assert.Equal(t, 1, store.commits)
		assert.Equal(t, 0, store.rolls)
		assert.Equal(t, 5, store.stock(productP))
		assert.Equal(t, 0, store.orderCount())
	})
}

func TestPlaceOrder_ConcurrentPlacementsDoNotOversell(t *testing.T) {
	store := newMemStore(product(productP, "Frango assado", "10.0", 5))
	svc, _ := newTestOrderService(store)

	const buyers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, rejected := 0, 0

	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PlaceOrder(context.Background(), request("balcao", RawLine{ProductID: productP, Quantity: 1}))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if assert.ErrorIs(t, err, ErrInsufficientStock) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, buyers-5, rejected)
	assert.Equal(t, 0, store.stock(productP))
	assert.Equal(t, 5, store.orderCount())
}

func TestPlaceOrder_IdempotencyKey(t *testing.T) {
	store := newMemStore(product(productP, "Frango assado", "10.0", 5))
	svc, _ := newTestOrderService(store)
	ctx := context.Background()

	req := request("balcao", RawLine{ProductID: productP, Quantity: 1})
	req.IdempotencyKey = "cart-1"

	_, err := svc.PlaceOrder(ctx, req)
	require.NoError(t, err)

	_, err = svc.PlaceOrder(ctx, req)
	assert.ErrorIs(t, err, ErrDuplicateSubmission)
	assert.Equal(t, 4, store.stock(productP))
	assert.Equal(t, 1, store.orderCount())
}

func TestPlaceOrder_FailedPlacementReleasesIdempotencyKey(t *testing.T) {
	store := newMemStore(product(productP, "Frango assado", "10.0", 1))
	svc, _ := newTestOrderService(store)
	ctx := context.Background()

	req := request("balcao", RawLine{ProductID: productP, Quantity: 2})
	req.IdempotencyKey = "cart-2"
	_, err := svc.PlaceOrder(ctx, req)
	require.ErrorIs(t, err, ErrInsufficientStock)

	req.Lines = []RawLine{{ProductID: productP, Quantity: 1}}
	_, err = svc.PlaceOrder(ctx, req)
	assert.NoError(t, err)
}

func TestSetStatus(t *testing.T) {
	store := newMemStore(product(productP, "Frango assado", "10.0", 5))
	svc, publisher := newTestOrderService(store)
	ctx := context.Background()

	order, err := svc.PlaceOrder(ctx, request("balcao", RawLine{ProductID: productP, Quantity: 1}))
	require.NoError(t, err)

	// any label may follow any other
	for _, status := range []string{entity.StatusCancelled, entity.StatusReceived, entity.StatusPickedUp} {
		require.NoError(t, svc.SetStatus(ctx, order.ID, status))
		stored, err := store.GetOrderByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, status, stored.Status)
	}
	assert.Equal(t, []string{"order.created", "order.status", "order.status", "order.status"}, publisher.types())

	assert.ErrorIs(t, svc.SetStatus(ctx, order.ID, "Lost"), ErrValidation)
	assert.ErrorIs(t, svc.SetStatus(ctx, 404, entity.StatusReady), ErrNotFound)
}

func TestOrderQueries(t *testing.T) {
	store := newMemStore(product(productP, "Frango assado", "10.0", 5))
	svc, _ := newTestOrderService(store)
	ctx := context.Background()

	_, err := svc.LatestOrder(ctx, customer)
	assert.ErrorIs(t, err, ErrNotFound)

	first, err := svc.PlaceOrder(ctx, request("balcao", RawLine{ProductID: productP, Quantity: 1}))
	require.NoError(t, err)
	svc.nowFunc = func() time.Time { return time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC) }
	second, err := svc.PlaceOrder(ctx, request("feira", RawLine{ProductID: productP, Quantity: 1}))
	require.NoError(t, err)

	latest, err := svc.LatestOrder(ctx, customer)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	mine, err := svc.UserOrders(ctx, customer)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, []int{second.ID, first.ID}, []int{mine[0].ID, mine[1].ID})

	others, err := svc.UserOrders(ctx, customer+1)
	require.NoError(t, err)
	assert.Empty(t, others)

	all, err := svc.AllOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	got, err := svc.GetOrder(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	require.Len(t, got.Items, 1)
	_, err = svc.GetOrder(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)

	store.failOn["ListAll"] = true
	_, err = svc.AllOrders(ctx)
	assert.ErrorIs(t, err, errStorage)
}
