// README: Dispatch projection tests over an in-memory order repository.
package dispatch

import (
	"context"
	"errors"
	"testing"

	"feast/internal/modules/order"
	"feast/internal/types"
)

type fixture struct {
	orders *order.Service
	svc    *Service
}

func newFixture(t *testing.T, opts Options) fixture {
	t.Helper()
	store := order.NewMemoryStore()
	return fixture{
		orders: order.NewService(order.Deps{Store: store}),
		svc:    NewService(store, opts),
	}
}

func (f fixture) place(t *testing.T, customer, restaurant, address string) *order.Order {
	t.Helper()
	o, err := f.orders.Place(context.Background(), order.PlaceCommand{
		CustomerEmail:   customer,
		RestaurantName:  restaurant,
		DeliveryAddress: address,
		Items:           []order.Item{{Name: "Rice", Quantity: 1, Price: types.Amount(50)}},
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	return o
}

func (f fixture) move(t *testing.T, id types.ID, to order.Status) {
	t.Helper()
	if _, err := f.orders.Transition(context.Background(), order.TransitionCommand{OrderID: id, To: to}); err != nil {
		t.Fatalf("transition %s: %v", to, err)
	}
}

func TestOpenMarketExcludesAssigned(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	open := f.place(t, "a@example.com", "Bistro", "1 North St")
	taken := f.place(t, "b@example.com", "Bistro", "2 North St")
	cooking := f.place(t, "c@example.com", "Bistro", "3 North St")
	f.move(t, open.ID, order.StatusReadyForPickup)
	f.move(t, taken.ID, order.StatusReadyForPickup)
	f.move(t, cooking.ID, order.StatusPreparing)
	if _, err := f.orders.Claim(ctx, order.ClaimCommand{OrderID: taken.ID, RiderEmail: "rui@riders.io"}); err != nil {
		t.Fatalf("claim: %v", err)
	}

	market, err := f.svc.OpenMarket(ctx, "anywhere")
	if err != nil {
		t.Fatalf("market: %v", err)
	}
	if len(market) != 1 || market[0].ID != open.ID {
		t.Fatalf("expected only %s in market, got %d orders", open.ID, len(market))
	}
	for _, o := range market {
		if o.RiderEmail != nil {
			t.Fatalf("assigned order %s in market", o.ID)
		}
	}
}

func TestOpenMarketStrictZone(t *testing.T) {
	f := newFixture(t, Options{StrictZone: true})
	ctx := context.Background()

	north := f.place(t, "a@example.com", "Bistro", "1 Main St, Northside")
	south := f.place(t, "b@example.com", "Bistro", "9 Dock Rd, Southside")
	f.move(t, north.ID, order.StatusReadyForPickup)
	f.move(t, south.ID, order.StatusReadyForPickup)

	market, err := f.svc.OpenMarket(ctx, "northside")
	if err != nil {
		t.Fatalf("market: %v", err)
	}
	if len(market) != 1 || market[0].ID != north.ID {
		t.Fatalf("expected only northside order, got %d", len(market))
	}
	all, _ := f.svc.OpenMarket(ctx, "")
	if len(all) != 2 {
		t.Fatalf("empty zone should not filter, got %d", len(all))
	}
}

func TestRiderQueue(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	active := f.place(t, "a@example.com", "Bistro", "1 Main St")
	done := f.place(t, "b@example.com", "Bistro", "2 Main St")
	for _, id := range []types.ID{active.ID, done.ID} {
		if _, err := f.orders.ForceAssign(ctx, order.AssignCommand{OrderID: id, RiderEmail: "Rui@Riders.io"}); err != nil {
			t.Fatalf("assign: %v", err)
		}
	}
	f.move(t, done.ID, order.StatusDelivered)

	q, err := f.svc.RiderQueue(ctx, "rui@riders.io")
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if len(q.Active) != 1 || q.Active[0].ID != active.ID {
		t.Fatalf("active: %+v", q.Active)
	}
	if len(q.History) != 1 || q.History[0].ID != done.ID {
		t.Fatalf("history: %+v", q.History)
	}
}

func TestMerchantQueueAndLiveOrders(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	a := f.place(t, "a@example.com", "Bistro", "1 Main St")
	f.place(t, "b@example.com", "Diner", "2 Main St")
	f.move(t, a.ID, order.StatusCancelled)

	mine, err := f.svc.MerchantQueue(ctx, "Bistro")
	if err != nil || len(mine) != 1 {
		t.Fatalf("merchant queue: %v %d", err, len(mine))
	}
	live, err := f.svc.LiveOrders(ctx)
	if err != nil || len(live) != 1 || live[0].RestaurantName != "Diner" {
		t.Fatalf("live orders: %v %d", err, len(live))
	}
}

func TestLiveOrderPicksNewest(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	if _, err := f.svc.LiveOrder(ctx, "a@example.com"); !errors.Is(err, ErrNoLiveOrder) {
		t.Fatalf("expected ErrNoLiveOrder, got %v", err)
	}
	f.place(t, "a@example.com", "Bistro", "1 Main St")
	newest := f.place(t, "a@example.com", "Diner", "1 Main St")

	got, err := f.svc.LiveOrder(ctx, "A@example.com")
	if err != nil {
		t.Fatalf("live order: %v", err)
	}
	if got.ID != newest.ID {
		t.Fatalf("expected newest %s, got %s", newest.ID, got.ID)
	}

	f.move(t, newest.ID, order.StatusCancelled)
	got, err = f.svc.LiveOrder(ctx, "a@example.com")
	if err != nil || got.RestaurantName != "Bistro" {
		t.Fatalf("expected fallback to older live order: %v", err)
	}
}
