package settlement

import (
	"context"
	"errors"
	"testing"

	"feast/internal/modules/account"
	"feast/internal/modules/ledger"
	"feast/internal/modules/order"
	"feast/internal/modules/pricing"
	"feast/internal/types"
)

func TestComputeSplit(t *testing.T) {
	tip := types.Amount(20)
	o := &order.Order{Total: types.Amount(1000), PointsEarned: 100, TipAmount: &tip}
	split := Compute(o, types.Amount(45))
	if !split.MerchantCut.Equal(types.Amount(850)) {
		t.Fatalf("merchant cut: %s", split.MerchantCut)
	}
	if !split.RiderCut.Equal(types.Amount(65)) {
		t.Fatalf("rider cut: %s", split.RiderCut)
	}
	if split.XP != 1000 || split.PointsEarned != 100 {
		t.Fatalf("loyalty: %+v", split)
	}

	// rider cut does not depend on total
	o.Total = types.Amount(10)
	if got := Compute(o, types.Amount(45)).RiderCut; !got.Equal(types.Amount(65)) {
		t.Fatalf("rider cut with small total: %s", got)
	}
}

type harness struct {
	orders   *order.Service
	accounts *account.Service
	ledger   *ledger.Service
	pricing  *pricing.Service
}

func newHarness(t *testing.T, register ...account.Account) harness {
	t.Helper()
	ctx := context.Background()
	accounts := account.NewService(account.NewMemoryStore())
	for _, a := range register {
		if _, err := accounts.Register(ctx, a); err != nil {
			t.Fatalf("register %s: %v", a.Email, err)
		}
	}
	ledgers := ledger.NewService(ledger.NewMemoryStore())
	prices := pricing.NewService(nil, types.Amount(45))
	settler := NewService(prices, accounts, ledgers, nil)
	orders := order.NewService(order.Deps{
		Store:   order.NewMemoryStore(),
		Pricing: prices,
		Settler: settler,
	})
	return harness{orders: orders, accounts: accounts, ledger: ledgers, pricing: prices}
}

var everyone = []account.Account{
	{Email: "ana@example.com", Name: "Ana", Role: account.RoleCustomer},
	{Email: "chef@bistro.io", Name: "Bistro", Role: account.RoleMerchant},
	{Email: "rui@riders.io", Name: "Rui", Role: account.RoleRider},
}

func TestEndToEndSettlement(t *testing.T) {
	h := newHarness(t, everyone...)
	ctx := context.Background()

	o, err := h.orders.Place(ctx, order.PlaceCommand{
		CustomerEmail:   "ana@example.com",
		CustomerName:    "Ana",
		RestaurantName:  "Bistro",
		DeliveryAddress: "12 Harbor Rd",
		Items:           []order.Item{{Name: "Set menu", Quantity: 3, Price: types.Amount(100)}},
		Voucher:         &pricing.Voucher{Code: "SAVE15", Kind: pricing.VoucherPercent, Value: types.Amount(15)},
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if !o.Total.Equal(types.Amount(300)) || o.PointsEarned != 30 {
		t.Fatalf("quote: total %s points %d", o.Total, o.PointsEarned)
	}

	for _, to := range []order.Status{order.StatusAccepted, order.StatusPreparing, order.StatusReadyForPickup} {
		if _, err := h.orders.Transition(ctx, order.TransitionCommand{OrderID: o.ID, To: to}); err != nil {
			t.Fatalf("transition %s: %v", to, err)
		}
	}
	if _, err := h.orders.Claim(ctx, order.ClaimCommand{OrderID: o.ID, RiderEmail: "rui@riders.io", RiderName: "Rui"}); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := h.orders.Transition(ctx, order.TransitionCommand{OrderID: o.ID, To: order.StatusOutForDelivery}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	customer, _ := h.accounts.Get(ctx, "ana@example.com")
	if customer.Points != 0 {
		t.Fatalf("points realized before delivery: %d", customer.Points)
	}

	if _, err := h.orders.SubmitFeedback(ctx, order.FeedbackCommand{OrderID: o.ID, Rating: 5, Tip: types.Amount(10)}); err != nil {
		t.Fatalf("feedback: %v", err)
	}

	merchant, _ := h.accounts.Get(ctx, "chef@bistro.io")
	rider, _ := h.accounts.Get(ctx, "rui@riders.io")
	customer, _ = h.accounts.Get(ctx, "ana@example.com")
	if !merchant.Earnings.Equal(types.Amount(255)) {
		t.Fatalf("merchant earnings: %s", merchant.Earnings)
	}
	if !rider.Earnings.Equal(types.Amount(55)) {
		t.Fatalf("rider earnings: %s", rider.Earnings)
	}
	if customer.Points != 30 || customer.XP != 300 || customer.Level != 1 {
		t.Fatalf("customer loyalty: %+v", customer)
	}

	entries, err := h.ledger.List(ctx, "chef@bistro.io")
	if err != nil || len(entries) != 1 || entries[0].Reference != string(o.ID) || entries[0].Type != ledger.EntryCredit {
		t.Fatalf("merchant ledger: %v %+v", err, entries)
	}

	// second delivery is a no-op for balances
	if _, err := h.orders.Transition(ctx, order.TransitionCommand{OrderID: o.ID, To: order.StatusDelivered}); err != nil {
		t.Fatalf("re-deliver: %v", err)
	}
	merchant, _ = h.accounts.Get(ctx, "chef@bistro.io")
	customer, _ = h.accounts.Get(ctx, "ana@example.com")
	if !merchant.Earnings.Equal(types.Amount(255)) || customer.Points != 30 {
		t.Fatalf("double credit: merchant %s points %d", merchant.Earnings, customer.Points)
	}
}

func TestMissingMerchantDoesNotBlockDelivery(t *testing.T) {
	h := newHarness(t, everyone[0], everyone[2])
	ctx := context.Background()

	o, err := h.orders.Place(ctx, order.PlaceCommand{
		CustomerEmail:   "ana@example.com",
		RestaurantName:  "Nowhere Diner",
		DeliveryAddress: "12 Harbor Rd",
		Items:           []order.Item{{Name: "Pie", Quantity: 1, Price: types.Amount(100)}},
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if _, err := h.orders.ForceAssign(ctx, order.AssignCommand{OrderID: o.ID, RiderEmail: "rui@riders.io"}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	got, err := h.orders.Transition(ctx, order.TransitionCommand{OrderID: o.ID, To: order.StatusDelivered})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if got.Status != order.StatusDelivered {
		t.Fatalf("expected DELIVERED, got %s", got.Status)
	}

	rider, _ := h.accounts.Get(ctx, "rui@riders.io")
	customer, _ := h.accounts.Get(ctx, "ana@example.com")
	if !rider.Earnings.Equal(types.Amount(45)) {
		t.Fatalf("rider earnings: %s", rider.Earnings)
	}
	if customer.Points != o.PointsEarned {
		t.Fatalf("customer points: %d", customer.Points)
	}
}

func TestRiderCutUsesCurrentFee(t *testing.T) {
	h := newHarness(t, everyone...)
	ctx := context.Background()

	o, err := h.orders.Place(ctx, order.PlaceCommand{
		CustomerEmail:   "ana@example.com",
		RestaurantName:  "Bistro",
		DeliveryAddress: "12 Harbor Rd",
		Items:           []order.Item{{Name: "Pie", Quantity: 1, Price: types.Amount(100)}},
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if err := h.pricing.SetDeliveryFee(ctx, types.Amount(60)); err != nil {
		t.Fatalf("set fee: %v", err)
	}
	if _, err := h.orders.ForceAssign(ctx, order.AssignCommand{OrderID: o.ID, RiderEmail: "rui@riders.io"}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := h.orders.Transition(ctx, order.TransitionCommand{OrderID: o.ID, To: order.StatusDelivered}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	rider, _ := h.accounts.Get(ctx, "rui@riders.io")
	if !rider.Earnings.Equal(types.Amount(60)) {
		t.Fatalf("expected rider cut from current fee 60, got %s", rider.Earnings)
	}
}

type failingFees struct{}

func (failingFees) DeliveryFee(context.Context) (types.Money, error) {
	return types.Money{}, errors.New("redis down")
}

// deliver places an order, hands it to rider and delivers it.
func deliver(t *testing.T, orders *order.Service, cmd order.PlaceCommand, rider string) *order.Order {
	t.Helper()
	ctx := context.Background()
	o, err := orders.Place(ctx, cmd)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if rider != "" {
		if _, err := orders.ForceAssign(ctx, order.AssignCommand{OrderID: o.ID, RiderEmail: rider}); err != nil {
			t.Fatalf("assign: %v", err)
		}
	}
	got, err := orders.Transition(ctx, order.TransitionCommand{OrderID: o.ID, To: order.StatusDelivered})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	return got
}

func bistroOrder(merchantID string) order.PlaceCommand {
	return order.PlaceCommand{
		CustomerEmail:   "ana@example.com",
		RestaurantName:  "Bistro",
		MerchantID:      merchantID,
		DeliveryAddress: "12 Harbor Rd",
		Items:           []order.Item{{Name: "Pie", Quantity: 1, Price: types.Amount(100)}},
	}
}

func TestForeignMerchantIDPaysNamedRestaurant(t *testing.T) {
	rival := account.Account{Email: "boss@rival.io", Name: "Rival", Role: account.RoleMerchant, MerchantID: "m-rival"}
	h := newHarness(t, append(everyone, rival)...)
	ctx := context.Background()

	deliver(t, h.orders, bistroOrder("m-rival"), "")

	bistro, _ := h.accounts.Get(ctx, "chef@bistro.io")
	other, _ := h.accounts.Get(ctx, "boss@rival.io")
	if !bistro.Earnings.Equal(types.AmountFromFloat(123.25)) {
		t.Fatalf("bistro earnings: %s", bistro.Earnings)
	}
	if !other.Earnings.IsZero() {
		t.Fatalf("rival must not be paid, got %s", other.Earnings)
	}
}

func TestFeeReadFailureStillCreditsParties(t *testing.T) {
	ctx := context.Background()
	accounts := account.NewService(account.NewMemoryStore())
	for _, a := range everyone {
		if _, err := accounts.Register(ctx, a); err != nil {
			t.Fatalf("register %s: %v", a.Email, err)
		}
	}
	orders := order.NewService(order.Deps{
		Store:   order.NewMemoryStore(),
		Pricing: pricing.NewService(nil, types.Amount(45)),
		Settler: NewService(failingFees{}, accounts, nil, nil),
	})

	o := deliver(t, orders, bistroOrder(""), "rui@riders.io")

	merchant, _ := accounts.Get(ctx, "chef@bistro.io")
	rider, _ := accounts.Get(ctx, "rui@riders.io")
	customer, _ := accounts.Get(ctx, "ana@example.com")
	if !merchant.Earnings.Equal(types.AmountFromFloat(123.25)) {
		t.Fatalf("merchant earnings: %s", merchant.Earnings)
	}
	if !rider.Earnings.Equal(o.DeliveryFee) {
		t.Fatalf("rider should fall back to order fee %s, got %s", o.DeliveryFee, rider.Earnings)
	}
	if customer.Points != o.PointsEarned || customer.XP != o.Total.IntPart() {
		t.Fatalf("customer loyalty: %+v", customer)
	}
}

func TestRiderPayoutRequiresRiderAccount(t *testing.T) {
	h := newHarness(t, everyone...)
	ctx := context.Background()

	deliver(t, h.orders, bistroOrder(""), "chef@bistro.io")

	merchant, _ := h.accounts.Get(ctx, "chef@bistro.io")
	if !merchant.Earnings.Equal(types.AmountFromFloat(123.25)) {
		t.Fatalf("merchant must only get its own cut, got %s", merchant.Earnings)
	}
}

func TestLateTipPaidToRider(t *testing.T) {
	h := newHarness(t, everyone...)
	ctx := context.Background()

	o := deliver(t, h.orders, bistroOrder(""), "rui@riders.io")
	if _, err := h.orders.SubmitFeedback(ctx, order.FeedbackCommand{OrderID: o.ID, Rating: 5, Tip: types.Amount(20)}); err != nil {
		t.Fatalf("feedback: %v", err)
	}
	// repeated feedback pays nothing more
	if _, err := h.orders.SubmitFeedback(ctx, order.FeedbackCommand{OrderID: o.ID, Rating: 5, Tip: types.Amount(20)}); err != nil {
		t.Fatalf("feedback again: %v", err)
	}

	rider, _ := h.accounts.Get(ctx, "rui@riders.io")
	if !rider.Earnings.Equal(types.Amount(65)) {
		t.Fatalf("rider earnings: %s", rider.Earnings)
	}
	entries, err := h.ledger.List(ctx, "rui@riders.io")
	if err != nil || len(entries) != 2 {
		t.Fatalf("rider ledger: %v %+v", err, entries)
	}
	merchant, _ := h.accounts.Get(ctx, "chef@bistro.io")
	if !merchant.Earnings.Equal(types.AmountFromFloat(123.25)) {
		t.Fatalf("late tip must not re-settle the merchant: %s", merchant.Earnings)
	}
}
