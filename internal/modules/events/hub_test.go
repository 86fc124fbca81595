package events

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/mocks"

	"feast/internal/modules/order"
	"feast/internal/types"
)

// loopback is an in-process Broadcaster shared by several hubs.
type loopback struct {
	mu        sync.Mutex
	listeners []func(string)
}

func (l *loopback) Broadcast(_ context.Context, origin string) error {
	l.mu.Lock()
	fns := append(([]func(string))(nil), l.listeners...)
	l.mu.Unlock()
	for _, fn := range fns {
		fn(origin)
	}
	return nil
}

func (l *loopback) Listen(ctx context.Context, fn func(string)) error {
	l.mu.Lock()
	l.listeners = append(l.listeners, fn)
	l.mu.Unlock()
	<-ctx.Done()
	return nil
}

func (l *loopback) Close() error { return nil }

func (l *loopback) waitListeners(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		l.mu.Lock()
		got := len(l.listeners)
		l.mu.Unlock()
		if got >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d listeners", n)
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	h := NewHub(nil, nil)
	var calls int32
	unsub := h.Subscribe(func() { atomic.AddInt32(&calls, 1) })

	if err := h.Publish(context.Background()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	unsub()
	unsub()
	if err := h.Publish(context.Background()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected 1 call, got %d", got)
	}
	if h.Subscribers() != 0 {
		t.Fatalf("expected no subscribers, got %d", h.Subscribers())
	}
}

func TestPanickingSubscriberDoesNotStopOthers(t *testing.T) {
	h := NewHub(nil, nil)
	var calls int32
	h.Subscribe(func() { panic("boom") })
	h.Subscribe(func() { atomic.AddInt32(&calls, 1) })

	if err := h.Publish(context.Background()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected healthy subscriber to run, got %d", got)
	}
}

func TestRemoteSignalReachesOtherHub(t *testing.T) {
	bus := &loopback{}
	a := NewHub(bus, nil)
	b := NewHub(bus, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)
	go b.Run(ctx)
	bus.waitListeners(t, 2)

	var aCalls, bCalls int32
	a.Subscribe(func() { atomic.AddInt32(&aCalls, 1) })
	b.Subscribe(func() { atomic.AddInt32(&bCalls, 1) })

	if err := a.Publish(ctx); err != nil {
		t.Fatalf("publish: %v", err)
	}
	// a hears its own publish locally only; the echo is dropped
	if got := atomic.LoadInt32(&aCalls); got != 1 {
		t.Fatalf("origin hub notified %d times", got)
	}
	if got := atomic.LoadInt32(&bCalls); got != 1 {
		t.Fatalf("remote hub notified %d times", got)
	}
}

func TestFanOutAfterTransitionSeesNewStatus(t *testing.T) {
	hub := NewHub(nil, nil)
	store := order.NewMemoryStore()
	svc := order.NewService(order.Deps{Store: store, Notifier: hub})
	ctx := context.Background()

	o, err := svc.Place(ctx, order.PlaceCommand{
		CustomerEmail:   "ana@example.com",
		RestaurantName:  "Bistro",
		DeliveryAddress: "12 Harbor Rd",
		Items:           []order.Item{{Name: "Soup", Quantity: 1, Price: types.Amount(80)}},
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	var seen []order.Status
	hub.Subscribe(func() {
		cur, err := store.Get(ctx, o.ID)
		if err != nil {
			t.Errorf("re-fetch: %v", err)
			return
		}
		seen = append(seen, cur.Status)
	})
	for _, to := range []order.Status{order.StatusAccepted, order.StatusPreparing} {
		if _, err := svc.Transition(ctx, order.TransitionCommand{OrderID: o.ID, To: to}); err != nil {
			t.Fatalf("transition: %v", err)
		}
	}
	if len(seen) != 2 || seen[0] != order.StatusAccepted || seen[1] != order.StatusPreparing {
		t.Fatalf("subscribers saw stale state: %v", seen)
	}
}

func TestKafkaAuditRecord(t *testing.T) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, cfg)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var rec auditRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			return err
		}
		if rec.OrderID != "o-1" || rec.ToStatus != "ACCEPTED" {
			t.Errorf("unexpected record: %+v", rec)
		}
		return nil
	})

	audit := NewKafkaAudit(producer, "order-events")
	err := audit.Record(context.Background(), order.Event{
		OrderID:    "o-1",
		FromStatus: order.StatusPending,
		ToStatus:   order.StatusAccepted,
		ActorType:  "merchant",
		CreatedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := audit.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
