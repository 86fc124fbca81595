// README: Concurrency tests for order state transitions (run with -race).
package order

import (
    "context"
    "errors"
    "fmt"
    "sync"
    "testing"
)

func TestConcurrentDeliverSettlesOnce(t *testing.T) {
    ctx := context.Background()
    svc, settler, _ := newTestService(t, Options{})
    o := mustPlace(t, svc, "ana@example.com")

    const attempts = 8
    var wg sync.WaitGroup
    start := make(chan struct{})
    errs := make(chan error, attempts)

    for i := 0; i < attempts; i++ {
        wg.Add(1)
        go func(n int) {
            defer wg.Done()
            <-start
            actor := Actor{Role: RoleAdmin, Email: fmt.Sprintf("ops%d@feast.io", n)}
            _, err := svc.Transition(ctx, TransitionCommand{OrderID: o.ID, To: StatusDelivered, Actor: actor})
            errs <- err
        }(i)
    }
    close(start)
    wg.Wait()
    close(errs)

    for err := range errs {
        if err != nil && !errors.Is(err, ErrConflict) {
            t.Fatalf("unexpected error: %v", err)
        }
    }
    if settler.count() != 1 {
        t.Fatalf("expected exactly 1 settlement, got %d", settler.count())
    }
    assertStatus(t, svc, o, StatusDelivered)
}

func TestConcurrentClaimSameOrder(t *testing.T) {
    ctx := context.Background()
    svc, _, _ := newTestService(t, Options{})
    o := mustPlace(t, svc, "ana@example.com")
    if _, err := svc.Transition(ctx, TransitionCommand{OrderID: o.ID, To: StatusReadyForPickup}); err != nil {
        t.Fatalf("ready: %v", err)
    }

    const attempts = 8
    var wg sync.WaitGroup
    start := make(chan struct{})
    errs := make(chan error, attempts)

    for i := 0; i < attempts; i++ {
        wg.Add(1)
        go func(n int) {
            defer wg.Done()
            <-start
            _, err := svc.Claim(ctx, ClaimCommand{OrderID: o.ID, RiderEmail: fmt.Sprintf("r%d@riders.io", n)})
            errs <- err
        }(i)
    }
    close(start)
    wg.Wait()
    close(errs)

    success := 0
    for err := range errs {
        if err == nil {
            success++
            continue
        }
        if !errors.Is(err, ErrConflict) {
            t.Fatalf("unexpected error: %v", err)
        }
    }
    if success != 1 {
        t.Fatalf("expected exactly 1 successful claim, got %d", success)
    }

    got, err := svc.Get(ctx, o.ID)
    if err != nil {
        t.Fatalf("get: %v", err)
    }
    if got.RiderEmail == nil || got.StatusVersion != 2 {
        t.Fatalf("expected a single claim write, got version %d", got.StatusVersion)
    }
}

func TestConcurrentCancelVsAccept(t *testing.T) {
    ctx := context.Background()
    svc, _, _ := newTestService(t, Options{})
    o := mustPlace(t, svc, "ana@example.com")

    var wg sync.WaitGroup
    errs := make(chan error, 2)
    wg.Add(2)
    go func() {
        defer wg.Done()
        _, err := svc.Transition(ctx, TransitionCommand{OrderID: o.ID, To: StatusAccepted})
        errs <- err
    }()
    go func() {
        defer wg.Done()
        _, err := svc.Cancel(ctx, CancelCommand{OrderID: o.ID, Reason: "user_cancel"})
        errs <- err
    }()
    wg.Wait()
    close(errs)

    success := 0
    for err := range errs {
        if err == nil {
            success++
            continue
        }
        if !errors.Is(err, ErrConflict) && !errors.Is(err, ErrInvalidState) {
            t.Fatalf("unexpected error: %v", err)
        }
    }
    if success < 1 {
        t.Fatal("expected at least one write to win")
    }
    got, err := svc.Get(ctx, o.ID)
    if err != nil {
        t.Fatalf("get: %v", err)
    }
    if got.Status != StatusAccepted && got.Status != StatusCancelled {
        t.Fatalf("unexpected final status: %s", got.Status)
    }
}

func assertStatus(t *testing.T, svc *Service, o *Order, want Status) {
    t.Helper()
    got, err := svc.Get(context.Background(), o.ID)
    if err != nil {
        t.Fatalf("get order: %v", err)
    }
    if got.Status != want {
        t.Fatalf("expected status %s, got %s", want, got.Status)
    }
}
