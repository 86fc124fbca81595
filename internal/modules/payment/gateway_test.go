package payment

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"feast/internal/types"
)

func TestWalletCharge(t *testing.T) {
	g := NewSimulatedGateway(0)
	g.TopUp("Ana@Example.com", types.Amount(500))

	r, err := g.Charge(context.Background(), ChargeRequest{CustomerEmail: "ana@example.com", Method: MethodWallet, Amount: types.Amount(300)})
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	if !strings.HasPrefix(r.Reference, "TX-") {
		t.Fatalf("unexpected reference %q", r.Reference)
	}
	if !g.Balance("ana@example.com").Equal(types.Amount(200)) {
		t.Fatalf("expected balance 200, got %s", g.Balance("ana@example.com"))
	}
}

func TestWalletInsufficientFunds(t *testing.T) {
	g := NewSimulatedGateway(0)
	g.TopUp("ben@example.com", types.Amount(50))

	_, err := g.Charge(context.Background(), ChargeRequest{CustomerEmail: "ben@example.com", Method: MethodWallet, Amount: types.Amount(51)})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	var denied *DeniedError
	if !errors.As(err, &denied) || denied.Reference == "" {
		t.Fatalf("expected DeniedError with reference, got %v", err)
	}
	if !g.Balance("ben@example.com").Equal(types.Amount(50)) {
		t.Fatalf("balance changed after denial: %s", g.Balance("ben@example.com"))
	}
}

func TestGatewayFault(t *testing.T) {
	g := NewSimulatedGateway(0)
	g.FailWhen(func(req ChargeRequest) bool { return req.Method == MethodCard })

	_, err := g.Charge(context.Background(), ChargeRequest{CustomerEmail: "c@example.com", Method: MethodCard, Amount: types.Amount(10)})
	if !errors.Is(err, ErrGatewayFault) {
		t.Fatalf("expected ErrGatewayFault, got %v", err)
	}
	if _, err := g.Charge(context.Background(), ChargeRequest{CustomerEmail: "c@example.com", Method: MethodCash, Amount: types.Amount(10)}); err != nil {
		t.Fatalf("cash charge: %v", err)
	}
}

func TestChargeHonoursContext(t *testing.T) {
	g := NewSimulatedGateway(time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := g.Charge(ctx, ChargeRequest{CustomerEmail: "d@example.com", Method: MethodCard, Amount: types.Amount(10)})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestInvalidCharge(t *testing.T) {
	g := NewSimulatedGateway(0)
	if _, err := g.Charge(context.Background(), ChargeRequest{CustomerEmail: "e@example.com", Method: MethodCard}); err != ErrInvalidCharge {
		t.Fatalf("expected ErrInvalidCharge, got %v", err)
	}
}
