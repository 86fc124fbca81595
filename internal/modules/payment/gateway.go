// README: Simulated payment gateway with wallet balances, latency and fault injection.
package payment

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"feast/internal/types"
)

type SimulatedGateway struct {
	latency time.Duration

	mu      sync.Mutex
	wallets map[string]types.Money
	fault   func(ChargeRequest) bool
}

func NewSimulatedGateway(latency time.Duration) *SimulatedGateway {
	return &SimulatedGateway{latency: latency, wallets: make(map[string]types.Money)}
}

func (g *SimulatedGateway) TopUp(email string, amount types.Money) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := strings.ToLower(email)
	g.wallets[key] = g.wallets[key].Add(amount)
}

func (g *SimulatedGateway) Balance(email string) types.Money {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.wallets[strings.ToLower(email)]
}

// FailWhen makes every charge matching fn fail with ErrGatewayFault.
func (g *SimulatedGateway) FailWhen(fn func(ChargeRequest) bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fault = fn
}

func (g *SimulatedGateway) Charge(ctx context.Context, req ChargeRequest) (Receipt, error) {
	if !req.Amount.IsPositive() || req.CustomerEmail == "" {
		return Receipt{}, ErrInvalidCharge
	}
	if g.latency > 0 {
		timer := time.NewTimer(g.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Receipt{}, ctx.Err()
		case <-timer.C:
		}
	}

	ref := newReference()
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.fault != nil && g.fault(req) {
		return Receipt{}, &DeniedError{Reason: ErrGatewayFault, Reference: ref}
	}
	switch req.Method {
	case MethodWallet:
		key := strings.ToLower(req.CustomerEmail)
		bal, ok := g.wallets[key]
		if !ok {
			bal = decimal.Zero
		}
		if bal.LessThan(req.Amount) {
			return Receipt{}, &DeniedError{Reason: ErrInsufficientFunds, Reference: ref}
		}
		g.wallets[key] = bal.Sub(req.Amount)
	case MethodCard, MethodCash:
	default:
		return Receipt{}, &DeniedError{Reason: ErrGatewayFault, Reference: ref}
	}
	return Receipt{Reference: ref, Method: req.Method, Amount: req.Amount, ChargedAt: time.Now()}, nil
}

func newReference() string {
	return "TX-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}
