// README: Pricing service computes placement quotes and owns the delivery-fee setting.
package pricing

import (
    "context"
    "errors"
    "sync"

    "github.com/shopspring/decimal"

    "feast/internal/types"
)

var (
    ErrInvalidFee   = errors.New("invalid delivery fee")
    ErrInvalidQuote = errors.New("invalid quote request")
)

// FeeStore persists the platform delivery fee. ok is false when no value was ever set.
type FeeStore interface {
    DeliveryFee(ctx context.Context) (fee types.Money, ok bool, err error)
    SetDeliveryFee(ctx context.Context, fee types.Money) error
}

type Service struct {
    store FeeStore

    mu         sync.RWMutex
    defaultFee types.Money
}

func NewService(store FeeStore, defaultFee types.Money) *Service {
    return &Service{store: store, defaultFee: defaultFee}
}

// DeliveryFee returns the current flat delivery fee.
func (s *Service) DeliveryFee(ctx context.Context) (types.Money, error) {
    if s.store != nil {
        fee, ok, err := s.store.DeliveryFee(ctx)
        if err != nil {
            return types.Money{}, err
        }
        if ok {
            return fee, nil
        }
    }
    s.mu.RLock()
    defer s.mu.RUnlock()
    return s.defaultFee, nil
}

func (s *Service) SetDeliveryFee(ctx context.Context, fee types.Money) error {
    if fee.IsNegative() {
        return ErrInvalidFee
    }
    if s.store != nil {
        return s.store.SetDeliveryFee(ctx, fee)
    }
    s.mu.Lock()
    s.defaultFee = fee
    s.mu.Unlock()
    return nil
}

func (s *Service) Quote(ctx context.Context, req QuoteRequest) (Quote, error) {
    fee, err := s.DeliveryFee(ctx)
    if err != nil {
        return Quote{}, err
    }
    return Compute(req, fee)
}

// Compute prices a basket: subtotal + fee - discount, discount clamped to the subtotal.
func Compute(req QuoteRequest, fee types.Money) (Quote, error) {
    if len(req.Lines) == 0 || fee.IsNegative() {
        return Quote{}, ErrInvalidQuote
    }
    subtotal := decimal.Zero
    for _, l := range req.Lines {
        if l.Quantity <= 0 || l.Price.IsNegative() {
            return Quote{}, ErrInvalidQuote
        }
        subtotal = subtotal.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
    }

    discount := decimal.Zero
    if v := req.Voucher; v != nil {
        if v.Value.IsNegative() {
            return Quote{}, ErrInvalidQuote
        }
        switch v.Kind {
        case VoucherPercent:
            discount = subtotal.Mul(v.Value).Div(decimal.NewFromInt(100))
        case VoucherFixed:
            discount = v.Value
        default:
            return Quote{}, ErrInvalidQuote
        }
        if discount.GreaterThan(subtotal) {
            discount = subtotal
        }
    }

    total := subtotal.Add(fee).Sub(discount)
    return Quote{
        Subtotal:     subtotal,
        DeliveryFee:  fee,
        Discount:     discount,
        Total:        total,
        PointsEarned: PointsFor(total),
    }, nil
}

// PointsFor returns floor(total / 10), never negative.
func PointsFor(total types.Money) int64 {
    if !total.IsPositive() {
        return 0
    }
    return total.Div(decimal.NewFromInt(pointsDivisor)).Floor().IntPart()
}
