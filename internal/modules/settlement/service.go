// README: Settlement service credits the parties of a delivered order, best-effort per party.
package settlement

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"feast/internal/modules/account"
	"feast/internal/modules/ledger"
	"feast/internal/modules/order"
	"feast/internal/types"
)

type FeeReader interface {
	DeliveryFee(ctx context.Context) (types.Money, error)
}

type Accounts interface {
	Get(ctx context.Context, email string) (*account.Account, error)
	FindMerchant(ctx context.Context, merchantID, name string) (*account.Account, error)
	Credit(ctx context.Context, email string, d account.Delta) (*account.Account, error)
}

type Ledger interface {
	Append(ctx context.Context, e ledger.Entry) (ledger.Entry, error)
}

type Service struct {
	fees     FeeReader
	accounts Accounts
	ledger   Ledger
	logger   *slog.Logger
}

func NewService(fees FeeReader, accounts Accounts, ledger Ledger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{fees: fees, accounts: accounts, ledger: ledger, logger: logger}
}

// Compute splits a delivered order. The rider cut uses the fee configured now,
// not the fee captured at placement.
func Compute(o *order.Order, currentFee types.Money) Split {
	return Split{
		MerchantCut:  o.Total.Mul(MerchantShare),
		RiderCut:     currentFee.Add(o.Tip()),
		PointsEarned: o.PointsEarned,
		XP:           o.Total.IntPart(),
	}
}

// Settle credits merchant, rider and customer. A missing counterpart is
// logged and skipped. When the fee cannot be read the rider is paid from the
// fee captured on the order.
func (s *Service) Settle(ctx context.Context, o *order.Order) error {
	fee, err := s.fees.DeliveryFee(ctx)
	if err != nil {
		s.logger.Warn("settlement fee read failed, using order fee", "order_id", o.ID, "error", err)
		fee = o.DeliveryFee
	}
	split := Compute(o, fee)
	ref := string(o.ID)

	if merchant, err := s.accounts.FindMerchant(ctx, o.MerchantID, o.RestaurantName); err == nil {
		s.pay(ctx, merchant.Email, split.MerchantCut, "Payout for order at "+o.RestaurantName, ref)
	} else {
		s.miss(err, "merchant", o, o.RestaurantName)
	}

	if rider, ok := s.rider(ctx, o); ok {
		s.pay(ctx, rider.Email, split.RiderCut, "Delivery payout", ref)
	}

	if _, err := s.accounts.Credit(ctx, o.CustomerEmail, account.Delta{Points: split.PointsEarned, XP: split.XP}); err != nil {
		s.miss(err, "customer", o, o.CustomerEmail)
	}
	return nil
}

// SettleTip pays the rider a tip attached after the order was settled.
func (s *Service) SettleTip(ctx context.Context, o *order.Order) error {
	tip := o.Tip()
	if !tip.IsPositive() {
		return nil
	}
	if rider, ok := s.rider(ctx, o); ok {
		s.pay(ctx, rider.Email, tip, "Tip", string(o.ID))
	}
	return nil
}

// rider resolves the order's rider to a rider account.
func (s *Service) rider(ctx context.Context, o *order.Order) (*account.Account, bool) {
	if o.RiderEmail == nil || *o.RiderEmail == "" {
		s.logger.Info("settlement skipped rider: order has no rider", "order_id", o.ID)
		return nil, false
	}
	acc, err := s.accounts.Get(ctx, *o.RiderEmail)
	if err != nil {
		s.miss(err, "rider", o, *o.RiderEmail)
		return nil, false
	}
	if acc.Role != account.RoleRider {
		s.logger.Warn("settlement skipped rider: account is not a rider", "account", acc.Email, "role", acc.Role, "order_id", o.ID)
		return nil, false
	}
	return acc, true
}

func (s *Service) pay(ctx context.Context, email string, amount types.Money, desc, ref string) {
	acc, err := s.accounts.Credit(ctx, email, account.Delta{Earnings: amount})
	if err != nil {
		s.logger.Info("settlement skipped payout", "account", email, "reference", ref, "error", err)
		return
	}
	if s.ledger == nil || !amount.IsPositive() {
		return
	}
	if _, err := s.ledger.Append(ctx, ledger.Entry{
		AccountEmail: acc.Email,
		Type:         ledger.EntryCredit,
		Amount:       amount,
		Description:  desc,
		Reference:    ref,
		Status:       ledger.StatusSettled,
	}); err != nil {
		s.logger.Warn("ledger credit failed", "account", acc.Email, "reference", ref, "error", err)
	}
}

func (s *Service) miss(err error, party string, o *order.Order, key string) {
	if errors.Is(err, account.ErrNotFound) {
		s.logger.Info("settlement lookup miss", "party", party, "key", key, "order_id", o.ID)
		return
	}
	s.logger.Warn("settlement credit failed", "party", party, "key", key, "order_id", o.ID, "error", err)
}
