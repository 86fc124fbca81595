// README: Account service: registration, lookups and balance credits.
package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"feast/internal/types"
)

var (
	ErrNotFound   = errors.New("account not found")
	ErrDuplicate  = errors.New("account already exists")
	ErrBadAccount = errors.New("invalid account")
)

type Repository interface {
	Create(ctx context.Context, a *Account) error
	Get(ctx context.Context, email string) (*Account, error)
	// FindMerchant matches merchantID when set, else the display name.
	FindMerchant(ctx context.Context, merchantID, name string) (*Account, error)
	// Credit adds d atomically and returns the updated account.
	Credit(ctx context.Context, email string, d Delta) (*Account, error)
}

type Service struct {
	store Repository
}

func NewService(store Repository) *Service {
	return &Service{store: store}
}

func (s *Service) Register(ctx context.Context, a Account) (*Account, error) {
	a.Email = NormalizeEmail(a.Email)
	a.Name = strings.TrimSpace(a.Name)
	if a.Email == "" || !a.Role.Valid() {
		return nil, ErrBadAccount
	}
	if a.Role == RoleMerchant && a.Name == "" {
		return nil, ErrBadAccount
	}
	a.Points, a.XP = 0, 0
	a.Level = LevelFor(0)
	a.Earnings = types.Amount(0)
	a.CreatedAt = time.Now().UTC()
	if err := s.store.Create(ctx, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Service) Get(ctx context.Context, email string) (*Account, error) {
	return s.store.Get(ctx, NormalizeEmail(email))
}

// FindMerchant resolves the merchant behind an order. A merchantID match only
// counts when its display name agrees with name; otherwise name decides.
func (s *Service) FindMerchant(ctx context.Context, merchantID, name string) (*Account, error) {
	name = strings.TrimSpace(name)
	if merchantID == "" && name == "" {
		return nil, ErrNotFound
	}
	if merchantID == "" || name == "" {
		return s.store.FindMerchant(ctx, merchantID, name)
	}
	a, err := s.store.FindMerchant(ctx, merchantID, "")
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err == nil && strings.EqualFold(a.Name, name) {
		return a, nil
	}
	return s.store.FindMerchant(ctx, "", name)
}

func (s *Service) Credit(ctx context.Context, email string, d Delta) (*Account, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrNotFound
	}
	return s.store.Credit(ctx, email, d)
}
