// README: Ledger service appends entries; there is no update or delete path.
package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"feast/internal/types"
)

var ErrInvalidEntry = errors.New("invalid ledger entry")

type Repository interface {
	Append(ctx context.Context, e Entry) error
	List(ctx context.Context, accountEmail string) ([]Entry, error)
}

type Service struct {
	store Repository
}

func NewService(store Repository) *Service {
	return &Service{store: store}
}

func (s *Service) Append(ctx context.Context, e Entry) (Entry, error) {
	e.AccountEmail = strings.ToLower(strings.TrimSpace(e.AccountEmail))
	if e.AccountEmail == "" || !e.Amount.IsPositive() {
		return Entry{}, ErrInvalidEntry
	}
	if e.Type != EntryDebit && e.Type != EntryCredit {
		return Entry{}, ErrInvalidEntry
	}
	if e.Status == "" {
		e.Status = StatusSettled
	}
	e.ID = types.NewID()
	e.CreatedAt = time.Now().UTC()
	if err := s.store.Append(ctx, e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// List returns an account's entries newest first.
func (s *Service) List(ctx context.Context, accountEmail string) ([]Entry, error) {
	return s.store.List(ctx, strings.ToLower(strings.TrimSpace(accountEmail)))
}
