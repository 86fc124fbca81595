// README: Ledger store backed by PostgreSQL (insert-only).
package ledger

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"feast/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, e Entry) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO ledger_entries (
			id, account_email, entry_type, amount, description, reference, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(e.ID),
		e.AccountEmail,
		string(e.Type),
		e.Amount,
		e.Description,
		e.Reference,
		string(e.Status),
		e.CreatedAt,
	)
	return err
}

func (s *Store) List(ctx context.Context, accountEmail string) ([]Entry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, account_email, entry_type, amount, description, reference, status, created_at
		FROM ledger_entries
		WHERE account_email = $1
		ORDER BY created_at DESC, id DESC`, accountEmail,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		var id, typ, status string
		if err := rows.Scan(&id, &e.AccountEmail, &typ, &e.Amount, &e.Description, &e.Reference, &status, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.ID = types.ID(id)
		e.Type = EntryType(typ)
		e.Status = Status(status)
		out = append(out, e)
	}
	return out, rows.Err()
}
