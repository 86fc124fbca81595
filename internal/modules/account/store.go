// README: Account store backed by PostgreSQL; credits are single UPDATE statements.
package account

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const accountColumns = `email, name, role, merchant_id, points, xp, level, earnings, created_at`

func (s *Store) Create(ctx context.Context, a *Account) error {
	var merchantID *string
	if a.MerchantID != "" {
		merchantID = &a.MerchantID
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.Email, a.Name, string(a.Role), merchantID, a.Points, a.XP, a.Level, a.Earnings, a.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

func (s *Store) Get(ctx context.Context, email string) (*Account, error) {
	row := s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
	return scanAccount(row)
}

func (s *Store) FindMerchant(ctx context.Context, merchantID, name string) (*Account, error) {
	if merchantID != "" {
		row := s.db.QueryRow(ctx, `
			SELECT `+accountColumns+` FROM accounts
			WHERE role = 'merchant' AND merchant_id = $1`, merchantID)
		a, err := scanAccount(row)
		if !errors.Is(err, ErrNotFound) || name == "" {
			return a, err
		}
	}
	row := s.db.QueryRow(ctx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE role = 'merchant' AND name = $1
		ORDER BY created_at
		LIMIT 1`, name)
	return scanAccount(row)
}

func (s *Store) Credit(ctx context.Context, email string, d Delta) (*Account, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE accounts
		SET earnings = earnings + $2,
		    points = points + $3,
		    xp = xp + $4,
		    level = ((xp + $4) / 5000) + 1
		WHERE email = $1
		RETURNING `+accountColumns,
		email, d.Earnings, d.Points, d.XP,
	)
	return scanAccount(row)
}

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	var role string
	var merchantID sql.NullString
	err := row.Scan(&a.Email, &a.Name, &role, &merchantID, &a.Points, &a.XP, &a.Level, &a.Earnings, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Role = Role(role)
	a.MerchantID = merchantID.String
	return &a, nil
}
