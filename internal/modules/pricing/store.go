// README: Pricing store backed by PostgreSQL with a Redis read-through cache.
package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"feast/internal/types"
)

const (
	deliveryFeeKey      = "delivery_fee"
	deliveryFeeCacheKey = "pricing:delivery_fee"
)

type Store struct {
	db    *pgxpool.Pool
	redis *redis.Client
	ttl   time.Duration
}

// NewStore returns a Store; redis may be nil to disable caching.
func NewStore(db *pgxpool.Pool, redis *redis.Client, ttl time.Duration) *Store {
	return &Store{db: db, redis: redis, ttl: ttl}
}

func (s *Store) DeliveryFee(ctx context.Context) (types.Money, bool, error) {
	if s.redis != nil {
		val, err := s.redis.Get(ctx, deliveryFeeCacheKey).Result()
		if err == nil {
			if fee, perr := decimal.NewFromString(val); perr == nil {
				return fee, true, nil
			}
		}
		// any cache failure falls through to the database
	}

	var raw string
	err := s.db.QueryRow(ctx, `SELECT value FROM system_config WHERE key = $1`, deliveryFeeKey).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.Money{}, false, nil
	}
	if err != nil {
		return types.Money{}, false, err
	}
	fee, err := decimal.NewFromString(raw)
	if err != nil {
		return types.Money{}, false, err
	}
	if s.redis != nil {
		_ = s.redis.Set(ctx, deliveryFeeCacheKey, fee.String(), s.ttl).Err()
	}
	return fee, true, nil
}

func (s *Store) SetDeliveryFee(ctx context.Context, fee types.Money) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO system_config (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		deliveryFeeKey, fee.String(),
	)
	if err != nil {
		return err
	}
	if s.redis != nil {
		return s.redis.Del(ctx, deliveryFeeCacheKey).Err()
	}
	return nil
}
