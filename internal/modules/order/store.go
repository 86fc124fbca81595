// README: Order store backed by PostgreSQL.
package order

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/jackc/pgx/v5"
    "github.com/jackc/pgx/v5/pgconn"
    "github.com/jackc/pgx/v5/pgxpool"
    "github.com/shopspring/decimal"

    "feast/internal/types"
)

type Store struct {
    db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
    return &Store{db: db}
}

const orderColumns = `
    id, items, subtotal, delivery_fee, discount, total, points_earned,
    status, status_version, restaurant_name, merchant_id,
    customer_email, customer_name, delivery_address,
    rider_name, rider_email, tip_amount, rating, comment, payment_ref,
    created_at, updated_at, delivered_at, cancelled_at, cancel_reason, settled_at`

func (s *Store) Create(ctx context.Context, o *Order) error {
    items, err := json.Marshal(o.Items)
    if err != nil {
        return err
    }
    _, err = s.db.Exec(ctx, `
        INSERT INTO orders (`+orderColumns+`) VALUES (
            $1, $2, $3, $4, $5, $6, $7,
            $8, $9, $10, $11,
            $12, $13, $14,
            $15, $16, $17, $18, $19, $20,
            $21, $22, $23, $24, $25, $26
        )`,
        string(o.ID), items, o.Subtotal, o.DeliveryFee, o.Discount, o.Total, o.PointsEarned,
        string(o.Status), o.StatusVersion, o.RestaurantName, nullString(o.MerchantID),
        o.CustomerEmail, o.CustomerName, o.DeliveryAddress,
        o.RiderName, o.RiderEmail, nullMoney(o.TipAmount), o.Rating, o.Comment, nullString(o.PaymentRef),
        o.CreatedAt, o.UpdatedAt, o.DeliveredAt, o.CancelledAt, o.CancelReason, o.SettledAt,
    )
    var pgErr *pgconn.PgError
    if errors.As(err, &pgErr) && pgErr.Code == "23505" {
        return ErrConflict
    }
    return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Order, error) {
    row := s.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, string(id))
    o, err := scanOrder(row)
    if errors.Is(err, pgx.ErrNoRows) {
        return nil, ErrNotFound
    }
    if err != nil {
        return nil, err
    }
    return o, nil
}

func (s *Store) Update(ctx context.Context, o *Order, version int) (bool, error) {
    tag, err := s.db.Exec(ctx, `
        UPDATE orders
        SET status = $1,
            status_version = $2,
            rider_name = $3,
            rider_email = $4,
            tip_amount = $5,
            rating = $6,
            comment = $7,
            updated_at = $8,
            delivered_at = $9,
            cancelled_at = $10,
            cancel_reason = $11,
            settled_at = $12
        WHERE id = $13 AND status_version = $14`,
        string(o.Status),
        o.StatusVersion,
        o.RiderName,
        o.RiderEmail,
        nullMoney(o.TipAmount),
        o.Rating,
        o.Comment,
        o.UpdatedAt,
        o.DeliveredAt,
        o.CancelledAt,
        o.CancelReason,
        o.SettledAt,
        string(o.ID),
        version,
    )
    if err != nil {
        return false, err
    }
    return tag.RowsAffected() == 1, nil
}

func (s *Store) List(ctx context.Context, f Filter) ([]*Order, error) {
    var where []string
    var args []any
    add := func(clause string, v any) {
        args = append(args, v)
        where = append(where, fmt.Sprintf(clause, len(args)))
    }
    if f.CustomerEmail != "" {
        add("LOWER(customer_email) = LOWER($%d)", f.CustomerEmail)
    }
    if f.RestaurantName != "" {
        add("restaurant_name = $%d", f.RestaurantName)
    }
    if f.RiderEmail != "" {
        add("LOWER(rider_email) = LOWER($%d)", f.RiderEmail)
    }
    if len(f.Statuses) > 0 {
        statuses := make([]string, 0, len(f.Statuses))
        for _, st := range f.Statuses {
            statuses = append(statuses, string(st))
        }
        add("status = ANY($%d)", statuses)
    }
    if f.ActiveOnly {
        where = append(where, "status NOT IN ('DELIVERED','CANCELLED')")
    }
    if f.Unassigned {
        where = append(where, "COALESCE(rider_email, '') = ''")
    }

    query := `SELECT ` + orderColumns + ` FROM orders`
    if len(where) > 0 {
        query += " WHERE " + strings.Join(where, " AND ")
    }
    query += " ORDER BY created_at DESC, id DESC"
    if f.Limit > 0 {
        args = append(args, f.Limit)
        query += fmt.Sprintf(" LIMIT $%d", len(args))
    }

    rows, err := s.db.Query(ctx, query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    out := make([]*Order, 0)
    for rows.Next() {
        o, err := scanOrder(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, o)
    }
    return out, rows.Err()
}

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
    _, err := s.db.Exec(ctx, `
        INSERT INTO order_state_events (
            order_id, from_status, to_status, actor_type, actor_id, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6)`,
        string(e.OrderID),
        string(e.FromStatus),
        string(e.ToStatus),
        e.ActorType,
        e.ActorID,
        e.CreatedAt,
    )
    return err
}

func scanOrder(row pgx.Row) (*Order, error) {
    var o Order
    var items []byte
    var merchantID, riderName, riderEmail, comment, paymentRef, cancelReason sql.NullString
    var tip decimal.NullDecimal
    var rating sql.NullInt32
    var deliveredAt, cancelledAt, settledAt sql.NullTime

    err := row.Scan(
        &o.ID, &items, &o.Subtotal, &o.DeliveryFee, &o.Discount, &o.Total, &o.PointsEarned,
        &o.Status, &o.StatusVersion, &o.RestaurantName, &merchantID,
        &o.CustomerEmail, &o.CustomerName, &o.DeliveryAddress,
        &riderName, &riderEmail, &tip, &rating, &comment, &paymentRef,
        &o.CreatedAt, &o.UpdatedAt, &deliveredAt, &cancelledAt, &cancelReason, &settledAt,
    )
    if err != nil {
        return nil, err
    }
    if err := json.Unmarshal(items, &o.Items); err != nil {
        return nil, fmt.Errorf("decode items of %s: %w", o.ID, err)
    }
    o.MerchantID = merchantID.String
    o.PaymentRef = paymentRef.String
    o.RiderName = toStringPtr(riderName)
    o.RiderEmail = toStringPtr(riderEmail)
    o.Comment = toStringPtr(comment)
    o.CancelReason = toStringPtr(cancelReason)
    if tip.Valid {
        v := tip.Decimal
        o.TipAmount = &v
    }
    if rating.Valid {
        v := int(rating.Int32)
        o.Rating = &v
    }
    o.DeliveredAt = toTimePtr(deliveredAt)
    o.CancelledAt = toTimePtr(cancelledAt)
    o.SettledAt = toTimePtr(settledAt)
    return &o, nil
}

func nullString(v string) *string {
    if v == "" {
        return nil
    }
    return &v
}

func nullMoney(v *types.Money) decimal.NullDecimal {
    if v == nil {
        return decimal.NullDecimal{}
    }
    return decimal.NullDecimal{Decimal: *v, Valid: true}
}

func toStringPtr(v sql.NullString) *string {
    if !v.Valid {
        return nil
    }
    s := v.String
    return &s
}

func toTimePtr(v sql.NullTime) *time.Time {
    if !v.Valid {
        return nil
    }
    t := v.Time
    return &t
}
