// README: Order service implements placement, state transitions and persistence.
package order

import (
    "context"
    "errors"
    "fmt"
    "io"
    "log/slog"
    "strings"
    "time"

    "golang.org/x/sync/singleflight"

    "feast/internal/modules/ledger"
    "feast/internal/modules/payment"
    "feast/internal/modules/pricing"
    "feast/internal/types"
)

type Pricing interface {
    Quote(ctx context.Context, req pricing.QuoteRequest) (pricing.Quote, error)
}

// Settler applies the payout and loyalty effects of a delivered order.
type Settler interface {
    Settle(ctx context.Context, o *Order) error
}

// TipSettler pays a tip given after the order was already settled.
type TipSettler interface {
    SettleTip(ctx context.Context, o *Order) error
}

// Notifier is told after every successful write to the repository.
type Notifier interface {
    Publish(ctx context.Context) error
}

type Payer interface {
    Charge(ctx context.Context, req payment.ChargeRequest) (payment.Receipt, error)
}

type Ledger interface {
    Append(ctx context.Context, e ledger.Entry) (ledger.Entry, error)
}

// Auditor receives a copy of every state event.
type Auditor interface {
    Record(ctx context.Context, e Event) error
}

type Options struct {
    // Permissive accepts any status write regardless of the current status.
    Permissive bool
    // EnforceSingleActive rejects placement while the customer has a live order.
    EnforceSingleActive bool
}

type Deps struct {
    Store    Repository
    Pricing  Pricing
    Settler  Settler
    Notifier Notifier
    Payer    Payer
    Ledger   Ledger
    Audit    Auditor
    Logger   *slog.Logger
    Options  Options
}

type Service struct {
    store    Repository
    pricing  Pricing
    settler  Settler
    notifier Notifier
    payer    Payer
    ledger   Ledger
    audit    Auditor
    logger   *slog.Logger
    opts     Options
    flight   singleflight.Group
}

func NewService(deps Deps) *Service {
    logger := deps.Logger
    if logger == nil {
        logger = slog.New(slog.NewTextHandler(io.Discard, nil))
    }
    return &Service{
        store:    deps.Store,
        pricing:  deps.Pricing,
        settler:  deps.Settler,
        notifier: deps.Notifier,
        payer:    deps.Payer,
        ledger:   deps.Ledger,
        audit:    deps.Audit,
        logger:   logger,
        opts:     deps.Options,
    }
}

var (
    ErrInvalidState = errors.New("invalid state transition")
    ErrNotFound     = errors.New("order not found")
    ErrConflict     = errors.New("order state conflict")
    ErrActiveOrder  = errors.New("customer has active order")
    ErrBadRequest   = errors.New("bad request")
    ErrForbidden    = errors.New("forbidden")
)

type PaymentDetails struct {
    Method payment.Method
}

type PlaceCommand struct {
    CustomerEmail   string
    CustomerName    string
    RestaurantName  string
    MerchantID      string
    DeliveryAddress string
    Items           []Item
    Voucher         *pricing.Voucher
    Payment         *PaymentDetails
}

type TransitionCommand struct {
    OrderID types.ID
    To      Status
    Patch   Patch
    Actor   Actor
    Reason  string
}

type ClaimCommand struct {
    OrderID    types.ID
    RiderEmail string
    RiderName  string
}

type AssignCommand struct {
    OrderID    types.ID
    RiderEmail string
    RiderName  string
    Actor      Actor
}

type FeedbackCommand struct {
    OrderID types.ID
    Rating  int
    Comment string
    Tip     types.Money
    Actor   Actor
}

type CancelCommand struct {
    OrderID types.ID
    Reason  string
    Actor   Actor
}

func (s *Service) Place(ctx context.Context, cmd PlaceCommand) (*Order, error) {
    cmd.CustomerEmail = normalizeEmail(cmd.CustomerEmail)
    if cmd.CustomerEmail == "" || strings.TrimSpace(cmd.RestaurantName) == "" || strings.TrimSpace(cmd.DeliveryAddress) == "" {
        return nil, ErrBadRequest
    }
    if len(cmd.Items) == 0 {
        return nil, ErrBadRequest
    }
    lines := make([]pricing.Line, 0, len(cmd.Items))
    for _, it := range cmd.Items {
        if strings.TrimSpace(it.Name) == "" || it.Quantity <= 0 || it.Price.IsNegative() {
            return nil, ErrBadRequest
        }
        lines = append(lines, pricing.Line{Price: it.Price, Quantity: it.Quantity})
    }

    if s.opts.EnforceSingleActive {
        live, err := s.store.List(ctx, Filter{CustomerEmail: cmd.CustomerEmail, ActiveOnly: true, Limit: 1})
        if err != nil {
            return nil, err
        }
        if len(live) > 0 {
            return nil, ErrActiveOrder
        }
    }

    req := pricing.QuoteRequest{Lines: lines, Voucher: cmd.Voucher}
    var quote pricing.Quote
    var err error
    if s.pricing != nil {
        quote, err = s.pricing.Quote(ctx, req)
    } else {
        quote, err = pricing.Compute(req, types.Amount(0))
    }
    if errors.Is(err, pricing.ErrInvalidQuote) {
        return nil, ErrBadRequest
    }
    if err != nil {
        return nil, fmt.Errorf("quote order: %w", err)
    }

    var receipt *payment.Receipt
    if cmd.Payment != nil && s.payer != nil {
        r, err := s.payer.Charge(ctx, payment.ChargeRequest{
            CustomerEmail: cmd.CustomerEmail,
            Method:        cmd.Payment.Method,
            Amount:        quote.Total,
        })
        if err != nil {
            paymentDenials.Inc()
            return nil, err
        }
        receipt = &r
    }

    now := time.Now().UTC()
    o := &Order{
        ID:              types.NewID(),
        Items:           append([]Item(nil), cmd.Items...),
        Subtotal:        quote.Subtotal,
        DeliveryFee:     quote.DeliveryFee,
        Discount:        quote.Discount,
        Total:           quote.Total,
        PointsEarned:    quote.PointsEarned,
        Status:          StatusPending,
        StatusVersion:   0,
        RestaurantName:  strings.TrimSpace(cmd.RestaurantName),
        MerchantID:      cmd.MerchantID,
        CustomerEmail:   cmd.CustomerEmail,
        CustomerName:    cmd.CustomerName,
        DeliveryAddress: strings.TrimSpace(cmd.DeliveryAddress),
        CreatedAt:       now,
        UpdatedAt:       now,
    }
    if receipt != nil {
        o.PaymentRef = receipt.Reference
    }
    if err := s.store.Create(ctx, o); err != nil {
        if receipt != nil {
            s.logger.Error("order not stored after successful charge", "reference", receipt.Reference, "error", err)
        }
        return nil, err
    }

    if receipt != nil && s.ledger != nil {
        if _, err := s.ledger.Append(ctx, ledger.Entry{
            AccountEmail: o.CustomerEmail,
            Type:         ledger.EntryDebit,
            Amount:       o.Total,
            Description:  "Order at " + o.RestaurantName,
            Reference:    receipt.Reference,
            Status:       ledger.StatusSettled,
        }); err != nil {
            s.logger.Error("ledger debit failed", "order_id", o.ID, "error", err)
        }
    }

    customer := o.CustomerEmail
    s.recordEvent(ctx, &Event{
        OrderID:    o.ID,
        FromStatus: StatusNone,
        ToStatus:   StatusPending,
        ActorType:  string(RoleCustomer),
        ActorID:    &customer,
        CreatedAt:  now,
    })
    transitions.WithLabelValues(string(StatusPending)).Inc()
    s.notify(ctx)
    return o.Clone(), nil
}

// Transition validates and applies a status write. The first write into
// DELIVERED settles the order; later DELIVERED writes only attach feedback
// that is still missing, otherwise they return the stored order untouched.
func (s *Service) Transition(ctx context.Context, cmd TransitionCommand) (*Order, error) {
    if !cmd.To.Valid() {
        return nil, ErrBadRequest
    }
    if cmd.To != StatusDelivered {
        return s.transition(ctx, cmd)
    }
    // collapse duplicate in-flight deliveries of the same order
    v, err, _ := s.flight.Do(string(cmd.OrderID)+"|"+cmd.Actor.key(), func() (interface{}, error) {
        return s.transition(ctx, cmd)
    })
    if err != nil {
        return nil, err
    }
    return v.(*Order).Clone(), nil
}

func (s *Service) transition(ctx context.Context, cmd TransitionCommand) (*Order, error) {
    o, err := s.store.Get(ctx, cmd.OrderID)
    if err != nil {
        return nil, err
    }
    if err := authorize(cmd.Actor, o, cmd.To); err != nil {
        return nil, err
    }
    prev := o.Status
    // feedback arriving after delivery is attached once and never re-settles
    lateFeedback := prev == StatusDelivered && cmd.To == StatusDelivered && o.Rating == nil && cmd.Patch.hasFeedback()
    if prev == cmd.To && prev.Terminal() && !lateFeedback {
        return o, nil
    }
    if !s.opts.Permissive && !CanTransition(prev, cmd.To) {
        return nil, ErrInvalidState
    }

    now := time.Now().UTC()
    next := o.Clone()
    if lateFeedback {
        cmd.Patch = Patch{Rating: cmd.Patch.Rating, Comment: cmd.Patch.Comment, TipAmount: cmd.Patch.TipAmount}
    }
    cmd.Patch.apply(next)
    next.Status = cmd.To
    next.StatusVersion = o.StatusVersion + 1
    next.UpdatedAt = now
    settle := cmd.To == StatusDelivered && o.SettledAt == nil
    switch cmd.To {
    case StatusDelivered:
        if next.DeliveredAt == nil {
            next.DeliveredAt = &now
        }
        if settle {
            next.SettledAt = &now
        }
    case StatusCancelled:
        next.CancelledAt = &now
        if cmd.Reason != "" {
            reason := cmd.Reason
            next.CancelReason = &reason
        }
    }

    ok, err := s.store.Update(ctx, next, o.StatusVersion)
    if err != nil {
        return nil, err
    }
    if !ok {
        return nil, ErrConflict
    }

    actorType, actorID := cmd.Actor.describe()
    s.recordEvent(ctx, &Event{
        OrderID:    next.ID,
        FromStatus: prev,
        ToStatus:   cmd.To,
        ActorType:  actorType,
        ActorID:    actorID,
        CreatedAt:  now,
    })
    transitions.WithLabelValues(string(cmd.To)).Inc()

    switch {
    case settle && s.settler != nil:
        if err := s.settler.Settle(ctx, next.Clone()); err != nil {
            settlements.WithLabelValues("error").Inc()
            s.logger.Error("settlement failed", "order_id", next.ID, "error", err)
        } else {
            settlements.WithLabelValues("ok").Inc()
        }
    case lateFeedback && o.SettledAt != nil && next.Tip().IsPositive():
        if tipper, ok := s.settler.(TipSettler); ok {
            if err := tipper.SettleTip(ctx, next.Clone()); err != nil {
                s.logger.Error("late tip settlement failed", "order_id", next.ID, "error", err)
            }
        }
    }

    s.notify(ctx)
    return next, nil
}

// ForceAssign hands an order to a rider. Orders still PENDING are accepted in
// the same write; orders further along keep their status.
func (s *Service) ForceAssign(ctx context.Context, cmd AssignCommand) (*Order, error) {
    email := normalizeEmail(cmd.RiderEmail)
    if email == "" {
        return nil, ErrBadRequest
    }
    o, err := s.store.Get(ctx, cmd.OrderID)
    if err != nil {
        return nil, err
    }
    if o.Status.Terminal() {
        return nil, ErrInvalidState
    }
    to := StatusAccepted
    if statusRank[o.Status] > statusRank[StatusAccepted] {
        to = o.Status
    }
    name := cmd.RiderName
    return s.Transition(ctx, TransitionCommand{
        OrderID: cmd.OrderID,
        To:      to,
        Patch:   Patch{RiderEmail: &email, RiderName: &name},
        Actor:   cmd.Actor,
    })
}

// Claim lets a rider take an unassigned pickup-ready order from the market.
func (s *Service) Claim(ctx context.Context, cmd ClaimCommand) (*Order, error) {
    email := normalizeEmail(cmd.RiderEmail)
    if email == "" {
        return nil, ErrBadRequest
    }
    o, err := s.store.Get(ctx, cmd.OrderID)
    if err != nil {
        return nil, err
    }
    if o.Status != StatusReadyForPickup {
        return nil, ErrInvalidState
    }
    if o.RiderEmail != nil && *o.RiderEmail != "" {
        if *o.RiderEmail == email {
            return o, nil
        }
        return nil, ErrConflict
    }
    name := cmd.RiderName
    return s.Transition(ctx, TransitionCommand{
        OrderID: cmd.OrderID,
        To:      StatusReadyForPickup,
        Patch:   Patch{RiderEmail: &email, RiderName: &name},
        Actor:   Actor{Role: RoleRider, Email: email, claiming: true},
    })
}

func (s *Service) SubmitFeedback(ctx context.Context, cmd FeedbackCommand) (*Order, error) {
    if cmd.Rating < 1 || cmd.Rating > 5 || cmd.Tip.IsNegative() {
        return nil, ErrBadRequest
    }
    rating := cmd.Rating
    comment := cmd.Comment
    tip := cmd.Tip
    return s.Transition(ctx, TransitionCommand{
        OrderID: cmd.OrderID,
        To:      StatusDelivered,
        Patch:   Patch{Rating: &rating, Comment: &comment, TipAmount: &tip},
        Actor:   cmd.Actor,
    })
}

func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*Order, error) {
    return s.Transition(ctx, TransitionCommand{
        OrderID: cmd.OrderID,
        To:      StatusCancelled,
        Actor:   cmd.Actor,
        Reason:  cmd.Reason,
    })
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Order, error) {
    return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]*Order, error) {
    return s.store.List(ctx, f)
}

func (s *Service) recordEvent(ctx context.Context, e *Event) {
    if err := s.store.AppendEvent(ctx, e); err != nil {
        s.logger.Warn("append order event failed", "order_id", e.OrderID, "error", err)
    }
    if s.audit != nil {
        if err := s.audit.Record(ctx, *e); err != nil {
            s.logger.Warn("audit order event failed", "order_id", e.OrderID, "error", err)
        }
    }
}

func (s *Service) notify(ctx context.Context) {
    if s.notifier == nil {
        return
    }
    if err := s.notifier.Publish(ctx); err != nil {
        s.logger.Warn("order fan-out failed", "error", err)
    }
}

func normalizeEmail(v string) string {
    return strings.ToLower(strings.TrimSpace(v))
}
