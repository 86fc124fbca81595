// README: Order aggregate and status definitions.
package order

import (
    "time"

    "feast/internal/types"
)

type Status string

const (
    StatusNone           Status = ""
    StatusPending        Status = "PENDING"
    StatusAccepted       Status = "ACCEPTED"
    StatusPreparing      Status = "PREPARING"
    StatusReadyForPickup Status = "READY_FOR_PICKUP"
    StatusOutForDelivery Status = "OUT_FOR_DELIVERY"
    StatusDelivered      Status = "DELIVERED"
    StatusCancelled      Status = "CANCELLED"
)

// Item is a line captured by value at placement time.
type Item struct {
    Name     string      `json:"name"`
    Quantity int         `json:"quantity"`
    Price    types.Money `json:"price"`
}

type Order struct {
    ID              types.ID     `json:"id"`
    Items           []Item       `json:"items"`
    Subtotal        types.Money  `json:"subtotal"`
    DeliveryFee     types.Money  `json:"deliveryFee"`
    Discount        types.Money  `json:"discount"`
    Total           types.Money  `json:"total"`
    PointsEarned    int64        `json:"pointsEarned"`
    Status          Status       `json:"status"`
    StatusVersion   int          `json:"statusVersion"`
    RestaurantName  string       `json:"restaurantName"`
    MerchantID      string       `json:"merchantId,omitempty"`
    CustomerEmail   string       `json:"customerEmail"`
    CustomerName    string       `json:"customerName"`
    DeliveryAddress string       `json:"deliveryAddress"`
    RiderName       *string      `json:"riderName"`
    RiderEmail      *string      `json:"riderEmail"`
    TipAmount       *types.Money `json:"tipAmount"`
    Rating          *int         `json:"rating"`
    Comment         *string      `json:"comment"`
    PaymentRef      string       `json:"paymentRef,omitempty"`
    CreatedAt       time.Time    `json:"createdAt"`
    UpdatedAt       time.Time    `json:"updatedAt"`
    DeliveredAt     *time.Time   `json:"deliveredAt,omitempty"`
    CancelledAt     *time.Time   `json:"cancelledAt,omitempty"`
    CancelReason    *string      `json:"cancelReason,omitempty"`
    // SettledAt is set by the write that settles the order; it is never cleared.
    SettledAt       *time.Time   `json:"settledAt,omitempty"`
}

// Patch is merged onto an order before its status is written.
type Patch struct {
    RiderEmail *string
    RiderName  *string
    TipAmount  *types.Money
    Rating     *int
    Comment    *string
}

func (p Patch) apply(o *Order) {
    if p.RiderEmail != nil {
        v := *p.RiderEmail
        o.RiderEmail = &v
    }
    if p.RiderName != nil {
        v := *p.RiderName
        o.RiderName = &v
    }
    if p.TipAmount != nil {
        v := *p.TipAmount
        o.TipAmount = &v
    }
    if p.Rating != nil {
        v := *p.Rating
        o.Rating = &v
    }
    if p.Comment != nil {
        v := *p.Comment
        o.Comment = &v
    }
}

func (p Patch) hasFeedback() bool {
    return p.Rating != nil || p.Comment != nil || p.TipAmount != nil
}

func (o *Order) Clone() *Order {
    cp := *o
    cp.Items = append([]Item(nil), o.Items...)
    return &cp
}

// Tip returns the tip or zero.
func (o *Order) Tip() types.Money {
    if o.TipAmount == nil {
        return types.Amount(0)
    }
    return *o.TipAmount
}

func (o *Order) AssignedTo(email string) bool {
    return o.RiderEmail != nil && *o.RiderEmail == email
}

type Event struct {
    ID         int64
    OrderID    types.ID
    FromStatus Status
    ToStatus   Status
    ActorType  string
    ActorID    *string
    CreatedAt  time.Time
}

func (s Status) Terminal() bool {
    return s == StatusDelivered || s == StatusCancelled
}

func (s Status) Valid() bool {
    _, ok := statusRank[s]
    return ok
}

// statusRank orders the delivery path; CANCELLED sits outside it.
var statusRank = map[Status]int{
    StatusPending:        0,
    StatusAccepted:       1,
    StatusPreparing:      2,
    StatusReadyForPickup: 3,
    StatusOutForDelivery: 4,
    StatusDelivered:      5,
    StatusCancelled:      -1,
}

// CanTransition reports whether an order in from may be written as to.
// Re-applying the current status is allowed; otherwise progression is
// forward-only and terminal states accept nothing else.
func CanTransition(from, to Status) bool {
    if !from.Valid() || !to.Valid() {
        return false
    }
    if from == to {
        return true
    }
    if from.Terminal() {
        return false
    }
    if to == StatusCancelled {
        return true
    }
    return statusRank[to] > statusRank[from]
}
