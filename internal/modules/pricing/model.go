// README: Pricing inputs and the placement quote.
package pricing

import "feast/internal/types"

type VoucherKind string

const (
    VoucherPercent VoucherKind = "percent"
    VoucherFixed   VoucherKind = "fixed"
)

// Voucher discounts the subtotal. Percent vouchers carry a whole percentage in Value.
type Voucher struct {
    Code  string      `json:"code"`
    Kind  VoucherKind `json:"kind"`
    Value types.Money `json:"value"`
}

type Line struct {
    Price    types.Money
    Quantity int
}

type QuoteRequest struct {
    Lines   []Line
    Voucher *Voucher
}

type Quote struct {
    Subtotal     types.Money `json:"subtotal"`
    DeliveryFee  types.Money `json:"deliveryFee"`
    Discount     types.Money `json:"discount"`
    Total        types.Money `json:"total"`
    PointsEarned int64       `json:"pointsEarned"`
}

// pointsDivisor is how much spend earns one loyalty point.
const pointsDivisor = 10
