// README: Settlement payout split between merchant, rider and customer loyalty.
package settlement

import (
	"github.com/shopspring/decimal"

	"feast/internal/types"
)

// MerchantShare is the merchant's fraction of the order total.
var MerchantShare = decimal.RequireFromString("0.85")

type Split struct {
	MerchantCut  types.Money `json:"merchantCut"`
	RiderCut     types.Money `json:"riderCut"`
	PointsEarned int64       `json:"pointsEarned"`
	XP           int64       `json:"xp"`
}
