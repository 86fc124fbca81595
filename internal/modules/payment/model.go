// README: Payment collaborator contract: charge requests, receipts and denials.
package payment

import (
	"errors"
	"time"

	"feast/internal/types"
)

type Method string

const (
	MethodWallet Method = "wallet"
	MethodCard   Method = "card"
	MethodCash   Method = "cash"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrGatewayFault      = errors.New("payment gateway fault")
	ErrInvalidCharge     = errors.New("invalid charge request")
)

type ChargeRequest struct {
	CustomerEmail string
	Method        Method
	Amount        types.Money
}

type Receipt struct {
	Reference string
	Method    Method
	Amount    types.Money
	ChargedAt time.Time
}

// DeniedError is a declined charge. Reference is the support code shown to the customer.
type DeniedError struct {
	Reason    error
	Reference string
}

func (e *DeniedError) Error() string {
	return e.Reason.Error() + " (ref " + e.Reference + ")"
}

func (e *DeniedError) Unwrap() error {
	return e.Reason
}
