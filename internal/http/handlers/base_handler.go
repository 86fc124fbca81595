// README: Base handler utilities (JSON helpers, caller identity, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"feast/internal/http/middleware"
	"feast/internal/modules/account"
	"feast/internal/modules/order"
	"feast/internal/modules/payment"
	"feast/internal/modules/pricing"
	"feast/internal/types"
)

type errorResponse struct {
	Error     string `json:"error"`
	Reference string `json:"reference,omitempty"`
}

// isValidID accepts uuid-shaped ids and legacy alphanumeric ids.
func isValidID(v string) bool {
	if v == "" || len(v) > 64 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' {
			continue
		}
		return false
	}
	return true
}

func orderID(c *gin.Context) (types.ID, bool) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid order id")
		return "", false
	}
	return types.ID(id), true
}

// actor maps the caller to an order actor; tokens without a role are customers.
func actor(c *gin.Context) order.Actor {
	role := order.Role(middleware.CallerRole(c))
	if role == order.RoleSystem {
		role = order.RoleCustomer
	}
	return order.Actor{
		Role:       role,
		Email:      middleware.CallerEmail(c),
		Restaurant: middleware.CallerRestaurant(c),
	}
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeOrderError(c *gin.Context, err error) {
	var denied *payment.DeniedError
	switch {
	case errors.As(err, &denied):
		status := http.StatusPaymentRequired
		if errors.Is(err, payment.ErrGatewayFault) {
			status = http.StatusBadGateway
		}
		writeJSON(c, status, errorResponse{Error: denied.Error(), Reference: denied.Reference})
	case errors.Is(err, order.ErrBadRequest), errors.Is(err, pricing.ErrInvalidFee),
		errors.Is(err, payment.ErrInvalidCharge), errors.Is(err, account.ErrBadAccount):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotFound), errors.Is(err, account.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, order.ErrInvalidState), errors.Is(err, order.ErrActiveOrder),
		errors.Is(err, order.ErrConflict), errors.Is(err, account.ErrDuplicate):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
