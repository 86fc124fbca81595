// README: Rider handlers for the open market, duty queue, claims and delivery progress.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"feast/internal/http/middleware"
	"feast/internal/modules/dispatch"
	"feast/internal/modules/order"
)

type RiderHandler struct {
	order    *order.Service
	dispatch *dispatch.Service
}

func NewRiderHandler(orderSvc *order.Service, dispatchSvc *dispatch.Service) *RiderHandler {
	return &RiderHandler{order: orderSvc, dispatch: dispatchSvc}
}

func (h *RiderHandler) Market(c *gin.Context) {
	list, err := h.dispatch.OpenMarket(c.Request.Context(), c.Query("zone"))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"orders": list})
}

func (h *RiderHandler) Queue(c *gin.Context) {
	q, err := h.dispatch.RiderQueue(c.Request.Context(), middleware.CallerEmail(c))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, q)
}

func (h *RiderHandler) Claim(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	o, err := h.order.Claim(c.Request.Context(), order.ClaimCommand{
		OrderID:    id,
		RiderEmail: middleware.CallerEmail(c),
		RiderName:  middleware.CallerName(c),
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

func (h *RiderHandler) SetStatus(c *gin.Context) {
	setStatus(c, h.order)
}
