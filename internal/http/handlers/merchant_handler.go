package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"feast/internal/http/middleware"
	"feast/internal/modules/dispatch"
	"feast/internal/modules/order"
)

type MerchantHandler struct {
	order    *order.Service
	dispatch *dispatch.Service
}

func NewMerchantHandler(orderSvc *order.Service, dispatchSvc *dispatch.Service) *MerchantHandler {
	return &MerchantHandler{order: orderSvc, dispatch: dispatchSvc}
}

func (h *MerchantHandler) List(c *gin.Context) {
	list, err := h.dispatch.MerchantQueue(c.Request.Context(), middleware.CallerRestaurant(c))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"orders": list})
}

type statusReq struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (h *MerchantHandler) SetStatus(c *gin.Context) {
	setStatus(c, h.order)
}

// setStatus applies a role-scoped transition; the service enforces the scope.
func setStatus(c *gin.Context, svc *order.Service) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		writeError(c, http.StatusBadRequest, "missing status")
		return
	}
	o, err := svc.Transition(c.Request.Context(), order.TransitionCommand{
		OrderID: id,
		To:      order.Status(req.Status),
		Actor:   actor(c),
		Reason:  req.Reason,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}
