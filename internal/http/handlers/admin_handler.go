package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"feast/internal/modules/dispatch"
	"feast/internal/modules/order"
	"feast/internal/modules/pricing"
	"feast/internal/types"
)

type AdminHandler struct {
	order    *order.Service
	dispatch *dispatch.Service
	pricing  *pricing.Service
}

func NewAdminHandler(orderSvc *order.Service, dispatchSvc *dispatch.Service, pricingSvc *pricing.Service) *AdminHandler {
	return &AdminHandler{order: orderSvc, dispatch: dispatchSvc, pricing: pricingSvc}
}

func (h *AdminHandler) LiveOrders(c *gin.Context) {
	list, err := h.dispatch.LiveOrders(c.Request.Context())
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"orders": list})
}

type assignReq struct {
	RiderEmail string `json:"riderEmail"`
	RiderName  string `json:"riderName"`
}

func (h *AdminHandler) Assign(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req assignReq
	if err := c.ShouldBindJSON(&req); err != nil || req.RiderEmail == "" {
		writeError(c, http.StatusBadRequest, "missing riderEmail")
		return
	}
	o, err := h.order.ForceAssign(c.Request.Context(), order.AssignCommand{
		OrderID:    id,
		RiderEmail: req.RiderEmail,
		RiderName:  req.RiderName,
		Actor:      actor(c),
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

type deliveryFeeReq struct {
	Fee *types.Money `json:"fee"`
}

func (h *AdminHandler) SetDeliveryFee(c *gin.Context) {
	var req deliveryFeeReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Fee == nil {
		writeError(c, http.StatusBadRequest, "missing fee")
		return
	}
	if err := h.pricing.SetDeliveryFee(c.Request.Context(), *req.Fee); err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"deliveryFee": *req.Fee})
}

func (h *AdminHandler) DeliveryFee(c *gin.Context) {
	fee, err := h.pricing.DeliveryFee(c.Request.Context())
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"deliveryFee": fee})
}
