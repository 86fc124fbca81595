// README: Customer order handlers: place, get, feedback, cancel and live order.
package handlers

import (
    "errors"
    "net/http"

    "github.com/gin-gonic/gin"

    "feast/internal/http/middleware"
    "feast/internal/modules/dispatch"
    "feast/internal/modules/order"
    "feast/internal/modules/payment"
    "feast/internal/modules/pricing"
    "feast/internal/types"
)

type OrderHandler struct {
    order    *order.Service
    dispatch *dispatch.Service
}

func NewOrderHandler(orderSvc *order.Service, dispatchSvc *dispatch.Service) *OrderHandler {
    return &OrderHandler{order: orderSvc, dispatch: dispatchSvc}
}

type createOrderReq struct {
    RestaurantName  string           `json:"restaurantName"`
    MerchantID      string           `json:"merchantId"`
    DeliveryAddress string           `json:"deliveryAddress"`
    Items           []order.Item     `json:"items"`
    Voucher         *pricing.Voucher `json:"voucher"`
    PaymentMethod   string           `json:"paymentMethod"`
}

func (h *OrderHandler) Create(c *gin.Context) {
    var req createOrderReq
    if err := c.ShouldBindJSON(&req); err != nil {
        writeError(c, http.StatusBadRequest, "invalid json")
        return
    }
    if middleware.CallerRole(c) != "" && middleware.CallerRole(c) != string(order.RoleCustomer) {
        writeError(c, http.StatusForbidden, "forbidden: customer role required")
        return
    }
    cmd := order.PlaceCommand{
        CustomerEmail:   middleware.CallerEmail(c),
        CustomerName:    middleware.CallerName(c),
        RestaurantName:  req.RestaurantName,
        MerchantID:      req.MerchantID,
        DeliveryAddress: req.DeliveryAddress,
        Items:           req.Items,
        Voucher:         req.Voucher,
    }
    if req.PaymentMethod != "" {
        cmd.Payment = &order.PaymentDetails{Method: payment.Method(req.PaymentMethod)}
    }
    o, err := h.order.Place(c.Request.Context(), cmd)
    if err != nil {
        writeOrderError(c, err)
        return
    }
    writeJSON(c, http.StatusCreated, o)
}

func (h *OrderHandler) Get(c *gin.Context) {
    id, ok := orderID(c)
    if !ok {
        return
    }
    o, err := h.order.Get(c.Request.Context(), id)
    if err != nil {
        writeOrderError(c, err)
        return
    }
    if !canView(c, o) {
        writeError(c, http.StatusForbidden, "forbidden")
        return
    }
    writeJSON(c, http.StatusOK, o)
}

type feedbackReq struct {
    Rating  int          `json:"rating"`
    Comment string       `json:"comment"`
    Tip     *types.Money `json:"tip"`
}

func (h *OrderHandler) Feedback(c *gin.Context) {
    id, ok := orderID(c)
    if !ok {
        return
    }
    var req feedbackReq
    if err := c.ShouldBindJSON(&req); err != nil {
        writeError(c, http.StatusBadRequest, "invalid json")
        return
    }
    tip := types.Amount(0)
    if req.Tip != nil {
        tip = *req.Tip
    }
    o, err := h.order.SubmitFeedback(c.Request.Context(), order.FeedbackCommand{
        OrderID: id,
        Rating:  req.Rating,
        Comment: req.Comment,
        Tip:     tip,
        Actor:   actor(c),
    })
    if err != nil {
        writeOrderError(c, err)
        return
    }
    writeJSON(c, http.StatusOK, o)
}

type cancelReq struct {
    Reason string `json:"reason"`
}

func (h *OrderHandler) Cancel(c *gin.Context) {
    id, ok := orderID(c)
    if !ok {
        return
    }
    var req cancelReq
    _ = c.ShouldBindJSON(&req)
    if req.Reason == "" {
        req.Reason = "user_cancel"
    }
    o, err := h.order.Cancel(c.Request.Context(), order.CancelCommand{
        OrderID: id,
        Reason:  req.Reason,
        Actor:   actor(c),
    })
    if err != nil {
        writeOrderError(c, err)
        return
    }
    writeJSON(c, http.StatusOK, o)
}

func (h *OrderHandler) LiveOrder(c *gin.Context) {
    o, err := h.dispatch.LiveOrder(c.Request.Context(), middleware.CallerEmail(c))
    if errors.Is(err, dispatch.ErrNoLiveOrder) {
        c.Status(http.StatusNoContent)
        return
    }
    if err != nil {
        writeOrderError(c, err)
        return
    }
    writeJSON(c, http.StatusOK, o)
}

func canView(c *gin.Context, o *order.Order) bool {
    email := middleware.CallerEmail(c)
    switch order.Role(middleware.CallerRole(c)) {
    case order.RoleAdmin:
        return true
    case order.RoleMerchant:
        return middleware.CallerRestaurant(c) == o.RestaurantName
    case order.RoleRider:
        // unassigned pickup-ready orders are public to riders
        return o.AssignedTo(email) || (o.Status == order.StatusReadyForPickup && o.RiderEmail == nil)
    }
    return o.CustomerEmail == email
}
