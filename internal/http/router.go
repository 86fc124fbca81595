// README: HTTP router registration.
package http

import (
    "log/slog"
    "net/http"

    "github.com/gin-gonic/gin"
    "github.com/prometheus/client_golang/prometheus/promhttp"

    "feast/internal/http/handlers"
    "feast/internal/http/middleware"
    "feast/internal/infra"
    "feast/internal/modules/account"
    "feast/internal/modules/dispatch"
    "feast/internal/modules/events"
    "feast/internal/modules/ledger"
    "feast/internal/modules/order"
    "feast/internal/modules/pricing"
)

type RouterDeps struct {
    Order    *order.Service
    Dispatch *dispatch.Service
    Pricing  *pricing.Service
    Accounts *account.Service
    Ledger   *ledger.Service
    Wallets  handlers.Wallets
    Hub      *events.Hub
    Verifier infra.TokenVerifier
    Logger   *slog.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
    r := gin.New()
    r.Use(middleware.Recovery(deps.Logger), middleware.Logging(deps.Logger), middleware.Metrics())

    r.GET("/health", func(c *gin.Context) {
        c.String(http.StatusOK, "OK")
    })
    r.GET("/metrics", gin.WrapH(promhttp.Handler()))

    api := r.Group("/api", middleware.Auth(deps.Verifier))

    orderHandler := handlers.NewOrderHandler(deps.Order, deps.Dispatch)
    api.POST("/orders", orderHandler.Create)
    api.GET("/orders/:id", orderHandler.Get)
    api.POST("/orders/:id/feedback", orderHandler.Feedback)
    api.POST("/orders/:id/cancel", orderHandler.Cancel)
    api.GET("/me/live-order", orderHandler.LiveOrder)

    accountHandler := handlers.NewAccountHandler(deps.Accounts, deps.Ledger)
    api.POST("/me/account", accountHandler.Register)
    api.GET("/me/account", accountHandler.Me)
    api.GET("/me/ledger", accountHandler.Ledger)

    walletHandler := handlers.NewWalletHandler(deps.Wallets)
    api.GET("/me/wallet", walletHandler.Balance)

    merchantHandler := handlers.NewMerchantHandler(deps.Order, deps.Dispatch)
    merchant := api.Group("/merchant", middleware.RequireRole("merchant"))
    merchant.GET("/orders", merchantHandler.List)
    merchant.POST("/orders/:id/status", merchantHandler.SetStatus)

    riderHandler := handlers.NewRiderHandler(deps.Order, deps.Dispatch)
    rider := api.Group("/rider", middleware.RequireRole("rider"))
    rider.GET("/market", riderHandler.Market)
    rider.GET("/orders", riderHandler.Queue)
    rider.POST("/orders/:id/claim", riderHandler.Claim)
    rider.POST("/orders/:id/status", riderHandler.SetStatus)

    adminHandler := handlers.NewAdminHandler(deps.Order, deps.Dispatch, deps.Pricing)
    admin := api.Group("/admin", middleware.RequireRole("admin"))
    admin.GET("/orders/live", adminHandler.LiveOrders)
    admin.POST("/orders/:id/assign", adminHandler.Assign)
    admin.GET("/config/delivery-fee", adminHandler.DeliveryFee)
    admin.PUT("/config/delivery-fee", adminHandler.SetDeliveryFee)
    admin.POST("/wallets/:email/top-up", walletHandler.TopUp)

    streamHandler := handlers.NewStreamHandler(deps.Hub, deps.Logger)
    api.GET("/stream", streamHandler.Serve)

    return r
}
