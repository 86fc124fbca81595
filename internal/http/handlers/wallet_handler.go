package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"feast/internal/http/middleware"
	"feast/internal/types"
)

// Wallets holds prepaid balances charged by the wallet payment method.
type Wallets interface {
	TopUp(email string, amount types.Money)
	Balance(email string) types.Money
}

type WalletHandler struct {
	wallets Wallets
}

func NewWalletHandler(wallets Wallets) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

type topUpReq struct {
	Amount *types.Money `json:"amount"`
}

// TopUp credits a customer's wallet (admin).
func (h *WalletHandler) TopUp(c *gin.Context) {
	email := strings.ToLower(strings.TrimSpace(c.Param("email")))
	var req topUpReq
	if err := c.ShouldBindJSON(&req); err != nil || email == "" || req.Amount == nil || !req.Amount.IsPositive() {
		writeError(c, http.StatusBadRequest, "missing email or positive amount")
		return
	}
	h.wallets.TopUp(email, *req.Amount)
	writeJSON(c, http.StatusOK, map[string]any{"email": email, "balance": h.wallets.Balance(email)})
}

func (h *WalletHandler) Balance(c *gin.Context) {
	email := middleware.CallerEmail(c)
	writeJSON(c, http.StatusOK, map[string]any{"email": email, "balance": h.wallets.Balance(email)})
}
