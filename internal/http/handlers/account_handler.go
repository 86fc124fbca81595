package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"feast/internal/http/middleware"
	"feast/internal/modules/account"
	"feast/internal/modules/ledger"
)

type AccountHandler struct {
	accounts *account.Service
	ledger   *ledger.Service
}

func NewAccountHandler(accounts *account.Service, ledgerSvc *ledger.Service) *AccountHandler {
	return &AccountHandler{accounts: accounts, ledger: ledgerSvc}
}

type registerReq struct {
	MerchantID string `json:"merchantId"`
}

// Register creates the caller's account from its token claims.
func (h *AccountHandler) Register(c *gin.Context) {
	var req registerReq
	_ = c.ShouldBindJSON(&req)
	role := account.Role(middleware.CallerRole(c))
	if role == "" {
		role = account.RoleCustomer
	}
	name := middleware.CallerName(c)
	if role == account.RoleMerchant {
		name = middleware.CallerRestaurant(c)
	}
	a, err := h.accounts.Register(c.Request.Context(), account.Account{
		Email:      middleware.CallerEmail(c),
		Name:       name,
		Role:       role,
		MerchantID: req.MerchantID,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, a)
}

func (h *AccountHandler) Me(c *gin.Context) {
	a, err := h.accounts.Get(c.Request.Context(), middleware.CallerEmail(c))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, a)
}

func (h *AccountHandler) Ledger(c *gin.Context) {
	entries, err := h.ledger.List(c.Request.Context(), middleware.CallerEmail(c))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"entries": entries})
}
