// README: Account registry records for customers, merchants, riders and admins.
package account

import (
	"strings"
	"time"

	"feast/internal/types"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleMerchant Role = "merchant"
	RoleRider    Role = "rider"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleMerchant, RoleRider, RoleAdmin:
		return true
	}
	return false
}

type Account struct {
	Email      string      `json:"email"`
	Name       string      `json:"name"`
	Role       Role        `json:"role"`
	MerchantID string      `json:"merchantId,omitempty"`
	Points     int64       `json:"points"`
	XP         int64       `json:"xp"`
	Level      int         `json:"level"`
	Earnings   types.Money `json:"earnings"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// Delta is added to an account's balances in one write.
type Delta struct {
	Earnings types.Money
	Points   int64
	XP       int64
}

func (d Delta) IsZero() bool {
	return d.Earnings.IsZero() && d.Points == 0 && d.XP == 0
}

const xpPerLevel = 5000

// LevelFor returns floor(xp/5000) + 1.
func LevelFor(xp int64) int {
	if xp < 0 {
		return 1
	}
	return int(xp/xpPerLevel) + 1
}

func NormalizeEmail(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func (a *Account) apply(d Delta) {
	a.Earnings = a.Earnings.Add(d.Earnings)
	a.Points += d.Points
	a.XP += d.XP
	a.Level = LevelFor(a.XP)
}
