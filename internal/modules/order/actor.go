package order

import "strings"

type Role string

const (
	RoleSystem   Role = ""
	RoleCustomer Role = "customer"
	RoleMerchant Role = "merchant"
	RoleRider    Role = "rider"
	RoleAdmin    Role = "admin"
)

// Actor is the caller on whose behalf a write is made.
type Actor struct {
	Role       Role
	Email      string
	Restaurant string

	claiming bool
}

func (a Actor) key() string {
	return string(a.Role) + ":" + normalizeEmail(a.Email)
}

func (a Actor) describe() (string, *string) {
	kind := string(a.Role)
	if kind == "" {
		kind = "system"
	}
	email := normalizeEmail(a.Email)
	if email == "" {
		return kind, nil
	}
	return kind, &email
}

// authorize scopes a write to what the actor's role may touch.
func authorize(a Actor, o *Order, to Status) error {
	switch a.Role {
	case RoleSystem, RoleAdmin:
		return nil
	case RoleMerchant:
		if a.Restaurant == "" || a.Restaurant != o.RestaurantName {
			return ErrForbidden
		}
		switch to {
		case StatusAccepted, StatusPreparing, StatusReadyForPickup, StatusCancelled:
			return nil
		}
		return ErrForbidden
	case RoleRider:
		email := normalizeEmail(a.Email)
		if a.claiming {
			if to != StatusReadyForPickup {
				return ErrForbidden
			}
			if o.RiderEmail != nil && *o.RiderEmail != "" && !o.AssignedTo(email) {
				return ErrConflict
			}
			return nil
		}
		if email == "" || !o.AssignedTo(email) {
			return ErrForbidden
		}
		switch to {
		case StatusOutForDelivery:
			if o.Status == StatusReadyForPickup || o.Status == StatusOutForDelivery {
				return nil
			}
		case StatusDelivered:
			if o.Status == StatusOutForDelivery || o.Status == StatusDelivered {
				return nil
			}
		}
		return ErrForbidden
	case RoleCustomer:
		if !strings.EqualFold(normalizeEmail(a.Email), o.CustomerEmail) {
			return ErrForbidden
		}
		switch to {
		case StatusDelivered:
			if o.Status == StatusOutForDelivery || o.Status == StatusDelivered {
				return nil
			}
		case StatusCancelled:
			if o.Status == StatusPending || o.Status == StatusCancelled {
				return nil
			}
		}
		return ErrForbidden
	}
	return ErrForbidden
}
