// README: Order repository contract shared by the Postgres and in-memory stores.
package order

import (
	"context"
	"strings"

	"feast/internal/types"
)

// Repository is the durable collection of orders. List returns newest first.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id types.ID) (*Order, error)
	// Update writes o only if the stored StatusVersion equals version.
	Update(ctx context.Context, o *Order, version int) (bool, error)
	List(ctx context.Context, f Filter) ([]*Order, error)
	AppendEvent(ctx context.Context, e *Event) error
}

// Filter selects orders; zero fields do not constrain.
type Filter struct {
	CustomerEmail  string
	RestaurantName string
	RiderEmail     string
	Statuses       []Status
	ActiveOnly     bool
	Unassigned     bool
	Limit          int
}

func (f Filter) Match(o *Order) bool {
	if f.CustomerEmail != "" && !strings.EqualFold(o.CustomerEmail, f.CustomerEmail) {
		return false
	}
	if f.RestaurantName != "" && o.RestaurantName != f.RestaurantName {
		return false
	}
	if f.RiderEmail != "" && (o.RiderEmail == nil || !strings.EqualFold(*o.RiderEmail, f.RiderEmail)) {
		return false
	}
	if f.Unassigned && o.RiderEmail != nil && *o.RiderEmail != "" {
		return false
	}
	if f.ActiveOnly && o.Status.Terminal() {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if o.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
