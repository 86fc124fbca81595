// README: Dispatch service derives read-only order projections, recomputed per query.
package dispatch

import (
	"context"
	"errors"
	"strings"

	"feast/internal/modules/order"
)

var ErrNoLiveOrder = errors.New("no live order")

type OrderLister interface {
	List(ctx context.Context, f order.Filter) ([]*order.Order, error)
}

type Service struct {
	orders OrderLister
	opts   Options
}

func NewService(orders OrderLister, opts Options) *Service {
	return &Service{orders: orders, opts: opts}
}

// OpenMarket returns unassigned orders waiting for pickup. The zone is
// advisory unless StrictZone is set.
func (s *Service) OpenMarket(ctx context.Context, zone string) ([]*order.Order, error) {
	list, err := s.orders.List(ctx, order.Filter{
		Statuses:   []order.Status{order.StatusReadyForPickup},
		Unassigned: true,
	})
	if err != nil {
		return nil, err
	}
	zone = strings.ToLower(strings.TrimSpace(zone))
	if !s.opts.StrictZone || zone == "" {
		return list, nil
	}
	out := list[:0]
	for _, o := range list {
		if strings.Contains(strings.ToLower(o.DeliveryAddress), zone) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *Service) RiderQueue(ctx context.Context, riderEmail string) (RiderQueue, error) {
	q := RiderQueue{Active: []*order.Order{}, History: []*order.Order{}}
	email := strings.ToLower(strings.TrimSpace(riderEmail))
	if email == "" {
		return q, nil
	}
	list, err := s.orders.List(ctx, order.Filter{RiderEmail: email})
	if err != nil {
		return q, err
	}
	for _, o := range list {
		if o.Status.Terminal() {
			q.History = append(q.History, o)
		} else {
			q.Active = append(q.Active, o)
		}
	}
	return q, nil
}

func (s *Service) MerchantQueue(ctx context.Context, restaurant string) ([]*order.Order, error) {
	if restaurant == "" {
		return []*order.Order{}, nil
	}
	return s.orders.List(ctx, order.Filter{RestaurantName: restaurant})
}

func (s *Service) LiveOrders(ctx context.Context) ([]*order.Order, error) {
	return s.orders.List(ctx, order.Filter{ActiveOnly: true})
}

// LiveOrder returns the customer's most recently placed non-terminal order.
func (s *Service) LiveOrder(ctx context.Context, customerEmail string) (*order.Order, error) {
	if strings.TrimSpace(customerEmail) == "" {
		return nil, ErrNoLiveOrder
	}
	list, err := s.orders.List(ctx, order.Filter{
		CustomerEmail: strings.TrimSpace(customerEmail),
		ActiveOnly:    true,
		Limit:         1,
	})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNoLiveOrder
	}
	return list[0], nil
}
