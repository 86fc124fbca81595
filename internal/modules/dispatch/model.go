// README: Dispatch views: the open market, rider and merchant queues, and live orders.
package dispatch

import "feast/internal/modules/order"

// RiderQueue splits a rider's orders into the ones still on duty and history.
type RiderQueue struct {
	Active  []*order.Order `json:"active"`
	History []*order.Order `json:"history"`
}

type Options struct {
	// StrictZone drops market orders whose delivery address does not mention the zone.
	StrictZone bool
}
