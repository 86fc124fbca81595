package order

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feast",
		Name:      "order_transitions_total",
		Help:      "Order status writes by target status.",
	}, []string{"status"})

	settlements = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feast",
		Name:      "order_settlements_total",
		Help:      "Settlement runs by outcome.",
	}, []string{"result"})

	paymentDenials = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "feast",
		Name:      "order_payment_denials_total",
		Help:      "Placements rejected by the payment gateway.",
	})
)
