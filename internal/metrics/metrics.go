// Package metrics defines the Prometheus counters exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
	Name: "tri_orders_created_total",
	Help: "Total number of orders created.",
})

var InvoicesIssued = promauto.NewCounter(prometheus.CounterOpts{
	Name: "tri_invoices_issued_total",
	Help: "Total number of invoice numbers allocated on payment verification.",
})

var EmailsQueued = promauto.NewCounter(prometheus.CounterOpts{
	Name: "tri_emails_queued_total",
	Help: "Total number of emails accepted by the send-email endpoint.",
})
