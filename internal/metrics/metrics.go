package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "demobook",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "demobook",
			Name:      "bookings_created_total",
			Help:      "Booking records created.",
		},
	)

	backupPushes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "demobook",
			Name:      "backup_pushes_total",
			Help:      "Remote backup push attempts by outcome (ok, skipped, failed, conflict).",
		},
		[]string{"outcome"},
	)

	mailSends = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "demobook",
			Name:      "mail_sends_total",
			Help:      "Notification mail attempts by outcome (ok, failed).",
		},
		[]string{"outcome"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingsCreated, backupPushes, mailSends)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncBookingCreated counts a successful record creation.
func IncBookingCreated() {
	bookingsCreated.Inc()
}

// IncBackupPush counts a backup push attempt outcome.
func IncBackupPush(outcome string) {
	backupPushes.WithLabelValues(outcome).Inc()
}

// IncMailSend counts a notification attempt outcome.
func IncMailSend(outcome string) {
	mailSends.WithLabelValues(outcome).Inc()
}
