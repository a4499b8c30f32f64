package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Booking outcomes.
const (
	OutcomeBooked    = "booked"
	OutcomeConflict  = "conflict"
	OutcomeRejected  = "invalid"
	OutcomeTransient = "transient"
	OutcomeError     = "error"
)

// SchedulingMetrics counts bookings, status transitions and notification
// delivery. All methods are safe on a nil receiver.
type SchedulingMetrics struct {
	bookingsTotal      *prometheus.CounterVec
	bookingLatency     prometheus.Histogram
	transitionsTotal   *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
	queueDepth         prometheus.Gauge
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "careslot",
			Subsystem: "booking",
			Name:      "attempts_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		bookingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "careslot",
			Subsystem: "booking",
			Name:      "latency_seconds",
			Help:      "Latency of the booking transaction",
			Buckets:   prometheus.DefBuckets,
		}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "careslot",
			Subsystem: "appointment",
			Name:      "transitions_total",
			Help:      "Appointment status transitions by outcome",
		}, []string{"transition", "outcome"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "careslot",
			Subsystem: "notification",
			Name:      "events_total",
			Help:      "Notification dispatch events (enqueued, dropped, delivered, failed)",
		}, []string{"event"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "careslot",
			Subsystem: "notification",
			Name:      "queue_depth",
			Help:      "Notifications waiting in the in-process queue",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.bookingLatency, m.transitionsTotal, m.notificationsTotal, m.queueDepth)
	return m
}

func (m *SchedulingMetrics) ObserveBooking(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
	m.bookingLatency.Observe(elapsed.Seconds())
}

func (m *SchedulingMetrics) ObserveTransition(transition, outcome string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(transition, outcome).Inc()
}

func (m *SchedulingMetrics) ObserveNotification(event string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(event).Inc()
}

func (m *SchedulingMetrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}
