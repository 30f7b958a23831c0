package metrics

import "github.com/prometheus/client_golang/prometheus"

// BotMetrics exposes counters/histograms for the booking bot.
type BotMetrics struct {
	updatesTotal       *prometheus.CounterVec
	fetchTotal         *prometheus.CounterVec
	staleTotal         prometheus.Counter
	submissionsTotal   *prometheus.CounterVec
	backendLatency     *prometheus.HistogramVec
	notificationsTotal *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *BotMetrics {
	m := &BotMetrics{
		updatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "physio",
			Subsystem: "bot",
			Name:      "updates_total",
			Help:      "Telegram updates handled",
		}, []string{"kind"}),
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "physio",
			Subsystem: "scheduling",
			Name:      "availability_fetch_total",
			Help:      "Availability fetches by outcome",
		}, []string{"outcome"}),
		staleTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "physio",
			Subsystem: "scheduling",
			Name:      "availability_stale_total",
			Help:      "Availability responses dropped because a newer request superseded them",
		}),
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "physio",
			Subsystem: "scheduling",
			Name:      "submissions_total",
			Help:      "Booking submissions by outcome",
		}, []string{"outcome"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "physio",
			Subsystem: "backend",
			Name:      "request_seconds",
			Help:      "Latency of backend REST calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint", "status"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "physio",
			Subsystem: "bot",
			Name:      "channel_notifications_total",
			Help:      "Reception channel notices by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.updatesTotal, m.fetchTotal, m.staleTotal, m.submissionsTotal, m.backendLatency, m.notificationsTotal)
	return m
}

func (m *BotMetrics) ObserveUpdate(kind string) {
	if m == nil {
		return
	}
	m.updatesTotal.WithLabelValues(kind).Inc()
}

func (m *BotMetrics) ObserveFetch(outcome string) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(outcome).Inc()
}

func (m *BotMetrics) ObserveStale() {
	if m == nil {
		return
	}
	m.staleTotal.Inc()
}

func (m *BotMetrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(outcome).Inc()
}

func (m *BotMetrics) ObserveBackend(endpoint, status string, seconds float64) {
	if m == nil {
		return
	}
	m.backendLatency.WithLabelValues(endpoint, status).Observe(seconds)
}

func (m *BotMetrics) ObserveNotification(outcome string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(outcome).Inc()
}
