// Package metrics exposes the Prometheus instruments of the bot.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Proton-105/course-intake-bot/internal/state"
)

var (
	botUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Total number of bot updates handled labeled by command and status",
		},
		[]string{"command", "status"},
	)
	updateDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bot_update_duration_seconds",
			Help:    "Duration of bot update handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)
	stateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "form_state_transitions_total",
			Help: "Total number of intake form state transitions",
		},
		[]string{"from", "to"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by code and severity",
		},
		[]string{"code", "severity"},
	)
	leadWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_writes_total",
			Help: "Total number of lead writes by sink, policy and status",
		},
		[]string{"sink", "policy", "status"},
	)
	leadWriteDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lead_write_duration_seconds",
			Help:    "Duration of lead writes in seconds, retries included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sink"},
	)
	catalogCourses = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_courses",
			Help: "Number of courses loaded into the catalog",
		},
	)
	catalogDirections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_directions",
			Help: "Number of directions loaded into the catalog",
		},
	)
	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_sessions",
			Help: "Current number of in-progress intake sessions",
		},
	)
	sessionsByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sessions_by_state",
			Help: "Number of sessions per form state",
		},
		[]string{"state"},
	)
	rateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limited_total",
			Help: "Total number of updates rejected by the rate limiter",
		},
		[]string{"limiter"},
	)
)

func init() {
	state.RegisterTransitionRecorder(RecordStateTransition)
}

// RecordUpdate increments update counters and records duration.
func RecordUpdate(command, status string, duration time.Duration) {
	command = orUnknown(command)
	status = orUnknown(status)

	botUpdatesTotal.WithLabelValues(command, status).Inc()
	updateDurationSeconds.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordStateTransition tracks form transitions.
func RecordStateTransition(from, to string) {
	stateTransitionsTotal.WithLabelValues(orUnknown(from), orUnknown(to)).Inc()
}

// RecordError increments error counters with metadata.
func RecordError(code, severity string) {
	errorsTotal.WithLabelValues(orUnknown(code), orUnknown(severity)).Inc()
}

// RecordLeadWrite counts a lead write attempt and its latency.
func RecordLeadWrite(sink, policy, status string, duration time.Duration) {
	sink = orUnknown(sink)

	leadWritesTotal.WithLabelValues(sink, orUnknown(policy), orUnknown(status)).Inc()
	leadWriteDurationSeconds.WithLabelValues(sink).Observe(duration.Seconds())
}

// SetCatalogSize publishes the size of the loaded catalog.
func SetCatalogSize(directions, courses int) {
	catalogDirections.Set(float64(directions))
	catalogCourses.Set(float64(courses))
}

// RecordRateLimited counts a rejected update.
func RecordRateLimited(limiter string) {
	rateLimitedTotal.WithLabelValues(orUnknown(limiter)).Inc()
}

func orUnknown(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

// SessionCollector periodically gathers session counts and emits gauge metrics.
type SessionCollector struct {
	storage  state.Storage
	interval time.Duration
}

// NewSessionCollector builds a metrics collector bound to the session storage.
func NewSessionCollector(storage state.Storage, interval time.Duration) *SessionCollector {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &SessionCollector{storage: storage, interval: interval}
}

// Run polls the storage until ctx is cancelled.
func (c *SessionCollector) Run(ctx context.Context) {
	if c == nil || c.storage == nil {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		_ = c.Collect(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Collect refreshes the session gauges once.
func (c *SessionCollector) Collect(ctx context.Context) error {
	sessions, err := c.storage.All(ctx)
	if err != nil {
		return err
	}

	activeSessions.Set(float64(len(sessions)))

	counts := make(map[state.State]int, len(sessions))
	for _, session := range sessions {
		counts[session.State]++
	}

	sessionsByState.Reset()
	for _, tracked := range state.All() {
		sessionsByState.WithLabelValues(string(tracked)).Set(float64(counts[tracked]))
		delete(counts, tracked)
	}
	for st, count := range counts {
		sessionsByState.WithLabelValues(orUnknown(string(st))).Set(float64(count))
	}

	return nil
}
