// Package status implements the SystemStatus sink: named counters and
// timers, all side-effect-free to the rest of the system (spec.md §2.2,
// §6). It is the structured-logging + Prometheus-metrics ambient stack
// carried over from the teacher repo's Observability port.
package status

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Kind is a meter outcome, mirroring spec.md §6's {SUCCESS, FAILURE,
// NO_DATA, AUTHENTICATION_FAILURE}.
type Kind string

const (
	Success                Kind = "success"
	Failure                Kind = "failure"
	NoData                 Kind = "no_data"
	AuthenticationFailure  Kind = "authentication_failure"
)

// Status is the SystemStatus sink: SystemStatus.meter(name, kind) and
// SystemStatus.timer(name, op) from spec.md §6.
type Status struct {
	log *zap.Logger

	mu       sync.Mutex
	counters *prometheus.CounterVec
	timers   *prometheus.HistogramVec
	registry *prometheus.Registry
}

// New builds a Status backed by a dedicated Prometheus registry (so tests
// can construct multiple independent instances without global-registry
// collisions, unlike the teacher's prometheus.MustRegister against the
// default registry).
func New(logger *zap.Logger) *Status {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	counters := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pyplyn_meter_total",
		Help: "Count of terminal pipeline events by meter name and kind.",
	}, []string{"name", "kind"})
	timers := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pyplyn_timer_seconds",
		Help:    "Duration of named pipeline operations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"name", "op"})
	reg.MustRegister(counters, timers)

	return &Status{
		log:      logger,
		counters: counters,
		timers:   timers,
		registry: reg,
	}
}

// Registry exposes the underlying Prometheus registry for HTTP exposition.
func (s *Status) Registry() *prometheus.Registry { return s.registry }

// Meter increments the named counter for the given outcome kind.
func (s *Status) Meter(name string, kind Kind) {
	s.counters.WithLabelValues(name, string(kind)).Inc()
}

// Timer starts a named timing context for op; the returned function must be
// called exactly once to record the elapsed duration.
func (s *Status) Timer(name, op string) func() {
	start := time.Now()
	return func() {
		s.timers.WithLabelValues(name, op).Observe(time.Since(start).Seconds())
	}
}

// LogInfo logs an informational event.
func (s *Status) LogInfo(msg string, fields ...zap.Field) {
	s.log.Info(msg, fields...)
}

// LogError logs a recoverable error.
func (s *Status) LogError(msg string, err error, fields ...zap.Field) {
	s.log.Error(msg, append(fields, zap.Error(err))...)
}

// LogCritical logs an invariant violation or other fatal-for-the-current-run
// condition.
func (s *Status) LogCritical(msg string, err error, fields ...zap.Field) {
	s.log.Error("CRITICAL: "+msg, append(fields, zap.Error(err))...)
}
