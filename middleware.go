package crucible

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Middleware provides hooks around container resolution, for logging,
// metrics, or test instrumentation.
type Middleware interface {
	// BeforeResolve is called before resolving a key.
	// Return an error to abort resolution.
	BeforeResolve(ctx context.Context, key ServiceKey) error

	// AfterResolve is called after resolving a key, even when resolution
	// failed (instance and err may both be set).
	AfterResolve(ctx context.Context, key ServiceKey, instance any, err error) error
}

// middlewareChain manages multiple middleware.
type middlewareChain struct {
	mu         *hybridMutex
	middleware []Middleware
}

func newMiddlewareChain() *middlewareChain {
	return &middlewareChain{mu: newHybridMutex()}
}

func (m *middlewareChain) add(mw Middleware) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.middleware = append(m.middleware, mw)
}

func (m *middlewareChain) snapshot() []Middleware {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.middleware[:len(m.middleware):len(m.middleware)]
}

func (m *middlewareChain) beforeResolve(ctx context.Context, key ServiceKey) error {
	for _, mw := range m.snapshot() {
		if err := mw.BeforeResolve(ctx, key); err != nil {
			return err
		}
	}

	return nil
}

func (m *middlewareChain) afterResolve(ctx context.Context, key ServiceKey, instance any, err error) error {
	for _, mw := range m.snapshot() {
		if mwErr := mw.AfterResolve(ctx, key, instance, err); mwErr != nil {
			return mwErr
		}
	}

	return nil
}

// =============================================================================
// LOGGING MIDDLEWARE
// =============================================================================

// LoggingMiddleware logs every resolution at debug level and failures at
// warn level.
type LoggingMiddleware struct {
	logger *zap.Logger
}

// NewLoggingMiddleware creates logging middleware over the given logger.
func NewLoggingMiddleware(logger *zap.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger}
}

func (m *LoggingMiddleware) BeforeResolve(_ context.Context, key ServiceKey) error {
	m.logger.Debug("resolving", zap.Stringer("key", key))

	return nil
}

func (m *LoggingMiddleware) AfterResolve(_ context.Context, key ServiceKey, _ any, err error) error {
	if err != nil {
		m.logger.Warn("resolution failed", zap.Stringer("key", key), zap.Error(err))

		return nil
	}

	m.logger.Debug("resolved", zap.Stringer("key", key))

	return nil
}

// =============================================================================
// METRICS MIDDLEWARE
// =============================================================================

// MetricsMiddleware counts resolutions by outcome and tracks in-flight
// resolutions.
type MetricsMiddleware struct {
	resolutions *prometheus.CounterVec
	inFlight    prometheus.Gauge
}

// NewMetricsMiddleware creates metrics middleware registered with reg.
func NewMetricsMiddleware(reg prometheus.Registerer) *MetricsMiddleware {
	factory := promauto.With(reg)

	return &MetricsMiddleware{
		resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crucible_resolutions_total",
			Help: "Number of container resolutions by outcome.",
		}, []string{"outcome"}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "crucible_resolutions_in_flight",
			Help: "Number of resolutions currently in progress.",
		}),
	}
}

func (m *MetricsMiddleware) BeforeResolve(context.Context, ServiceKey) error {
	m.inFlight.Inc()

	return nil
}

func (m *MetricsMiddleware) AfterResolve(_ context.Context, _ ServiceKey, _ any, err error) error {
	m.inFlight.Dec()

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.resolutions.WithLabelValues(outcome).Inc()

	return nil
}
