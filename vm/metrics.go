package vm

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records call frame activity.
type Metrics struct {
	frames   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	depth    prometheus.Histogram
}

// NewMetrics creates the frame metrics and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vmstore",
			Name:      "frames_total",
			Help:      "Total call frames segmented by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vmstore",
			Subsystem: "frame",
			Name:      "duration_seconds",
			Help:      "Call frame latency from loading to commit or abort.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		depth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vmstore",
			Name:      "call_depth",
			Help:      "Depth of executed call frames, 1 for top level calls.",
			Buckets:   prometheus.LinearBuckets(1, 1, 8),
		}),
	}
	if reg == nil {
		return m, nil
	}

	var err error
	if m.frames, err = register(reg, m.frames); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	if m.depth, err = register(reg, m.depth); err != nil {
		return nil, err
	}
	return m, nil
}

// register returns the collector already registered under the same
// descriptor, so several engines can share one registry.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing, nil
		}
	}
	return c, err
}

// observeFrame records the end of a frame.
func (m *Metrics) observeFrame(state FrameState, depth int, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := state.String()
	m.frames.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	m.depth.Observe(float64(depth))
}
