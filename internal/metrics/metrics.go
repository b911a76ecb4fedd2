// Package metrics exposes viewer counters in Prometheus format.
//
// A Collector subscribes to the event bus and translates viewer events
// into counters, so the render loop itself never touches the registry.
// Metrics are served over HTTP only when a listen address is given.
package metrics

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smazurov/circam/internal/events"
)

// Collector holds the viewer's Prometheus metrics.
type Collector struct {
	registry *prometheus.Registry

	framesTotal     prometheus.Counter
	dropsTotal      *prometheus.CounterVec
	resizesTotal    *prometheus.CounterVec
	resizesRejected prometheus.Counter
	windowSize      prometheus.Gauge
	slotsQueued     prometheus.Gauge

	unsubs []func()
}

// NewCollector creates the metric set on a private registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		framesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "circam_frames_total",
			Help: "Frames dequeued, consumed and requeued.",
		}),
		dropsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "circam_frame_drops_total",
			Help: "Capture cycles that produced no frame, by reason.",
		}, []string{"reason"}),
		resizesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "circam_resizes_total",
			Help: "Applied window resizes, by source.",
		}, []string{"source"}),
		resizesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "circam_resizes_rejected_total",
			Help: "Stabilized resizes the window manager refused.",
		}),
		windowSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "circam_window_size_pixels",
			Help: "Current window side length in pixels.",
		}),
		slotsQueued: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "circam_pool_slots_queued",
			Help: "Buffer slots currently owned by the driver.",
		}),
	}

	registry.MustRegister(
		c.framesTotal,
		c.dropsTotal,
		c.resizesTotal,
		c.resizesRejected,
		c.windowSize,
		c.slotsQueued,
	)
	return c
}

// Attach subscribes the collector to viewer events.
func (c *Collector) Attach(bus *events.Bus) {
	c.unsubs = append(c.unsubs,
		bus.Subscribe(func(e events.FrameDroppedEvent) {
			c.dropsTotal.WithLabelValues(e.Reason).Inc()
		}),
		bus.Subscribe(func(e events.ResizeAppliedEvent) {
			c.resizesTotal.WithLabelValues(e.Source).Inc()
			c.windowSize.Set(float64(e.Size))
		}),
		bus.Subscribe(func(events.ResizeRejectedEvent) {
			c.resizesRejected.Inc()
		}),
	)
}

// Detach removes the event subscriptions.
func (c *Collector) Detach() {
	for _, unsub := range c.unsubs {
		unsub()
	}
	c.unsubs = nil
}

// FrameConsumed counts one completed capture cycle.
func (c *Collector) FrameConsumed() {
	c.framesTotal.Inc()
}

// SetWindowSize records the current window side length.
func (c *Collector) SetWindowSize(size int) {
	c.windowSize.Set(float64(size))
}

// SetSlotsQueued records how many slots the driver currently owns.
func (c *Collector) SetSlotsQueued(n int) {
	c.slotsQueued.Set(float64(n))
}

// Handler returns the HTTP handler for the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve starts the metrics listener on addr. Best-effort: a viewer
// without metrics is still a working viewer, so listen failures are
// logged, not fatal.
func (c *Collector) Serve(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		logger.Info("metrics listener started", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics listener stopped", "error", err)
		}
	}()
	return server
}
