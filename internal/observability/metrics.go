package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skyscope/skyscope/internal/models"
)

// Collector bundles the Prometheus metrics for detection, visibility and the
// HTTP surface. It satisfies gateway.Recorder, sky.Recorder and handlers.HTTPRecorder.
type Collector struct {
	gatherer prometheus.Gatherer

	DetectRequests    *prometheus.CounterVec
	DetectDurations   *prometheus.HistogramVec
	DetectionsByClass *prometheus.CounterVec
	InferenceDuration prometheus.Histogram

	VisibleComputations prometheus.Counter
	VisibleDurations    prometheus.Histogram
	VisibleLast         prometheus.Gauge

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec
}

// NewCollector registers metrics against the provided registerer, defaulting
// to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{gatherer: gatherer}
	var err error

	if c.DetectRequests, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skyscope_detect_requests_total",
		Help: "Detection requests by outcome.",
	}, []string{"outcome"}), "skyscope_detect_requests_total"); err != nil {
		return nil, err
	}
	if c.DetectDurations, err = registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skyscope_detect_duration_seconds",
		Help:    "End to end detection latency in seconds, including decode.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"outcome"}), "skyscope_detect_duration_seconds"); err != nil {
		return nil, err
	}
	if c.DetectionsByClass, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skyscope_detections_total",
		Help: "Detections returned to clients, by class.",
	}, []string{"class"}), "skyscope_detections_total"); err != nil {
		return nil, err
	}
	if c.InferenceDuration, err = registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "skyscope_inference_duration_seconds",
		Help:    "Time spent inside the detector backend.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}), "skyscope_inference_duration_seconds"); err != nil {
		return nil, err
	}
	if c.VisibleComputations, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "skyscope_visible_computations_total",
		Help: "Visible-constellation computations performed.",
	}), "skyscope_visible_computations_total"); err != nil {
		return nil, err
	}
	if c.VisibleDurations, err = registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "skyscope_visible_duration_seconds",
		Help:    "Visible-constellation computation latency in seconds.",
		Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
	}), "skyscope_visible_duration_seconds"); err != nil {
		return nil, err
	}
	if c.VisibleLast, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "skyscope_visible_constellations",
		Help: "Size of the most recently computed visible set.",
	}), "skyscope_visible_constellations"); err != nil {
		return nil, err
	}
	if c.HTTPRequests, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skyscope_http_requests_total",
		Help: "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "code"}), "skyscope_http_requests_total"); err != nil {
		return nil, err
	}
	if c.HTTPDurations, err = registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skyscope_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"route"}), "skyscope_http_request_duration_seconds"); err != nil {
		return nil, err
	}

	return c, nil
}

// ObserveDetect records one finished detection request.
func (c *Collector) ObserveDetect(outcome string, elapsed time.Duration, detections []models.Detection) {
	if c == nil {
		return
	}
	c.DetectRequests.WithLabelValues(outcome).Inc()
	c.DetectDurations.WithLabelValues(outcome).Observe(elapsed.Seconds())
	for _, d := range detections {
		c.DetectionsByClass.WithLabelValues(d.Class).Inc()
	}
}

// ObserveInference records time spent in the backend
func (c *Collector) ObserveInference(elapsed time.Duration) {
	if c == nil {
		return
	}
	c.InferenceDuration.Observe(elapsed.Seconds())
}

// ObserveVisibility records one visibility computation
func (c *Collector) ObserveVisibility(elapsed time.Duration, visible int) {
	if c == nil {
		return
	}
	c.VisibleComputations.Inc()
	c.VisibleDurations.Observe(elapsed.Seconds())
	c.VisibleLast.Set(float64(visible))
}

// ObserveHTTP records one served request
func (c *Collector) ObserveHTTP(route, method string, code int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	c.HTTPDurations.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero T
		return zero, err
	}
	return c, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	return register(reg, vec, name)
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	return register(reg, vec, name)
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	return register(reg, counter, name)
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	return register(reg, h, name)
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	return register(reg, gauge, name)
}
