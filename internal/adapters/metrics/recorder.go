// Package metrics records build observations with Prometheus.
package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports"
)

var _ ports.Metrics = (*Recorder)(nil)

const namespace = "weave"

// Recorder implements ports.Metrics. A nil Recorder discards every observation.
type Recorder struct {
	registry       *prom.Registry
	pagesBuilt     prom.Counter
	bundleDuration *prom.HistogramVec
	transformCache *prom.CounterVec
	httpFetch      *prom.CounterVec
	buildDuration  *prom.HistogramVec
}

// NewRecorder creates the weave metrics and registers them on reg. A nil reg gets a
// fresh registry.
func NewRecorder(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{
		registry: reg,
		pagesBuilt: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "pages_built_total",
			Help:      "Pages written to the output directory",
		}),
		bundleDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "bundle_duration_seconds",
			Help:      "Duration of a shared bundle pipeline",
			Buckets:   prom.DefBuckets,
		}, []string{"type"}),
		transformCache: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "transform_cache_total",
			Help:      "Transform cache lookups by cache and result",
		}, []string{"cache", "result"}),
		httpFetch: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "http_fetch_total",
			Help:      "Remote fetches by cache result",
		}, []string{"result"}),
		buildDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Duration of full and incremental builds",
			Buckets:   prom.DefBuckets,
		}, []string{"kind"}),
	}
	reg.MustRegister(r.pagesBuilt, r.bundleDuration, r.transformCache, r.httpFetch, r.buildDuration)
	return r
}

// Handler exposes the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// PageBuilt counts a written page.
func (r *Recorder) PageBuilt() {
	if r == nil {
		return
	}
	r.pagesBuilt.Inc()
}

// ObserveBundle records the duration of a bundle pipeline.
func (r *Recorder) ObserveBundle(kind domain.NodeType, d time.Duration) {
	if r == nil {
		return
	}
	r.bundleDuration.WithLabelValues(string(kind)).Observe(d.Seconds())
}

// TransformCache counts a transform cache lookup.
func (r *Recorder) TransformCache(cache string, hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.transformCache.WithLabelValues(cache, result).Inc()
}

// HTTPFetch counts a remote fetch by cache result.
func (r *Recorder) HTTPFetch(result string) {
	if r == nil {
		return
	}
	r.httpFetch.WithLabelValues(result).Inc()
}

// ObserveBuild records the duration of a full or incremental build.
func (r *Recorder) ObserveBuild(kind string, d time.Duration) {
	if r == nil {
		return
	}
	r.buildDuration.WithLabelValues(kind).Observe(d.Seconds())
}
