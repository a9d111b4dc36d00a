package metrics

import "github.com/prometheus/client_golang/prometheus"

// Domain Prometheus metrics.
var (
	PoseAnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "poseassist",
			Name:      "pose_analyses_total",
			Help:      "Total number of pose analyses by outcome",
		},
		[]string{"outcome"}, // "correct" / "incorrect" / "no_pose" / "invalid_image" / "no_reference" / "error"
	)

	PoseMatchDistance = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "poseassist",
			Name:      "pose_match_distance",
			Help:      "Distance between the user vector and the nearest reference pose",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	ExtractorRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "poseassist",
			Name:      "extractor_requests_total",
			Help:      "Total number of landmark extraction requests",
		},
		[]string{"driver", "status"},
	)

	ExtractorRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "poseassist",
			Name:      "extractor_request_duration_seconds",
			Help:      "Landmark extraction duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"driver"},
	)

	ChatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "poseassist",
			Name:      "chat_requests_total",
			Help:      "Total number of chat requests by outcome",
		},
		[]string{"outcome"}, // "success" / "empty" / "filtered" / "upstream_error" / "invalid_response" / "error"
	)

	ChatUpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "poseassist",
			Name:      "chat_upstream_duration_seconds",
			Help:      "Chat upstream request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"model"},
	)

	LandmarkCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "poseassist",
			Name:      "landmark_cache_total",
			Help:      "Reference landmark cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	CatalogSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "poseassist",
			Name:      "catalog_reference_poses",
			Help:      "Number of reference poses in the loaded catalog",
		},
	)
)

var domainMetricsRegistered bool

// RegisterDomainMetrics registers Prometheus domain metrics. Must be called once from main.
func RegisterDomainMetrics() {
	if domainMetricsRegistered {
		return
	}
	prometheus.MustRegister(PoseAnalysesTotal)
	prometheus.MustRegister(PoseMatchDistance)
	prometheus.MustRegister(ExtractorRequestsTotal)
	prometheus.MustRegister(ExtractorRequestDuration)
	prometheus.MustRegister(ChatRequestsTotal)
	prometheus.MustRegister(ChatUpstreamDuration)
	prometheus.MustRegister(LandmarkCacheTotal)
	prometheus.MustRegister(CatalogSize)
	domainMetricsRegistered = true
}
