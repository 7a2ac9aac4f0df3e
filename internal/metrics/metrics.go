package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var PredictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "hairscan_predictions_total",
	Help: "Successful predictions by predicted class",
}, []string{"class"})

var PredictionErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "hairscan_prediction_errors_total",
	Help: "Failed prediction requests by failure kind",
}, []string{"kind"})

var InferenceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "hairscan_inference_duration_seconds",
	Help:    "Time spent in the model predict call",
	Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
})

var ModelLoaded = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "hairscan_model_loaded",
	Help: "1 if the model artifact loaded at startup, 0 when serving in degraded mode",
})

var CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "hairscan_cache_hits_total",
	Help: "Predictions answered from the result cache",
})

// Failure kinds used as the "kind" label.
const (
	KindUpload      = "upload"
	KindDecode      = "decode"
	KindUnavailable = "unavailable"
	KindInference   = "inference"
)
