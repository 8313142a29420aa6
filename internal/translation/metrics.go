package translation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK          = "ok"
	outcomeFailed      = "failed"
	outcomeCircuitOpen = "circuit_open"
	outcomeCopied      = "copied"
)

var (
	batchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "langsheet",
		Name:      "translation_batches_total",
		Help:      "Translation batches by provider and outcome",
	}, []string{"provider", "outcome"})

	stringsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "langsheet",
		Name:      "translation_strings_total",
		Help:      "Strings sent for translation by provider and target language",
	}, []string{"provider", "target"})

	batchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "langsheet",
		Name:      "translation_batch_duration_seconds",
		Help:      "Time spent translating one batch, retries included",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"provider"})
)
