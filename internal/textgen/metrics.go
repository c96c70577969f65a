package textgen

import "github.com/prometheus/client_golang/prometheus"

var (
	tokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "textgen",
			Subsystem: "generation",
			Name:      "tokens_total",
			Help:      "Tokens processed by the generation pipeline",
		},
		[]string{"kind"},
	)

	shortOutputsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "textgen",
			Subsystem: "generation",
			Name:      "short_outputs_total",
			Help:      "Generations that returned fewer ids than the prompt length",
		},
	)

	generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "textgen",
			Subsystem: "generation",
			Name:      "duration_seconds",
			Help:      "Time spent inside the generation backend",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(tokensTotal, shortOutputsTotal, generationDuration)
}
