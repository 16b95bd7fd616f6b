package gated

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seo_gated_runs_total",
		Help: "Total gated fetch runs by page and outcome",
	}, []string{"page", "outcome"})

	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "seo_gated_run_duration_seconds",
		Help:    "Duration of gated fetch runs by page",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"page"})

	refundsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seo_gated_refunds_total",
		Help: "Total refunds of runs superseded after deduction by page and result",
	}, []string{"page", "result"})
)
