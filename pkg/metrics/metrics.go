// Package metrics exposes Prometheus counters for the analysis pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Analysis outcome labels.
const (
	OutcomeAnalyzed    = "analyzed"
	OutcomeDegraded    = "degraded"
	OutcomeCached      = "cached"
	OutcomeRejected    = "rejected"
	OutcomeConfigError = "config_error"
)

var (
	// AnalysesTotal counts analyze requests by outcome.
	AnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xyqo",
		Name:      "contract_analyses_total",
		Help:      "Number of contract analyze requests by outcome.",
	}, []string{"outcome"})

	// RenderFallbacksTotal counts reports that fell back to plain text.
	RenderFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "xyqo",
		Name:      "report_render_fallbacks_total",
		Help:      "Number of reports rendered via the plain-text fallback.",
	})

	// DownloadsTotal counts report downloads by result (hit or miss).
	DownloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xyqo",
		Name:      "report_downloads_total",
		Help:      "Number of report download requests by result.",
	}, []string{"result"})
)
