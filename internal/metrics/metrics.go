// Package metrics exposes the pipeline's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Webhook outcome labels. Webhooks answer 200 to the provider even when
// processing fails internally, so the response code alone is useless for
// alerting; these counters are the observable signal.
const (
	OutcomeOK         = "ok"
	OutcomeRejected   = "rejected"
	OutcomeBadRequest = "bad_request"
	OutcomeSkipped    = "skipped"
	OutcomeFailed     = "failed"
)

var (
	WebhookRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_requests_total",
		Help: "Inbound provider webhook requests by endpoint and processing outcome.",
	}, []string{"endpoint", "outcome"})

	RateLimitDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rate_limit_decisions_total",
		Help: "Rate limiter admissions and rejections by namespace.",
	}, []string{"namespace", "allowed"})

	TranscriptionAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcription_attempts_total",
		Help: "Speech-to-text attempts by result.",
	}, []string{"result"})
)
