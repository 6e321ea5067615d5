// Package metrics exposes counters for the failure modes this service
// deliberately swallows. The user-facing call must not fail, but operators
// still need to see the degradation happening.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WatermarkDegraded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nastia_watermark_degraded_total",
		Help: "Watermark applications that fell back to unwatermarked output.",
	}, []string{"kind"})

	StorageUploadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nastia_storage_upload_failures_total",
		Help: "Artifact uploads that soft-failed and returned an empty URL.",
	})

	HistoryWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nastia_history_write_failures_total",
		Help: "Generation history inserts that were suppressed.",
	})

	RefundFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nastia_refund_failures_total",
		Help: "Credit refunds that could not be applied after a failed generation.",
	})

	ReferralBonusFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nastia_referral_bonus_failures_total",
		Help: "Referrer bonus credits that could not be applied.",
	})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nastia_webhook_events_total",
		Help: "Payment webhook events by type and outcome.",
	}, []string{"type", "outcome"})

	GenerationTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nastia_generation_timeouts_total",
		Help: "Generations abandoned after exceeding the polling ceiling.",
	}, []string{"kind"})
)
