package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "inksign", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "inksign", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	DocumentsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "inksign", Name: "documents_created_total", Help: "Signature requests created."},
	)
	DocumentsSigned = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "inksign", Name: "documents_signed_total", Help: "Documents moved to SIGNED."},
	)
	DocumentsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "inksign", Name: "documents_completed_total", Help: "Documents moved to COMPLETED."},
	)
	LifecycleRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "inksign", Name: "lifecycle_rejected_total", Help: "Rejected lifecycle operations by reason."},
		[]string{"reason"},
	)
	LoginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "inksign", Name: "login_attempts_total", Help: "Login attempts by result."},
		[]string{"result"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(DocumentsCreated)
	reg.MustRegister(DocumentsSigned)
	reg.MustRegister(DocumentsCompleted)
	reg.MustRegister(LifecycleRejected)
	reg.MustRegister(LoginAttempts)
}
