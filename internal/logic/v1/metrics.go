package v1

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/duynhne/credential-service/internal/core/domain"
)

// Outcome labels for authOperations.
const (
	outcomeSuccess   = "success"
	outcomeRejected  = "rejected"
	outcomeAnonymous = "anonymous"
	outcomeError     = "error"
)

var (
	// authOperations counts auth service calls by operation and outcome.
	authOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_operations_total",
		Help: "Total number of auth service operations by outcome",
	}, []string{"operation", "outcome"})

	// fieldErrors counts field errors returned to callers.
	fieldErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_field_errors_total",
		Help: "Total number of field errors returned by the auth service",
	}, []string{"operation", "field"})
)

func recordOutcome(operation, outcome string) {
	authOperations.WithLabelValues(operation, outcome).Inc()
}

func recordRejected(operation string, errs []domain.FieldError) {
	recordOutcome(operation, outcomeRejected)
	for _, fe := range errs {
		fieldErrors.WithLabelValues(operation, fe.Field).Inc()
	}
}
