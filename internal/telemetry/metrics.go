package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/nluhub/nluhub"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Authorization metrics
	AuthorizationsResolvedTotal metric.Int64Counter
	RolePromotionsTotal         metric.Int64Counter

	// Access request metrics
	AccessRequestsTotal   metric.Int64Counter
	AccessApprovalsTotal  metric.Int64Counter
	AccessRejectionsTotal metric.Int64Counter

	// Training metrics
	TrainingTransitionsTotal metric.Int64Counter
	ConfigChangesTotal       metric.Int64Counter
	ReadinessEvaluations     metric.Int64Counter
	ReadinessDuration        metric.Float64Histogram

	// Collaborator metrics
	TrainerRequestsTotal      metric.Int64Counter
	TrainerErrorsTotal        metric.Int64Counter
	NotificationsSentTotal    metric.Int64Counter
	NotificationFailuresTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	// Authorization metrics
	m.AuthorizationsResolvedTotal, _ = meter.Int64Counter(
		"nluhub.authz.resolved.total",
		metric.WithDescription("Total number of authorization resolutions"),
		metric.WithUnit("{resolution}"),
	)

	m.RolePromotionsTotal, _ = meter.Int64Counter(
		"nluhub.authz.promotions.total",
		metric.WithDescription("Total number of persisted repository role promotions"),
		metric.WithUnit("{promotion}"),
	)

	// Access request metrics
	m.AccessRequestsTotal, _ = meter.Int64Counter(
		"nluhub.access.requests.total",
		metric.WithDescription("Total number of access requests created"),
		metric.WithUnit("{request}"),
	)

	m.AccessApprovalsTotal, _ = meter.Int64Counter(
		"nluhub.access.approvals.total",
		metric.WithDescription("Total number of access requests approved"),
		metric.WithUnit("{request}"),
	)

	m.AccessRejectionsTotal, _ = meter.Int64Counter(
		"nluhub.access.rejections.total",
		metric.WithDescription("Total number of access requests rejected"),
		metric.WithUnit("{request}"),
	)

	// Training metrics
	m.TrainingTransitionsTotal, _ = meter.Int64Counter(
		"nluhub.training.transitions.total",
		metric.WithDescription("Total number of training state transitions"),
		metric.WithUnit("{transition}"),
	)

	m.ConfigChangesTotal, _ = meter.Int64Counter(
		"nluhub.training.config_changes.total",
		metric.WithDescription("Total number of training configuration fields changed"),
		metric.WithUnit("{field}"),
	)

	m.ReadinessEvaluations, _ = meter.Int64Counter(
		"nluhub.readiness.evaluations.total",
		metric.WithDescription("Total number of readiness computations"),
		metric.WithUnit("{evaluation}"),
	)

	m.ReadinessDuration, _ = meter.Float64Histogram(
		"nluhub.readiness.duration",
		metric.WithDescription("Duration of readiness computations"),
		metric.WithUnit("ms"),
	)

	// Collaborator metrics
	m.TrainerRequestsTotal, _ = meter.Int64Counter(
		"nluhub.trainer.requests.total",
		metric.WithDescription("Total number of remote trainer requests"),
		metric.WithUnit("{request}"),
	)

	m.TrainerErrorsTotal, _ = meter.Int64Counter(
		"nluhub.trainer.errors.total",
		metric.WithDescription("Total number of remote trainer requests that failed"),
		metric.WithUnit("{error}"),
	)

	m.NotificationsSentTotal, _ = meter.Int64Counter(
		"nluhub.notifications.sent.total",
		metric.WithDescription("Total number of notifications delivered"),
		metric.WithUnit("{notification}"),
	)

	m.NotificationFailuresTotal, _ = meter.Int64Counter(
		"nluhub.notifications.failures.total",
		metric.WithDescription("Total number of notifications dropped after a send failure"),
		metric.WithUnit("{notification}"),
	)

	return m
}
