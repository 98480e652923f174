package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

var (
	// Global logger instance
	Logger *zap.Logger

	// Metrics
	submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_submissions_total",
			Help: "Total number of submissions by moderation decision",
		},
		[]string{"decision"},
	)

	deliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_deliveries_total",
			Help: "Total number of media delivery attempts by outcome",
		},
		[]string{"kind", "outcome"},
	)

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_publish_queue_depth",
			Help: "Pending media deliveries in the publish queue",
		},
	)
)

func Init(ctx context.Context, addr string) error {
	// Initialize logger
	var err error
	Logger, err = zap.NewProduction()
	if err != nil {
		return err
	}

	// Register metrics
	prometheus.MustRegister(submissionsTotal)
	prometheus.MustRegister(deliveriesTotal)
	prometheus.MustRegister(queueDepth)

	// Setup OpenTelemetry (simplified setup)
	tp := trace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	// Start Prometheus metrics endpoint
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(addr, nil); err != nil {
			log.WithError(err).Error("metrics server failed")
		}
	}()

	return nil
}

// RecordDecision counts one moderation gate outcome.
func RecordDecision(decision string) {
	submissionsTotal.WithLabelValues(decision).Inc()
}

// RecordDelivery counts one publish worker attempt.
func RecordDelivery(kind string, delivered bool) {
	outcome := "delivered"
	if !delivered {
		outcome = "dropped"
	}
	deliveriesTotal.WithLabelValues(kind, outcome).Inc()
}

// LogDelivery writes one structured access-log line per delivery
// attempt. A no-op until Init has set the logger up.
func LogDelivery(kind string, delivered bool, elapsed time.Duration) {
	if Logger == nil {
		return
	}
	Logger.Info("delivery",
		zap.String("kind", kind),
		zap.Bool("delivered", delivered),
		zap.Duration("elapsed", elapsed),
	)
}

// SetQueueDepth reports the current backlog of the publish queue.
func SetQueueDepth(n int) {
	queueDepth.Set(float64(n))
}
