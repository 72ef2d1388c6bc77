package usecase

import (
	"context"
	"fmt"
	"time"

	"PortfolioDash/internal/domain/models"
	drepo "PortfolioDash/internal/domain/repository"
	"PortfolioDash/pkg/logger"
)

// ActivityRecorder counts every dashboard event and forwards it to the
// configured sink. Sink failures are logged and counted, never returned.
type ActivityRecorder struct {
	sink    drepo.ActivitySink
	backend string
	metrics drepo.Metrics
	log     *logger.Logger
	timeout time.Duration
}

// NewActivityRecorder creates a recorder. A nil sink only counts events.
func NewActivityRecorder(sink drepo.ActivitySink, backend string, metrics drepo.Metrics, l *logger.Logger) *ActivityRecorder {
	if l == nil {
		l = logger.Nop()
	}
	if sink == nil {
		backend = "none"
	}
	return &ActivityRecorder{
		sink:    sink,
		backend: backend,
		metrics: metrics,
		log:     l,
		timeout: 3 * time.Second,
	}
}

// Backend names the sink in use.
func (r *ActivityRecorder) Backend() string { return r.backend }

func (r *ActivityRecorder) Record(ctx context.Context, ev models.ActivityEvent) {
	if r.metrics != nil {
		r.metrics.RecordEvent(string(ev.Kind))
	}
	if r.sink == nil {
		return
	}

	// The request may be cancelled right after rendering; the event should still land.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	if err := r.sink.Record(ctx, ev); err != nil {
		if r.metrics != nil {
			r.metrics.RecordError("activity_" + r.backend)
		}
		r.log.Warn("activity record failed",
			logger.String("backend", r.backend),
			logger.String("kind", string(ev.Kind)),
			logger.Error(err),
		)
	}
}

type healthChecker interface {
	Health(ctx context.Context) error
}

// Health pings the sink when it can be pinged. Other sinks are always healthy.
func (r *ActivityRecorder) Health(ctx context.Context) error {
	hc, ok := r.sink.(healthChecker)
	if !ok {
		return nil
	}
	if err := hc.Health(ctx); err != nil {
		return fmt.Errorf("activity %s: %w", r.backend, err)
	}
	return nil
}

// Close releases the sink.
func (r *ActivityRecorder) Close() error {
	if r.sink == nil {
		return nil
	}
	return r.sink.Close()
}
