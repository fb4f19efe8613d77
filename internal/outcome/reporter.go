package outcome

import (
	"context"
	"time"

	"go.uber.org/zap"

	"contactrelay/internal/contact"
	"contactrelay/pkg/logger"
	"contactrelay/pkg/metrics"
)

// Sink is one destination of delivery records.
type Sink interface {
	Name() string
	Write(ctx context.Context, rec Record) error
}

// Reporter fans a finished send out to every sink. Sink failures are logged
// and counted; they never reach the sender.
type Reporter struct {
	sinks   []Sink
	timeout time.Duration
	logger  *zap.Logger
}

func NewReporter(logger *zap.Logger, sinks ...Sink) *Reporter {
	return &Reporter{sinks: sinks, timeout: 3 * time.Second, logger: logger}
}

// Report implements contact.Reporter.
func (r *Reporter) Report(ctx context.Context, o contact.Outcome) {
	if len(r.sinks) == 0 {
		return
	}
	rec := NewRecord(o)
	log := logger.WithTrace(ctx, r.logger)

	// the request may already be gone; the record should still land
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	for _, sink := range r.sinks {
		if err := sink.Write(ctx, rec); err != nil {
			metrics.IncrementOutcomeReport(sink.Name(), "failed")
			log.Error("Failed to report delivery outcome",
				zap.String("sink", sink.Name()),
				zap.String("attempt_id", rec.AttemptID),
				zap.Error(err),
			)
			continue
		}
		metrics.IncrementOutcomeReport(sink.Name(), "success")
	}
}

// RepositorySink writes records to the delivery log.
type RepositorySink struct {
	Repo *Repository
}

func (RepositorySink) Name() string { return "postgres" }

func (s RepositorySink) Write(ctx context.Context, rec Record) error {
	return s.Repo.Insert(ctx, rec)
}

// Publisher is the part of mq.Publisher the event sink uses.
type Publisher interface {
	Publish(ctx context.Context, routingKey, messageID string, payload any) error
}

// EventSink publishes records to the events exchange.
type EventSink struct {
	Publisher Publisher
}

func (EventSink) Name() string { return "rabbitmq" }

func (s EventSink) Write(ctx context.Context, rec Record) error {
	return s.Publisher.Publish(ctx, rec.RoutingKey(), rec.AttemptID, rec)
}
