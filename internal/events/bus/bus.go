package bus

import (
	"context"

	"github.com/meridianerp/quotes-backend/internal/events"
	"github.com/meridianerp/quotes-backend/internal/platform/logger"
)

// Bus delivers domain events to whatever is listening. Publication is
// fire-and-forget with respect to the command transaction: a failing sink
// must never make a committed command look failed.
type Bus interface {
	Publish(ctx context.Context, event events.Event) error
}

type logBus struct {
	log *logger.Logger
}

// NewLogBus is the fallback sink used when no broker is configured.
func NewLogBus(baseLog *logger.Logger) Bus {
	return &logBus{log: baseLog.With("service", "EventLogBus")}
}

func (b *logBus) Publish(_ context.Context, event events.Event) error {
	b.log.Info("domain event",
		"event_id", event.ID,
		"type", event.Type,
		"company", event.Quote.Company,
		"branch", event.Quote.Branch,
		"number", event.Quote.Number,
		"status", event.Quote.Status,
	)
	return nil
}
