package workers

import (
	"context"
	"log/slog"

	application "crosspost/contexts/publishing/post-orchestration-service/application"
	"crosspost/contexts/publishing/post-orchestration-service/application/posting"
	"crosspost/contexts/publishing/post-orchestration-service/application/queue"
	"crosspost/contexts/publishing/post-orchestration-service/ports"
	"crosspost/internal/shared/events"
)

// AttemptFinishedConsumer ticks the queue as soon as an attempt finishes so the finished
// entry is released without waiting for the next scheduled tick.
type AttemptFinishedConsumer struct {
	Subscriber    ports.EventSubscriber
	Queue         *queue.Queue
	ConsumerGroup string
	Logger        *slog.Logger
}

func (c AttemptFinishedConsumer) Start(ctx context.Context) error {
	if c.Subscriber == nil {
		return nil
	}
	group := c.ConsumerGroup
	if group == "" {
		group = "post-orchestration-queue-cg"
	}
	return c.Subscriber.Subscribe(ctx, posting.TopicPostAttemptFinished, group, c.handle)
}

func (c AttemptFinishedConsumer) handle(ctx context.Context, event events.Envelope) error {
	logger := application.ResolveLogger(c.Logger)
	if event.EventType != posting.EventTypePostAttemptFinished {
		return nil
	}
	logger.Debug("post attempt finished received",
		"event", "post_attempt_finished_received",
		"module", "publishing/post-orchestration-service",
		"layer", "worker",
		"post_record_id", event.EntityID,
		"submission_id", event.CorrelationID,
	)
	return c.Queue.Execute(ctx)
}
