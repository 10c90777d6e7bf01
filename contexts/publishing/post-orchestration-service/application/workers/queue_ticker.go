package workers

import (
	"context"
	"log/slog"

	application "crosspost/contexts/publishing/post-orchestration-service/application"
	"crosspost/contexts/publishing/post-orchestration-service/application/queue"
)

// QueueTicker runs one post queue tick per call.
type QueueTicker struct {
	Queue  *queue.Queue
	Logger *slog.Logger
}

func (t QueueTicker) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(t.Logger)
	if err := t.Queue.Execute(ctx); err != nil {
		logger.Error("post queue tick failed",
			"event", "post_queue_tick_failed",
			"module", "publishing/post-orchestration-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	return nil
}
