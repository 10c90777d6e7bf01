package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	postorchestration "crosspost/contexts/publishing/post-orchestration-service"
	domainerrors "crosspost/contexts/publishing/post-orchestration-service/domain/errors"
	"crosspost/internal/platform/config"
)

const maxDrainTicks = 10000

// Engine drives one post queue: crash recovery at startup, the finished-attempt
// consumer, and the periodic queue tick. Exactly one engine may run per database.
type Engine struct {
	module        postorchestration.Module
	tickInterval  time.Duration
	crashRecovery bool
	logger        *slog.Logger
}

func NewEngine(module postorchestration.Module, cfg config.Config, logger *slog.Logger) Engine {
	if logger == nil {
		logger = slog.Default()
	}
	interval := cfg.QueueTickInterval
	if interval <= 0 {
		interval = time.Second
	}
	return Engine{
		module:        module,
		tickInterval:  interval,
		crashRecovery: cfg.EnableCrashRecovery,
		logger:        logger,
	}
}

// Run returns nil once ctx is done and in-flight attempts have been stopped.
func (e Engine) Run(ctx context.Context) error {
	if e.crashRecovery {
		recovered, err := e.module.Recovery.RunOnce(ctx)
		if err != nil {
			return err
		}
		e.logger.Info("crash recovery completed",
			"event", "bootstrap_crash_recovery_completed",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"recovered", recovered,
		)
	}
	if err := e.module.Finished.Start(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(e.tickInterval)
	defer ticker.Stop()

	e.logger.Info("post queue engine started",
		"event", "bootstrap_engine_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"tick_interval", e.tickInterval.String(),
		"paused", e.module.Queue.IsPaused(),
	)

	for {
		// Tick failures are logged by the ticker and retried on the next tick.
		_ = e.module.Ticker.RunOnce(ctx)
		select {
		case <-ctx.Done():
			return e.stop(ctx)
		case <-ticker.C:
		}
	}
}

func (e Engine) stop(ctx context.Context) error {
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	err := e.module.Registry.Stop(stopCtx)
	e.logger.Info("post queue engine stopped",
		"event", "bootstrap_engine_stopped",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"clean", err == nil,
	)
	return wrapStop(err)
}

// Drain ticks until the queue is empty and nothing is posting, or ctx is done.
// It backs one-shot recovery runs outside the long-lived processes.
func (e Engine) Drain(ctx context.Context) error {
	for tick := 0; tick < maxDrainTicks; tick++ {
		if err := e.module.Ticker.RunOnce(ctx); err != nil {
			return err
		}
		e.module.Registry.Wait()
		status, err := e.module.Queries.QueueStatus(ctx)
		if err != nil {
			return err
		}
		if len(status.Queued) == 0 && len(status.Running) == 0 {
			return nil
		}
		if status.Paused {
			return nil
		}
		if len(status.Running) == 0 {
			stalled, err := e.module.Queue.Stalled(ctx)
			if err != nil {
				return err
			}
			if stalled {
				return domainerrors.ErrPostAttemptStalled
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return fmt.Errorf("post queue did not drain after %d ticks", maxDrainTicks)
}
