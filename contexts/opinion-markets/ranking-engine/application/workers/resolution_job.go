package workers

import (
	"context"
	"log/slog"

	application "scarab/contexts/opinion-markets/ranking-engine/application"
	"scarab/contexts/opinion-markets/ranking-engine/application/commands"
)

// ResolutionJob is the scheduled sweep that closes every due round. Cron
// wiring lives in the worker binary; this job only owns one pass.
type ResolutionJob struct {
	Resolver commands.ResolveUseCase
	Logger   *slog.Logger
}

// RunOnce resolves all expired rankings. Individual failures are already
// isolated inside the batch resolver; a non-empty failure list is surfaced in
// the cycle log rather than as an error so the schedule keeps firing.
func (j ResolutionJob) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(j.Logger)
	logger.Info("resolution sweep started",
		"event", "resolution_sweep_started",
		"module", "opinion-markets/ranking-engine",
		"layer", "worker",
	)

	result, err := j.Resolver.ResolveExpiredRankings(ctx)
	if err != nil {
		logger.Error("resolution sweep failed",
			"event", "resolution_sweep_failed",
			"module", "opinion-markets/ranking-engine",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	logger.Info("resolution sweep completed",
		"event", "resolution_sweep_completed",
		"module", "opinion-markets/ranking-engine",
		"layer", "worker",
		"resolved_count", len(result.Resolved),
		"failed_count", len(result.Failed),
	)
	return nil
}
