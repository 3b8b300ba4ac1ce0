package agent

import (
	"context"
	"time"

	"go.uber.org/zap"

	zmerr "github.com/vesaa/zmtalon/internal/errors"
	"github.com/vesaa/zmtalon/internal/models"
)

// Cycle is one collection, e.g. (*Collector).CollectOnce.
type Cycle interface {
	CollectOnce(ctx context.Context) (models.Metrics, error)
}

// Sink receives the outcome of every cycle.
type Sink interface {
	Publish(snap models.Snapshot)
}

// Run collects immediately, then every interval until ctx is cancelled.
// Cycles never overlap: the next tick is only taken after the current
// cycle returns, and ticks missed meanwhile are dropped. A failed cycle is
// reported to the sinks as a snapshot without data; it never stops the loop.
func Run(ctx context.Context, cycle Cycle, interval time.Duration, log *zap.SugaredLogger, sinks ...Sink) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Infof("collecting every %s", interval)
	runCycle(ctx, cycle, log, sinks)
	for {
		select {
		case <-ctx.Done():
			log.Info("collector stopped")
			return
		case <-ticker.C:
			runCycle(ctx, cycle, log, sinks)
		}
	}
}

// RunOnce executes a single cycle, publishes it, and returns its snapshot.
func RunOnce(ctx context.Context, cycle Cycle, log *zap.SugaredLogger, sinks ...Sink) models.Snapshot {
	return runCycle(ctx, cycle, log, sinks)
}

func runCycle(ctx context.Context, cycle Cycle, log *zap.SugaredLogger, sinks []Sink) models.Snapshot {
	start := time.Now()
	data, err := cycle.CollectOnce(ctx)

	snap := models.Snapshot{
		GeneratedAt: start.UTC(),
		Duration:    time.Since(start),
		OK:          err == nil,
		Metrics:     data,
	}
	if err != nil {
		snap.Metrics = nil
		snap.Error = err.Error()
		snap.ErrorCode = zmerr.CodeOf(err)
		log.Debugw("no data this cycle", "code", snap.ErrorCode, "error", err)
	} else {
		log.Debugw("cycle complete", "metrics", len(data), "duration", snap.Duration)
	}

	for _, s := range sinks {
		s.Publish(snap)
	}
	return snap
}
