package crawl

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/retailstream/harvester/pkg/errors"
	"github.com/retailstream/harvester/pkg/logger"
)

// Orchestrator schedules one run across any number of source workers. Each
// source runs isolated in its own goroutine with a panic boundary, so a
// connector bug in one retailer's adapter can't take down the rest of the
// run.
type Orchestrator struct {
	workers []*Worker
	logger  *zap.Logger
}

// NewOrchestrator creates an orchestrator over the given workers.
func NewOrchestrator(workers []*Worker) *Orchestrator {
	return &Orchestrator{
		workers: workers,
		logger:  logger.Get().With(zap.String("component", "orchestrator")),
	}
}

// Run executes the harvest in the given mode and returns the per-source
// summary. Only parallel scheduling is implemented; sequential mode fails
// fast rather than silently behaving like parallel.
func (o *Orchestrator) Run(ctx context.Context, mode Mode) (*Summary, error) {
	switch mode {
	case ModeParallel:
		return o.runParallel(ctx), nil
	case ModeSequential:
		return nil, errors.New(errors.ErrorTypeCapability, "sequential mode is not implemented")
	default:
		return nil, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("unknown mode %q", mode))
	}
}

func (o *Orchestrator) runParallel(ctx context.Context) *Summary {
	summary := &Summary{
		StartedAt: time.Now().UTC(),
		Sources:   make(map[string]SourceResult, len(o.workers)),
	}

	o.logger.Info("run starting", zap.Int("sources", len(o.workers)))

	results := make(chan SourceResult, len(o.workers))
	var wg sync.WaitGroup
	for _, w := range o.workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			results <- o.runIsolated(ctx, w)
		}(w)
	}
	wg.Wait()
	close(results)

	for r := range results {
		summary.Sources[r.Source] = r
	}
	summary.FinishedAt = time.Now().UTC()

	o.logger.Info("run finished",
		zap.Int64("total_records", summary.TotalRecords()),
		zap.Bool("failed", summary.Failed()),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)))
	return summary
}

// runIsolated runs one worker behind a panic boundary. A panicking connector
// yields a failed result for its source and nothing else.
func (o *Orchestrator) runIsolated(ctx context.Context, w *Worker) (result SourceResult) {
	name := w.conn.Name()
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("source panicked", zap.String("source", name), zap.Any("panic", r))
			err := errors.New(errors.ErrorTypeInternal, fmt.Sprintf("source panicked: %v", r))
			result = SourceResult{Source: name, Status: StatusFailed, Err: err, Error: err.Error()}
		}
	}()
	return w.Run(ctx)
}
