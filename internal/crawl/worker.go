package crawl

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/retailstream/harvester/pkg/config"
	"github.com/retailstream/harvester/pkg/connector/core"
	"github.com/retailstream/harvester/pkg/errors"
	"github.com/retailstream/harvester/pkg/logger"
	"github.com/retailstream/harvester/pkg/sink"
	"github.com/retailstream/harvester/pkg/state"
)

// Worker harvests one source end to end: load checkpoint, authenticate,
// list partitions, drive each partition that isn't already complete, and
// report the result. A worker owns its connector; nothing it does is visible
// to other sources.
type Worker struct {
	conn core.Connector
	cfg  *config.Config

	// Reset discards the source's checkpoint and records file before the
	// run starts, forcing a full re-crawl.
	Reset bool

	logger *zap.Logger
}

// NewWorker creates a worker for the connector.
func NewWorker(conn core.Connector, cfg *config.Config) *Worker {
	return &Worker{
		conn:   conn,
		cfg:    cfg,
		logger: logger.Get().With(zap.String("source", conn.Name())),
	}
}

// Run executes the harvest for this worker's source. It never returns a Go
// error: every failure is captured in the SourceResult so one source's
// trouble can't abort its siblings.
func (w *Worker) Run(ctx context.Context) SourceResult {
	name := w.conn.Name()
	result := SourceResult{Source: name, Status: StatusCompleted}

	defer func() {
		if err := w.conn.Close(context.Background()); err != nil {
			w.logger.Warn("connector close failed", zap.Error(err))
		}
	}()

	store := state.NewStore(name, w.cfg.CheckpointPath())
	if w.Reset {
		if err := w.resetState(store); err != nil {
			return w.fail(result, err)
		}
	}
	cp := store.Load()

	snk, err := sink.NewJSONLSink(name, w.cfg.RecordsPath(), w.cfg.Storage.Compress)
	if err != nil {
		return w.fail(result, err)
	}
	defer func() {
		if cerr := snk.Close(); cerr != nil {
			w.logger.Warn("sink close failed", zap.Error(cerr))
		}
	}()

	if err := w.conn.Authenticate(ctx); err != nil {
		return w.fail(result, errors.Wrap(err, errors.ErrorTypeAuthentication, "authenticate"))
	}

	partitions, err := w.conn.ListPartitions(ctx)
	if err != nil {
		return w.fail(result, err)
	}
	w.logger.Info("partitions listed", zap.Int("count", len(partitions)))

	d := newDriver(w.conn, w.cfg, cp, store, snk, w.logger)

	for _, p := range partitions {
		if cp.Completed[p.ID] {
			w.logger.Debug("partition already complete, skipping", zap.String("partition", p.ID))
			continue
		}
		if ctx.Err() != nil {
			result.Records = snk.Count()
			return w.fail(result, errors.Wrap(ctx.Err(), errors.ErrorTypeInternal, "run cancelled"))
		}

		result.Partitions++
		if err := d.drivePartition(ctx, p); err != nil {
			result.FailedPartitions++
			if result.Err == nil {
				result.Err = err
			}
			w.logger.Error("partition failed",
				zap.String("partition", p.ID), zap.Error(err))

			if errors.IsFatal(err) {
				w.logger.Error("fatal error, abandoning source")
				break
			}
			continue
		}
	}

	result.Records = snk.Count()
	if result.Err != nil {
		result.Status = StatusFailed
		result.Error = result.Err.Error()
	}

	w.logger.Info("source finished",
		zap.String("status", string(result.Status)),
		zap.Int64("records", result.Records),
		zap.Int("partitions", result.Partitions),
		zap.Int("failed_partitions", result.FailedPartitions))
	return result
}

// resetState removes the checkpoint and records file for a fresh run.
func (w *Worker) resetState(store *state.Store) error {
	w.logger.Info("resetting source state")
	if err := store.Reset(); err != nil {
		return err
	}
	if err := os.Remove(w.cfg.RecordsPath()); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.ErrorTypeInternal, "remove records file")
	}
	return nil
}

func (w *Worker) fail(result SourceResult, err error) SourceResult {
	result.Status = StatusFailed
	result.Err = err
	result.Error = err.Error()
	w.logger.Error("source failed", zap.Error(err))
	return result
}
