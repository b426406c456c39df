package crawl

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/retailstream/harvester/pkg/config"
	"github.com/retailstream/harvester/pkg/connector/base"
	"github.com/retailstream/harvester/pkg/connector/core"
	"github.com/retailstream/harvester/pkg/errors"
	"github.com/retailstream/harvester/pkg/metrics"
	"github.com/retailstream/harvester/pkg/sink"
	"github.com/retailstream/harvester/pkg/state"
)

// stallLimit is the number of consecutive non-empty fetches with a
// non-advancing cursor after which a partition is declared exhausted. Some
// sources keep serving the last page forever instead of signalling the end;
// without this guard the driver would loop on it.
const stallLimit = 2

// driver walks one source's partitions page by page. It owns the ordering
// invariant: records are appended to the sink before the checkpoint covering
// them is saved, so a crash between the two re-fetches a page rather than
// losing it (duplicates are then dropped by the seen-set).
type driver struct {
	conn    core.Connector
	cfg     *config.Config
	cp      *state.Checkpoint
	store   *state.Store
	seen    *state.SeenSet
	sink    sink.Sink
	retry   *base.RetryPolicy
	metrics *metrics.Collector
	logger  *zap.Logger
	rng     *rand.Rand
}

func newDriver(conn core.Connector, cfg *config.Config, cp *state.Checkpoint, store *state.Store, snk sink.Sink, log *zap.Logger) *driver {
	return &driver{
		conn:  conn,
		cfg:   cfg,
		cp:    cp,
		store: store,
		seen:  cp.Seen(),
		sink:  snk,
		retry: &base.RetryPolicy{
			MaxAttempts:     cfg.Reliability.RetryAttempts,
			InitialDelay:    cfg.Reliability.RetryDelay,
			MaxDelay:        cfg.Reliability.MaxRetryDelay,
			Multiplier:      cfg.Reliability.RetryMultiplier,
			RandomizeFactor: 0.25,
		},
		metrics: metrics.NewCollector(conn.Name()),
		logger:  log,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// drivePartition crawls one partition from its checkpointed cursor until the
// source reports exhaustion, a page comes back empty, or the stall guard
// fires. Every successful page advances the checkpoint.
func (d *driver) drivePartition(ctx context.Context, p core.Partition) error {
	d.metrics.PartitionStarted()
	defer d.metrics.PartitionDone()

	cursor := d.cp.Cursors[p.ID]
	log := d.logger.With(zap.String("partition", p.ID))

	if !cursor.IsZero() {
		log.Info("resuming partition", zap.String("cursor", cursor.String()))
	}

	stalls := 0
	for {
		page, err := d.fetchPage(ctx, p, cursor)
		if err != nil {
			d.metrics.PartitionFailed()
			return err
		}

		accepted, skipped := d.splitPage(page.Records)
		if len(accepted) > 0 {
			if err := d.sink.Append(accepted); err != nil {
				d.metrics.PartitionFailed()
				return err
			}
			for _, rec := range accepted {
				d.seen.Add(rec.Key)
			}
		}
		d.metrics.RecordsHandled(len(accepted), skipped)

		if page.Truncated {
			log.Warn("source page cap reached, partition results may be truncated",
				zap.String("cursor", cursor.String()))
		}

		exhausted := page.Exhausted || len(page.Records) == 0

		if !exhausted {
			if page.Next.Equal(cursor) {
				stalls++
				if stalls >= stallLimit {
					log.Warn("pagination stalled, treating partition as exhausted",
						zap.String("cursor", cursor.String()))
					exhausted = true
				}
			} else {
				stalls = 0
			}
		}

		if exhausted {
			d.cp.Completed[p.ID] = true
			delete(d.cp.Cursors, p.ID)
		} else {
			d.cp.Cursors[p.ID] = page.Next
		}
		if err := d.saveCheckpoint(accepted); err != nil {
			d.metrics.PartitionFailed()
			return err
		}

		if exhausted {
			log.Debug("partition complete")
			return nil
		}

		cursor = page.Next

		if err := d.pageDelay(ctx); err != nil {
			d.metrics.PartitionFailed()
			return err
		}
	}
}

// fetchPage fetches one page under the retry policy, retrying only errors
// the connector classifies as transient.
func (d *driver) fetchPage(ctx context.Context, p core.Partition, cursor core.Cursor) (*core.Page, error) {
	var page *core.Page
	start := time.Now()
	err := d.retry.ExecuteWithCondition(ctx, func() error {
		fetched, ferr := d.conn.FetchPage(ctx, p, cursor)
		if ferr != nil {
			return ferr
		}
		page = fetched
		return nil
	}, d.conn.IsTransient)
	if err != nil {
		return nil, err
	}
	d.metrics.PageFetched(time.Since(start))
	return page, nil
}

// splitPage partitions a page's records into first-seen and already-seen,
// stamping Key and Source on the accepted records.
func (d *driver) splitPage(records []*core.Record) ([]*core.Record, int) {
	accepted := make([]*core.Record, 0, len(records))
	skipped := 0
	inPage := make(map[string]struct{}, len(records))

	for _, rec := range records {
		key := d.conn.KeyOf(rec)
		if key == "" {
			// A record without a stable key can't be deduplicated;
			// dropping it is safer than emitting it on every run.
			d.logger.Warn("record without key dropped")
			skipped++
			continue
		}
		if _, dup := inPage[key]; dup || d.seen.Contains(key) {
			skipped++
			continue
		}
		inPage[key] = struct{}{}
		rec.Key = key
		rec.Source = d.conn.Name()
		accepted = append(accepted, rec)
	}
	return accepted, skipped
}

// saveCheckpoint persists the crawl state covering the just-appended records.
func (d *driver) saveCheckpoint(appended []*core.Record) error {
	for _, rec := range appended {
		d.cp.SeenKeys = append(d.cp.SeenKeys, rec.Key)
	}
	if err := d.store.Save(d.cp); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "save checkpoint")
	}
	d.metrics.CheckpointSaved()
	return nil
}

// pageDelay sleeps the configured inter-page delay with jitter, honouring
// context cancellation.
func (d *driver) pageDelay(ctx context.Context) error {
	delay := d.cfg.Crawl.PageDelay
	if delay <= 0 {
		return nil
	}
	if j := d.cfg.Crawl.PageDelayJitter; j > 0 {
		spread := float64(delay) * j
		delay = time.Duration(float64(delay) - spread + d.rng.Float64()*2*spread)
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.ErrorTypeInternal, "crawl cancelled")
	case <-timer.C:
		return nil
	}
}
