// Package harvester is an incremental crawler for retailer catalog APIs.
//
// Each retailer is a source connector that knows its own wire protocol
// (authentication, endpoints, pagination, response schema). The crawl engine
// owns everything else: partition traversal, record deduplication, durable
// append-only output, and checkpointing after every page so an interrupted
// run resumes without re-emitting records.
//
// # Architecture
//
// The engine rests on a handful of guarantees:
//
// 1. Append-then-checkpoint: a checkpoint is only written after the page it
// covers has been flushed to disk, so a crash between the two re-fetches a
// page instead of losing records; the seen-set then drops the duplicates.
//
// 2. Key-based deduplication: every record has a stable key derived by its
// connector; a key is emitted at most once across all runs of a source.
//
// 3. Per-source isolation: each source runs in its own worker behind a panic
// boundary. A broken connector fails its own summary entry and nothing else.
//
// 4. Polite pacing: configurable jittered delays between page fetches,
// token-bucket rate limiting, and circuit breaking on the shared HTTP client.
//
// # Quick Start
//
//	import (
//	    "context"
//
//	    "github.com/retailstream/harvester/internal/crawl"
//	    "github.com/retailstream/harvester/pkg/connector/registry"
//	    "github.com/retailstream/harvester/pkg/connector/sources/jumbo"
//	)
//
//	cfg := jumbo.DefaultConfig()
//	conn, err := registry.Create("jumbo", cfg)
//	if err != nil {
//	    // handle error
//	}
//
//	worker := crawl.NewWorker(conn, cfg)
//	summary, err := crawl.NewOrchestrator([]*crawl.Worker{worker}).
//	    Run(context.Background(), crawl.ModeParallel)
//
// # Packages
//
//   - pkg/connector/core: the connector contract (Record, Cursor, Page,
//     Partition, Connector)
//   - pkg/connector/base: shared connector plumbing (HTTP, retry, auth cache)
//   - pkg/connector/registry: name-based connector factories
//   - pkg/connector/sources/...: the retailer connectors (ah, jumbo, aldi, plus)
//   - pkg/state: seen-set and atomic checkpoint store
//   - pkg/sink: append-only JSONL output, optionally zstd-compressed
//   - internal/crawl: the drive loop, per-source workers, and the orchestrator
package harvester
