// Package core defines the contract between the crawl engine and source
// connectors. A connector owns everything wire-specific about one retailer's
// catalog API (auth exchange, endpoints, headers, response schema); the
// engine owns pagination traversal, deduplication, checkpointing, and
// persistence. Nothing in this package touches the network.
package core

import (
	"context"
	"fmt"
)

// Record is the envelope for one catalog document. Key is the record's
// stable identifier within its source's namespace, derived by the
// connector's KeyOf. Metadata carries source-side annotations (for example
// the category a record was found under) without polluting the payload.
type Record struct {
	// Key is the stable unique identifier within the source's namespace
	Key string `json:"key"`
	// Source names the connector that produced the record
	Source string `json:"source"`
	// Data contains the catalog document as returned by the source
	Data map[string]interface{} `json:"data"`
	// Metadata contains source-side annotations (category name, shelf, ...)
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SetMeta attaches a metadata annotation, allocating the map lazily.
func (r *Record) SetMeta(key, value string) {
	if r.Metadata == nil {
		r.Metadata = make(map[string]string, 4)
	}
	r.Metadata[key] = value
}

// Cursor is a pagination position within one partition. Sources use either
// the numeric fields (offset or page number) or an opaque continuation
// token; the engine never interprets the contents, it only forwards the
// cursor back to the connector and compares cursors for the stall guard.
type Cursor struct {
	Offset int    `json:"offset,omitempty"`
	Page   int    `json:"page,omitempty"`
	Token  string `json:"token,omitempty"`
}

// Equal reports whether two cursors denote the same position.
func (c Cursor) Equal(other Cursor) bool {
	return c.Offset == other.Offset && c.Page == other.Page && c.Token == other.Token
}

// IsZero reports whether the cursor is the start-of-partition position.
func (c Cursor) IsZero() bool {
	return c.Equal(Cursor{})
}

// String returns a string representation of the cursor.
func (c Cursor) String() string {
	if c.Token != "" {
		return "token:" + c.Token
	}
	return fmt.Sprintf("page:%d offset:%d", c.Page, c.Offset)
}

// Page is the result of fetching one page of a partition.
type Page struct {
	// Records holds the page's documents, in source order
	Records []*Record
	// Next is the cursor for the following page; meaningless when Exhausted
	Next Cursor
	// Exhausted signals that the partition has no further pages
	Exhausted bool
	// Truncated signals that a source-side page cap may have cut results
	// short; the partition still completes, but the condition is surfaced
	// instead of stopping silently
	Truncated bool
}

// Partition is one independently paginated subdivision of a source's
// catalog, typically a category or collection. Partition trees are
// flattened before driving; Depth records where in the tree the partition
// sat.
type Partition struct {
	// ID uniquely identifies the partition within the source
	ID string `json:"id"`
	// Name is the human-readable partition label
	Name string `json:"name"`
	// Depth is the partition's depth in the source-side category tree
	Depth int `json:"depth"`
}

// Connector is the capability contract a source plugs into the engine.
// Implementations must be free of side effects beyond network I/O, and all
// methods are called from a single goroutine (one worker per source).
type Connector interface {
	// Name returns the source name (also the record namespace)
	Name() string

	// Authenticate acquires whatever credential the source requires.
	// It is idempotent; the credential is cached for the worker's lifetime.
	Authenticate(ctx context.Context) error

	// ListPartitions returns the source's partitions, already flattened.
	ListPartitions(ctx context.Context) ([]Partition, error)

	// FetchPage fetches one page of the partition at the given cursor.
	// The zero Cursor means start of partition. The connector never
	// receives a cursor it did not itself return.
	FetchPage(ctx context.Context, partition Partition, cursor Cursor) (*Page, error)

	// KeyOf derives the record's stable Key. It must be pure.
	KeyOf(record *Record) string

	// IsTransient classifies an error from FetchPage or ListPartitions as
	// retryable (timeouts, 5xx) versus fatal (auth, malformed schema).
	IsTransient(err error) bool

	// Close releases connector resources.
	Close(ctx context.Context) error
}
