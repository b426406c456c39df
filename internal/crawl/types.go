// Package crawl implements the harvest engine: it drives source connectors
// through their partitions page by page, deduplicates records, appends them
// to the output sink, and checkpoints after every page so an interrupted run
// resumes where it stopped.
package crawl

import (
	"fmt"
	"sort"
	"time"
)

// Mode selects how sources are scheduled within a run.
type Mode string

const (
	// ModeParallel runs every source in its own goroutine.
	ModeParallel Mode = "parallel"
	// ModeSequential is reserved; selecting it fails fast.
	ModeSequential Mode = "sequential"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeParallel, ModeSequential:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q (want %q or %q)", s, ModeParallel, ModeSequential)
	}
}

// Status is the final disposition of one source within a run.
type Status string

const (
	// StatusCompleted means every partition finished or was already complete.
	StatusCompleted Status = "completed"
	// StatusFailed means at least one partition was abandoned or the source
	// could not start.
	StatusFailed Status = "failed"
)

// SourceResult summarizes one source's run.
type SourceResult struct {
	// Source is the connector name
	Source string `json:"source"`
	// Records is the number of new records appended during this run
	Records int64 `json:"records"`
	// Partitions is the number of partitions driven (completed ones
	// skipped on resume are not counted)
	Partitions int `json:"partitions"`
	// FailedPartitions counts partitions abandoned with an error
	FailedPartitions int `json:"failed_partitions,omitempty"`
	// Status is the source's final disposition
	Status Status `json:"status"`
	// Err holds the first error encountered, nil on success
	Err error `json:"-"`
	// Error is Err rendered for the summary output
	Error string `json:"error,omitempty"`
}

// Summary aggregates the results of one run across all sources.
type Summary struct {
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at"`
	Sources    map[string]SourceResult `json:"sources"`
}

// TotalRecords returns the number of records appended across all sources.
func (s *Summary) TotalRecords() int64 {
	var n int64
	for _, r := range s.Sources {
		n += r.Records
	}
	return n
}

// Failed reports whether any source failed.
func (s *Summary) Failed() bool {
	for _, r := range s.Sources {
		if r.Status != StatusCompleted {
			return true
		}
	}
	return false
}

// SourceNames returns the sources in sorted order, for stable output.
func (s *Summary) SourceNames() []string {
	names := make([]string, 0, len(s.Sources))
	for name := range s.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
