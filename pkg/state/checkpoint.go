package state

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/retailstream/harvester/pkg/connector/core"
	"github.com/retailstream/harvester/pkg/errors"
	"github.com/retailstream/harvester/pkg/json"
	"github.com/retailstream/harvester/pkg/logger"
)

// Checkpoint is one source's persisted crawl state. A checkpoint is written
// only after the page it covers has been flushed to the output sink, so
// resuming from a checkpoint never skips a record that was not persisted.
type Checkpoint struct {
	// SeenKeys holds every record key already appended to the sink
	SeenKeys []string `json:"seen_keys"`
	// Cursors maps partition ID to the next page's cursor
	Cursors map[string]core.Cursor `json:"cursors"`
	// Completed maps partition ID to true once the partition is exhausted
	Completed map[string]bool `json:"completed"`
	// UpdatedAt records the last save time
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCheckpoint creates an empty checkpoint.
func NewCheckpoint() *Checkpoint {
	return &Checkpoint{
		Cursors:   make(map[string]core.Cursor),
		Completed: make(map[string]bool),
	}
}

// Seen rebuilds the seen-set from the checkpoint's key list.
func (cp *Checkpoint) Seen() *SeenSet {
	s := NewSeenSet()
	s.AddAll(cp.SeenKeys)
	return s
}

// CompletedCount returns the number of partitions marked complete.
func (cp *Checkpoint) CompletedCount() int {
	n := 0
	for _, done := range cp.Completed {
		if done {
			n++
		}
	}
	return n
}

// Store persists checkpoints for one source. Saves are atomic: the
// checkpoint is written to a temp file in the same directory, fsynced, and
// renamed over the previous one, so a crash mid-save leaves the prior
// checkpoint intact.
type Store struct {
	path   string
	logger *zap.Logger
}

// NewStore creates a checkpoint store writing to path.
func NewStore(source, path string) *Store {
	return &Store{
		path:   path,
		logger: logger.Get().With(zap.String("component", "checkpoint_store"), zap.String("source", source)),
	}
}

// Path returns the checkpoint file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the checkpoint from disk. A missing file yields a fresh
// checkpoint. A corrupt or unreadable file is logged and also yields a
// fresh checkpoint: losing resume progress costs a re-crawl, crashing
// costs the whole run.
func (s *Store) Load() *Checkpoint {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("checkpoint unreadable, starting fresh", zap.Error(err))
		}
		return NewCheckpoint()
	}

	cp := NewCheckpoint()
	if err := json.Unmarshal(data, cp); err != nil {
		s.logger.Warn("checkpoint corrupt, starting fresh",
			zap.String("path", s.path), zap.Error(err))
		return NewCheckpoint()
	}

	// Guard against hand-edited files with null maps.
	if cp.Cursors == nil {
		cp.Cursors = make(map[string]core.Cursor)
	}
	if cp.Completed == nil {
		cp.Completed = make(map[string]bool)
	}

	s.logger.Info("checkpoint loaded",
		zap.Int("seen_keys", len(cp.SeenKeys)),
		zap.Int("completed_partitions", cp.CompletedCount()),
		zap.Time("updated_at", cp.UpdatedAt))
	return cp
}

// Save writes the checkpoint atomically.
func (s *Store) Save(cp *Checkpoint) error {
	cp.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "encode checkpoint")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "create checkpoint directory")
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "create checkpoint temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Wrap(err, errors.ErrorTypeInternal, "write checkpoint")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Wrap(err, errors.ErrorTypeInternal, "sync checkpoint")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, errors.ErrorTypeInternal, "close checkpoint temp file")
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, errors.ErrorTypeInternal, "replace checkpoint")
	}
	return nil
}

// Reset deletes the checkpoint file. Used by fresh-run mode.
func (s *Store) Reset() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.ErrorTypeInternal, "remove checkpoint")
	}
	return nil
}
