// Package sink persists accepted records. The only production sink is an
// append-only JSONL file per source: one JSON document per line, appended in
// acceptance order, flushed to disk before the covering checkpoint is saved.
package sink

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/retailstream/harvester/pkg/connector/core"
	"github.com/retailstream/harvester/pkg/errors"
	"github.com/retailstream/harvester/pkg/json"
	"github.com/retailstream/harvester/pkg/logger"
)

// Sink receives accepted records. Append must not return until the batch is
// durable: the crawl engine checkpoints immediately after a successful
// Append, and a checkpoint must never cover records that could be lost.
type Sink interface {
	// Append persists the batch in order.
	Append(records []*core.Record) error
	// Count returns the number of records appended during this run.
	Count() int64
	// Close flushes and releases the sink.
	Close() error
}

// JSONLSink appends records to a JSONL file, optionally zstd-compressed.
// The file is opened in append mode so successive runs extend rather than
// replace earlier output; with compression each run contributes one zstd
// frame, and concatenated frames decode as a single stream.
type JSONLSink struct {
	mu     sync.Mutex
	file   *os.File
	zst    *zstd.Encoder
	buf    *bufio.Writer
	count  int64
	closed bool
	logger *zap.Logger
}

// NewJSONLSink opens (or creates) the sink file at path. Compression is
// selected by the caller, typically from the storage configuration.
func NewJSONLSink(source, path string, compress bool) (*JSONLSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "create output directory")
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "open output file")
	}

	s := &JSONLSink{
		file:   file,
		logger: logger.Get().With(zap.String("component", "jsonl_sink"), zap.String("source", source)),
	}

	var w io.Writer = file
	if compress {
		z, err := zstd.NewWriter(file)
		if err != nil {
			_ = file.Close()
			return nil, errors.Wrap(err, errors.ErrorTypeInternal, "create zstd writer")
		}
		s.zst = z
		w = z
	}
	s.buf = bufio.NewWriterSize(w, 256<<10)

	return s, nil
}

// Append encodes and appends the batch, then flushes through to disk.
func (s *JSONLSink) Append(records []*core.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New(errors.ErrorTypeInternal, "append to closed sink")
	}

	for _, rec := range records {
		if err := json.EncodeLine(s.buf, rec); err != nil {
			return errors.Wrap(err, errors.ErrorTypeInternal, "encode record")
		}
	}

	if err := s.flushLocked(); err != nil {
		return err
	}

	s.count += int64(len(records))
	return nil
}

func (s *JSONLSink) flushLocked() error {
	if err := s.buf.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "flush sink buffer")
	}
	if s.zst != nil {
		if err := s.zst.Flush(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeInternal, "flush zstd frame")
		}
	}
	if err := s.file.Sync(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "sync output file")
	}
	return nil
}

// Count returns the number of records appended during this run.
func (s *JSONLSink) Count() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Close flushes pending output and closes the file. Idempotent.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.buf.Flush(); err != nil {
		_ = s.file.Close()
		return errors.Wrap(err, errors.ErrorTypeInternal, "flush sink buffer")
	}
	if s.zst != nil {
		if err := s.zst.Close(); err != nil {
			_ = s.file.Close()
			return errors.Wrap(err, errors.ErrorTypeInternal, "close zstd frame")
		}
	}
	if err := s.file.Sync(); err != nil {
		_ = s.file.Close()
		return errors.Wrap(err, errors.ErrorTypeInternal, "sync output file")
	}
	if err := s.file.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "close output file")
	}

	s.logger.Debug("sink closed", zap.Int64("records_appended", s.count))
	return nil
}
