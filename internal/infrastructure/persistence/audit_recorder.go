package persistence

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/audit"
)

const (
	recorderBufferSize   = 4096
	recorderBatchSize    = 100
	recorderFlushEvery   = 2 * time.Second
	recorderWriteTimeout = 10 * time.Second
)

// BufferedRecorder implements audit.Recorder. Entries are queued on a channel
// and written in batches by a background goroutine, so request handlers never
// wait on the audit table. A full queue drops the entry and counts it.
type BufferedRecorder struct {
	repo    audit.Repository
	logger  *zap.Logger
	queue   chan *audit.Entry
	dropped atomic.Int64

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewBufferedRecorder creates a recorder and starts its writer goroutine
func NewBufferedRecorder(repo audit.Repository, logger *zap.Logger) *BufferedRecorder {
	r := &BufferedRecorder{
		repo:   repo,
		logger: logger,
		queue:  make(chan *audit.Entry, recorderBufferSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// Record enqueues an entry for writing. It never blocks the caller.
func (r *BufferedRecorder) Record(_ context.Context, entry *audit.Entry) {
	if entry == nil {
		return
	}
	select {
	case r.queue <- entry:
	default:
		r.dropped.Add(1)
	}
}

// Dropped returns how many entries were lost to a full buffer
func (r *BufferedRecorder) Dropped() int64 {
	return r.dropped.Load()
}

// Flush stops the writer and drains everything still buffered. Called once
// on shutdown.
func (r *BufferedRecorder) Flush(ctx context.Context) error {
	r.stopOnce.Do(func() { close(r.stop) })

	select {
	case <-r.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return r.writeBatch(ctx, r.drain(recorderBufferSize))
}

func (r *BufferedRecorder) run() {
	defer close(r.done)

	ticker := time.NewTicker(recorderFlushEvery)
	defer ticker.Stop()

	var pending []audit.Entry
	flush := func() {
		if len(pending) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), recorderWriteTimeout)
		if err := r.repo.SaveBatch(ctx, pending); err != nil {
			r.logger.Error("audit batch write failed",
				zap.Int("entries", len(pending)),
				zap.Error(err))
		}
		cancel()
		pending = pending[:0]
	}

	for {
		select {
		case entry := <-r.queue:
			pending = append(pending, *entry)
			if len(pending) >= recorderBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-r.stop:
			flush()
			return
		}
	}
}

func (r *BufferedRecorder) drain(max int) []audit.Entry {
	var entries []audit.Entry
	for len(entries) < max {
		select {
		case entry := <-r.queue:
			entries = append(entries, *entry)
		default:
			return entries
		}
	}
	return entries
}

func (r *BufferedRecorder) writeBatch(ctx context.Context, entries []audit.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.repo.SaveBatch(ctx, entries)
}
