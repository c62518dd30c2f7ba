package audit

import "context"

// Recorder is the port application services write audit entries through.
// The infrastructure implementation buffers asynchronously and flushes on
// shutdown; a full buffer drops the entry and counts it rather than blocking
// the request path.
type Recorder interface {
	// Record enqueues an entry for writing. It never blocks the caller.
	Record(ctx context.Context, entry *Entry)

	// Flush writes out everything buffered; called on shutdown
	Flush(ctx context.Context) error

	// Dropped returns how many entries were lost to a full buffer
	Dropped() int64
}
