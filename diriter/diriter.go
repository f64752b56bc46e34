// Package diriter implements the pull-based, batched async directory
// iterator of spec §4.G: a stream layered on direntry's sync cursor
// that drains up to batch_size entries per hop across an executor
// job, so the caller suspends once per batch rather than once per
// entry.
//
// Grounded on the same rclone local-backend listing strategy as
// direntry (Readdirnames-then-batch), here split across the executor
// boundary the way rclone's accounting package keeps blocking network
// I/O off the caller's goroutine.
package diriter

import (
	"context"

	"github.com/ncw/gofs/direntry"
	"github.com/ncw/gofs/executor"
)

// DefaultBatchSize is used when a non-positive batch size is passed
// to Open.
const DefaultBatchSize = 128

type batchResult struct {
	entries []direntry.Entry
	eof     bool
}

// Stream is a pull-based async directory iterator. Call Next
// repeatedly; it suspends (via the Executor) only when the current
// batch is exhausted.
type Stream struct {
	exec      *executor.Executor
	cursor    *direntry.DirCursor
	closer    *direntry.Closer
	batchSize int

	current []direntry.Entry
	idx     int
	atEOF   bool

	// pending holds the Future for a batch job already submitted
	// against cursor whose Await returned an error: the caller's ctx
	// expired or was cancelled before the job finished, or the job
	// itself failed. direntry's
	// DirCursor is single-threaded (spec §5): a second call to Next
	// must re-await this same Future rather than submit a new job that
	// would run concurrently with it over the same cursor.
	pending *executor.Future
}

// Open starts a stream over path, dispatching readdir work through
// exec. batchSize <= 0 uses DefaultBatchSize.
func Open(exec *executor.Executor, path string, batchSize int) (*Stream, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	cursor, closer, err := direntry.MakeIterator(path)
	if err != nil {
		return nil, err
	}
	return &Stream{exec: exec, cursor: cursor, closer: closer, batchSize: batchSize}, nil
}

// Next returns the next entry. The returned bool is false once the
// stream is exhausted; check err to distinguish clean end-of-stream
// from a failure.
//
// Entries are delivered in the order direntry's sync cursor yields
// them; batches do not overlap, matching spec §4.G's ordering
// guarantee.
func (s *Stream) Next(ctx context.Context) (direntry.Entry, bool, error) {
	for {
		if s.idx < len(s.current) {
			e := s.current[s.idx]
			s.idx++
			return e, true, nil
		}
		if s.atEOF {
			return direntry.Entry{}, false, nil
		}

		batch, eof, err := s.fetchBatch(ctx)
		if err != nil {
			return direntry.Entry{}, false, err
		}
		s.current = batch
		s.idx = 0
		s.atEOF = eof
		if len(batch) == 0 {
			return direntry.Entry{}, false, nil
		}
	}
}

func (s *Stream) fetchBatch(ctx context.Context) ([]direntry.Entry, bool, error) {
	future := s.pending
	if future == nil {
		batchSize := s.batchSize
		cursor := s.cursor
		closer := s.closer

		var err error
		future, err = s.exec.Submit(ctx, func(jobCtx context.Context) (interface{}, error) {
			entries := make([]direntry.Entry, 0, batchSize)
			eof := false
			for len(entries) < batchSize {
				entry, ok := cursor.Next()
				if !ok {
					eof = true
					break
				}
				entries = append(entries, entry)
			}
			var lastErr error
			if eof {
				lastErr = cursor.LastError()
				// Close here, on the worker, so the DIR-stream is released
				// whether or not the caller is still waiting on this job's
				// Future: a cancelled Await detaches the waiter but this
				// closure still runs to completion, matching spec §4.G's
				// "resource release is not skipped" guarantee.
				if closeErr := closer.Close(); closeErr != nil && lastErr == nil {
					lastErr = closeErr
				}
			}
			return batchResult{entries: entries, eof: eof}, lastErr
		})
		if err != nil {
			return nil, false, err
		}
	}

	result, err := future.Await(ctx)
	if err != nil {
		// Either the wait was cut short and the job is still running
		// against cursor, or the job itself finished with an error after
		// closing cursor. Either way, remember it so the next Next() call
		// re-awaits it instead of submitting a second job over the same
		// DirCursor.
		s.pending = future
		return nil, false, err
	}
	s.pending = nil
	br := result.(batchResult)
	return br.entries, br.eof, nil
}

// Close releases the underlying DIR-stream if the stream was dropped
// before reaching end-of-stream. Idempotent.
func (s *Stream) Close() error {
	return s.closer.Close()
}
