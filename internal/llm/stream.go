package llm

import (
	"context"
	"errors"
	"sync"
)

// Stream is a finite, single-use sequence of text fragments from one
// provider. Close releases the underlying connection and may be called from
// any goroutine, any number of times.
type Stream struct {
	Provider string

	ch     <-chan StreamChunk
	cancel context.CancelFunc

	mu     sync.Mutex
	done   bool
	err    error
	usage  [2]int
	closed bool
}

func newStream(provider string, ch <-chan StreamChunk, cancel context.CancelFunc) *Stream {
	return &Stream{Provider: provider, ch: ch, cancel: cancel}
}

// Next blocks for the next fragment. It returns false once the stream has
// ended, failed or been closed; Err distinguishes failure.
func (s *Stream) Next() (string, bool) {
	for {
		if s.finished() {
			return "", false
		}
		chunk, ok := <-s.ch
		if !ok {
			s.finish(nil)
			return "", false
		}
		if chunk.Error != nil {
			s.finish(chunk.Error)
			return "", false
		}
		if chunk.Done {
			s.mu.Lock()
			s.usage = [2]int{chunk.InputTokens, chunk.OutputTokens}
			s.mu.Unlock()
			if chunk.Content != "" {
				s.finish(nil)
				return chunk.Content, true
			}
			s.finish(nil)
			return "", false
		}
		if chunk.Content != "" {
			return chunk.Content, true
		}
	}
}

// Err reports the failure that ended the stream. Closing the stream or
// cancelling its context is not a failure.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Usage reports token counts once the provider has sent them.
func (s *Stream) Usage() (input, output int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage[0], s.usage[1]
}

func (s *Stream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.done = true
	s.mu.Unlock()
	s.cancel()
	return nil
}

func (s *Stream) finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *Stream) finish(err error) {
	s.mu.Lock()
	if !s.closed && err != nil && !errors.Is(err, context.Canceled) {
		s.err = err
	}
	s.done = true
	s.mu.Unlock()
	s.cancel()
}
