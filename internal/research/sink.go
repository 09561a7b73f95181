package research

import (
	"context"
	"sync"

	"token-intel/internal/domain"
)

// ChanSink hands progress messages to a single consumer goroutine in emit
// order. Emit blocks while the buffer is full.
type ChanSink struct {
	ch     chan domain.ProgressMessage
	once   sync.Once
	mu     sync.RWMutex
	closed bool
}

// NewChanSink creates a ChanSink with the given buffer size.
func NewChanSink(buffer int) *ChanSink {
	return &ChanSink{ch: make(chan domain.ProgressMessage, buffer)}
}

// Emit queues msg for the consumer. Messages emitted after Close are dropped.
func (s *ChanSink) Emit(ctx context.Context, msg domain.ProgressMessage) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}
	select {
	case s.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Messages returns the consumer side. It is closed by Close.
func (s *ChanSink) Messages() <-chan domain.ProgressMessage {
	return s.ch
}

// Close ends the stream. Safe to call more than once.
func (s *ChanSink) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
}
