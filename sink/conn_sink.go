// Package sink provides delivery targets for serialized outbound
// effects.
package sink

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ConnSink buffers outbound payloads for one connection. The write
// pump drains Outbound; Consume never blocks the caller past the
// configured timeout, so one slow recipient cannot stall a broadcast.
type ConnSink struct {
	log     *slog.Logger
	out     chan []byte
	done    chan struct{}
	once    sync.Once
	timeout time.Duration
}

func NewConnSink(log *slog.Logger, bufferSize int, timeout time.Duration) *ConnSink {
	return &ConnSink{
		log:     log,
		out:     make(chan []byte, bufferSize),
		done:    make(chan struct{}),
		timeout: timeout,
	}
}

// Consume enqueues a payload for the write pump. Returns an error when
// the recipient's buffer stayed full for the whole timeout or the sink
// was closed; the caller logs and moves on.
func (s *ConnSink) Consume(ctx context.Context, payload []byte) error {
	select {
	case <-s.done:
		return fmt.Errorf("sink closed")
	case s.out <- payload:
		return nil
	default:
	}

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()
	select {
	case s.out <- payload:
		return nil
	case <-s.done:
		return fmt.Errorf("sink closed")
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		s.log.Warn("recipient too slow, dropping payload", "buffer", cap(s.out))
		return fmt.Errorf("delivery timeout after %s", s.timeout)
	}
}

// Outbound is drained by the connection's write pump.
func (s *ConnSink) Outbound() <-chan []byte {
	return s.out
}

// Done closes when the sink is shut down.
func (s *ConnSink) Done() <-chan struct{} {
	return s.done
}

// Close is idempotent. The outbound channel itself is never closed, so
// concurrent Consume calls cannot panic on a closed channel.
func (s *ConnSink) Close() {
	s.once.Do(func() { close(s.done) })
}
