package runtime

import (
	"sync"
	"sync/atomic"

	"chat-relay/domain"
	"chat-relay/sink"
)

// ConnState is the dispatcher's per-connection lifecycle. Transitions
// only move forward; Closed is terminal.
type ConnState int32

const (
	StateUnadmitted ConnState = iota
	StateJoining
	StateJoined
	StateClosed
)

// Conn is the dispatcher's view of one transport connection. Events
// for a Conn are handled by a single worker in arrival order; state is
// still atomic because an admin kick closes it from another worker.
type Conn struct {
	ID     string
	Origin string

	sink    *sink.ConnSink
	state   atomic.Int32
	session *domain.Session

	closeOnce      sync.Once
	closeTransport func()
}

// NewConn wraps a freshly accepted transport connection. closeFn tears
// the transport down and must be safe to call from any goroutine.
func NewConn(id, origin string, s *sink.ConnSink, closeFn func()) *Conn {
	c := &Conn{ID: id, Origin: origin, sink: s, closeTransport: closeFn}
	c.state.Store(int32(StateUnadmitted))
	return c
}

func (c *Conn) State() ConnState {
	return ConnState(c.state.Load())
}

func (c *Conn) setState(s ConnState) {
	c.state.Store(int32(s))
}

func (c *Conn) Sink() *sink.ConnSink {
	return c.sink
}

// Terminate closes the transport exactly once and marks the
// connection Closed so any in-flight events are discarded.
func (c *Conn) Terminate() {
	c.setState(StateClosed)
	c.closeOnce.Do(func() {
		c.sink.Close()
		if c.closeTransport != nil {
			c.closeTransport()
		}
	})
}
