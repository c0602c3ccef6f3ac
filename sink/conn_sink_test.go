package sink

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConnSink_DeliversInOrder(t *testing.T) {
	req := require.New(t)
	s := NewConnSink(slog.Default(), 4, 50*time.Millisecond)
	defer s.Close()

	req.NoError(s.Consume(context.Background(), []byte("one")))
	req.NoError(s.Consume(context.Background(), []byte("two")))

	req.Equal([]byte("one"), <-s.Outbound())
	req.Equal([]byte("two"), <-s.Outbound())
}

func TestConnSink_DropsWhenBufferStaysFull(t *testing.T) {
	req := require.New(t)
	s := NewConnSink(slog.Default(), 1, 20*time.Millisecond)
	defer s.Close()

	req.NoError(s.Consume(context.Background(), []byte("one")))

	// Nobody drains the buffer: the second consume must give up after
	// the timeout instead of blocking the broadcaster forever.
	start := time.Now()
	err := s.Consume(context.Background(), []byte("two"))
	req.Error(err)
	req.Less(time.Since(start), time.Second)
}

func TestConnSink_CloseIsIdempotentAndRejectsWrites(t *testing.T) {
	req := require.New(t)
	s := NewConnSink(slog.Default(), 1, 20*time.Millisecond)

	s.Close()
	s.Close()

	req.Error(s.Consume(context.Background(), []byte("late")))
	select {
	case <-s.Done():
	default:
		t.Fatal("Done should be closed")
	}
}
