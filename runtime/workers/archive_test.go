package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chat-relay/domain"
)

type recordingArchiver struct {
	mu    sync.Mutex
	saved []domain.ChatEvent
	fail  map[uuid.UUID]bool
}

func (a *recordingArchiver) Save(_ context.Context, evt domain.ChatEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail[evt.ID] {
		return fmt.Errorf("disk on fire")
	}
	a.saved = append(a.saved, evt)
	return nil
}

func (a *recordingArchiver) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.saved)
}

type recordingIndexer struct {
	mu      sync.Mutex
	indexed []uuid.UUID
}

func (i *recordingIndexer) Index(evt domain.ChatEvent) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.indexed = append(i.indexed, evt.ID)
	return nil
}

func (i *recordingIndexer) count() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.indexed)
}

func TestArchiveWorkerPersistsAndIndexes(t *testing.T) {
	req := require.New(t)
	log := slog.New(slog.DiscardHandler)

	events := make(chan domain.ChatEvent, 8)
	archiver := &recordingArchiver{fail: map[uuid.UUID]bool{}}
	indexer := &recordingIndexer{}

	poisoned := uuid.New()
	archiver.fail[poisoned] = true

	w := NewArchiveWorker(log, events, archiver, indexer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()

	events <- domain.ChatEvent{ID: uuid.New(), Author: "ada", Channel: "general", Text: "one"}
	events <- domain.ChatEvent{ID: poisoned, Author: "ada", Channel: "general", Text: "two"}
	events <- domain.ChatEvent{ID: uuid.New(), Author: "ada", Channel: "general", Text: "three"}

	req.Eventually(func() bool {
		return archiver.count() == 2 && indexer.count() == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("worker did not stop on context cancel")
	}
}

func TestArchiveWorkerStopsOnClosedChannel(t *testing.T) {
	req := require.New(t)
	log := slog.New(slog.DiscardHandler)

	events := make(chan domain.ChatEvent)
	w := NewArchiveWorker(log, events, &recordingArchiver{}, nil)

	done := make(chan struct{})
	go func() {
		req.NoError(w.Run(context.Background()))
		close(done)
	}()

	close(events)
	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("worker did not stop on closed channel")
	}
}
