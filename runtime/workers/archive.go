package workers

import (
	"context"
	"log/slog"

	"chat-relay/domain"
)

// MessageArchiver persists chat events past the in-memory ring.
type MessageArchiver interface {
	Save(ctx context.Context, evt domain.ChatEvent) error
}

// Indexer makes archived events findable by full text.
type Indexer interface {
	Index(evt domain.ChatEvent) error
}

// ArchiveWorker drains the archive queue off the broadcast path.
// Persistence is best effort: a failed save or index is logged and the
// event is dropped, delivery to live recipients already happened.
type ArchiveWorker struct {
	log      *slog.Logger
	events   <-chan domain.ChatEvent
	archiver MessageArchiver
	indexer  Indexer
}

func NewArchiveWorker(
	log *slog.Logger,
	events <-chan domain.ChatEvent,
	archiver MessageArchiver,
	indexer Indexer,
) *ArchiveWorker {
	return &ArchiveWorker{log: log, events: events, archiver: archiver, indexer: indexer}
}

func (w *ArchiveWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return nil
		case evt, ok := <-w.events:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			if err := w.archiver.Save(ctx, evt); err != nil {
				w.log.Error("Error while archiving message", "id", evt.ID, "err", err)
				continue
			}
			if w.indexer == nil {
				continue
			}
			if err := w.indexer.Index(evt); err != nil {
				w.log.Error("Error while indexing message", "id", evt.ID, "err", err)
			}
		}
	}
}
