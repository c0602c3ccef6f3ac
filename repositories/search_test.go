package repositories

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chat-relay/domain"
)

func openTestIndex(t *testing.T) *bluge.Writer {
	t.Helper()
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })
	return writer
}

func TestSearchRepository_FindsByContent(t *testing.T) {
	req := require.New(t)
	repo := NewSearchRepository(openTestIndex(t), slog.Default())

	at := time.Now().UTC()
	target := domain.ChatEvent{ID: uuid.New(), Author: "ada", Channel: "general", Text: "migrating the relay to badger", CreatedAt: at}
	req.NoError(repo.Index(target))
	req.NoError(repo.Index(domain.ChatEvent{ID: uuid.New(), Author: "grace", Channel: "general", Text: "lunch anyone", CreatedAt: at}))

	hits, total, err := repo.Search(context.Background(), "badger", "", 10)
	req.NoError(err)
	req.Equal(uint64(1), total)
	req.Len(hits, 1)
	req.Equal(target.ID, hits[0].ID)
	req.Equal("ada", hits[0].Author)
}

func TestSearchRepository_ChannelFilter(t *testing.T) {
	req := require.New(t)
	repo := NewSearchRepository(openTestIndex(t), slog.Default())

	at := time.Now().UTC()
	req.NoError(repo.Index(domain.ChatEvent{ID: uuid.New(), Author: "ada", Channel: "general", Text: "deploy friday", CreatedAt: at}))
	req.NoError(repo.Index(domain.ChatEvent{ID: uuid.New(), Author: "grace", Channel: "random", Text: "deploy never", CreatedAt: at}))

	hits, _, err := repo.Search(context.Background(), "deploy", "random", 10)
	req.NoError(err)
	req.Len(hits, 1)
	req.Equal("random", hits[0].Channel)
}

func TestSearchRepository_ReindexSameIDOverwrites(t *testing.T) {
	req := require.New(t)
	repo := NewSearchRepository(openTestIndex(t), slog.Default())

	id := uuid.New()
	at := time.Now().UTC()
	req.NoError(repo.Index(domain.ChatEvent{ID: id, Author: "ada", Channel: "general", Text: "draft wording", CreatedAt: at}))
	req.NoError(repo.Index(domain.ChatEvent{ID: id, Author: "ada", Channel: "general", Text: "final wording", CreatedAt: at}))

	hits, total, err := repo.Search(context.Background(), "wording", "", 10)
	req.NoError(err)
	req.Equal(uint64(1), total)
	req.Equal("final wording", hits[0].Content)
}
