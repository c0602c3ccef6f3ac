package repositories

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_Record_Multiple_Messages(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository := NewMessageRepository(db, slog.Default(), nil)
	channel := "general"
	at := time.Now().UTC().Truncate(time.Millisecond)
	stored := []ArchivedMessage{
		{ID: uuid.New(), Channel: channel, Author: "Alice", Content: "first", At: at},
		{ID: uuid.New(), Channel: channel, Author: "Bob", Content: "second", At: at.Add(1 * time.Minute)},
		{ID: uuid.New(), Channel: channel, Author: "Clara", Content: "third", At: at.Add(2 * time.Minute)},
	}
	for _, message := range stored {
		req.NoError(repository.StoreMessage(message))
	}

	fetched, _, err := repository.GetMessages(channel, nil)
	req.NoError(err)
	req.Len(fetched, len(stored))
	// Newest first.
	req.Equal("third", fetched[0].Content)
	req.Equal("first", fetched[2].Content)
}

func Test_Messages_Are_Scoped_By_Channel(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository := NewMessageRepository(db, slog.Default(), nil)
	at := time.Now().UTC()
	req.NoError(repository.StoreMessage(ArchivedMessage{ID: uuid.New(), Channel: "general", Author: "Alice", Content: "here", At: at}))
	req.NoError(repository.StoreMessage(ArchivedMessage{ID: uuid.New(), Channel: "random", Author: "Bob", Content: "there", At: at}))

	fetched, _, err := repository.GetMessages("general", nil)
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("here", fetched[0].Content)
}

func Test_Cursor_Pagination(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	pageSize := 2
	repository := NewMessageRepository(db, slog.Default(), lo.ToPtr(pageSize))
	channel := "general"
	at := time.Now().UTC()
	for i := 1; i <= 5; i++ {
		req.NoError(repository.StoreMessage(ArchivedMessage{
			ID:      uuid.New(),
			Channel: channel,
			Author:  "Alice",
			Content: fmt.Sprintf("msg %d", i),
			At:      at.Add(time.Duration(i) * time.Minute),
		}))
	}

	first, cursor, err := repository.GetMessages(channel, nil)
	req.NoError(err)
	req.Len(first, pageSize)
	req.Equal("msg 5", first[0].Content)
	req.Equal("msg 4", first[1].Content)

	second, cursor, err := repository.GetMessages(channel, cursor)
	req.NoError(err)
	req.Len(second, pageSize)
	req.Equal("msg 3", second[0].Content)
	req.Equal("msg 2", second[1].Content)

	third, _, err := repository.GetMessages(channel, cursor)
	req.NoError(err)
	req.Len(third, 1)
	req.Equal("msg 1", third[0].Content)
}
