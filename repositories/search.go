package repositories

import (
	"context"
	"log/slog"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"

	"chat-relay/domain"
)

// SearchRepository maintains a full-text index over archived messages.
// The index only holds what is needed to render a hit; the archive in
// Badger stays the source of truth.
type SearchRepository struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewSearchRepository(writer *bluge.Writer, log *slog.Logger) *SearchRepository {
	return &SearchRepository{writer: writer, log: log}
}

// Hit is one search result.
type Hit struct {
	ID      uuid.UUID `json:"id"`
	Channel string    `json:"channel"`
	Author  string    `json:"author"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
	Score   float64   `json:"score"`
}

// Index makes a chat event findable by its text. Update, not Insert,
// so a replayed event overwrites instead of duplicating.
func (s *SearchRepository) Index(evt domain.ChatEvent) error {
	doc := bluge.NewDocument(evt.ID.String()).
		AddField(bluge.NewTextField("content", evt.Text).StoreValue()).
		AddField(bluge.NewKeywordField("channel", evt.Channel).StoreValue()).
		AddField(bluge.NewKeywordField("author", evt.Author).StoreValue()).
		AddField(bluge.NewDateTimeField("at", evt.CreatedAt).StoreValue())
	return s.writer.Update(doc.ID(), doc)
}

// Search runs a match query over message text, optionally narrowed to
// one channel. Results come back best score first.
func (s *SearchRepository) Search(ctx context.Context, query, channel string, limit int) ([]Hit, uint64, error) {
	reader, err := s.writer.Reader()
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			s.log.Error("Error while closing index reader", "err", err)
		}
	}()

	boolQuery := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(query).SetField("content"))
	if channel != "" {
		boolQuery.AddMust(bluge.NewTermQuery(channel).SetField("channel"))
	}

	request := bluge.NewTopNSearch(limit, boolQuery).WithStandardAggregations()
	iterator, err := reader.Search(ctx, request)
	if err != nil {
		return nil, 0, err
	}

	var hits []Hit
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, 0, err
		}
		if match == nil {
			break
		}

		hit := Hit{Score: match.Score}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				if id, parseErr := uuid.Parse(string(value)); parseErr == nil {
					hit.ID = id
				}
			case "content":
				hit.Content = string(value)
			case "channel":
				hit.Channel = string(value)
			case "author":
				hit.Author = string(value)
			case "at":
				if at, parseErr := bluge.DecodeDateTime(value); parseErr == nil {
					hit.At = at.UTC()
				}
			}
			return true
		})
		if err != nil {
			return nil, 0, err
		}
		hits = append(hits, hit)
	}

	return hits, iterator.Aggregations().Count(), nil
}
