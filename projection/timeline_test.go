package projection

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chat-relay/domain"
)

func event(channel, text string) domain.ChatEvent {
	return domain.ChatEvent{
		ID:        uuid.New(),
		Author:    "ada",
		Channel:   channel,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
}

func TestTimelineDeduplicates(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline()

	evt := event("general", "hello")
	req.True(timeline.Consume(evt))
	req.False(timeline.Consume(evt))
	req.Len(timeline.Channel("general"), 1)
}

func TestTimelineSeparatesChannels(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline()

	timeline.Consume(event("general", "one"))
	timeline.Consume(event("random", "two"))

	req.Len(timeline.Channel("general"), 1)
	req.Len(timeline.Channel("random"), 1)
	req.Equal(2, timeline.Len())
}

func TestReplaceHistory(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline()

	stale := event("general", "stale")
	timeline.Consume(stale)

	fresh := []domain.ChatEvent{event("general", "fresh 1"), event("general", "fresh 2")}
	timeline.ReplaceHistory("general", fresh)

	events := timeline.Channel("general")
	req.Len(events, 2)
	req.Equal("fresh 1", events[0].Text)

	// The stale event can come back after the swap.
	req.True(timeline.Consume(stale))
}

func TestReplaceHistoryWithEmptySnapshotClears(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline()

	timeline.Consume(event("general", "about to vanish"))
	timeline.ReplaceHistory("general", nil)

	req.Empty(timeline.Channel("general"))
	req.Equal(0, timeline.Len())
}
