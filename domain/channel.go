package domain

// Channel holds a named, ordered message history bounded to the most
// recent HistoryLimit events. Callers are expected to serialize access
// through the channel store.
type Channel struct {
	Name    string
	history []ChatEvent
}

// HistoryLimit bounds every channel's retained history.
const HistoryLimit = 100

func NewChannel(name string) *Channel {
	return &Channel{Name: name}
}

// Append adds an event to the history, evicting the single oldest
// entry when the bound is exceeded.
func (c *Channel) Append(evt ChatEvent) {
	c.history = append(c.history, evt)
	if len(c.history) > HistoryLimit {
		c.history = c.history[1:]
	}
}

// History returns a copy of the retained events in arrival order.
func (c *Channel) History() []ChatEvent {
	out := make([]ChatEvent, len(c.history))
	copy(out, c.history)
	return out
}

// Clear empties the history in place; the channel itself remains.
func (c *Channel) Clear() {
	c.history = c.history[:0]
}

func (c *Channel) Len() int {
	return len(c.history)
}
