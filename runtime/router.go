package runtime

import (
	"context"
	"encoding/json"
	"log/slog"

	"chat-relay/contract"
	"chat-relay/registry"
)

// Router fans an outbound effect out to live sessions. Delivery is
// best-effort per recipient: one failed sink is logged and skipped,
// never aborting the rest, and failures stop at the router boundary.
type Router struct {
	log      *slog.Logger
	registry *registry.Registry
}

func NewRouter(log *slog.Logger, reg *registry.Registry) *Router {
	return &Router{log: log, registry: reg}
}

// Broadcast serializes the effect once and sends it to every live
// session except excludeConnID (empty string excludes nobody).
// Callers must have applied their store mutations before invoking it,
// so a client reacting to the broadcast already sees the new state.
func (r *Router) Broadcast(ctx context.Context, effect any, excludeConnID string) {
	payload, err := json.Marshal(effect)
	if err != nil {
		r.log.Error("failed to serialize effect", "err", err)
		return
	}
	for _, s := range r.registry.Sinks(excludeConnID) {
		if err := s.Consume(ctx, payload); err != nil {
			// The recipient's disconnect detection will clean it up.
			r.log.Warn("broadcast delivery failed", "err", err)
		}
	}
}

// Unicast sends the effect to exactly one sink with the same
// best-effort semantics.
func (r *Router) Unicast(ctx context.Context, effect any, s contract.EventSink) {
	if s == nil {
		return
	}
	payload, err := json.Marshal(effect)
	if err != nil {
		r.log.Error("failed to serialize effect", "err", err)
		return
	}
	if err := s.Consume(ctx, payload); err != nil {
		r.log.Warn("unicast delivery failed", "err", err)
	}
}
