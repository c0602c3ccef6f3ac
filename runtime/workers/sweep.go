package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"chat-relay/moderation"
	"chat-relay/protocol"
	"chat-relay/registry"
	"chat-relay/runtime"
)

// SweepWorker lifts expired restrictions eagerly. Mute and origin ban
// checks are already lazy on the hot path; the sweep exists so a muted
// user who stays silent still gets told when the mute lapses, and so
// the participant snapshot does not show stale muted flags forever.
type SweepWorker struct {
	log      *slog.Logger
	store    *moderation.Store
	registry *registry.Registry
	router   *runtime.Router
	interval time.Duration
	now      func() time.Time
}

func NewSweepWorker(
	log *slog.Logger,
	store *moderation.Store,
	reg *registry.Registry,
	router *runtime.Router,
	interval time.Duration,
) *SweepWorker {
	return &SweepWorker{
		log:      log,
		store:    store,
		registry: reg,
		router:   router,
		interval: interval,
		now:      time.Now,
	}
}

func (w *SweepWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return nil
		case <-ticker.C:
			w.sweep(ctx, w.now())
		}
	}
}

func (w *SweepWorker) sweep(ctx context.Context, now time.Time) {
	lifted := w.store.SweepExpired(now)
	if len(lifted) > 0 {
		w.log.Info("origin bans expired", "origins", lifted)
	}

	changed := false
	for _, session := range w.registry.Sessions() {
		if !session.MuteExpiredAt(now) {
			continue
		}
		session.Unmute()
		changed = true
		w.log.Info("mute expired", "identity", session.Identity)

		if sink, ok := w.registry.SinkFor(session.ConnID); ok {
			w.router.Unicast(ctx, protocol.NewMuted("your mute has expired, you can speak again"), sink)
		}
	}

	if changed {
		users := lo.Map(w.registry.Snapshot(now), func(info registry.Info, _ int) protocol.UserEntry {
			return protocol.UserEntry{
				Identity: info.Identity,
				IsAdmin:  info.Elevated,
				IsMuted:  info.IsMuted,
			}
		})
		w.router.Broadcast(ctx, protocol.NewUserList(users), "")
	}
}
