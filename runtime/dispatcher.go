package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/moderation"
	"chat-relay/protocol"
	"chat-relay/registry"
)

// TokenVerifier resolves a join token to an elevation decision. The
// relay never trusts a client-asserted elevation flag; only a
// server-issued credential grants admin authorization.
type TokenVerifier interface {
	VerifyElevation(token string) (bool, error)
}

// Dispatcher is the protocol state machine. It validates each inbound
// event against session and moderation state, mutates the stores, and
// emits effects through the router. Events of one connection are
// handled strictly in arrival order by that connection's worker.
type Dispatcher struct {
	log       *slog.Logger
	registry  *registry.Registry
	mod       *moderation.Store
	channels  *ChannelStore
	router    *Router
	moderator *moderation.Moderator
	verifier  TokenVerifier
	archive   chan<- domain.ChatEvent

	maxContentLength int
	now              func() time.Time

	mu    sync.Mutex
	conns map[string]*Conn
}

func NewDispatcher(
	log *slog.Logger,
	reg *registry.Registry,
	mod *moderation.Store,
	channels *ChannelStore,
	router *Router,
	moderator *moderation.Moderator,
	verifier TokenVerifier,
	archive chan<- domain.ChatEvent,
	maxContentLength int,
) *Dispatcher {
	return &Dispatcher{
		log:              log,
		registry:         reg,
		mod:              mod,
		channels:         channels,
		router:           router,
		moderator:        moderator,
		verifier:         verifier,
		archive:          archive,
		maxContentLength: maxContentLength,
		now:              time.Now,
		conns:            make(map[string]*Conn),
	}
}

// HandleConnect admits a raw transport connection up to the Joining
// state. Returns false when the origin is banned; the caller must not
// read further events in that case.
func (d *Dispatcher) HandleConnect(ctx context.Context, conn *Conn) bool {
	if d.mod.IsOriginBanned(conn.Origin, d.now()) {
		d.router.Unicast(ctx, protocol.NewError(errors.ErrOriginBanned.Error(), true), conn.Sink())
		conn.Terminate()
		return false
	}

	d.mu.Lock()
	d.conns[conn.ID] = conn
	d.mu.Unlock()

	conn.setState(StateJoining)
	d.router.Unicast(ctx, protocol.NewConnected("welcome, send a join event to enter"), conn.Sink())
	return true
}

// HandleDisconnect stops event processing for the connection and
// releases its session. Idempotent, so a forced termination followed
// by the transport noticing the close is harmless.
func (d *Dispatcher) HandleDisconnect(ctx context.Context, conn *Conn) {
	conn.setState(StateClosed)

	d.mu.Lock()
	delete(d.conns, conn.ID)
	d.mu.Unlock()

	if removed := d.registry.Remove(conn.ID); removed != nil {
		d.broadcastUserList(ctx)
	}
}

// Dispatch routes one inbound frame according to the connection state.
// Every failure here is terminal for this event only.
func (d *Dispatcher) Dispatch(ctx context.Context, conn *Conn, raw []byte) {
	switch conn.State() {
	case StateClosed, StateUnadmitted:
		return
	default:
	}

	env, err := protocol.ParseEnvelope(raw)
	if err != nil {
		d.router.Unicast(ctx, protocol.NewError(err.Error(), false), conn.Sink())
		return
	}

	if conn.State() == StateJoining {
		// Before a join there is no identity to attribute anything to:
		// everything but the join itself is ignored, not an error.
		if env.Type != protocol.EventJoin {
			d.log.Debug("event before join ignored", "type", env.Type)
			return
		}
		d.handleJoin(ctx, conn, env)
		return
	}

	if protocol.AdminEvents[env.Type] && !conn.session.Elevated {
		// Reported to the caller only, never broadcast.
		d.router.Unicast(ctx, protocol.NewError(errors.ErrUnauthorized.Error(), false), conn.Sink())
		return
	}

	switch env.Type {
	case protocol.EventMessage:
		d.handleMessage(ctx, conn, env)
	case protocol.EventGetHistory:
		d.handleGetHistory(ctx, conn, env)
	case protocol.EventTyping:
		d.handleTyping(ctx, conn, env)
	case protocol.EventAdminKick:
		d.handleKick(ctx, conn, env)
	case protocol.EventAdminMute:
		d.handleMute(ctx, conn, env)
	case protocol.EventAdminBan:
		d.handleBan(ctx, conn, env)
	case protocol.EventAdminClear:
		d.handleClear(ctx, conn, env)
	default:
		d.log.Debug("unknown event type ignored", "type", env.Type)
	}
}

func (d *Dispatcher) handleJoin(ctx context.Context, conn *Conn, env protocol.Envelope) {
	payload, err := protocol.Decode[protocol.JoinEvent](env)
	if err != nil {
		d.router.Unicast(ctx, protocol.NewError(err.Error(), false), conn.Sink())
		return
	}

	elevated := false
	if payload.Token != "" {
		elevated, err = d.verifier.VerifyElevation(payload.Token)
		if err != nil {
			// A bad credential degrades to a standard join instead of
			// rejecting it; the client is not torn down over a stale token.
			d.log.Warn("elevation token rejected", "identity", payload.Identity, "err", err)
			elevated = false
		}
	}

	session, err := d.registry.Admit(conn.ID, payload.Identity, conn.Origin, elevated, conn.Sink())
	if err != nil {
		// The caller is told to disconnect so it can render a reason
		// before the transport closes.
		d.router.Unicast(ctx, protocol.NewError(err.Error(), true), conn.Sink())
		conn.Terminate()
		return
	}

	conn.session = session
	conn.setState(StateJoined)

	d.router.Unicast(ctx, protocol.NewJoined(session.Identity, d.channels.Names()), conn.Sink())
	d.broadcastUserList(ctx)
}

func (d *Dispatcher) handleMessage(ctx context.Context, conn *Conn, env protocol.Envelope) {
	sess := conn.session
	if sess == nil {
		return
	}
	payload, err := protocol.Decode[protocol.MessageEvent](env)
	if err != nil {
		d.router.Unicast(ctx, protocol.NewError(err.Error(), false), conn.Sink())
		return
	}

	now := d.now()
	if sess.IsMuted(now) {
		d.router.Unicast(ctx, protocol.NewMuted(muteReason(sess.MuteRemaining(now))), conn.Sink())
		return
	}

	text := strings.TrimSpace(payload.Text)
	if text == "" || len([]rune(text)) > d.maxContentLength {
		d.router.Unicast(ctx, protocol.NewError(errors.ErrInvalidInput.Error(), false), conn.Sink())
		return
	}

	censored, hits := d.moderator.Censor(text)
	if len(hits) > 0 {
		d.log.Info("message censored", "author", sess.Identity, "words", hits)
	}

	info := whatlanggo.Detect(censored)
	evt := domain.ChatEvent{
		ID:        uuid.New(),
		Author:    sess.Identity,
		Channel:   payload.Channel,
		Text:      censored,
		Lang:      info.Lang.Iso6391(),
		Elevated:  sess.Elevated,
		CreatedAt: now.UTC(),
	}

	if err := d.channels.Post(payload.Channel, evt); err != nil {
		// Reported back to the sender rather than silently dropped, so
		// a typoed channel name is visible; no broadcast either way.
		d.router.Unicast(ctx, protocol.NewError(
			fmt.Sprintf("unknown channel %q", payload.Channel), false), conn.Sink())
		return
	}

	select {
	case d.archive <- evt:
	default:
		d.log.Warn("archive queue full, message not archived", "id", evt.ID)
	}

	// Mutation is applied above; the sender receives its own message
	// through the same path as everyone else.
	d.router.Broadcast(ctx, protocol.NewMessage(evt), "")
}

func (d *Dispatcher) handleGetHistory(ctx context.Context, conn *Conn, env protocol.Envelope) {
	payload, err := protocol.Decode[protocol.HistoryRequest](env)
	if err != nil {
		d.router.Unicast(ctx, protocol.NewError(err.Error(), false), conn.Sink())
		return
	}
	d.router.Unicast(ctx, protocol.NewHistory(payload.Channel, d.channels.History(payload.Channel)), conn.Sink())
}

func (d *Dispatcher) handleTyping(ctx context.Context, conn *Conn, env protocol.Envelope) {
	sess := conn.session
	if sess == nil || sess.IsMuted(d.now()) {
		return
	}
	payload, err := protocol.Decode[protocol.TypingEvent](env)
	if err != nil {
		return
	}
	// Never persisted; everyone but the sender sees it.
	d.router.Broadcast(ctx, protocol.NewTyping(sess.Identity, payload.Channel, payload.IsTyping), conn.ID)
}

func (d *Dispatcher) handleKick(ctx context.Context, conn *Conn, env protocol.Envelope) {
	payload, err := protocol.Decode[protocol.KickEvent](env)
	if err != nil {
		d.router.Unicast(ctx, protocol.NewError(err.Error(), false), conn.Sink())
		return
	}

	target, ok := d.registry.Find(payload.TargetIdentity)
	if !ok {
		d.router.Unicast(ctx, protocol.NewError(errors.ErrTargetNotFound.Error(), false), conn.Sink())
		return
	}

	d.disconnectTarget(ctx, target, "you have been kicked by an administrator")
	d.router.Unicast(ctx, protocol.NewAdminConfirm(
		fmt.Sprintf("kicked %s", target.Identity)), conn.Sink())
	d.broadcastUserList(ctx)
}

func (d *Dispatcher) handleMute(ctx context.Context, conn *Conn, env protocol.Envelope) {
	payload, err := protocol.Decode[protocol.MuteEvent](env)
	if err != nil {
		d.router.Unicast(ctx, protocol.NewError(err.Error(), false), conn.Sink())
		return
	}

	target, ok := d.registry.Find(payload.TargetIdentity)
	if !ok {
		d.router.Unicast(ctx, protocol.NewError(errors.ErrTargetNotFound.Error(), false), conn.Sink())
		return
	}

	d.mod.MuteSession(target, payload.DurationMinutes, d.now())

	notice := "you have been muted permanently"
	if payload.DurationMinutes > 0 {
		notice = fmt.Sprintf("you have been muted for %d minutes", payload.DurationMinutes)
	}
	if targetSink, ok := d.registry.SinkFor(target.ConnID); ok {
		d.router.Unicast(ctx, protocol.NewMuted(notice), targetSink)
	}
	d.router.Unicast(ctx, protocol.NewAdminConfirm(
		fmt.Sprintf("muted %s", target.Identity)), conn.Sink())
	d.broadcastUserList(ctx)
}

func (d *Dispatcher) handleBan(ctx context.Context, conn *Conn, env protocol.Envelope) {
	payload, err := protocol.Decode[protocol.BanEvent](env)
	if err != nil {
		d.router.Unicast(ctx, protocol.NewError(err.Error(), false), conn.Sink())
		return
	}

	target, ok := d.registry.Find(payload.TargetIdentity)
	if !ok {
		d.router.Unicast(ctx, protocol.NewError(errors.ErrTargetNotFound.Error(), false), conn.Sink())
		return
	}

	switch payload.BanScope {
	case protocol.BanScopeIdentity:
		// Identity bans are permanent regardless of requested duration.
		d.mod.BanIdentity(target.Identity)
	case protocol.BanScopeOrigin:
		d.mod.BanOrigin(target.Origin, payload.DurationMinutes, d.now())
	default:
		d.router.Unicast(ctx, protocol.NewError(errors.ErrInvalidScope.Error(), false), conn.Sink())
		return
	}

	// The ban is recorded before the target is torn down.
	d.disconnectTarget(ctx, target, "you have been banned")
	d.router.Unicast(ctx, protocol.NewAdminConfirm(
		fmt.Sprintf("banned %s (%s)", target.Identity, payload.BanScope)), conn.Sink())
	d.broadcastUserList(ctx)
}

func (d *Dispatcher) handleClear(ctx context.Context, conn *Conn, env protocol.Envelope) {
	payload, err := protocol.Decode[protocol.ClearEvent](env)
	if err != nil {
		d.router.Unicast(ctx, protocol.NewError(err.Error(), false), conn.Sink())
		return
	}

	if err := d.channels.Clear(payload.Channel); err != nil {
		d.router.Unicast(ctx, protocol.NewError(errors.ErrChannelNotFound.Error(), false), conn.Sink())
		return
	}

	// Forces every client to drop its local view of the channel.
	d.router.Broadcast(ctx, protocol.NewHistory(payload.Channel, nil), "")
	d.router.Unicast(ctx, protocol.NewAdminConfirm(
		fmt.Sprintf("cleared %s", payload.Channel)), conn.Sink())
}

// disconnectTarget signals a forced disconnect to the target, closes
// its transport, and frees its registry slot immediately so snapshots
// broadcast right after are already up to date.
func (d *Dispatcher) disconnectTarget(ctx context.Context, target *domain.Session, reason string) {
	if targetSink, ok := d.registry.SinkFor(target.ConnID); ok {
		d.router.Unicast(ctx, protocol.NewError(reason, true), targetSink)
	}

	d.mu.Lock()
	targetConn := d.conns[target.ConnID]
	delete(d.conns, target.ConnID)
	d.mu.Unlock()

	d.registry.Remove(target.ConnID)
	if targetConn != nil {
		targetConn.Terminate()
	}
}

func (d *Dispatcher) broadcastUserList(ctx context.Context) {
	users := lo.Map(d.registry.Snapshot(d.now()), func(info registry.Info, _ int) protocol.UserEntry {
		return protocol.UserEntry{
			Identity: info.Identity,
			IsAdmin:  info.Elevated,
			IsMuted:  info.IsMuted,
		}
	})
	d.router.Broadcast(ctx, protocol.NewUserList(users), "")
}

// permanentCutoff separates a real countdown from the far-future
// expiry that encodes "permanent".
const permanentCutoff = 50 * 365 * 24 * time.Hour

func muteReason(remaining time.Duration) string {
	if remaining >= permanentCutoff {
		return "you are muted permanently"
	}
	minutes := int(remaining.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("you are muted for another %d minute(s)", minutes)
}
