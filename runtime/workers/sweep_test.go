package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat-relay/moderation"
	"chat-relay/registry"
	"chat-relay/runtime"
)

type captureSink struct {
	mu     sync.Mutex
	frames [][]byte
}

func (s *captureSink) Consume(_ context.Context, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(payload))
	copy(cp, payload)
	s.frames = append(s.frames, cp)
	return nil
}

func (s *captureSink) typesSeen(t *testing.T) []string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, f := range s.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(f, &m))
		out = append(out, m["type"].(string))
	}
	return out
}

func TestSweepLiftsExpiredMute(t *testing.T) {
	req := require.New(t)
	log := slog.New(slog.DiscardHandler)
	store := moderation.NewStore(log)
	reg := registry.New(log, store)
	router := runtime.NewRouter(log, reg)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	adaSink := &captureSink{}
	graceSink := &captureSink{}
	ada, err := reg.Admit("c1", "ada", "10.0.0.1", false, adaSink)
	req.NoError(err)
	_, err = reg.Admit("c2", "grace", "10.0.0.2", false, graceSink)
	req.NoError(err)

	store.MuteSession(ada, 5, now)
	req.True(ada.IsMuted(now))

	w := NewSweepWorker(log, store, reg, router, time.Minute)

	// Before expiry nothing changes.
	w.sweep(context.Background(), now.Add(4*time.Minute))
	req.True(ada.IsMuted(now.Add(4 * time.Minute)))
	req.Empty(adaSink.typesSeen(t))

	w.sweep(context.Background(), now.Add(6*time.Minute))
	req.False(ada.IsMuted(now.Add(6 * time.Minute)))
	req.Equal([]string{"muted", "userList"}, adaSink.typesSeen(t))
	req.Equal([]string{"userList"}, graceSink.typesSeen(t))
}

func TestSweepLeavesPermanentMuteAlone(t *testing.T) {
	req := require.New(t)
	log := slog.New(slog.DiscardHandler)
	store := moderation.NewStore(log)
	reg := registry.New(log, store)
	router := runtime.NewRouter(log, reg)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	adaSink := &captureSink{}
	ada, err := reg.Admit("c1", "ada", "10.0.0.1", false, adaSink)
	req.NoError(err)
	store.MuteSession(ada, 0, now)

	w := NewSweepWorker(log, store, reg, router, time.Minute)
	w.sweep(context.Background(), now.Add(365*24*time.Hour))

	req.True(ada.IsMuted(now.Add(365 * 24 * time.Hour)))
	req.Empty(adaSink.typesSeen(t))
}

func TestSweepLiftsExpiredOriginBan(t *testing.T) {
	req := require.New(t)
	log := slog.New(slog.DiscardHandler)
	store := moderation.NewStore(log)
	reg := registry.New(log, store)
	router := runtime.NewRouter(log, reg)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.BanOrigin("10.0.0.9", 10, now)
	req.True(store.IsOriginBanned("10.0.0.9", now.Add(9*time.Minute)))

	w := NewSweepWorker(log, store, reg, router, time.Minute)
	w.sweep(context.Background(), now.Add(11*time.Minute))

	req.False(store.IsOriginBanned("10.0.0.9", now.Add(11*time.Minute)))
}
