package registry

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat-relay/errors"
)

type nopSink struct{}

func (nopSink) Consume(context.Context, []byte) error { return nil }

type stubBans struct{ banned map[string]bool }

func (s stubBans) IsIdentityBanned(identity string) bool { return s.banned[identity] }

func TestRegistry_IdentityUniqueness(t *testing.T) {
	req := require.New(t)
	r := New(slog.Default(), stubBans{})

	first, err := r.Admit("conn-1", "alice", "10.0.0.1:1234", false, nopSink{})
	req.NoError(err)
	req.Equal("alice", first.Identity)

	// A second join with the same identity while the first is live
	// must always be rejected, and the first session stays live.
	_, err = r.Admit("conn-2", "alice", "10.0.0.2:5678", false, nopSink{})
	req.ErrorIs(err, errors.ErrIdentityTaken)

	got, ok := r.Find("alice")
	req.True(ok)
	req.Equal("conn-1", got.ConnID)
	req.Equal(1, r.Count())
}

func TestRegistry_AdmitBannedIdentity(t *testing.T) {
	req := require.New(t)
	r := New(slog.Default(), stubBans{banned: map[string]bool{"troll": true}})

	_, err := r.Admit("conn-1", "troll", "10.0.0.1:1234", false, nopSink{})
	req.ErrorIs(err, errors.ErrIdentityBanned)
	req.Equal(0, r.Count())
}

func TestRegistry_RemoveIsIdempotent(t *testing.T) {
	req := require.New(t)
	r := New(slog.Default(), stubBans{})

	_, err := r.Admit("conn-1", "alice", "10.0.0.1:1234", false, nopSink{})
	req.NoError(err)

	removed := r.Remove("conn-1")
	req.NotNil(removed)
	req.Equal("alice", removed.Identity)

	req.Nil(r.Remove("conn-1"))
	req.Nil(r.Remove("never-existed"))

	// The identity is free again after removal.
	_, err = r.Admit("conn-2", "alice", "10.0.0.1:1234", false, nopSink{})
	req.NoError(err)
}

func TestRegistry_SinksExcludesOneConnection(t *testing.T) {
	req := require.New(t)
	r := New(slog.Default(), stubBans{})

	for _, id := range []string{"alice", "bob", "clara"} {
		_, err := r.Admit("conn-"+id, id, "10.0.0.1:1234", false, nopSink{})
		req.NoError(err)
	}

	req.Len(r.Sinks(""), 3)
	req.Len(r.Sinks("conn-bob"), 2)
}

func TestRegistry_SnapshotComputesMuteAtCallTime(t *testing.T) {
	req := require.New(t)
	r := New(slog.Default(), stubBans{})

	alice, err := r.Admit("conn-1", "alice", "10.0.0.1:1234", true, nopSink{})
	req.NoError(err)
	_, err = r.Admit("conn-2", "bob", "10.0.0.2:1234", false, nopSink{})
	req.NoError(err)

	now := time.Now()
	alice.Mute(now.Add(5 * time.Minute))

	byIdentity := map[string]Info{}
	for _, info := range r.Snapshot(now) {
		byIdentity[info.Identity] = info
	}
	req.Len(byIdentity, 2)
	req.True(byIdentity["alice"].IsMuted)
	req.True(byIdentity["alice"].Elevated)
	req.False(byIdentity["bob"].IsMuted)

	// Same snapshot taken after the expiry reports the mute as absent.
	later := now.Add(6 * time.Minute)
	for _, info := range r.Snapshot(later) {
		req.False(info.IsMuted, info.Identity)
	}
}
