package moderation

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat-relay/domain"
)

func TestStore_BanPermanenceAsymmetry(t *testing.T) {
	req := require.New(t)
	store := NewStore(slog.Default())
	now := time.Now()

	// Identity bans have no expiry path: still banned far in the future.
	store.BanIdentity("troll")
	req.True(store.IsIdentityBanned("troll"))
	store.SweepExpired(now.Add(1000 * time.Hour))
	req.True(store.IsIdentityBanned("troll"))

	// Origin bans lapse after their duration.
	store.BanOrigin("10.0.0.9", 10, now)
	req.True(store.IsOriginBanned("10.0.0.9", now))
	req.True(store.IsOriginBanned("10.0.0.9", now.Add(9*time.Minute)))
	req.False(store.IsOriginBanned("10.0.0.9", now.Add(11*time.Minute)))
}

func TestStore_BanIdentityIsIdempotent(t *testing.T) {
	req := require.New(t)
	store := NewStore(slog.Default())

	store.BanIdentity("troll")
	store.BanIdentity("troll")
	req.True(store.IsIdentityBanned("troll"))
	req.False(store.IsIdentityBanned("alice"))
}

func TestStore_ZeroDurationOriginBanIsPermanent(t *testing.T) {
	req := require.New(t)
	store := NewStore(slog.Default())
	now := time.Now()

	store.BanOrigin("10.0.0.9", 0, now)

	// Encoded as a far-future expiry, never a sentinel: comparison
	// logic stays uniform and the sweep never lifts it.
	req.True(store.IsOriginBanned("10.0.0.9", now.Add(24*365*time.Hour)))
	req.Empty(store.SweepExpired(now.Add(24 * 365 * time.Hour)))
}

func TestStore_BanOriginOverwritesExpiry(t *testing.T) {
	req := require.New(t)
	store := NewStore(slog.Default())
	now := time.Now()

	store.BanOrigin("10.0.0.9", 5, now)
	store.BanOrigin("10.0.0.9", 60, now)
	req.True(store.IsOriginBanned("10.0.0.9", now.Add(30*time.Minute)))
}

func TestStore_SweepExpiredRemovesLapsedOriginBans(t *testing.T) {
	req := require.New(t)
	store := NewStore(slog.Default())
	now := time.Now()

	store.BanOrigin("10.0.0.1", 5, now)
	store.BanOrigin("10.0.0.2", 90, now)

	lifted := store.SweepExpired(now.Add(10 * time.Minute))
	req.Equal([]string{"10.0.0.1"}, lifted)
	req.False(store.IsOriginBanned("10.0.0.1", now.Add(10*time.Minute)))
	req.True(store.IsOriginBanned("10.0.0.2", now.Add(10*time.Minute)))
}

func TestStore_MuteSessionUsesPermanentConvention(t *testing.T) {
	req := require.New(t)
	store := NewStore(slog.Default())
	now := time.Now()
	session := domain.NewSession("conn-1", "bob", "10.0.0.3", false)

	store.MuteSession(session, 0, now)
	req.True(session.IsMuted(now.Add(24 * 365 * time.Hour)))

	other := domain.NewSession("conn-2", "clara", "10.0.0.4", false)
	store.MuteSession(other, 15, now)
	req.True(other.IsMuted(now.Add(14*time.Minute)))
	req.False(other.IsMuted(now.Add(16*time.Minute)))
}
