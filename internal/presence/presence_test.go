package presence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bo-sung/mineconomy/internal/keys"
	"github.com/Bo-sung/mineconomy/internal/store"
)

func newTracker(t *testing.T) (*Tracker, *store.MemoryStore, *time.Time) {
	t.Helper()
	now := time.Date(2024, 1, 6, 18, 0, 0, 0, time.UTC)
	mem := store.NewMemoryStore()
	mem.SetClock(func() time.Time { return now })
	tr := NewTracker(mem, keys.NewSchema("t"), nil)
	tr.SetClock(func() time.Time { return now })
	return tr, mem, &now
}

func TestLoginLogoutOnlineCount(t *testing.T) {
	ctx := context.Background()
	tr, _, _ := newTracker(t)

	n, err := tr.OnlineCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, tr.Login(ctx, "steve"))
	require.NoError(t, tr.Login(ctx, "alex"))
	require.NoError(t, tr.Login(ctx, "alex")) // double login is harmless

	n, err = tr.OnlineCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, tr.Logout(ctx, "steve"))
	n, err = tr.OnlineCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSessionDuration(t *testing.T) {
	ctx := context.Background()
	tr, _, now := newTracker(t)

	require.NoError(t, tr.Login(ctx, "steve"))

	*now = now.Add(45 * time.Minute)
	d, err := tr.SessionDuration(ctx, "steve")
	require.NoError(t, err)
	assert.Equal(t, 45*time.Minute, d)

	_, err = tr.SessionDuration(ctx, "stranger")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestReloginKeepsSessionStart(t *testing.T) {
	ctx := context.Background()
	tr, _, now := newTracker(t)

	require.NoError(t, tr.Login(ctx, "steve"))
	*now = now.Add(30 * time.Minute)

	// Reconnect within the session TTL: play time keeps accumulating.
	require.NoError(t, tr.Logout(ctx, "steve"))
	require.NoError(t, tr.Login(ctx, "steve"))

	*now = now.Add(15 * time.Minute)
	d, err := tr.SessionDuration(ctx, "steve")
	require.NoError(t, err)
	assert.Equal(t, 45*time.Minute, d)
}

func TestHeartbeatKeepsSessionAlive(t *testing.T) {
	ctx := context.Background()
	tr, _, now := newTracker(t)

	require.NoError(t, tr.Login(ctx, "steve"))

	// Without the heartbeat the session record would expire 24h after
	// login; the refresh pushes the TTL out while keeping the start.
	*now = now.Add(23 * time.Hour)
	require.NoError(t, tr.Heartbeat(ctx, "steve"))

	*now = now.Add(2 * time.Hour)
	d, err := tr.SessionDuration(ctx, "steve")
	require.NoError(t, err)
	assert.Equal(t, 25*time.Hour, d)
}

func TestHeartbeatActsAsLoginForUnknownPlayer(t *testing.T) {
	ctx := context.Background()
	tr, _, now := newTracker(t)

	require.NoError(t, tr.Heartbeat(ctx, "alex"))

	n, err := tr.OnlineCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	*now = now.Add(10 * time.Minute)
	d, err := tr.SessionDuration(ctx, "alex")
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, d)
}

func TestMalformedSessionReadsAsAbsent(t *testing.T) {
	ctx := context.Background()
	tr, mem, _ := newTracker(t)

	require.NoError(t, mem.Set(ctx, keys.NewSchema("t").Session("steve"), "garbage", 0))
	_, err := tr.SessionStart(ctx, "steve")
	assert.ErrorIs(t, err, ErrNoSession)
}
