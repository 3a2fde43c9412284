// Package presence tracks which players are online and when each session
// began. The pricing engine reads it; the game server's login/logout path
// writes it.
package presence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Bo-sung/mineconomy/internal/keys"
	"github.com/Bo-sung/mineconomy/internal/store"
)

// ErrNoSession reports that a player has no recorded session. Brand-new or
// unknown players land here and get the minimum session weight.
var ErrNoSession = errors.New("presence: no session for player")

const sessionTTL = 24 * time.Hour

// Provider is the read surface the correction factor calculator depends on.
type Provider interface {
	OnlineCount(ctx context.Context) (int, error)
	SessionStart(ctx context.Context, playerID string) (time.Time, error)
}

// Tracker maintains and reads the online set and session records.
type Tracker struct {
	store  store.Store
	keys   keys.Schema
	now    func() time.Time
	logger *zap.Logger
}

func NewTracker(st store.Store, schema keys.Schema, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{store: st, keys: schema, now: time.Now, logger: logger}
}

// SetClock replaces the tracker's clock. Test hook.
func (t *Tracker) SetClock(now func() time.Time) { t.now = now }

// Login marks a player online and stamps the session start. Re-login keeps
// the original session start so cumulative play time survives reconnects
// within the session TTL.
func (t *Tracker) Login(ctx context.Context, playerID string) error {
	if err := t.store.SAdd(ctx, t.keys.OnlinePlayers(), playerID); err != nil {
		return fmt.Errorf("failed to mark player %s online: %w", playerID, err)
	}
	key := t.keys.Session(playerID)
	if _, err := t.store.Get(ctx, key); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to read session for player %s: %w", playerID, err)
	}
	if err := t.store.Set(ctx, key, t.now().Format(time.RFC3339), sessionTTL); err != nil {
		return fmt.Errorf("failed to stamp session for player %s: %w", playerID, err)
	}
	return nil
}

// Heartbeat re-asserts a player's presence: membership in the online set is
// restored if lost and the session TTL is pushed out, keeping the original
// session start. A heartbeat with no surviving session behaves like a fresh
// login.
func (t *Tracker) Heartbeat(ctx context.Context, playerID string) error {
	if err := t.store.SAdd(ctx, t.keys.OnlinePlayers(), playerID); err != nil {
		return fmt.Errorf("failed to mark player %s online: %w", playerID, err)
	}
	key := t.keys.Session(playerID)
	val, err := t.store.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		val = t.now().Format(time.RFC3339)
	} else if err != nil {
		return fmt.Errorf("failed to read session for player %s: %w", playerID, err)
	}
	if err := t.store.Set(ctx, key, val, sessionTTL); err != nil {
		return fmt.Errorf("failed to refresh session for player %s: %w", playerID, err)
	}
	return nil
}

// Logout removes a player from the online set. The session record is left
// to expire on its own TTL.
func (t *Tracker) Logout(ctx context.Context, playerID string) error {
	if err := t.store.SRem(ctx, t.keys.OnlinePlayers(), playerID); err != nil {
		return fmt.Errorf("failed to mark player %s offline: %w", playerID, err)
	}
	return nil
}

func (t *Tracker) OnlineCount(ctx context.Context) (int, error) {
	n, err := t.store.SCard(ctx, t.keys.OnlinePlayers())
	if err != nil {
		return 0, fmt.Errorf("failed to count online players: %w", err)
	}
	return int(n), nil
}

func (t *Tracker) SessionStart(ctx context.Context, playerID string) (time.Time, error) {
	val, err := t.store.Get(ctx, t.keys.Session(playerID))
	if errors.Is(err, store.ErrNotFound) {
		return time.Time{}, ErrNoSession
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read session for player %s: %w", playerID, err)
	}
	start, err := time.Parse(time.RFC3339, val)
	if err != nil {
		t.logger.Warn("malformed session record, treating as absent",
			zap.String("player", playerID), zap.String("value", val))
		return time.Time{}, ErrNoSession
	}
	return start, nil
}

// SessionDuration is the elapsed time since the player's session began.
func (t *Tracker) SessionDuration(ctx context.Context, playerID string) (time.Duration, error) {
	start, err := t.SessionStart(ctx, playerID)
	if err != nil {
		return 0, err
	}
	return t.now().Sub(start), nil
}
