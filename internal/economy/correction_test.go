package economy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Bo-sung/mineconomy/internal/keys"
	"github.com/Bo-sung/mineconomy/internal/presence"
	"github.com/Bo-sung/mineconomy/internal/store"
)

func TestPopulationCorrection(t *testing.T) {
	// Empty server hits the cap.
	assert.Equal(t, 2.0, PopulationCorrection(0, 100))
	assert.Equal(t, 2.0, PopulationCorrection(-5, 100))

	// Below half capacity the cap still applies.
	assert.Equal(t, 2.0, PopulationCorrection(10, 100))

	assert.Equal(t, 1.0, PopulationCorrection(50, 100))
	assert.Equal(t, 0.5, PopulationCorrection(100, 100))

	// Monotonically decreasing in population.
	prev := PopulationCorrection(1, 100)
	for online := 2; online <= 200; online++ {
		cur := PopulationCorrection(online, 100)
		assert.LessOrEqual(t, cur, prev, "online=%d", online)
		prev = cur
	}
}

func TestTimeOfDayWeight(t *testing.T) {
	// 2024-01-03 is a Wednesday, 2024-01-06 a Saturday.
	weekday := func(hour int) time.Time {
		return time.Date(2024, 1, 3, hour, 0, 0, 0, time.UTC)
	}
	saturday := func(hour int) time.Time {
		return time.Date(2024, 1, 6, hour, 0, 0, 0, time.UTC)
	}

	cases := []struct {
		name string
		at   time.Time
		want float64
	}{
		{"weekday small hours", weekday(2), 0.3},
		{"weekday early morning", weekday(6), 0.8},
		{"weekday commute", weekday(8), 0.8},
		{"weekday office start", weekday(9), 0.6},
		{"weekday noon", weekday(12), 0.6},
		{"weekday evening", weekday(18), 1.0},
		{"weekday late", weekday(23), 1.0},
		{"weekday midnight", weekday(0), 0.3},
		{"any day prime time", saturday(20), 1.0},
		{"weekend morning overrides hour band", saturday(10), 1.0},
		{"weekend small hours still weekend", saturday(3), 1.0},

		// The 14-17 band overlaps the 9-17 daytime band; evaluation
		// order gives daytime precedence on weekdays.
		{"weekday 14 shadowed by daytime", weekday(14), 0.6},
		{"weekday 17 shadowed by daytime", weekday(17), 0.6},
		{"weekend 15 taken by weekend", saturday(15), 1.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, TimeOfDayWeight(tc.at))
		})
	}
}

func TestSessionWeight(t *testing.T) {
	assert.Equal(t, 0.3, SessionWeight(0))
	assert.Equal(t, 0.3, SessionWeight(5*time.Minute))
	assert.Equal(t, 0.6, SessionWeight(10*time.Minute))
	assert.Equal(t, 0.6, SessionWeight(29*time.Minute))
	assert.Equal(t, 0.8, SessionWeight(30*time.Minute))
	assert.Equal(t, 0.8, SessionWeight(45*time.Minute))
	assert.Equal(t, 1.0, SessionWeight(120*time.Minute))
	assert.Equal(t, 1.0, SessionWeight(150*time.Minute))
}

type stubPresence struct {
	online    int
	onlineErr error
	start     time.Time
	startErr  error
}

func (s *stubPresence) OnlineCount(ctx context.Context) (int, error) {
	return s.online, s.onlineErr
}

func (s *stubPresence) SessionStart(ctx context.Context, playerID string) (time.Time, error) {
	return s.start, s.startErr
}

func TestCycleFactorsFailSoft(t *testing.T) {
	ctx := context.Background()
	schema := keys.NewSchema("t")
	mem := store.NewMemoryStore()
	settings := NewSettingsCache(mem, schema, 100, nil)

	p := &stubPresence{onlineErr: errors.New("presence down")}
	calc := NewCalculator(p, settings, nil)
	calc.SetClock(func() time.Time {
		return time.Date(2024, 1, 6, 20, 0, 0, 0, time.UTC) // Saturday evening
	})

	cf := calc.CycleFactors(ctx)
	assert.Equal(t, 1.0, cf.Population, "online count failure degrades to neutral")
	assert.Equal(t, 1.0, cf.TimeOfDay)
	assert.Equal(t, 100, cf.Capacity)

	p.onlineErr = nil
	p.online = 0
	cf = calc.CycleFactors(ctx)
	assert.Equal(t, 2.0, cf.Population, "empty server hits the cap")
}

func TestSettingsCacheFallback(t *testing.T) {
	ctx := context.Background()
	schema := keys.NewSchema("t")
	mem := store.NewMemoryStore()
	settings := NewSettingsCache(mem, schema, 250, nil)

	// Miss warms the cache with the fallback.
	assert.Equal(t, 250, settings.ServerCapacity(ctx))
	val, err := mem.Get(ctx, schema.Config("server_capacity"))
	assert.NoError(t, err)
	assert.Equal(t, "250", val)

	// Cached value wins over the fallback.
	_ = mem.Set(ctx, schema.Config("server_capacity"), "80", 0)
	assert.Equal(t, 80, settings.ServerCapacity(ctx))

	// Outage degrades to the fallback.
	mem.Fail(errors.New("cache down"))
	assert.Equal(t, 250, settings.ServerCapacity(ctx))
}

func TestSessionWeightFor(t *testing.T) {
	ctx := context.Background()
	schema := keys.NewSchema("t")
	settings := NewSettingsCache(store.NewMemoryStore(), schema, 100, nil)

	now := time.Date(2024, 1, 6, 20, 0, 0, 0, time.UTC)
	p := &stubPresence{start: now.Add(-45 * time.Minute)}
	calc := NewCalculator(p, settings, nil)
	calc.SetClock(func() time.Time { return now })

	assert.Equal(t, 0.8, calc.SessionWeightFor(ctx, "alex"))

	p.startErr = presence.ErrNoSession
	assert.Equal(t, 0.3, calc.SessionWeightFor(ctx, "newcomer"))

	p.startErr = errors.New("cache down")
	assert.Equal(t, 1.0, calc.SessionWeightFor(ctx, "alex"), "storage failure degrades to neutral")
}
