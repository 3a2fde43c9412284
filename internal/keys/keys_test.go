package keys

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketStartAlignment(t *testing.T) {
	ts := time.Date(2024, 3, 5, 14, 37, 42, 99, time.UTC)
	got := BucketStart(ts)
	assert.Equal(t, time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC), got)

	// Already aligned timestamps stay put.
	assert.Equal(t, got, BucketStart(got))
}

func TestSchemaKeys(t *testing.T) {
	s := NewSchema("world1")
	ts := time.Date(2024, 3, 5, 14, 37, 0, 0, time.UTC)

	assert.Equal(t, "world1:price:iron_ingot", s.Price("iron_ingot"))
	assert.Equal(t, "world1:pressure:iron_ingot", s.Pressure("iron_ingot"))
	assert.Equal(t, "world1:trades_10min:iron_ingot:202403051430", s.TradeBucket("iron_ingot", ts))
	assert.Equal(t, "world1:online_players", s.OnlinePlayers())
	assert.Equal(t, "world1:session:steve", s.Session("steve"))
	assert.Equal(t, "world1:config:server_capacity", s.Config("server_capacity"))
}

func TestSchemaEmptyPrefix(t *testing.T) {
	s := NewSchema("")
	assert.Equal(t, "price:iron_ingot", s.Price("iron_ingot"))
}

func TestParseBucketTime(t *testing.T) {
	s := NewSchema("world1")
	ts := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)

	key := s.TradeBucket("iron_ingot", ts)
	parsed, err := s.ParseBucketTime(key)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(ts), "parsed %s, want %s", parsed, ts)

	_, err = s.ParseBucketTime("short")
	assert.Error(t, err)
}
