// Package keys defines the cache key schema shared by the trading path and
// the recomputation engine. Every key is namespaced by a configurable prefix
// so multiple worlds can share one Redis instance.
package keys

import (
	"fmt"
	"time"
)

// BucketLayout is the timestamp layout embedded in trade bucket keys,
// aligned to the containing 10-minute boundary.
const BucketLayout = "200601021504"

// BucketWidth is the width of one trade volume bucket.
const BucketWidth = 10 * time.Minute

// Schema renders namespaced cache keys.
type Schema struct {
	prefix string
}

// NewSchema returns a Schema with the given namespace prefix. An empty
// prefix is allowed and produces bare keys.
func NewSchema(prefix string) Schema {
	return Schema{prefix: prefix}
}

func (s Schema) key(suffix string) string {
	if s.prefix == "" {
		return suffix
	}
	return s.prefix + ":" + suffix
}

// Price is the key holding an item's current price record. No TTL.
func (s Schema) Price(itemID string) string {
	return s.key("price:" + itemID)
}

// Pressure is the key holding an item's market pressure record. 15 minute TTL.
func (s Schema) Pressure(itemID string) string {
	return s.key("pressure:" + itemID)
}

// TradeBucket is the key of the 10-minute volume bucket covering ts.
// Bucket timestamps are rendered in UTC so every writer aligns on the same
// boundaries.
func (s Schema) TradeBucket(itemID string, ts time.Time) string {
	return s.key(fmt.Sprintf("trades_10min:%s:%s", itemID, BucketStart(ts.UTC()).Format(BucketLayout)))
}

// TradeBucketPattern matches every trade bucket key in the namespace.
func (s Schema) TradeBucketPattern() string {
	return s.key("trades_10min:*")
}

// ParseBucketTime extracts the bucket timestamp from a trade bucket key.
func (s Schema) ParseBucketTime(key string) (time.Time, error) {
	if len(key) < len(BucketLayout) {
		return time.Time{}, fmt.Errorf("malformed bucket key %q", key)
	}
	return time.ParseInLocation(BucketLayout, key[len(key)-len(BucketLayout):], time.UTC)
}

// OnlinePlayers is the set of currently online player IDs. No TTL.
func (s Schema) OnlinePlayers() string {
	return s.key("online_players")
}

// Session is the key holding a player's login time. 24 hour TTL.
func (s Schema) Session(playerID string) string {
	return s.key("session:" + playerID)
}

// Config is the key caching a server setting. 1 hour TTL.
func (s Schema) Config(name string) string {
	return s.key("config:" + name)
}

// BucketStart floors ts to the containing 10-minute wall-clock boundary,
// in ts's own location.
func BucketStart(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(), ts.Hour(), ts.Minute()/10*10, 0, 0, ts.Location())
}
