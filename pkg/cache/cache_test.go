package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeyIsDeterministicRegardlessOfParamOrder(t *testing.T) {
	a := Key("hour_weights", map[string]interface{}{"tempo": "medium", "profile": "sustained"})
	b := Key("hour_weights", map[string]interface{}{"profile": "sustained", "tempo": "medium"})
	require.Equal(t, a, b)
}

func TestKeyDiffersByKind(t *testing.T) {
	params := map[string]interface{}{"tempo": "medium"}
	a := Key("hour_weights", params)
	b := Key("facility_chain", params)
	require.NotEqual(t, a, b)
}

func TestSetAndGetRoundTrip(t *testing.T) {
	c := New(&Config{DefaultTTL: time.Minute, MaxSize: 10})
	defer c.Close()

	key := Key("hour_weights", map[string]interface{}{"tempo": "medium"})
	c.Set("hour_weights", key, []byte("payload"))

	value, ok := c.Get(key)
	require.True(t, ok)
	require.Equal(t, []byte("payload"), value)
}

func TestGetMissReturnsFalse(t *testing.T) {
	c := New(&Config{DefaultTTL: time.Minute, MaxSize: 10})
	defer c.Close()

	_, ok := c.Get("nonexistent")
	require.False(t, ok)
	require.Equal(t, int64(1), c.Stats().Misses)
}

func TestEntryExpiresAfterTTL(t *testing.T) {
	c := New(&Config{DefaultTTL: time.Millisecond, MaxSize: 10})
	defer c.Close()

	key := Key("hour_weights", nil)
	c.Set("hour_weights", key, []byte("x"))
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get(key)
	require.False(t, ok)
}

func TestEvictsLRUWhenAtCapacity(t *testing.T) {
	c := New(&Config{DefaultTTL: time.Minute, MaxSize: 2})
	defer c.Close()

	c.Set("k", "a", []byte("1"))
	c.Set("k", "b", []byte("2"))
	// touch "b" so "a" becomes the least-recently-used entry
	c.Get("b")
	c.Set("k", "c", []byte("3"))

	_, aExists := c.Get("a")
	_, cExists := c.Get("c")
	require.False(t, aExists)
	require.True(t, cExists)
}

func TestStatsHitRatio(t *testing.T) {
	c := New(&Config{DefaultTTL: time.Minute, MaxSize: 10})
	defer c.Close()

	c.Set("k", "a", []byte("1"))
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	stats := c.Stats()
	require.Equal(t, int64(2), stats.Hits)
	require.Equal(t, int64(1), stats.Misses)
	require.InDelta(t, 2.0/3.0, stats.HitRatio, 0.0001)
}

func TestManagerNamespacesAreIndependent(t *testing.T) {
	m := NewManager(&Config{DefaultTTL: time.Minute, MaxSize: 10})
	defer m.Close()

	a := m.Namespace("refdata-v1")
	b := m.Namespace("refdata-v2")
	require.NotSame(t, a, b)

	a.Set("k", "x", []byte("1"))
	_, existsInB := b.Get("x")
	require.False(t, existsInB)
}

func TestManagerInvalidateAllClearsEveryNamespace(t *testing.T) {
	m := NewManager(&Config{DefaultTTL: time.Minute, MaxSize: 10})
	defer m.Close()

	a := m.Namespace("refdata-v1")
	a.Set("k", "x", []byte("1"))
	m.InvalidateAll()

	_, exists := a.Get("x")
	require.False(t, exists)
}
