package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecordJobStatusCountsByStatus(t *testing.T) {
	c := NewInMemoryCollector()
	c.RecordJobStatus("completed")
	c.RecordJobStatus("completed")
	c.RecordJobStatus("failed")

	stats := c.Stats()
	require.Equal(t, int64(2), stats.JobsByStatus["completed"])
	require.Equal(t, int64(1), stats.JobsByStatus["failed"])
}

func TestRecordPatientsGeneratedSumsPerFormat(t *testing.T) {
	c := NewInMemoryCollector()
	c.RecordPatientsGenerated("json", 50)
	c.RecordPatientsGenerated("json", 25)
	c.RecordPatientsGenerated("csv", 10)

	stats := c.Stats()
	require.Equal(t, int64(75), stats.PatientsByFormat["json"])
	require.Equal(t, int64(10), stats.PatientsByFormat["csv"])
}

func TestRecordChunkDurationAggregatesMinMaxAverage(t *testing.T) {
	c := NewInMemoryCollector()
	c.RecordChunkDuration(100 * time.Millisecond)
	c.RecordChunkDuration(300 * time.Millisecond)

	stats := c.Stats().ChunkDuration
	require.Equal(t, int64(2), stats.Count)
	require.Equal(t, 100*time.Millisecond, stats.Min)
	require.Equal(t, 300*time.Millisecond, stats.Max)
	require.Equal(t, 200*time.Millisecond, stats.Average)
}

func TestCacheHitRatioComputed(t *testing.T) {
	c := NewInMemoryCollector()
	c.RecordCacheHit("hour_weights:medium:sustained")
	c.RecordCacheHit("hour_weights:medium:sustained")
	c.RecordCacheMiss("hour_weights:high:mass_casualty")

	stats := c.Stats()
	require.Equal(t, int64(2), stats.CacheHits)
	require.Equal(t, int64(1), stats.CacheMisses)
	require.InDelta(t, 2.0/3.0, stats.CacheHitRatio, 0.0001)
}

func TestResetZeroesCounters(t *testing.T) {
	c := NewInMemoryCollector()
	c.RecordJobStatus("completed")
	c.RecordCacheHit("x")
	c.Reset()

	stats := c.Stats()
	require.Empty(t, stats.JobsByStatus)
	require.Equal(t, int64(0), stats.CacheHits)
}

func TestNoOpCollectorIsSafeToUse(t *testing.T) {
	var c Collector = NoOpCollector{}
	c.RecordJobStatus("completed")
	c.RecordPatientsGenerated("json", 100)
	c.RecordChunkDuration(time.Second)
	c.SetMemoryGauge(1024)
	c.RecordCacheHit("x")
	c.RecordCacheMiss("y")
	c.Reset()
	require.Equal(t, Stats{}, c.Stats())
}
