package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackendCapsPerStationSamples(t *testing.T) {
	b := NewMemoryBackend(3)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, b.Record(ctx, Sample{ID: string(rune('a' + i)), StationHashID: "s1"}))
	}
	out, err := b.Recent(ctx, "s1", 10)
	require.NoError(t, err)
	assert.Len(t, out, 3)
	assert.Equal(t, "c", out[0].ID)
	assert.Equal(t, "e", out[2].ID)
}

func TestMemoryBackendRecentLimitsAndOrders(t *testing.T) {
	b := NewMemoryBackend(10)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		require.NoError(t, b.Record(ctx, Sample{ID: string(rune('a' + i)), StationHashID: "s1"}))
	}
	out, err := b.Recent(ctx, "s1", 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "c", out[0].ID)
	assert.Equal(t, "d", out[1].ID)
}

func TestSinkRecordUsesMemoryBackendWhenNilGiven(t *testing.T) {
	sink := NewSink(nil, nil)
	defer sink.Close()

	sink.Record(context.Background(), "station-1", "Heartbeat", true, 12*time.Millisecond)
	sink.Record(context.Background(), "station-1", "Heartbeat", false, 8*time.Millisecond)

	out, err := sink.Recent(context.Background(), "station-1", 10)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.NotEmpty(t, out[0].ID)
	assert.True(t, out[0].Success)
	assert.False(t, out[1].Success)
}

func TestSinkRecordIsolatesStations(t *testing.T) {
	sink := NewSink(nil, nil)
	defer sink.Close()

	sink.Record(context.Background(), "station-a", "BootNotification", true, time.Millisecond)
	sink.Record(context.Background(), "station-b", "BootNotification", true, time.Millisecond)

	outA, err := sink.Recent(context.Background(), "station-a", 10)
	require.NoError(t, err)
	assert.Len(t, outA, 1)

	outB, err := sink.Recent(context.Background(), "station-b", 10)
	require.NoError(t, err)
	assert.Len(t, outB, 1)
}
