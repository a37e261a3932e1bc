package control

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evstack/stationsim/internal/station"
)

func TestTargetedEmptyListMatchesEverything(t *testing.T) {
	assert.True(t, targeted("any-hash", nil))
	assert.True(t, targeted("any-hash", []string{}))
}

func TestTargetedRestrictsToListedHashes(t *testing.T) {
	assert.True(t, targeted("a", []string{"a", "b"}))
	assert.False(t, targeted("c", []string{"a", "b"}))
}

func TestHistoryReturnsOldestFirstWithinCap(t *testing.T) {
	p := New(nil)
	p.historyCap = 3

	for i := 0; i < 5; i++ {
		p.record([]Response{{UUID: string(rune('a' + i))}})
	}

	out := p.History(10)
	require.Len(t, out, 3)
	assert.Equal(t, "c", out[0].UUID)
	assert.Equal(t, "e", out[2].UUID)
}

func TestHistoryRespectsRequestedLimit(t *testing.T) {
	p := New(nil)
	for i := 0; i < 4; i++ {
		p.record([]Response{{UUID: string(rune('a' + i))}})
	}

	out := p.History(2)
	require.Len(t, out, 2)
	assert.Equal(t, "c", out[0].UUID)
	assert.Equal(t, "d", out[1].UUID)
}

func TestHistoryZeroOrNegativeLimitReturnsAll(t *testing.T) {
	p := New(nil)
	p.record([]Response{{UUID: "x"}, {UUID: "y"}})

	assert.Len(t, p.History(0), 2)
	assert.Len(t, p.History(-1), 2)
}

func TestRegisterUnregisterControlsMatching(t *testing.T) {
	p := New(nil)
	rt := &station.Runtime{}
	// HashID() reads rt.Info.HashID; give it an identity so Register has a key.
	rt.Info = &station.Info{HashID: "h1"}

	p.Register(rt)
	assert.Len(t, p.matching(nil), 1)

	p.Unregister("h1")
	assert.Len(t, p.matching(nil), 0)
}

type fakeRecorder struct {
	calls int
	last  string
}

func (f *fakeRecorder) Record(ctx context.Context, stationHashID, command string, success bool, duration time.Duration) {
	f.calls++
	f.last = command
}

func TestSetRecorderWiresRecorder(t *testing.T) {
	p := New(nil)
	rec := &fakeRecorder{}
	p.SetRecorder(rec)
	assert.NotNil(t, p.recorder)
}
