package persist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evstack/stationsim/internal/configstore"
	"github.com/evstack/stationsim/internal/station"
)

func TestLoadReturnsNilWhenNoSnapshotExists(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	state, err := store.Load("never-saved")
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestSaveLoadRoundTrips(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	info := &station.Info{Name: "cp-1", HashID: "abc123"}
	policy := station.ATGPolicy{Enable: true, MinDelayBetweenTwoTransactions: 5}
	state := State{
		StationInfo: info,
		ConfigurationKey: []configstore.Key{
			{Key: "HeartbeatInterval", Value: "60", Visible: true},
		},
		AutomaticTransactionGenerator: policy,
	}

	require.NoError(t, store.Save("abc123", state))

	loaded, err := store.Load("abc123")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "cp-1", loaded.StationInfo.Name)
	assert.Equal(t, "abc123", loaded.StationInfo.HashID)
	require.Len(t, loaded.ConfigurationKey, 1)
	assert.Equal(t, "HeartbeatInterval", loaded.ConfigurationKey[0].Key)
	assert.True(t, loaded.AutomaticTransactionGenerator.Enable)
	assert.Equal(t, 5, loaded.AutomaticTransactionGenerator.MinDelayBetweenTwoTransactions)
}

func TestSaveOverwritesPriorSnapshot(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save("s1", State{ConfigurationKey: []configstore.Key{{Key: "A", Value: "1"}}}))
	require.NoError(t, store.Save("s1", State{ConfigurationKey: []configstore.Key{{Key: "A", Value: "2"}}}))

	loaded, err := store.Load("s1")
	require.NoError(t, err)
	require.Len(t, loaded.ConfigurationKey, 1)
	assert.Equal(t, "2", loaded.ConfigurationKey[0].Value)
}

func TestApplySeedsConfigStoreFirstWriteWins(t *testing.T) {
	var state *State
	cfg := configstore.New()
	state.Apply(cfg) // nil receiver is a no-op

	state = &State{
		ConfigurationKey: []configstore.Key{
			{Key: "HeartbeatInterval", Value: "60", Visible: true},
		},
	}
	state.Apply(cfg)

	k, ok := cfg.Get("HeartbeatInterval")
	require.True(t, ok)
	assert.Equal(t, "60", k.Value)

	// A later Seed for the same key must not override the persisted value.
	cfg.Seed(configstore.Key{Key: "HeartbeatInterval", Value: "30"})
	k, ok = cfg.Get("HeartbeatInterval")
	require.True(t, ok)
	assert.Equal(t, "60", k.Value)
}

func TestSnapshotBuildsStateFromLiveStation(t *testing.T) {
	cfg := configstore.New()
	cfg.Seed(configstore.Key{Key: "HeartbeatInterval", Value: "60", Visible: true})
	info := &station.Info{Name: "cp-2", HashID: "xyz"}
	policy := station.ATGPolicy{Enable: true}

	state := Snapshot(info, cfg, policy)

	assert.Same(t, info, state.StationInfo)
	require.Len(t, state.ConfigurationKey, 1)
	assert.Equal(t, "HeartbeatInterval", state.ConfigurationKey[0].Key)
	assert.True(t, state.AutomaticTransactionGenerator.Enable)
}
