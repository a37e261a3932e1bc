package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadAppliesDefaultsWhenConfigOmitsFields(t *testing.T) {
	path := writeConfigFile(t, `{"stationTemplateUrls": ["station.json"]}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"station.json"}, cfg.StationTemplateURLs)
	assert.Equal(t, "none", cfg.Worker.ProcessType)
	assert.Equal(t, 16, cfg.Worker.PoolMaxSize)
	assert.Equal(t, -1, cfg.AutoReconnectMaxRetries)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.UIServer.Enabled)
	assert.Equal(t, "memory", cfg.PerformanceStorage.Type)
	assert.Equal(t, "./data", cfg.DataDir)
}

func TestLoadHonorsExplicitValues(t *testing.T) {
	path := writeConfigFile(t, `{
		"stationTemplateUrls": ["a.json", "b.json"],
		"worker": {"processType": "staticPool", "poolMinSize": 2, "poolMaxSize": 4},
		"performanceStorage": {"enabled": true, "type": "redis", "uri": "redis://localhost:6379"},
		"dataDir": "/var/lib/stationsim"
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.json", "b.json"}, cfg.StationTemplateURLs)
	assert.Equal(t, "staticPool", cfg.Worker.ProcessType)
	assert.Equal(t, 2, cfg.Worker.PoolMinSize)
	assert.Equal(t, 4, cfg.Worker.PoolMaxSize)
	assert.Equal(t, "redis", cfg.PerformanceStorage.Type)
	assert.Equal(t, "redis://localhost:6379", cfg.PerformanceStorage.URI)
	assert.Equal(t, "/var/lib/stationsim", cfg.DataDir)
}

func TestLoadRejectsInvalidWorkerProcessType(t *testing.T) {
	path := writeConfigFile(t, `{"worker": {"processType": "bogus"}}`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsInvalidPerformanceStorageType(t *testing.T) {
	path := writeConfigFile(t, `{"performanceStorage": {"type": "mongo"}}`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestInstanceIndexFromEnvDefaultsToZero(t *testing.T) {
	t.Setenv("CF_INSTANCE_INDEX", "")
	assert.Equal(t, 0, instanceIndexFromEnv())

	t.Setenv("CF_INSTANCE_INDEX", "3")
	assert.Equal(t, 3, instanceIndexFromEnv())

	t.Setenv("CF_INSTANCE_INDEX", "not-a-number")
	assert.Equal(t, 0, instanceIndexFromEnv())

	t.Setenv("CF_INSTANCE_INDEX", "-1")
	assert.Equal(t, 0, instanceIndexFromEnv())
}
