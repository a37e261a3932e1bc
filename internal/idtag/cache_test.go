package idtag

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTags(t *testing.T, tags []string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "tags.json")
	data := `["` + tags[0] + `"`
	for _, tag := range tags[1:] {
		data += `,"` + tag + `"`
	}
	data += "]"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func newTestCache() *Cache {
	return &Cache{files: make(map[string]*fileEntry), log: slog.Default()}
}

func TestRoundRobinAdvancesPerStation(t *testing.T) {
	path := writeTags(t, []string{"A", "B", "C"})
	c := newTestCache()

	require.Equal(t, "B", c.GetIdTag(path, RoundRobin, "station-1", 1, 1))
	require.Equal(t, "C", c.GetIdTag(path, RoundRobin, "station-1", 1, 1))
	require.Equal(t, "A", c.GetIdTag(path, RoundRobin, "station-1", 1, 1))

	// A different station's round-robin cursor is independent.
	require.Equal(t, "B", c.GetIdTag(path, RoundRobin, "station-2", 1, 1))
}

func TestConnectorAffinityFormula(t *testing.T) {
	path := writeTags(t, []string{"A", "B", "C"})
	c := newTestCache()

	// (stationIndex-1)+(connectorId-1) mod n
	require.Equal(t, "A", c.GetIdTag(path, ConnectorAffinity, "s", 1, 1)) // (0+0)%3=0
	require.Equal(t, "B", c.GetIdTag(path, ConnectorAffinity, "s", 1, 2)) // (0+1)%3=1
	require.Equal(t, "C", c.GetIdTag(path, ConnectorAffinity, "s", 2, 2)) // (1+1)%3=2
}

func TestContainsMembership(t *testing.T) {
	path := writeTags(t, []string{"A", "B"})
	c := newTestCache()

	require.True(t, c.Contains(path, "A"))
	require.False(t, c.Contains(path, "Z"))
}

func TestEmptyFileReturnsEmptyString(t *testing.T) {
	c := newTestCache()
	require.Equal(t, "", c.GetIdTag("/does/not/exist.json", Random, "s", 1, 1))
}
