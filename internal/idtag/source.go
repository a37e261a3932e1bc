package idtag

import "github.com/evstack/stationsim/internal/station"

// Source adapts the process-wide Cache into a station.IDTagSource for one
// station's template (fixed file path, distribution, and identity).
type Source struct {
	cache         *Cache
	path          string
	distribution  Distribution
	stationHashID string
	stationIndex  int
}

// NewSource builds the station.IDTagSource function for one station.
func NewSource(cache *Cache, path string, distribution Distribution, stationHashID string, stationIndex int) station.IDTagSource {
	s := &Source{cache: cache, path: path, distribution: distribution, stationHashID: stationHashID, stationIndex: stationIndex}
	return s.get
}

func (s *Source) get(connectorID int) string {
	if s.path == "" {
		return ""
	}
	return s.cache.GetIdTag(s.path, s.distribution, s.stationHashID, s.stationIndex, connectorID)
}
