package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evstack/stationsim/internal/control"
	"github.com/evstack/stationsim/internal/worker"
)

// fullFakeHandle satisfies worker.StationHandle's full method set; these
// tests only exercise Snapshot/HashID through the /stations route.
type fullFakeHandle struct {
	hashID   string
	snapshot any
}

func (f *fullFakeHandle) Start(ctx context.Context) error                   { return nil }
func (f *fullFakeHandle) Stop(ctx context.Context, reasonType string) error { return nil }
func (f *fullFakeHandle) HashID() string                                    { return f.hashID }
func (f *fullFakeHandle) Snapshot() any                                     { return f.snapshot }

type fakePool struct {
	handles []worker.StationHandle
}

func (f *fakePool) Stations() []worker.StationHandle { return f.handles }

type fakeHistory struct {
	responses []control.Response
}

func (f *fakeHistory) History(limit int) []control.Response {
	if limit > len(f.responses) {
		limit = len(f.responses)
	}
	return f.responses[:limit]
}

func TestHealthzReturnsOK(t *testing.T) {
	r := NewRouter(nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestStationsReturnsEmptyListWhenPoolIsNil(t *testing.T) {
	r := NewRouter(nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/stations", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body []any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Empty(t, body)
}

func TestStationsReturnsSnapshotsFromPool(t *testing.T) {
	pool := &fakePool{handles: []worker.StationHandle{
		&fullFakeHandle{hashID: "s1", snapshot: map[string]string{"hashId": "s1"}},
		&fullFakeHandle{hashID: "s2", snapshot: map[string]string{"hashId": "s2"}},
	}}
	r := NewRouter(pool, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/stations", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body []map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 2)
}

func TestControlHistoryReturnsEmptyWhenHistoryIsNil(t *testing.T) {
	r := NewRouter(nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/control/history", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body []control.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Empty(t, body)
}

func TestControlHistoryReturnsEntriesFromHistoryView(t *testing.T) {
	history := &fakeHistory{responses: []control.Response{
		{UUID: "req-1"},
		{UUID: "req-2"},
	}}
	r := NewRouter(nil, history, nil)
	req := httptest.NewRequest(http.MethodGet, "/control/history", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body []control.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 2)
	assert.Equal(t, "req-1", body[0].UUID)
}
