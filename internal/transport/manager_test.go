package transport

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evstack/stationsim/internal/ocpp"
)

// echoServer accepts one OCPP-J websocket connection and records every text
// frame it receives, in arrival order.
type echoServer struct {
	mu       sync.Mutex
	received []string
	upgrader websocket.Upgrader
}

func newEchoServer() *echoServer {
	return &echoServer{upgrader: websocket.Upgrader{
		Subprotocols:    []string{"ocpp1.6", "ocpp2.0.1"},
		CheckOrigin:     func(*http.Request) bool { return true },
	}}
}

func (s *echoServer) handler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.received = append(s.received, string(msg))
		s.mu.Unlock()
	}
}

func (s *echoServer) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.received))
	copy(out, s.received)
	return out
}

func TestManagerFlushesBacklogAfterOpenHookInFIFOOrder(t *testing.T) {
	srv := newEchoServer()
	ts := httptest.NewServer(http.HandlerFunc(srv.handler))
	defer ts.Close()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")

	var m *Manager
	onOpen := func(ctx context.Context, send func([]byte) error, isReconnect bool) {
		_ = send([]byte(`"status-1"`))
		_ = send([]byte(`"status-2"`))
	}

	cfg := Config{
		StationName:             "CP001",
		SupervisionURLs:         []string{wsURL},
		Version:                 ocpp.Version16,
		BaseReconnectTimeout:    10 * time.Millisecond,
		AutoReconnectMaxRetries: 0,
	}
	m = New(cfg, slog.Default(), onOpen, nil, nil)

	// Buffer a frame before the connection exists; it must be flushed after
	// the open-hook frames but before anything sent once ready.
	require.NoError(t, m.Send([]byte(`"buffered-start-transaction"`)))

	require.NoError(t, m.Start(context.Background()))

	require.Eventually(t, func() bool {
		return len(srv.snapshot()) >= 3
	}, time.Second, time.Millisecond)

	require.NoError(t, m.Send([]byte(`"ordinary-heartbeat"`)))

	require.Eventually(t, func() bool {
		return len(srv.snapshot()) >= 4
	}, time.Second, time.Millisecond)

	got := srv.snapshot()
	assert.Equal(t, []string{
		`"status-1"`,
		`"status-2"`,
		`"buffered-start-transaction"`,
		`"ordinary-heartbeat"`,
	}, got)

	_ = m.Stop()
}

func TestManagerPickURLDistributesEqually(t *testing.T) {
	m := New(Config{
		StationName:       "CP002",
		SupervisionURLs:   []string{"ws://a", "ws://b", "ws://c"},
		DistributeEqually: true,
		InstanceIndex:     4,
		Version:           ocpp.Version16,
	}, slog.Default(), nil, nil, nil)

	// 4 mod 3 == 1 -> "ws://b"
	assert.Equal(t, "ws://b/CP002", m.pickURL())
}

func TestManagerGivesUpWhenReconnectDisabled(t *testing.T) {
	m := New(Config{
		StationName:             "CP003",
		SupervisionURLs:         []string{"ws://127.0.0.1:1"},
		Version:                 ocpp.Version16,
		AutoReconnectMaxRetries: 0,
	}, slog.Default(), nil, nil, nil)

	err := m.Start(context.Background())
	require.Error(t, err)
}

func TestManagerBoundsRetriesWhenConfigured(t *testing.T) {
	m := New(Config{
		StationName:             "CP004",
		SupervisionURLs:         []string{"ws://127.0.0.1:1"},
		Version:                 ocpp.Version16,
		AutoReconnectMaxRetries: 2,
		BaseReconnectTimeout:    time.Millisecond,
		MaxBackoffExponent:      2,
	}, slog.Default(), nil, nil, nil)

	err := m.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, 3, m.retryCount) // exhausted after the 2 allowed retries
}
