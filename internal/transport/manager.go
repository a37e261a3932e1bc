// Package transport implements component C: the WebSocket connection
// manager, auto-reconnect with bounded exponential backoff, ping/pong
// handling, and the pre-connect outbound buffer.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/evstack/stationsim/internal/ocpp"
)

// Config configures one station's connection manager.
type Config struct {
	StationName             string
	SupervisionURLs         []string
	DistributeEqually       bool // index mod N instead of uniform random
	InstanceIndex           int
	Version                 ocpp.Version
	TLSConfig               *tls.Config
	ClientPingInterval      time.Duration // 0 disables client-initiated pings
	AutoReconnectMaxRetries int           // -1 unlimited, 0 disabled, N>0 bounded
	BaseReconnectTimeout    time.Duration
	MaxBackoffExponent      int
	BufferCapacity          int
}

// OnOpenFunc runs synchronously right after the socket opens and before any
// buffered backlog is flushed. It receives a direct sender so
// basicStartMessageSequence frames land on the wire ahead of the backlog,
// per §4.C/§4.D and the ordering example in §8 scenario 3.
type OnOpenFunc func(ctx context.Context, send func([]byte) error, isReconnect bool)

// OnCloseFunc runs when the socket closes, normally or abnormally.
type OnCloseFunc func(code int, reason string)

// OnMessageFunc handles one inbound frame.
type OnMessageFunc func(raw []byte)

// Manager drives one station's WebSocket lifecycle.
type Manager struct {
	cfg Config
	log *slog.Logger

	mu          sync.Mutex
	state       State
	conn        *websocket.Conn
	retryCount  int
	writeCh     chan []byte
	writerDone  chan struct{}
	stopReading chan struct{}
	buf         *outboundBuffer
	ready       bool

	onOpen    OnOpenFunc
	onClose   OnCloseFunc
	onMessage OnMessageFunc

	pingStop chan struct{}
}

// New builds a Manager. Handlers may be nil.
func New(cfg Config, log *slog.Logger, onOpen OnOpenFunc, onClose OnCloseFunc, onMessage OnMessageFunc) *Manager {
	if log == nil {
		log = slog.Default()
	}
	if cfg.BaseReconnectTimeout <= 0 {
		cfg.BaseReconnectTimeout = time.Second
	}
	if cfg.MaxBackoffExponent <= 0 {
		cfg.MaxBackoffExponent = 6
	}
	return &Manager{
		cfg:       cfg,
		log:       log,
		state:     Disconnected,
		buf:       newOutboundBuffer(cfg.BufferCapacity, log),
		onOpen:    onOpen,
		onClose:   onClose,
		onMessage: onMessage,
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SetSupervisionURLs replaces the candidate supervision URLs, taking
// effect on the next connect/reconnect attempt. Used by the broadcast-
// channel control plane's SetSupervisionUrl command (§4.K).
func (m *Manager) SetSupervisionURLs(urls []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.SupervisionURLs = urls
}

func (m *Manager) pickURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.cfg.SupervisionURLs)
	if n == 0 {
		return ""
	}
	var idx int
	if m.cfg.DistributeEqually {
		idx = m.cfg.InstanceIndex % n
	} else {
		idx = rand.Intn(n)
	}
	return fmt.Sprintf("%s/%s", m.cfg.SupervisionURLs[idx], m.cfg.StationName)
}

// Start dials the supervision URL and begins the connection lifecycle,
// reconnecting on abnormal close per the backoff policy.
func (m *Manager) Start(ctx context.Context) error {
	return m.connectWithRetry(ctx, false)
}

func (m *Manager) connectWithRetry(ctx context.Context, isReconnect bool) error {
	m.setState(Connecting)

	url := m.pickURL()
	if url == "" {
		return fmt.Errorf("transport: no supervision urls configured")
	}

	dialer := websocket.Dialer{
		TLSClientConfig:  m.cfg.TLSConfig,
		Subprotocols:     []string{m.cfg.Version.SubProtocol()},
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, url, http.Header{})
	if err != nil {
		m.setState(Disconnected)
		return m.scheduleReconnect(ctx, isReconnect)
	}

	m.mu.Lock()
	m.conn = conn
	m.writeCh = make(chan []byte, 256)
	m.writerDone = make(chan struct{})
	m.stopReading = make(chan struct{})
	m.retryCount = 0
	m.ready = false
	m.mu.Unlock()

	m.setState(Open)
	go m.writeLoop()
	go m.readLoop(ctx, isReconnect)
	m.startPing()

	return nil
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// scheduleReconnect applies the exponential-backoff-with-jitter policy from
// §4.C: baseTimeout * 2^min(retry, cap), bounded by AutoReconnectMaxRetries.
func (m *Manager) scheduleReconnect(ctx context.Context, isReconnect bool) error {
	max := m.cfg.AutoReconnectMaxRetries
	if max == 0 {
		m.log.Info("auto-reconnect disabled, giving up", "station", m.cfg.StationName)
		return fmt.Errorf("transport: connection failed and auto-reconnect is disabled")
	}

	m.mu.Lock()
	m.retryCount++
	retry := m.retryCount
	m.mu.Unlock()

	if max > 0 && retry > max {
		m.log.Error("exhausted auto-reconnect retries", "station", m.cfg.StationName, "retries", max)
		return fmt.Errorf("transport: exhausted %d reconnect retries", max)
	}

	exponent := retry
	if exponent > m.cfg.MaxBackoffExponent {
		exponent = m.cfg.MaxBackoffExponent
	}
	backoff := time.Duration(float64(m.cfg.BaseReconnectTimeout) * math.Pow(2, float64(exponent)))
	jitter := time.Duration(rand.Int63n(int64(m.cfg.BaseReconnectTimeout) + 1))
	delay := backoff + jitter

	m.log.Warn("scheduling reconnect", "station", m.cfg.StationName, "retry", retry, "delay", delay)

	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return m.connectWithRetry(ctx, true)
}

func (m *Manager) writeLoop() {
	m.mu.Lock()
	conn := m.conn
	ch := m.writeCh
	done := m.writerDone
	m.mu.Unlock()

	defer close(done)
	for frame := range ch {
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			m.log.Error("write failed", "station", m.cfg.StationName, "error", err)
			return
		}
	}
}

func (m *Manager) readLoop(ctx context.Context, isReconnect bool) {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()

	conn.SetPongHandler(func(string) error { return nil })
	conn.SetPingHandler(func(data string) error {
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second))
	})

	// Run the caller's open hook with a direct (unbuffered) sender, then
	// flush anything buffered while offline, then allow ordinary sends.
	if m.onOpen != nil {
		m.onOpen(ctx, m.sendImmediate, isReconnect)
	}
	for _, frame := range m.buf.drain() {
		_ = m.sendImmediate(frame)
	}
	m.mu.Lock()
	m.ready = true
	m.mu.Unlock()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			code := websocket.CloseNoStatusReceived
			reason := err.Error()
			if ce, ok := err.(*websocket.CloseError); ok {
				code = ce.Code
				reason = ce.Text
			}
			m.handleClose(ctx, code, reason)
			return
		}
		if m.onMessage != nil {
			m.onMessage(raw)
		}
	}
}

func (m *Manager) handleClose(ctx context.Context, code int, reason string) {
	m.stopPing()
	m.mu.Lock()
	if m.writeCh != nil {
		close(m.writeCh)
		m.writeCh = nil
	}
	m.ready = false
	normal := code == websocket.CloseNormalClosure || code == websocket.CloseNoStatusReceived
	m.mu.Unlock()

	m.setState(Disconnected)
	if m.onClose != nil {
		m.onClose(code, reason)
	}

	if normal {
		m.mu.Lock()
		m.retryCount = 0
		m.mu.Unlock()
		return
	}

	_ = m.scheduleReconnect(ctx, true)
}

// sendImmediate writes frame straight to the writer queue, bypassing the
// pre-connect backlog. Used for the basicStartMessageSequence and for the
// backlog flush itself.
func (m *Manager) sendImmediate(frame []byte) error {
	m.mu.Lock()
	ch := m.writeCh
	m.mu.Unlock()
	if ch == nil {
		return fmt.Errorf("transport: not connected")
	}
	select {
	case ch <- frame:
		return nil
	default:
		// Writer queue is saturated; treat like a connection hiccup and
		// fall back to the offline buffer rather than blocking the
		// station's single logical thread of control.
		m.buf.push(frame)
		return nil
	}
}

// Send writes frame if the connection is open and ready for ordinary
// traffic, otherwise buffers it per §4.B/§4.C.
func (m *Manager) Send(frame []byte) error {
	m.mu.Lock()
	ready := m.ready
	ch := m.writeCh
	m.mu.Unlock()

	if !ready || ch == nil {
		m.buf.push(frame)
		return nil
	}
	select {
	case ch <- frame:
		return nil
	default:
		m.buf.push(frame)
		return nil
	}
}

// BufferedCount reports how many frames are waiting for reconnect.
func (m *Manager) BufferedCount() int {
	return m.buf.len()
}

func (m *Manager) startPing() {
	if m.cfg.ClientPingInterval <= 0 {
		return
	}
	stop := make(chan struct{})
	m.mu.Lock()
	m.pingStop = stop
	m.mu.Unlock()

	go func() {
		ticker := time.NewTicker(m.cfg.ClientPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				m.mu.Lock()
				conn := m.conn
				m.mu.Unlock()
				if conn == nil {
					return
				}
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			}
		}
	}()
}

// SetClientPingInterval updates the ping cadence and restarts the ping
// goroutine against the current connection, so a live SetVariables on
// WebSocketPingInterval (§4.F) takes effect without a reconnect.
func (m *Manager) SetClientPingInterval(d time.Duration) {
	m.cfg.ClientPingInterval = d
	m.stopPing()
	m.startPing()
}

func (m *Manager) stopPing() {
	m.mu.Lock()
	stop := m.pingStop
	m.pingStop = nil
	m.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}

// Stop closes the socket with a normal close code, resetting the retry
// counter and preventing a reconnect.
func (m *Manager) Stop() error {
	m.setState(Closing)
	m.stopPing()

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		m.setState(Disconnected)
		return nil
	}

	deadline := time.Now().Add(2 * time.Second)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "station stopping"), deadline)
	err := conn.Close()

	m.mu.Lock()
	m.retryCount = 0
	m.mu.Unlock()
	m.setState(Disconnected)
	return err
}
