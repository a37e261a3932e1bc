// Package correlator implements component B: encoding/decoding OCPP-J
// frames and correlating outbound CALLs with their CALLRESULT/CALLERROR by
// messageId, with a per-request deadline and a background reaper.
package correlator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/evstack/stationsim/internal/ocpp"
)

// DefaultTimeout is the default deadline for a pending request (§4.B).
const DefaultTimeout = 60 * time.Second

// Sender writes an already-encoded frame toward the wire. It is supplied by
// the connection manager (component C); when the connection is down it
// must buffer rather than error, per §4.C.
type Sender func(frame []byte) error

// pending tracks one outstanding CALL awaiting a CALLRESULT/CALLERROR.
type pending struct {
	action     string
	enqueuedAt time.Time
	deadline   time.Time
	resolve    chan result
}

type result struct {
	payload json.RawMessage
	err     error
}

// Correlator owns the PendingRequest map for a single station. All mutation
// happens under its lock; per §5 a station's correlator is only ever
// touched from that station's single logical thread of control plus the
// reaper goroutine, which only ever deletes timed-out entries.
type Correlator struct {
	mu      sync.Mutex
	pending map[string]*pending
	send    Sender
	log     *slog.Logger

	reaperStop chan struct{}
	reaperDone chan struct{}
}

// New creates a Correlator that writes outbound frames via send.
func New(send Sender, log *slog.Logger) *Correlator {
	if log == nil {
		log = slog.Default()
	}
	c := &Correlator{
		pending:    make(map[string]*pending),
		send:       send,
		log:        log,
		reaperStop: make(chan struct{}),
		reaperDone: make(chan struct{}),
	}
	go c.reap()
	return c
}

// SetSender swaps the outbound sender, used when the connection manager
// reconnects and needs to rewire where frames land.
func (c *Correlator) SetSender(send Sender) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.send = send
}

// SendRequest encodes action/payload as a CALL, enqueues it, and blocks
// until a correlated CALLRESULT/CALLERROR arrives or the deadline fires.
// A CALLERROR resolves the call as an *ocpp.Error; deadline expiry resolves
// it as ocpp.ErrTimeout.
func (c *Correlator) SendRequest(ctx context.Context, action string, payload any, timeout time.Duration) (json.RawMessage, error) {
	return c.sendRequestVia(ctx, action, payload, timeout, nil)
}

// SendRequestVia behaves like SendRequest but writes the encoded frame via
// sender instead of the Correlator's configured Sender. Used by the
// station runtime to push basicStartMessageSequence frames through the
// connection manager's immediate (backlog-bypassing) path while still
// correlating their CALLRESULT/CALLERROR through the normal pending map.
func (c *Correlator) SendRequestVia(ctx context.Context, action string, payload any, timeout time.Duration, sender Sender) (json.RawMessage, error) {
	return c.sendRequestVia(ctx, action, payload, timeout, sender)
}

func (c *Correlator) sendRequestVia(ctx context.Context, action string, payload any, timeout time.Duration, override Sender) (json.RawMessage, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	messageID := uuid.NewString()

	frame, err := ocpp.EncodeCall(messageID, action, payload)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	p := &pending{
		action:     action,
		enqueuedAt: now,
		deadline:   now.Add(timeout),
		resolve:    make(chan result, 1),
	}

	c.mu.Lock()
	c.pending[messageID] = p
	sender := c.send
	c.mu.Unlock()
	if override != nil {
		sender = override
	}

	if sender == nil {
		c.fail(messageID, fmt.Errorf("correlator: no sender configured"))
		return nil, fmt.Errorf("correlator: no sender configured")
	}
	if err := sender(frame); err != nil {
		c.fail(messageID, err)
		return nil, err
	}

	select {
	case res := <-p.resolve:
		return res.payload, res.err
	case <-ctx.Done():
		c.fail(messageID, ctx.Err())
		return nil, ctx.Err()
	case <-time.After(timeout):
		c.fail(messageID, ocpp.ErrTimeout)
		return nil, ocpp.ErrTimeout
	}
}

// fail resolves (if still pending) and removes messageID with err.
func (c *Correlator) fail(messageID string, err error) {
	c.mu.Lock()
	p, ok := c.pending[messageID]
	if ok {
		delete(c.pending, messageID)
	}
	c.mu.Unlock()
	if ok {
		select {
		case p.resolve <- result{err: err}:
		default:
		}
	}
}

// ResolveResult is called by the dispatcher when a CALLRESULT frame arrives.
// An unknown messageId is logged and discarded (§4.B, §9 open question).
func (c *Correlator) ResolveResult(messageID string, payload json.RawMessage) {
	c.mu.Lock()
	p, ok := c.pending[messageID]
	if ok {
		delete(c.pending, messageID)
	}
	c.mu.Unlock()

	if !ok {
		c.log.Warn("callresult for unknown message id, dropping", "messageId", messageID)
		return
	}
	select {
	case p.resolve <- result{payload: payload}:
	default:
	}
}

// ResolveError is called by the dispatcher when a CALLERROR frame arrives.
// An unknown messageId is logged; no retry is attempted (§7).
func (c *Correlator) ResolveError(messageID string, ocppErr *ocpp.Error) {
	c.mu.Lock()
	p, ok := c.pending[messageID]
	if ok {
		delete(c.pending, messageID)
	}
	c.mu.Unlock()

	if !ok {
		c.log.Warn("callerror for unknown message id, dropping", "messageId", messageID, "code", ocppErr.Code)
		return
	}
	select {
	case p.resolve <- result{err: ocppErr}:
	default:
	}
}

// PendingCount reports the number of in-flight requests.
func (c *Correlator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// reap removes entries past their deadline every second, enforcing the
// invariant that the PendingRequest map contains no expired entries.
func (c *Correlator) reap() {
	defer close(c.reaperDone)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-c.reaperStop:
			return
		case <-ticker.C:
			c.reapExpired()
		}
	}
}

func (c *Correlator) reapExpired() {
	now := time.Now()
	var expired []string

	c.mu.Lock()
	for id, p := range c.pending {
		if now.After(p.deadline) {
			expired = append(expired, id)
		}
	}
	c.mu.Unlock()

	for _, id := range expired {
		c.fail(id, ocpp.ErrTimeout)
	}
}

// Close stops the background reaper. Safe to call once.
func (c *Correlator) Close() {
	close(c.reaperStop)
	<-c.reaperDone
}
