package correlator

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evstack/stationsim/internal/ocpp"
)

// captureSender records every frame written and lets the test reply by
// decoding the generated messageId out of the frame.
type captureSender struct {
	mu     sync.Mutex
	frames [][]byte
}

func (s *captureSender) sender() Sender {
	return func(frame []byte) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.frames = append(s.frames, frame)
		return nil
	}
}

func (s *captureSender) lastMessageID(t *testing.T) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.frames)
	var generic []json.RawMessage
	require.NoError(t, json.Unmarshal(s.frames[len(s.frames)-1], &generic))
	var id string
	require.NoError(t, json.Unmarshal(generic[1], &id))
	return id
}

func TestSendRequestResolvesOnCallResult(t *testing.T) {
	sender := &captureSender{}
	c := New(sender.sender(), nil)
	defer c.Close()

	done := make(chan struct{})
	var payload json.RawMessage
	var err error
	go func() {
		payload, err = c.SendRequest(context.Background(), "Heartbeat", map[string]any{}, time.Second)
		close(done)
	}()

	// Wait until the frame has actually been sent before resolving.
	require.Eventually(t, func() bool {
		sender.mu.Lock()
		defer sender.mu.Unlock()
		return len(sender.frames) == 1
	}, time.Second, time.Millisecond)

	id := sender.lastMessageID(t)
	c.ResolveResult(id, json.RawMessage(`{"currentTime":"2024-01-01T00:00:00Z"}`))

	<-done
	require.NoError(t, err)
	assert.JSONEq(t, `{"currentTime":"2024-01-01T00:00:00Z"}`, string(payload))
	assert.Equal(t, 0, c.PendingCount())
}

func TestSendRequestResolvesOnCallError(t *testing.T) {
	sender := &captureSender{}
	c := New(sender.sender(), nil)
	defer c.Close()

	done := make(chan struct{})
	var err error
	go func() {
		_, err = c.SendRequest(context.Background(), "BootNotification", map[string]any{}, time.Second)
		close(done)
	}()

	require.Eventually(t, func() bool {
		sender.mu.Lock()
		defer sender.mu.Unlock()
		return len(sender.frames) == 1
	}, time.Second, time.Millisecond)

	id := sender.lastMessageID(t)
	c.ResolveError(id, ocpp.New(ocpp.ErrInternalError, "boom"))

	<-done
	require.Error(t, err)
	var ocppErr *ocpp.Error
	require.ErrorAs(t, err, &ocppErr)
	assert.Equal(t, ocpp.ErrInternalError, ocppErr.Code)
}

func TestSendRequestTimesOut(t *testing.T) {
	sender := &captureSender{}
	c := New(sender.sender(), nil)
	defer c.Close()

	_, err := c.SendRequest(context.Background(), "Heartbeat", map[string]any{}, 10*time.Millisecond)
	assert.ErrorIs(t, err, ocpp.ErrTimeout)
	assert.Equal(t, 0, c.PendingCount())
}

func TestUnknownMessageIDIsDropped(t *testing.T) {
	sender := &captureSender{}
	c := New(sender.sender(), nil)
	defer c.Close()

	// Resolving an id nobody is waiting on must not panic or block.
	c.ResolveResult("no-such-id", json.RawMessage(`{}`))
	c.ResolveError("no-such-id", ocpp.New(ocpp.ErrGenericError, "x"))
	assert.Equal(t, 0, c.PendingCount())
}

func TestReaperRemovesExpiredEntries(t *testing.T) {
	sender := &captureSender{}
	c := New(sender.sender(), nil)
	defer c.Close()

	go func() {
		_, _ = c.SendRequest(context.Background(), "Heartbeat", map[string]any{}, 5*time.Millisecond)
	}()

	require.Eventually(t, func() bool {
		return c.PendingCount() == 0
	}, 2*time.Second, 10*time.Millisecond, "reaper should clear the expired entry")
}
