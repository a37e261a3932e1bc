package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStation struct {
	hashID  string
	started bool
	stopped bool
	failStart bool
}

func (f *fakeStation) Start(ctx context.Context) error {
	if f.failStart {
		return errors.New("boom")
	}
	f.started = true
	return nil
}

func (f *fakeStation) Stop(ctx context.Context, reasonType string) error {
	f.stopped = true
	return nil
}

func (f *fakeStation) HashID() string { return f.hashID }
func (f *fakeStation) Snapshot() any   { return map[string]any{"hashId": f.hashID} }

func drainUntil(t *testing.T, events chan Event, kinds ...EventKind) map[EventKind]Event {
	t.Helper()
	seen := make(map[EventKind]Event)
	deadline := time.After(time.Second)
	for len(seen) < len(kinds) {
		select {
		case ev := <-events:
			seen[ev.Kind] = ev
		case <-deadline:
			t.Fatalf("timed out waiting for events %v, got %v", kinds, seen)
		}
	}
	return seen
}

func TestPoolAddEmitsAddedThenStarted(t *testing.T) {
	factory := func(ctx context.Context, task Task) (StationHandle, error) {
		return &fakeStation{hashID: fmt.Sprintf("hash-%d", task.Index)}, nil
	}
	p := NewPool(ModeNone, 0, 0, factory, nil)
	p.Add(context.Background(), Task{Index: 1, TemplateFile: "t.json"})

	seen := drainUntil(t, p.Events, EventAdded, EventStarted)
	assert.Equal(t, "hash-1", seen[EventAdded].HashID)
	assert.Equal(t, "hash-1", seen[EventStarted].HashID)

	handle, ok := p.Station("hash-1")
	require.True(t, ok)
	assert.Equal(t, "hash-1", handle.HashID())
}

func TestPoolAddEmitsElementErrorOnStartFailure(t *testing.T) {
	factory := func(ctx context.Context, task Task) (StationHandle, error) {
		return &fakeStation{hashID: "hash-x", failStart: true}, nil
	}
	p := NewPool(ModeNone, 0, 0, factory, nil)
	p.Add(context.Background(), Task{Index: 1})

	seen := drainUntil(t, p.Events, EventAdded, EventElementError)
	require.Error(t, seen[EventElementError].Err)
}

func TestPoolAddEmitsElementErrorOnConstructFailure(t *testing.T) {
	factory := func(ctx context.Context, task Task) (StationHandle, error) {
		return nil, errors.New("bad template")
	}
	p := NewPool(ModeNone, 0, 0, factory, nil)
	p.Add(context.Background(), Task{Index: 9})

	seen := drainUntil(t, p.Events, EventElementError)
	require.Error(t, seen[EventElementError].Err)
	assert.Equal(t, 9, seen[EventElementError].Index)
}

func TestPoolStaticModeBoundsConcurrency(t *testing.T) {
	inflight := make(chan struct{}, 10)
	release := make(chan struct{})
	factory := func(ctx context.Context, task Task) (StationHandle, error) {
		inflight <- struct{}{}
		<-release
		return &fakeStation{hashID: fmt.Sprintf("hash-%d", task.Index)}, nil
	}
	p := NewPool(ModeStaticPool, 1, 2, factory, nil)
	for i := 0; i < 5; i++ {
		p.Add(context.Background(), Task{Index: i})
	}

	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, len(inflight), 2)
	close(release)
	p.wg.Wait()
}

func TestPoolStopAllStopsEveryStation(t *testing.T) {
	factory := func(ctx context.Context, task Task) (StationHandle, error) {
		return &fakeStation{hashID: fmt.Sprintf("hash-%d", task.Index)}, nil
	}
	p := NewPool(ModeNone, 0, 0, factory, nil)
	p.Add(context.Background(), Task{Index: 1})
	drainUntil(t, p.Events, EventAdded, EventStarted)

	p.StopAll(context.Background(), "Hard")
	assert.Empty(t, p.Stations())
}
