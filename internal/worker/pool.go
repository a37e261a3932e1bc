package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type entry struct {
	handle StationHandle
	task   Task
}

// Pool is the §4.J harness: a bounded set of goroutines, each owning one
// constructed station.Runtime for its lifetime. Concurrency is gated by a
// semaphore sized to MaxSize for dynamicPool/staticPool (MinSize is stored
// but not read, and there is no separately-pooled set of idle workers —
// this simulator has no per-station idle cost worth
// pre-warming for). ModeNone runs every Add unbounded, matching "spawn N
// stations across worker threads" when no pool limit is configured.
type Pool struct {
	mode    Mode
	minSize int
	maxSize int
	factory StationFactory
	log     *slog.Logger

	mu       sync.Mutex
	stations map[string]*entry // hashID -> entry
	byIndex  map[int]string    // index -> hashID

	sem chan struct{}

	Events chan Event

	statsStop chan struct{}
	wg        sync.WaitGroup
}

// NewPool builds a Pool. factory is called once per Task to construct the
// station; it is constructor-injected so this package never needs to know
// how templates are parsed or how a Binding/Options set gets assembled.
func NewPool(mode Mode, minSize, maxSize int, factory StationFactory, log *slog.Logger) *Pool {
	if log == nil {
		log = slog.Default()
	}
	if maxSize <= 0 {
		maxSize = 1
	}
	p := &Pool{
		mode:     mode,
		minSize:  minSize,
		maxSize:  maxSize,
		factory:  factory,
		log:      log,
		stations: make(map[string]*entry),
		byIndex:  make(map[int]string),
		Events:   make(chan Event, 64),
	}
	if mode == ModeDynamicPool || mode == ModeStaticPool {
		p.sem = make(chan struct{}, maxSize)
	}
	return p
}

func (p *Pool) acquire() {
	if p.sem != nil {
		p.sem <- struct{}{}
	}
}

func (p *Pool) release() {
	if p.sem != nil {
		<-p.sem
	}
}

// Add constructs and starts the station for task, asynchronously. It
// returns immediately; outcomes arrive on Events as EventAdded+EventStarted
// (success) or EventElementError (construction/start failure).
func (p *Pool) Add(ctx context.Context, task Task) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.acquire()
		defer p.release()

		handle, err := p.factory(ctx, task)
		if err != nil {
			p.emit(Event{Kind: EventElementError, Index: task.Index, Err: fmt.Errorf("construct station %d: %w", task.Index, err)})
			return
		}
		hashID := handle.HashID()

		p.mu.Lock()
		p.stations[hashID] = &entry{handle: handle, task: task}
		p.byIndex[task.Index] = hashID
		p.mu.Unlock()

		p.emit(Event{Kind: EventAdded, Index: task.Index, HashID: hashID, Snapshot: handle.Snapshot()})

		if err := handle.Start(ctx); err != nil {
			p.emit(Event{Kind: EventElementError, Index: task.Index, HashID: hashID, Err: fmt.Errorf("start station %d: %w", task.Index, err)})
			return
		}
		p.emit(Event{Kind: EventStarted, Index: task.Index, HashID: hashID, Snapshot: handle.Snapshot()})
	}()
}

// AddBatch adds every task, honoring the pool's concurrency gate.
func (p *Pool) AddBatch(ctx context.Context, tasks []Task) {
	for _, t := range tasks {
		p.Add(ctx, t)
	}
}

func (p *Pool) emit(ev Event) {
	select {
	case p.Events <- ev:
	default:
		p.log.Warn("worker: events channel full, dropping event", "kind", ev.Kind, "hashId", ev.HashID)
	}
}

// Station looks up a live station handle by hash id.
func (p *Pool) Station(hashID string) (StationHandle, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.stations[hashID]
	if !ok {
		return nil, false
	}
	return e.handle, true
}

// Stations returns every currently-registered station handle.
func (p *Pool) Stations() []StationHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]StationHandle, 0, len(p.stations))
	for _, e := range p.stations {
		out = append(out, e.handle)
	}
	return out
}

// HashIDs returns every currently-registered hash id.
func (p *Pool) HashIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.stations))
	for id := range p.stations {
		out = append(out, id)
	}
	return out
}

// Remove stops and forgets the station for hashID, emitting EventStopped.
func (p *Pool) Remove(ctx context.Context, hashID, reasonType string) error {
	p.mu.Lock()
	e, ok := p.stations[hashID]
	if ok {
		delete(p.stations, hashID)
		delete(p.byIndex, e.task.Index)
	}
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("worker: unknown station %q", hashID)
	}
	err := e.handle.Stop(ctx, reasonType)
	p.emit(Event{Kind: EventStopped, Index: e.task.Index, HashID: hashID, Snapshot: e.handle.Snapshot()})
	return err
}

// StopAll stops every station and waits for in-flight Add calls to finish.
func (p *Pool) StopAll(ctx context.Context, reasonType string) {
	for _, id := range p.HashIDs() {
		if err := p.Remove(ctx, id, reasonType); err != nil {
			p.log.Warn("worker: stop failed", "hashId", id, "error", err)
		}
	}
	p.wg.Wait()
	if p.statsStop != nil {
		close(p.statsStop)
		p.statsStop = nil
	}
}

// StartStatistics launches a ticker that posts an EventPerformanceStatistics
// snapshot for every live station every interval, per §4.J and the
// config's log.statisticsInterval.
func (p *Pool) StartStatistics(interval time.Duration) {
	if interval <= 0 {
		return
	}
	p.statsStop = make(chan struct{})
	stop := p.statsStop
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				for _, e := range p.entries() {
					p.emit(Event{Kind: EventPerformanceStatistics, Index: e.task.Index, HashID: e.handle.HashID(), Snapshot: e.handle.Snapshot()})
				}
			}
		}
	}()
}

func (p *Pool) entries() []*entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*entry, 0, len(p.stations))
	for _, e := range p.stations {
		out = append(out, e)
	}
	return out
}
