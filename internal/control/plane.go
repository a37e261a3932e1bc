package control

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/evstack/stationsim/internal/station"
)

// Recorder is the seam into component L's performance-storage sink
// (stats.Sink.Record), kept as an interface so this package never imports
// internal/stats directly (§9 pattern).
type Recorder interface {
	Record(ctx context.Context, stationHashID, command string, success bool, duration time.Duration)
}

// Plane is the "worker" broadcast channel: a registry of live stations
// addressed by hash id, and a Dispatch method that fans one Request out to
// every targeted station and collects a Response per station.
type Plane struct {
	mu       sync.RWMutex
	stations map[string]*station.Runtime
	log      *slog.Logger
	recorder Recorder

	historyMu  sync.Mutex
	history    []Response
	historyCap int
}

// New builds an empty Plane, retaining up to the last 200 Responses for the
// diagnostics surface's /control/history route.
func New(log *slog.Logger) *Plane {
	if log == nil {
		log = slog.Default()
	}
	return &Plane{stations: make(map[string]*station.Runtime), log: log, historyCap: 200}
}

// SetRecorder wires a performance-storage sink so every dispatched command
// is timed and recorded (§4.L). Optional; nil (the default) skips recording.
func (p *Plane) SetRecorder(r Recorder) {
	p.recorder = r
}

// History returns the last limit Responses dispatched (oldest first), for
// the SPEC_FULL.md diagnostics-surface supplement's /control/history route.
func (p *Plane) History(limit int) []Response {
	p.historyMu.Lock()
	defer p.historyMu.Unlock()
	if limit <= 0 || limit > len(p.history) {
		limit = len(p.history)
	}
	out := make([]Response, limit)
	copy(out, p.history[len(p.history)-limit:])
	return out
}

func (p *Plane) record(responses []Response) {
	p.historyMu.Lock()
	defer p.historyMu.Unlock()
	p.history = append(p.history, responses...)
	if len(p.history) > p.historyCap {
		p.history = p.history[len(p.history)-p.historyCap:]
	}
}

// Register adds rt to the addressable set, keyed by its hash id.
func (p *Plane) Register(rt *station.Runtime) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stations[rt.HashID()] = rt
}

// Unregister removes a station from the addressable set.
func (p *Plane) Unregister(hashID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.stations, hashID)
}

// Dispatch fans req out to every station matching req.HashIDs (all
// registered stations when empty), running each station's command
// synchronously in this goroutine — each station's own runtime methods
// still serialize through its single logical thread of control (§5), so
// concurrent dispatch here never races a station's own scheduler.
func (p *Plane) Dispatch(ctx context.Context, req Request) []Response {
	targets := p.matching(req.HashIDs)
	out := make([]Response, 0, len(targets))
	for _, rt := range targets {
		out = append(out, Response{UUID: req.UUID, Payload: p.execute(ctx, rt, req)})
	}
	p.record(out)
	return out
}

func (p *Plane) matching(hashIDs []string) []*station.Runtime {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*station.Runtime, 0, len(p.stations))
	for hashID, rt := range p.stations {
		if targeted(hashID, hashIDs) {
			out = append(out, rt)
		}
	}
	return out
}

func (p *Plane) execute(ctx context.Context, rt *station.Runtime, req Request) ResponsePayload {
	resp := ResponsePayload{
		HashID:         rt.HashID(),
		Command:        req.Command,
		RequestPayload: req.Payload,
		Status:         StatusSuccess,
	}

	start := time.Now()
	result, err := dispatchCommand(ctx, rt, req.Command, req.Payload)
	if p.recorder != nil {
		p.recorder.Record(ctx, rt.HashID(), string(req.Command), err == nil, time.Since(start))
	}
	if err != nil {
		resp.Status = StatusFailure
		resp.ErrorMessage = err.Error()
		resp.ErrorStack = fmt.Sprintf("%+v", err)
		return resp
	}
	resp.CommandResponse = result
	resp.Status = statusFor(req.Command, result)
	return resp
}

// decode unmarshals payload into v, tolerating an empty/nil payload (some
// commands, e.g. Heartbeat, take none).
func decode(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return nil
	}
	return json.Unmarshal(payload, v)
}
