// Package atg implements component I, the Automatic Transaction Generator:
// one loop per enabled connector driving repeated Authorize/
// StartTransaction/StopTransaction cycles per §4.I.
package atg

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/evstack/stationsim/internal/station"
	"github.com/evstack/stationsim/internal/transport"
)

// Policy is the subset of station.ATGPolicy the generator consumes,
// decoupled from the template type so this package can be unit tested
// without constructing a full station.Template.
type Policy struct {
	MinDelayBetweenTwoTransactions time.Duration
	MaxDelayBetweenTwoTransactions time.Duration
	MinDurationOfTransaction       time.Duration
	MaxDurationOfTransaction       time.Duration
	RequireAuthorize               bool
	StopAbsoluteDuration           bool
	StopOnConnectionFailure        bool
	ProbabilityOfNonAuthorizedTag  float64
}

// PolicyFromTemplate converts a station.ATGPolicy (seconds) into a Policy
// (time.Duration).
func PolicyFromTemplate(p station.ATGPolicy) Policy {
	return Policy{
		MinDelayBetweenTwoTransactions: time.Duration(p.MinDelayBetweenTwoTransactions) * time.Second,
		MaxDelayBetweenTwoTransactions: time.Duration(p.MaxDelayBetweenTwoTransactions) * time.Second,
		MinDurationOfTransaction:       time.Duration(p.MinDurationOfTransaction) * time.Second,
		MaxDurationOfTransaction:       time.Duration(p.MaxDurationOfTransaction) * time.Second,
		RequireAuthorize:               p.RequireAuthorize,
		StopAbsoluteDuration:           p.StopAbsoluteDuration,
		StopOnConnectionFailure:        p.StopOnConnectionFailure,
		ProbabilityOfNonAuthorizedTag:  p.ProbabilityOfNonAuthorizedTag,
	}
}

// Generator drives the ATG loops for one station. It implements
// station.ATGController. Each connector's loop has its own stop channel so
// the broadcast-channel control plane's StartATG/StopATG (with optional
// connectorIds, §4.K) can target a subset of connectors independently.
type Generator struct {
	rt     *station.Runtime
	policy Policy
	log    *slog.Logger

	mu    sync.Mutex
	stops map[int]chan struct{}
	wg    sync.WaitGroup
}

// New builds a Generator bound to rt with policy.
func New(rt *station.Runtime, policy Policy, log *slog.Logger) *Generator {
	if log == nil {
		log = slog.Default()
	}
	return &Generator{rt: rt, policy: policy, log: log, stops: make(map[int]chan struct{})}
}

// Start launches one goroutine per non-zero connector, each running the
// §4.I cycle until Stop or a connection-failure condition fires. It
// implements station.ATGController (all connectors).
func (g *Generator) Start(ctx context.Context) {
	g.StartConnectors(ctx, g.rt.ConnectorIDs())
}

// StartConnectors launches the ATG loop only for the given connector ids,
// skipping any already running.
func (g *Generator) StartConnectors(ctx context.Context, ids []int) {
	g.mu.Lock()
	var toStart []int
	for _, id := range ids {
		if _, running := g.stops[id]; running {
			continue
		}
		stop := make(chan struct{})
		g.stops[id] = stop
		toStart = append(toStart, id)
	}
	g.mu.Unlock()

	for _, id := range toStart {
		g.wg.Add(1)
		go g.runConnector(ctx, id)
	}
}

// Stop signals every per-connector loop to exit at its next phase boundary
// and waits for them to finish. It implements station.ATGController.
func (g *Generator) Stop() {
	g.StopConnectors(g.rt.ConnectorIDs())
}

// StopConnectors stops the ATG loop only for the given connector ids. Loops
// on other connectors keep running; it waits for loops to exit only once no
// connector loop remains registered, as after Stop.
func (g *Generator) StopConnectors(ids []int) {
	g.mu.Lock()
	var stopped []chan struct{}
	for _, id := range ids {
		if stop, ok := g.stops[id]; ok {
			stopped = append(stopped, stop)
			delete(g.stops, id)
		}
	}
	remaining := len(g.stops)
	g.mu.Unlock()

	for _, stop := range stopped {
		close(stop)
	}
	if remaining == 0 {
		g.wg.Wait()
	}
}

func (g *Generator) stoppedFor(connectorID int, stop chan struct{}) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stops[connectorID] != stop
}

func (g *Generator) runConnector(ctx context.Context, connectorID int) {
	defer g.wg.Done()
	g.mu.Lock()
	stop := g.stops[connectorID]
	g.mu.Unlock()

	for {
		if !g.sleep(stop, randDuration(g.policy.MinDelayBetweenTwoTransactions, g.policy.MaxDelayBetweenTwoTransactions)) {
			return
		}
		if g.stoppedFor(connectorID, stop) {
			return
		}
		if g.policy.StopOnConnectionFailure && g.rt.Transport.State() != transport.Open {
			g.log.Info("atg: stopping after connection failure", "connector", connectorID)
			return
		}

		idTag := g.rt.NextIDTag(connectorID)
		if idTag == "" {
			continue
		}
		if station.RandomBool(g.policy.ProbabilityOfNonAuthorizedTag) {
			idTag = "INVALID-" + idTag
		}

		if g.policy.RequireAuthorize {
			if !g.rt.Authorize(ctx, idTag, connectorID) {
				g.log.Info("atg: authorize rejected, skipping cycle", "connector", connectorID)
				continue
			}
		}

		txID, err := g.rt.StartTransaction(ctx, connectorID, idTag, false)
		if err != nil {
			g.log.Warn("atg: start transaction failed", "connector", connectorID, "error", err)
			continue
		}
		_ = txID

		duration := randDuration(g.policy.MinDurationOfTransaction, g.policy.MaxDurationOfTransaction)
		if !g.sleep(stop, duration) {
			_ = g.rt.StopTransaction(context.Background(), connectorID, "Local")
			return
		}

		if err := g.rt.StopTransaction(ctx, connectorID, "Local"); err != nil {
			g.log.Warn("atg: stop transaction failed", "connector", connectorID, "error", err)
		}
	}
}

// sleep waits for d or the stop signal, returning false if stop fired first.
func (g *Generator) sleep(stop <-chan struct{}, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-stop:
		return false
	case <-timer.C:
		return true
	}
}

func randDuration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}
