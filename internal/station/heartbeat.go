package station

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/evstack/stationsim/internal/correlator"
)

// setHeartbeatInterval persists the interval under both vendor-compat keys
// (§4.D step 2) and records it for the scheduler.
func (rt *Runtime) setHeartbeatInterval(interval time.Duration) {
	rt.mu.Lock()
	rt.heartbeatIntervalValue = interval
	rt.mu.Unlock()
	if rt.Config != nil {
		secs := int(interval / time.Second)
		rt.Config.SetMirrored("HeartBeatInterval", "HeartbeatInterval", strconv.Itoa(secs))
	}
}

// startHeartbeat (re)starts the heartbeat scheduler. An interval of zero or
// negative disables it entirely per §8 boundary behavior.
func (rt *Runtime) startHeartbeat() {
	rt.stopHeartbeat()

	rt.mu.Lock()
	interval := rt.heartbeatIntervalValue
	rt.mu.Unlock()
	if interval <= 0 {
		rt.log.Info("heartbeat interval <= 0, scheduler disabled")
		return
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	rt.mu.Lock()
	rt.heartbeatStop = stop
	rt.heartbeatDone = done
	rt.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				rt.sendHeartbeat()
			}
		}
	}()
}

// RestartHeartbeat is the public seam used by the 2.0.1 Variable Manager's
// SetVariables dynamic side-effect (§4.F step 8) and 1.6's ChangeConfiguration
// HeartBeatInterval special case (§4.E).
func (rt *Runtime) RestartHeartbeat(interval time.Duration) {
	rt.setHeartbeatInterval(interval)
	rt.startHeartbeat()
}

func (rt *Runtime) sendHeartbeat() {
	if _, err := rt.SendHeartbeat(context.Background()); err != nil {
		rt.log.Warn("heartbeat failed", "error", err)
	}
}

// SendHeartbeat issues one Heartbeat.req immediately and returns the
// parsed result, independent of the scheduler's own timer. Used by
// TriggerHeartbeat and the broadcast-channel control plane's direct
// "Heartbeat" command (§4.K).
func (rt *Runtime) SendHeartbeat(ctx context.Context) (HeartbeatResult, error) {
	result, err := rt.sendRequest(ctx, LogicalHeartbeat, nil, correlator.DefaultTimeout)
	if err != nil {
		return HeartbeatResult{}, err
	}
	parsed, err := rt.Binding.Parse(LogicalHeartbeat, result, nil)
	if err != nil {
		return HeartbeatResult{}, err
	}
	res, ok := parsed.(HeartbeatResult)
	if !ok {
		return HeartbeatResult{}, fmt.Errorf("station: unexpected Heartbeat result type %T", parsed)
	}
	return res, nil
}

func (rt *Runtime) stopHeartbeat() {
	rt.mu.Lock()
	stop := rt.heartbeatStop
	done := rt.heartbeatDone
	rt.heartbeatStop = nil
	rt.heartbeatDone = nil
	rt.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

