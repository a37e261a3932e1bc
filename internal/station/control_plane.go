package station

import "context"

// atgConnectorController is implemented by ATGController values that can
// target a subset of connectors (atg.Generator does). Runtime falls back
// to whole-station Start/Stop when the concrete ATGController doesn't
// support it.
type atgConnectorController interface {
	StartConnectors(ctx context.Context, ids []int)
	StopConnectors(ids []int)
}

// StartATG starts the Automatic Transaction Generator. An empty ids starts
// every connector; otherwise only the listed ones, per §4.K's optional
// connectorIds on the StartATG control-plane command.
func (rt *Runtime) StartATG(ctx context.Context, ids []int) {
	if rt.ATG == nil {
		return
	}
	if len(ids) == 0 {
		rt.ATG.Start(ctx)
		return
	}
	if p, ok := rt.ATG.(atgConnectorController); ok {
		p.StartConnectors(ctx, ids)
		return
	}
	rt.ATG.Start(ctx)
}

// StopATG stops the Automatic Transaction Generator, optionally scoped to
// ids (§4.K StopATG).
func (rt *Runtime) StopATG(ids []int) {
	if rt.ATG == nil {
		return
	}
	if len(ids) == 0 {
		rt.ATG.Stop()
		return
	}
	if p, ok := rt.ATG.(atgConnectorController); ok {
		p.StopConnectors(ids)
		return
	}
	rt.ATG.Stop()
}

// OpenConnection dials the transport directly, bypassing the OCPP boot/stop
// semantics StartStation/StopStation carry — it is the socket-only half of
// §4.K's OpenConnection/CloseConnection pair.
func (rt *Runtime) OpenConnection(ctx context.Context) error {
	return rt.Transport.Start(ctx)
}

// CloseConnection closes the transport socket without running the OCPP
// stop sequence (no StopTransaction/StatusNotification(Unavailable)).
func (rt *Runtime) CloseConnection() error {
	return rt.Transport.Stop()
}

// SetSupervisionURLs replaces the candidate supervision URLs the transport
// picks from on its next connect/reconnect attempt.
func (rt *Runtime) SetSupervisionURLs(urls []string) {
	rt.Transport.SetSupervisionURLs(urls)
}

// TriggerMeterValues emits one MeterValues sample for connectorID on
// demand, independent of the periodic sampling timer.
func (rt *Runtime) TriggerMeterValues(connectorID int) {
	rt.sampleMeter(connectorID, rt.meterSampleInterval())
}
