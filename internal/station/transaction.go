package station

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/evstack/stationsim/internal/correlator"
)

// StartTransaction drives an outbound StartTransaction for connectorID and,
// on acceptance, installs the TransactionBlock, resets the transaction
// energy register, recomputes powerDivider, and starts meter sampling
// (§4.D transaction sub-machine). Returns the accepted transaction id.
func (rt *Runtime) StartTransaction(ctx context.Context, connectorID int, idTag string, remoteStarted bool) (int, error) {
	c := rt.Connector(connectorID)
	if c == nil {
		return 0, fmt.Errorf("station: unknown connector %d", connectorID)
	}
	if c.IsActive() {
		return 0, fmt.Errorf("station: connector %d already has an active transaction", connectorID)
	}

	meterStart := c.EnergyActiveImportRegister
	startArgs := StartTxArgs{
		ConnectorID: connectorID,
		IDTag:       idTag,
		MeterStart:  meterStart,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	result, err := rt.sendRequest(ctx, LogicalStartTransaction, startArgs, correlator.DefaultTimeout)
	if err != nil {
		return 0, err
	}

	parsed, err := rt.Binding.Parse(LogicalStartTransaction, result, startArgs)
	if err != nil {
		return 0, err
	}
	res, ok := parsed.(StartTxResult)
	if !ok || !res.Accepted {
		c.SetStatus(StatusAvailable)
		return 0, fmt.Errorf("station: start transaction rejected for connector %d", connectorID)
	}

	c.StartTransaction(res.TransactionID, idTag, time.Now().Unix(), remoteStarted)
	c.SetStatus(StatusCharging)
	rt.mu.Lock()
	rt.recomputePowerDivider()
	rt.mu.Unlock()
	rt.startMeterSampling(connectorID, rt.meterSampleInterval())
	return res.TransactionID, nil
}

// StopTransaction drives an outbound StopTransaction for the connector's
// active transaction, then clears it (§4.D Active -> Idle).
func (rt *Runtime) StopTransaction(ctx context.Context, connectorID int, reason string) error {
	c := rt.Connector(connectorID)
	if c == nil || !c.IsActive() {
		return fmt.Errorf("station: connector %d has no active transaction", connectorID)
	}
	if reason == "" {
		reason = "Local"
	}
	rt.stopTransactionOn(ctx, c, reason)
	rt.stopMeterSampling(connectorID)
	c.SetStatus(StatusAvailable)
	rt.mu.Lock()
	rt.recomputePowerDivider()
	rt.mu.Unlock()
	return nil
}

// Authorize runs the auth pipeline (component G) for identifier, falling
// back to Accepted when no AuthChecker is wired (remoteAuthorization off).
func (rt *Runtime) Authorize(ctx context.Context, identifier string, connectorID int) bool {
	if rt.Auth == nil {
		return true
	}
	accepted, _ := rt.Auth.Authorize(ctx, identifier, connectorID)
	return accepted
}

// SendAuthorize issues an outbound Authorize.req for identifier and
// returns the CSMS's idTagInfo-derived result. Distinct from Authorize,
// which consults the local auth pipeline (component G); this is the wire
// round-trip the broadcast-channel control plane's direct "Authorize"
// command drives (§4.K).
func (rt *Runtime) SendAuthorize(ctx context.Context, identifier string) (AuthorizeResult, error) {
	result, err := rt.sendRequest(ctx, LogicalAuthorize, identifier, correlator.DefaultTimeout)
	if err != nil {
		return AuthorizeResult{}, err
	}
	parsed, err := rt.Binding.Parse(LogicalAuthorize, result, identifier)
	if err != nil {
		return AuthorizeResult{}, err
	}
	res, ok := parsed.(AuthorizeResult)
	if !ok {
		return AuthorizeResult{}, fmt.Errorf("station: unexpected Authorize result type %T", parsed)
	}
	return res, nil
}

func (rt *Runtime) meterSampleInterval() time.Duration {
	if rt.Config != nil {
		if k, ok := rt.Config.Get("MeterValueSampleInterval"); ok && k.Value != "" {
			var secs int
			if _, err := fmt.Sscanf(k.Value, "%d", &secs); err == nil && secs > 0 {
				return time.Duration(secs) * time.Second
			}
		}
	}
	return DefaultMeterValueSampleInterval
}

// NextIDTag resolves an id tag via the injected IDTagSource (component A),
// returning "" if none is wired or the source has nothing to offer.
func (rt *Runtime) NextIDTag(connectorID int) string {
	if rt.IDTagSource == nil {
		return ""
	}
	return rt.IDTagSource(connectorID)
}

// RandomBool is a small convenience used by ATG's probabilityOfNonAuthorizedTag.
func RandomBool(probability float64) bool {
	if probability <= 0 {
		return false
	}
	return rand.Float64() < probability
}
