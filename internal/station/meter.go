package station

import (
	"context"
	"math/rand"
	"time"

	"github.com/evstack/stationsim/internal/correlator"
)

// DefaultMeterValueSampleInterval is the §4.D default when a template
// doesn't override it.
const DefaultMeterValueSampleInterval = 60 * time.Second

// startMeterSampling begins the per-transaction sampling timer for
// connectorID. Called when a transaction starts; stopped on transaction
// end or connector re-init.
func (rt *Runtime) startMeterSampling(connectorID int, interval time.Duration) {
	rt.stopMeterSampling(connectorID)
	if interval <= 0 {
		interval = DefaultMeterValueSampleInterval
	}

	stop := make(chan struct{})
	rt.mu.Lock()
	rt.meterStop[connectorID] = stop
	rt.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				rt.sampleMeter(connectorID, interval)
			}
		}
	}()
}

func (rt *Runtime) stopMeterSampling(connectorID int) {
	rt.mu.Lock()
	stop, ok := rt.meterStop[connectorID]
	delete(rt.meterStop, connectorID)
	rt.mu.Unlock()
	if ok {
		close(stop)
	}
}

func (rt *Runtime) stopAllMeterTimers() {
	rt.mu.Lock()
	stops := rt.meterStop
	rt.meterStop = make(map[int]chan struct{})
	rt.mu.Unlock()
	for _, stop := range stops {
		close(stop)
	}
}

// sampleMeter computes one MeterValues tick per §4.D's measurand rules and
// emits the frame.
func (rt *Runtime) sampleMeter(connectorID int, interval time.Duration) {
	c := rt.Connector(connectorID)
	if c == nil || !c.IsActive() {
		rt.stopMeterSampling(connectorID)
		return
	}

	maxPower := rt.Template.ResolvedPower(connectorID - 1)
	divider := rt.PowerDivider()
	if divider <= 0 {
		divider = 1
	}
	if limit, ok := rt.effectiveProfileLimit(c, connectorID); ok && limit < maxPower {
		maxPower = limit
	}

	increment := rand.Float64() * maxPower * interval.Seconds() / 3_600_000 / float64(divider)
	clampLimit := maxPower * 3600 * interval.Seconds() / float64(divider)

	c.mu.Lock()
	c.EnergyActiveImportRegister += increment
	c.TransactionEnergyActiveImportRegister += increment
	if c.EnergyActiveImportRegister > clampLimit && clampLimit > 0 {
		rt.log.Warn("meter sample exceeded clamp limit", "connector", connectorID, "limit", clampLimit)
	}
	c.LastEnergyActiveImportRegisterValue = c.EnergyActiveImportRegister
	energy := c.EnergyActiveImportRegister
	txID := c.Transaction.TransactionID
	c.mu.Unlock()

	voltage := 230.0
	if rt.Template.CurrentOutType == CurrentDC {
		voltage = 0
	}

	args := MeterValuesArgs{
		ConnectorID:   connectorID,
		TransactionID: txID,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		EnergyWh:      energy,
		VoltageV:      voltage,
	}
	if rt.Template.CurrentOutType != CurrentDC {
		soc := rand.Float64() * 100
		args.SoCPercent = &soc
	}

	ctx := context.Background()
	if _, err := rt.sendRequest(ctx, LogicalMeterValues, args, correlator.DefaultTimeout); err != nil {
		rt.log.Warn("meter values send failed", "connector", connectorID, "error", err)
	}
}

// effectiveProfileLimit runs component M (via the ProfileEvaluator seam)
// against connectorID's own profiles and connector 0's station-wide
// profiles, converting an Amps-unit result to watts so callers can compare
// it directly against a template's Watt-denominated maxPower.
func (rt *Runtime) effectiveProfileLimit(c *Connector, connectorID int) (float64, bool) {
	if rt.ProfileEvaluator == nil {
		return 0, false
	}
	var zeroProfiles []ChargingProfile
	if zero := rt.Connector(0); zero != nil {
		zeroProfiles = zero.Profiles
	}
	result, ok := rt.ProfileEvaluator(c.Profiles, zeroProfiles, time.Now())
	if !ok {
		return 0, false
	}
	if result.Unit == RateUnitA {
		voltage := rt.Template.VoltageOut
		if voltage <= 0 {
			voltage = 230
		}
		if rt.Template.CurrentOutType == CurrentDC {
			return DCAmpsToWatts(voltage, result.Limit), true
		}
		return ACAmpsToWatts(rt.Template.NumberOfPhases, voltage, result.Limit), true
	}
	return result.Limit, true
}

// ACAmpsToWatts and DCAmpsToWatts mirror profile.ACPowerTotal/DCPower; they
// are duplicated here (rather than imported) because internal/profile
// depends on this package for ChargingProfile, and station must not
// depend back on it (§9).
func ACAmpsToWatts(numberOfPhases int, voltage, amps float64) float64 {
	if numberOfPhases <= 0 {
		numberOfPhases = 1
	}
	return float64(numberOfPhases) * voltage * amps
}

func DCAmpsToWatts(voltage, amps float64) float64 {
	return voltage * amps
}
