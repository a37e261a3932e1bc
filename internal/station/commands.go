package station

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// RemoteStart implements the §4.E RemoteStart handler contract shared by
// both versions: accept iff the connector exists, isn't mid-transaction,
// and (when configured) the idToken passes the local list check. On
// acceptance, StartTransaction is scheduled after a short simulated
// plug-in delay rather than issued synchronously.
func (rt *Runtime) RemoteStart(ctx context.Context, connectorID int, idTag string, localListGate func(string) bool) bool {
	c := rt.Connector(connectorID)
	if c == nil || c.IsActive() {
		return false
	}
	if localListGate != nil && !localListGate(idTag) {
		return false
	}

	delay := 500 * time.Millisecond
	go func() {
		time.Sleep(delay)
		if _, err := rt.StartTransaction(context.Background(), connectorID, idTag, true); err != nil {
			rt.log.Warn("remote-started transaction failed", "connector", connectorID, "error", err)
		}
	}()
	return true
}

// Reset implements §4.E Reset: reply Accepted immediately to the caller
// (handled by the binding), then asynchronously stop and restart the
// station after resetTime seconds.
func (rt *Runtime) Reset(resetType string) {
	go func() {
		ctx := context.Background()
		if err := rt.Stop(ctx, resetType); err != nil {
			rt.log.Error("reset: stop failed", "error", err)
		}
		wait := time.Duration(rt.Template.ResetTime) * time.Second
		if wait <= 0 {
			wait = 5 * time.Second
		}
		time.Sleep(wait)

		rt.mu.Lock()
		rt.stopped = false
		rt.mu.Unlock()
		if err := rt.Start(ctx); err != nil {
			rt.log.Error("reset: restart failed", "error", err)
		}
	}()
}

// ConfigurationResult mirrors the 1.6 ChangeConfiguration outcomes.
type ConfigurationResult string

const (
	ConfigAccepted       ConfigurationResult = "Accepted"
	ConfigRejected       ConfigurationResult = "Rejected"
	ConfigNotSupported   ConfigurationResult = "NotSupported"
	ConfigRebootRequired ConfigurationResult = "RebootRequired"
)

// ChangeConfiguration implements §4.E's ChangeConfiguration contract,
// including the HeartBeatInterval/HeartbeatInterval mirror-and-restart
// special case.
func (rt *Runtime) ChangeConfiguration(key, value string) ConfigurationResult {
	if rt.Config == nil || !rt.Config.Exists(key) {
		return ConfigNotSupported
	}
	existing, _ := rt.Config.Get(key)
	if existing.ReadOnly {
		return ConfigRejected
	}
	if !rt.Config.Set(key, value) {
		return ConfigRejected
	}

	if key == "HeartBeatInterval" || key == "HeartbeatInterval" {
		var secs int
		if _, err := fmt.Sscanf(value, "%d", &secs); err == nil && secs > 0 {
			rt.RestartHeartbeat(time.Duration(secs) * time.Second)
		}
	}

	if existing.Reboot {
		return ConfigRebootRequired
	}
	return ConfigAccepted
}

// SetChargingProfile adds profile to connectorID's active list, keyed by
// (id, purpose, stackLevel); the highest stackLevel wins, per §4.E.
func (rt *Runtime) SetChargingProfile(connectorID int, profile ChargingProfile) bool {
	c := rt.Connector(connectorID)
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	replaced := false
	for i, existing := range c.Profiles {
		if existing.ID == profile.ID && existing.Purpose == profile.Purpose && existing.StackLevel == profile.StackLevel {
			c.Profiles[i] = profile
			replaced = true
			break
		}
	}
	if !replaced {
		c.Profiles = append(c.Profiles, profile)
	}
	sort.SliceStable(c.Profiles, func(i, j int) bool { return c.Profiles[i].StackLevel > c.Profiles[j].StackLevel })
	return true
}

// ClearChargingProfile removes profiles from connectorID matching the
// given purpose/stackLevel filters (empty/nil matches any).
func (rt *Runtime) ClearChargingProfile(connectorID int, purpose ProfilePurpose, stackLevel *int) int {
	c := rt.Connector(connectorID)
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.Profiles[:0]
	removed := 0
	for _, p := range c.Profiles {
		matches := (purpose == "" || p.Purpose == purpose) && (stackLevel == nil || p.StackLevel == *stackLevel)
		if matches {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	c.Profiles = kept
	return removed
}

// UnlockConnector is a no-op acknowledgement in the simulator: there is no
// physical lock to release, so it always reports success unless the
// connector is unknown.
func (rt *Runtime) UnlockConnector(connectorID int) bool {
	return rt.Connector(connectorID) != nil
}

// ChangeAvailability flips a connector's Availability flag and, when set
// Inoperative while idle, marks it Unavailable; returns false for unknown
// connectors.
func (rt *Runtime) ChangeAvailability(connectorID int, availability Availability) bool {
	c := rt.Connector(connectorID)
	if c == nil {
		return false
	}
	c.mu.Lock()
	c.Availability = availability
	active := c.Transaction.Started
	c.mu.Unlock()

	if availability == Inoperative && !active {
		c.SetStatus(StatusUnavailable)
	} else if availability == Operative && c.SnapshotStatus() == StatusUnavailable {
		c.SetStatus(StatusAvailable)
	}
	return true
}
