package station

import (
	"context"
	"time"

	"github.com/evstack/stationsim/internal/correlator"
)

// onOpen is the transport.Manager's OnOpenFunc: on first connect it runs
// the boot sequence (§4.D); on reconnect it re-runs basicStartMessageSequence
// directly, bypassing the pre-connect backlog buffer so the flush order in
// §8 scenario 3 holds.
func (rt *Runtime) onOpen(ctx context.Context, send func([]byte) error, isReconnect bool) {
	if !isReconnect {
		rt.runBootSequence(ctx, send)
		return
	}
	rt.log.Info("reconnected, re-running basic start message sequence")
	rt.runBasicStartMessageSequence(ctx, send)
}

func (rt *Runtime) onClose(code int, reason string) {
	rt.log.Warn("connection closed", "code", code, "reason", reason)
}

// runBootSequence implements §4.D steps 1-4.
func (rt *Runtime) runBootSequence(ctx context.Context, send func([]byte) error) {
	result, err := rt.sendImmediate(ctx, send, LogicalBoot, BootArgs{
		Vendor:          rt.Info.ChargePointVendor,
		Model:           rt.Info.ChargePointModel,
		SerialNumber:    rt.Info.ChargePointSerialNumber,
		FirmwareVersion: rt.Info.FirmwareVersion,
	}, correlator.DefaultTimeout)
	if err != nil {
		rt.log.Error("boot notification failed", "error", err)
		return
	}

	bootArgs := BootArgs{
		Vendor:          rt.Info.ChargePointVendor,
		Model:           rt.Info.ChargePointModel,
		SerialNumber:    rt.Info.ChargePointSerialNumber,
		FirmwareVersion: rt.Info.FirmwareVersion,
	}
	boot, err := rt.Binding.Parse(LogicalBoot, result, bootArgs)
	if err != nil {
		rt.log.Error("failed to parse boot notification response", "error", err)
		return
	}
	bootRes, ok := boot.(BootResult)
	if !ok {
		rt.log.Error("unexpected boot notification response shape")
		return
	}

	switch bootRes.Status {
	case "Accepted":
		rt.mu.Lock()
		rt.registered = true
		rt.mu.Unlock()
		rt.setHeartbeatInterval(time.Duration(bootRes.IntervalSecs) * time.Second)
		rt.startHeartbeat()
		rt.runBasicStartMessageSequence(ctx, send)
	case "Pending":
		rt.log.Info("boot notification pending; waiting for explicit trigger")
	default:
		rt.log.Warn("boot notification rejected", "status", bootRes.Status)
	}
}

// runBasicStartMessageSequence implements §4.D: heartbeat scheduler (already
// started by the caller on first boot), one StatusNotification per
// connector, then the ATG start when the template enables it. It starts no
// performance collection.
func (rt *Runtime) runBasicStartMessageSequence(ctx context.Context, send func([]byte) error) {
	for _, id := range rt.ConnectorIDs() {
		c := rt.Connector(id)
		status := c.BootStatus
		if c.IsActive() {
			status = StatusCharging
		}
		c.SetStatus(status)
		_, err := rt.sendImmediate(ctx, send, LogicalStatusNotification, StatusNotificationArgs{
			ConnectorID: id,
			Status:      status,
			ErrorCode:   "NoError",
		}, correlator.DefaultTimeout)
		if err != nil {
			rt.log.Warn("status notification failed", "connector", id, "error", err)
		}
	}

	if rt.Template.AutomaticTransactionGenerator.Enable && rt.ATG != nil {
		rt.ATG.Start(ctx)
	}
}
