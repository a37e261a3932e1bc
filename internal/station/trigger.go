package station

import "context"

// TriggerBootNotification explicitly re-drives BootNotification. Per §9's
// open-question decision, a Pending boot status is otherwise never
// resent automatically.
func (rt *Runtime) TriggerBootNotification(ctx context.Context) {
	rt.runBootSequence(ctx, rt.Transport.Send)
}

// TriggerStatusNotification re-emits StatusNotification for connectorID
// (or every connector when connectorID == 0) on explicit TriggerMessage.
func (rt *Runtime) TriggerStatusNotification(ctx context.Context, connectorID int) {
	if connectorID == 0 {
		for _, id := range rt.ConnectorIDs() {
			rt.emitStatusNotification(ctx, id, rt.Connector(id).SnapshotStatus())
		}
		return
	}
	c := rt.Connector(connectorID)
	if c == nil {
		return
	}
	rt.emitStatusNotification(ctx, connectorID, c.SnapshotStatus())
}

// TriggerHeartbeat sends one Heartbeat immediately, independent of the
// scheduler's own timer.
func (rt *Runtime) TriggerHeartbeat(ctx context.Context) {
	rt.sendHeartbeat()
}
