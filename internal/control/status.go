package control

import "github.com/evstack/stationsim/internal/station"

// statusFor implements §4.K's status-mapping rule: accepted idTagInfo /
// RegistrationStatus.Accepted / DataTransferStatus.Accepted / presence of
// currentTime (Heartbeat) / empty object (StatusNotification, MeterValues)
// -> Success; else Failure. Commands with no CSMS round-trip (StartStation,
// OpenConnection, SetSupervisionUrl, ...) already returned nil error by the
// time statusFor runs, so they map to Success unconditionally.
func statusFor(cmd Command, result any) Status {
	switch cmd {
	case CommandStartTransaction:
		if r, ok := result.(station.StartTxResult); ok {
			if r.Accepted {
				return StatusSuccess
			}
			return StatusFailure
		}
	case CommandAuthorize:
		if r, ok := result.(station.AuthorizeResult); ok {
			if r.Status == "Accepted" {
				return StatusSuccess
			}
			return StatusFailure
		}
	case CommandBootNotification:
		if r, ok := result.(station.BootResult); ok {
			if r.Status == "Accepted" {
				return StatusSuccess
			}
			return StatusFailure
		}
	case CommandHeartbeat:
		if r, ok := result.(station.HeartbeatResult); ok && r.CurrentTime != "" {
			return StatusSuccess
		}
		return StatusFailure
	case CommandDataTransfer:
		if r, ok := result.(map[string]any); ok {
			if status, ok := r["status"].(string); ok {
				if status == "Accepted" {
					return StatusSuccess
				}
				return StatusFailure
			}
		}
	}
	// StatusNotification, StopTransaction, MeterValues, and every
	// management command (StartStation/StopStation/OpenConnection/
	// CloseConnection/StartATG/StopATG/SetSupervisionUrl) reach here only
	// once their underlying call already returned a nil error, matching
	// §4.K's "empty object -> Success" rule generalized to "no error".
	return StatusSuccess
}
