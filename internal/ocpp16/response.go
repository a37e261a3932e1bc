package ocpp16

import (
	"encoding/json"
	"fmt"

	"github.com/evstack/stationsim/internal/station"
)

// Parse implements ocpp.ResponseParser for the 1.6 action set. 1.6's
// responses are self-contained, so args (the original request) goes unused.
func (Binding) Parse(logicalName string, payload json.RawMessage, args any) (any, error) {
	switch logicalName {
	case station.LogicalBoot:
		var conf bootNotificationConf
		if err := json.Unmarshal(payload, &conf); err != nil {
			return nil, err
		}
		return station.BootResult{Status: conf.Status, CurrentTime: conf.CurrentTime, IntervalSecs: conf.Interval}, nil

	case station.LogicalHeartbeat:
		var conf heartbeatConf
		if err := json.Unmarshal(payload, &conf); err != nil {
			return nil, err
		}
		return station.HeartbeatResult{CurrentTime: conf.CurrentTime}, nil

	case station.LogicalAuthorize:
		var conf authorizeConf
		if err := json.Unmarshal(payload, &conf); err != nil {
			return nil, err
		}
		return station.AuthorizeResult{Status: conf.IDTagInfo.Status}, nil

	case station.LogicalStartTransaction:
		var conf startTransactionConf
		if err := json.Unmarshal(payload, &conf); err != nil {
			return nil, err
		}
		return station.StartTxResult{
			Accepted:      conf.IDTagInfo.Status == "Accepted",
			TransactionID: conf.TransactionID,
		}, nil

	case station.LogicalStopTransaction, station.LogicalStatusNotification, station.LogicalMeterValues:
		return struct{}{}, nil

	default:
		return nil, fmt.Errorf("ocpp16: unknown logical response %q", logicalName)
	}
}
