package ocpp201

import (
	"encoding/json"
	"fmt"

	"github.com/evstack/stationsim/internal/station"
)

// Parse implements ocpp.ResponseParser for the 2.0.1 action set. For
// TransactionEvent(Started), the transaction id comes from args (the
// request this binding itself generated in Build), not from payload —
// 2.0.1's TransactionEventResponse never echoes it back.
func (b *Binding) Parse(logicalName string, payload json.RawMessage, args any) (any, error) {
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
		return station.AuthorizeResult{Status: conf.IDTokenInfo.Status}, nil

	case station.LogicalStartTransaction:
		var conf transactionEventConf
		if err := json.Unmarshal(payload, &conf); err != nil {
			return nil, err
		}
		accepted := conf.IDTokenInfo == nil || conf.IDTokenInfo.Status == "Accepted"
		a, ok := args.(station.StartTxArgs)
		if !ok {
			return nil, fmt.Errorf("ocpp201: StartTransaction parse missing request args")
		}
		txID := b.currentTransaction(a.ConnectorID)
		return station.StartTxResult{Accepted: accepted, TransactionID: stringHash(txID)}, nil

	case station.LogicalStopTransaction, station.LogicalStatusNotification, station.LogicalMeterValues:
		return struct{}{}, nil

	default:
		return nil, fmt.Errorf("ocpp201: unknown logical response %q", logicalName)
	}
}

// stringHash turns the binding's own decimal transaction-id string into the
// int station.Connector.Transaction.TransactionID stores; our ids are
// minted as plain incrementing decimal strings so this is just a parse.
func stringHash(s string) int {
	var n int
	fmt.Sscanf(s, "%d", &n)
	return n
}
