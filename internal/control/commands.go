package control

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/evstack/stationsim/internal/station"
)

type connectorPayload struct {
	ConnectorID int `json:"connectorId"`
}

type connectorSetPayload struct {
	ConnectorIDs []int `json:"connectorIds,omitempty"`
}

type idTagPayload struct {
	IDTag       string `json:"idTag"`
	ConnectorID int    `json:"connectorId"`
}

type stopTxPayload struct {
	TransactionID int    `json:"transactionId"`
	ConnectorID   int    `json:"connectorId"`
	Reason        string `json:"reason,omitempty"`
}

type authorizePayload struct {
	IDTag string `json:"idTag"`
}

type supervisionURLPayload struct {
	URLs []string `json:"supervisionUrls"`
}

// dispatchCommand executes one §4.K command against rt and returns its
// version-agnostic result, or an error which becomes a Failure response.
func dispatchCommand(ctx context.Context, rt *station.Runtime, cmd Command, payload json.RawMessage) (any, error) {
	switch cmd {
	case CommandStartStation:
		return nil, rt.Start(ctx)
	case CommandStopStation:
		return nil, rt.Stop(ctx, "Remote")
	case CommandOpenConnection:
		return nil, rt.OpenConnection(ctx)
	case CommandCloseConnection:
		return nil, rt.CloseConnection()

	case CommandStartATG:
		var p connectorSetPayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		rt.StartATG(ctx, p.ConnectorIDs)
		return nil, nil
	case CommandStopATG:
		var p connectorSetPayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		rt.StopATG(p.ConnectorIDs)
		return nil, nil

	case CommandSetSupervisionURL:
		var p supervisionURLPayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		rt.SetSupervisionURLs(p.URLs)
		return nil, nil

	case CommandStartTransaction:
		var p idTagPayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		txID, err := rt.StartTransaction(ctx, p.ConnectorID, p.IDTag, true)
		if err != nil {
			return nil, err
		}
		return station.StartTxResult{Accepted: true, TransactionID: txID}, nil

	case CommandStopTransaction:
		var p stopTxPayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		if err := rt.StopTransaction(ctx, p.ConnectorID, p.Reason); err != nil {
			return nil, err
		}
		return nil, nil

	case CommandAuthorize:
		var p authorizePayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		return rt.SendAuthorize(ctx, p.IDTag)

	case CommandBootNotification:
		rt.TriggerBootNotification(ctx)
		return nil, nil

	case CommandStatusNotification:
		var p connectorPayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		rt.TriggerStatusNotification(ctx, p.ConnectorID)
		return nil, nil

	case CommandHeartbeat:
		return rt.SendHeartbeat(ctx)

	case CommandMeterValues:
		var p connectorPayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		rt.TriggerMeterValues(p.ConnectorID)
		return nil, nil

	case CommandDataTransfer, CommandDiagnosticsStatus, CommandFirmwareStatus:
		// Accepted-but-inert: these simulator-side diagnostic/data-transfer
		// actions have no outbound wire builder (station never initiates
		// them in a real deployment's hot path either); the control plane
		// acknowledges receipt without emitting a frame, matching the
		// "empty object -> Success" mapping.
		return map[string]any{}, nil

	default:
		return nil, fmt.Errorf("control: unknown command %q", cmd)
	}
}
