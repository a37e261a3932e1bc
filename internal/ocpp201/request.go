package ocpp201

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/evstack/stationsim/internal/station"
)

// Binding is the 2.0.1 concrete station.Binding. Unlike 1.6, where the
// central system assigns a transaction id in its StartTransaction response,
// 2.0.1 has the charging station assign it itself and announce it in a
// TransactionEvent(Started) — so Binding tracks per-connector transaction
// and sequence-number state that 1.6 never needed.
type Binding struct {
	mu       sync.Mutex
	nextTxID int
	txID     map[int]string // connectorID -> current transactionId
	seqNo    map[int]int    // connectorID -> next seqNo

	Variables *Manager
}

// New returns a 2.0.1 binding around an already-built Device Model manager;
// it does no seeding of its own.
func New(vars *Manager) *Binding {
	return &Binding{
		txID:      make(map[int]string),
		seqNo:     make(map[int]int),
		Variables: vars,
	}
}

func (b *Binding) nextSeq(connectorID int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.seqNo[connectorID]
	b.seqNo[connectorID] = n + 1
	return n
}

func (b *Binding) beginTransaction(connectorID int) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextTxID++
	id := strconv.Itoa(b.nextTxID)
	b.txID[connectorID] = id
	b.seqNo[connectorID] = 1
	return id
}

func (b *Binding) currentTransaction(connectorID int) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.txID[connectorID]
}

func (b *Binding) endTransaction(connectorID int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.txID, connectorID)
	delete(b.seqNo, connectorID)
}

// Build implements ocpp.RequestBuilder for the 2.0.1 action set.
func (b *Binding) Build(logicalName string, args any) (string, any, error) {
	switch logicalName {
	case station.LogicalBoot:
		a := args.(station.BootArgs)
		return "BootNotification", bootNotificationReq{
			ChargingStation: chargingStationType{
				VendorName:      a.Vendor,
				Model:           a.Model,
				SerialNumber:    a.SerialNumber,
				FirmwareVersion: a.FirmwareVersion,
			},
			Reason: "PowerUp",
		}, nil

	case station.LogicalHeartbeat:
		return "Heartbeat", struct{}{}, nil

	case station.LogicalAuthorize:
		a := args.(string)
		return "Authorize", authorizeReq{IDToken: idTokenType{IDToken: a, Type: "Central"}}, nil

	case station.LogicalStartTransaction:
		a := args.(station.StartTxArgs)
		txID := b.beginTransaction(a.ConnectorID)
		return "TransactionEvent", transactionEventReq{
			EventType:     "Started",
			Timestamp:     a.Timestamp,
			TriggerReason: "Authorized",
			SeqNo:         0,
			Transaction:   transactionType{TransactionID: txID, ChargingState: "Charging"},
			EVSE:          &evseType{ID: a.ConnectorID, ConnectorID: a.ConnectorID},
			IDToken:       &idTokenType{IDToken: a.IDTag, Type: "Central"},
			MeterValue: []meterValue201{
				{Timestamp: a.Timestamp, SampledValue: []sampledValue201{
					{Value: a.MeterStart, Measurand: "Energy.Active.Import.Register", UnitOfMeasure: &unitOfMeasure{Unit: "Wh"}},
				}},
			},
		}, nil

	case station.LogicalStopTransaction:
		a := args.(station.StopTxArgs)
		txID := b.currentTransaction(a.ConnectorID)
		req := transactionEventReq{
			EventType:     "Ended",
			Timestamp:     a.Timestamp,
			TriggerReason: "StopAuthorized",
			SeqNo:         b.nextSeq(a.ConnectorID),
			Transaction:   transactionType{TransactionID: txID, ChargingState: "Idle"},
			IDToken:       &idTokenType{IDToken: a.IDTag, Type: "Central"},
			StoppedReason: a.Reason,
			MeterValue: []meterValue201{
				{Timestamp: a.Timestamp, SampledValue: []sampledValue201{
					{Value: a.MeterStop, Measurand: "Energy.Active.Import.Register", UnitOfMeasure: &unitOfMeasure{Unit: "Wh"}},
				}},
			},
		}
		b.endTransaction(a.ConnectorID)
		return "TransactionEvent", req, nil

	case station.LogicalStatusNotification:
		a := args.(station.StatusNotificationArgs)
		return "StatusNotification", connectorStatusReq{
			EvseID:          a.ConnectorID,
			ConnectorID:     1,
			ConnectorStatus: mapConnectorStatus(a.Status),
			Timestamp:       time.Now().UTC().Format(time.RFC3339),
		}, nil

	case station.LogicalMeterValues:
		a := args.(station.MeterValuesArgs)
		txID := b.currentTransaction(a.ConnectorID)
		values := []sampledValue201{
			{Value: a.EnergyWh, Measurand: "Energy.Active.Import.Register", UnitOfMeasure: &unitOfMeasure{Unit: "Wh"}},
		}
		if a.VoltageV > 0 {
			values = append(values, sampledValue201{Value: a.VoltageV, Measurand: "Voltage", UnitOfMeasure: &unitOfMeasure{Unit: "V"}})
		}
		if a.SoCPercent != nil {
			values = append(values, sampledValue201{Value: *a.SoCPercent, Measurand: "SoC", UnitOfMeasure: &unitOfMeasure{Unit: "Percent"}})
		}
		return "TransactionEvent", transactionEventReq{
			EventType:     "Updated",
			Timestamp:     a.Timestamp,
			TriggerReason: "MeterValuePeriodic",
			SeqNo:         b.nextSeq(a.ConnectorID),
			Transaction:   transactionType{TransactionID: txID, ChargingState: "Charging"},
			MeterValue:    []meterValue201{{Timestamp: a.Timestamp, SampledValue: values}},
		}, nil

	default:
		return "", nil, fmt.Errorf("ocpp201: unknown logical request %q", logicalName)
	}
}

func mapConnectorStatus(s station.ConnectorStatus) string {
	switch s {
	case station.StatusSuspendedEV, station.StatusSuspendedEVSE:
		return "SuspendedEV"
	default:
		return string(s)
	}
}
