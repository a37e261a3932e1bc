package ocpp16

import (
	"fmt"

	"github.com/evstack/stationsim/internal/station"
)

// Binding is the 1.6 concrete station.Binding. It carries no state of its
// own; all runtime state lives on the station.Runtime it is bound to.
type Binding struct{}

// New returns a ready-to-use 1.6 binding.
func New() *Binding { return &Binding{} }

// Build implements ocpp.RequestBuilder for the 1.6 action set.
func (Binding) Build(logicalName string, args any) (string, any, error) {
	switch logicalName {
	case station.LogicalBoot:
		a := args.(station.BootArgs)
		return "BootNotification", bootNotificationReq{
			ChargePointVendor:       a.Vendor,
			ChargePointModel:        a.Model,
			ChargePointSerialNumber: a.SerialNumber,
			FirmwareVersion:         a.FirmwareVersion,
		}, nil

	case station.LogicalHeartbeat:
		return "Heartbeat", struct{}{}, nil

	case station.LogicalAuthorize:
		a := args.(string)
		return "Authorize", authorizeReq{IDTag: a}, nil

	case station.LogicalStartTransaction:
		a := args.(station.StartTxArgs)
		return "StartTransaction", startTransactionReq{
			ConnectorID: a.ConnectorID,
			IDTag:       a.IDTag,
			MeterStart:  int(a.MeterStart),
			Timestamp:   a.Timestamp,
		}, nil

	case station.LogicalStopTransaction:
		a := args.(station.StopTxArgs)
		return "StopTransaction", stopTransactionReq{
			TransactionID: a.TransactionID,
			IDTag:         a.IDTag,
			MeterStop:     int(a.MeterStop),
			Timestamp:     a.Timestamp,
			Reason:        a.Reason,
		}, nil

	case station.LogicalStatusNotification:
		a := args.(station.StatusNotificationArgs)
		return "StatusNotification", statusNotificationReq{
			ConnectorID: a.ConnectorID,
			ErrorCode:   a.ErrorCode,
			Status:      string(a.Status),
		}, nil

	case station.LogicalMeterValues:
		a := args.(station.MeterValuesArgs)
		values := []sampledValue{
			{Value: fmt.Sprintf("%.3f", a.EnergyWh), Measurand: "Energy.Active.Import.Register", Unit: "Wh"},
		}
		if a.VoltageV > 0 {
			values = append(values, sampledValue{Value: fmt.Sprintf("%.1f", a.VoltageV), Measurand: "Voltage", Unit: "V"})
		}
		if a.SoCPercent != nil {
			values = append(values, sampledValue{Value: fmt.Sprintf("%.0f", *a.SoCPercent), Measurand: "SoC", Unit: "Percent"})
		}
		return "MeterValues", meterValuesReq{
			ConnectorID:   a.ConnectorID,
			TransactionID: a.TransactionID,
			MeterValue: []meterValue{
				{Timestamp: a.Timestamp, SampledValue: values},
			},
		}, nil

	default:
		return "", nil, fmt.Errorf("ocpp16: unknown logical request %q", logicalName)
	}
}
