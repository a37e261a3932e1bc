package station

import (
	"github.com/evstack/stationsim/internal/ocpp"
)

// Logical request names shared by both wire bindings so the runtime, ATG,
// and control plane never speak protocol-specific action strings.
const (
	LogicalBoot               = "Boot"
	LogicalHeartbeat          = "Heartbeat"
	LogicalAuthorize          = "Authorize"
	LogicalStartTransaction   = "StartTransaction"
	LogicalStopTransaction    = "StopTransaction"
	LogicalStatusNotification = "StatusNotification"
	LogicalMeterValues        = "MeterValues"
	LogicalDataTransfer       = "DataTransfer"
)

// Binding is the version-agnostic seam a concrete OCPP 1.6 or 2.0.1
// package implements (§9 "OCPP-version polymorphism... tagged variants
// over a shared trait"). A Runtime holds exactly one concrete Binding.
type Binding interface {
	ocpp.RequestBuilder
	ocpp.ResponseParser

	// NewDispatcher builds the inbound CALL dispatch table bound to rt,
	// so incoming central-system commands can reach the runtime's
	// mutating methods without the binding reaching back through a
	// stored pointer constructed before rt existed.
	NewDispatcher(rt *Runtime) *ocpp.Dispatcher
}

// StatusNotificationArgs is the version-agnostic payload for an outgoing
// StatusNotification, passed to Binding.Build(LogicalStatusNotification, _).
type StatusNotificationArgs struct {
	ConnectorID int
	Status      ConnectorStatus
	ErrorCode   string
}

// BootArgs is passed to Binding.Build(LogicalBoot, _).
type BootArgs struct {
	Vendor          string
	Model           string
	SerialNumber    string
	FirmwareVersion string
}

// BootResult is the version-agnostic result of Binding.Parse(LogicalBoot, _).
type BootResult struct {
	Status        string // Accepted, Pending, Rejected
	CurrentTime   string
	IntervalSecs  int
}

// StartTxArgs is passed to Binding.Build(LogicalStartTransaction, _).
type StartTxArgs struct {
	ConnectorID int
	IDTag       string
	MeterStart  float64
	Timestamp   string
}

// StartTxResult is the version-agnostic result of a StartTransaction call.
type StartTxResult struct {
	Accepted      bool
	TransactionID int
}

// StopTxArgs is passed to Binding.Build(LogicalStopTransaction, _).
type StopTxArgs struct {
	ConnectorID   int
	TransactionID int
	IDTag         string
	MeterStop     float64
	Timestamp     string
	Reason        string
}

// MeterValuesArgs is passed to Binding.Build(LogicalMeterValues, _).
type MeterValuesArgs struct {
	ConnectorID   int
	TransactionID int
	Timestamp     string
	EnergyWh      float64
	VoltageV      float64
	SoCPercent    *float64
}

// HeartbeatResult is the version-agnostic result of Binding.Parse(LogicalHeartbeat, _).
type HeartbeatResult struct {
	CurrentTime string
}

// AuthorizeResult is the version-agnostic result of an Authorize call.
type AuthorizeResult struct {
	Status string // Accepted, Blocked, Expired, Invalid, ConcurrentTx
}
