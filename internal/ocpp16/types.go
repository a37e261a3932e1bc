// Package ocpp16 is the OCPP 1.6J wire binding: it implements
// station.Binding, translating the version-agnostic logical requests and
// responses the runtime works with into 1.6's concrete action names and
// JSON payload shapes, and builds the inbound dispatch table for
// central-system-initiated commands.
package ocpp16

type bootNotificationReq struct {
	ChargePointVendor       string `json:"chargePointVendor"`
	ChargePointModel        string `json:"chargePointModel"`
	ChargePointSerialNumber string `json:"chargePointSerialNumber,omitempty"`
	FirmwareVersion         string `json:"firmwareVersion,omitempty"`
}

type bootNotificationConf struct {
	Status      string `json:"status"`
	CurrentTime string `json:"currentTime"`
	Interval    int    `json:"interval"`
}

type heartbeatConf struct {
	CurrentTime string `json:"currentTime"`
}

type idTagInfo struct {
	Status      string `json:"status"`
	ParentIDTag string `json:"parentIdTag,omitempty"`
	ExpiryDate  string `json:"expiryDate,omitempty"`
}

type authorizeReq struct {
	IDTag string `json:"idTag"`
}

type authorizeConf struct {
	IDTagInfo idTagInfo `json:"idTagInfo"`
}

type startTransactionReq struct {
	ConnectorID int     `json:"connectorId"`
	IDTag       string  `json:"idTag"`
	MeterStart  int     `json:"meterStart"`
	Timestamp   string  `json:"timestamp"`
}

type startTransactionConf struct {
	TransactionID int       `json:"transactionId"`
	IDTagInfo     idTagInfo `json:"idTagInfo"`
}

type stopTransactionReq struct {
	TransactionID int    `json:"transactionId"`
	IDTag         string `json:"idTag,omitempty"`
	MeterStop     int    `json:"meterStop"`
	Timestamp     string `json:"timestamp"`
	Reason        string `json:"reason,omitempty"`
}

type stopTransactionConf struct {
	IDTagInfo *idTagInfo `json:"idTagInfo,omitempty"`
}

type statusNotificationReq struct {
	ConnectorID int    `json:"connectorId"`
	ErrorCode   string `json:"errorCode"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp,omitempty"`
}

type sampledValue struct {
	Value     string `json:"value"`
	Measurand string `json:"measurand,omitempty"`
	Unit      string `json:"unit,omitempty"`
}

type meterValue struct {
	Timestamp    string         `json:"timestamp"`
	SampledValue []sampledValue `json:"sampledValue"`
}

type meterValuesReq struct {
	ConnectorID   int          `json:"connectorId"`
	TransactionID int          `json:"transactionId,omitempty"`
	MeterValue    []meterValue `json:"meterValue"`
}

// emptyConf is the empty-object CALLRESULT shape (`{}`); no handler in this
// package currently returns it.
type emptyConf struct{}
