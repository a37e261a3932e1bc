package ocpp201

// bootNotificationReq/Conf, statusNotificationReq, transactionEventReq/Conf
// and friends are the 2.0.1 wire shapes (§4.E). 2.0.1 replaces 1.6's
// StartTransaction/StopTransaction/MeterValues trio with a single
// TransactionEvent carrying an eventType of Started/Updated/Ended.

type chargingStationType struct {
	VendorName      string `json:"vendorName"`
	Model           string `json:"model"`
	SerialNumber    string `json:"serialNumber,omitempty"`
	FirmwareVersion string `json:"firmwareVersion,omitempty"`
}

type bootNotificationReq struct {
	ChargingStation chargingStationType `json:"chargingStation"`
	Reason          string              `json:"reason"`
}

type bootNotificationConf struct {
	CurrentTime string `json:"currentTime"`
	Interval    int    `json:"interval"`
	Status      string `json:"status"`
}

type heartbeatConf struct {
	CurrentTime string `json:"currentTime"`
}

type idTokenType struct {
	IDToken string `json:"idToken"`
	Type    string `json:"type"`
}

type idTokenInfoType struct {
	Status string `json:"status"`
}

type authorizeReq struct {
	IDToken idTokenType `json:"idToken"`
}

type authorizeConf struct {
	IDTokenInfo idTokenInfoType `json:"idTokenInfo"`
}

type evseType struct {
	ID          int `json:"id"`
	ConnectorID int `json:"connectorId,omitempty"`
}

type connectorStatusReq struct {
	EvseID      int    `json:"evseId"`
	ConnectorID int    `json:"connectorId"`
	ConnectorStatus string `json:"connectorStatus"`
	Timestamp   string `json:"timestamp"`
}

type sampledValue201 struct {
	Value     float64          `json:"value"`
	Measurand string           `json:"measurand,omitempty"`
	UnitOfMeasure *unitOfMeasure `json:"unitOfMeasure,omitempty"`
}

type unitOfMeasure struct {
	Unit string `json:"unit"`
}

type meterValue201 struct {
	Timestamp    string             `json:"timestamp"`
	SampledValue []sampledValue201  `json:"sampledValue"`
}

type transactionType struct {
	TransactionID string `json:"transactionId"`
	ChargingState string `json:"chargingState,omitempty"`
}

type transactionEventReq struct {
	EventType   string          `json:"eventType"` // Started, Updated, Ended
	Timestamp   string          `json:"timestamp"`
	TriggerReason string        `json:"triggerReason"`
	SeqNo        int            `json:"seqNo"`
	Transaction  transactionType `json:"transactionInfo"`
	EVSE         *evseType       `json:"evse,omitempty"`
	IDToken      *idTokenType    `json:"idToken,omitempty"`
	MeterValue   []meterValue201 `json:"meterValue,omitempty"`
	StoppedReason string         `json:"stoppedReason,omitempty"`
}

type transactionEventConf struct {
	IDTokenInfo *idTokenInfoType `json:"idTokenInfo,omitempty"`
}

type emptyConf struct{}
