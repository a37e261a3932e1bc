package ocpp201

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/evstack/stationsim/internal/ocpp"
	"github.com/evstack/stationsim/internal/station"
)

type componentWire struct {
	Name     string `json:"name"`
	Instance string `json:"instance,omitempty"`
}
type variableWire struct {
	Name     string `json:"name"`
	Instance string `json:"instance,omitempty"`
}

type getVariableDatum struct {
	Component     componentWire `json:"component"`
	Variable      variableWire  `json:"variable"`
	AttributeType string        `json:"attributeType,omitempty"`
}
type getVariableResult struct {
	AttributeStatus string        `json:"attributeStatus"`
	AttributeValue  string        `json:"attributeValue,omitempty"`
	Component       componentWire `json:"component"`
	Variable        variableWire  `json:"variable"`
}
type getVariablesReq struct {
	GetVariableData []getVariableDatum `json:"getVariableData"`
}
type getVariablesConf struct {
	GetVariableResult []getVariableResult `json:"getVariableResult"`
}

type setVariableDatum struct {
	Component      componentWire `json:"component"`
	Variable       variableWire  `json:"variable"`
	AttributeType  string        `json:"attributeType,omitempty"`
	AttributeValue string        `json:"attributeValue"`
}
type attributeStatusInfo struct {
	ReasonCode     string `json:"reasonCode"`
	AdditionalInfo string `json:"additionalInfo,omitempty"`
}
type setVariableResult struct {
	AttributeStatus     string               `json:"attributeStatus"`
	AttributeStatusInfo *attributeStatusInfo `json:"attributeStatusInfo,omitempty"`
	Component           componentWire        `json:"component"`
	Variable            variableWire         `json:"variable"`
}
type setVariablesReq struct {
	SetVariableData []setVariableDatum `json:"setVariableData"`
}
type setVariablesConf struct {
	SetVariableResult []setVariableResult `json:"setVariableResult"`
}

type resetReq201 struct {
	Type string `json:"type"`
}
type resetConf201 struct {
	Status string `json:"status"`
}

type changeAvailReq201 struct {
	OperationalStatus string    `json:"operationalStatus"`
	Evse              *evseType `json:"evse,omitempty"`
}
type changeAvailConf201 struct {
	Status string `json:"status"`
}

type requestStartReq struct {
	IDToken     idTokenType `json:"idToken"`
	EvseID      *int        `json:"evseId,omitempty"`
	RemoteStartID int       `json:"remoteStartId"`
}
type requestStartConf struct {
	Status string `json:"status"`
}

type requestStopReq struct {
	TransactionID string `json:"transactionId"`
}
type requestStopConf struct {
	Status string `json:"status"`
}

type unlockReq201 struct {
	EvseID int `json:"evseId"`
}
type unlockConf201 struct {
	Status string `json:"status"`
}

type triggerMessageReq201 struct {
	RequestedMessage string    `json:"requestedMessage"`
	Evse             *evseType `json:"evse,omitempty"`
}
type triggerMessageConf201 struct {
	Status string `json:"status"`
}

type genericStatusConf struct {
	Status string `json:"status"`
}

// NewDispatcher builds the 2.0.1 inbound dispatch table bound to rt.
func (b *Binding) NewDispatcher(rt *station.Runtime) *ocpp.Dispatcher {
	entries := []ocpp.DispatchEntry{
		{Action: "Reset", Handler: resetHandler201(rt)},
		{Action: "GetVariables", Handler: getVariablesHandler(b, rt)},
		{Action: "SetVariables", Handler: setVariablesHandler(b, rt)},
		{Action: "ChangeAvailability", Handler: changeAvailabilityHandler201(rt)},
		{Action: "RequestStartTransaction", Handler: requestStartHandler(rt)},
		{Action: "RequestStopTransaction", Handler: requestStopHandler(rt)},
		{Action: "UnlockConnector", Handler: unlockHandler201(rt)},
		{Action: "TriggerMessage", Handler: triggerMessageHandler201(rt)},
		{Action: "ReserveNow", Handler: genericAcceptedHandler()},
		{Action: "CancelReservation", Handler: genericAcceptedHandler()},
		{Action: "SetChargingProfile", Handler: setChargingProfileHandler201(rt)},
		{Action: "ClearChargingProfile", Handler: clearChargingProfileHandler201(rt)},
		{Action: "GetCompositeSchedule", Handler: genericAcceptedHandler()},
		{Action: "UpdateFirmware", Handler: genericAcceptedHandler()},
		{Action: "GetDiagnostics", Handler: genericAcceptedHandler()},
		{Action: "DataTransfer", Handler: dataTransferHandler201()},
		{Action: "GetBaseReport", Handler: genericAcceptedHandler()},
		{Action: "GetLocalListVersion", Handler: getLocalListVersionHandler(rt)},
		{Action: "SendLocalList", Handler: genericAcceptedHandler()},
		{Action: "InstallCertificate", Handler: genericAcceptedHandler()},
		{Action: "DeleteCertificate", Handler: genericAcceptedHandler()},
		{Action: "GetInstalledCertificateIds", Handler: genericAcceptedHandler()},
		{Action: "GetCertificateStatus", Handler: genericAcceptedHandler()},
	}
	return ocpp.NewDispatcher(ocpp.Version201, entries)
}

func resetHandler201(rt *station.Runtime) ocpp.HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (any, *ocpp.Error) {
		var req resetReq201
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, ocpp.New(ocpp.ErrFormationViolation, "malformed Reset payload")
		}
		rt.Reset(req.Type)
		return resetConf201{Status: "Accepted"}, nil
	}
}

// getVariablesHandler implements §4.F's 7-step GetVariables algorithm, one
// item at a time via Manager.GetVariable.
func getVariablesHandler(b *Binding, rt *station.Runtime) ocpp.HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (any, *ocpp.Error) {
		var req getVariablesReq
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, ocpp.New(ocpp.ErrFormationViolation, "malformed GetVariables payload")
		}
		resolvers := runtimeResolvers(rt)
		conf := getVariablesConf{}
		for _, item := range req.GetVariableData {
			attr := AttrActual
			if item.AttributeType != "" {
				attr = Attribute(item.AttributeType)
			}
			res := b.Variables.GetVariable(
				ComponentKey{Name: item.Component.Name, Instance: item.Component.Instance},
				VariableKey{Name: item.Variable.Name, Instance: item.Variable.Instance},
				attr, resolvers,
			)
			conf.GetVariableResult = append(conf.GetVariableResult, getVariableResult{
				AttributeStatus: string(res.Reason),
				AttributeValue:  res.Value,
				Component:       item.Component,
				Variable:        item.Variable,
			})
		}
		return conf, nil
	}
}

// setVariablesHandler implements §4.F's 9-step SetVariables algorithm.
func setVariablesHandler(b *Binding, rt *station.Runtime) ocpp.HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (any, *ocpp.Error) {
		var req setVariablesReq
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, ocpp.New(ocpp.ErrFormationViolation, "malformed SetVariables payload")
		}
		conf := setVariablesConf{}
		for _, item := range req.SetVariableData {
			attr := AttrActual
			if item.AttributeType != "" {
				attr = Attribute(item.AttributeType)
			}
			res := b.Variables.SetVariable(
				ComponentKey{Name: item.Component.Name, Instance: item.Component.Instance},
				VariableKey{Name: item.Variable.Name, Instance: item.Variable.Instance},
				attr, item.AttributeValue,
				func(v string) {
					if n, err := strconv.Atoi(v); err == nil {
						rt.RestartHeartbeat(time.Duration(n) * time.Second)
					}
				},
				func(v string) {
					if n, err := strconv.Atoi(v); err == nil {
						rt.Transport.SetClientPingInterval(time.Duration(n) * time.Second)
					}
				},
			)
			status := string(res.Reason)
			if res.Reason == ReasonNoError && res.RebootRequired {
				status = "RebootRequired"
			} else if res.Reason == ReasonNoError {
				status = "Accepted"
			}
			var info *attributeStatusInfo
			if res.AdditionalInfo != "" {
				info = &attributeStatusInfo{ReasonCode: string(res.Reason), AdditionalInfo: res.AdditionalInfo}
			}
			conf.SetVariableResult = append(conf.SetVariableResult, setVariableResult{
				AttributeStatus:     status,
				AttributeStatusInfo: info,
				Component:           item.Component,
				Variable:            item.Variable,
			})
		}
		return conf, nil
	}
}

// runtimeResolvers returns the resolver map passed to GetVariables. The map
// is empty: no value is read from live runtime state, so every value comes
// from the override map, the config store or the record's default.
func runtimeResolvers(rt *station.Runtime) map[string]func() string {
	return map[string]func() string{}
}

func changeAvailabilityHandler201(rt *station.Runtime) ocpp.HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (any, *ocpp.Error) {
		var req changeAvailReq201
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, ocpp.New(ocpp.ErrFormationViolation, "malformed ChangeAvailability payload")
		}
		connectorID := 0
		if req.Evse != nil {
			connectorID = req.Evse.ID
		}
		avail := station.Operative
		if req.OperationalStatus == "Inoperative" {
			avail = station.Inoperative
		}
		if !rt.ChangeAvailability(connectorID, avail) {
			return changeAvailConf201{Status: "Rejected"}, nil
		}
		return changeAvailConf201{Status: "Accepted"}, nil
	}
}

func requestStartHandler(rt *station.Runtime) ocpp.HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (any, *ocpp.Error) {
		var req requestStartReq
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, ocpp.New(ocpp.ErrFormationViolation, "malformed RequestStartTransaction payload")
		}
		connectorID := 1
		if req.EvseID != nil {
			connectorID = *req.EvseID
		}
		if rt.RemoteStart(ctx, connectorID, req.IDToken.IDToken, nil) {
			return requestStartConf{Status: "Accepted"}, nil
		}
		return requestStartConf{Status: "Rejected"}, nil
	}
}

func requestStopHandler(rt *station.Runtime) ocpp.HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (any, *ocpp.Error) {
		var req requestStopReq
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, ocpp.New(ocpp.ErrFormationViolation, "malformed RequestStopTransaction payload")
		}
		for _, id := range rt.ConnectorIDs() {
			c := rt.Connector(id)
			if c.IsActive() && strconv.Itoa(c.Transaction.TransactionID) == req.TransactionID {
				if err := rt.StopTransaction(ctx, id, "Remote"); err != nil {
					return requestStopConf{Status: "Rejected"}, nil
				}
				return requestStopConf{Status: "Accepted"}, nil
			}
		}
		return requestStopConf{Status: "Rejected"}, nil
	}
}

func unlockHandler201(rt *station.Runtime) ocpp.HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (any, *ocpp.Error) {
		var req unlockReq201
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, ocpp.New(ocpp.ErrFormationViolation, "malformed UnlockConnector payload")
		}
		if rt.UnlockConnector(req.EvseID) {
			return unlockConf201{Status: "Unlocked"}, nil
		}
		return unlockConf201{Status: "NotSupported"}, nil
	}
}

func triggerMessageHandler201(rt *station.Runtime) ocpp.HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (any, *ocpp.Error) {
		var req triggerMessageReq201
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, ocpp.New(ocpp.ErrFormationViolation, "malformed TriggerMessage payload")
		}
		switch req.RequestedMessage {
		case "BootNotification":
			go rt.TriggerBootNotification(ctx)
		case "StatusNotification":
			id := 0
			if req.Evse != nil {
				id = req.Evse.ID
			}
			go rt.TriggerStatusNotification(ctx, id)
		case "Heartbeat":
			go rt.TriggerHeartbeat(ctx)
		default:
			return triggerMessageConf201{Status: "NotImplemented"}, nil
		}
		return triggerMessageConf201{Status: "Accepted"}, nil
	}
}

func setChargingProfileHandler201(rt *station.Runtime) ocpp.HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (any, *ocpp.Error) {
		var req struct {
			EvseID          int                     `json:"evseId"`
			ChargingProfile station.ChargingProfile `json:"chargingProfile"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, ocpp.New(ocpp.ErrFormationViolation, "malformed SetChargingProfile payload")
		}
		if rt.SetChargingProfile(req.EvseID, req.ChargingProfile) {
			return genericStatusConf{Status: "Accepted"}, nil
		}
		return genericStatusConf{Status: "Rejected"}, nil
	}
}

func clearChargingProfileHandler201(rt *station.Runtime) ocpp.HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (any, *ocpp.Error) {
		var req struct {
			ChargingProfileCriteria struct {
				EvseID         *int    `json:"evseId,omitempty"`
				ChargingProfilePurpose string `json:"chargingProfilePurpose,omitempty"`
				StackLevel     *int    `json:"stackLevel,omitempty"`
			} `json:"chargingProfileCriteria"`
		}
		_ = json.Unmarshal(payload, &req)
		connectorID := 0
		if req.ChargingProfileCriteria.EvseID != nil {
			connectorID = *req.ChargingProfileCriteria.EvseID
		}
		removed := rt.ClearChargingProfile(connectorID, station.ProfilePurpose(req.ChargingProfileCriteria.ChargingProfilePurpose), req.ChargingProfileCriteria.StackLevel)
		if removed > 0 {
			return genericStatusConf{Status: "Accepted"}, nil
		}
		return genericStatusConf{Status: "Unknown"}, nil
	}
}

func dataTransferHandler201() ocpp.HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (any, *ocpp.Error) {
		return genericStatusConf{Status: "Accepted"}, nil
	}
}

func getLocalListVersionHandler(rt *station.Runtime) ocpp.HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (any, *ocpp.Error) {
		return struct {
			VersionNumber int `json:"versionNumber"`
		}{VersionNumber: 0}, nil
	}
}

func genericAcceptedHandler() ocpp.HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (any, *ocpp.Error) {
		return genericStatusConf{Status: "Accepted"}, nil
	}
}
