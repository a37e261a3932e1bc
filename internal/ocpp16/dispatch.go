package ocpp16

import (
	"context"
	"encoding/json"

	"github.com/evstack/stationsim/internal/ocpp"
	"github.com/evstack/stationsim/internal/station"
)

type resetReq struct {
	Type string `json:"type"`
}
type resetConf struct {
	Status string `json:"status"`
}

type changeConfigurationReq struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
type changeConfigurationConf struct {
	Status string `json:"status"`
}

type getConfigurationReq struct {
	Key []string `json:"key,omitempty"`
}
type configurationKeyEntry struct {
	Key      string `json:"key"`
	Readonly bool   `json:"readonly"`
	Value    string `json:"value,omitempty"`
}
type getConfigurationConf struct {
	ConfigurationKey []configurationKeyEntry `json:"configurationKey"`
	UnknownKey       []string                `json:"unknownKey,omitempty"`
}

type changeAvailabilityReq struct {
	ConnectorID int    `json:"connectorId"`
	Type        string `json:"type"`
}
type changeAvailabilityConf struct {
	Status string `json:"status"`
}

type remoteStartReq struct {
	ConnectorID int    `json:"connectorId"`
	IDTag       string `json:"idTag"`
}
type remoteStartConf struct {
	Status string `json:"status"`
}

type remoteStopReq struct {
	TransactionID int `json:"transactionId"`
}
type remoteStopConf struct {
	Status string `json:"status"`
}

type unlockConnectorReq struct {
	ConnectorID int `json:"connectorId"`
}
type unlockConnectorConf struct {
	Status string `json:"status"`
}

type setChargingProfileReq struct {
	ConnectorID     int                      `json:"connectorId"`
	ChargingProfile station.ChargingProfile  `json:"csChargingProfiles"`
}
type setChargingProfileConf struct {
	Status string `json:"status"`
}

type clearChargingProfileReq struct {
	ID            *int    `json:"id,omitempty"`
	ConnectorID   *int    `json:"connectorId,omitempty"`
	ChargingProfilePurpose string `json:"chargingProfilePurpose,omitempty"`
	StackLevel    *int    `json:"stackLevel,omitempty"`
}
type clearChargingProfileConf struct {
	Status string `json:"status"`
}

type triggerMessageReq struct {
	RequestedMessage string `json:"requestedMessage"`
	ConnectorID      *int   `json:"connectorId,omitempty"`
}
type triggerMessageConf struct {
	Status string `json:"status"`
}

type dataTransferReq struct {
	VendorID  string `json:"vendorId"`
	MessageID string `json:"messageId,omitempty"`
	Data      string `json:"data,omitempty"`
}
type dataTransferConf struct {
	Status string `json:"status"`
}

// NewDispatcher builds the 1.6 inbound dispatch table bound to rt (§9
// static dispatch table, one decision point for NotImplemented).
func (Binding) NewDispatcher(rt *station.Runtime) *ocpp.Dispatcher {
	entries := []ocpp.DispatchEntry{
		{Action: "Reset", Handler: resetHandler(rt)},
		{Action: "ChangeConfiguration", Handler: changeConfigurationHandler(rt)},
		{Action: "GetConfiguration", Handler: getConfigurationHandler(rt)},
		{Action: "ChangeAvailability", Handler: changeAvailabilityHandler(rt)},
		{Action: "RemoteStartTransaction", Handler: remoteStartHandler(rt)},
		{Action: "RemoteStopTransaction", Handler: remoteStopHandler(rt)},
		{Action: "UnlockConnector", Handler: unlockConnectorHandler(rt)},
		{Action: "SetChargingProfile", Handler: setChargingProfileHandler(rt)},
		{Action: "ClearChargingProfile", Handler: clearChargingProfileHandler(rt)},
		{Action: "TriggerMessage", Handler: triggerMessageHandler(rt)},
		{Action: "DataTransfer", Handler: dataTransferHandler(rt)},
	}
	return ocpp.NewDispatcher(ocpp.Version16, entries)
}

func resetHandler(rt *station.Runtime) ocpp.HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (any, *ocpp.Error) {
		var req resetReq
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, ocpp.New(ocpp.ErrFormationViolation, "malformed Reset payload")
		}
		rt.Reset(req.Type)
		return resetConf{Status: "Accepted"}, nil
	}
}

func changeConfigurationHandler(rt *station.Runtime) ocpp.HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (any, *ocpp.Error) {
		var req changeConfigurationReq
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, ocpp.New(ocpp.ErrFormationViolation, "malformed ChangeConfiguration payload")
		}
		return changeConfigurationConf{Status: string(rt.ChangeConfiguration(req.Key, req.Value))}, nil
	}
}

func getConfigurationHandler(rt *station.Runtime) ocpp.HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (any, *ocpp.Error) {
		var req getConfigurationReq
		_ = json.Unmarshal(payload, &req)

		conf := getConfigurationConf{}
		if len(req.Key) == 0 {
			for _, k := range rt.Config.All() {
				if !k.Visible {
					continue
				}
				conf.ConfigurationKey = append(conf.ConfigurationKey, configurationKeyEntry{Key: k.Key, Readonly: k.ReadOnly, Value: k.Value})
			}
			return conf, nil
		}
		for _, key := range req.Key {
			k, ok := rt.Config.Get(key)
			if !ok {
				conf.UnknownKey = append(conf.UnknownKey, key)
				continue
			}
			conf.ConfigurationKey = append(conf.ConfigurationKey, configurationKeyEntry{Key: k.Key, Readonly: k.ReadOnly, Value: k.Value})
		}
		return conf, nil
	}
}

func changeAvailabilityHandler(rt *station.Runtime) ocpp.HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (any, *ocpp.Error) {
		var req changeAvailabilityReq
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, ocpp.New(ocpp.ErrFormationViolation, "malformed ChangeAvailability payload")
		}
		avail := station.Operative
		if req.Type == "Inoperative" {
			avail = station.Inoperative
		}
		if !rt.ChangeAvailability(req.ConnectorID, avail) {
			return changeAvailabilityConf{Status: "Rejected"}, nil
		}
		return changeAvailabilityConf{Status: "Accepted"}, nil
	}
}

func localListGate(rt *station.Runtime, ctx context.Context, connectorID int) func(string) bool {
	localEnabled, _ := rt.Config.Get("LocalAuthListEnabled")
	authRemote, _ := rt.Config.Get("AuthorizeRemoteTxRequests")
	if localEnabled.Value != "true" || authRemote.Value != "true" {
		return nil
	}
	return func(idTag string) bool {
		return rt.Authorize(ctx, idTag, connectorID)
	}
}

func remoteStartHandler(rt *station.Runtime) ocpp.HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (any, *ocpp.Error) {
		var req remoteStartReq
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, ocpp.New(ocpp.ErrFormationViolation, "malformed RemoteStartTransaction payload")
		}
		gate := localListGate(rt, ctx, req.ConnectorID)
		if rt.RemoteStart(ctx, req.ConnectorID, req.IDTag, gate) {
			return remoteStartConf{Status: "Accepted"}, nil
		}
		return remoteStartConf{Status: "Rejected"}, nil
	}
}

func remoteStopHandler(rt *station.Runtime) ocpp.HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (any, *ocpp.Error) {
		var req remoteStopReq
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, ocpp.New(ocpp.ErrFormationViolation, "malformed RemoteStopTransaction payload")
		}
		for _, id := range rt.ConnectorIDs() {
			c := rt.Connector(id)
			if c.IsActive() && c.Transaction.TransactionID == req.TransactionID {
				if err := rt.StopTransaction(ctx, id, "Remote"); err != nil {
					return remoteStopConf{Status: "Rejected"}, nil
				}
				return remoteStopConf{Status: "Accepted"}, nil
			}
		}
		return remoteStopConf{Status: "Rejected"}, nil
	}
}

func unlockConnectorHandler(rt *station.Runtime) ocpp.HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (any, *ocpp.Error) {
		var req unlockConnectorReq
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, ocpp.New(ocpp.ErrFormationViolation, "malformed UnlockConnector payload")
		}
		if rt.UnlockConnector(req.ConnectorID) {
			return unlockConnectorConf{Status: "Unlocked"}, nil
		}
		return unlockConnectorConf{Status: "NotSupported"}, nil
	}
}

func setChargingProfileHandler(rt *station.Runtime) ocpp.HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (any, *ocpp.Error) {
		var req setChargingProfileReq
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, ocpp.New(ocpp.ErrFormationViolation, "malformed SetChargingProfile payload")
		}
		if rt.SetChargingProfile(req.ConnectorID, req.ChargingProfile) {
			return setChargingProfileConf{Status: "Accepted"}, nil
		}
		return setChargingProfileConf{Status: "Rejected"}, nil
	}
}

func clearChargingProfileHandler(rt *station.Runtime) ocpp.HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (any, *ocpp.Error) {
		var req clearChargingProfileReq
		_ = json.Unmarshal(payload, &req)

		connectorID := 0
		if req.ConnectorID != nil {
			connectorID = *req.ConnectorID
		}
		removed := rt.ClearChargingProfile(connectorID, station.ProfilePurpose(req.ChargingProfilePurpose), req.StackLevel)
		if removed > 0 {
			return clearChargingProfileConf{Status: "Accepted"}, nil
		}
		return clearChargingProfileConf{Status: "Unknown"}, nil
	}
}

func triggerMessageHandler(rt *station.Runtime) ocpp.HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (any, *ocpp.Error) {
		var req triggerMessageReq
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, ocpp.New(ocpp.ErrFormationViolation, "malformed TriggerMessage payload")
		}
		switch req.RequestedMessage {
		case "BootNotification":
			go rt.TriggerBootNotification(ctx)
		case "StatusNotification":
			id := 0
			if req.ConnectorID != nil {
				id = *req.ConnectorID
			}
			go rt.TriggerStatusNotification(ctx, id)
		case "Heartbeat":
			go rt.TriggerHeartbeat(ctx)
		default:
			return triggerMessageConf{Status: "NotImplemented"}, nil
		}
		return triggerMessageConf{Status: "Accepted"}, nil
	}
}

func dataTransferHandler(rt *station.Runtime) ocpp.HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (any, *ocpp.Error) {
		var req dataTransferReq
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, ocpp.New(ocpp.ErrFormationViolation, "malformed DataTransfer payload")
		}
		return dataTransferConf{Status: "Accepted"}, nil
	}
}
