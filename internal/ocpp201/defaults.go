package ocpp201

func ptr(f float64) *float64 { return &f }

// seedDeviceModel registers the subset of the OCPP 2.0.1 standardized
// Device Model this simulator exposes, grounded on §4.F's table. Every
// entry that is Persistent, not WriteOnly and has a default value gets
// mirrored into the shared configstore.Store by Manager.SelfCheck.
func seedDeviceModel(m *Manager) {
	reg := func(component, variable string, dt DataType, mut Mutability, persist Persistence, def string, hasDefault bool, reboot bool, attrs ...Attribute) {
		supported := map[Attribute]bool{AttrActual: true}
		for _, a := range attrs {
			supported[a] = true
		}
		m.Register(VariableRecord{
			Component:      ComponentKey{Name: component},
			Variable:       VariableKey{Name: variable},
			DataType:       dt,
			Mutability:     mut,
			Persistence:    persist,
			Supported:      supported,
			DefaultValue:   def,
			HasDefault:     hasDefault,
			RebootRequired: reboot,
		})
	}

	reg("OCPPCommCtrlr", "HeartbeatInterval", TypeInteger, ReadWrite, Persistent, "60", true, false, AttrMinSet, AttrMaxSet)
	reg("OCPPCommCtrlr", "WebSocketPingInterval", TypeInteger, ReadWrite, Persistent, "30", true, false)
	reg("OCPPCommCtrlr", "MessageTimeout", TypeInteger, ReadWrite, Persistent, "30", true, false)
	reg("OCPPCommCtrlr", "FileTransferProtocols", TypeMemberList, ReadOnly, Persistent, "HTTP", true, false)

	reg("SampledDataCtrlr", "TxUpdatedInterval", TypeInteger, ReadWrite, Persistent, "60", true, false)
	reg("SampledDataCtrlr", "TxEndedMeasurands", TypeSequenceList, ReadWrite, Persistent, "Energy.Active.Import.Register", true, false)

	reg("SecurityCtrlr", "OrganizationName", TypeString, ReadWrite, Persistent, "", false, false)
	reg("SecurityCtrlr", "BasicAuthPassword", TypeString, WriteOnly, Persistent, "", false, true)

	reg("DeviceDataCtrlr", "ValueSize", TypeInteger, ReadWrite, Persistent, "2500", true, false)
	reg("DeviceDataCtrlr", "ConfigurationValueSize", TypeInteger, ReadWrite, Persistent, "2500", true, false)
	reg("DeviceDataCtrlr", "ReportingValueSize", TypeInteger, ReadWrite, Persistent, "2500", true, false)

	reg("AuthCtrlr", "AuthEnabled", TypeBoolean, ReadWrite, Persistent, "true", true, false)
	reg("AuthCtrlr", "OfflineTxForUnknownIdEnabled", TypeBoolean, ReadWrite, Persistent, "false", true, false)

	reg("LocalAuthListCtrlr", "Enabled", TypeBoolean, ReadWrite, Persistent, "false", true, false)

	reg("TxCtrlr", "EVConnectionTimeOut", TypeInteger, ReadWrite, Persistent, "30", true, false)
	reg("TxCtrlr", "StopTxOnEVSideDisconnect", TypeBoolean, ReadWrite, Persistent, "true", true, false)

	reg("ClockCtrlr", "TimeSource", TypeOptionList, ReadOnly, Persistent, "Heartbeat", true, false, AttrActual)
	m.records[compositeKey{Component: ComponentKey{Name: "ClockCtrlr"}, Variable: VariableKey{Name: "TimeSource"}}].OptionValues = []string{"Heartbeat", "NTP", "GPS", "RealTimeClock"}

	reg("ChargingStation", "Reset", TypeOptionList, WriteOnly, Volatile, "", false, true, AttrActual)
	m.records[compositeKey{Component: ComponentKey{Name: "ChargingStation"}, Variable: VariableKey{Name: "Reset"}}].OptionValues = []string{"Immediate", "OnIdle"}

	min0 := ptr(0)
	reg("SmartChargingCtrlr", "Enabled", TypeBoolean, ReadWrite, Persistent, "true", true, false)

	reg("EVSE", "Power", TypeDecimal, ReadOnly, Volatile, "0", true, false)
	m.records[compositeKey{Component: ComponentKey{Name: "EVSE"}, Variable: VariableKey{Name: "Power"}}].Min = min0
	m.records[compositeKey{Component: ComponentKey{Name: "EVSE"}, Variable: VariableKey{Name: "Power"}}].HasBounds = true
}
