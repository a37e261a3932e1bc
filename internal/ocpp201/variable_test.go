package ocpp201

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evstack/stationsim/internal/configstore"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	cfg := configstore.New()
	m := NewManager(cfg)
	seedDeviceModel(m)
	m.SelfCheck()
	return m
}

func TestGetVariableReturnsDefaultAfterSelfCheck(t *testing.T) {
	m := newTestManager(t)

	res := m.GetVariable(
		ComponentKey{Name: "OCPPCommCtrlr"},
		VariableKey{Name: "HeartbeatInterval"},
		AttrActual, nil,
	)
	require.Equal(t, ReasonNoError, res.Reason)
	assert.Equal(t, "60", res.Value)
}

func TestGetVariableUnknownComponentAndVariable(t *testing.T) {
	m := newTestManager(t)

	res := m.GetVariable(ComponentKey{Name: "NoSuchCtrlr"}, VariableKey{Name: "X"}, AttrActual, nil)
	assert.Equal(t, ReasonUnknownComponent, res.Reason)

	res = m.GetVariable(ComponentKey{Name: "OCPPCommCtrlr"}, VariableKey{Name: "NoSuchVariable"}, AttrActual, nil)
	assert.Equal(t, ReasonUnknownVariable, res.Reason)
}

func TestGetVariableWriteOnlyRejectsActualRead(t *testing.T) {
	m := newTestManager(t)

	res := m.GetVariable(ComponentKey{Name: "SecurityCtrlr"}, VariableKey{Name: "BasicAuthPassword"}, AttrActual, nil)
	assert.Equal(t, ReasonWriteOnly, res.Reason)
}

// TestSetVariableRejectsTooLargeElement exercises scenario 4: with
// DeviceDataCtrlr.ValueSize=10, a length-11 value is rejected with
// TooLargeElement and an additionalInfo describing the limit.
func TestSetVariableRejectsTooLargeElement(t *testing.T) {
	m := newTestManager(t)

	res := m.SetVariable(
		ComponentKey{Name: "DeviceDataCtrlr"}, VariableKey{Name: "ValueSize"},
		AttrActual, "10", nil, nil,
	)
	require.Equal(t, ReasonNoError, res.Reason)

	res = m.SetVariable(
		ComponentKey{Name: "SecurityCtrlr"}, VariableKey{Name: "OrganizationName"},
		AttrActual, "01234567890", nil, nil,
	)
	require.Equal(t, ReasonTooLargeElement, res.Reason)
	assert.Equal(t, "Value length exceeds effective size limit (10)", res.AdditionalInfo)
	assert.LessOrEqual(t, len(res.AdditionalInfo), 50)
}

func TestSetVariableAcceptsValueAtTheSizeLimit(t *testing.T) {
	m := newTestManager(t)

	res := m.SetVariable(
		ComponentKey{Name: "DeviceDataCtrlr"}, VariableKey{Name: "ValueSize"},
		AttrActual, "10", nil, nil,
	)
	require.Equal(t, ReasonNoError, res.Reason)

	res = m.SetVariable(
		ComponentKey{Name: "SecurityCtrlr"}, VariableKey{Name: "OrganizationName"},
		AttrActual, "0123456789", nil, nil,
	)
	assert.Equal(t, ReasonNoError, res.Reason)
}

// TestEffectiveSizeLimitReadsBareConfigKeys guards the key-mismatch bug:
// ValueSize/ConfigurationValueSize/ReportingValueSize must be read and
// written under the same bare configstore key (configKeyFor), not a
// component-qualified one.
func TestEffectiveSizeLimitReadsBareConfigKeys(t *testing.T) {
	m := newTestManager(t)

	res := m.SetVariable(
		ComponentKey{Name: "DeviceDataCtrlr"}, VariableKey{Name: "ValueSize"},
		AttrActual, "5", nil, nil,
	)
	require.Equal(t, ReasonNoError, res.Reason)

	k, ok := m.config.Get("ValueSize")
	require.True(t, ok)
	assert.Equal(t, "5", k.Value)

	assert.Equal(t, 5, m.valueSizeLimit())
	assert.Equal(t, 5, m.effectiveSizeLimit())
}

// TestGetVariableTruncatesToValueSizeLimit covers §4.F step 6: GetVariables
// truncates a stored value that exceeds a ValueSize tightened after the
// value was written under a looser (or default) limit.
func TestGetVariableTruncatesToValueSizeLimit(t *testing.T) {
	m := newTestManager(t)

	res := m.SetVariable(
		ComponentKey{Name: "OCPPCommCtrlr"}, VariableKey{Name: "HeartbeatInterval"},
		AttrActual, "12345", nil, nil,
	)
	require.Equal(t, ReasonNoError, res.Reason)

	res = m.SetVariable(
		ComponentKey{Name: "DeviceDataCtrlr"}, VariableKey{Name: "ValueSize"},
		AttrActual, "4", nil, nil,
	)
	require.Equal(t, ReasonNoError, res.Reason)

	get := m.GetVariable(ComponentKey{Name: "OCPPCommCtrlr"}, VariableKey{Name: "HeartbeatInterval"}, AttrActual, nil)
	require.Equal(t, ReasonNoError, get.Reason)
	assert.Equal(t, "1234", get.Value)
}

func TestSetVariableReadOnlyRejected(t *testing.T) {
	m := newTestManager(t)

	res := m.SetVariable(
		ComponentKey{Name: "OCPPCommCtrlr"}, VariableKey{Name: "FileTransferProtocols"},
		AttrActual, "HTTP", nil, nil,
	)
	assert.Equal(t, ReasonReadOnly, res.Reason)
}

func TestSetVariableRebootRequired(t *testing.T) {
	m := newTestManager(t)

	res := m.SetVariable(
		ComponentKey{Name: "ChargingStation"}, VariableKey{Name: "Reset"},
		AttrActual, "Immediate", nil, nil,
	)
	assert.Equal(t, ReasonNoError, res.Reason)
	assert.True(t, res.RebootRequired)
}

func TestSetVariableRejectsWriteToReadOnlyVariable(t *testing.T) {
	m := newTestManager(t)

	res := m.SetVariable(
		ComponentKey{Name: "EVSE"}, VariableKey{Name: "Power"},
		AttrActual, "-5", nil, nil,
	)
	assert.Equal(t, ReasonReadOnly, res.Reason)
}

func TestSetVariableRejectsOutOfBounds(t *testing.T) {
	m := newTestManager(t)

	res := m.SetVariable(
		ComponentKey{Name: "OCPPCommCtrlr"}, VariableKey{Name: "HeartbeatInterval"},
		AttrMinSet, "10", nil, nil,
	)
	require.Equal(t, ReasonNoError, res.Reason)

	res = m.SetVariable(
		ComponentKey{Name: "OCPPCommCtrlr"}, VariableKey{Name: "HeartbeatInterval"},
		AttrActual, "5", nil, nil,
	)
	assert.Equal(t, ReasonInvalidValue, res.Reason)
}

func TestMinSetMaxSetRoundTripAndEnforceOrdering(t *testing.T) {
	m := newTestManager(t)

	res := m.SetVariable(
		ComponentKey{Name: "OCPPCommCtrlr"}, VariableKey{Name: "HeartbeatInterval"},
		AttrMinSet, "10", nil, nil,
	)
	require.Equal(t, ReasonNoError, res.Reason)

	res = m.SetVariable(
		ComponentKey{Name: "OCPPCommCtrlr"}, VariableKey{Name: "HeartbeatInterval"},
		AttrMaxSet, "5", nil, nil,
	)
	assert.Equal(t, ReasonInvalidValue, res.Reason, "MaxSet below an existing MinSet must be rejected")

	get := m.GetVariable(ComponentKey{Name: "OCPPCommCtrlr"}, VariableKey{Name: "HeartbeatInterval"}, AttrMinSet, nil)
	require.Equal(t, ReasonNoError, get.Reason)
	assert.Equal(t, "10", get.Value)
}

func TestSetVariableHeartbeatIntervalTriggersRestart(t *testing.T) {
	m := newTestManager(t)

	var restarted string
	res := m.SetVariable(
		ComponentKey{Name: "OCPPCommCtrlr"}, VariableKey{Name: "HeartbeatInterval"},
		AttrActual, "90", func(v string) { restarted = v }, nil,
	)
	require.Equal(t, ReasonNoError, res.Reason)
	assert.Equal(t, "90", restarted)
}

func TestSetVariablePersistsAcrossNewManagerInstance(t *testing.T) {
	cfg := configstore.New()
	m := NewManager(cfg)
	seedDeviceModel(m)
	m.SelfCheck()

	res := m.SetVariable(
		ComponentKey{Name: "TxCtrlr"}, VariableKey{Name: "EVConnectionTimeOut"},
		AttrActual, "45", nil, nil,
	)
	require.Equal(t, ReasonNoError, res.Reason)

	// A second Manager sharing the same backing store picks up the persisted
	// value via SelfCheck's first-write-wins seeding.
	m2 := NewManager(cfg)
	seedDeviceModel(m2)
	m2.SelfCheck()

	get := m2.GetVariable(ComponentKey{Name: "TxCtrlr"}, VariableKey{Name: "EVConnectionTimeOut"}, AttrActual, nil)
	require.Equal(t, ReasonNoError, get.Reason)
	assert.Equal(t, "45", get.Value)
}
