// Package ocpp201 is the OCPP 2.0.1 wire binding: it implements
// station.Binding for the 2.0.1 action set (TransactionEvent-based
// lifecycle instead of 1.6's Start/StopTransaction) and owns the Variable
// Manager (component F) — the Device Model registry, GetVariables/
// SetVariables algorithms, size truncation, and reboot semantics.
package ocpp201

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/evstack/stationsim/internal/configstore"
)

// DataType enumerates §4.F's dataType column.
type DataType string

const (
	TypeString       DataType = "string"
	TypeInteger      DataType = "integer"
	TypeDecimal      DataType = "decimal"
	TypeBoolean      DataType = "boolean"
	TypeDateTime     DataType = "dateTime"
	TypeOptionList   DataType = "OptionList"
	TypeSequenceList DataType = "SequenceList"
	TypeMemberList   DataType = "MemberList"
)

// Mutability and Persistence mirror §4.F's columns.
type Mutability string
type Persistence string

const (
	ReadOnly  Mutability = "ReadOnly"
	WriteOnly Mutability = "WriteOnly"
	ReadWrite Mutability = "ReadWrite"

	Persistent Persistence = "Persistent"
	Volatile   Persistence = "Volatile"
)

// Attribute is one of {Actual, Target, MinSet, MaxSet}.
type Attribute string

const (
	AttrActual Attribute = "Actual"
	AttrTarget Attribute = "Target"
	AttrMinSet Attribute = "MinSet"
	AttrMaxSet Attribute = "MaxSet"
)

// ReasonCode is the VariableError taxonomy from §7.
type ReasonCode string

const (
	ReasonNoError               ReasonCode = "NoError"
	ReasonNotFound               ReasonCode = "NotFound"
	ReasonInvalidValue           ReasonCode = "InvalidValue"
	ReasonUnsupportedParam       ReasonCode = "UnsupportedParam"
	ReasonWriteOnly              ReasonCode = "WriteOnly"
	ReasonReadOnly               ReasonCode = "ReadOnly"
	ReasonValueTooLow            ReasonCode = "ValueTooLow"
	ReasonValueTooHigh           ReasonCode = "ValueTooHigh"
	ReasonTooLargeElement        ReasonCode = "TooLargeElement"
	ReasonNotEnabled             ReasonCode = "NotEnabled"
	ReasonInternalError          ReasonCode = "InternalError"
	ReasonUnknownComponent       ReasonCode = "UnknownComponent"
	ReasonUnknownVariable        ReasonCode = "UnknownVariable"
	ReasonNotSupportedAttribute  ReasonCode = "NotSupportedAttributeType"
)

// ComponentKey identifies a Device Model component instance.
type ComponentKey struct {
	Name     string
	Instance string
}

// VariableKey identifies a variable within a component.
type VariableKey struct {
	Name     string
	Instance string
}

// compositeKey is the full (component, variable) registry key.
type compositeKey struct {
	Component ComponentKey
	Variable  VariableKey
}

// VariableRecord is one Device Model registry entry (§3/§4.F).
type VariableRecord struct {
	Component    ComponentKey
	Variable     VariableKey
	DataType     DataType
	Mutability   Mutability
	Persistence  Persistence
	Supported    map[Attribute]bool
	Min, Max     *float64
	HasBounds    bool
	DefaultValue string
	HasDefault   bool
	RebootRequired bool
	InstanceScoped bool
	OptionValues   []string // for OptionList/SequenceList/MemberList

	// PostProcess transforms a resolved value before it is returned by Get,
	// e.g. reading the live heartbeat interval from the runtime instead of
	// the static config store.
	PostProcess func(value string) string
}

// Manager is the 2.0.1 Device Model registry for one station. It mirrors
// Persistent non-WriteOnly variables into the shared configstore.Store
// (§3: "a single persistence layer serves both versions").
type Manager struct {
	components map[string]bool
	records    map[compositeKey]*VariableRecord
	overrides  map[compositeKey]string // volatile runtime-override map
	minSet     map[compositeKey]float64
	maxSet     map[compositeKey]float64
	invalid    map[compositeKey]bool

	config *configstore.Store
}

// NewManager creates an empty registry backed by cfg for Persistent values.
func NewManager(cfg *configstore.Store) *Manager {
	return &Manager{
		components: make(map[string]bool),
		records:    make(map[compositeKey]*VariableRecord),
		overrides:  make(map[compositeKey]string),
		minSet:     make(map[compositeKey]float64),
		maxSet:     make(map[compositeKey]float64),
		invalid:    make(map[compositeKey]bool),
		config:     cfg,
	}
}

// Register adds rec to the registry, registering its component name as
// supported.
func (m *Manager) Register(rec VariableRecord) {
	m.components[rec.Component.Name] = true
	key := compositeKey{Component: rec.Component, Variable: rec.Variable}
	cp := rec
	m.records[key] = &cp
}

func configKeyFor(v VariableKey) string {
	if v.Instance != "" {
		return fmt.Sprintf("%s.%s", v.Name, v.Instance)
	}
	return v.Name
}

// SelfCheck implements §4.F's performMappingSelfCheck: for every
// Persistent non-WriteOnly non-instance-scoped entry with a default,
// ensure the config store has a value, seeding it if missing. Entries
// without a default and without an existing value are marked invalid.
func (m *Manager) SelfCheck() {
	for key, rec := range m.records {
		if rec.Persistence != Persistent || rec.Mutability == WriteOnly || rec.InstanceScoped {
			continue
		}
		ck := configKeyFor(rec.Variable)
		if rec.HasDefault {
			m.config.Seed(configstore.Key{Key: ck, Value: rec.DefaultValue, ReadOnly: rec.Mutability == ReadOnly, Visible: true})
			continue
		}
		if !m.config.Exists(ck) {
			m.invalid[key] = true
		}
	}
}

// lookup finds the record for (component, variable), distinguishing
// UnknownComponent from UnknownVariable per §4.F step 1-2.
func (m *Manager) lookup(c ComponentKey, v VariableKey) (*VariableRecord, ReasonCode) {
	if !m.components[c.Name] {
		return nil, ReasonUnknownComponent
	}
	rec, ok := m.records[compositeKey{Component: c, Variable: v}]
	if !ok {
		return nil, ReasonUnknownVariable
	}
	return rec, ReasonNoError
}

// GetResult is the outcome of one GetVariables item.
type GetResult struct {
	Reason ReasonCode
	Value  string
}

// GetVariable implements the §4.F GetVariables algorithm for one item.
// runtimeResolvers supplies dynamic values (e.g. live heartbeat interval)
// keyed by variable name; consulted after the override map and the config
// store, before the record's default value.
func (m *Manager) GetVariable(c ComponentKey, v VariableKey, attr Attribute, runtimeResolvers map[string]func() string) GetResult {
	rec, reason := m.lookup(c, v)
	if reason != ReasonNoError {
		return GetResult{Reason: reason}
	}
	if !rec.Supported[attr] {
		return GetResult{Reason: ReasonNotSupportedAttribute}
	}
	if attr == AttrActual && rec.Mutability == WriteOnly {
		return GetResult{Reason: ReasonWriteOnly}
	}

	key := compositeKey{Component: c, Variable: v}

	if attr == AttrMinSet || attr == AttrMaxSet {
		if attr == AttrMinSet {
			if val, ok := m.minSet[key]; ok {
				return GetResult{Reason: ReasonNoError, Value: formatFloat(val)}
			}
		} else {
			if val, ok := m.maxSet[key]; ok {
				return GetResult{Reason: ReasonNoError, Value: formatFloat(val)}
			}
		}
		if rec.HasBounds {
			if attr == AttrMinSet && rec.Min != nil {
				return GetResult{Reason: ReasonNoError, Value: formatFloat(*rec.Min)}
			}
			if attr == AttrMaxSet && rec.Max != nil {
				return GetResult{Reason: ReasonNoError, Value: formatFloat(*rec.Max)}
			}
		}
		return GetResult{Reason: ReasonInvalidValue}
	}

	if m.invalid[key] {
		return GetResult{Reason: ReasonInternalError}
	}

	value, ok := m.resolveValue(rec, key, runtimeResolvers)
	if !ok || value == "" {
		return GetResult{Reason: ReasonInvalidValue}
	}

	if rec.PostProcess != nil {
		value = rec.PostProcess(value)
	}
	value = truncate(value, m.valueSizeLimit())
	value = truncate(value, m.reportingValueSizeLimit())
	return GetResult{Reason: ReasonNoError, Value: value}
}

func (m *Manager) resolveValue(rec *VariableRecord, key compositeKey, resolvers map[string]func() string) (string, bool) {
	if v, ok := m.overrides[key]; ok {
		return v, true
	}
	if rec.Persistence == Persistent && !rec.InstanceScoped {
		if k, ok := m.config.Get(configKeyFor(rec.Variable)); ok {
			return k.Value, true
		}
	}
	if resolvers != nil {
		if fn, ok := resolvers[rec.Variable.Name]; ok {
			return fn(), true
		}
	}
	if rec.HasDefault {
		return rec.DefaultValue, true
	}
	return "", false
}

// SetResult is the outcome of one SetVariables item. AdditionalInfo carries
// the human-readable detail §7 attaches to non-Accepted results, already
// truncated to 50 chars.
type SetResult struct {
	Reason         ReasonCode
	RebootRequired bool
	AdditionalInfo string
}

// SetVariable implements the §4.F SetVariables algorithm for one item.
// heartbeatRestart/pingRestart are invoked for the dynamic side-effects in
// step 8 when the corresponding variable is set.
func (m *Manager) SetVariable(c ComponentKey, v VariableKey, attr Attribute, value string, heartbeatRestart, pingRestart func(string)) SetResult {
	rec, reason := m.lookup(c, v)
	if reason != ReasonNoError {
		return SetResult{Reason: reason}
	}
	if !rec.Supported[attr] {
		return SetResult{Reason: ReasonNotSupportedAttribute}
	}

	key := compositeKey{Component: c, Variable: v}

	if attr == AttrMinSet || attr == AttrMaxSet {
		if rec.DataType != TypeInteger {
			return SetResult{Reason: ReasonInvalidValue}
		}
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return SetResult{Reason: ReasonInvalidValue}
		}
		if attr == AttrMinSet {
			if max, ok := m.maxSet[key]; ok && n > max {
				return SetResult{Reason: ReasonInvalidValue}
			}
			m.minSet[key] = n
		} else {
			if min, ok := m.minSet[key]; ok && n < min {
				return SetResult{Reason: ReasonInvalidValue}
			}
			m.maxSet[key] = n
		}
		return SetResult{Reason: ReasonNoError}
	}

	if attr == AttrActual && rec.Mutability == ReadOnly {
		return SetResult{Reason: ReasonReadOnly}
	}

	limit := m.effectiveSizeLimit()
	if len(value) > limit {
		msg := fmt.Sprintf("Value length exceeds effective size limit (%d)", limit)
		return SetResult{Reason: ReasonTooLargeElement, AdditionalInfo: truncate(msg, 50)}
	}

	if !m.validateValue(rec, key, value) {
		return SetResult{Reason: ReasonInvalidValue}
	}

	previous, _ := m.resolveValue(rec, key, nil)

	if rec.Persistence == Persistent && rec.Mutability != WriteOnly && !rec.InstanceScoped {
		if rec.Component.Name == "SecurityCtrlr" && rec.Variable.Name == "OrganizationName" {
			// Accepted but not persisted, per §4.F step 6's named limitation.
		} else {
			m.config.Seed(configstore.Key{Key: configKeyFor(rec.Variable), Visible: true})
			m.config.Set(configKeyFor(rec.Variable), value)
			delete(m.invalid, key)
		}
	} else {
		m.overrides[key] = value
	}

	if rec.Variable.Name == "HeartbeatInterval" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 && heartbeatRestart != nil {
			heartbeatRestart(value)
		}
	}
	if rec.Variable.Name == "WebSocketPingInterval" {
		if n, err := strconv.Atoi(value); err == nil && n >= 0 && pingRestart != nil {
			pingRestart(value)
		}
	}

	if rec.RebootRequired && previous != value {
		return SetResult{Reason: ReasonNoError, RebootRequired: true}
	}
	return SetResult{Reason: ReasonNoError}
}

var decimalRe = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
var integerRe = regexp.MustCompile(`^-?\d+$`)

func (m *Manager) validateValue(rec *VariableRecord, key compositeKey, value string) bool {
	switch rec.DataType {
	case TypeInteger:
		if !integerRe.MatchString(value) {
			return false
		}
		n, _ := strconv.ParseFloat(value, 64)
		return m.withinBounds(rec, key, n)
	case TypeDecimal:
		if !decimalRe.MatchString(value) {
			return false
		}
		n, _ := strconv.ParseFloat(value, 64)
		return m.withinBounds(rec, key, n)
	case TypeBoolean:
		return value == "true" || value == "false"
	case TypeDateTime:
		_, err := time.Parse(time.RFC3339, value)
		return err == nil
	case TypeOptionList:
		return contains(rec.OptionValues, value)
	case TypeSequenceList, TypeMemberList:
		for _, part := range strings.Split(value, ",") {
			if !contains(rec.OptionValues, strings.TrimSpace(part)) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func (m *Manager) withinBounds(rec *VariableRecord, key compositeKey, n float64) bool {
	if rec.HasBounds {
		if rec.Min != nil && n < *rec.Min {
			return false
		}
		if rec.Max != nil && n > *rec.Max {
			return false
		}
	}
	if min, ok := m.minSet[key]; ok && n < min {
		return false
	}
	if max, ok := m.maxSet[key]; ok && n > max {
		return false
	}
	return true
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// effectiveSizeLimit implements §4.F step 3: min(positive cfg, positive
// val, default 2500).
func (m *Manager) effectiveSizeLimit() int {
	limit := 2500
	if v := m.positiveConfigInt("ConfigurationValueSize"); v > 0 && v < limit {
		limit = v
	}
	if v := m.positiveConfigInt("ValueSize"); v > 0 && v < limit {
		limit = v
	}
	return limit
}

func (m *Manager) valueSizeLimit() int {
	return m.positiveConfigIntOrZero("ValueSize")
}

func (m *Manager) reportingValueSizeLimit() int {
	return m.positiveConfigIntOrZero("ReportingValueSize")
}

func (m *Manager) positiveConfigInt(key string) int {
	v := m.positiveConfigIntOrZero(key)
	return v
}

func (m *Manager) positiveConfigIntOrZero(key string) int {
	k, ok := m.config.Get(key)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(k.Value)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

// truncate returns value truncated to limit bytes; limit <= 0 means no
// truncation (§4.F step 6).
func truncate(value string, limit int) string {
	if limit <= 0 || len(value) <= limit {
		return value
	}
	return value[:limit]
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
