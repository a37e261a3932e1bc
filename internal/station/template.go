// Package station implements component D: the station runtime state
// machine — boot sequence, heartbeat, connector/EVSE status, transaction
// lifecycle, and meter-value sampling.
package station

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// OcppVersion names one of the two wire bindings a template may request.
type OcppVersion string

const (
	Version16  OcppVersion = "1.6"
	Version20  OcppVersion = "2.0"
	Version201 OcppVersion = "2.0.1"
)

// PowerUnit and CurrentType mirror the station template's §6 enumerations.
type PowerUnit string
type CurrentType string
type AmperageUnit string
type IDTagDistribution string

const (
	PowerUnitW  PowerUnit = "W"
	PowerUnitKW PowerUnit = "kW"

	CurrentAC CurrentType = "AC"
	CurrentDC CurrentType = "DC"

	AmperageA  AmperageUnit = "A"
	AmperageDA AmperageUnit = "dA"
	AmperageCA AmperageUnit = "cA"
	AmperageMA AmperageUnit = "mA"

	DistributionRandom            IDTagDistribution = "RANDOM"
	DistributionRoundRobin        IDTagDistribution = "ROUND_ROBIN"
	DistributionConnectorAffinity IDTagDistribution = "CONNECTOR_AFFINITY"
)

// ConnectorSpec describes one template-declared connector.
type ConnectorSpec struct {
	ID         int    `json:"id"`
	BootStatus string `json:"bootStatus,omitempty"`
}

// EVSESpec groups connectors under a 2.0.1 EVSE.
type EVSESpec struct {
	Connectors map[string]ConnectorSpec `json:"Connectors,omitempty"`
}

// ATGPolicy configures the Automatic Transaction Generator for a template.
type ATGPolicy struct {
	Enable                          bool    `json:"enable"`
	MinDelayBetweenTwoTransactions  int     `json:"minDelayBetweenTwoTransactions"`
	MaxDelayBetweenTwoTransactions  int     `json:"maxDelayBetweenTwoTransactions"`
	MinDurationOfTransaction        int     `json:"minDurationOfTransaction"`
	MaxDurationOfTransaction        int     `json:"maxDurationOfTransaction"`
	RequireAuthorize                bool    `json:"requireAuthorize"`
	StopAbsoluteDuration            bool    `json:"stopAbsoluteDuration"`
	StopOnConnectionFailure         bool    `json:"stopOnConnectionFailure"`
	ProbabilityOfNonAuthorizedTag   float64 `json:"probabilityOfNonAuthorizedTag"`
}

// ConfigurationKeySeed is an initial 1.6 configuration entry from a template.
type ConfigurationKeySeed struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	ReadOnly bool   `json:"readonly,omitempty"`
	Visible  bool   `json:"visible,omitempty"`
	Reboot   bool   `json:"reboot,omitempty"`
}

// Template is the immutable on-disk station description (§3 StationTemplate).
// It is parsed once per file and re-parsed wholesale on hot reload; apart
// from the Migrate step inside LoadTemplate, nothing in this struct is
// mutated in place.
type Template struct {
	BaseName        string      `json:"baseName" validate:"required"`
	NameSuffix      string      `json:"nameSuffix,omitempty"`
	FixedName       bool        `json:"fixedName,omitempty"`
	NumberOfConnectors any      `json:"numberOfConnectors,omitempty"` // int or []int
	UseConnectorID0 bool        `json:"useConnectorId0,omitempty"`
	RandomConnectors bool       `json:"randomConnectors,omitempty"`
	OcppVersion     OcppVersion `json:"ocppVersion,omitempty" validate:"omitempty,oneof=1.6 2.0 2.0.1"`

	SupervisionURLs                 any  `json:"supervisionUrls,omitempty"` // string or []string
	SupervisionURLOcppConfiguration bool `json:"supervisionUrlOcppConfiguration,omitempty"`
	OcppStrictCompliance             bool `json:"ocppStrictCompliance,omitempty"`
	EnableStatistics                 bool `json:"enableStatistics,omitempty"`
	RemoteAuthorization              bool `json:"remoteAuthorization,omitempty"`

	IDTagsFile        string            `json:"idTagsFile,omitempty"`
	AuthorizationFile string            `json:"authorizationFile,omitempty"` // deprecated, migrates to IDTagsFile
	IDTagDistribution IDTagDistribution `json:"idTagDistribution,omitempty" validate:"omitempty,oneof=RANDOM ROUND_ROBIN CONNECTOR_AFFINITY"`

	Power             any          `json:"power,omitempty"` // number or []number
	PowerUnit         PowerUnit    `json:"powerUnit,omitempty" validate:"omitempty,oneof=W kW"`
	VoltageOut        float64      `json:"voltageOut,omitempty"`
	CurrentOutType    CurrentType  `json:"currentOutType,omitempty" validate:"omitempty,oneof=AC DC"`
	NumberOfPhases    int          `json:"numberOfPhases,omitempty"`
	AmperageLimitationUnit AmperageUnit `json:"amperageLimitationUnit,omitempty" validate:"omitempty,oneof=A dA cA mA"`
	PowerSharedByConnectors bool   `json:"powerSharedByConnectors,omitempty"`

	ResetTime int `json:"resetTime,omitempty"` // seconds

	Connectors    map[string]ConnectorSpec `json:"Connectors,omitempty"`
	Evses         map[string]EVSESpec      `json:"Evses,omitempty"`
	Configuration []ConfigurationKeySeed   `json:"Configuration,omitempty"`

	AutomaticTransactionGenerator ATGPolicy `json:"AutomaticTransactionGenerator,omitempty"`
}

// Migrate applies the §6 deprecated-key auto-migrations in place and
// returns the template for chaining.
func (t *Template) Migrate() *Template {
	if t.IDTagsFile == "" && t.AuthorizationFile != "" {
		t.IDTagsFile = t.AuthorizationFile
	}
	return t
}

// LoadTemplate reads a station template JSON file, applies the §6
// deprecated-key migrations (including the two that need the raw object
// before struct decoding loses the distinction: supervisionUrl ->
// supervisionUrls and payloadSchemaValidation -> ocppStrictCompliance),
// and validates the result.
func LoadTemplate(path string) (*Template, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("station: read template %s: %w", path, err)
	}

	var legacy map[string]json.RawMessage
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return nil, fmt.Errorf("station: parse template %s: %w", path, err)
	}
	if _, hasNew := legacy["supervisionUrls"]; !hasNew {
		if v, ok := legacy["supervisionUrl"]; ok {
			legacy["supervisionUrls"] = v
		}
	}
	if _, hasNew := legacy["ocppStrictCompliance"]; !hasNew {
		if v, ok := legacy["payloadSchemaValidation"]; ok {
			legacy["ocppStrictCompliance"] = v
		}
	}
	migrated, err := json.Marshal(legacy)
	if err != nil {
		return nil, fmt.Errorf("station: remarshal template %s: %w", path, err)
	}

	var tmpl Template
	if err := json.Unmarshal(migrated, &tmpl); err != nil {
		return nil, fmt.Errorf("station: decode template %s: %w", path, err)
	}
	tmpl.Migrate()

	if err := validate.Struct(&tmpl); err != nil {
		return nil, fmt.Errorf("station: invalid template %s: %w", path, err)
	}
	return &tmpl, nil
}

// SupervisionURLList normalizes SupervisionURLs (string or []string, per
// §6) into a slice.
func (t *Template) SupervisionURLList() []string {
	switch v := t.SupervisionURLs.(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// ResolvedPower returns power and powerUnit normalized to watts for
// connector index i (0-based among non-zero connectors).
func (t *Template) ResolvedPower(i int) float64 {
	var raw float64
	switch v := t.Power.(type) {
	case float64:
		raw = v
	case []any:
		if i < len(v) {
			if f, ok := v[i].(float64); ok {
				raw = f
			}
		} else if len(v) > 0 {
			if f, ok := v[len(v)-1].(float64); ok {
				raw = f
			}
		}
	}
	if t.PowerUnit == PowerUnitKW {
		return raw * 1000
	}
	return raw
}
