package station

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Info is the runtime identity derived from a Template (§3 StationInfo).
// HashID is stable for identical identity inputs and independent of
// transient fields (connector status, transaction state, etc).
type Info struct {
	Name             string
	ChargePointVendor string
	ChargePointModel string
	InstanceIndex    int
	SerialNumberPrefix string
	ChargePointSerialNumber string
	FirmwareVersion  string
	HashID           string
}

// NewInfo derives an Info from a template, instance index, and vendor/model,
// computing the stable hashId over identity fields only.
func NewInfo(tmpl *Template, instanceIndex int, vendor, model, serialPrefix string) *Info {
	name := stationName(tmpl, instanceIndex)
	info := &Info{
		Name:               name,
		ChargePointVendor:  vendor,
		ChargePointModel:   model,
		InstanceIndex:      instanceIndex,
		SerialNumberPrefix: serialPrefix,
	}
	info.ChargePointSerialNumber = serialPrefix + fmt.Sprintf("%06d", instanceIndex)
	info.HashID = computeHashID(info)
	return info
}

func stationName(tmpl *Template, instanceIndex int) string {
	if tmpl.FixedName {
		return tmpl.BaseName
	}
	suffix := tmpl.NameSuffix
	return fmt.Sprintf("%s-%04d%s", tmpl.BaseName, instanceIndex, suffix)
}

// computeHashID is the SHA-256 over identity fields described in §3: it
// must be stable across reloads for the same template/instance and must
// never factor in mutable runtime state.
func computeHashID(info *Info) string {
	h := sha256.New()
	h.Write([]byte(info.Name))
	h.Write([]byte{0})
	h.Write([]byte(info.ChargePointVendor))
	h.Write([]byte{0})
	h.Write([]byte(info.ChargePointModel))
	h.Write([]byte{0})
	h.Write([]byte(info.ChargePointSerialNumber))
	return hex.EncodeToString(h.Sum(nil))
}
