// Package auth implements component G, the authorization pipeline: a
// unified AuthRequest evaluated by an ordered strategy chain
// [Cache, LocalList, Remote, OfflineFallback], with version adapters
// translating protocol-specific tokens to a UnifiedIdentifier.
package auth

// IdentifierType enumerates §4.G's UnifiedIdentifier.type values.
type IdentifierType string

const (
	TypeIDTag      IdentifierType = "ID_TAG"
	TypeCentral    IdentifierType = "CENTRAL"
	TypeLocal      IdentifierType = "LOCAL"
	TypeEMAID      IdentifierType = "E_MAID"
	TypeISO14443   IdentifierType = "ISO14443"
	TypeISO15693   IdentifierType = "ISO15693"
	TypeKeyCode    IdentifierType = "KEY_CODE"
	TypeMACAddress IdentifierType = "MAC_ADDRESS"
)

// UnifiedIdentifier is the version-agnostic token shape the strategy chain
// operates on; OCPP16AuthAdapter/OCPP20AuthAdapter build it from protocol
// wire tokens and convert decisions back.
type UnifiedIdentifier struct {
	Value          string
	Type           IdentifierType
	OCPPVersion    string
	ParentID       string
	AdditionalInfo map[string]any
}

// OCPP16AuthAdapter truncates/validates a 1.6 idTag (≤20 chars) into a
// UnifiedIdentifier.
func OCPP16AuthAdapter(idTag string) UnifiedIdentifier {
	v := idTag
	if len(v) > 20 {
		v = v[:20]
	}
	return UnifiedIdentifier{Value: v, Type: TypeIDTag, OCPPVersion: "1.6"}
}

// OCPP20AuthAdapter truncates/validates a 2.0.1 idToken (≤36 chars) into a
// UnifiedIdentifier of the given token type (defaults to CENTRAL).
func OCPP20AuthAdapter(idToken string, tokenType IdentifierType) UnifiedIdentifier {
	v := idToken
	if len(v) > 36 {
		v = v[:36]
	}
	if tokenType == "" {
		tokenType = TypeCentral
	}
	return UnifiedIdentifier{Value: v, Type: tokenType, OCPPVersion: "2.0.1"}
}
