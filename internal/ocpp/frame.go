package ocpp

import (
	"encoding/json"
	"fmt"
)

// MessageType is the first element of every OCPP-J frame.
type MessageType int

const (
	MessageTypeCall       MessageType = 2
	MessageTypeCallResult MessageType = 3
	MessageTypeCallError  MessageType = 4
)

// Call is an outbound or inbound request frame: [2, messageId, action, payload].
type Call struct {
	MessageID string
	Action    string
	Payload   json.RawMessage
}

// CallResult is a successful response frame: [3, messageId, payload].
type CallResult struct {
	MessageID string
	Payload   json.RawMessage
}

// CallErrorFrame is an error response frame:
// [4, messageId, errorCode, errorDescription, errorDetails].
type CallErrorFrame struct {
	MessageID   string
	ErrorCode   ErrorCode
	Description string
	Details     json.RawMessage
}

// EncodeCall marshals a CALL frame.
func EncodeCall(messageID, action string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ocpp: marshal call payload: %w", err)
	}
	return json.Marshal([]any{MessageTypeCall, messageID, action, json.RawMessage(raw)})
}

// EncodeCallResult marshals a CALLRESULT frame.
func EncodeCallResult(messageID string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ocpp: marshal callresult payload: %w", err)
	}
	return json.Marshal([]any{MessageTypeCallResult, messageID, json.RawMessage(raw)})
}

// EncodeCallError marshals a CALLERROR frame.
func EncodeCallError(messageID string, ocppErr *Error) ([]byte, error) {
	details := ocppErr.Details
	if details == nil {
		details = struct{}{}
	}
	return json.Marshal([]any{MessageTypeCallError, messageID, ocppErr.Code, ocppErr.Description, details})
}

// Decode parses a raw OCPP-J frame into exactly one of Call, CallResult or
// CallErrorFrame. Malformed frames return a non-nil error; callers must log
// and continue rather than crash the message loop (§7).
func Decode(raw []byte) (any, error) {
	var generic []json.RawMessage
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("ocpp: frame is not a JSON array: %w", err)
	}
	if len(generic) < 3 {
		return nil, fmt.Errorf("ocpp: frame has %d elements, need at least 3", len(generic))
	}

	var msgType int
	if err := json.Unmarshal(generic[0], &msgType); err != nil {
		return nil, fmt.Errorf("ocpp: frame[0] is not a message type: %w", err)
	}

	var messageID string
	if err := json.Unmarshal(generic[1], &messageID); err != nil {
		return nil, fmt.Errorf("ocpp: frame[1] is not a messageId string: %w", err)
	}
	if len(messageID) > 36 {
		return nil, fmt.Errorf("ocpp: messageId exceeds 36 characters")
	}

	switch MessageType(msgType) {
	case MessageTypeCall:
		if len(generic) != 4 {
			return nil, fmt.Errorf("ocpp: CALL frame must have 4 elements, got %d", len(generic))
		}
		var action string
		if err := json.Unmarshal(generic[2], &action); err != nil {
			return nil, fmt.Errorf("ocpp: frame[2] is not an action string: %w", err)
		}
		return &Call{MessageID: messageID, Action: action, Payload: generic[3]}, nil

	case MessageTypeCallResult:
		if len(generic) != 3 {
			return nil, fmt.Errorf("ocpp: CALLRESULT frame must have 3 elements, got %d", len(generic))
		}
		return &CallResult{MessageID: messageID, Payload: generic[2]}, nil

	case MessageTypeCallError:
		if len(generic) != 5 {
			return nil, fmt.Errorf("ocpp: CALLERROR frame must have 5 elements, got %d", len(generic))
		}
		var code string
		if err := json.Unmarshal(generic[2], &code); err != nil {
			return nil, fmt.Errorf("ocpp: frame[2] is not an errorCode string: %w", err)
		}
		var desc string
		if err := json.Unmarshal(generic[3], &desc); err != nil {
			return nil, fmt.Errorf("ocpp: frame[3] is not an errorDescription string: %w", err)
		}
		return &CallErrorFrame{MessageID: messageID, ErrorCode: ErrorCode(code), Description: desc, Details: generic[4]}, nil

	default:
		return nil, fmt.Errorf("ocpp: unknown message type %d", msgType)
	}
}
