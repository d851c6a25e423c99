package transport

import "encoding/json"

// Envelope wraps every JSON body the local server returns.
type Envelope struct {
	Status    string      `json:"status"`
	Code      string      `json:"code,omitempty"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// NewSuccess returns a success envelope.
func NewSuccess(data interface{}, requestID string) Envelope {
	return Envelope{
		Status:    "success",
		Data:      data,
		RequestID: requestID,
	}
}

// NewError returns an error envelope. Data may carry a partial result.
func NewError(code, message string, data interface{}, requestID string) Envelope {
	return Envelope{
		Status:    "error",
		Code:      code,
		Message:   message,
		Data:      data,
		RequestID: requestID,
	}
}

// String returns the JSON representation (best-effort) for logging purposes.
func (e Envelope) String() string {
	out, err := json.Marshal(e)
	if err != nil {
		return "{}"
	}
	return string(out)
}
