package jsonrpc

import "encoding/json"

// Version is the protocol version tag every request must carry.
const Version = "2.0"

// Request is an inbound envelope. ID and Method stay raw so the dispatch
// layer can distinguish a malformed field (InvalidRequest) from a malformed
// payload (ParseError): a client sending {"method": 123} deserves a typed
// error, not a dropped message.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"` // accepts string | number | null
	Method  json.RawMessage `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// NewRequest builds an in-process request. A nil id makes a notification;
// params may be any JSON-marshalable value.
func NewRequest(id any, method string, params any) Request {
	req := Request{JSONRPC: Version}

	req.Method, _ = json.Marshal(method)

	if id != nil {
		req.ID, _ = json.Marshal(id)
	}

	if params != nil {
		req.Params, _ = json.Marshal(params)
	}

	return req
}

// MethodName returns the method as a string, reporting false when the field
// is absent or not a JSON string.
func (r *Request) MethodName() (string, bool) {
	if len(r.Method) == 0 {
		return "", false
	}

	var method string
	if err := json.Unmarshal(r.Method, &method); err != nil {
		return "", false
	}

	return method, true
}

// IsNotification reports whether the request carries no correlation id and
// therefore must never be answered.
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0 || string(r.ID) == "null"
}
