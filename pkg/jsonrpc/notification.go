package jsonrpc

// Notification is a server-to-client push message. It deliberately has no
// id: the client must never answer it.
//
// Methods used by the transport: "connected", "heartbeat", and
// "event:<eventName>" for bridged hook events.
type Notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// NewNotification builds a push notification for the given method.
func NewNotification(method string, params any) Notification {
	return Notification{
		JSONRPC: Version,
		Method:  method,
		Params:  params,
	}
}
