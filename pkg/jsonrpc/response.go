package jsonrpc

import (
	"encoding/json"

	"github.com/personakit/persona-go/pkg/errors"
)

type Response struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      json.RawMessage  `json:"id,omitempty"`
	Result  any              `json:"result,omitempty"`
	Error   *errors.RpcError `json:"error,omitempty"`
}

// NewResponse builds a success response echoing the request id.
func NewResponse(id json.RawMessage, result any) Response {
	return Response{
		JSONRPC: Version,
		ID:      id,
		Result:  result,
	}
}

// NewErrorResponse builds an error response echoing the request id.
// A nil error is coerced to InternalError so Code/Message are always set.
func NewErrorResponse(id json.RawMessage, e *errors.RpcError) Response {
	if e == nil {
		e = errors.ErrInternal
	}
	return Response{
		JSONRPC: Version,
		ID:      id,
		Error:   e,
	}
}
