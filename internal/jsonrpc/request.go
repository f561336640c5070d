package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// Request represents a JSON-RPC request. Field order matches the wire
// shape: {"jsonrpc":"2.0","id":N,"method":M,"params":P}.
//
// ID 0 is the placeholder value: ids are a submission-time concern and are
// stamped by the relay just before the request goes out, so a request can
// be composed before its position in a batch is known.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// NewRequest creates a new JSON-RPC request with the placeholder id 0.
// Params are serialized immediately so an unencodable value fails fast
// and is attributed to the offending request.
func NewRequest(method string, params interface{}) (*Request, error) {
	req := &Request{
		JSONRPC: Version,
		Method:  method,
	}

	if params != nil {
		paramsBytes, err := json.Marshal(params)
		if err != nil {
			return nil, &EncodeError{Err: fmt.Errorf("failed to marshal params: %w", err)}
		}
		req.Params = paramsBytes
	}

	return req, nil
}

// Validate checks if the request is valid
func (r *Request) Validate() error {
	if r.JSONRPC != Version {
		return fmt.Errorf("invalid jsonrpc version: %s", r.JSONRPC)
	}
	if r.Method == "" {
		return fmt.Errorf("method is required")
	}
	return nil
}

// Bytes returns the request as JSON bytes
func (r *Request) Bytes() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, &EncodeError{Err: err}
	}
	return data, nil
}

// MarshalRequests marshals a batch of requests as a JSON array
func MarshalRequests(requests []*Request) ([]byte, error) {
	data, err := json.Marshal(requests)
	if err != nil {
		return nil, &EncodeError{Err: err}
	}
	return data, nil
}
