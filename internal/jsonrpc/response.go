package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Response represents one decoded JSON-RPC response envelope. It is one of
// three shapes, distinguished by the envelope fields:
//
//	success:      id + result
//	error:        id + error
//	notification: method (+ params), no id
//
// Result and Params are kept as raw JSON so a batch can mix heterogeneous
// result types; typed decoding is deferred to DecodeResult.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint64         `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification returns true if the response has no id. Notifications are
// a protocol violation over a request/response transport.
func (r *Response) IsNotification() bool {
	return r.ID == nil
}

// HasError returns true if the response contains an error object
func (r *Response) HasError() bool {
	return r.Error != nil
}

// IsSuccess returns true if the response is a success envelope
func (r *Response) IsSuccess() bool {
	return r.ID != nil && r.Error == nil
}

// ResultIsNull returns true if the response result is JSON null
func (r *Response) ResultIsNull() bool {
	if r == nil || len(r.Result) == 0 {
		return true
	}
	return bytes.Equal(r.Result, []byte("null"))
}

// DecodeResult unmarshals the raw result into the provided target. This is
// where the deferred, caller-chosen typing happens.
func (r *Response) DecodeResult(v interface{}) error {
	if err := json.Unmarshal(r.Result, v); err != nil {
		return &DecodeError{Raw: string(r.Result), Err: err}
	}
	return nil
}

// validate checks the envelope shape. Called with the raw payload so a
// malformed envelope error carries the offending text.
func (r *Response) validate(raw []byte) error {
	if r.JSONRPC != Version {
		return &DecodeError{Raw: string(raw), Err: fmt.Errorf("invalid jsonrpc version: %q", r.JSONRPC)}
	}
	if r.ID == nil && r.Method == "" {
		return &DecodeError{Raw: string(raw), Err: errors.New("envelope has neither id nor method")}
	}
	if r.ID != nil && r.Result == nil && r.Error == nil {
		return &DecodeError{Raw: string(raw), Err: errors.New("envelope has neither result nor error")}
	}
	return nil
}

// ParseResponse parses a single JSON-RPC response from bytes
func ParseResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &DecodeError{Raw: string(data), Err: err}
	}
	if err := resp.validate(data); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ParseBatchResponse parses a JSON array of responses. A non-array payload
// is a decode error: the relay only calls this for batched submissions.
func ParseBatchResponse(data []byte) ([]*Response, error) {
	trimmed := bytes.TrimLeft(data, " \t\n\r")
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &DecodeError{Raw: string(data), Err: errors.New("expected a response array")}
	}

	var responses []*Response
	if err := json.Unmarshal(trimmed, &responses); err != nil {
		return nil, &DecodeError{Raw: string(data), Err: err}
	}
	for _, resp := range responses {
		if resp == nil {
			return nil, &DecodeError{Raw: string(data), Err: errors.New("null entry in response array")}
		}
		if err := resp.validate(data); err != nil {
			return nil, err
		}
	}
	return responses, nil
}
