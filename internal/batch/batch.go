// Package batch implements the batch-correlation protocol: requests are
// collected in insertion order, stamped with sequential ids at submission,
// and the out-of-order response array is handed back to the caller one
// typed result at a time, in the original submission order.
package batch

import (
	"errors"
	"fmt"
	"sort"

	"rpcrelay/internal/jsonrpc"
)

// ErrEmptyBatch is returned when a batch with zero requests is submitted
// or its request/response list is accessed. An empty batch has no wire
// representation and no first id, so this is never a silent no-op.
var ErrEmptyBatch = errors.New("batch is empty")

// Request is an ordered batch of JSON-RPC requests. Insertion order is
// significant: it is the order results are retrieved in after submission.
type Request struct {
	requests []*jsonrpc.Request
	stamped  bool
}

// NewRequest creates an empty batch
func NewRequest() *Request {
	return &Request{}
}

// NewRequestWithCapacity creates an empty batch with preallocated capacity
func NewRequestWithCapacity(capacity int) *Request {
	return &Request{requests: make([]*jsonrpc.Request, 0, capacity)}
}

// Len returns the number of requests in the batch
func (b *Request) Len() int {
	return len(b.requests)
}

// IsEmpty returns whether the batch is empty or not
func (b *Request) IsEmpty() bool {
	return len(b.requests) == 0
}

// AddRequest serializes params immediately and appends a request with the
// placeholder id 0. The final id is assigned by SetIDs at submission time,
// since the id range depends on a shared counter.
func (b *Request) AddRequest(method string, params interface{}) error {
	req, err := jsonrpc.NewRequest(method, params)
	if err != nil {
		return err
	}
	b.requests = append(b.requests, req)
	return nil
}

// SetIDs stamps each request with first, first+1, first+2, ... in insertion
// order. Called exactly once, at submission time; once assigned, ids must
// not be reassigned.
func (b *Request) SetIDs(first uint64) error {
	if b.IsEmpty() {
		return ErrEmptyBatch
	}
	if b.stamped {
		return fmt.Errorf("batch ids already assigned")
	}
	for i, req := range b.requests {
		req.ID = first + uint64(i)
	}
	b.stamped = true
	return nil
}

// Requests returns the underlying JSON-RPC requests, or ErrEmptyBatch if
// none have been added.
func (b *Request) Requests() ([]*jsonrpc.Request, error) {
	if b.IsEmpty() {
		return nil, ErrEmptyBatch
	}
	return b.requests, nil
}

// entry holds one correlated response: the raw success payload or the
// per-request protocol error.
type entry struct {
	id     uint64
	result []byte
	err    *jsonrpc.Error
}

// Response correlates a batch's responses back to submission order.
// Entries are stored sorted by descending id and popped from the tail, so
// retrieval is in ascending id order regardless of arrival order. Ids were
// assigned sequentially at submission, so ascending id order is submission
// order.
type Response struct {
	entries []entry
}

// NewResponse builds the correlator from parsed responses, each either a
// success or an error envelope. Notifications are filtered out by the
// relay before construction; one reaching this point is a broken internal
// invariant, not a recoverable condition.
func NewResponse(responses []*jsonrpc.Response) *Response {
	entries := make([]entry, 0, len(responses))
	for _, resp := range responses {
		if resp.IsNotification() {
			panic("batch: notification in a request/response batch")
		}
		if resp.HasError() {
			entries = append(entries, entry{id: *resp.ID, err: resp.Error})
		} else {
			entries = append(entries, entry{id: *resp.ID, result: resp.Result})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].id > entries[j].id
	})
	return &Response{entries: entries}
}

// ID returns the smallest id still present, which before any extraction is
// the id of the batch as a whole (useful for routing the batch to a single
// logical channel). It reflects the current state: after extractions begin
// it is the next id to be popped, so query it before draining.
func (b *Response) ID() (uint64, error) {
	if len(b.entries) == 0 {
		return 0, ErrEmptyBatch
	}
	return b.entries[len(b.entries)-1].id, nil
}

// NextResponse pops the entry with the lowest remaining id and decodes its
// result into v. Returns false once the batch is exhausted; further calls
// keep returning false. If the entry carried a protocol error it is
// returned as-is; a result that cannot be decoded into v yields a
// DecodeError. One failing entry never blocks retrieval of the others.
func (b *Response) NextResponse(v interface{}) (bool, error) {
	if len(b.entries) == 0 {
		return false, nil
	}

	e := b.entries[len(b.entries)-1]
	b.entries = b.entries[:len(b.entries)-1]

	if e.err != nil {
		return true, e.err
	}
	resp := &jsonrpc.Response{Result: e.result}
	if err := resp.DecodeResult(v); err != nil {
		return true, err
	}
	return true, nil
}

// Len returns the number of unconsumed responses
func (b *Response) Len() int {
	return len(b.entries)
}

// IsEmpty returns true if all responses have been consumed
func (b *Response) IsEmpty() bool {
	return len(b.entries) == 0
}
