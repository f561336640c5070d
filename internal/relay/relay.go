// Package relay submits single and batched JSON-RPC requests through a
// Transport and correlates the responses back to their callers.
package relay

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog"

	"rpcrelay/internal/batch"
	"rpcrelay/internal/cache"
	"rpcrelay/internal/jsonrpc"
)

// Relay owns the id counter shared by all single and batched calls issued
// through it, so no two in-flight requests on one logical connection ever
// collide on id. Ids consumed by cancelled or failed calls are not
// reclaimed; the counter is monotonic and gaps are accepted.
type Relay struct {
	id        atomic.Uint64
	transport Transport
	cache     cache.Cache
	logger    zerolog.Logger
}

// Config for creating a new Relay
type Config struct {
	Transport Transport
	Cache     cache.Cache
	Logger    zerolog.Logger
}

// New creates a new Relay
func New(cfg Config) *Relay {
	c := cfg.Cache
	if c == nil {
		c = cache.NewNoopCache()
	}
	return &Relay{
		transport: cfg.Transport,
		cache:     c,
		logger:    cfg.Logger.With().Str("component", "relay").Logger(),
	}
}

// Call sends a single JSON-RPC request and decodes the result into result.
// It claims exactly one id from the shared counter. A nil result discards
// the payload. Immutable methods may be served from the cache without a
// round trip.
func (r *Relay) Call(ctx context.Context, method string, params, result interface{}) error {
	req, err := jsonrpc.NewRequest(method, params)
	if err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return &jsonrpc.EncodeError{Err: err}
	}

	cacheable := cache.IsCacheable(method, req.Params)
	key := ""
	if cacheable {
		key = cache.Key(method, req.Params)
		if data, ok := r.cache.Get(key); ok {
			r.logger.Debug().Str("method", method).Msg("cache hit")
			if result == nil {
				return nil
			}
			cached := &jsonrpc.Response{Result: data}
			return cached.DecodeResult(result)
		}
	}

	req.ID = r.id.Add(1) - 1

	body, err := req.Bytes()
	if err != nil {
		return err
	}

	respBody, err := r.transport.Post(ctx, body)
	if err != nil {
		return &TransportError{Err: err}
	}

	resp, err := jsonrpc.ParseResponse(respBody)
	if err != nil {
		return err
	}
	if resp.IsNotification() {
		return &jsonrpc.DecodeError{
			Raw: string(respBody),
			Err: errors.New("unexpected notification over request/response transport"),
		}
	}
	if resp.HasError() {
		return resp.Error
	}

	// A null result (e.g. a receipt that is not mined yet) can change on a
	// later call, so it is never cached.
	if cacheable && !resp.ResultIsNull() {
		r.cache.Set(key, resp.Result)
	}

	r.logger.Debug().Str("method", method).Uint64("id", req.ID).Msg("call completed")
	if result == nil {
		return nil
	}
	return resp.DecodeResult(result)
}

// ExecuteBatch submits the batch in a single round trip and returns the
// correlated responses. It reserves a contiguous block of len(batch) ids
// with one fetch-and-add, so concurrent submissions through the same relay
// always get disjoint id ranges. An empty batch is an error, never a
// silent no-op.
func (r *Relay) ExecuteBatch(ctx context.Context, b *batch.Request) (*batch.Response, error) {
	if b.IsEmpty() {
		return nil, batch.ErrEmptyBatch
	}

	n := uint64(b.Len())
	first := r.id.Add(n) - n
	if err := b.SetIDs(first); err != nil {
		return nil, err
	}

	requests, err := b.Requests()
	if err != nil {
		return nil, err
	}
	for _, req := range requests {
		if err := req.Validate(); err != nil {
			return nil, &jsonrpc.EncodeError{Err: err}
		}
	}

	body, err := jsonrpc.MarshalRequests(requests)
	if err != nil {
		return nil, err
	}

	r.logger.Debug().
		Uint64("firstId", first).
		Int("requests", len(requests)).
		Msg("executing batch")

	respBody, err := r.transport.Post(ctx, body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	responses, err := jsonrpc.ParseBatchResponse(respBody)
	if err != nil {
		return nil, err
	}

	// A request/response transport never emits notifications; reject them
	// here so the correlator only ever sees success and error entries.
	for _, resp := range responses {
		if resp.IsNotification() {
			return nil, &jsonrpc.DecodeError{
				Raw: string(respBody),
				Err: errors.New("unexpected notification in batch response"),
			}
		}
	}

	return batch.NewResponse(responses), nil
}

// Close releases the transport and the cache
func (r *Relay) Close() {
	r.transport.Close()
	r.cache.Close()
}
