package relay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Transport performs the network round trip for a serialized payload. It
// owns all connection handling; the relay owns the JSON-RPC framing above
// it. One call is one logical request and one logical response.
type Transport interface {
	Post(ctx context.Context, body []byte) ([]byte, error)

	// Close releases the transport's connections
	Close()
}

// TransportError wraps a network-level failure of the round trip. It
// aborts the whole submission: no partial batch response is produced.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPTransport sends payloads as HTTP POST bodies to a single endpoint
type HTTPTransport struct {
	url    string
	client *http.Client
	logger zerolog.Logger
}

// NewHTTPTransport creates an HTTP transport for the given endpoint
func NewHTTPTransport(url string, timeout time.Duration, logger zerolog.Logger) *HTTPTransport {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
		DisableCompression:  true,
	}

	return &HTTPTransport{
		url: url,
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		logger: logger.With().Str("component", "http-transport").Logger(),
	}
}

// Post sends the payload and returns the response body
func (t *HTTPTransport) Post(ctx context.Context, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(respBody))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	t.logger.Debug().Int("requestBytes", len(body)).Int("responseBytes", len(respBody)).Msg("round trip completed")
	return respBody, nil
}

// Close closes idle connections
func (t *HTTPTransport) Close() {
	t.client.CloseIdleConnections()
}
