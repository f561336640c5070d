package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// wsResult is what the read loop delivers to a waiting submission
type wsResult struct {
	data []byte
	err  error
}

// WSTransport sends payloads over one WebSocket connection and routes each
// incoming message back to the submission that is waiting for it. The
// routing key is the smallest request id in the payload - the id of the
// batch as a whole - so concurrent submissions on the same socket never
// steal each other's responses. There is no reconnect logic: retry policy
// belongs to the caller.
type WSTransport struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	pending   map[uint64]chan wsResult
	pendingMu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
	logger    zerolog.Logger
}

// NewWSTransport dials the WebSocket endpoint and starts the read loop
func NewWSTransport(ctx context.Context, wsURL string, logger zerolog.Logger) (*WSTransport, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect WebSocket: %w", err)
	}

	t := &WSTransport{
		conn:    conn,
		pending: make(map[uint64]chan wsResult),
		done:    make(chan struct{}),
		logger:  logger.With().Str("component", "ws-transport").Logger(),
	}

	go t.readLoop()

	t.logger.Info().Str("url", wsURL).Msg("WebSocket connected")
	return t, nil
}

// Post writes the payload as one message and waits for the message routed
// back under the payload's smallest id.
func (t *WSTransport) Post(ctx context.Context, body []byte) ([]byte, error) {
	key, err := routingID(body)
	if err != nil {
		return nil, fmt.Errorf("payload not routable: %w", err)
	}

	respChan := make(chan wsResult, 1)
	t.pendingMu.Lock()
	if _, exists := t.pending[key]; exists {
		t.pendingMu.Unlock()
		return nil, fmt.Errorf("submission with id %d already in flight", key)
	}
	t.pending[key] = respChan
	t.pendingMu.Unlock()

	defer func() {
		t.pendingMu.Lock()
		delete(t.pending, key)
		t.pendingMu.Unlock()
	}()

	t.writeMu.Lock()
	writeErr := t.conn.WriteMessage(websocket.TextMessage, body)
	t.writeMu.Unlock()
	if writeErr != nil {
		return nil, fmt.Errorf("failed to send payload: %w", writeErr)
	}

	select {
	case res := <-respChan:
		return res.data, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.done:
		return nil, errors.New("connection closed")
	}
}

// Close closes the connection and fails all waiting submissions
func (t *WSTransport) Close() {
	t.closeOnce.Do(func() {
		close(t.done)
		t.conn.Close()
		t.logger.Info().Msg("WebSocket closed")
	})
}

// readLoop routes incoming messages to waiting submissions by their
// smallest id. Unroutable messages are dropped.
func (t *WSTransport) readLoop() {
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			select {
			case <-t.done:
			default:
				t.logger.Warn().Err(err).Msg("WebSocket connection lost")
			}
			t.failPending(err)
			t.Close()
			return
		}

		key, err := routingID(data)
		if err != nil {
			t.logger.Warn().Err(err).Int("len", len(data)).Msg("dropping unroutable message")
			continue
		}

		t.pendingMu.Lock()
		ch, exists := t.pending[key]
		if exists {
			delete(t.pending, key)
		}
		t.pendingMu.Unlock()

		if !exists {
			t.logger.Warn().Uint64("id", key).Msg("dropping message with no waiting submission")
			continue
		}
		ch <- wsResult{data: data}
	}
}

// failPending delivers the connection error to every waiting submission
func (t *WSTransport) failPending(err error) {
	t.pendingMu.Lock()
	for key, ch := range t.pending {
		select {
		case ch <- wsResult{err: fmt.Errorf("connection lost: %w", err)}:
		default:
		}
		delete(t.pending, key)
	}
	t.pendingMu.Unlock()
}

// idEnvelope is the minimal shape needed to extract a routing id
type idEnvelope struct {
	ID *uint64 `json:"id"`
}

// routingID returns the smallest id present in a single or batched
// JSON-RPC payload. Entries without an id (notifications) are ignored; a
// payload with no id at all cannot be routed.
func routingID(payload []byte) (uint64, error) {
	trimmed := bytes.TrimLeft(payload, " \t\n\r")
	if len(trimmed) == 0 {
		return 0, errors.New("empty payload")
	}

	var envelopes []idEnvelope
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &envelopes); err != nil {
			return 0, fmt.Errorf("failed to parse payload: %w", err)
		}
	} else {
		var envelope idEnvelope
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return 0, fmt.Errorf("failed to parse payload: %w", err)
		}
		envelopes = []idEnvelope{envelope}
	}

	var min uint64
	found := false
	for _, e := range envelopes {
		if e.ID == nil {
			continue
		}
		if !found || *e.ID < min {
			min = *e.ID
			found = true
		}
	}
	if !found {
		return 0, errors.New("payload has no ids")
	}
	return min, nil
}
