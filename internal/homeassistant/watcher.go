package homeassistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/coder/websocket"
)

// maxWSMessageSize is the maximum WebSocket message size (16MB).
// state_changed events carry full entity states and can be large.
const maxWSMessageSize = 16 * 1024 * 1024

// subscribeCommandID is the message ID of the single subscribe command.
const subscribeCommandID = 1

// EventHandler receives decoded events from the watcher.
type EventHandler func(ctx context.Context, event WSEvent)

// Watcher maintains a single subscription to Home Assistant events.
type Watcher struct {
	baseURL string
	token   string
	conn    *websocket.Conn
}

// NewWatcher creates a watcher for the given Home Assistant instance.
func NewWatcher(baseURL, token string) *Watcher {
	baseURL = strings.TrimSuffix(baseURL, "/")
	baseURL = strings.TrimSuffix(baseURL, "/api")
	return &Watcher{
		baseURL: baseURL,
		token:   token,
	}
}

// buildWSURL converts the HTTP base URL into the WebSocket endpoint URL.
func (w *Watcher) buildWSURL() (string, error) {
	u, err := url.Parse(w.baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
		// Already a WebSocket URL
	default:
		return "", fmt.Errorf("unsupported URL scheme: %s", u.Scheme)
	}

	u.Path = "/api/websocket"
	return u.String(), nil
}

// Connect dials the WebSocket endpoint and performs the auth handshake.
func (w *Watcher) Connect(ctx context.Context) error {
	wsURL, err := w.buildWSURL()
	if err != nil {
		return fmt.Errorf("building WebSocket URL: %w", err)
	}

	conn, resp, err := websocket.Dial(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("dialing WebSocket: %w", err)
	}
	conn.SetReadLimit(maxWSMessageSize)
	w.conn = conn

	if err := w.authenticate(ctx); err != nil {
		_ = conn.Close(websocket.StatusProtocolError, "auth failed")
		w.conn = nil
		return fmt.Errorf("authentication: %w", err)
	}

	return nil
}

// authenticate performs the auth_required/auth/auth_ok handshake.
func (w *Watcher) authenticate(ctx context.Context) error {
	// Server speaks first with auth_required
	_, data, err := w.conn.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading auth_required: %w", err)
	}
	msgType, err := ParseMessageType(data)
	if err != nil {
		return fmt.Errorf("parsing auth_required: %w", err)
	}
	if msgType != wsTypeAuthRequired {
		return fmt.Errorf("expected auth_required, got %s", msgType)
	}

	auth := WSAuthMessage{
		Type:        wsTypeAuth,
		AccessToken: w.token,
	}
	payload, err := json.Marshal(auth)
	if err != nil {
		return fmt.Errorf("encoding auth message: %w", err)
	}
	if err := w.conn.Write(ctx, websocket.MessageText, payload); err != nil {
		return fmt.Errorf("sending auth: %w", err)
	}

	_, data, err = w.conn.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading auth response: %w", err)
	}
	msgType, err = ParseMessageType(data)
	if err != nil {
		return fmt.Errorf("parsing auth response: %w", err)
	}

	switch msgType {
	case wsTypeAuthOK:
		return nil
	case wsTypeAuthInvalid:
		var invalid struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(data, &invalid)
		return fmt.Errorf("auth rejected: %s", invalid.Message)
	default:
		return fmt.Errorf("unexpected auth response: %s", msgType)
	}
}

// Subscribe registers the event subscription. An empty eventType subscribes
// to all events.
func (w *Watcher) Subscribe(ctx context.Context, eventType string) error {
	if w.conn == nil {
		return errors.New("not connected")
	}

	cmd := WSSubscribeEventsCommand{
		ID:        subscribeCommandID,
		Type:      wsTypeSubscribeEvents,
		EventType: eventType,
	}
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encoding subscribe command: %w", err)
	}
	if err := w.conn.Write(ctx, websocket.MessageText, payload); err != nil {
		return fmt.Errorf("sending subscribe command: %w", err)
	}

	_, data, err := w.conn.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading subscribe result: %w", err)
	}

	var result WSResultMessage
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("decoding subscribe result: %w", err)
	}
	if !result.Success {
		if result.Error != nil {
			return fmt.Errorf("subscription rejected: %s (%s)", result.Error.Message, result.Error.Code)
		}
		return errors.New("subscription rejected")
	}

	return nil
}

// Run reads events and delivers them to the handler until the context is
// canceled or the connection fails. A canceled context is a clean stop.
func (w *Watcher) Run(ctx context.Context, handler EventHandler) error {
	if w.conn == nil {
		return errors.New("not connected")
	}

	for {
		_, data, err := w.conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading event: %w", err)
		}

		msgType, err := ParseMessageType(data)
		if err != nil || msgType != wsTypeEvent {
			// Results of late commands and unknown frames are skipped
			continue
		}

		var msg WSEventMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		handler(ctx, msg.Event)
	}
}

// Close closes the WebSocket connection.
func (w *Watcher) Close() error {
	if w.conn == nil {
		return nil
	}
	err := w.conn.Close(websocket.StatusNormalClosure, "")
	w.conn = nil
	return err
}
