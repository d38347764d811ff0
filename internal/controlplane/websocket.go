// SPDX-License-Identifier: MIT

package controlplane

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Frame is one message delivered over a subscribed topic. Only frames
// with EventType "Update" carry data the core consumes (spec.md §4.2);
// others are delivered so callers can observe them, but the session and
// EOG subscribers both discard anything else.
type Frame struct {
	EventType string          `json:"eventType"`
	URI       string          `json:"uri"`
	Data      json.RawMessage `json:"data"`
}

// IsUpdate reports whether f is an "Update" event.
func (f Frame) IsUpdate() bool { return f.EventType == "Update" }

// Subscription is a live WebSocket connection subscribed to a single
// topic, yielding frames until Close or the connection drops.
type Subscription struct {
	conn   *websocket.Conn
	frames chan Frame
	errs   chan error
}

// Frames returns the channel of received frames. It is closed when the
// connection ends, after which Err reports why.
func (s *Subscription) Frames() <-chan Frame { return s.frames }

// Err returns the channel carrying the single terminal error, if any.
func (s *Subscription) Err() <-chan error { return s.errs }

// Close tears down the underlying connection.
func (s *Subscription) Close() error {
	return s.conn.Close()
}

// Subscribe opens a WebSocket connection to the launcher and subscribes
// to topic, per spec.md §4.2's "subscribe(topic)" contract. The launcher
// protocol wraps frames in a JSON array led by an opcode, the same
// envelope the official remoting protocol uses: a subscribe request is
// `[5, topic]` and an event arrives as `[8, topic, payload]`.
func Subscribe(ctx context.Context, creds Credentials, topic string) (*Subscription, error) {
	pool := x509.NewCertPool()
	if len(creds.CertChain) > 0 {
		pool.AppendCertsFromPEM(creds.CertChain)
	}

	dialer := websocket.Dialer{
		TLSClientConfig:  &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12},
		HandshakeTimeout: 10 * time.Second,
	}

	url := fmt.Sprintf("wss://127.0.0.1:%d/", creds.Port)
	header := http.Header{}
	header.Set("Authorization", "Basic "+basicAuth("riot", creds.AuthToken))

	conn, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("controlplane: dial websocket: %w", err)
	}

	subscribeMsg, err := json.Marshal([2]interface{}{5, topic})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("encode subscribe frame: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, subscribeMsg); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send subscribe frame: %w", err)
	}

	sub := &Subscription{
		conn:   conn,
		frames: make(chan Frame, 16),
		errs:   make(chan error, 1),
	}
	go sub.readLoop()

	return sub, nil
}

func (s *Subscription) readLoop() {
	defer close(s.frames)
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			s.errs <- err
			close(s.errs)
			return
		}

		var envelope [3]json.RawMessage
		if err := json.Unmarshal(raw, &envelope); err != nil {
			continue // malformed frame, ignore rather than kill the subscription
		}

		var payload struct {
			EventType string          `json:"eventType"`
			Data      json.RawMessage `json:"data"`
			URI       string          `json:"uri"`
		}
		if len(envelope) > 2 {
			_ = json.Unmarshal(envelope[2], &payload)
		}

		s.frames <- Frame{EventType: payload.EventType, URI: payload.URI, Data: payload.Data}
	}
}

func basicAuth(user, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + password))
}
