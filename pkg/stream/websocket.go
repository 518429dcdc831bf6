// Copyright 2024 Probelab
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/probelab/probectl/pkg/measurement"
)

const (
	msgSubscribe = "atlas_subscribe"
	msgResult    = "atlas_result"
	msgProbe     = "atlas_probe"
	msgError     = "atlas_error"

	writeTimeout = 10 * time.Second
)

type wsEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type wsSubscribe struct {
	StreamType  string `json:"stream_type"`
	Measurement int    `json:"msm"`
}

type wsErrorDetail struct {
	Detail string `json:"detail"`
}

// WebSocketFeed implements Feed over the platform's push stream. A single
// reader goroutine owns the connection reads and hands events over a
// channel, so Next can be interrupted by ctx without abandoning a blocked
// network read mid-frame.
type WebSocketFeed struct {
	conn *websocket.Conn

	events  chan Event
	readErr chan error

	closeOnce sync.Once
	closed    chan struct{}
}

// DialWebSocket connects to the stream endpoint and subscribes to the
// result feed for one measurement.
func DialWebSocket(ctx context.Context, url string, measurementID int) (*WebSocketFeed, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("stream handshake failed with status %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("unable to connect to the stream: %w", err)
	}

	payload, err := json.Marshal(wsSubscribe{StreamType: "result", Measurement: measurementID})
	if err != nil {
		conn.Close()
		return nil, err
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(wsEnvelope{Type: msgSubscribe, Payload: payload}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to subscribe: %w", err)
	}

	f := &WebSocketFeed{
		conn:    conn,
		events:  make(chan Event),
		readErr: make(chan error, 1),
		closed:  make(chan struct{}),
	}
	go f.readLoop()

	return f, nil
}

// readLoop is the only reader of the connection. No read deadline is set:
// arbitrarily long silence is normal on a result feed, and the consumer
// enforces its own idle policy per Next call.
func (f *WebSocketFeed) readLoop() {
	for {
		_, data, err := f.conn.ReadMessage()
		if err != nil {
			f.readErr <- err
			return
		}

		var env wsEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			// One unparseable frame is not fatal to the feed.
			continue
		}

		ev, ok := decodeEnvelope(env)
		if !ok {
			continue
		}

		select {
		case f.events <- ev:
		case <-f.closed:
			return
		}
	}
}

func decodeEnvelope(env wsEnvelope) (Event, bool) {
	switch env.Type {
	case msgResult:
		return Event{Type: EventResult, Raw: env.Payload}, true
	case msgProbe:
		var info measurement.ProbeInfo
		if err := json.Unmarshal(env.Payload, &info); err != nil {
			return Event{}, false
		}
		return Event{Type: EventProbe, Probe: &info}, true
	case msgError:
		var detail wsErrorDetail
		if err := json.Unmarshal(env.Payload, &detail); err != nil || detail.Detail == "" {
			return Event{Type: EventError, Err: errors.New("stream reported an error")}, true
		}
		return Event{Type: EventError, Err: errors.New(detail.Detail)}, true
	}
	// Unknown envelope types (keep-alives, acks) are skipped.
	return Event{}, false
}

func (f *WebSocketFeed) Next(ctx context.Context) (Event, error) {
	select {
	case <-f.closed:
		return Event{}, ErrFeedClosed
	default:
	}

	select {
	case ev := <-f.events:
		return ev, nil
	case err := <-f.readErr:
		select {
		case <-f.closed:
			return Event{}, ErrFeedClosed
		default:
		}
		return Event{}, fmt.Errorf("feed read failed: %w", err)
	case <-f.closed:
		return Event{}, ErrFeedClosed
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// Close tears down the connection. Safe to call more than once and from a
// different goroutine than the one calling Next.
func (f *WebSocketFeed) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
		deadline := time.Now().Add(writeTimeout)
		f.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			deadline,
		)
		f.conn.Close()
	})
	return nil
}
