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
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/probelab/probectl/pkg/measurement"
	"github.com/probelab/probectl/pkg/render"
)

// DefaultIdleTimeout bounds how long the controller tolerates silence
// before giving up on further results.
const DefaultIdleTimeout = 300 * time.Second

// ErrAlreadyClosed is returned when Stream is called on a controller whose
// subscription already ran. Controllers are single-use; retries take a
// fresh one.
var ErrAlreadyClosed = errors.New("stream controller is closed")

// State is the controller's position in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateStreaming
	StateDraining
	StateClosed
)

func (s State) String() (name string) {
	switch s {
	case StateIdle:
		name = "idle"
	case StateConnecting:
		name = "connecting"
	case StateStreaming:
		name = "streaming"
	case StateDraining:
		name = "draining"
	case StateClosed:
		name = "closed"
	default:
		panic(fmt.Sprintf("no string name for stream state %d", int(s)))
	}

	return
}

// OutcomeKind says why a stream stopped. A live feed has no natural end of
// input, so Stream never reports a bare success.
type OutcomeKind int

const (
	// CaptureLimitReached: the configured number of results was rendered.
	CaptureLimitReached OutcomeKind = iota + 1
	// Cancelled: the caller's context was cancelled, typically by the
	// operator interrupting the CLI. A clean stop, not an error.
	Cancelled
	// IdleTimeoutExceeded: no event arrived within the idle window. A
	// designed stopping condition, reported calmly.
	IdleTimeoutExceeded
	// FeedFailed: the transport failed mid-stream. The stream terminates;
	// reconnect and backfill are deliberately not attempted.
	FeedFailed
	// ConnectionFailed: the subscription could not be established at all.
	ConnectionFailed
)

func (k OutcomeKind) String() (name string) {
	switch k {
	case CaptureLimitReached:
		name = "capture limit reached"
	case Cancelled:
		name = "cancelled"
	case IdleTimeoutExceeded:
		name = "idle timeout exceeded"
	case FeedFailed:
		name = "feed error"
	case ConnectionFailed:
		name = "connection error"
	default:
		panic(fmt.Sprintf("no string name for outcome kind %d", int(k)))
	}

	return
}

// Outcome reports how a stream ended and how many results it rendered.
type Outcome struct {
	Kind     OutcomeKind
	Rendered int
	Err      error
}

// Config carries everything a Controller needs at construction time. It is
// copied in; nothing here is mutated afterwards.
type Config struct {
	MeasurementID int
	Renderer      render.Renderer

	// CaptureLimit bounds how many results are rendered; 0 means
	// unbounded.
	CaptureLimit int

	// IdleTimeout is measured from the last received event, not from
	// stream start. Zero selects DefaultIdleTimeout.
	IdleTimeout time.Duration

	Dial   Dialer
	Out    io.Writer
	Logger *zap.SugaredLogger
}

// Controller owns one subscription's lifecycle: it opens the feed, applies
// the capture-limit and idle-timeout policy, dispatches each result to the
// renderer, and tears the feed down exactly once. The feed handle and the
// probe-metadata cache are owned exclusively by the controller.
type Controller struct {
	measurementID int
	renderer      render.Renderer
	captureLimit  int
	idleTimeout   time.Duration
	dial          Dialer
	out           io.Writer
	log           *zap.SugaredLogger

	mu    sync.Mutex
	state State

	feed     Feed
	probes   map[int]measurement.ProbeInfo
	rendered int
}

func NewController(cfg Config) *Controller {
	c := &Controller{
		measurementID: cfg.MeasurementID,
		renderer:      cfg.Renderer,
		captureLimit:  cfg.CaptureLimit,
		idleTimeout:   cfg.IdleTimeout,
		dial:          cfg.Dial,
		out:           cfg.Out,
		log:           cfg.Logger,
		state:         StateIdle,
		probes:        make(map[int]measurement.ProbeInfo),
	}
	if c.idleTimeout <= 0 {
		c.idleTimeout = DefaultIdleTimeout
	}
	if c.out == nil {
		c.out = os.Stdout
	}
	if c.log == nil {
		c.log = zap.NewNop().Sugar()
	}
	return c
}

// State reports the controller's current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Controller) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateIdle:
		c.state = StateConnecting
		return nil
	case StateClosed:
		return ErrAlreadyClosed
	default:
		return fmt.Errorf("stream already started (state %s)", c.state)
	}
}

// Stream runs the subscription to completion. Cancelling ctx stops the
// stream within one iteration; the feed is closed and buffered output
// flushed on every path out. The returned error is non-nil only for the
// failure outcomes; cancellation, idle timeout, and the capture limit are
// clean stops.
func (c *Controller) Stream(ctx context.Context) (Outcome, error) {
	if err := c.begin(); err != nil {
		return Outcome{}, err
	}

	feed, err := c.dial(ctx, c.measurementID)
	if err != nil {
		c.setState(StateClosed)
		if ctx.Err() != nil {
			return Outcome{Kind: Cancelled, Err: ctx.Err()}, nil
		}
		outcome := Outcome{Kind: ConnectionFailed, Err: err}
		return outcome, err
	}

	c.mu.Lock()
	c.feed = feed
	c.state = StateStreaming
	c.mu.Unlock()

	if n, ok := c.renderer.(render.ConnectNotifier); ok {
		if header := n.OnConnect(); header != "" {
			io.WriteString(c.out, header)
		}
	}

	outcome := c.consume(ctx)
	c.drain()
	outcome.Rendered = c.rendered

	if outcome.Kind == FeedFailed {
		return outcome, outcome.Err
	}
	return outcome, nil
}

// consume is the single consumer loop. Events are handled strictly in
// arrival order; each Next call carries a fresh idle deadline so the
// timeout is measured from the last event.
func (c *Controller) consume(ctx context.Context) Outcome {
	for {
		if ctx.Err() != nil {
			return Outcome{Kind: Cancelled, Err: ctx.Err()}
		}

		waitCtx, cancel := context.WithTimeout(ctx, c.idleTimeout)
		ev, err := c.feed.Next(waitCtx)
		cancel()

		if err != nil {
			switch {
			case ctx.Err() != nil:
				return Outcome{Kind: Cancelled, Err: ctx.Err()}
			case errors.Is(err, context.DeadlineExceeded):
				return Outcome{Kind: IdleTimeoutExceeded}
			default:
				return Outcome{Kind: FeedFailed, Err: err}
			}
		}

		switch ev.Type {
		case EventProbe:
			if ev.Probe != nil {
				c.probes[ev.Probe.ID] = *ev.Probe
			}
		case EventError:
			return Outcome{Kind: FeedFailed, Err: ev.Err}
		case EventResult:
			if done := c.handleResult(ev.Raw); done {
				return Outcome{Kind: CaptureLimitReached}
			}
		}
	}
}

// handleResult renders one raw record and reports whether the capture
// limit was hit. Per-record faults are isolated: a malformed or misrouted
// record is skipped, never fatal.
func (c *Controller) handleResult(raw []byte) bool {
	res, err := measurement.DecodeResult(raw)
	if err != nil {
		c.log.Debugw("skipping malformed result record", "error", err)
		return false
	}
	if res.MeasurementID != c.measurementID {
		c.log.Debugw("dropping result for another measurement",
			"got", res.MeasurementID, "want", c.measurementID)
		return false
	}

	var probe *measurement.ProbeInfo
	if info, ok := c.probes[res.ProbeID]; ok {
		probe = &info
	}

	if line := c.renderer.OnResult(res, probe); line != "" {
		io.WriteString(c.out, line)
	}
	c.rendered++

	// The result that hits the limit is still shown; the check comes
	// strictly after rendering.
	return c.captureLimit > 0 && c.rendered >= c.captureLimit
}

// drain runs the teardown sequence: footer, flush, close. Best-effort
// cleanup on every path out of the stream.
func (c *Controller) drain() {
	c.setState(StateDraining)

	if n, ok := c.renderer.(render.DisconnectNotifier); ok {
		if footer := n.OnDisconnect(); footer != "" {
			io.WriteString(c.out, footer)
		}
	}
	if fl, ok := c.out.(interface{ Flush() error }); ok {
		fl.Flush()
	}
	if err := c.feed.Close(); err != nil {
		c.log.Debugw("closing feed", "error", err)
	}

	c.setState(StateClosed)
}
