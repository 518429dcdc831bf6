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
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelab/probectl/pkg/measurement"
)

// scriptedFeed replays a fixed sequence of events, then blocks until the
// per-call context expires. It records Close calls.
type scriptedFeed struct {
	mu     sync.Mutex
	events []Event
	pos    int
	closed int
}

func (f *scriptedFeed) Next(ctx context.Context) (Event, error) {
	f.mu.Lock()
	if f.closed > 0 {
		f.mu.Unlock()
		return Event{}, ErrFeedClosed
	}
	if f.pos < len(f.events) {
		ev := f.events[f.pos]
		f.pos++
		f.mu.Unlock()
		return ev, nil
	}
	f.mu.Unlock()

	<-ctx.Done()
	return Event{}, ctx.Err()
}

func (f *scriptedFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *scriptedFeed) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func dialScripted(feed *scriptedFeed) Dialer {
	return func(ctx context.Context, measurementID int) (Feed, error) {
		return feed, nil
	}
}

// countingRenderer emits one line per result and records the probe
// metadata it was handed.
type countingRenderer struct {
	calls  int
	probes []*measurement.ProbeInfo
}

func (r *countingRenderer) OnResult(res *measurement.Result, probe *measurement.ProbeInfo) string {
	r.calls++
	r.probes = append(r.probes, probe)
	return fmt.Sprintf("result %d from probe %d\n", r.calls, res.ProbeID)
}

func (r *countingRenderer) Kinds() []measurement.Kind {
	return measurement.AllKinds
}

func resultEvent(msmID, probeID int) Event {
	raw := fmt.Sprintf(`{"msm_id":%d,"prb_id":%d,"type":"ping","result":[{"rtt":10.0}]}`, msmID, probeID)
	return Event{Type: EventResult, Raw: []byte(raw)}
}

func resultEvents(msmID, n int) []Event {
	events := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, resultEvent(msmID, 1000+i))
	}
	return events
}

func TestStreamCaptureLimit(t *testing.T) {
	tests := []struct {
		name     string
		limit    int
		incoming int
		rendered int
	}{
		{name: "limit_below_supply", limit: 3, incoming: 8, rendered: 3},
		{name: "limit_equals_supply", limit: 5, incoming: 5, rendered: 5},
		{name: "single_result", limit: 1, incoming: 4, rendered: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed := &scriptedFeed{events: resultEvents(42, tt.incoming)}
			renderer := &countingRenderer{}
			var out bytes.Buffer

			ctl := NewController(Config{
				MeasurementID: 42,
				Renderer:      renderer,
				CaptureLimit:  tt.limit,
				Dial:          dialScripted(feed),
				Out:           &out,
			})

			outcome, err := ctl.Stream(context.Background())
			require.NoError(t, err)
			assert.Equal(t, CaptureLimitReached, outcome.Kind)
			assert.Equal(t, tt.rendered, outcome.Rendered)
			assert.Equal(t, tt.rendered, renderer.calls)
			assert.Equal(t, tt.rendered, strings.Count(out.String(), "\n"))
			assert.Equal(t, 1, feed.closeCount())
			assert.Equal(t, StateClosed, ctl.State())
		})
	}
}

func TestStreamUnboundedRunsUntilIdle(t *testing.T) {
	feed := &scriptedFeed{events: resultEvents(7, 6)}
	renderer := &countingRenderer{}

	ctl := NewController(Config{
		MeasurementID: 7,
		Renderer:      renderer,
		CaptureLimit:  0,
		IdleTimeout:   50 * time.Millisecond,
		Dial:          dialScripted(feed),
		Out:           &bytes.Buffer{},
	})

	outcome, err := ctl.Stream(context.Background())
	require.NoError(t, err)
	assert.Equal(t, IdleTimeoutExceeded, outcome.Kind)
	assert.Equal(t, 6, outcome.Rendered)
	assert.Equal(t, 1, feed.closeCount())
}

func TestStreamIdleTimeoutBounds(t *testing.T) {
	feed := &scriptedFeed{}
	ctl := NewController(Config{
		MeasurementID: 1,
		Renderer:      &countingRenderer{},
		IdleTimeout:   60 * time.Millisecond,
		Dial:          dialScripted(feed),
		Out:           &bytes.Buffer{},
	})

	start := time.Now()
	outcome, err := ctl.Stream(context.Background())
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, IdleTimeoutExceeded, outcome.Kind)
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestStreamCancellation(t *testing.T) {
	feed := &scriptedFeed{}
	ctl := NewController(Config{
		MeasurementID: 1,
		Renderer:      &countingRenderer{},
		IdleTimeout:   time.Minute,
		Dial:          dialScripted(feed),
		Out:           &bytes.Buffer{},
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	outcome, err := ctl.Stream(ctx)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, Cancelled, outcome.Kind)
	assert.ErrorIs(t, outcome.Err, context.Canceled)
	assert.Less(t, elapsed, 2*time.Second)
	assert.Equal(t, 1, feed.closeCount())
	assert.Equal(t, StateClosed, ctl.State())
}

func TestStreamCancelledDuringDial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ctl := NewController(Config{
		MeasurementID: 1,
		Renderer:      &countingRenderer{},
		Dial: func(ctx context.Context, id int) (Feed, error) {
			return nil, ctx.Err()
		},
		Out: &bytes.Buffer{},
	})

	outcome, err := ctl.Stream(ctx)
	require.NoError(t, err)
	assert.Equal(t, Cancelled, outcome.Kind)
	assert.Equal(t, StateClosed, ctl.State())
}

func TestStreamConnectionFailed(t *testing.T) {
	dialErr := errors.New("connection refused")
	ctl := NewController(Config{
		MeasurementID: 1,
		Renderer:      &countingRenderer{},
		Dial: func(ctx context.Context, id int) (Feed, error) {
			return nil, dialErr
		},
		Out: &bytes.Buffer{},
	})

	outcome, err := ctl.Stream(context.Background())
	assert.ErrorIs(t, err, dialErr)
	assert.Equal(t, ConnectionFailed, outcome.Kind)
	assert.Equal(t, StateClosed, ctl.State())
}

func TestStreamFeedError(t *testing.T) {
	feedErr := errors.New("subscription rejected")
	feed := &scriptedFeed{events: []Event{
		resultEvent(9, 1),
		{Type: EventError, Err: feedErr},
	}}
	renderer := &countingRenderer{}

	ctl := NewController(Config{
		MeasurementID: 9,
		Renderer:      renderer,
		Dial:          dialScripted(feed),
		Out:           &bytes.Buffer{},
	})

	outcome, err := ctl.Stream(context.Background())
	assert.ErrorIs(t, err, feedErr)
	assert.Equal(t, FeedFailed, outcome.Kind)
	assert.Equal(t, 1, outcome.Rendered)
	assert.Equal(t, 1, feed.closeCount())
}

// Malformed records are skipped without advancing the rendered count and
// without killing the stream.
func TestStreamSkipsMalformedRecords(t *testing.T) {
	feed := &scriptedFeed{events: []Event{
		resultEvent(5, 1),
		{Type: EventResult, Raw: []byte(`{"this is": not json`)},
		resultEvent(5, 2),
	}}
	renderer := &countingRenderer{}

	ctl := NewController(Config{
		MeasurementID: 5,
		Renderer:      renderer,
		CaptureLimit:  2,
		Dial:          dialScripted(feed),
		Out:           &bytes.Buffer{},
	})

	outcome, err := ctl.Stream(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CaptureLimitReached, outcome.Kind)
	assert.Equal(t, 2, outcome.Rendered)
	assert.Equal(t, 2, renderer.calls)
}

func TestStreamDropsMisroutedResults(t *testing.T) {
	feed := &scriptedFeed{events: []Event{
		resultEvent(100, 1),
		resultEvent(999, 1), // someone else's measurement
		resultEvent(100, 2),
	}}
	renderer := &countingRenderer{}

	ctl := NewController(Config{
		MeasurementID: 100,
		Renderer:      renderer,
		CaptureLimit:  2,
		Dial:          dialScripted(feed),
		Out:           &bytes.Buffer{},
	})

	outcome, err := ctl.Stream(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.Rendered)
	assert.Equal(t, CaptureLimitReached, outcome.Kind)
}

// Probe metadata arriving before a result must be attached to it; results
// from probes with no metadata get nil.
func TestStreamProbeEnrichment(t *testing.T) {
	feed := &scriptedFeed{events: []Event{
		{Type: EventProbe, Probe: &measurement.ProbeInfo{ID: 660, CountryCode: "NL", ASNv4: 3333}},
		resultEvent(11, 660),
		resultEvent(11, 661),
	}}
	renderer := &countingRenderer{}

	ctl := NewController(Config{
		MeasurementID: 11,
		Renderer:      renderer,
		CaptureLimit:  2,
		Dial:          dialScripted(feed),
		Out:           &bytes.Buffer{},
	})

	_, err := ctl.Stream(context.Background())
	require.NoError(t, err)
	require.Len(t, renderer.probes, 2)
	require.NotNil(t, renderer.probes[0])
	assert.Equal(t, "NL", renderer.probes[0].CountryCode)
	assert.Equal(t, 3333, renderer.probes[0].ASNv4)
	assert.Nil(t, renderer.probes[1])
}

func TestStreamSingleUse(t *testing.T) {
	feed := &scriptedFeed{events: resultEvents(3, 1)}
	ctl := NewController(Config{
		MeasurementID: 3,
		Renderer:      &countingRenderer{},
		CaptureLimit:  1,
		Dial:          dialScripted(feed),
		Out:           &bytes.Buffer{},
	})

	_, err := ctl.Stream(context.Background())
	require.NoError(t, err)

	_, err = ctl.Stream(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyClosed)
}

type headerFooterRenderer struct {
	countingRenderer
}

func (r *headerFooterRenderer) OnConnect() string    { return "== start ==\n" }
func (r *headerFooterRenderer) OnDisconnect() string { return "== end ==\n" }

func TestStreamNotifierOrdering(t *testing.T) {
	feed := &scriptedFeed{events: resultEvents(8, 2)}
	renderer := &headerFooterRenderer{}
	var out bytes.Buffer

	ctl := NewController(Config{
		MeasurementID: 8,
		Renderer:      renderer,
		CaptureLimit:  2,
		Dial:          dialScripted(feed),
		Out:           &out,
	})

	_, err := ctl.Stream(context.Background())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "== start ==", lines[0])
	assert.Equal(t, "== end ==", lines[3])
}
