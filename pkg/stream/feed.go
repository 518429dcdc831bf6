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

	"github.com/probelab/probectl/pkg/measurement"
)

// ErrFeedClosed is returned by Next after Close has been called.
var ErrFeedClosed = errors.New("feed is closed")

// EventType tags the variants of a feed event.
type EventType int

const (
	// EventResult carries one raw result record.
	EventResult EventType = iota + 1
	// EventProbe carries vantage-point metadata for enrichment.
	EventProbe
	// EventError carries a transport-level failure reported in-band.
	EventError
)

// Event is one item pulled off a live feed.
type Event struct {
	Type  EventType
	Raw   json.RawMessage
	Probe *measurement.ProbeInfo
	Err   error
}

// Feed is one open subscription to the live result feed for a single
// measurement.
//
// Next blocks until an event arrives or ctx is done; silence is never an
// error on its own, the caller bounds each call with a deadline. Close
// releases the underlying connection, is idempotent, and is safe to call
// from a goroutine other than the one calling Next.
type Feed interface {
	Next(ctx context.Context) (Event, error)
	Close() error
}

// Dialer opens a subscription for one measurement. Implementations must
// honour ctx for the connection handshake.
type Dialer func(ctx context.Context, measurementID int) (Feed, error)
