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

package runner

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/probelab/probectl/pkg/colours"
	"github.com/probelab/probectl/pkg/config"
	"github.com/probelab/probectl/pkg/render"
	"github.com/probelab/probectl/pkg/stream"
)

// streamResults runs the live report for a freshly created measurement.
// It returns a non-nil error only when the stream itself failed; every
// orderly shutdown (capture limit, interrupt, idle timeout) exits cleanly.
func streamResults(
	ctx context.Context,
	cfg *config.Config,
	log *zap.SugaredLogger,
	renderer render.Renderer,
	f *measureFlags,
	measurementID int,
) error {
	fmt.Fprintln(os.Stderr, colours.OK("Connecting to stream..."))

	out := bufio.NewWriter(os.Stdout)
	ctl := stream.NewController(stream.Config{
		MeasurementID: measurementID,
		Renderer:      renderer,
		CaptureLimit:  f.probes,
		IdleTimeout:   f.streamTimeout,
		Dial: func(ctx context.Context, id int) (stream.Feed, error) {
			return stream.DialWebSocket(ctx, cfg.StreamURL, id)
		},
		Out:    out,
		Logger: log,
	})

	outcome, err := ctl.Stream(ctx)
	out.Flush()

	fmt.Fprintf(os.Stderr, "%s\n\nYou can find details about this measurement here:\n\n  %s\n",
		colours.OK("Disconnecting from stream"), cfg.MeasurementURL(measurementID))

	switch outcome.Kind {
	case stream.CaptureLimitReached:
		return nil
	case stream.Cancelled:
		return nil
	case stream.IdleTimeoutExceeded:
		fmt.Fprintln(os.Stderr,
			colours.OK(fmt.Sprintf("No results arrived for %s; the stream was closed.", f.streamTimeout)))
		return nil
	default:
		return err
	}
}
