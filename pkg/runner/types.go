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

import "time"

// measureFlags carries the common flag values for one measure invocation.
// Kind-specific options are read straight off the cobra flag set against
// the measurement schema.
type measureFlags struct {
	renderer    string
	dryRun      bool
	auth        string
	af          int
	description string
	target      string
	noReport    bool
	interval    int

	// probes is the number of vantage points requested, and doubles as
	// the streaming capture limit: one rendered result per requested
	// probe before the stream self-terminates.
	probes int

	includeTags []string
	excludeTags []string

	fromArea        string
	fromCountry     string
	fromPrefix      string
	fromAsn         int
	fromProbes      []int
	fromMeasurement int

	streamTimeout time.Duration
	noColour      bool
}
