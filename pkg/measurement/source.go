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

package measurement

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// SourceType is the probe-selection scheme for a measurement.
type SourceType string

const (
	SourceArea        SourceType = "area"
	SourceCountry     SourceType = "country"
	SourcePrefix      SourceType = "prefix"
	SourceAsn         SourceType = "asn"
	SourceProbes      SourceType = "probes"
	SourceMeasurement SourceType = "msm"
)

// Areas the platform accepts for area-based selection.
var Areas = []string{"WW", "West", "North-Central", "South-Central", "North-East", "South-East"}

// Source selects the vantage points a measurement runs from.
type Source struct {
	Requested   int
	Type        SourceType
	Value       string
	IncludeTags []string
	ExcludeTags []string
}

type sourceWire struct {
	Requested int        `json:"requested"`
	Type      SourceType `json:"type"`
	Value     string     `json:"value"`
	Tags      struct {
		Include []string `json:"include"`
		Exclude []string `json:"exclude"`
	} `json:"tags"`
}

func (s Source) MarshalJSON() ([]byte, error) {
	w := sourceWire{Requested: s.Requested, Type: s.Type, Value: s.Value}
	w.Tags.Include = append([]string{}, s.IncludeTags...)
	w.Tags.Exclude = append([]string{}, s.ExcludeTags...)
	if w.Tags.Include == nil {
		w.Tags.Include = []string{}
	}
	if w.Tags.Exclude == nil {
		w.Tags.Exclude = []string{}
	}
	return json.Marshal(w)
}

var tagPattern = regexp.MustCompile(`^[a-z0-9_\-]+$`)

// ValidateTag rejects tags the platform would refuse anyway, before any
// network I/O happens.
func ValidateTag(tag string) error {
	if !tagPattern.MatchString(tag) {
		return fmt.Errorf("invalid probe tag %q", tag)
	}
	return nil
}

var countryPattern = regexp.MustCompile(`^[A-Za-z]{2}$`)

// ValidateCountry checks for a two-letter ISO country code.
func ValidateCountry(code string) error {
	if !countryPattern.MatchString(code) {
		return fmt.Errorf("invalid country code %q, expected a two-letter ISO code", code)
	}
	return nil
}
