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
)

// Result is one decoded feed record. It keeps the raw payload around so
// renderers can reach fields the envelope does not surface.
type Result struct {
	Raw           json.RawMessage
	MeasurementID int
	ProbeID       int
	Firmware      int
	Type          string
	Kind          Kind
}

type resultEnvelope struct {
	MeasurementID *int   `json:"msm_id"`
	ProbeID       int    `json:"prb_id"`
	Firmware      int    `json:"fw"`
	Type          string `json:"type"`
}

// DecodeResult turns one wire-format record into a Result. A decode failure
// affects only the record at hand; callers are expected to skip and carry on.
func DecodeResult(data []byte) (*Result, error) {
	var env resultEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed result record: %w", err)
	}
	if env.MeasurementID == nil {
		return nil, fmt.Errorf("result record has no msm_id")
	}
	if env.Type == "" {
		return nil, fmt.Errorf("result record has no type")
	}
	kind, err := ParseKind(env.Type)
	if err != nil {
		return nil, err
	}

	raw := make(json.RawMessage, len(data))
	copy(raw, data)

	return &Result{
		Raw:           raw,
		MeasurementID: *env.MeasurementID,
		ProbeID:       env.ProbeID,
		Firmware:      env.Firmware,
		Type:          env.Type,
		Kind:          kind,
	}, nil
}

// Fields decodes the raw payload into a generic map. Renderers use this for
// the values that vary per measurement kind; call it once per result.
func (r *Result) Fields() map[string]any {
	var m map[string]any
	if err := json.Unmarshal(r.Raw, &m); err != nil {
		return map[string]any{}
	}
	return m
}
