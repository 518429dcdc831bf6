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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeResult(t *testing.T) {
	raw := `{"msm_id":1000192,"prb_id":660,"fw":5080,"type":"ping","result":[{"rtt":24.1}]}`
	res, err := DecodeResult([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, 1000192, res.MeasurementID)
	assert.Equal(t, 660, res.ProbeID)
	assert.Equal(t, 5080, res.Firmware)
	assert.Equal(t, "ping", res.Type)
	assert.Equal(t, Ping, res.Kind)
	assert.JSONEq(t, raw, string(res.Raw))

	fields := res.Fields()
	assert.Contains(t, fields, "result")
}

func TestDecodeResultRejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not_json", raw: `{"msm_id": oops`},
		{name: "missing_msm_id", raw: `{"prb_id":1,"type":"ping"}`},
		{name: "missing_type", raw: `{"msm_id":1,"prb_id":1}`},
		{name: "unknown_type", raw: `{"msm_id":1,"prb_id":1,"type":"smoke-signal"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeResult([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

// A zero msm_id is present, only a missing key is an error.
func TestDecodeResultZeroMsmID(t *testing.T) {
	res, err := DecodeResult([]byte(`{"msm_id":0,"prb_id":1,"type":"ping"}`))
	require.NoError(t, err)
	assert.Equal(t, 0, res.MeasurementID)
}
