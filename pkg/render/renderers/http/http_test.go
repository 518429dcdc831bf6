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

package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelab/probectl/pkg/measurement"
)

func renderResult(t *testing.T, raw string) string {
	t.Helper()
	res, err := measurement.DecodeResult([]byte(raw))
	require.NoError(t, err)
	return (&Renderer{}).OnResult(res, nil)
}

func TestOnResultAttemptLine(t *testing.T) {
	out := renderResult(t, `{
		"msm_id": 1, "prb_id": 42, "type": "http",
		"result": [{"method": "GET", "ver": "1.1", "res": 200,
		            "hsize": 263, "bsize": 1270, "rt": 88.57}]
	}`)
	assert.Equal(t, "probe #42: GET HTTP/1.1 200, 263+1270 bytes in 88.57 ms\n", out)
}

func TestOnResultError(t *testing.T) {
	out := renderResult(t, `{
		"msm_id": 1, "prb_id": 42, "type": "http",
		"result": [{"err": "connect: connection refused"}]
	}`)
	assert.Equal(t, "probe #42: connect: connection refused\n", out)
}

func TestOnResultNoAttempts(t *testing.T) {
	out := renderResult(t, `{"msm_id":1,"prb_id":42,"type":"http"}`)
	assert.Equal(t, "probe #42: no response\n", out)
}
