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

package raw

import (
	"bytes"
	"encoding/json"

	"github.com/probelab/probectl/pkg/measurement"
	"github.com/probelab/probectl/pkg/render"
)

// Renderer emits each result as one line of compact JSON, for piping into
// other tools. It renders every measurement kind.
type Renderer struct{}

func init() {
	render.Register("raw", func() render.Renderer { return &Renderer{} })
}

func (r *Renderer) Kinds() []measurement.Kind {
	return measurement.AllKinds
}

func (r *Renderer) OnResult(res *measurement.Result, probe *measurement.ProbeInfo) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, res.Raw); err != nil {
		return ""
	}
	buf.WriteByte('\n')
	return buf.String()
}
