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
	"fmt"
	"strings"

	"github.com/probelab/probectl/pkg/measurement"
	"github.com/probelab/probectl/pkg/render"
)

type Renderer struct{}

func init() {
	render.Register("http", func() render.Renderer { return &Renderer{} })
}

func (r *Renderer) Kinds() []measurement.Kind {
	return []measurement.Kind{measurement.Http}
}

func (r *Renderer) OnResult(res *measurement.Result, probe *measurement.ProbeInfo) string {
	fields := res.Fields()

	attempts, ok := render.Slice(fields["result"])
	if !ok || len(attempts) == 0 {
		return fmt.Sprintf("probe #%d: no response\n", res.ProbeID)
	}

	var b strings.Builder
	for _, a := range attempts {
		attempt, ok := render.Map(a)
		if !ok {
			continue
		}

		if errMsg, ok := render.Str(attempt["err"]); ok {
			fmt.Fprintf(&b, "probe #%d: %s\n", res.ProbeID, errMsg)
			continue
		}

		method, _ := render.Str(attempt["method"])
		version, _ := render.Str(attempt["ver"])
		code, _ := render.Num(attempt["res"])
		bodySize, _ := render.Num(attempt["bsize"])
		headerSize, _ := render.Num(attempt["hsize"])
		rt, _ := render.Num(attempt["rt"])

		fmt.Fprintf(&b, "probe #%d: %s HTTP/%s %d, %d+%d bytes in %.2f ms\n",
			res.ProbeID, method, version, int(code), int(headerSize), int(bodySize), rt)
	}

	if b.Len() == 0 {
		return fmt.Sprintf("probe #%d: no response\n", res.ProbeID)
	}
	return b.String()
}
