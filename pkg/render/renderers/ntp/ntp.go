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

package ntp

import (
	"fmt"
	"strings"

	"github.com/probelab/probectl/pkg/measurement"
	"github.com/probelab/probectl/pkg/render"
)

type Renderer struct{}

func init() {
	render.Register("ntp", func() render.Renderer { return &Renderer{} })
}

func (r *Renderer) Kinds() []measurement.Kind {
	return []measurement.Kind{measurement.Ntp}
}

func (r *Renderer) OnResult(res *measurement.Result, probe *measurement.ProbeInfo) string {
	fields := res.Fields()

	stratum, _ := render.Num(fields["stratum"])
	refID, _ := render.Str(fields["ref-id"])

	exchanges, ok := render.Slice(fields["result"])
	if !ok || len(exchanges) == 0 {
		return fmt.Sprintf("probe #%d: no response\n", res.ProbeID)
	}

	var b strings.Builder
	for _, e := range exchanges {
		exchange, ok := render.Map(e)
		if !ok {
			continue
		}
		offset, haveOffset := render.Num(exchange["offset"])
		rtt, haveRtt := render.Num(exchange["rtt"])
		if !haveOffset || !haveRtt {
			fmt.Fprintf(&b, "probe #%d: no response\n", res.ProbeID)
			continue
		}
		fmt.Fprintf(&b, "probe #%d: stratum %d (%s) offset %.6f s, rtt %.6f s\n",
			res.ProbeID, int(stratum), refID, offset, rtt)
	}
	return b.String()
}
