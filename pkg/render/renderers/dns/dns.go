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

package dns

import (
	"fmt"
	"strings"

	"github.com/probelab/probectl/pkg/measurement"
	"github.com/probelab/probectl/pkg/render"
)

// Renderer summarizes DNS responses per resolver. Measurements that use
// the probe's own resolvers report one entry per resolver in a resultset;
// targeted measurements report a single result object.
type Renderer struct{}

func init() {
	render.Register("dns", func() render.Renderer { return &Renderer{} })
}

func (r *Renderer) Kinds() []measurement.Kind {
	return []measurement.Kind{measurement.Dns}
}

func (r *Renderer) OnResult(res *measurement.Result, probe *measurement.ProbeInfo) string {
	fields := res.Fields()

	var b strings.Builder
	if set, ok := render.Slice(fields["resultset"]); ok {
		for _, entry := range set {
			m, ok := render.Map(entry)
			if !ok {
				continue
			}
			b.WriteString(renderOne(res.ProbeID, m))
		}
		if b.Len() == 0 {
			fmt.Fprintf(&b, "probe #%d: no response\n", res.ProbeID)
		}
		return b.String()
	}

	b.WriteString(renderOne(res.ProbeID, fields))
	return b.String()
}

func renderOne(probeID int, entry map[string]any) string {
	resolver, _ := render.Str(entry["dst_addr"])
	if resolver == "" {
		resolver, _ = render.Str(entry["dst_name"])
	}

	if errMap, ok := render.Map(entry["error"]); ok {
		detail := "error"
		if t, ok := render.Str(errMap["timeout"]); ok {
			detail = "timeout " + t
		} else if n, ok := render.Num(errMap["timeout"]); ok {
			detail = fmt.Sprintf("timeout after %d ms", int(n))
		}
		return fmt.Sprintf("probe #%d: %s: %s\n", probeID, resolver, detail)
	}

	result, ok := render.Map(entry["result"])
	if !ok {
		return fmt.Sprintf("probe #%d: %s: no response\n", probeID, resolver)
	}

	rt, _ := render.Num(result["rt"])
	ancount, _ := render.Num(result["ANCOUNT"])
	size, _ := render.Num(result["size"])

	return fmt.Sprintf("probe #%d: %s answered in %.2f ms (%d answers, %d bytes)\n",
		probeID, resolver, rt, int(ancount), int(size))
}
