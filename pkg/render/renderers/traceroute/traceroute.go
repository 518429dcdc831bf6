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

package traceroute

import (
	"fmt"
	"strings"

	"github.com/probelab/probectl/pkg/measurement"
	"github.com/probelab/probectl/pkg/render"
)

// Renderer prints a classic hop-per-line traceroute for each probe.
type Renderer struct{}

func init() {
	render.Register("traceroute", func() render.Renderer { return &Renderer{} })
}

func (r *Renderer) Kinds() []measurement.Kind {
	return []measurement.Kind{measurement.Traceroute}
}

func (r *Renderer) OnResult(res *measurement.Result, probe *measurement.ProbeInfo) string {
	fields := res.Fields()

	var b strings.Builder
	target, _ := render.Str(fields["dst_name"])
	addr, _ := render.Str(fields["dst_addr"])
	fmt.Fprintf(&b, "probe #%d: traceroute to %s (%s)", res.ProbeID, target, addr)
	if probe != nil && probe.CountryCode != "" {
		fmt.Fprintf(&b, " from %s", probe.CountryCode)
	}
	b.WriteByte('\n')

	hops, ok := render.Slice(fields["result"])
	if !ok {
		b.WriteString("  no hops reported\n")
		return b.String()
	}

	for _, h := range hops {
		hop, ok := render.Map(h)
		if !ok {
			continue
		}
		num, _ := render.Num(hop["hop"])

		packets, _ := render.Slice(hop["result"])
		from := "*"
		times := make([]string, 0, 3)
		for _, p := range packets {
			packet, ok := render.Map(p)
			if !ok {
				continue
			}
			if f, ok := render.Str(packet["from"]); ok && from == "*" {
				from = f
			}
			if rtt, ok := render.Num(packet["rtt"]); ok {
				times = append(times, fmt.Sprintf("%.3f ms", rtt))
			} else {
				times = append(times, "*")
			}
		}
		if len(times) == 0 {
			times = append(times, "*")
		}

		fmt.Fprintf(&b, "%3d  %-40s %s\n", int(num), from, strings.Join(times, "  "))
	}

	return b.String()
}
