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

package ping

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/probelab/probectl/pkg/measurement"
	"github.com/probelab/probectl/pkg/render"
)

// Renderer prints a one-liner per probe and a ping-statistics block when
// the stream drains. The aggregate state lives for one stream; the
// registry hands out a fresh instance per selection.
type Renderer struct {
	target   string
	sent     int
	received int
	rtts     []float64
	mins     []float64
	maxs     []float64
}

func init() {
	render.Register("ping", func() render.Renderer { return &Renderer{} })
}

func (r *Renderer) Kinds() []measurement.Kind {
	return []measurement.Kind{measurement.Ping}
}

func (r *Renderer) OnResult(res *measurement.Result, probe *measurement.ProbeInfo) string {
	fields := res.Fields()
	r.collect(fields)

	size, _ := render.Num(fields["size"])
	from, _ := render.Str(fields["from"])
	ttl, _ := render.Num(fields["ttl"])

	times := make([]string, 0, 4)
	if packets, ok := render.Slice(fields["result"]); ok {
		for _, p := range packets {
			packet, ok := render.Map(p)
			if !ok {
				continue
			}
			if rtt, ok := render.Num(packet["rtt"]); ok {
				times = append(times, formatFloat(round3(rtt)))
			} else {
				times = append(times, "*")
			}
		}
	}

	origin := ""
	if probe != nil && probe.CountryCode != "" {
		origin = fmt.Sprintf(" [%s, AS%d]", probe.CountryCode, probe.ASNv4)
	}

	return fmt.Sprintf("%d bytes from probe #%d (%s)%s: ttl=%d times: %s ms\n",
		int(size), res.ProbeID, from, origin, int(ttl), strings.Join(times, ", "))
}

// OnDisconnect emits the aggregate statistics footer over everything the
// stream delivered.
func (r *Renderer) OnDisconnect() string {
	if r.sent == 0 && len(r.rtts) == 0 {
		return ""
	}
	return fmt.Sprintf(
		"\n--- %s ping statistics ---\n"+
			"%d packets transmitted, %d received, %.1f%% loss\n"+
			"rtt min/med/avg/max = %s/%s/%s/%s ms\n",
		r.target,
		r.sent, r.received, r.loss(),
		formatFloat(minOf(r.mins)), formatFloat(r.median()),
		formatFloat(r.mean()), formatFloat(maxOf(r.maxs)),
	)
}

func (r *Renderer) collect(fields map[string]any) {
	if r.target == "" {
		if name, ok := render.Str(fields["dst_name"]); ok {
			r.target = name
		} else if addr, ok := render.Str(fields["dst_addr"]); ok {
			r.target = addr
		}
	}

	if sent, ok := render.Num(fields["sent"]); ok {
		r.sent += int(sent)
	}
	if rcvd, ok := render.Num(fields["rcvd"]); ok {
		r.received += int(rcvd)
	}

	if packets, ok := render.Slice(fields["result"]); ok {
		for _, p := range packets {
			packet, ok := render.Map(p)
			if !ok {
				continue
			}
			rtt, _ := render.Num(packet["rtt"])
			r.rtts = append(r.rtts, round3(rtt))
		}
	}

	if minRtt, ok := render.Num(fields["min"]); ok {
		r.mins = append(r.mins, minRtt)
	} else {
		r.mins = append(r.mins, 0)
	}
	if maxRtt, ok := render.Num(fields["max"]); ok {
		r.maxs = append(r.maxs, maxRtt)
	} else {
		r.maxs = append(r.maxs, 0)
	}
}

func (r *Renderer) loss() float64 {
	if r.sent == 0 {
		return 0
	}
	return (1 - float64(r.received)/float64(r.sent)) * 100
}

func (r *Renderer) mean() float64 {
	if len(r.rtts) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range r.rtts {
		sum += v
	}
	return round3(sum / float64(len(r.rtts)))
}

func (r *Renderer) median() float64 {
	if len(r.rtts) == 0 {
		return 0
	}
	sorted := append([]float64{}, r.rtts...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return round3((sorted[mid-1] + sorted[mid]) / 2)
	}
	return sorted[mid]
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func minOf(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
