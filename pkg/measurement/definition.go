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
	"sort"
	"strings"
)

// OptionType tags the value type of a kind-specific option.
type OptionType int

const (
	IntOption OptionType = iota + 1
	BoolOption
	StringOption
	ChoiceOption
)

// OptionSpec describes one kind-specific measurement option: its flag name,
// value type, and validation bounds. The wire name is the flag name with
// dashes replaced by underscores.
type OptionSpec struct {
	Name    string
	Type    OptionType
	Usage   string
	Min     int
	Max     int // 0 means unbounded
	Choices []string
}

func (o OptionSpec) WireName() string {
	return strings.ReplaceAll(o.Name, "-", "_")
}

// dnsQueryTypes is limited to the record types the result formatters can
// make sense of, plus ANY.
var dnsQueryTypes = []string{
	"A", "AAAA", "ANY", "CNAME", "DNSKEY", "DS", "MX", "NS", "NSEC", "PTR",
	"RRSIG", "SOA", "SRV", "TXT",
}

// Schema maps each measurement kind to its option set. The runner derives
// its per-kind flag groups from this table, and Definition.Apply validates
// against it, so the two can never drift apart.
var Schema = map[Kind][]OptionSpec{
	Ping: {
		{Name: "packets", Type: IntOption, Min: 1, Usage: "The number of packets sent"},
		{Name: "size", Type: IntOption, Min: 1, Usage: "The size of packets sent"},
		{Name: "packet-interval", Type: IntOption, Min: 1, Usage: "The time between packets (ms)"},
	},
	Traceroute: {
		{Name: "packets", Type: IntOption, Min: 1, Usage: "The number of packets sent"},
		{Name: "size", Type: IntOption, Min: 1, Usage: "The size of packets sent"},
		{Name: "protocol", Type: ChoiceOption, Choices: []string{"ICMP", "UDP", "TCP"}, Usage: "The protocol used"},
		{Name: "timeout", Type: IntOption, Min: 1, Usage: "The timeout per-packet (ms)"},
		{Name: "dont-fragment", Type: BoolOption, Usage: "Don't fragment the packet"},
		{Name: "paris", Type: IntOption, Min: 0, Max: 64, Usage: "Use Paris traceroute; 0 performs a standard traceroute"},
		{Name: "first-hop", Type: IntOption, Min: 1, Max: 255, Usage: "The TTL of the first hop"},
		{Name: "max-hops", Type: IntOption, Min: 1, Max: 255, Usage: "The maximum number of hops"},
		{Name: "port", Type: IntOption, Min: 1, Max: 65535, Usage: "Destination port, valid for TCP only"},
		{Name: "destination-option-size", Type: IntOption, Min: 1, Usage: "IPv6 destination option header"},
		{Name: "hop-by-hop-option-size", Type: IntOption, Min: 1, Usage: "IPv6 hop by hop option header"},
	},
	Dns: {
		{Name: "protocol", Type: ChoiceOption, Choices: []string{"UDP", "TCP"}, Usage: "The protocol used"},
		{Name: "query-class", Type: ChoiceOption, Choices: []string{"IN", "CHAOS"}, Usage: "The query class"},
		{Name: "query-type", Type: ChoiceOption, Choices: dnsQueryTypes, Usage: "The query type"},
		{Name: "query-argument", Type: StringOption, Usage: "The DNS label to query"},
		{Name: "set-cd-bit", Type: BoolOption, Usage: "Set the DNSSEC Checking Disabled flag (RFC4035)"},
		{Name: "set-do-bit", Type: BoolOption, Usage: "Set the DNSSEC OK flag (RFC3225)"},
		{Name: "set-nsid-bit", Type: BoolOption, Usage: "Include an EDNS name server ID request with the query"},
		{Name: "set-rd-bit", Type: BoolOption, Usage: "Set the Recursion Desired flag"},
		{Name: "retry", Type: IntOption, Min: 1, Usage: "Number of times to retry"},
		{Name: "udp-payload-size", Type: IntOption, Min: 512, Max: 4096, Usage: "The EDNS0 UDP payload size"},
	},
	Sslcert: {},
	Http:    {},
	Ntp: {
		{Name: "timeout", Type: IntOption, Min: 1, Usage: "The timeout per-packet (ms)"},
	},
}

// SchemaOption looks up one option spec for a kind by flag name.
func SchemaOption(kind Kind, name string) (OptionSpec, bool) {
	for _, spec := range Schema[kind] {
		if spec.Name == name {
			return spec, true
		}
	}
	return OptionSpec{}, false
}

// Definition is the immutable-once-built description of one measurement to
// be created. Kind-specific options are validated against Schema as they are
// applied.
type Definition struct {
	Kind          Kind
	Target        string
	AddressFamily int
	Description   string
	Interval      int

	options map[string]any
}

func NewDefinition(kind Kind, target string, af int, description string) *Definition {
	return &Definition{
		Kind:          kind,
		Target:        target,
		AddressFamily: af,
		Description:   description,
		options:       make(map[string]any),
	}
}

// Apply validates a value against spec and records it under the wire name.
func (d *Definition) Apply(spec OptionSpec, value any) error {
	switch spec.Type {
	case IntOption:
		n, ok := value.(int)
		if !ok {
			return fmt.Errorf("option %s wants an integer, got %T", spec.Name, value)
		}
		if n < spec.Min {
			return fmt.Errorf("option %s must be at least %d", spec.Name, spec.Min)
		}
		if spec.Max > 0 && n > spec.Max {
			return fmt.Errorf("option %s must be at most %d", spec.Name, spec.Max)
		}
	case BoolOption:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("option %s wants a boolean, got %T", spec.Name, value)
		}
	case StringOption:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("option %s wants a string, got %T", spec.Name, value)
		}
	case ChoiceOption:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("option %s wants a string, got %T", spec.Name, value)
		}
		found := false
		for _, c := range spec.Choices {
			if s == c {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("option %s must be one of %s", spec.Name, strings.Join(spec.Choices, ", "))
		}
	}

	d.options[spec.WireName()] = value
	return nil
}

// Set records an option without schema validation. Reserved for policy
// fields the CLI never exposes directly, like use_probe_resolver.
func (d *Definition) Set(wireName string, value any) {
	d.options[wireName] = value
}

// Option returns a previously applied option by wire name.
func (d *Definition) Option(wireName string) (any, bool) {
	v, ok := d.options[wireName]
	return v, ok
}

// Params returns the wire-format key/value pairs in a stable order, for the
// dry-run display.
func (d *Definition) Params() [][2]string {
	wire := d.wireMap()
	keys := make([]string, 0, len(wire))
	for k := range wire {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	params := make([][2]string, 0, len(keys))
	for _, k := range keys {
		params = append(params, [2]string{k, fmt.Sprintf("%v", wire[k])})
	}
	return params
}

func (d *Definition) wireMap() map[string]any {
	wire := map[string]any{
		"type":        d.Kind.String(),
		"af":          d.AddressFamily,
		"description": d.Description,
	}
	if d.Target != "" {
		wire["target"] = d.Target
	}
	if d.Interval > 0 {
		wire["interval"] = d.Interval
	}
	for k, v := range d.options {
		wire[k] = v
	}
	return wire
}

func (d *Definition) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.wireMap())
}

var dottedQuad = regexp.MustCompile(`^\d+\.\d+\.\d+\.\d+$`)

// GuessAddressFamily returns the explicitly requested af, or one guessed
// from the target, or the configured fallback. In that order.
func GuessAddressFamily(requested int, target string, fallback int) int {
	if requested != 0 {
		return requested
	}
	if strings.Contains(target, ":") {
		return 6
	}
	if dottedQuad.MatchString(target) {
		return 4
	}
	return fallback
}
