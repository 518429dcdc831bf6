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

import "fmt"

// Kind identifies the type of an active measurement.
type Kind uint64

const (
	Ping Kind = iota + 1
	Traceroute
	Dns
	Sslcert
	Http
	Ntp
)

// AllKinds is ordered the way the CLI lists measurement types.
var AllKinds = []Kind{Ping, Traceroute, Dns, Sslcert, Http, Ntp}

func (k Kind) String() (s string) {
	switch k {
	case Ping:
		s = "ping"
	case Traceroute:
		s = "traceroute"
	case Dns:
		s = "dns"
	case Sslcert:
		s = "sslcert"
	case Http:
		s = "http"
	case Ntp:
		s = "ntp"
	default:
		panic(fmt.Sprintf("no string name for measurement kind %d", uint64(k)))
	}

	return
}

// CommandName is the name used on the command line, which differs from the
// wire tag for TLS certificate measurements ("ssl" vs "sslcert").
func (k Kind) CommandName() string {
	if k == Sslcert {
		return "ssl"
	}
	return k.String()
}

// ParseKind accepts both the command-line name and the wire tag.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "ping":
		return Ping, nil
	case "traceroute":
		return Traceroute, nil
	case "dns":
		return Dns, nil
	case "ssl", "sslcert":
		return Sslcert, nil
	case "http":
		return Http, nil
	case "ntp":
		return Ntp, nil
	}
	return 0, fmt.Errorf("unknown measurement kind %q", s)
}
