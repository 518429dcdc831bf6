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

package render

import (
	"errors"
	"fmt"
	"sort"

	"github.com/probelab/probectl/pkg/measurement"
)

// Renderer turns one structured result into display text. OnResult must be
// a pure transform: no I/O, no suspension. The probe argument may be nil
// when no metadata arrived for that vantage point.
type Renderer interface {
	OnResult(res *measurement.Result, probe *measurement.ProbeInfo) string
	Kinds() []measurement.Kind
}

// ConnectNotifier is implemented by renderers that emit a header when the
// stream opens.
type ConnectNotifier interface {
	OnConnect() string
}

// DisconnectNotifier is implemented by renderers that emit a footer when
// the stream drains, like the ping statistics block.
type DisconnectNotifier interface {
	OnDisconnect() string
}

var (
	ErrUnknownRenderer      = errors.New("unknown renderer")
	ErrUnsupportedKind      = errors.New("no renderer supports this measurement kind")
	ErrIncompatibleRenderer = errors.New("renderer does not support this measurement kind")
)

var factories = make(map[string]func() Renderer)

// defaultNames binds each measurement kind to the renderer selected when no
// explicit --renderer is given.
var defaultNames = map[measurement.Kind]string{
	measurement.Ping:       "ping",
	measurement.Traceroute: "traceroute",
	measurement.Dns:        "dns",
	measurement.Sslcert:    "ssl",
	measurement.Http:       "http",
	measurement.Ntp:        "ntp",
}

// Register binds a renderer constructor to a name. It must only be called
// from init functions; registering a name twice is a programming error.
func Register(name string, factory func() Renderer) {
	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("render: Register called twice for renderer %q", name))
	}
	factories[name] = factory
}

// Available lists the registered renderer names, sorted, for CLI help text.
func Available() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select resolves a renderer for a measurement kind. An explicit name wins;
// otherwise the kind's default renderer is used. Selection failures are
// configuration errors and happen before any network I/O.
func Select(explicitName string, kind measurement.Kind) (Renderer, error) {
	name := explicitName
	if name == "" {
		var ok bool
		name, ok = defaultNames[kind]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
		}
	}

	factory, ok := factories[name]
	if !ok {
		if explicitName != "" {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRenderer, explicitName)
		}
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}

	r := factory()
	for _, k := range r.Kinds() {
		if k == kind {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: %q cannot render %s results", ErrIncompatibleRenderer, name, kind)
}
