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

// Package renderers registers every built-in renderer. Importing it for
// side effects populates the registry; when a new renderer is added, this
// list should be updated.
package renderers

import (
	_ "github.com/probelab/probectl/pkg/render/renderers/dns"
	_ "github.com/probelab/probectl/pkg/render/renderers/http"
	_ "github.com/probelab/probectl/pkg/render/renderers/ntp"
	_ "github.com/probelab/probectl/pkg/render/renderers/ping"
	_ "github.com/probelab/probectl/pkg/render/renderers/raw"
	_ "github.com/probelab/probectl/pkg/render/renderers/ssl"
	_ "github.com/probelab/probectl/pkg/render/renderers/traceroute"
)
