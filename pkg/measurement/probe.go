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

// ProbeInfo is the vantage-point metadata the feed may push alongside
// results. Enrichment is best-effort: renderers must cope with a nil probe.
type ProbeInfo struct {
	ID          int    `json:"id"`
	CountryCode string `json:"country_code"`
	ASNv4       int    `json:"asn_v4"`
	ASNv6       int    `json:"asn_v6"`
	AddressV4   string `json:"address_v4"`
	AddressV6   string `json:"address_v6"`
}
