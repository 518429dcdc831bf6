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

// Coercion helpers over the generic result payload. Probe firmware varies
// and fields go missing; renderers treat every field as optional.

// Num reads a numeric payload value. JSON numbers decode as float64, but
// be lenient about ints from hand-built test fixtures.
func Num(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

// Str reads a string payload value.
func Str(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// Slice reads a list payload value.
func Slice(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}

// Map reads an object payload value.
func Map(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}
