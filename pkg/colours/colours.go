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

// Package colours styles the CLI's notices. Rendered result lines are
// never styled; only the chrome around them is.
package colours

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	boldStyle  = lipgloss.NewStyle().Bold(true)
	fieldStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	enabled = term.IsTerminal(int(os.Stdout.Fd()))
)

// Enable forces styling on or off, for tests and for --no-colour.
func Enable(on bool) {
	enabled = on
}

func apply(style lipgloss.Style, s string) string {
	if !enabled {
		return s
	}
	return style.Render(s)
}

func OK(s string) string    { return apply(okStyle, s) }
func Err(s string) string   { return apply(errStyle, s) }
func Bold(s string) string  { return apply(boldStyle, s) }
func Field(s string) string { return apply(fieldStyle, s) }
