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

package runner

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/probelab/probectl/pkg/colours"
	"github.com/probelab/probectl/pkg/config"
	"github.com/probelab/probectl/pkg/measurement"
	"github.com/probelab/probectl/pkg/render"
	_ "github.com/probelab/probectl/pkg/render/renderers"
)

func newMeasureCmd(cfg *config.Config, log *zap.SugaredLogger) *cobra.Command {
	kinds := make([]string, 0, len(measurement.AllKinds))
	for _, kind := range measurement.AllKinds {
		kinds = append(kinds, kind.CommandName())
	}

	cmd := &cobra.Command{
		Use:   fmt.Sprintf("measure <%s> [flags]", strings.Join(kinds, "|")),
		Short: "Create a measurement and optionally wait for the results",
	}
	for _, kind := range measurement.AllKinds {
		cmd.AddCommand(newKindCmd(cfg, log, kind))
	}
	return cmd
}

func newKindCmd(cfg *config.Config, log *zap.SugaredLogger, kind measurement.Kind) *cobra.Command {
	f := &measureFlags{}

	cmd := &cobra.Command{
		Use:   kind.CommandName(),
		Short: fmt.Sprintf("Create a %s measurement", kind.CommandName()),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMeasure(cmd, cfg, log, kind, f)
		},
	}

	addCommonFlags(cmd, cfg, f)
	addKindFlags(cmd, cfg, kind)

	cmd.MarkFlagsMutuallyExclusive(
		"from-area", "from-country", "from-prefix",
		"from-asn", "from-probes", "from-measurement",
	)

	return cmd
}

func addCommonFlags(cmd *cobra.Command, cfg *config.Config, f *measureFlags) {
	flags := cmd.Flags()

	flags.StringVar(&f.renderer, "renderer", "",
		fmt.Sprintf("The renderer you want to use (%s). If this isn't defined, an appropriate renderer will be selected.",
			strings.Join(render.Available(), ", ")))
	flags.BoolVar(&f.dryRun, "dry-run", false,
		"Do not create the measurement, only show its definition")
	flags.StringVar(&f.auth, "auth", cfg.CreateKey,
		"The API key you want to use to create the measurement")
	flags.IntVar(&f.af, "af", 0,
		"The address family, either 4 or 6")
	flags.StringVar(&f.description, "description", cfg.Description,
		"A free-form description")
	flags.StringVar(&f.target, "target", "",
		"The target, either a domain name or IP address. If creating a DNS "+
			"measurement, the absence of this option will imply that you wish "+
			"to use the probe's resolver.")
	flags.BoolVar(&f.noReport, "no-report", false,
		"Don't wait for results, just return the URL at which you can later "+
			"get information about the measurement")
	flags.IntVar(&f.interval, "interval", 0,
		"Rather than run this measurement as a one-off (the default), create "+
			"this measurement as a recurring one, with an interval of n seconds "+
			"between attempted measurements. This option implies --no-report.")
	flags.IntVar(&f.probes, "probes", cfg.Source.Requested,
		"The number of probes you want to use. This doubles as the streaming "+
			"capture limit: the live report stops after this many results.")
	flags.StringArrayVar(&f.includeTags, "include-tag", nil,
		"Include only probes that are marked with these tags. Example: --include-tag=system-ipv6-works")
	flags.StringArrayVar(&f.excludeTags, "exclude-tag", nil,
		"Exclude probes that are marked with these tags. Example: --exclude-tag=system-ipv6-works")

	flags.StringVar(&f.fromArea, "from-area", "",
		fmt.Sprintf("The area from which you'd like to select your probes (%s)",
			strings.Join(measurement.Areas, ", ")))
	flags.StringVar(&f.fromCountry, "from-country", "",
		"The two-letter ISO code for the country from which you'd like to "+
			"select your probes. Example: --from-country=GR")
	flags.StringVar(&f.fromPrefix, "from-prefix", "",
		"The prefix from which you'd like to select your probes. Example: --from-prefix=82.92.0.0/14")
	flags.IntVar(&f.fromAsn, "from-asn", 0,
		"The ASN from which you'd like to select your probes. Example: --from-asn=3333")
	flags.IntSliceVar(&f.fromProbes, "from-probes", nil,
		"A comma-separated list of probe ids you want to use in your "+
			"measurement. Example: --from-probes=1,2,34,157,10006")
	flags.IntVar(&f.fromMeasurement, "from-measurement", 0,
		"A measurement id which you want to use as the basis for probe "+
			"selection in your new measurement. This is a handy way to re-create "+
			"a measurement under conditions similar to another measurement. "+
			"Example: --from-measurement=1000192")

	flags.DurationVar(&f.streamTimeout, "stream-timeout", cfg.StreamTimeout,
		"How long to wait between results before ending the live report")
	flags.BoolVar(&f.noColour, "no-colour", false,
		"Disable coloured notices")
}

// addKindFlags registers the kind-specific flag group derived from the
// measurement schema, with defaults supplied by configuration.
func addKindFlags(cmd *cobra.Command, cfg *config.Config, kind measurement.Kind) {
	defaults := cfg.KindDefaults(kind.CommandName())
	flags := cmd.Flags()

	for _, spec := range measurement.Schema[kind] {
		switch spec.Type {
		case measurement.IntOption:
			def := spec.Min
			if v, ok := intDefault(defaults[spec.Name]); ok {
				def = v
			}
			flags.Int(spec.Name, def, spec.Usage)
		case measurement.BoolOption:
			def, _ := defaults[spec.Name].(bool)
			flags.Bool(spec.Name, def, spec.Usage)
		case measurement.StringOption:
			def, _ := defaults[spec.Name].(string)
			flags.String(spec.Name, def, spec.Usage)
		case measurement.ChoiceOption:
			def, _ := defaults[spec.Name].(string)
			usage := fmt.Sprintf("%s (%s)", spec.Usage, strings.Join(spec.Choices, ", "))
			flags.String(spec.Name, def, usage)
		}
	}
}

func intDefault(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func runMeasure(
	cmd *cobra.Command,
	cfg *config.Config,
	log *zap.SugaredLogger,
	kind measurement.Kind,
	f *measureFlags,
) error {
	if f.noColour {
		colours.Enable(false)
	}

	// Renderer selection fails fast, before any network I/O.
	renderer, err := render.Select(f.renderer, kind)
	if err != nil {
		return err
	}

	def, src, err := buildRequest(cmd, cfg, kind, f)
	if err != nil {
		return err
	}

	isOneoff := true
	if f.interval > 0 {
		def.Interval = f.interval
		isOneoff = false
		f.noReport = true
	}

	if f.dryRun {
		printDryRun(def, src)
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := measurement.NewClient(cfg.APIEndpoint, f.auth)
	ids, err := client.Create(ctx, measurement.CreateRequest{
		Definitions: []*measurement.Definition{def},
		Probes:      []measurement.Source{src},
		IsOneoff:    isOneoff,
	})
	if err != nil {
		return err
	}

	pk := ids[0]
	fmt.Printf("%s\n\n  %s\n",
		colours.OK("Looking good!  Your measurement was created and details about it can be found here:"),
		cfg.MeasurementURL(pk))

	if f.noReport {
		return nil
	}

	return streamResults(ctx, cfg, log, renderer, f, pk)
}

// buildRequest turns the flag values into a validated definition and probe
// source. All validation here is configuration-time: it happens before the
// measurement is created.
func buildRequest(
	cmd *cobra.Command,
	cfg *config.Config,
	kind measurement.Kind,
	f *measureFlags,
) (*measurement.Definition, measurement.Source, error) {
	if f.af != 0 && f.af != 4 && f.af != 6 {
		return nil, measurement.Source{}, fmt.Errorf("the address family must be either 4 or 6")
	}
	if f.probes < 1 {
		return nil, measurement.Source{}, fmt.Errorf("you must request at least one probe")
	}

	if kind != measurement.Dns && f.target == "" {
		return nil, measurement.Source{}, fmt.Errorf("you must specify a target for that kind of measurement")
	}

	af := measurement.GuessAddressFamily(f.af, f.target, cfg.AddressFamily)

	def := measurement.NewDefinition(kind, f.target, af, "")
	if err := applyKindOptions(cmd, cfg, kind, def); err != nil {
		return nil, measurement.Source{}, err
	}

	if kind == measurement.Dns {
		query, _ := cmd.Flags().GetString("query-argument")
		if query == "" {
			return nil, measurement.Source{}, fmt.Errorf("at a minimum, DNS measurements require a query argument")
		}
		def.Set("use_probe_resolver", f.target == "")
	}

	def.Description = describeMeasurement(cmd, cfg, kind, f)

	src, err := buildSource(cfg, kind, f, af)
	if err != nil {
		return nil, measurement.Source{}, err
	}

	return def, src, nil
}

func applyKindOptions(cmd *cobra.Command, cfg *config.Config, kind measurement.Kind, def *measurement.Definition) error {
	defaults := cfg.KindDefaults(kind.CommandName())
	flags := cmd.Flags()

	for _, spec := range measurement.Schema[kind] {
		flag := flags.Lookup(spec.Name)
		if flag == nil {
			continue
		}
		_, hasDefault := defaults[spec.Name]
		if !flag.Changed && !hasDefault {
			continue
		}

		var (
			value any
			err   error
		)
		switch spec.Type {
		case measurement.IntOption:
			value, err = flags.GetInt(spec.Name)
		case measurement.BoolOption:
			value, err = flags.GetBool(spec.Name)
		case measurement.StringOption, measurement.ChoiceOption:
			value, err = flags.GetString(spec.Name)
		}
		if err != nil {
			return err
		}
		if err := def.Apply(spec, value); err != nil {
			return err
		}
	}
	return nil
}

func describeMeasurement(cmd *cobra.Command, cfg *config.Config, kind measurement.Kind, f *measureFlags) string {
	if f.description != "" {
		return f.description
	}
	if cfg.Description != "" {
		return cfg.Description
	}
	if kind == measurement.Dns && f.target == "" {
		query, _ := cmd.Flags().GetString("query-argument")
		return fmt.Sprintf("DNS measurement for %s", query)
	}
	name := kind.CommandName()
	return fmt.Sprintf("%s measurement to %s", strings.ToUpper(name[:1])+name[1:], f.target)
}

func buildSource(cfg *config.Config, kind measurement.Kind, f *measureFlags, af int) (measurement.Source, error) {
	src := measurement.Source{
		Requested: f.probes,
		Type:      measurement.SourceType(cfg.Source.Type),
		Value:     cfg.Source.Value,
	}

	switch {
	case f.fromCountry != "":
		if err := measurement.ValidateCountry(f.fromCountry); err != nil {
			return measurement.Source{}, err
		}
		src.Type = measurement.SourceCountry
		src.Value = strings.ToUpper(f.fromCountry)
	case f.fromArea != "":
		if !contains(measurement.Areas, f.fromArea) {
			return measurement.Source{}, fmt.Errorf("the area must be one of %s", strings.Join(measurement.Areas, ", "))
		}
		src.Type = measurement.SourceArea
		src.Value = f.fromArea
	case f.fromPrefix != "":
		src.Type = measurement.SourcePrefix
		src.Value = f.fromPrefix
	case f.fromAsn != 0:
		if f.fromAsn < 1 || int64(f.fromAsn) > 1<<32 {
			return measurement.Source{}, fmt.Errorf("the ASN must be between 1 and 2^32")
		}
		src.Type = measurement.SourceAsn
		src.Value = strconv.Itoa(f.fromAsn)
	case len(f.fromProbes) > 0:
		ids := make([]string, 0, len(f.fromProbes))
		for _, id := range f.fromProbes {
			if id < 1 {
				return measurement.Source{}, fmt.Errorf("probe ids must be positive")
			}
			ids = append(ids, strconv.Itoa(id))
		}
		src.Type = measurement.SourceProbes
		src.Value = strings.Join(ids, ",")
	case f.fromMeasurement != 0:
		if f.fromMeasurement < 1 {
			return measurement.Source{}, fmt.Errorf("the measurement id must be positive")
		}
		src.Type = measurement.SourceMeasurement
		src.Value = strconv.Itoa(f.fromMeasurement)
	}

	for _, tag := range append(append([]string{}, f.includeTags...), f.excludeTags...) {
		if err := measurement.ValidateTag(tag); err != nil {
			return measurement.Source{}, err
		}
	}
	src.IncludeTags = f.includeTags
	src.ExcludeTags = f.excludeTags

	// Configured tag defaults apply only when the operator passed none.
	if len(src.IncludeTags) == 0 && len(src.ExcludeTags) == 0 {
		src.IncludeTags, src.ExcludeTags = cfg.DefaultTags(af, kind.CommandName())
	}

	return src, nil
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func printDryRun(def *measurement.Definition, src measurement.Source) {
	fmt.Println(colours.Bold("\nDefinitions:\n" + strings.Repeat("=", 80)))
	for _, kv := range def.Params() {
		fmt.Println(colours.Field(fmt.Sprintf("%-25s %v", kv[0], kv[1])))
	}

	fmt.Println(colours.Bold("\nSources:\n" + strings.Repeat("=", 80)))
	fmt.Println(colours.Field(fmt.Sprintf("%-25s %d", "requested", src.Requested)))
	fmt.Println(colours.Field(fmt.Sprintf("%-25s %s", "type", src.Type)))
	fmt.Println(colours.Field(fmt.Sprintf("%-25s %s", "value", src.Value)))
	fmt.Println(colours.Field(fmt.Sprintf("tags\n  include%17s%s\n  exclude%17s%s",
		" ", strings.Join(src.IncludeTags, ", "),
		" ", strings.Join(src.ExcludeTags, ", "))))
}
