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

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SourceDefaults is the probe-selection spec used when no --from-* flag is
// given.
type SourceDefaults struct {
	Requested int    `mapstructure:"requested"`
	Type      string `mapstructure:"type"`
	Value     string `mapstructure:"value"`
}

// Config is the resolved configuration: defaults, then the user's config
// file, then PROBECTL_* environment variables. Flag overrides happen in
// the runner. The value is immutable once loaded.
type Config struct {
	APIEndpoint   string         `mapstructure:"api_endpoint"`
	StreamURL     string         `mapstructure:"stream_url"`
	CreateKey     string         `mapstructure:"create_key"`
	AddressFamily int            `mapstructure:"address_family"`
	Description   string         `mapstructure:"description"`
	Source        SourceDefaults `mapstructure:"source"`
	StreamTimeout time.Duration  `mapstructure:"stream_timeout"`
	LogLevel      string         `mapstructure:"log_level"`

	// Types holds per-kind option defaults, keyed by kind name then by
	// flag name. The runner feeds these into the flag defaults derived
	// from the measurement schema.
	Types map[string]map[string]any `mapstructure:"types"`

	// Tags holds probe-tag defaults keyed by "ipv4/ping", "ipv6/all", and
	// so on. They apply only when the operator passes no tag flags.
	Tags map[string]TagDefaults `mapstructure:"tags"`
}

// TagDefaults is a configured include/exclude tag pair.
type TagDefaults struct {
	Include []string `mapstructure:"include"`
	Exclude []string `mapstructure:"exclude"`
}

// DefaultTags merges the per-kind and catch-all tag defaults for an
// address family.
func (c *Config) DefaultTags(af int, kind string) (include, exclude []string) {
	for _, key := range []string{
		fmt.Sprintf("ipv%d/%s", af, kind),
		fmt.Sprintf("ipv%d/all", af),
	} {
		if d, ok := c.Tags[key]; ok {
			include = append(include, d.Include...)
			exclude = append(exclude, d.Exclude...)
		}
	}
	return include, exclude
}

// KindDefaults returns the configured option defaults for one kind; never
// nil.
func (c *Config) KindDefaults(kind string) map[string]any {
	if d, ok := c.Types[kind]; ok {
		return d
	}
	return map[string]any{}
}

// MeasurementURL is where a measurement's results can be browsed later.
func (c *Config) MeasurementURL(id int) string {
	return fmt.Sprintf("%s/measurements/%d/", c.APIEndpoint, id)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_endpoint", "https://atlas.probelab.net")
	v.SetDefault("stream_url", "wss://stream.probelab.net/stream")
	v.SetDefault("create_key", "")
	v.SetDefault("address_family", 4)
	v.SetDefault("description", "")
	v.SetDefault("source.requested", 50)
	v.SetDefault("source.type", "area")
	v.SetDefault("source.value", "WW")
	v.SetDefault("stream_timeout", "300s")
	v.SetDefault("log_level", "info")

	v.SetDefault("types.ping", map[string]any{
		"packets": 3, "size": 48, "packet-interval": 1000,
	})
	v.SetDefault("types.traceroute", map[string]any{
		"packets": 3, "size": 48, "protocol": "ICMP", "timeout": 4000,
		"paris": 0, "first-hop": 1, "max-hops": 255, "port": 80,
	})
	v.SetDefault("types.dns", map[string]any{
		"protocol": "UDP", "query-class": "IN", "query-type": "A",
		"udp-payload-size": 512,
	})
	v.SetDefault("types.ntp", map[string]any{
		"timeout": 4000,
	})
}

// Load resolves the configuration. A missing config file is fine; a broken
// one is not.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "probectl"))
	}
	v.AddConfigPath(".")

	setDefaults(v)

	v.SetEnvPrefix("PROBECTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if cfg.StreamTimeout <= 0 {
		return nil, fmt.Errorf("stream_timeout must be positive")
	}
	return &cfg, nil
}
