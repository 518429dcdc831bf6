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

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/probelab/probectl/pkg/colours"
	"github.com/probelab/probectl/pkg/config"
	"github.com/probelab/probectl/pkg/logger"
)

func newRootCmd(cfg *config.Config, log *zap.SugaredLogger) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "probectl",
		Short:         "A command-line client for the measurement platform",
		Long:          "",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.AddCommand(newMeasureCmd(cfg, log))

	return rootCmd
}

func Execute() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, colours.Err(err.Error()))
		os.Exit(2)
	}

	log := logger.New(cfg.LogLevel).Sugar()
	defer log.Sync()

	if err := newRootCmd(cfg, log).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, colours.Err(err.Error()))
		os.Exit(1)
	}
}
