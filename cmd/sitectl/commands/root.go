// Copyright 2026 The Sitegen Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package commands implements the sitectl operator CLI.
package commands

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/skaild/sitegen/internal/app"
	"github.com/skaild/sitegen/internal/config"
	"github.com/skaild/sitegen/internal/observability/logger"
	"github.com/skaild/sitegen/internal/store/postgres"
)

type options struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

// Execute runs the root command
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "sitectl",
		Short:         "Operate sitegen sites and the database",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if path == "" {
				path = config.Path()
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			opts.cfg = cfg

			logger.InitLogger(logger.Config{
				Level:       opts.logLevel,
				Format:      "text",
				ServiceName: "sitectl",
				Output:      cmd.ErrOrStderr(),
			})
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default $SITEGEN_CONFIG or sitegen.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(
		migrateCmd(opts),
		listCmd(opts),
		inspectCmd(opts),
		resetContentCmd(opts),
		generateCmd(opts),
		renderCmd(opts),
		createSiteCmd(opts),
		tokenCmd(opts),
	)
	return root
}

// openDB connects without the cache and generation pipeline
func (o *options) openDB(ctx context.Context) (*postgres.DB, error) {
	return postgres.New(ctx, app.DatabaseConfig(o.cfg))
}

func (o *options) openApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, o.cfg, nil)
}

func normalizeDomain(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func actorName() string {
	if u := os.Getenv("USER"); u != "" {
		return "sitectl:" + u
	}
	return "sitectl"
}
