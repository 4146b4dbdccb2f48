/*
Copyright © 2025 Travis Lyons travis.lyons@gmail.com

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/

// Package cmd provides the command line interface for quadlet-sync
package cmd

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"

	"github.com/trly/quadlet-sync/internal/config"
	"github.com/trly/quadlet-sync/internal/execx"
	"github.com/trly/quadlet-sync/internal/log"
)

type contextKey string

const appContextKey contextKey = "app"

// GlobalOptions holds the persistent flags shared by every command.
type GlobalOptions struct {
	ConfigFile   string
	Verbose      bool
	Output       string
	LogFormat    string
	Connection   string
	Discover     bool
	UserQuadlets string
}

// RootCommand represents the root command for quadlet-sync CLI.
type RootCommand struct {
	opts GlobalOptions
	// newApp builds the App once flags are parsed; tests replace it.
	newApp func(ctx context.Context, opts GlobalOptions) (*App, error)
}

// NewRootCommand creates a RootCommand wired to the real system.
func NewRootCommand() *RootCommand {
	return &RootCommand{newApp: buildApp}
}

// GetCobraCommand returns the cobra root command for quadlet-sync CLI.
func (c *RootCommand) GetCobraCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "quadlet-sync",
		Short: "quadlet-sync discovers and manages podman quadlets across connections.",
		Long: `quadlet-sync discovers the quadlets generated by podman's quadlet generator on
local and SSH-reachable podman connections, tracks their systemd state, and
writes, removes, starts and stops them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			app, ok := ctx.Value(appContextKey).(*App)
			if !ok {
				var err error
				if app, err = c.newApp(ctx, c.opts); err != nil {
					return err
				}
				cmd.SetContext(context.WithValue(ctx, appContextKey, app))
			}
			if cmd.Flags().Changed("output") {
				app.OutputFormat = c.opts.Output
			}
			if cmd.Flags().Changed("connection") {
				app.ConnectionFlag = c.opts.Connection
			}
			return validateOutputFormat(app.OutputFormat)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if app, ok := cmd.Context().Value(appContextKey).(*App); ok && app.owned {
				return app.Close()
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.opts.ConfigFile, "config", "", "Path to the configuration file")
	flags.BoolVarP(&c.opts.Verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVarP(&c.opts.Output, "output", "o", "text", "Output format (text, json, yaml)")
	flags.StringVar(&c.opts.LogFormat, "log-format", "", "Log format (text, json)")
	flags.StringVarP(&c.opts.Connection, "connection", "c", "", "Connection to act on, as provider/name")
	flags.BoolVar(&c.opts.Discover, "discover", false, "Also use connections known to the podman CLI")
	flags.StringVar(&c.opts.UserQuadlets, "quadlet-dir", "", "Override the user quadlet directory")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return outputFormats, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(
		NewListCommand().GetCobraCommand(),
		NewCatCommand().GetCobraCommand(),
		NewKubeCommand().GetCobraCommand(),
		NewRmCommand().GetCobraCommand(),
		NewWriteCommand().GetCobraCommand(),
		NewUnitCommand("start").GetCobraCommand(),
		NewUnitCommand("stop").GetCobraCommand(),
		NewUnitCommand("restart").GetCobraCommand(),
		NewLogsCommand().GetCobraCommand(),
		NewDepsCommand().GetCobraCommand(),
		NewWatchCommand().GetCobraCommand(),
		NewDoctorCommand().GetCobraCommand(),
		NewVersionCommand().GetCobraCommand(),
	)

	return rootCmd
}

// buildApp loads configuration and wires the production App.
func buildApp(_ context.Context, opts GlobalOptions) (*App, error) {
	provider := config.NewDefaultConfigProvider()
	if opts.ConfigFile != "" {
		provider.SetConfigFilePath(opts.ConfigFile)
	}
	cfg, err := provider.InitConfig()
	if err != nil {
		return nil, err
	}

	if opts.Verbose {
		cfg.Verbose = true
	}
	if opts.LogFormat != "" {
		cfg.LogFormat = opts.LogFormat
	}
	if opts.Discover {
		cfg.DiscoverConnections = true
	}
	if opts.UserQuadlets != "" {
		cfg.UserQuadletDir = opts.UserQuadlets
	}

	log.Init(log.Options{Verbose: cfg.Verbose, Format: cfg.LogFormat})
	logger := log.GetLogger()
	if used := provider.ConfigFileUsed(); used != "" {
		logger.Debug("Using config file", "path", used)
	}

	app, err := NewApp(logger, provider, execx.NewRealRunner(), clock.New())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	app.OutputFormat = opts.Output
	app.ConnectionFlag = opts.Connection
	app.owned = true
	return app, nil
}
