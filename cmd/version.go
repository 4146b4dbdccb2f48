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

package cmd

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/trly/quadlet-sync/internal/connection"
)

// Build information, set through -ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// VersionInfo describes the binary and, when reachable, the podman
// installation of the selected connection.
type VersionInfo struct {
	Version    string `json:"version" yaml:"version"`
	Commit     string `json:"commit" yaml:"commit"`
	Date       string `json:"date" yaml:"date"`
	GoVersion  string `json:"goVersion" yaml:"goVersion"`
	Connection string `json:"connection,omitempty" yaml:"connection,omitempty"`
	Podman     string `json:"podman,omitempty" yaml:"podman,omitempty"`
	Generator  string `json:"generator,omitempty" yaml:"generator,omitempty"`
}

// VersionCommand prints version information.
type VersionCommand struct{}

// NewVersionCommand creates a new VersionCommand.
func NewVersionCommand() *VersionCommand {
	return &VersionCommand{}
}

// GetCobraCommand returns the cobra command for version.
func (c *VersionCommand) GetCobraCommand() *cobra.Command {
	var local bool

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.Run(cmd.Context(), getApp(cmd), local, cmd.OutOrStdout())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	versionCmd.Flags().BoolVar(&local, "client", false, "Only print the client version")
	return versionCmd
}

// Run executes the version command.
func (c *VersionCommand) Run(ctx context.Context, app *App, clientOnly bool, w io.Writer) error {
	info := VersionInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
	}
	if !clientOnly {
		c.describeConnection(ctx, app, &info)
	}

	if structured(app.OutputFormat) {
		return PrintOutput(w, app.OutputFormat, info)
	}

	fmt.Fprintf(w, "quadlet-sync %s\n", info.Version)
	fmt.Fprintf(w, "  commit:     %s\n", info.Commit)
	fmt.Fprintf(w, "  built:      %s\n", info.Date)
	fmt.Fprintf(w, "  go:         %s\n", info.GoVersion)
	if info.Connection != "" {
		fmt.Fprintf(w, "  connection: %s\n", info.Connection)
		fmt.Fprintf(w, "  podman:     %s\n", info.Podman)
		fmt.Fprintf(w, "  generator:  %s\n", info.Generator)
	}
	return nil
}

// describeConnection fills in podman details; an unreachable connection
// only costs a debug line.
func (c *VersionCommand) describeConnection(ctx context.Context, app *App, info *VersionInfo) {
	id, err := app.Connection(ctx)
	if err != nil {
		app.Logger.Debug("No connection for version details", "error", err)
		return
	}
	conn, err := connection.Find(ctx, app.Registry, id)
	if err != nil {
		app.Logger.Debug("Connection not started", "connection", id.String(), "error", err)
		return
	}
	worker, err := app.Pool.Get(ctx, conn)
	if err != nil {
		app.Logger.Debug("Connection unreachable", "connection", id.String(), "error", err)
		return
	}

	info.Connection = id.String()
	info.Podman = worker.PodmanVersion(ctx).String()
	info.Generator = worker.QuadletBinary(ctx)
}
