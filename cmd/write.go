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
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/trly/quadlet-sync/internal/engine"
)

// WriteOptions holds write command options.
type WriteOptions struct {
	Admin    bool
	NoReload bool
	Dest     string
}

// WriteCommand copies local files into a connection's quadlet directory.
type WriteCommand struct{}

// NewWriteCommand creates a new WriteCommand.
func NewWriteCommand() *WriteCommand {
	return &WriteCommand{}
}

// GetCobraCommand returns the cobra command for writing quadlet files.
func (c *WriteCommand) GetCobraCommand() *cobra.Command {
	var opts WriteOptions

	writeCmd := &cobra.Command{
		Use:   "write FILE...",
		Short: "Write local files into the quadlet directory of a connection",
		Long: `Write local files into the quadlet directory of a connection.

Files land in the user quadlet directory, or the admin directory with --admin,
then systemd is reloaded and quadlets are collected again. Quadlet files and
YAML are checked for syntax errors before anything is written.`,
		Args: cobra.MinimumNArgs(1),
		PreRunE: func(_ *cobra.Command, args []string) error {
			if opts.Dest != "" && len(args) > 1 {
				return errors.New("--dest can only be used with a single file")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Run(cmd.Context(), getApp(cmd), args, opts, cmd.OutOrStdout())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	writeCmd.Flags().BoolVar(&opts.Admin, "admin", false, "Write into the admin quadlet directory")
	writeCmd.Flags().BoolVar(&opts.NoReload, "no-reload", false, "Skip daemon-reload and collection")
	writeCmd.Flags().StringVar(&opts.Dest, "dest", "", "Destination name or path for a single file")

	return writeCmd
}

// Run executes the write command.
func (c *WriteCommand) Run(ctx context.Context, app *App, paths []string, opts WriteOptions, w io.Writer) error {
	id, err := app.Connection(ctx)
	if err != nil {
		return err
	}

	files := make([]engine.File, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p) // #nosec G304 - files are named on the command line
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}
		name := filepath.Base(p)
		if opts.Dest != "" {
			name = opts.Dest
		}
		files = append(files, engine.File{Name: name, Content: string(data)})
	}

	dests, err := app.Engine.WriteIntoMachine(ctx, id, files, engine.WriteOptions{Admin: opts.Admin, SkipReload: opts.NoReload})
	if werr := app.Engine.Wait(); werr != nil {
		app.Logger.Debug("Background resynchronization", "error", werr)
	}
	if err != nil {
		return err
	}

	if structured(app.OutputFormat) {
		return PrintOutput(w, app.OutputFormat, OperationResult{Success: true, Connection: id.String(), Items: dests})
	}
	for _, d := range dests {
		if _, err := fmt.Fprintf(w, "wrote %s\n", d); err != nil {
			return err
		}
	}
	return nil
}
