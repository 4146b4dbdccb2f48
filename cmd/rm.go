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

	"github.com/spf13/cobra"
)

// RmCommand removes quadlet source files.
type RmCommand struct{}

// NewRmCommand creates a new RmCommand.
func NewRmCommand() *RmCommand {
	return &RmCommand{}
}

// GetCobraCommand returns the cobra command for removing quadlets.
func (c *RmCommand) GetCobraCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm QUADLET...",
		Short: "Remove quadlet source files and reload systemd",
		Long: `Remove quadlet source files and reload systemd.

Every QUADLET is resolved before anything is deleted; one unknown quadlet
aborts the whole removal.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Run(cmd.Context(), getApp(cmd), args, cmd.OutOrStdout())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// Run executes the rm command.
func (c *RmCommand) Run(ctx context.Context, app *App, refs []string, w io.Writer) error {
	id, err := app.Connection(ctx)
	if err != nil {
		return err
	}
	app.Collect(ctx)

	ids := make([]string, 0, len(refs))
	paths := make([]string, 0, len(refs))
	for _, ref := range refs {
		q, err := app.Resolve(id, ref)
		if err != nil {
			return err
		}
		ids = append(ids, q.ID)
		paths = append(paths, q.Path)
	}

	if err := app.Engine.Remove(ctx, id, ids); err != nil {
		// Let the resynchronization finish before the process exits.
		if werr := app.Engine.Wait(); werr != nil {
			app.Logger.Debug("Resynchronization after failed remove", "error", werr)
		}
		return err
	}

	if structured(app.OutputFormat) {
		return PrintOutput(w, app.OutputFormat, OperationResult{Success: true, Connection: id.String(), Items: paths})
	}
	for _, p := range paths {
		if _, err := fmt.Fprintf(w, "removed %s\n", p); err != nil {
			return err
		}
	}
	return nil
}
