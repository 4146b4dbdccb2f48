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

// LogsCommand prints the journal of a quadlet's service.
type LogsCommand struct{}

// NewLogsCommand creates a new LogsCommand.
func NewLogsCommand() *LogsCommand {
	return &LogsCommand{}
}

// GetCobraCommand returns the cobra command for reading logs.
func (c *LogsCommand) GetCobraCommand() *cobra.Command {
	var lines int

	logsCmd := &cobra.Command{
		Use:   "logs QUADLET",
		Short: "Show the journal of the service generated for a quadlet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Run(cmd.Context(), getApp(cmd), args[0], lines, cmd.OutOrStdout())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	logsCmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of journal lines to show, 0 for all")
	return logsCmd
}

// Run executes the logs command.
func (c *LogsCommand) Run(ctx context.Context, app *App, ref string, lines int, w io.Writer) error {
	id, err := app.Connection(ctx)
	if err != nil {
		return err
	}
	app.Collect(ctx)

	q, err := app.Resolve(id, ref)
	if err != nil {
		return err
	}
	out, err := app.Engine.Logs(ctx, id, q.ID, lines)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, out)
	return err
}
