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
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/trly/quadlet-sync/internal/connection"
)

// UnitCommand runs a systemctl action against a quadlet's service.
type UnitCommand struct {
	action string
}

// NewUnitCommand creates a command for action (start, stop or restart).
func NewUnitCommand(action string) *UnitCommand {
	return &UnitCommand{action: action}
}

// GetCobraCommand returns the cobra command for the unit action.
func (c *UnitCommand) GetCobraCommand() *cobra.Command {
	return &cobra.Command{
		Use:   c.action + " QUADLET",
		Short: cases.Title(language.English).String(c.action) + " the service generated for a quadlet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Run(cmd.Context(), getApp(cmd), args[0], cmd.OutOrStdout())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// Run executes the unit action.
func (c *UnitCommand) Run(ctx context.Context, app *App, ref string, w io.Writer) error {
	id, err := app.Connection(ctx)
	if err != nil {
		return err
	}
	app.Collect(ctx)

	q, err := app.Resolve(id, ref)
	if err != nil {
		return err
	}
	if err := c.apply(ctx, app, id, q.ID); err != nil {
		return err
	}

	if structured(app.OutputFormat) {
		return PrintOutput(w, app.OutputFormat, OperationResult{
			Success:    true,
			Connection: id.String(),
			Message:    c.action,
			Items:      []string{q.Service},
		})
	}
	_, err = fmt.Fprintf(w, "%s %s\n", c.past(), q.Service)
	return err
}

func (c *UnitCommand) apply(ctx context.Context, app *App, id connection.ID, quadletID string) error {
	switch c.action {
	case "start":
		return app.Engine.Start(ctx, id, quadletID)
	case "stop":
		return app.Engine.Stop(ctx, id, quadletID)
	case "restart":
		return app.Engine.Restart(ctx, id, quadletID)
	default:
		return fmt.Errorf("unsupported action %q", c.action)
	}
}

func (c *UnitCommand) past() string {
	switch c.action {
	case "stop":
		return "stopped"
	default:
		return c.action + "ed"
	}
}
