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
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"

	"github.com/trly/quadlet-sync/internal/dependency"
)

// DependencyRow describes one unit of the Requires= graph.
type DependencyRow struct {
	Unit       string   `json:"unit" yaml:"unit"`
	Requires   []string `json:"requires" yaml:"requires"`
	RequiredBy []string `json:"requiredBy" yaml:"requiredBy"`
	External   bool     `json:"external" yaml:"external"`
}

// DepsCommand prints the Requires= graph of a connection in start order.
type DepsCommand struct{}

// NewDepsCommand creates a new DepsCommand.
func NewDepsCommand() *DepsCommand {
	return &DepsCommand{}
}

// GetCobraCommand returns the cobra command for showing dependencies.
func (c *DepsCommand) GetCobraCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Show quadlet dependencies in start order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.Run(cmd.Context(), getApp(cmd), cmd.OutOrStdout())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// Run executes the deps command.
func (c *DepsCommand) Run(ctx context.Context, app *App, w io.Writer) error {
	id, err := app.Connection(ctx)
	if err != nil {
		return err
	}
	app.Collect(ctx)

	g, err := app.Engine.Dependencies(id)
	if err != nil {
		return err
	}
	order, err := g.StartOrder()
	if errors.Is(err, dependency.ErrCycle) {
		app.Logger.Warn("Requires= graph has a cycle, listing units alphabetically", "connection", id.String())
		order = g.Units()
	} else if err != nil {
		return err
	}

	rows := make([]DependencyRow, 0, len(order))
	for _, unit := range order {
		requires, err := g.Dependencies(unit)
		if err != nil {
			return err
		}
		requiredBy, err := g.Dependents(unit)
		if err != nil {
			return err
		}
		rows = append(rows, DependencyRow{Unit: unit, Requires: requires, RequiredBy: requiredBy, External: g.External(unit)})
	}

	if structured(app.OutputFormat) {
		return PrintOutput(w, app.OutputFormat, rows)
	}

	headerFmt := color.New(color.FgGreen, color.Underline).SprintfFunc()
	columnFmt := color.New(color.FgYellow).SprintfFunc()
	tbl := table.New("Unit", "Requires", "Required By", "External").WithWriter(w)
	tbl.WithHeaderFormatter(headerFmt).WithFirstColumnFormatter(columnFmt)
	for _, r := range rows {
		external := ""
		if r.External {
			external = "yes"
		}
		tbl.AddRow(r.Unit, orDash(strings.Join(r.Requires, ", ")), orDash(strings.Join(r.RequiredBy, ", ")), external)
	}
	tbl.Print()
	return nil
}
