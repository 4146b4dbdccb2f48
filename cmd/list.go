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
	"slices"
	"time"

	"github.com/SerhiiCho/timeago/v3"
	"github.com/fatih/color"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"

	"github.com/trly/quadlet-sync/internal/engine"
	"github.com/trly/quadlet-sync/internal/quadlet"
)

// ListOptions holds list command options.
type ListOptions struct {
	Type string
	All  bool
}

// ListCommand represents the list command.
type ListCommand struct{}

// NewListCommand creates a new ListCommand.
func NewListCommand() *ListCommand {
	return &ListCommand{}
}

var allowedTypes = func() []string {
	out := []string{"all"}
	for _, t := range quadlet.Types {
		out = append(out, string(t))
	}
	return out
}()

// GetCobraCommand returns the cobra command for listing quadlets.
func (c *ListCommand) GetCobraCommand() *cobra.Command {
	var opts ListOptions

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the quadlets found on a connection",
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return validateType(opts.Type)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.Run(cmd.Context(), getApp(cmd), opts, cmd.OutOrStdout())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	listCmd.Flags().StringVarP(&opts.Type, "type", "t", "all", "Type of quadlet to list (container, image, pod, volume, network, kube, build, all)")
	listCmd.Flags().BoolVarP(&opts.All, "all-connections", "A", false, "List quadlets of every started connection")
	_ = listCmd.RegisterFlagCompletionFunc("type", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return allowedTypes, cobra.ShellCompDirectiveNoFileComp
	})

	return listCmd
}

// Run executes the list command.
func (c *ListCommand) Run(ctx context.Context, app *App, opts ListOptions, w io.Writer) error {
	app.Collect(ctx)

	states := app.Engine.Snapshot()
	if !opts.All {
		id, err := app.Connection(ctx)
		if err != nil {
			return err
		}
		states = slices.DeleteFunc(states, func(st engine.ConnectionState) bool { return st.ID != id })
		if len(states) == 0 {
			return &engine.NotFoundError{Connection: id}
		}
	}

	rows := make([]QuadletRow, 0)
	for _, st := range states {
		for _, q := range st.Quadlets {
			if opts.Type != "" && opts.Type != "all" && string(q.Type) != opts.Type {
				continue
			}
			rows = append(rows, newQuadletRow(st, q))
		}
	}

	if structured(app.OutputFormat) {
		return PrintOutput(w, app.OutputFormat, rows)
	}

	headerFmt := color.New(color.FgGreen, color.Underline).SprintfFunc()
	columnFmt := color.New(color.FgYellow).SprintfFunc()
	tbl := table.New("ID", "Name", "Type", "Service", "State", "Connection", "Synchronized").WithWriter(w)
	tbl.WithHeaderFormatter(headerFmt).WithFirstColumnFormatter(columnFmt)

	for _, st := range states {
		synced := since(st.Synchronized)
		for _, q := range st.Quadlets {
			if opts.Type != "" && opts.Type != "all" && string(q.Type) != opts.Type {
				continue
			}
			tbl.AddRow(shortID(q.ID), q.Name(), q.Type.Title(), orDash(q.Service), stateColor(q.State), st.ID.String(), synced)
		}
	}
	tbl.Print()
	return nil
}

func newQuadletRow(st engine.ConnectionState, q quadlet.Quadlet) QuadletRow {
	files := make([]string, 0, len(q.Files))
	for _, f := range q.Files {
		files = append(files, f.Path)
	}
	return QuadletRow{
		Connection:   st.ID.String(),
		ID:           q.ID,
		Name:         q.Name(),
		Path:         q.Path,
		Type:         string(q.Type),
		Kind:         string(q.Kind),
		Service:      q.Service,
		State:        string(q.State),
		Requires:     q.Requires,
		Files:        files,
		Synchronized: st.Synchronized.Format(time.RFC3339),
	}
}

func validateType(t string) error {
	if t == "" {
		return nil
	}
	for _, allowed := range allowedTypes {
		if t == allowed {
			return nil
		}
	}
	return fmt.Errorf("invalid quadlet type: %s, allowed types are: %v", t, allowedTypes)
}

func since(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	s, err := timeago.Parse(t)
	if err != nil {
		return t.Format(time.RFC3339)
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func stateColor(s quadlet.State) string {
	switch s {
	case quadlet.StateActive:
		return color.GreenString(string(s))
	case quadlet.StateInactive:
		return color.YellowString(string(s))
	case quadlet.StateError:
		return color.RedString(string(s))
	case quadlet.StateDeleting:
		return color.MagentaString(string(s))
	default:
		return string(s)
	}
}
