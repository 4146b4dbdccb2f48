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

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/trly/quadlet-sync/internal/connection"
	"github.com/trly/quadlet-sync/internal/validate"
)

// DoctorReport is the structured output of the doctor command.
type DoctorReport struct {
	Connection string                 `json:"connection" yaml:"connection"`
	Checks     []validate.CheckResult `json:"checks" yaml:"checks"`
	Failed     int                    `json:"failed" yaml:"failed"`
}

// DoctorCommand checks that a connection can run quadlets.
type DoctorCommand struct{}

// NewDoctorCommand creates a new DoctorCommand.
func NewDoctorCommand() *DoctorCommand {
	return &DoctorCommand{}
}

// GetCobraCommand returns the cobra command for doctor operations.
func (c *DoctorCommand) GetCobraCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that a connection can run quadlets",
		Long: `Check that a connection can run quadlets.

The doctor command checks, on the selected connection:
- systemd availability
- the podman version (4.4 or newer ships the quadlet generator)
- the location of the quadlet generator
- the user and admin quadlet directories`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.Run(cmd.Context(), getApp(cmd), cmd.OutOrStdout())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// Run executes the doctor command.
func (c *DoctorCommand) Run(ctx context.Context, app *App, w io.Writer) error {
	id, err := app.Connection(ctx)
	if err != nil {
		return err
	}
	conn, err := connection.Find(ctx, app.Registry, id)
	if err != nil {
		return err
	}
	worker, err := app.Pool.Get(ctx, conn)
	if err != nil {
		return err
	}

	dirs := []string{app.Config.UserQuadletDir}
	if conn.Rootful {
		dirs = []string{app.Config.AdminQuadletDir}
	}
	results := validate.NewValidator(app.Logger).SystemRequirements(ctx, worker, dirs...)
	report := DoctorReport{Connection: id.String(), Checks: results, Failed: validate.Failed(results)}

	if structured(app.OutputFormat) {
		if err := PrintOutput(w, app.OutputFormat, report); err != nil {
			return err
		}
	} else {
		ok := color.New(color.FgGreen).SprintFunc()
		bad := color.New(color.FgRed).SprintFunc()
		for _, r := range results {
			mark := ok("✓")
			if !r.Passed {
				mark = bad("✗")
			}
			fmt.Fprintf(w, "%s %s: %s\n", mark, r.Name, r.Message)
			if !r.Passed {
				for _, s := range r.Suggestions {
					fmt.Fprintf(w, "    - %s\n", s)
				}
			}
		}
	}

	if report.Failed > 0 {
		return fmt.Errorf("doctor found %d issues on %s", report.Failed, id)
	}
	return nil
}
