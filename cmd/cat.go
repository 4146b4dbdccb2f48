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

// FileOutput is a file read from a connection.
type FileOutput struct {
	Connection string `json:"connection" yaml:"connection"`
	Path       string `json:"path" yaml:"path"`
	Content    string `json:"content" yaml:"content"`
}

// CatCommand prints a quadlet source file.
type CatCommand struct{}

// NewCatCommand creates a new CatCommand.
func NewCatCommand() *CatCommand {
	return &CatCommand{}
}

// GetCobraCommand returns the cobra command for printing a quadlet file.
func (c *CatCommand) GetCobraCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cat QUADLET",
		Short: "Print the source file of a quadlet",
		Long: `Print the source file of a quadlet.

QUADLET is a snapshot id, a source path, a file name or a service name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Run(cmd.Context(), getApp(cmd), args[0], cmd.OutOrStdout())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// Run executes the cat command.
func (c *CatCommand) Run(ctx context.Context, app *App, ref string, w io.Writer) error {
	id, err := app.Connection(ctx)
	if err != nil {
		return err
	}
	app.Collect(ctx)

	q, err := app.Resolve(id, ref)
	if err != nil {
		return err
	}
	content, err := app.Engine.Read(ctx, id, q.ID)
	if err != nil {
		return err
	}
	return printFile(w, app.OutputFormat, FileOutput{Connection: id.String(), Path: q.Path, Content: content})
}

func printFile(w io.Writer, format string, f FileOutput) error {
	if structured(format) {
		return PrintOutput(w, format, f)
	}
	_, err := fmt.Fprint(w, f.Content)
	return err
}
