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
	"io"

	"github.com/spf13/cobra"
)

// KubeCommand prints the kubernetes YAML referenced by a kube quadlet.
type KubeCommand struct{}

// NewKubeCommand creates a new KubeCommand.
func NewKubeCommand() *KubeCommand {
	return &KubeCommand{}
}

// GetCobraCommand returns the cobra command for printing kube YAML.
func (c *KubeCommand) GetCobraCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "kube QUADLET",
		Short: "Print the YAML file referenced by a .kube quadlet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Run(cmd.Context(), getApp(cmd), args[0], cmd.OutOrStdout())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// Run executes the kube command.
func (c *KubeCommand) Run(ctx context.Context, app *App, ref string, w io.Writer) error {
	id, err := app.Connection(ctx)
	if err != nil {
		return err
	}
	app.Collect(ctx)

	q, err := app.Resolve(id, ref)
	if err != nil {
		return err
	}
	p, err := app.Engine.KubeYAMLPath(id, q.ID)
	if err != nil {
		return err
	}
	content, err := app.Engine.KubeYAML(ctx, id, q.ID)
	if err != nil {
		return err
	}
	return printFile(w, app.OutputFormat, FileOutput{Connection: id.String(), Path: p, Content: content})
}
