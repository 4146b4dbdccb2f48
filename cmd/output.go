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
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

var outputFormats = []string{"text", "json", "yaml"}

func validateOutputFormat(format string) error {
	for _, f := range outputFormats {
		if strings.EqualFold(format, f) {
			return nil
		}
	}
	if strings.EqualFold(format, "yml") {
		return nil
	}
	return fmt.Errorf("unsupported output format: %s", format)
}

// structured reports whether format asks for machine-readable output.
func structured(format string) bool {
	f := strings.ToLower(format)
	return f == "json" || f == "yaml" || f == "yml"
}

// PrintOutput formats and prints data according to the specified output format.
func PrintOutput(w io.Writer, format string, data interface{}) error {
	switch strings.ToLower(format) {
	case "json":
		return printJSON(w, data)
	case "yaml", "yml":
		return printYAML(w, data)
	case "text", "":
		return printText(w, data)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// printJSON outputs data as JSON.
func printJSON(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// printYAML outputs data as YAML.
func printYAML(w io.Writer, data interface{}) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return err
	}
	return encoder.Close()
}

// printText is the fallback for commands without a dedicated text layout.
func printText(w io.Writer, data interface{}) error {
	_, err := fmt.Fprintf(w, "%+v\n", data)
	return err
}

// OperationResult represents the result of an operation that can be output in structured format.
type OperationResult struct {
	Success    bool     `json:"success" yaml:"success"`
	Connection string   `json:"connection" yaml:"connection"`
	Message    string   `json:"message,omitempty" yaml:"message,omitempty"`
	Items      []string `json:"items,omitempty" yaml:"items,omitempty"`
}

// QuadletRow is one line of quadlet listing output.
type QuadletRow struct {
	Connection   string   `json:"connection" yaml:"connection"`
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	Path         string   `json:"path" yaml:"path"`
	Type         string   `json:"type" yaml:"type"`
	Kind         string   `json:"kind" yaml:"kind"`
	Service      string   `json:"service,omitempty" yaml:"service,omitempty"`
	State        string   `json:"state" yaml:"state"`
	Requires     []string `json:"requires,omitempty" yaml:"requires,omitempty"`
	Files        []string `json:"files,omitempty" yaml:"files,omitempty"`
	Synchronized string   `json:"synchronized" yaml:"synchronized"`
}
