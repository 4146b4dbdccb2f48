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
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"

	"github.com/trly/quadlet-sync/internal/engine"
)

// NotifyFunc sends a state string to the service manager.
type NotifyFunc func(state string) (bool, error)

// WatchdogFunc reports the watchdog interval requested by the service
// manager, zero when the watchdog is disabled.
type WatchdogFunc func() (time.Duration, error)

// OutcomeOutput is the structured form of one collection pass.
type OutcomeOutput struct {
	Time        time.Time `json:"time" yaml:"time"`
	Connections int       `json:"connections" yaml:"connections"`
	Quadlets    int       `json:"quadlets" yaml:"quadlets"`
	Duration    string    `json:"duration" yaml:"duration"`
	Error       string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// WatchCommand collects quadlets on an interval until interrupted.
type WatchCommand struct {
	notify   NotifyFunc
	watchdog WatchdogFunc
}

// NewWatchCommand creates a WatchCommand that reports to systemd when
// running as a notify service.
func NewWatchCommand() *WatchCommand {
	return &WatchCommand{
		notify: func(state string) (bool, error) {
			return daemon.SdNotify(false, state)
		},
		watchdog: func() (time.Duration, error) {
			return daemon.SdWatchdogEnabled(false)
		},
	}
}

// GetCobraCommand returns the cobra command for watching connections.
func (c *WatchCommand) GetCobraCommand() *cobra.Command {
	var interval time.Duration

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Collect quadlets from every started connection on an interval",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := getApp(cmd)
			if !cmd.Flags().Changed("interval") {
				interval = app.Config.WatchInterval
			}
			return c.Run(cmd.Context(), app, interval, cmd.OutOrStdout())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	watchCmd.Flags().DurationVar(&interval, "interval", 0, "Time between collections, defaults to watchInterval from the config")
	return watchCmd
}

// Run collects once, signals readiness and keeps collecting until ctx is done.
func (c *WatchCommand) Run(ctx context.Context, app *App, interval time.Duration, w io.Writer) error {
	if interval <= 0 {
		return fmt.Errorf("invalid interval %s", interval)
	}

	app.OnOutcome(func(o engine.Outcome) {
		if err := printOutcome(w, app.OutputFormat, app.Clock.Now(), o); err != nil {
			app.Logger.Warn("Failed to print collection outcome", "error", err)
		}
	})
	defer app.OnOutcome(nil)

	ticker := app.Clock.Ticker(interval)
	defer ticker.Stop()

	var watchdog <-chan time.Time
	if every, err := c.watchdog(); err != nil {
		app.Logger.Warn("Failed to read watchdog interval", "error", err)
	} else if every > 0 {
		wd := app.Clock.Ticker(every / 2)
		defer wd.Stop()
		watchdog = wd.C
	}

	app.Collect(ctx)
	c.send(app, daemon.SdNotifyReady)

	for {
		select {
		case <-ctx.Done():
			c.send(app, daemon.SdNotifyStopping)
			return nil
		case <-watchdog:
			c.send(app, daemon.SdNotifyWatchdog)
		case <-ticker.C:
			app.Collect(ctx)
		}
	}
}

func (c *WatchCommand) send(app *App, state string) {
	if _, err := c.notify(state); err != nil {
		app.Logger.Debug("Service manager notification failed", "state", state, "error", err)
	}
}

func printOutcome(w io.Writer, format string, now time.Time, o engine.Outcome) error {
	out := OutcomeOutput{
		Time:        now,
		Connections: o.Connections,
		Quadlets:    o.Quadlets,
		Duration:    o.Duration.Round(time.Millisecond).String(),
	}
	if o.Err != nil {
		out.Error = o.Err.Error()
	}

	switch strings.ToLower(format) {
	case "json":
		return printJSON(w, out)
	case "yaml", "yml":
		if _, err := fmt.Fprintln(w, "---"); err != nil {
			return err
		}
		return printYAML(w, out)
	}

	line := fmt.Sprintf("%s collected %d quadlets from %d connections in %s",
		now.Format(time.RFC3339), out.Quadlets, out.Connections, out.Duration)
	if out.Error != "" {
		line += ": " + out.Error
	}
	_, err := fmt.Fprintln(w, line)
	return err
}
