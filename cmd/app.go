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
	"fmt"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"

	"github.com/trly/quadlet-sync/internal/config"
	"github.com/trly/quadlet-sync/internal/connection"
	"github.com/trly/quadlet-sync/internal/engine"
	"github.com/trly/quadlet-sync/internal/execx"
	"github.com/trly/quadlet-sync/internal/log"
	"github.com/trly/quadlet-sync/internal/quadlet"
	"github.com/trly/quadlet-sync/internal/remote"
)

// App holds the application dependencies for command line interface.
type App struct {
	Logger         log.Logger
	Config         *config.Settings
	ConfigProvider config.Provider
	Runner         execx.Runner
	Clock          clock.Clock
	Registry       connection.Registry
	Pool           *remote.Pool
	Engine         *engine.Engine

	OutputFormat   string
	ConnectionFlag string

	mu        sync.Mutex
	onChange  func(engine.Snapshot)
	onOutcome func(engine.Outcome)
	owned     bool // closed by the root command after execution
}

// NewApp creates a new App with all dependencies initialized.
func NewApp(logger log.Logger, configProv config.Provider, runner execx.Runner, clk clock.Clock) (*App, error) {
	cfg := configProv.GetConfig()

	static, err := connection.NewStaticRegistry(cfg)
	if err != nil {
		return nil, err
	}
	var registry connection.Registry = static
	if cfg.DiscoverConnections {
		registry = connection.MultiRegistry{static, connection.NewPodmanRegistry(runner, logger)}
	}

	app := &App{
		Logger:         logger,
		Config:         cfg,
		ConfigProvider: configProv,
		Runner:         runner,
		Clock:          clk,
		Registry:       registry,
		Pool:           remote.NewPool(remote.NewFactory(cfg, runner, clk, logger)),
		OutputFormat:   "text",
	}
	app.Engine = engine.New(engine.Options{
		Registry:        registry,
		Workers:         app.Pool,
		Notifier:        engine.NotifierFunc(app.changed),
		Recorder:        engine.RecorderFunc(app.recorded),
		Clock:           clk,
		Logger:          logger,
		UserQuadletDir:  cfg.UserQuadletDir,
		AdminQuadletDir: cfg.AdminQuadletDir,
	})
	return app, nil
}

// Close stops background work and closes every connection.
func (a *App) Close() error {
	return errors.Join(a.Engine.Close(), a.Pool.Close())
}

// OnChange registers a function receiving every engine snapshot.
func (a *App) OnChange(fn func(engine.Snapshot)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onChange = fn
}

// OnOutcome registers a function receiving every collection outcome.
func (a *App) OnOutcome(fn func(engine.Outcome)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onOutcome = fn
}

func (a *App) changed(s engine.Snapshot) {
	a.mu.Lock()
	fn := a.onChange
	a.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

func (a *App) recorded(o engine.Outcome) {
	a.mu.Lock()
	fn := a.onOutcome
	a.mu.Unlock()
	a.Logger.Debug("Collection finished", "connections", o.Connections, "quadlets", o.Quadlets, "duration", o.Duration, "error", o.Err)
	if fn != nil {
		fn(o)
	}
}

// Connection returns the connection selected with --connection, or the
// first started connection.
func (a *App) Connection(ctx context.Context) (connection.ID, error) {
	if a.ConnectionFlag != "" {
		return connection.ParseID(a.ConnectionFlag)
	}
	conns, err := a.Registry.Started(ctx)
	if err != nil {
		return connection.ID{}, err
	}
	if len(conns) == 0 {
		return connection.ID{}, errors.New("no started connections")
	}
	return conns[0].ID, nil
}

// Collect refreshes the engine. Failures on individual connections are
// logged; callers find out through lookups on the affected connection.
func (a *App) Collect(ctx context.Context) {
	if err := a.Engine.Collect(ctx); err != nil {
		a.Logger.Warn("Collection incomplete", "error", err)
	}
}

// Resolve finds a quadlet on id by snapshot id, source path, file name or
// service name.
func (a *App) Resolve(id connection.ID, ref string) (quadlet.Quadlet, error) {
	qs, err := a.Engine.Quadlets(id)
	if err != nil {
		return quadlet.Quadlet{}, err
	}

	var matches []quadlet.Quadlet
	for _, q := range qs {
		if q.ID == ref || q.Path == ref {
			return q, nil
		}
		if q.Name() == ref || (q.HasService() && (q.Service == ref || strings.TrimSuffix(q.Service, ".service") == ref)) {
			matches = append(matches, q)
		}
	}
	switch len(matches) {
	case 0:
		return quadlet.Quadlet{}, &engine.NotFoundError{Connection: id, QuadletID: ref}
	case 1:
		return matches[0], nil
	default:
		return quadlet.Quadlet{}, fmt.Errorf("%q matches %d quadlets on %s, use the path or id", ref, len(matches), id)
	}
}

// getApp retrieves the App from the command context.
func getApp(cmd *cobra.Command) *App {
	return cmd.Context().Value(appContextKey).(*App)
}
