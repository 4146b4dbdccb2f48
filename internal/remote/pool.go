package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/trly/quadlet-sync/internal/config"
	"github.com/trly/quadlet-sync/internal/connection"
	"github.com/trly/quadlet-sync/internal/execx"
	"github.com/trly/quadlet-sync/internal/log"
)

// Factory creates a ready Worker for a connection.
type Factory func(ctx context.Context, conn connection.Connection) (*Worker, error)

// NewFactory returns a Factory building native workers on runner and SSH
// workers with settings' timeouts.
func NewFactory(settings *config.Settings, runner execx.Runner, clk clock.Clock, logger log.Logger) Factory {
	return func(ctx context.Context, conn connection.Connection) (*Worker, error) {
		switch conn.Kind {
		case connection.KindNative:
			exec, err := NewNativeExecutor(conn, runner, logger)
			if err != nil {
				return nil, err
			}
			return NewWorker(conn, exec, settings.GeneratorFallback, logger), nil
		case connection.KindSSH:
			exec, err := NewSSHExecutor(conn, SSHOptions{
				Clock:          clk,
				ReconnectDelay: settings.ReconnectDelay,
				DialTimeout:    settings.DialTimeout,
				Logger:         logger,
			})
			if err != nil {
				return nil, err
			}
			if err := exec.Init(ctx); err != nil {
				_ = exec.Close()
				return nil, err
			}
			return NewWorker(conn, exec, settings.GeneratorFallback, logger), nil
		default:
			return nil, fmt.Errorf("unsupported connection kind %q for %s", conn.Kind, conn.ID)
		}
	}
}

// Pool holds one Worker per connection, created on first use.
type Pool struct {
	factory Factory

	mu      sync.Mutex
	workers map[connection.ID]*Worker
	closed  bool
}

// NewPool creates an empty pool.
func NewPool(factory Factory) *Pool {
	return &Pool{factory: factory, workers: make(map[connection.ID]*Worker)}
}

// Get returns the worker for conn, creating it if needed.
func (p *Pool) Get(ctx context.Context, conn connection.Connection) (*Worker, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrDisposed
	}
	if w, ok := p.workers[conn.ID]; ok {
		return w, nil
	}
	w, err := p.factory(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker for %s: %w", conn.ID, err)
	}
	p.workers[conn.ID] = w
	return w, nil
}

// Close closes every worker. The pool cannot be reused.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	var errs []error
	for id, w := range p.workers {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
		}
		delete(p.workers, id)
	}
	return errors.Join(errs...)
}
