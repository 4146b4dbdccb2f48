// Package engine keeps, per connection, the quadlets reported by the podman
// generator in sync with systemd and applies changes to them.
package engine

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"

	"github.com/trly/quadlet-sync/internal/config"
	"github.com/trly/quadlet-sync/internal/connection"
	"github.com/trly/quadlet-sync/internal/log"
	"github.com/trly/quadlet-sync/internal/quadlet"
	"github.com/trly/quadlet-sync/internal/remote"
)

// Workers hands out the worker serving a connection. *remote.Pool implements it.
type Workers interface {
	Get(ctx context.Context, conn connection.Connection) (*remote.Worker, error)
}

// Notifier receives a snapshot whenever the engine's state changes.
type Notifier interface {
	Notify(Snapshot)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Snapshot)

// Notify implements Notifier.
func (f NotifierFunc) Notify(s Snapshot) { f(s) }

// Outcome describes one finished collection.
type Outcome struct {
	Operation   string
	Connections int
	Quadlets    int
	Duration    time.Duration
	Err         error
}

// Recorder receives an Outcome for every collection, failed ones included.
type Recorder interface {
	Record(Outcome)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(Outcome)

// Record implements Recorder.
func (f RecorderFunc) Record(o Outcome) { f(o) }

// ConnectionState is the stored view of one connection.
type ConnectionState struct {
	Connection   connection.Connection `json:"-" yaml:"-"`
	ID           connection.ID         `json:"connection" yaml:"connection"`
	Quadlets     []quadlet.Quadlet     `json:"quadlets" yaml:"quadlets"`
	Synchronized time.Time             `json:"synchronized" yaml:"synchronized"`
}

// Snapshot is a copy of the engine state, ordered by connection.
type Snapshot []ConnectionState

// Options configures an Engine.
type Options struct {
	Registry connection.Registry
	Workers  Workers
	Notifier Notifier
	Recorder Recorder
	Clock    clock.Clock
	Logger   log.Logger

	UserQuadletDir  string
	AdminQuadletDir string
}

// Engine holds the per-connection quadlet store.
type Engine struct {
	registry connection.Registry
	workers  Workers
	notifier Notifier
	recorder Recorder
	clock    clock.Clock
	logger   log.Logger
	userDir  string
	adminDir string

	// collectMu serializes collections; mu guards states.
	collectMu sync.Mutex
	mu        sync.Mutex
	states    map[connection.ID]*ConnectionState

	ctx    context.Context
	cancel context.CancelFunc
	bgMu   sync.Mutex
	bg     *errgroup.Group
}

// New creates an engine. Registry and Workers are required.
func New(opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNop()
	}
	if opts.UserQuadletDir == "" {
		opts.UserQuadletDir = config.DefaultUserQuadletDir
	}
	if opts.AdminQuadletDir == "" {
		opts.AdminQuadletDir = config.DefaultAdminQuadletDir
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		registry: opts.Registry,
		workers:  opts.Workers,
		notifier: opts.Notifier,
		recorder: opts.Recorder,
		clock:    opts.Clock,
		logger:   opts.Logger,
		userDir:  opts.UserQuadletDir,
		adminDir: opts.AdminQuadletDir,
		states:   make(map[connection.ID]*ConnectionState),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Snapshot returns a deep copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	out := make(Snapshot, 0, len(e.states))
	for _, st := range e.states {
		c := *st
		c.Quadlets = make([]quadlet.Quadlet, len(st.Quadlets))
		for i, q := range st.Quadlets {
			c.Quadlets[i] = q.Clone()
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

// Quadlets returns a copy of the quadlets stored for one connection.
func (e *Engine) Quadlets(id connection.ID) ([]quadlet.Quadlet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.states[id]
	if !ok {
		return nil, &NotFoundError{Connection: id}
	}
	out := make([]quadlet.Quadlet, len(st.Quadlets))
	for i, q := range st.Quadlets {
		out[i] = q.Clone()
	}
	return out, nil
}

func (e *Engine) notify() {
	if e.notifier == nil {
		return
	}
	e.notifier.Notify(e.Snapshot())
}

func (e *Engine) record(o Outcome) {
	if e.recorder == nil {
		return
	}
	e.recorder.Record(o)
}

// lookup returns the connection and a copy of the quadlet with the given id.
func (e *Engine) lookup(id connection.ID, quadletID string) (connection.Connection, quadlet.Quadlet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.states[id]
	if !ok {
		return connection.Connection{}, quadlet.Quadlet{}, &NotFoundError{Connection: id}
	}
	i := slices.IndexFunc(st.Quadlets, func(q quadlet.Quadlet) bool { return q.ID == quadletID })
	if i < 0 {
		return connection.Connection{}, quadlet.Quadlet{}, &NotFoundError{Connection: id, QuadletID: quadletID}
	}
	return st.Connection, st.Quadlets[i].Clone(), nil
}

// connection resolves id from the store, then from the registry.
func (e *Engine) connection(ctx context.Context, id connection.ID) (connection.Connection, error) {
	e.mu.Lock()
	st, ok := e.states[id]
	e.mu.Unlock()
	if ok {
		return st.Connection, nil
	}
	conn, err := connection.Find(ctx, e.registry, id)
	if err != nil {
		return connection.Connection{}, errors.Join(&NotFoundError{Connection: id}, err)
	}
	return conn, nil
}

// resync starts a tracked background collection.
func (e *Engine) resync() {
	e.bgMu.Lock()
	defer e.bgMu.Unlock()

	if e.ctx.Err() != nil {
		return
	}
	if e.bg == nil {
		e.bg = new(errgroup.Group)
	}
	e.bg.Go(func() error {
		err := e.Collect(e.ctx)
		if err != nil {
			e.logger.Warn("Background resynchronization failed", "error", err)
		}
		return err
	})
}

// Wait blocks until background tasks started so far have finished and
// returns the first error among them.
func (e *Engine) Wait() error {
	e.bgMu.Lock()
	g := e.bg
	e.bg = nil
	e.bgMu.Unlock()

	if g == nil {
		return nil
	}
	return g.Wait()
}

// Close cancels background tasks and waits for them.
func (e *Engine) Close() error {
	e.cancel()
	err := e.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
