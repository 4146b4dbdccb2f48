package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/trly/quadlet-sync/internal/connection"
	"github.com/trly/quadlet-sync/internal/quadlet"
	"github.com/trly/quadlet-sync/internal/remote"
)

// Collect runs the generator dry-run on every started connection in turn,
// replaces each connection's quadlets and refreshes their status. Consumers
// are notified once, after all connections were processed.
func (e *Engine) Collect(ctx context.Context) error {
	e.collectMu.Lock()
	defer e.collectMu.Unlock()

	start := e.clock.Now()
	outcome := Outcome{Operation: "collect"}
	defer func() {
		outcome.Duration = e.clock.Since(start)
		e.record(outcome)
	}()

	conns, err := e.registry.Started(ctx)
	if err != nil {
		outcome.Err = fmt.Errorf("failed to list connections: %w", err)
		return outcome.Err
	}
	e.forget(conns)

	var errs []error
	for _, conn := range conns {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		n, err := e.collectConnection(ctx, conn)
		outcome.Quadlets += n
		if err != nil {
			e.logger.Error("Collection failed", "connection", conn.ID.String(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", conn.ID, err))
			continue
		}
		outcome.Connections++
	}

	e.notify()
	outcome.Err = errors.Join(errs...)
	return outcome.Err
}

// forget drops stored state for connections that are no longer started.
func (e *Engine) forget(started []connection.Connection) {
	live := make(map[connection.ID]struct{}, len(started))
	for _, c := range started {
		live[c.ID] = struct{}{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for id := range e.states {
		if _, ok := live[id]; !ok {
			e.logger.Debug("Dropping stopped connection", "connection", id.String())
			delete(e.states, id)
		}
	}
}

func (e *Engine) collectConnection(ctx context.Context, conn connection.Connection) (int, error) {
	w, err := e.workers.Get(ctx, conn)
	if err != nil {
		return 0, err
	}
	res, err := w.QuadletExec(ctx, "-dryrun")
	if err != nil {
		return 0, fmt.Errorf("quadlet dry-run failed: %w", err)
	}
	if res.ExitCode != 0 {
		e.logger.Debug("Quadlet dry-run reported failures", "connection", conn.ID.String(), "exitCode", res.ExitCode)
	}

	quadlets := quadlet.ParseDryRun(quadlet.DryRunOutput{Stdout: res.Stdout, Stderr: res.Stderr},
		e.logger.With("connection", conn.ID.String()))

	e.mu.Lock()
	e.states[conn.ID] = &ConnectionState{
		Connection:   conn,
		ID:           conn.ID,
		Quadlets:     quadlets,
		Synchronized: e.clock.Now(),
	}
	e.mu.Unlock()

	e.logger.Debug("Collected quadlets", "connection", conn.ID.String(), "count", len(quadlets))

	if len(quadlets) == 0 {
		return 0, nil
	}
	return len(quadlets), e.refreshConnection(ctx, conn.ID)
}

// RefreshStatuses queries systemd for the activation state of every tracked
// unit, one batched call per connection.
func (e *Engine) RefreshStatuses(ctx context.Context) error {
	e.mu.Lock()
	ids := make([]connection.ID, 0, len(e.states))
	for id := range e.states {
		ids = append(ids, id)
	}
	e.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := e.refreshConnection(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
		}
	}
	e.notify()
	return errors.Join(errs...)
}

func (e *Engine) refreshConnection(ctx context.Context, id connection.ID) error {
	e.mu.Lock()
	st, ok := e.states[id]
	if !ok {
		e.mu.Unlock()
		return &NotFoundError{Connection: id}
	}
	conn := st.Connection
	var quadletIDs, units []string
	for _, q := range st.Quadlets {
		if q.Tracked() {
			quadletIDs = append(quadletIDs, q.ID)
			units = append(units, q.Service)
		}
	}
	e.mu.Unlock()

	if len(units) == 0 {
		return nil
	}

	w, err := e.workers.Get(ctx, conn)
	if err != nil {
		return err
	}
	res, err := w.SystemctlExec(ctx, append([]string{"is-active", "--output=json"}, units...)...)
	if err != nil {
		return fmt.Errorf("systemctl is-active failed: %w", err)
	}

	states := statusLines(res.Stdout)
	if len(states) != len(units) {
		return &IntegrityError{Connection: id, Expected: len(units), Got: len(states)}
	}

	byID := make(map[string]quadlet.State, len(quadletIDs))
	for i, qid := range quadletIDs {
		byID[qid] = quadlet.StateInactive
		if states[i] == "active" {
			byID[qid] = quadlet.StateActive
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	// The list may have been replaced while systemctl ran; ids are per collection.
	if st, ok := e.states[id]; ok {
		for i := range st.Quadlets {
			q := &st.Quadlets[i]
			if s, ok := byID[q.ID]; ok && q.State != quadlet.StateDeleting {
				q.State = s
			}
		}
	}
	return nil
}

func statusLines(stdout string) []string {
	var out []string
	for _, line := range strings.Split(stdout, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, strings.Trim(line, `"`))
		}
	}
	return out
}

// systemctl runs systemctl and turns a non-zero exit into an error.
func systemctl(ctx context.Context, w *remote.Worker, args ...string) error {
	res, err := w.SystemctlExec(ctx, args...)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return &remote.ExecError{
			Command:  res.Command,
			ExitCode: res.ExitCode,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
		}
	}
	return nil
}
