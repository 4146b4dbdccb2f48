package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/trly/quadlet-sync/internal/connection"
	"github.com/trly/quadlet-sync/internal/quadlet"
)

// Remove deletes the source files of the given quadlets and reloads systemd.
// Every id is resolved before anything is touched; one unknown id aborts the
// whole batch. On failure a background collection is started and the error
// returned without waiting for it.
func (e *Engine) Remove(ctx context.Context, id connection.ID, quadletIDs []string) error {
	if len(quadletIDs) == 0 {
		return ErrNoIDs
	}

	conn, targets, err := e.markDeleting(id, quadletIDs)
	if err != nil {
		return err
	}
	e.notify()

	if err := e.remove(ctx, conn, targets); err != nil {
		e.logger.Error("Remove failed, resynchronizing", "connection", id.String(), "error", err)
		e.resync()
		return err
	}
	return nil
}

func (e *Engine) markDeleting(id connection.ID, quadletIDs []string) (connection.Connection, []quadlet.Quadlet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.states[id]
	if !ok {
		return connection.Connection{}, nil, &NotFoundError{Connection: id}
	}

	indexes := make([]int, 0, len(quadletIDs))
	seen := make(map[string]struct{}, len(quadletIDs))
	for _, qid := range quadletIDs {
		if _, dup := seen[qid]; dup {
			continue
		}
		seen[qid] = struct{}{}
		i := slices.IndexFunc(st.Quadlets, func(q quadlet.Quadlet) bool { return q.ID == qid })
		if i < 0 {
			return connection.Connection{}, nil, &NotFoundError{Connection: id, QuadletID: qid}
		}
		indexes = append(indexes, i)
	}

	targets := make([]quadlet.Quadlet, 0, len(indexes))
	for _, i := range indexes {
		st.Quadlets[i].State = quadlet.StateDeleting
		targets = append(targets, st.Quadlets[i].Clone())
	}
	return st.Connection, targets, nil
}

func (e *Engine) remove(ctx context.Context, conn connection.Connection, targets []quadlet.Quadlet) error {
	w, err := e.workers.Get(ctx, conn)
	if err != nil {
		return err
	}

	// Sequential: concurrent deletes on one remote filesystem are unsafe.
	for _, q := range targets {
		if err := w.Executor().Rm(ctx, q.Path); err != nil {
			return err
		}
		e.drop(conn.ID, q.ID)
		e.logger.Info("Removed quadlet", "connection", conn.ID.String(), "path", q.Path)
	}
	e.notify()

	if err := systemctl(ctx, w, "daemon-reload"); err != nil {
		return fmt.Errorf("daemon-reload failed: %w", err)
	}
	return nil
}

func (e *Engine) drop(id connection.ID, quadletID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if st, ok := e.states[id]; ok {
		st.Quadlets = slices.DeleteFunc(st.Quadlets, func(q quadlet.Quadlet) bool { return q.ID == quadletID })
	}
}
