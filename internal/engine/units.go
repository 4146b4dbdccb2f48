package engine

import (
	"context"
	"fmt"
	"strconv"

	"github.com/trly/quadlet-sync/internal/connection"
	"github.com/trly/quadlet-sync/internal/dependency"
	"github.com/trly/quadlet-sync/internal/quadlet"
)

func (e *Engine) serviceOf(id connection.ID, quadletID string) (connection.Connection, quadlet.Quadlet, error) {
	conn, q, err := e.lookup(id, quadletID)
	if err != nil {
		return conn, q, err
	}
	if !q.HasService() {
		return conn, q, fmt.Errorf("quadlet %s has no generated service", q.Path)
	}
	return conn, q, nil
}

// Start starts the quadlet's service and refreshes statuses.
func (e *Engine) Start(ctx context.Context, id connection.ID, quadletID string) error {
	return e.unitAction(ctx, "start", id, quadletID)
}

// Stop stops the quadlet's service and refreshes statuses.
func (e *Engine) Stop(ctx context.Context, id connection.ID, quadletID string) error {
	return e.unitAction(ctx, "stop", id, quadletID)
}

// Restart restarts the quadlet's service and refreshes statuses.
func (e *Engine) Restart(ctx context.Context, id connection.ID, quadletID string) error {
	return e.unitAction(ctx, "restart", id, quadletID)
}

func (e *Engine) unitAction(ctx context.Context, action string, id connection.ID, quadletID string) error {
	conn, q, err := e.serviceOf(id, quadletID)
	if err != nil {
		return err
	}
	w, err := e.workers.Get(ctx, conn)
	if err != nil {
		return err
	}
	if err := systemctl(ctx, w, action, q.Service); err != nil {
		return fmt.Errorf("failed to %s %s: %w", action, q.Service, err)
	}
	e.logger.Info("Unit "+action+" requested", "connection", id.String(), "unit", q.Service)

	err = e.refreshConnection(ctx, id)
	e.notify()
	return err
}

// Logs returns the last lines of the quadlet's journal.
func (e *Engine) Logs(ctx context.Context, id connection.ID, quadletID string, lines int) (string, error) {
	conn, q, err := e.serviceOf(id, quadletID)
	if err != nil {
		return "", err
	}
	w, err := e.workers.Get(ctx, conn)
	if err != nil {
		return "", err
	}
	args := []string{"--no-pager", "-u", q.Service}
	if lines > 0 {
		args = append(args, "-n", strconv.Itoa(lines))
	}
	res, err := w.JournalctlExec(ctx, args...)
	if err != nil {
		return "", err
	}
	return res.Stdout, nil
}

// Dependencies builds the Requires= graph of a connection's quadlets.
func (e *Engine) Dependencies(id connection.ID) (*dependency.UnitGraph, error) {
	quadlets, err := e.Quadlets(id)
	if err != nil {
		return nil, err
	}
	return dependency.BuildUnitGraph(quadlets)
}
