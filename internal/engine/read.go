package engine

import (
	"context"
	"strings"

	"github.com/trly/quadlet-sync/internal/connection"
	"github.com/trly/quadlet-sync/internal/quadlet"
)

// Read returns the source file of a quadlet from the connection. The quadlet
// is looked up in the snapshot; the disk is never scanned.
func (e *Engine) Read(ctx context.Context, id connection.ID, quadletID string) (string, error) {
	conn, q, err := e.lookup(id, quadletID)
	if err != nil {
		return "", err
	}
	w, err := e.workers.Get(ctx, conn)
	if err != nil {
		return "", err
	}
	return w.Executor().Read(ctx, q.Path)
}

// KubeYAMLPath resolves the Yaml= reference of a kube quadlet.
func (e *Engine) KubeYAMLPath(id connection.ID, quadletID string) (string, error) {
	_, q, err := e.lookup(id, quadletID)
	if err != nil {
		return "", err
	}
	p, err := quadlet.KubeYAMLPath(q)
	if err != nil {
		return "", err
	}
	if !strings.HasSuffix(p, ".yaml") && !strings.HasSuffix(p, ".yml") {
		return "", &UnsafePathError{Path: p, Reason: "not a yaml file"}
	}
	return p, nil
}

// KubeYAML returns the kubernetes YAML referenced by a kube quadlet.
func (e *Engine) KubeYAML(ctx context.Context, id connection.ID, quadletID string) (string, error) {
	p, err := e.KubeYAMLPath(id, quadletID)
	if err != nil {
		return "", err
	}
	conn, _, err := e.lookup(id, quadletID)
	if err != nil {
		return "", err
	}
	w, err := e.workers.Get(ctx, conn)
	if err != nil {
		return "", err
	}
	return w.Executor().Read(ctx, p)
}
