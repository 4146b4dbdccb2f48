package remote

import (
	"context"

	"github.com/Masterminds/semver/v3"

	"github.com/trly/quadlet-sync/internal/connection"
	"github.com/trly/quadlet-sync/internal/log"
)

// Worker runs the systemd, generator and podman commands for one connection.
// Every command goes through the connection's Executor.
type Worker struct {
	conn    connection.Connection
	exec    Executor
	quadlet *QuadletBinaryResolver
	podman  *PodmanVersionResolver
	logger  log.Logger
}

// NewWorker wraps exec. generatorFallback is used when the quadlet
// generator cannot be located.
func NewWorker(conn connection.Connection, exec Executor, generatorFallback string, logger log.Logger) *Worker {
	logger = logger.With("connection", conn.ID.String())
	return &Worker{
		conn:    conn,
		exec:    exec,
		quadlet: NewQuadletBinaryResolver(exec, generatorFallback, logger),
		podman:  NewPodmanVersionResolver(exec, logger),
		logger:  logger,
	}
}

// Connection returns the connection served by the worker.
func (w *Worker) Connection() connection.Connection {
	return w.conn
}

// Executor returns the underlying executor.
func (w *Worker) Executor() Executor {
	return w.exec
}

// scoped prepends flag for rootless connections.
func (w *Worker) scoped(flag string, args []string) []string {
	if w.conn.Rootful {
		return args
	}
	return append([]string{flag}, args...)
}

// SystemctlExec runs systemctl. A non-zero exit is returned as a result
// with its exit code, since is-active and friends report state that way.
func (w *Worker) SystemctlExec(ctx context.Context, args ...string) (*ExecResult, error) {
	return tolerant(w.exec.Exec(ctx, "systemctl", ExecOptions{Args: w.scoped("--user", args)}))
}

// QuadletExec runs the quadlet generator with the same exit handling as
// SystemctlExec.
func (w *Worker) QuadletExec(ctx context.Context, args ...string) (*ExecResult, error) {
	binary := w.quadlet.Resolve(ctx)
	return tolerant(w.exec.Exec(ctx, binary, ExecOptions{Args: w.scoped("-user", args)}))
}

// JournalctlExec runs journalctl.
func (w *Worker) JournalctlExec(ctx context.Context, args ...string) (*ExecResult, error) {
	return w.exec.Exec(ctx, "journalctl", ExecOptions{Args: w.scoped("--user", args)})
}

// PodmanExec runs podman.
func (w *Worker) PodmanExec(ctx context.Context, args ...string) (*ExecResult, error) {
	return w.exec.Exec(ctx, "podman", ExecOptions{Args: args})
}

// PodmanVersion returns the cached podman version.
func (w *Worker) PodmanVersion(ctx context.Context) *semver.Version {
	return w.podman.Resolve(ctx)
}

// QuadletBinary returns the resolved generator path.
func (w *Worker) QuadletBinary(ctx context.Context) string {
	return w.quadlet.Resolve(ctx)
}

// Close closes the executor.
func (w *Worker) Close() error {
	return w.exec.Close()
}

func tolerant(res *ExecResult, err error) (*ExecResult, error) {
	if ee, ok := AsExecError(err); ok {
		return ee.Result(), nil
	}
	return res, err
}
