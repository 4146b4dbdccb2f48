// Package remote runs commands and file operations against a container-engine
// connection, either on the local machine or over SSH and SFTP.
package remote

import (
	"bytes"
	"context"
	"strings"
	"sync"

	"github.com/trly/quadlet-sync/internal/log"
)

// ExecOptions tunes a single Exec call. Cancellation travels in the context.
type ExecOptions struct {
	Args []string
	Env  map[string]string
	// Logger, when set, receives every output line while the command runs.
	Logger log.Logger
}

// ExecResult is the output of a command.
type ExecResult struct {
	Command  string
	Stdout   string
	Stderr   string
	ExitCode int
}

// Executor is the capability surface shared by the native and SSH transports.
// Paths may start with ~, which is expanded to the target user's home.
type Executor interface {
	Read(ctx context.Context, path string) (string, error)
	// Write creates parent directories as needed.
	Write(ctx context.Context, path, content string) error
	// Rm removes a single file.
	Rm(ctx context.Context, path string) error
	RealPath(ctx context.Context, path string) (string, error)
	// Exec returns *ExecError when the command ran and exited non-zero.
	Exec(ctx context.Context, command string, opts ExecOptions) (*ExecResult, error)
	Close() error
}

// commandLine renders command and args for logs and errors.
func commandLine(command string, args []string) string {
	if len(args) == 0 {
		return command
	}
	return command + " " + strings.Join(args, " ")
}

// lineLogger forwards complete output lines to a logger.
type lineLogger struct {
	mu     sync.Mutex
	logger log.Logger
	stream string
	buf    bytes.Buffer
}

func newLineLogger(logger log.Logger, stream string) *lineLogger {
	if logger == nil {
		return nil
	}
	return &lineLogger{logger: logger, stream: stream}
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf.Write(p)
	for {
		line, err := l.buf.ReadString('\n')
		if err != nil {
			// Keep the partial line for the next write.
			l.buf.Reset()
			l.buf.WriteString(line)
			break
		}
		l.emit(strings.TrimRight(line, "\r\n"))
	}
	return len(p), nil
}

// Flush emits a trailing line without newline.
func (l *lineLogger) Flush() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.buf.Len() > 0 {
		l.emit(l.buf.String())
		l.buf.Reset()
	}
}

func (l *lineLogger) emit(line string) {
	if l.stream == "stderr" {
		l.logger.Warn(line, "stream", l.stream)
		return
	}
	l.logger.Info(line, "stream", l.stream)
}
