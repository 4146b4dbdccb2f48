package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/coreos/go-systemd/v22/unit"
	"gopkg.in/yaml.v3"

	"github.com/trly/quadlet-sync/internal/connection"
	"github.com/trly/quadlet-sync/internal/quadlet"
)

// File is a file to write onto a connection.
type File struct {
	// Name is a file name, a path relative to the quadlet directory, or an
	// absolute or ~ path used as is.
	Name    string
	Content string
}

// WriteOptions tunes WriteIntoMachine.
type WriteOptions struct {
	// Admin places relative names under the admin quadlet directory.
	Admin bool
	// SkipReload skips the daemon-reload and collection after writing.
	SkipReload bool
}

// WriteIntoMachine writes files onto the connection one after another, then
// reloads systemd and collects. Quadlet and YAML files are checked for syntax
// before anything is written.
func (e *Engine) WriteIntoMachine(ctx context.Context, id connection.ID, files []File, opts WriteOptions) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}

	dests := make([]string, len(files))
	for i, f := range files {
		dest, err := e.Destination(f.Name, opts.Admin)
		if err != nil {
			return nil, err
		}
		if err := validateContent(dest, f.Content); err != nil {
			return nil, err
		}
		dests[i] = dest
	}

	conn, err := e.connection(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := e.write(ctx, conn, files, dests, opts); err != nil {
		e.logger.Error("Write failed, resynchronizing", "connection", id.String(), "error", err)
		e.resync()
		return nil, err
	}
	if opts.SkipReload {
		return dests, nil
	}
	return dests, e.Collect(ctx)
}

func (e *Engine) write(ctx context.Context, conn connection.Connection, files []File, dests []string, opts WriteOptions) error {
	w, err := e.workers.Get(ctx, conn)
	if err != nil {
		return err
	}
	for i, f := range files {
		if err := w.Executor().Write(ctx, dests[i], f.Content); err != nil {
			return err
		}
		e.logger.Info("Wrote quadlet file", "connection", conn.ID.String(), "path", dests[i])
	}

	if opts.SkipReload {
		return nil
	}
	if err := systemctl(ctx, w, "daemon-reload"); err != nil {
		return fmt.Errorf("daemon-reload failed: %w", err)
	}
	return nil
}

// Destination computes where a file named name is written.
func (e *Engine) Destination(name string, admin bool) (string, error) {
	if strings.TrimSpace(name) == "" || strings.HasSuffix(name, "/") {
		return "", &InvalidDestinationError{Name: name, Reason: "empty file name"}
	}

	dest := name
	// Executors expand only "~" and "~/..."; other names are relative to the quadlet dir.
	if !path.IsAbs(name) && !strings.HasPrefix(name, "~/") {
		dir := e.userDir
		if admin {
			dir = e.adminDir
		}
		dest = path.Join(dir, name)
	}

	base := path.Base(dest)
	if base == "" || base == "." || base == "/" || base == "~" {
		return "", &InvalidDestinationError{Name: name, Reason: "empty file name"}
	}
	if ext := path.Ext(base); ext == "" || ext == "." {
		return "", &InvalidDestinationError{Name: name, Reason: "missing extension"}
	}
	return dest, nil
}

// validateContent rejects quadlet files systemd cannot parse and malformed YAML.
func validateContent(dest, content string) error {
	ext := strings.TrimPrefix(path.Ext(dest), ".")
	switch {
	case isQuadletType(ext):
		if _, err := unit.DeserializeOptions(strings.NewReader(content)); err != nil {
			return fmt.Errorf("invalid unit file %s: %w", dest, err)
		}
	case ext == "yaml" || ext == "yml":
		dec := yaml.NewDecoder(strings.NewReader(content))
		for {
			var doc any
			err := dec.Decode(&doc)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return fmt.Errorf("invalid yaml %s: %w", dest, err)
			}
		}
	}
	return nil
}

func isQuadletType(ext string) bool {
	for _, t := range quadlet.Types {
		if string(t) == ext {
			return true
		}
	}
	return false
}
