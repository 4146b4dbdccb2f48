// Package fakerunner provides a fake implementation of execx.Runner for testing.
package fakerunner

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/trly/quadlet-sync/internal/execx"
)

// Runner is a fake implementation of execx.Runner for testing.
type Runner struct {
	mu      sync.Mutex
	results map[string]execx.Result
	errors  map[string]error
	calls   []Call
}

// Call represents a captured command execution call.
type Call struct {
	Name string
	Args []string
	Env  map[string]string
}

// New creates a new fake runner.
func New() *Runner {
	return &Runner{
		results: make(map[string]execx.Result),
		errors:  make(map[string]error),
		calls:   []Call{},
	}
}

// SetOutput sets the stdout returned for a specific command.
func (r *Runner) SetOutput(name string, args []string, stdout string) {
	r.SetResult(name, args, execx.Result{Stdout: stdout}, nil)
}

// SetResult sets the full result and error for a specific command.
func (r *Runner) SetResult(name string, args []string, res execx.Result, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := makeKey(name, args)
	r.results[key] = res
	if err != nil {
		r.errors[key] = err
	} else {
		delete(r.errors, key)
	}
}

// SetError sets the error for a specific command.
func (r *Runner) SetError(name string, args []string, err error) {
	r.SetResult(name, args, execx.Result{}, err)
}

// Run implements execx.Runner.
func (r *Runner) Run(_ context.Context, name string, args []string, opts execx.Options) (execx.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, Call{Name: name, Args: args, Env: opts.Env})

	key := makeKey(name, args)
	res := r.results[key]

	if opts.Stdout != nil && res.Stdout != "" {
		_, _ = opts.Stdout.Write([]byte(res.Stdout))
	}
	if opts.Stderr != nil && res.Stderr != "" {
		_, _ = opts.Stderr.Write([]byte(res.Stderr))
	}

	if err, exists := r.errors[key]; exists {
		return res, err
	}

	// Unconfigured commands succeed with empty output.
	return res, nil
}

// GetCalls returns all captured command calls.
func (r *Runner) GetCalls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// CallCount returns how many times the exact command line was run.
func (r *Runner) CallCount(name string, args ...string) int {
	key := makeKey(name, args)
	count := 0
	for _, c := range r.GetCalls() {
		if makeKey(c.Name, c.Args) == key {
			count++
		}
	}
	return count
}

// Reset clears all stored outputs, errors, and calls.
func (r *Runner) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = make(map[string]execx.Result)
	r.errors = make(map[string]error)
	r.calls = []Call{}
}

func makeKey(name string, args []string) string {
	return fmt.Sprintf("%s %s", name, strings.Join(args, " "))
}
