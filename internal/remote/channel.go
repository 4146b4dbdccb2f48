package remote

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/trly/quadlet-sync/internal/log"
)

// link owns one live connection of type T and re-establishes it after an
// unexpected loss. Close is final.
type link[T any] struct {
	name    string
	open    func(ctx context.Context) (T, error)
	wait    func(T) error
	shut    func(T) error
	timeout time.Duration
	logger  log.Logger
	retry   *reconnector

	connectMu sync.Mutex // serializes dials

	mu     sync.Mutex
	cur    T
	live   bool
	closed bool
	wg     sync.WaitGroup
}

// connect dials unless a connection is already live.
func (l *link[T]) connect(ctx context.Context) error {
	l.connectMu.Lock()
	defer l.connectMu.Unlock()

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrDisposed
	}
	if l.live {
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()

	v, err := l.open(ctx)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		_ = l.shut(v)
		return ErrDisposed
	}
	l.cur, l.live = v, true
	l.wg.Add(1)
	go l.watch(v)

	l.logger.Debug("Channel connected", "channel", l.name)
	return nil
}

// get returns the live connection, dialing when none is up.
func (l *link[T]) get(ctx context.Context) (T, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		var zero T
		return zero, ErrDisposed
	}
	if l.live {
		v := l.cur
		l.mu.Unlock()
		return v, nil
	}
	l.mu.Unlock()

	if err := l.connect(ctx); err != nil {
		var zero T
		return zero, err
	}
	return l.get(ctx)
}

func (l *link[T]) watch(v T) {
	defer l.wg.Done()

	err := l.wait(v)

	l.mu.Lock()
	l.live = false
	var zero T
	l.cur = zero
	closed := l.closed
	l.mu.Unlock()

	_ = l.shut(v)
	if closed {
		return
	}
	l.logger.Warn("Channel lost, scheduling reconnect", "channel", l.name, "error", err)
	l.scheduleReconnect()
}

func (l *link[T]) scheduleReconnect() {
	l.retry.schedule(func() {
		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		defer cancel()

		err := l.connect(ctx)
		switch {
		case err == nil:
			l.logger.Info("Channel reconnected", "channel", l.name)
		case errors.Is(err, ErrDisposed):
		default:
			l.logger.Warn("Reconnect failed", "channel", l.name, "error", err)
			l.scheduleReconnect()
		}
	})
}

// close cancels any pending reconnect and closes the live connection.
func (l *link[T]) close() error {
	l.retry.stop()

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	v, live := l.cur, l.live
	l.live = false
	l.mu.Unlock()

	var err error
	if live {
		err = l.shut(v)
	}
	l.wg.Wait()
	return err
}
