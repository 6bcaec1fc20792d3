package loop

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/machbase/neo-polarmap/mods/logging"
)

var ErrClosed = errors.New("loop closed")

// Stopper cancels a scheduled job.
type Stopper interface {
	Stop()
}

// Loop runs jobs one at a time on a single goroutine.
// Jobs and timer callbacks never run concurrently with each other,
// so the state they share needs no locking.
type Loop struct {
	name      string
	el        *eventloop.EventLoop
	log       logging.Log
	closeOnce sync.Once
	closed    chan struct{}
}

func New(name string) *Loop {
	l := &Loop{
		name:   name,
		el:     eventloop.NewEventLoop(eventloop.EnableConsole(false)),
		log:    logging.GetLog("loop"),
		closed: make(chan struct{}),
	}
	l.el.Start()
	return l
}

func (l *Loop) Name() string { return l.name }

// Done is closed when the loop is closed.
func (l *Loop) Done() <-chan struct{} { return l.closed }

func (l *Loop) guard(fn func()) func(*goja.Runtime) {
	return func(*goja.Runtime) {
		defer func() {
			if r := recover(); r != nil {
				l.log.Errorf("%s panic: %v\n%s", l.name, r, string(debug.Stack()))
			}
		}()
		fn()
	}
}

// Post queues fn, it returns false if the loop is closed.
func (l *Loop) Post(fn func()) bool {
	return l.el.RunOnLoop(l.guard(fn))
}

// Call runs fn on the loop and waits for its result.
// It must not be called from a job of the same loop.
func (l *Loop) Call(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	posted := l.el.RunOnLoop(func(*goja.Runtime) {
		var err error
		defer func() {
			if r := recover(); r != nil {
				l.log.Errorf("%s panic: %v\n%s", l.name, r, string(debug.Stack()))
				err = fmt.Errorf("panic: %v", r)
			}
			done <- err
		}()
		err = fn()
	})
	if !posted {
		return ErrClosed
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.closed:
		// a job that was queued before close may still have finished
		select {
		case err := <-done:
			return err
		default:
			return ErrClosed
		}
	}
}

type timer struct {
	el *eventloop.EventLoop
	t  *eventloop.Timer
}

func (t *timer) Stop() {
	if t.t != nil {
		t.el.ClearTimeout(t.t)
	}
}

type interval struct {
	el *eventloop.EventLoop
	i  *eventloop.Interval
}

func (i *interval) Stop() {
	if i.i != nil {
		i.el.ClearInterval(i.i)
	}
}

// AfterFunc runs fn on the loop once d has elapsed.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Stopper {
	return &timer{el: l.el, t: l.el.SetTimeout(l.guard(fn), d)}
}

// Every runs fn on the loop every d until the returned Stopper is stopped.
func (l *Loop) Every(d time.Duration, fn func()) Stopper {
	return &interval{el: l.el, i: l.el.SetInterval(l.guard(fn), d)}
}

// Close stops the loop and clears its timers, queued jobs are discarded.
// It must not be called from a job of the loop.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		close(l.closed)
		l.el.Terminate()
	})
}
