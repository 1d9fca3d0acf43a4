package gpuimage

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Context binds a Device to the single goroutine allowed to use it. Work
// reaches that goroutine as queued tasks; each time the goroutine runs them it
// opens a new Frame, and only the open Frame may issue device calls.
//
// A Context runs in one of two modes. Loop mode (off-screen surfaces) owns a
// goroutine locked to its OS thread. External mode (the live View) is driven
// by the host's draw callback through enter.
type Context struct {
	id  uuid.UUID
	dev Device

	current atomic.Pointer[Frame]
	tasks   taskQueue

	wake     chan struct{}
	quit     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
	closed   atomic.Bool
	looping  bool
}

// Frame is the token for one turn of a context goroutine. It is only valid
// while that turn is running; graphics calls made with any other frame are
// rejected with ErrContextNotCurrent.
type Frame struct {
	ctx   *Context
	goctx context.Context
}

type frameKey struct{}

func newContext(dev Device) *Context {
	return &Context{
		id:      uuid.New(),
		dev:     dev,
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// ID returns the context identifier used in logs.
func (c *Context) ID() uuid.UUID { return c.id }

// Device returns the device owned by the context.
func (c *Context) Device() Device { return c.dev }

// start launches the context goroutine (loop mode).
func (c *Context) start() {
	c.looping = true
	go c.loop()
}

func (c *Context) loop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(c.stopped)

	for {
		select {
		case <-c.wake:
			c.enter(nil)
		case <-c.quit:
			c.enter(nil)
			return
		}
	}
}

// enter opens a fresh frame, drains queued tasks, runs fn, and retires the
// frame. It must only be called by the goroutine that owns the context.
func (c *Context) enter(fn func(*Frame)) {
	f := &Frame{ctx: c}
	f.goctx = context.WithValue(context.Background(), frameKey{}, c)
	c.current.Store(f)
	defer c.current.CompareAndSwap(f, nil)

	c.tasks.run(f)
	if fn != nil {
		fn(f)
	}
}

// Post queues task to run on the context goroutine and returns immediately.
func (c *Context) Post(task func(*Frame)) {
	c.tasks.push(task)
	if c.looping {
		select {
		case c.wake <- struct{}{}:
		default:
		}
	}
}

// Do runs fn on the context goroutine and waits for its result. A call from
// the context goroutine is detected only through ctx: pass the running
// frame's Frame.Context (or a context derived from it) to get ErrSelfWait.
// With any other ctx such a call waits for a turn that cannot start until
// ctx is done, or forever. If ctx is done first Do returns ctx.Err(); the
// task still runs on the context goroutine.
func (c *Context) Do(ctx context.Context, fn func(*Frame) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if owner := contextOwner(ctx); owner == c {
		return ErrSelfWait
	}
	if c.closed.Load() {
		return ErrSurfaceClosed
	}
	done := make(chan error, 1)
	c.Post(func(f *Frame) { done <- fn(f) })
	select {
	case err := <-done:
		return err
	case <-c.stopped:
		// The final drain may have run the task.
		select {
		case err := <-done:
			return err
		default:
			return ErrSurfaceClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stop drains outstanding tasks and terminates the context goroutine. For an
// external-mode context it only marks the context closed.
func (c *Context) stop() {
	c.stopOnce.Do(func() {
		c.closed.Store(true)
		if c.looping {
			close(c.quit)
			<-c.stopped
		} else {
			close(c.stopped)
		}
		Logger().Debug("context stopped", zap.Stringer("context", c.id))
	})
}

// contextOwner returns the Context whose goroutine produced ctx, if any.
func contextOwner(ctx context.Context) *Context {
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(frameKey{}).(*Context)
	return c
}

// Context returns a context.Context marking work as running on this frame's
// goroutine. Passing it to a blocking call returns ErrSelfWait instead of
// deadlocking.
func (f *Frame) Context() context.Context {
	if f == nil || f.goctx == nil {
		return context.Background()
	}
	return f.goctx
}

// Current reports whether f is the open frame of its context.
func (f *Frame) Current() bool {
	return f != nil && f.ctx != nil && f.ctx.current.Load() == f
}

// device returns the frame's device if the frame is current.
func (f *Frame) device(op string) (Device, error) {
	if !f.Current() {
		fields := []zap.Field{zap.String("op", op)}
		if f != nil && f.ctx != nil {
			fields = append(fields, zap.Stringer("context", f.ctx.id))
		}
		Logger().Warn("graphics call rejected: context not current", fields...)
		return nil, fmt.Errorf("%s: %w", op, ErrContextNotCurrent)
	}
	return f.ctx.dev, nil
}

// BottomUp reports the storage row order of the frame's device.
func (f *Frame) BottomUp() bool {
	if f == nil || f.ctx == nil {
		return false
	}
	return f.ctx.dev.BottomUp()
}
