package gpuimage

import (
	"context"
	"fmt"
	"image"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DefaultPrimingPasses is the number of frames drawn before an off-screen
// read-back. The first frame applies queued tasks; the second renders with
// their results settled.
const DefaultPrimingPasses = 2

// SurfaceOption configures an OffscreenSurface.
type SurfaceOption func(*surfaceOptions)

type surfaceOptions struct {
	device  DeviceFactory
	priming int
}

// WithDevice selects the device backing the surface. The default is the
// software device.
func WithDevice(fn DeviceFactory) SurfaceOption {
	return func(o *surfaceOptions) {
		if fn != nil {
			o.device = fn
		}
	}
}

// WithPrimingPasses sets how many frames are drawn before each read-back.
func WithPrimingPasses(n int) SurfaceOption {
	return func(o *surfaceOptions) {
		if n > 0 {
			o.priming = n
		}
	}
}

// OffscreenSurface renders a Renderer into a memory surface of fixed size.
// It owns a device and a context goroutine; every method is a message to that
// goroutine, so a surface may be used from any goroutine.
type OffscreenSurface struct {
	id       uuid.UUID
	w, h     int
	ctx      *Context
	dev      Device
	priming  int
	target   *Texture
	renderer *Renderer
	closed   atomic.Bool
}

// NewOffscreenSurface creates a w x h surface and its context goroutine.
func NewOffscreenSurface(w, h int, opts ...SurfaceOption) (*OffscreenSurface, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: surface %dx%d", ErrInvalidSize, w, h)
	}
	o := surfaceOptions{device: NewSoftwareDevice, priming: DefaultPrimingPasses}
	for _, opt := range opts {
		opt(&o)
	}
	dev, err := o.device()
	if err != nil {
		return nil, fmt.Errorf("gpuimage: create device: %w", err)
	}

	s := &OffscreenSurface{
		id:      uuid.New(),
		w:       w,
		h:       h,
		dev:     dev,
		priming: o.priming,
	}
	s.ctx = newContext(dev)
	s.ctx.start()

	err = s.ctx.Do(context.Background(), func(f *Frame) error {
		t, err := newTexture(f, w, h, "surface")
		if err != nil {
			return err
		}
		s.target = t
		return t.clear(f, ColorBlack)
	})
	if err != nil {
		s.ctx.stop()
		return nil, multierr.Append(err, dev.Release())
	}
	Logger().Info("offscreen surface created",
		zap.Stringer("surface", s.id), zap.String("device", dev.Name()), zap.Int("w", w), zap.Int("h", h))
	return s, nil
}

// ID returns the surface identifier used in logs.
func (s *OffscreenSurface) ID() uuid.UUID { return s.id }

// Size returns the surface size.
func (s *OffscreenSurface) Size() Size { return Size{s.w, s.h} }

// Context returns the context that owns the surface's device.
func (s *OffscreenSurface) Context() *Context { return s.ctx }

// SetRenderer binds r to the surface: SurfaceCreated then SurfaceChanged at
// the surface size.
func (s *OffscreenSurface) SetRenderer(ctx context.Context, r *Renderer) error {
	if s.closed.Load() {
		return ErrSurfaceClosed
	}
	return s.ctx.Do(ctx, func(f *Frame) error {
		s.renderer = r
		return multierr.Append(r.SurfaceCreated(f), r.SurfaceChanged(f, s.w, s.h))
	})
}

// Image draws the priming frames and reads the result back top-down.
func (s *OffscreenSurface) Image(ctx context.Context) (*image.NRGBA, error) {
	if s.closed.Load() {
		return nil, ErrSurfaceClosed
	}
	var img *image.NRGBA
	err := s.ctx.Do(ctx, func(f *Frame) error {
		if s.renderer == nil {
			return ErrNoRenderer
		}
		for i := 0; i < s.priming; i++ {
			if err := s.renderer.DrawFrame(f, s.target); err != nil {
				return err
			}
		}
		var err error
		img, err = readImage(f, s.target)
		return err
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}

// Close releases the renderer's resources and the surface target, stops the
// context goroutine and releases the device, in that order. Closing twice is
// a no-op.
func (s *OffscreenSurface) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	err := s.ctx.Do(context.Background(), func(f *Frame) error {
		var err error
		if s.renderer != nil {
			err = multierr.Append(err, s.renderer.Destroy(f))
			s.renderer = nil
		}
		return multierr.Append(err, s.target.Delete(f))
	})
	s.ctx.stop()
	err = multierr.Append(err, s.dev.Release())
	Logger().Info("offscreen surface closed", zap.Stringer("surface", s.id), zap.Error(err))
	return err
}
