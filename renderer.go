package gpuimage

import (
	"context"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// RendererState is the lifecycle state of a Renderer.
type RendererState uint32

const (
	RendererUninitialized RendererState = iota
	RendererSurfaceBound
	RendererRendering
	RendererSuspended
	RendererDestroyed
)

func (s RendererState) String() string {
	switch s {
	case RendererUninitialized:
		return "uninitialized"
	case RendererSurfaceBound:
		return "surface-bound"
	case RendererRendering:
		return "rendering"
	case RendererSuspended:
		return "suspended"
	case RendererDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("RendererState(%d)", uint32(s))
	}
}

// Renderer draws a source image through the active filter into a target
// surface. Its mutators may be called from any goroutine: they queue tasks
// that the context goroutine runs in order at the start of the next frame.
// SurfaceCreated, SurfaceChanged, DrawFrame and Destroy are called by the
// surface that owns the renderer, on its context goroutine.
type Renderer struct {
	state atomic.Uint32

	tasks    taskQueue
	endTasks taskQueue

	// Context-goroutine state.
	filter     *Filter
	source     *Texture
	imgW, imgH int
	rotation   RotationSpec
	scaleType  ScaleType
	background Color
	target     *Texture

	debug atomic.Bool

	// Shared with other goroutines.
	mu       sync.Mutex
	stats    FrameStats
	out      Size
	layout   Layout
	layoutCh chan struct{}
}

// NewRenderer returns a renderer for filter. A nil filter renders the input
// unchanged.
func NewRenderer(filter *Filter) *Renderer {
	if filter == nil {
		filter = NewIdentityFilter()
	}
	return &Renderer{
		filter:     filter,
		background: ColorBlack,
		layoutCh:   make(chan struct{}),
	}
}

// State returns the lifecycle state.
func (r *Renderer) State() RendererState {
	return RendererState(r.state.Load())
}

func (r *Renderer) setState(s RendererState) {
	r.state.Store(uint32(s))
}

// OutputSize returns the size of the bound surface.
func (r *Renderer) OutputSize() Size {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.out
}

// DisplayedSize returns the size of the scaled image on the surface.
func (r *Renderer) DisplayedSize() Size {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.layout.Displayed
}

// Quad returns the geometry the next frame draws with.
func (r *Renderer) Quad() Quad {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.layout.Quad
}

// layoutChanged returns a channel closed at the next SurfaceChanged.
func (r *Renderer) layoutChanged() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.layoutCh
}

// WaitSurface blocks until the renderer is bound to a surface with a non-zero
// size and returns that size.
func (r *Renderer) WaitSurface(ctx context.Context) (Size, error) {
	for {
		ch := r.layoutChanged()
		if s := r.OutputSize(); !s.Empty() {
			return s, nil
		}
		if r.State() == RendererDestroyed {
			return Size{}, ErrSurfaceClosed
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return Size{}, ctx.Err()
		}
	}
}

// RunOnDraw queues task to run before the next draw.
func (r *Renderer) RunOnDraw(task func(*Frame)) {
	r.tasks.push(task)
}

// RunOnDrawEnd queues task to run after the next draw.
func (r *Renderer) RunOnDrawEnd(task func(*Frame)) {
	r.endTasks.push(task)
}

// Pending reports whether tasks are waiting for the next frame.
func (r *Renderer) Pending() bool {
	return r.tasks.len() > 0 || r.endTasks.len() > 0
}

// SetFilter replaces the active filter. The previous filter is destroyed on
// the context goroutine and the new one initialized at the current size.
func (r *Renderer) SetFilter(fl *Filter) {
	if fl == nil {
		fl = NewIdentityFilter()
	}
	r.RunOnDraw(func(f *Frame) {
		old := r.filter
		r.filter = fl
		if old != nil && old != fl {
			if err := old.Destroy(f); err != nil {
				Logger().Warn("destroy filter", zap.String("filter", old.name), zap.Error(err))
			}
		}
		if err := fl.Init(f); err != nil {
			Logger().Warn("init filter", zap.String("filter", fl.name), zap.Error(err))
			return
		}
		out := r.OutputSize()
		if !out.Empty() {
			if err := fl.OutputSizeChanged(f, out.Width, out.Height); err != nil {
				Logger().Warn("resize filter", zap.String("filter", fl.name), zap.Error(err))
			}
		}
	})
}

// Filter returns the active filter. Only meaningful on the context goroutine,
// since SetFilter swaps it there.
func (r *Renderer) Filter() *Filter { return r.filter }

// SetImage uploads img as the new source, replacing the previous one. The
// pixels are copied before SetImage returns.
func (r *Renderer) SetImage(img image.Image) {
	if img == nil {
		r.DeleteImage()
		return
	}
	pix := toNRGBA(img)
	r.RunOnDraw(func(f *Frame) {
		if err := r.source.Delete(f); err != nil {
			Logger().Warn("delete source texture", zap.Error(err))
		}
		r.source = nil
		t, err := uploadTexture(f, pix, "renderer source")
		if err != nil {
			Logger().Error("upload source image", zap.Error(err))
			return
		}
		r.source = t
		r.imgW, r.imgH = t.w, t.h
		r.adjustLayout()
	})
}

// DeleteImage drops the source texture. Frames then show only the background.
func (r *Renderer) DeleteImage() {
	r.RunOnDraw(func(f *Frame) {
		if err := r.source.Delete(f); err != nil {
			Logger().Warn("delete source texture", zap.Error(err))
		}
		r.source = nil
		r.imgW, r.imgH = 0, 0
		r.adjustLayout()
	})
}

// SetRotation changes the rotation and mirror flags of the source. An
// unknown rotation returns ErrInvalidRotation and leaves the layout unchanged.
func (r *Renderer) SetRotation(rot Rotation, flipHorizontal, flipVertical bool) error {
	if !rot.Valid() {
		Logger().Warn("rejected rotation", zap.Stringer("rotation", rot))
		return fmt.Errorf("%w: got %v", ErrInvalidRotation, rot)
	}
	rs := RotationSpec{Rotation: rot, FlipHorizontal: flipHorizontal, FlipVertical: flipVertical}
	r.RunOnDraw(func(*Frame) {
		r.rotation = rs
		r.adjustLayout()
	})
	return nil
}

// SetScaleType changes how the source is fitted into the surface.
func (r *Renderer) SetScaleType(st ScaleType) {
	r.RunOnDraw(func(*Frame) {
		r.scaleType = st
		r.adjustLayout()
	})
}

// SetBackground changes the color the target is cleared to before each draw.
func (r *Renderer) SetBackground(c Color) {
	r.RunOnDraw(func(*Frame) { r.background = c })
}

// Suspend stops drawing; queued tasks keep running each frame.
func (r *Renderer) Suspend() {
	r.RunOnDraw(func(*Frame) {
		if r.State() == RendererRendering || r.State() == RendererSurfaceBound {
			r.setState(RendererSuspended)
		}
	})
}

// Resume restarts drawing after Suspend.
func (r *Renderer) Resume() {
	r.RunOnDraw(func(*Frame) {
		if r.State() == RendererSuspended {
			r.setState(RendererSurfaceBound)
		}
	})
}

// SurfaceCreated binds the renderer to a new context. Resources from a
// previous context are forgotten, not released.
func (r *Renderer) SurfaceCreated(f *Frame) error {
	if r.State() == RendererDestroyed {
		return ErrSurfaceClosed
	}
	if _, err := f.device("surface created"); err != nil {
		return err
	}
	r.source = nil
	r.imgW, r.imgH = 0, 0
	r.filter.invalidate()
	r.setState(RendererSurfaceBound)
	Logger().Info("renderer bound to surface", zap.Stringer("context", f.ctx.id))
	return r.filter.Init(f)
}

// SurfaceChanged records the surface size, resizes the filter and recomputes
// the quad. Layout waiters are released.
func (r *Renderer) SurfaceChanged(f *Frame, w, h int) error {
	if _, err := f.device("surface changed"); err != nil {
		return err
	}
	r.mu.Lock()
	r.out = Size{w, h}
	r.mu.Unlock()
	err := r.filter.OutputSizeChanged(f, w, h)
	r.adjustLayout()

	r.mu.Lock()
	close(r.layoutCh)
	r.layoutCh = make(chan struct{})
	r.mu.Unlock()
	return err
}

// adjustLayout recomputes the quad for the current image, surface, rotation
// and scale type.
func (r *Renderer) adjustLayout() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.layout = computeLayout(r.out.Width, r.out.Height, r.imgW, r.imgH, r.rotation, r.scaleType)
}

// DrawFrame renders one frame into target: clear, pending tasks, filter draw,
// draw-end tasks.
func (r *Renderer) DrawFrame(f *Frame, target *Texture) error {
	if r.State() == RendererDestroyed {
		return ErrSurfaceClosed
	}
	if _, err := f.device("draw frame"); err != nil {
		return err
	}
	r.target = target
	defer func() { r.target = nil }()

	var st FrameStats
	t0 := time.Now()
	err := target.clear(f, r.background)
	st.Tasks = r.tasks.run(f)
	t1 := time.Now()
	st.TaskTime = t1.Sub(t0)

	if r.State() != RendererSuspended {
		if r.source != nil {
			if derr := r.filter.Draw(f, target, r.source, r.Quad()); derr != nil {
				Logger().Error("draw filter", zap.String("filter", r.filter.name), zap.Error(derr))
				err = multierr.Append(err, derr)
			} else {
				st.Filtered = true
			}
		}
		if r.State() != RendererDestroyed {
			r.setState(RendererRendering)
		}
	}
	t2 := time.Now()
	st.FilterTime = t2.Sub(t1)
	st.EndTasks = r.endTasks.run(f)
	st.EndTaskTime = time.Since(t2)
	r.recordStats(st)
	return err
}

// ReadTarget reads back the target of the frame being drawn. It is meant for
// draw-end tasks.
func (r *Renderer) ReadTarget(f *Frame) (*image.NRGBA, error) {
	if r.target == nil {
		return nil, fmt.Errorf("gpuimage: no target bound outside DrawFrame")
	}
	return readImage(f, r.target)
}

// Destroy releases the source texture and the active filter. Further frames
// are rejected.
func (r *Renderer) Destroy(f *Frame) error {
	if r.State() == RendererDestroyed {
		return nil
	}
	if _, err := f.device("destroy renderer"); err != nil {
		return err
	}
	err := r.source.Delete(f)
	r.source = nil
	if r.filter != nil {
		err = multierr.Append(err, r.filter.Destroy(f))
	}
	r.setState(RendererDestroyed)
	r.mu.Lock()
	close(r.layoutCh)
	r.layoutCh = make(chan struct{})
	r.mu.Unlock()
	return err
}
