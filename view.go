package gpuimage

import (
	"context"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"
)

// RenderMode controls when a View redraws.
type RenderMode uint8

const (
	// RenderContinuously draws every frame.
	RenderContinuously RenderMode = iota
	// RenderWhenDirty draws only after RequestRender or when renderer tasks
	// are pending. The screen keeps its previous contents in between.
	RenderWhenDirty
)

// View is a live display surface. It implements ebiten.Game: Ebitengine's
// draw callback is the View's context goroutine, and every frame opens a new
// Frame on it.
type View struct {
	renderer *Renderer
	ctx      *Context
	mode     atomic.Uint32 // RenderMode

	created bool
	size    Size
	dirty   atomic.Bool
	forced  atomic.Pointer[Size]

	tweenMu sync.Mutex
	tweens  []*ParamTween

	caption   caption
	showStats atomic.Bool
	stats     statsOverlay
}

// NewView returns a live surface drawing r.
func NewView(r *Renderer) *View {
	dev, _ := NewEbitenDevice()
	v := &View{
		renderer: r,
		ctx:      newContext(dev),
	}
	v.dirty.Store(true)
	return v
}

// Renderer returns the renderer drawn by the view.
func (v *View) Renderer() *Renderer { return v.renderer }

// SetRenderMode selects continuous or on-demand drawing.
func (v *View) SetRenderMode(m RenderMode) {
	v.mode.Store(uint32(m))
	v.RequestRender()
}

// RenderMode returns the current drawing mode.
func (v *View) RenderMode() RenderMode { return RenderMode(v.mode.Load()) }

// RequestRender schedules a redraw in RenderWhenDirty mode.
func (v *View) RequestRender() {
	v.dirty.Store(true)
}

// AddTween animates a filter parameter from Update.
func (v *View) AddTween(t *ParamTween) {
	v.tweenMu.Lock()
	v.tweens = append(v.tweens, t)
	v.tweenMu.Unlock()
	v.RequestRender()
}

// Update advances parameter tweens. Implements ebiten.Game.
func (v *View) Update() error {
	gameLoopRunning.Store(true)
	dt := float32(1.0 / float64(ebiten.TPS()))
	v.tweenMu.Lock()
	live := v.tweens[:0]
	for _, t := range v.tweens {
		t.Update(dt)
		if !t.Done {
			live = append(live, t)
		}
	}
	n := len(v.tweens)
	clear(v.tweens[len(live):])
	v.tweens = live
	v.tweenMu.Unlock()
	if v.showStats.Load() {
		v.stats.update(float64(dt), v.renderer.Stats())
		v.RequestRender()
	} else if n > 0 {
		v.RequestRender()
	}
	return nil
}

// SetShowStats shows or hides the FPS and frame-time panel in the top-right
// corner. Like the caption, it is not part of captures.
func (v *View) SetShowStats(on bool) {
	v.showStats.Store(on)
	v.RequestRender()
}

// Draw runs one frame of the renderer into screen. Implements ebiten.Game.
func (v *View) Draw(screen *ebiten.Image) {
	gameLoopRunning.Store(true)
	v.ctx.enter(func(f *Frame) {
		if v.renderer.State() == RendererDestroyed {
			return
		}
		b := screen.Bounds()
		w, h := b.Dx(), b.Dy()
		if !v.created {
			if err := v.renderer.SurfaceCreated(f); err != nil {
				Logger().Warn("view surface created", zap.Error(err))
			}
			v.created = true
			v.dirty.Store(true)
		}
		if w != v.size.Width || h != v.size.Height {
			v.size = Size{w, h}
			if err := v.renderer.SurfaceChanged(f, w, h); err != nil {
				Logger().Warn("view surface changed", zap.Error(err))
			}
			v.dirty.Store(true)
		}
		if v.RenderMode() == RenderWhenDirty && !v.dirty.Load() && !v.renderer.Pending() {
			return
		}
		v.dirty.Store(false)
		target := wrapTexture(wrapScreen(screen), "screen")
		if err := v.renderer.DrawFrame(f, target); err != nil {
			Logger().Error("view draw frame", zap.Error(err))
		}
		v.drawCaption(screen)
		if v.showStats.Load() {
			v.stats.draw(screen)
		}
	})
}

// Layout returns the outside size, or the size forced by CaptureSize.
// Implements ebiten.Game.
func (v *View) Layout(outsideWidth, outsideHeight int) (int, int) {
	if s := v.forced.Load(); s != nil {
		return s.Width, s.Height
	}
	return outsideWidth, outsideHeight
}

// Capture reads back the next frame drawn by the view.
func (v *View) Capture(ctx context.Context) (*image.NRGBA, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if contextOwner(ctx) == v.ctx {
		return nil, ErrSelfWait
	}
	type result struct {
		img *image.NRGBA
		err error
	}
	done := make(chan result, 1)
	v.renderer.RunOnDrawEnd(func(f *Frame) {
		img, err := v.renderer.ReadTarget(f)
		done <- result{img, err}
	})
	v.RequestRender()
	select {
	case res := <-done:
		return res.img, res.err
	case <-v.ctx.stopped:
		return nil, ErrSurfaceClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CaptureSize forces the view's layout to w x h, waits for one completed
// layout at that size, captures a frame and restores the normal layout.
func (v *View) CaptureSize(ctx context.Context, w, h int) (*image.NRGBA, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: capture %dx%d", ErrInvalidSize, w, h)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if contextOwner(ctx) == v.ctx {
		return nil, ErrSelfWait
	}
	want := Size{w, h}
	v.forced.Store(&want)
	defer v.forced.Store(nil)

	for {
		ch := v.renderer.layoutChanged()
		if v.renderer.OutputSize() == want {
			break
		}
		select {
		case <-ch:
		case <-v.ctx.stopped:
			return nil, ErrSurfaceClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return v.Capture(ctx)
}

// Close destroys the renderer on the next frame and stops accepting work.
func (v *View) Close() {
	v.renderer.RunOnDraw(func(f *Frame) {
		if err := v.renderer.Destroy(f); err != nil {
			Logger().Warn("destroy renderer", zap.Error(err))
		}
		v.ctx.stop()
	})
	v.RequestRender()
}

// RunConfig configures the window opened by Run.
type RunConfig struct {
	Title     string
	Width     int
	Height    int
	Resizable bool
	// Update, when set, runs every tick before the view updates. Returning
	// ebiten.Termination closes the window.
	Update func() error
}

type hookedView struct {
	*View
	update func() error
}

func (h hookedView) Update() error {
	if err := h.update(); err != nil {
		return err
	}
	return h.View.Update()
}

// Run opens a window and drives v until the window closes.
func Run(v *View, cfg RunConfig) error {
	if cfg.Width > 0 && cfg.Height > 0 {
		ebiten.SetWindowSize(cfg.Width, cfg.Height)
	}
	if cfg.Title != "" {
		ebiten.SetWindowTitle(cfg.Title)
	}
	if cfg.Resizable {
		ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	}
	if v.RenderMode() == RenderWhenDirty {
		ebiten.SetScreenClearedEveryFrame(false)
	}
	if cfg.Update != nil {
		return ebiten.RunGame(hookedView{View: v, update: cfg.Update})
	}
	return ebiten.RunGame(v)
}
