package gpuimage

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/sync/errgroup"
)

func TestViewLayout(t *testing.T) {
	v := NewView(NewRenderer(nil))
	if w, h := v.Layout(640, 480); w != 640 || h != 480 {
		t.Errorf("Layout = %dx%d, want 640x480", w, h)
	}
	forced := Size{100, 50}
	v.forced.Store(&forced)
	if w, h := v.Layout(640, 480); w != 100 || h != 50 {
		t.Errorf("forced Layout = %dx%d, want 100x50", w, h)
	}
}

func TestViewTweensRequestRender(t *testing.T) {
	v := NewView(NewRenderer(nil))
	v.dirty.Store(false)
	fl := NewBrightnessFilter(0)
	v.AddTween(NewParamTweenFrom(fl, "Brightness", 0, 1, 0, nil))
	if !v.dirty.Load() {
		t.Error("AddTween should request a render")
	}
	v.tweenMu.Lock()
	n := len(v.tweens)
	v.tweenMu.Unlock()
	if n != 1 {
		t.Errorf("tweens = %d, want 1", n)
	}
}

func TestViewCaptureSizeRejectsBadSize(t *testing.T) {
	v := NewView(NewRenderer(nil))
	if _, err := v.CaptureSize(context.Background(), 0, 10); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("err = %v, want ErrInvalidSize", err)
	}
}

func TestViewCaptureAfterClose(t *testing.T) {
	v := NewView(NewRenderer(nil))
	v.ctx.stop()
	if _, err := v.Capture(context.Background()); !errors.Is(err, ErrSurfaceClosed) {
		t.Errorf("err = %v, want ErrSurfaceClosed", err)
	}
}

func TestViewRenderModeConcurrentAccess(t *testing.T) {
	v := NewView(NewRenderer(nil))
	if v.RenderMode() != RenderContinuously {
		t.Fatalf("default mode = %v", v.RenderMode())
	}
	var g errgroup.Group
	for i := range 8 {
		g.Go(func() error {
			if i%2 == 0 {
				v.SetRenderMode(RenderWhenDirty)
			} else {
				_ = v.RenderMode()
			}
			return nil
		})
	}
	_ = g.Wait()
	if v.RenderMode() != RenderWhenDirty {
		t.Errorf("mode = %v, want RenderWhenDirty", v.RenderMode())
	}
	if !v.dirty.Load() {
		t.Error("SetRenderMode should request a render")
	}
}
