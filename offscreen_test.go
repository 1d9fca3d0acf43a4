package gpuimage

import (
	"context"
	"errors"
	"image/color"
	"testing"

	"golang.org/x/sync/errgroup"
)

func newSurface(t *testing.T, w, h int, r *Renderer) *OffscreenSurface {
	t.Helper()
	s, err := NewOffscreenSurface(w, h)
	if err != nil {
		t.Fatalf("NewOffscreenSurface: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if r != nil {
		if err := s.SetRenderer(context.Background(), r); err != nil {
			t.Fatalf("SetRenderer: %v", err)
		}
	}
	return s
}

func TestOffscreenIdentityRoundTrip(t *testing.T) {
	r := NewRenderer(nil)
	s := newSurface(t, 2, 2, r)
	r.SetImage(quadrants())
	img, err := s.Image(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 2 || b.Dy() != 2 {
		t.Fatalf("size = %v", b)
	}
	checkPixel(t, img, 0, 0, red)
	checkPixel(t, img, 1, 0, green)
	checkPixel(t, img, 0, 1, blue)
	checkPixel(t, img, 1, 1, white)
}

func TestOffscreenRotation(t *testing.T) {
	// want lists top-left, top-right, bottom-left, bottom-right.
	tests := []struct {
		rot          Rotation
		flipH, flipV bool
		want         [4]color.NRGBA
	}{
		{RotationNormal, false, false, [4]color.NRGBA{red, green, blue, white}},
		{Rotation90, false, false, [4]color.NRGBA{blue, red, white, green}},
		{Rotation180, false, false, [4]color.NRGBA{white, blue, green, red}},
		{Rotation270, false, false, [4]color.NRGBA{green, white, red, blue}},
		{RotationNormal, true, false, [4]color.NRGBA{green, red, white, blue}},
		{RotationNormal, false, true, [4]color.NRGBA{blue, white, red, green}},
	}
	for _, tt := range tests {
		r := NewRenderer(nil)
		r.SetRotation(tt.rot, tt.flipH, tt.flipV)
		s := newSurface(t, 2, 2, r)
		r.SetImage(quadrants())
		img, err := s.Image(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		for i, p := range []struct{ x, y int }{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
			if got := img.NRGBAAt(p.x, p.y); !nearColor(got, tt.want[i]) {
				t.Errorf("%v h=%v v=%v: pixel (%d,%d) = %v, want %v", tt.rot, tt.flipH, tt.flipV, p.x, p.y, got, tt.want[i])
			}
		}
	}
}

func TestOffscreenCropFillsTallSurface(t *testing.T) {
	r := NewRenderer(nil)
	s := newSurface(t, 50, 200, r)
	r.SetImage(solidImage(100, 100, red))
	img, err := s.Image(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, y := range []int{0, 1, 100, 198, 199} {
		for _, x := range []int{0, 25, 49} {
			checkPixel(t, img, x, y, red)
		}
	}
	if got := r.DisplayedSize(); got != (Size{200, 200}) {
		t.Errorf("DisplayedSize = %v, want 200x200", got)
	}
}

func TestOffscreenFitLetterboxes(t *testing.T) {
	r := NewRenderer(nil)
	r.SetScaleType(ScaleFit)
	s := newSurface(t, 50, 200, r)
	r.SetImage(solidImage(100, 100, red))
	img, err := s.Image(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	checkPixel(t, img, 25, 10, black)
	checkPixel(t, img, 25, 74, black)
	checkPixel(t, img, 25, 75, red)
	checkPixel(t, img, 25, 100, red)
	checkPixel(t, img, 25, 124, red)
	checkPixel(t, img, 25, 125, black)
	checkPixel(t, img, 25, 190, black)
}

func TestOffscreenConcurrentSnapshots(t *testing.T) {
	var g errgroup.Group
	for i := range 8 {
		b := float32(i) / 10
		g.Go(func() error {
			s, err := NewOffscreenSurface(4, 4)
			if err != nil {
				return err
			}
			defer s.Close()
			r := NewRenderer(NewBrightnessFilter(b))
			if err := s.SetRenderer(context.Background(), r); err != nil {
				return err
			}
			r.SetImage(solidImage(4, 4, black))
			img, err := s.Image(context.Background())
			if err != nil {
				return err
			}
			want := uint8(b*255 + 0.5)
			if got := img.NRGBAAt(2, 2).R; !near(got, want) {
				return errors.New("unexpected brightness in concurrent snapshot")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
}

func TestOffscreenWithoutRenderer(t *testing.T) {
	s := newSurface(t, 2, 2, nil)
	if _, err := s.Image(context.Background()); !errors.Is(err, ErrNoRenderer) {
		t.Errorf("err = %v, want ErrNoRenderer", err)
	}
}

func TestOffscreenClose(t *testing.T) {
	r := NewRenderer(nil)
	s, err := NewOffscreenSurface(2, 2, WithPrimingPasses(1))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetRenderer(context.Background(), r); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if r.State() != RendererDestroyed {
		t.Errorf("renderer state = %v, want destroyed", r.State())
	}
	if _, err := s.Image(context.Background()); !errors.Is(err, ErrSurfaceClosed) {
		t.Errorf("Image after Close: err = %v", err)
	}
	if err := s.SetRenderer(context.Background(), NewRenderer(nil)); !errors.Is(err, ErrSurfaceClosed) {
		t.Errorf("SetRenderer after Close: err = %v", err)
	}
}

func TestOffscreenInvalidSize(t *testing.T) {
	if _, err := NewOffscreenSurface(0, 10); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("err = %v, want ErrInvalidSize", err)
	}
}

func TestOffscreenDeviceFactoryError(t *testing.T) {
	boom := errors.New("no device")
	_, err := NewOffscreenSurface(2, 2, WithDevice(func() (Device, error) { return nil, boom }))
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

func TestOffscreenImageFromContextGoroutine(t *testing.T) {
	r := NewRenderer(nil)
	s := newSurface(t, 2, 2, r)
	var inner error
	err := s.Context().Do(context.Background(), func(f *Frame) error {
		_, inner = s.Image(f.Context())
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(inner, ErrSelfWait) {
		t.Errorf("Image from context goroutine: err = %v, want ErrSelfWait", inner)
	}
}
