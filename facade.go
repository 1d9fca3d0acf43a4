package gpuimage

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"
	"go.uber.org/multierr"
)

// Option configures a GPUImage.
type Option func(*GPUImage)

// WithSurfaceOptions sets the options of the off-screen surfaces used for
// snapshots, such as the device and the number of priming passes.
func WithSurfaceOptions(opts ...SurfaceOption) Option {
	return func(g *GPUImage) {
		g.surfaceOpts = append(g.surfaceOpts, opts...)
	}
}

// WithScaleType sets the initial scale type.
func WithScaleType(st ScaleType) Option {
	return func(g *GPUImage) { g.scaleType = st }
}

// WithFilter sets the initial filter.
func WithFilter(fl *Filter) Option {
	return func(g *GPUImage) {
		if fl != nil {
			g.filter = fl
		}
	}
}

// GPUImage coordinates a live renderer, an optional View showing it, and
// off-screen snapshots of the same image and filter. Its methods are safe to
// call from any goroutine except the View's draw callback for the blocking
// ones.
type GPUImage struct {
	renderer    *Renderer
	surfaceOpts []SurfaceOption

	mu        sync.Mutex
	view      *View
	filter    *Filter
	current   *image.NRGBA
	scaleType ScaleType
	rotation  RotationSpec
}

// New returns a GPUImage with an identity filter.
func New(opts ...Option) *GPUImage {
	g := &GPUImage{filter: NewIdentityFilter()}
	for _, opt := range opts {
		opt(g)
	}
	g.renderer = NewRenderer(g.filter)
	g.renderer.SetScaleType(g.scaleType)
	return g
}

// Renderer returns the live renderer.
func (g *GPUImage) Renderer() *Renderer { return g.renderer }

// AttachView binds v as the live display surface. v must draw the renderer
// returned by Renderer; pass nil to create such a view.
func (g *GPUImage) AttachView(v *View) *View {
	if v == nil {
		v = NewView(g.renderer)
	}
	g.mu.Lock()
	g.view = v
	g.mu.Unlock()
	return v
}

// View returns the attached view, if any.
func (g *GPUImage) View() *View {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.view
}

// RequestRender asks the attached view to redraw.
func (g *GPUImage) RequestRender() {
	if v := g.View(); v != nil {
		v.RequestRender()
	}
}

// SetFilter makes fl the active filter of the live renderer.
func (g *GPUImage) SetFilter(fl *Filter) {
	if fl == nil {
		fl = NewIdentityFilter()
	}
	g.mu.Lock()
	g.filter = fl
	g.mu.Unlock()
	g.renderer.SetFilter(fl)
	g.RequestRender()
}

// Filter returns the active filter.
func (g *GPUImage) Filter() *Filter {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.filter
}

// SetImage makes img the current image. The pixels are copied.
func (g *GPUImage) SetImage(img image.Image) {
	if img == nil {
		g.DeleteImage()
		return
	}
	pix := toNRGBA(img)
	g.mu.Lock()
	g.current = pix
	g.mu.Unlock()
	g.renderer.SetImage(pix)
	g.RequestRender()
}

// SetImageScaled waits until the live surface has a size, shrinks img to fit
// inside it and makes the result the current image. Images that already fit
// are used unchanged.
func (g *GPUImage) SetImageScaled(ctx context.Context, img image.Image) error {
	if img == nil {
		return ErrNoImage
	}
	out, err := g.renderer.WaitSurface(ctx)
	if err != nil {
		return err
	}
	b := img.Bounds()
	if b.Dx() > out.Width || b.Dy() > out.Height {
		img = imaging.Fit(img, out.Width, out.Height, imaging.Lanczos)
	}
	g.SetImage(img)
	return nil
}

// DeleteImage clears the current image.
func (g *GPUImage) DeleteImage() {
	g.mu.Lock()
	g.current = nil
	g.mu.Unlock()
	g.renderer.DeleteImage()
	g.RequestRender()
}

// Image returns the current unfiltered image, or nil.
func (g *GPUImage) Image() *image.NRGBA {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// SetRotation sets the rotation and mirror flags of the live renderer. An
// unknown rotation returns ErrInvalidRotation and changes nothing.
func (g *GPUImage) SetRotation(rot Rotation, flipHorizontal, flipVertical bool) error {
	if err := g.renderer.SetRotation(rot, flipHorizontal, flipVertical); err != nil {
		return err
	}
	g.mu.Lock()
	g.rotation = RotationSpec{Rotation: rot, FlipHorizontal: flipHorizontal, FlipVertical: flipVertical}
	g.mu.Unlock()
	g.RequestRender()
	return nil
}

// SetScaleType changes the scale type. The current image is cleared and must
// be set again.
func (g *GPUImage) SetScaleType(st ScaleType) {
	g.mu.Lock()
	g.scaleType = st
	g.current = nil
	g.mu.Unlock()
	g.renderer.SetScaleType(st)
	g.renderer.DeleteImage()
	g.RequestRender()
}

// ScaleType returns the active scale type.
func (g *GPUImage) ScaleType() ScaleType {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scaleType
}

// FilteredImage renders the current image through the active filter at the
// image's own size.
func (g *GPUImage) FilteredImage(ctx context.Context) (*image.NRGBA, error) {
	img := g.Image()
	if img == nil {
		return nil, ErrNoImage
	}
	return g.ApplyFilter(ctx, img)
}

// ApplyFilter renders img through the active filter at img's size.
func (g *GPUImage) ApplyFilter(ctx context.Context, img image.Image) (*image.NRGBA, error) {
	if img == nil {
		return nil, ErrNoImage
	}
	b := img.Bounds()
	return g.ApplyFilterSize(ctx, img, b.Dx(), b.Dy())
}

// ApplyFilterSize renders img through the active filter into a w x h image.
// The snapshot uses its own surface and a clone of the filter, so it never
// disturbs the live view. The live mirror flags and scale type apply; the
// rotation does not.
func (g *GPUImage) ApplyFilterSize(ctx context.Context, img image.Image, w, h int) (out *image.NRGBA, err error) {
	if img == nil {
		return nil, ErrNoImage
	}
	if contextOwner(ctx) != nil {
		return nil, ErrSelfWait
	}
	g.mu.Lock()
	fl := g.filter.Clone()
	rs := g.rotation
	st := g.scaleType
	g.mu.Unlock()

	r := NewRenderer(fl)
	r.SetRotation(RotationNormal, rs.FlipHorizontal, rs.FlipVertical)
	r.SetScaleType(st)

	s, err := NewOffscreenSurface(w, h, g.surfaceOpts...)
	if err != nil {
		return nil, err
	}
	defer func() { err = multierr.Append(err, s.Close()) }()

	if err := s.SetRenderer(ctx, r); err != nil {
		return nil, err
	}
	r.SetImage(img)
	return s.Image(ctx)
}

// ApplyFilters renders img through each filter in turn on one off-screen
// surface of img's size, passing every result to fn. The filters are owned by
// the call and destroyed when it returns. If fn returns an error the
// remaining filters are skipped.
func ApplyFilters(ctx context.Context, img image.Image, filters []*Filter, fn func(*Filter, *image.NRGBA) error, opts ...SurfaceOption) (err error) {
	if img == nil {
		return ErrNoImage
	}
	if len(filters) == 0 {
		return nil
	}
	if contextOwner(ctx) != nil {
		return ErrSelfWait
	}
	b := img.Bounds()
	s, err := NewOffscreenSurface(b.Dx(), b.Dy(), opts...)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, s.Close()) }()

	r := NewRenderer(filters[0])
	if err := s.SetRenderer(ctx, r); err != nil {
		return err
	}
	r.SetImage(img)
	for i, fl := range filters {
		if i > 0 {
			r.SetFilter(fl)
		}
		out, err := s.Image(ctx)
		if err != nil {
			return fmt.Errorf("gpuimage: apply %s: %w", fl.Name(), err)
		}
		if err := fn(fl, out); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the filtered current image to path, encoded by extension.
func (g *GPUImage) Save(ctx context.Context, path string) error {
	img, err := g.FilteredImage(ctx)
	if err != nil {
		return err
	}
	return SaveImage(path, img)
}
