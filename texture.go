package gpuimage

import (
	"fmt"
	"image"

	"go.uber.org/zap"
)

// Texture is a device texture owned by one renderer, filter or surface. A
// texture is deleted at most once, and only from its context goroutine.
type Texture struct {
	handle  DeviceTexture
	w, h    int
	owner   string
	deleted bool
}

// newTexture allocates a w x h texture on the frame's device.
func newTexture(f *Frame, w, h int, owner string) (*Texture, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d texture for %s", ErrInvalidSize, w, h, owner)
	}
	dev, err := f.device("allocate texture")
	if err != nil {
		return nil, err
	}
	handle, err := dev.NewTexture(w, h)
	if err != nil {
		return nil, fmt.Errorf("gpuimage: allocate %dx%d texture for %s: %w", w, h, owner, err)
	}
	Logger().Debug("texture allocated", zap.String("owner", owner), zap.Int("w", w), zap.Int("h", h))
	return &Texture{handle: handle, w: w, h: h, owner: owner}, nil
}

// uploadTexture creates a texture holding img. Row 0 of img is sampled at t = 0.
func uploadTexture(f *Frame, img *image.NRGBA, owner string) (*Texture, error) {
	b := img.Bounds()
	t, err := newTexture(f, b.Dx(), b.Dy(), owner)
	if err != nil {
		return nil, err
	}
	dev, _ := f.device("upload texture")
	if err := dev.WriteTexture(t.handle, packedPix(img)); err != nil {
		t.handle.Dispose()
		return nil, fmt.Errorf("gpuimage: upload texture for %s: %w", owner, err)
	}
	return t, nil
}

// wrapTexture adopts a handle the caller keeps ownership of, such as the
// screen image of a frame. Deleting a wrapped texture does not dispose it.
func wrapTexture(handle DeviceTexture, owner string) *Texture {
	w, h := handle.Size()
	return &Texture{handle: handle, w: w, h: h, owner: owner, deleted: true}
}

// Width returns the texture width in pixels.
func (t *Texture) Width() int { return t.w }

// Height returns the texture height in pixels.
func (t *Texture) Height() int { return t.h }

// Size returns the texture size.
func (t *Texture) Size() Size { return Size{t.w, t.h} }

// Delete releases the texture. Deleting twice is a no-op. Deleting with a
// frame that is not current fails with ErrContextNotCurrent and leaves the
// texture intact.
func (t *Texture) Delete(f *Frame) error {
	if t == nil || t.deleted {
		return nil
	}
	if _, err := f.device("delete texture"); err != nil {
		return err
	}
	t.handle.Dispose()
	t.deleted = true
	Logger().Debug("texture deleted", zap.String("owner", t.owner), zap.Int("w", t.w), zap.Int("h", t.h))
	return nil
}

// clear fills the texture with c.
func (t *Texture) clear(f *Frame, c Color) error {
	dev, err := f.device("clear texture")
	if err != nil {
		return err
	}
	return dev.Clear(t.handle, c)
}

// readImage reads t back as a top-down image, mirroring rows when the device
// stores them bottom-up.
func readImage(f *Frame, t *Texture) (*image.NRGBA, error) {
	dev, err := f.device("read pixels")
	if err != nil {
		return nil, err
	}
	img := image.NewNRGBA(image.Rect(0, 0, t.w, t.h))
	if err := dev.ReadPixels(t.handle, img.Pix); err != nil {
		return nil, fmt.Errorf("gpuimage: read pixels: %w", err)
	}
	if dev.BottomUp() {
		mirrorRows(img.Pix, t.w*4, t.h)
	}
	return img, nil
}

// texturePool recycles intermediate textures keyed by exact dimensions, so a
// texture handed out always matches the requested size.
type texturePool struct {
	owner   string
	buckets map[uint64][]*Texture
}

// poolKey packs width and height into a single uint64.
func poolKey(w, h int) uint64 {
	return uint64(w)<<32 | uint64(h)
}

// Acquire returns a texture of exactly w x h, cleared to transparent.
func (p *texturePool) Acquire(f *Frame, w, h int) (*Texture, error) {
	key := poolKey(w, h)
	if stack := p.buckets[key]; len(stack) > 0 {
		t := stack[len(stack)-1]
		p.buckets[key] = stack[:len(stack)-1]
		if err := t.clear(f, ColorTransparent); err != nil {
			return nil, err
		}
		return t, nil
	}
	t, err := newTexture(f, w, h, p.owner)
	if err != nil {
		return nil, err
	}
	if err := t.clear(f, ColorTransparent); err != nil {
		return nil, err
	}
	return t, nil
}

// Release returns a texture for reuse. The texture is cleared on the next
// Acquire, not here.
func (p *texturePool) Release(t *Texture) {
	if t == nil || t.deleted {
		return
	}
	if p.buckets == nil {
		p.buckets = make(map[uint64][]*Texture)
	}
	key := poolKey(t.w, t.h)
	p.buckets[key] = append(p.buckets[key], t)
}

// Drain deletes every pooled texture.
func (p *texturePool) Drain(f *Frame) error {
	var firstErr error
	for key, stack := range p.buckets {
		for _, t := range stack {
			if err := t.Delete(f); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		delete(p.buckets, key)
	}
	return firstErr
}

// Len returns the number of pooled textures.
func (p *texturePool) Len() int {
	n := 0
	for _, stack := range p.buckets {
		n += len(stack)
	}
	return n
}
