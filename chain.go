package gpuimage

import (
	"image"

	"go.uber.org/multierr"
)

// ensureIntermediate returns the intermediate texture of a two-pass filter,
// allocating it at the current output size.
func (fl *Filter) ensureIntermediate(f *Frame) (*Texture, error) {
	if t := fl.intermediate; t != nil && t.w == fl.outW && t.h == fl.outH {
		return t, nil
	}
	if err := fl.intermediate.Delete(f); err != nil {
		return nil, err
	}
	fl.intermediate = nil
	t, err := newTexture(f, fl.outW, fl.outH, fl.name+" intermediate")
	if err != nil {
		return nil, err
	}
	fl.intermediate = t
	return t, nil
}

// drawTwoPass draws the first pass into the intermediate with coords, then
// the second pass from the intermediate over the whole destination.
func (fl *Filter) drawTwoPass(f *Frame, dst, src *Texture, coords Quad) error {
	inter, err := fl.ensureIntermediate(f)
	if err != nil {
		return err
	}
	if err := inter.clear(f, ColorTransparent); err != nil {
		return err
	}
	if err := fl.drawPass(f, fl.passes[0], inter, coords, src); err != nil {
		return err
	}
	return fl.drawPass(f, fl.passes[1], dst, fullQuad(storageCoords(f.BottomUp())), inter)
}

// drawTwoInput draws the blend pass with the overlay bound as the second
// input. Without an overlay the input is copied unchanged.
func (fl *Filter) drawTwoInput(f *Frame, dst, src *Texture, coords Quad) error {
	ov, err := fl.fittedOverlay(f, src.w, src.h)
	if err != nil {
		return err
	}
	if ov == nil {
		return drawProgram(f, fl.passThrough, dst, coords, nil, src)
	}
	return fl.drawPass(f, fl.passes[0], dst, coords, src, ov)
}

// uploadOverlay replaces the overlay texture with img.
func (fl *Filter) uploadOverlay(f *Frame, img *image.NRGBA, gen uint64) error {
	err := multierr.Append(fl.overlayTex.Delete(f), fl.overlayFit.Delete(f))
	fl.overlayTex, fl.overlayFit = nil, nil
	if err != nil {
		return err
	}
	fl.overlayGen = gen
	if img == nil {
		return nil
	}
	t, err := uploadTexture(f, img, fl.name+" overlay")
	if err != nil {
		return err
	}
	fl.overlayTex = t
	return nil
}

// fittedOverlay returns the overlay at exactly w x h, resampling it once per
// input size. Both inputs are then read with the same coordinates.
func (fl *Filter) fittedOverlay(f *Frame, w, h int) (*Texture, error) {
	ov := fl.overlayTex
	if ov == nil {
		return nil, nil
	}
	if ov.w == w && ov.h == h {
		return ov, nil
	}
	if t := fl.overlayFit; t != nil && t.w == w && t.h == h {
		return t, nil
	}
	if err := fl.overlayFit.Delete(f); err != nil {
		return nil, err
	}
	fl.overlayFit = nil
	t, err := newTexture(f, w, h, fl.name+" overlay")
	if err != nil {
		return nil, err
	}
	// Copying in storage order keeps row 0 of the overlay at t = 0, the same
	// layout as an uploaded texture.
	if err := drawProgram(f, fl.passThrough, t, fullQuad(storageCoords(f.BottomUp())), nil, ov); err != nil {
		_ = t.Delete(f)
		return nil, err
	}
	fl.overlayFit = t
	return t, nil
}

// drawGroup chains the members through pooled textures of the output size.
// The first member is placed with coords; the rest copy full-frame.
func (fl *Filter) drawGroup(f *Frame, dst, src *Texture, coords Quad) error {
	if len(fl.children) == 0 {
		return drawProgram(f, fl.passThrough, dst, coords, nil, src)
	}
	cur := src
	release := func() {
		if cur != src {
			fl.pool.Release(cur)
		}
	}
	last := len(fl.children) - 1
	for i, c := range fl.children {
		out := dst
		if i < last {
			t, err := fl.pool.Acquire(f, fl.outW, fl.outH)
			if err != nil {
				release()
				return err
			}
			out = t
		}
		if err := c.Draw(f, out, cur, coords); err != nil {
			if out != dst {
				fl.pool.Release(out)
			}
			release()
			return err
		}
		release()
		cur = out
		coords = fullQuad(storageCoords(f.BottomUp()))
	}
	return nil
}
