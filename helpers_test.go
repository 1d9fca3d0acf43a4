package gpuimage

import (
	"image"
	"image/color"
	"testing"
)

// withFrame runs fn on a fresh software context, on the test goroutine.
func withFrame(t *testing.T, fn func(f *Frame)) {
	t.Helper()
	dev, err := NewSoftwareDevice()
	if err != nil {
		t.Fatalf("NewSoftwareDevice: %v", err)
	}
	c := newContext(dev)
	c.enter(fn)
	c.stop()
}

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// quadrants returns a 2x2 image: red, green on top; blue, white below.
func quadrants() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{255, 0, 0, 255})
	img.SetNRGBA(1, 0, color.NRGBA{0, 255, 0, 255})
	img.SetNRGBA(0, 1, color.NRGBA{0, 0, 255, 255})
	img.SetNRGBA(1, 1, color.NRGBA{255, 255, 255, 255})
	return img
}

var (
	red   = color.NRGBA{255, 0, 0, 255}
	green = color.NRGBA{0, 255, 0, 255}
	blue  = color.NRGBA{0, 0, 255, 255}
	white = color.NRGBA{255, 255, 255, 255}
	black = color.NRGBA{0, 0, 0, 255}
)

func near(a, b uint8) bool {
	d := int(a) - int(b)
	return d >= -1 && d <= 1
}

func nearColor(a, b color.NRGBA) bool {
	return near(a.R, b.R) && near(a.G, b.G) && near(a.B, b.B) && near(a.A, b.A)
}

func checkPixel(t *testing.T, img *image.NRGBA, x, y int, want color.NRGBA) {
	t.Helper()
	if got := img.NRGBAAt(x, y); !nearColor(got, want) {
		t.Errorf("pixel (%d,%d) = %v, want %v", x, y, got, want)
	}
}

// renderFilter draws img through fl into a texture of img's size and reads
// the result back top-down.
func renderFilter(t *testing.T, f *Frame, fl *Filter, img *image.NRGBA) *image.NRGBA {
	t.Helper()
	src, err := uploadTexture(f, img, "test source")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer src.Delete(f)
	b := img.Bounds()
	dst, err := newTexture(f, b.Dx(), b.Dy(), "test target")
	if err != nil {
		t.Fatalf("newTexture: %v", err)
	}
	defer dst.Delete(f)
	if err := fl.Draw(f, dst, src, fullQuad(textureNoRotation)); err != nil {
		t.Fatalf("Draw %s: %v", fl.Name(), err)
	}
	out, err := readImage(f, dst)
	if err != nil {
		t.Fatalf("readImage: %v", err)
	}
	return out
}
