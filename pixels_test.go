package gpuimage

import (
	"image"
	"image/color"
	"testing"
)

func TestMirrorRows(t *testing.T) {
	tests := []struct {
		in, want []byte
		h        int
	}{
		{[]byte{1, 2, 3}, []byte{3, 2, 1}, 3},
		{[]byte{1, 2, 3, 4}, []byte{4, 3, 2, 1}, 4},
		{[]byte{7}, []byte{7}, 1},
	}
	for _, tt := range tests {
		pix := append([]byte(nil), tt.in...)
		mirrorRows(pix, 1, tt.h)
		for i := range pix {
			if pix[i] != tt.want[i] {
				t.Errorf("mirrorRows(%v) = %v, want %v", tt.in, pix, tt.want)
				break
			}
		}
	}
}

func TestPremultiply(t *testing.T) {
	pix := []byte{200, 100, 50, 128, 10, 20, 30, 255, 99, 99, 99, 0}
	premultiply(pix)
	want := []byte{100, 50, 25, 128, 10, 20, 30, 255, 0, 0, 0, 0}
	for i := range want {
		if pix[i] != want[i] {
			t.Fatalf("premultiply = %v, want %v", pix, want)
		}
	}
}

func TestUnpremultiply(t *testing.T) {
	pix := []byte{100, 50, 25, 128, 0, 0, 0, 0, 10, 20, 30, 255}
	unpremultiply(pix)
	want := []byte{199, 100, 50, 128, 0, 0, 0, 0, 10, 20, 30, 255}
	for i := range want {
		if !near(pix[i], want[i]) {
			t.Fatalf("unpremultiply = %v, want %v", pix, want)
		}
	}
}

func TestPackedPixSubImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.SetNRGBA(1, 1, color.NRGBA{1, 2, 3, 4})
	img.SetNRGBA(2, 2, color.NRGBA{5, 6, 7, 8})
	sub := img.SubImage(image.Rect(1, 1, 3, 3)).(*image.NRGBA)
	pix := packedPix(sub)
	if len(pix) != 2*2*4 {
		t.Fatalf("len = %d, want 16", len(pix))
	}
	if pix[0] != 1 || pix[3] != 4 || pix[12] != 5 || pix[15] != 8 {
		t.Errorf("packedPix = %v", pix)
	}
}

func TestToNRGBAAnchorsAtOrigin(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 20, 12, 22))
	src.Set(10, 20, color.RGBA{255, 0, 0, 255})
	dst := toNRGBA(src)
	if dst.Bounds() != image.Rect(0, 0, 2, 2) {
		t.Fatalf("bounds = %v", dst.Bounds())
	}
	if got := dst.NRGBAAt(0, 0); got != red {
		t.Errorf("pixel = %v, want red", got)
	}
}
