package gpuimage

import (
	"math"
	"testing"
)

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}

func TestComputeLayoutCropCoversViewport(t *testing.T) {
	sizes := []Size{{100, 100}, {50, 200}, {640, 480}, {333, 77}, {1, 999}}
	rots := []Rotation{RotationNormal, Rotation90, Rotation180, Rotation270}
	for _, out := range sizes {
		for _, img := range sizes {
			for _, rot := range rots {
				l := computeLayout(out.Width, out.Height, img.Width, img.Height, RotationSpec{Rotation: rot}, ScaleCrop)
				if l.Displayed.Width < out.Width || l.Displayed.Height < out.Height {
					t.Errorf("crop %v in %v rot %v: displayed %v smaller than viewport", img, out, rot, l.Displayed)
				}
				if l.Quad.Positions != cube {
					t.Errorf("crop %v in %v rot %v: positions changed: %v", img, out, rot, l.Quad.Positions)
				}
			}
		}
	}
}

func TestComputeLayoutFitInsideViewport(t *testing.T) {
	sizes := []Size{{100, 100}, {50, 200}, {640, 480}, {333, 77}, {1, 999}}
	rots := []Rotation{RotationNormal, Rotation90, Rotation180, Rotation270}
	for _, out := range sizes {
		for _, img := range sizes {
			for _, rot := range rots {
				l := computeLayout(out.Width, out.Height, img.Width, img.Height, RotationSpec{Rotation: rot}, ScaleFit)
				if l.Displayed.Width > out.Width || l.Displayed.Height > out.Height {
					t.Errorf("fit %v in %v rot %v: displayed %v larger than viewport", img, out, rot, l.Displayed)
				}
				if l.Quad.TexCoords != TextureCoords(rot, false, false) {
					t.Errorf("fit %v in %v rot %v: texcoords changed", img, out, rot)
				}
				for i, p := range l.Quad.Positions {
					if p < -1 || p > 1 {
						t.Errorf("fit %v in %v rot %v: position[%d] = %v outside NDC", img, out, rot, i, p)
					}
				}
			}
		}
	}
}

func TestComputeLayoutCropSquareIntoTall(t *testing.T) {
	l := computeLayout(50, 200, 100, 100, RotationSpec{}, ScaleCrop)
	if l.Displayed != (Size{200, 200}) {
		t.Errorf("Displayed = %v, want 200x200", l.Displayed)
	}
	want := [8]float32{0.375, 1, 0.625, 1, 0.375, 0, 0.625, 0}
	for i := range want {
		if !approx(l.Quad.TexCoords[i], want[i]) {
			t.Fatalf("TexCoords = %v, want %v", l.Quad.TexCoords, want)
		}
	}
}

func TestComputeLayoutFitSquareIntoTall(t *testing.T) {
	l := computeLayout(50, 200, 100, 100, RotationSpec{}, ScaleFit)
	if l.Displayed != (Size{50, 50}) {
		t.Errorf("Displayed = %v, want 50x50", l.Displayed)
	}
	want := [8]float32{-1, -0.25, 1, -0.25, -1, 0.25, 1, 0.25}
	for i := range want {
		if !approx(l.Quad.Positions[i], want[i]) {
			t.Fatalf("Positions = %v, want %v", l.Quad.Positions, want)
		}
	}
}

func TestComputeLayoutRotationSwapsAxes(t *testing.T) {
	// A 200x100 landscape image rotated 90 degrees fills a 100x200 portrait
	// output exactly.
	for _, st := range []ScaleType{ScaleCrop, ScaleFit} {
		l := computeLayout(100, 200, 200, 100, RotationSpec{Rotation: Rotation90}, st)
		if l.Displayed != (Size{100, 200}) {
			t.Errorf("%v: Displayed = %v, want 100x200", st, l.Displayed)
		}
		if l.Quad.Positions != cube {
			t.Errorf("%v: Positions = %v, want full quad", st, l.Quad.Positions)
		}
		if l.Quad.TexCoords != textureRotated90 {
			t.Errorf("%v: TexCoords = %v, want unmodified 90 degree table", st, l.Quad.TexCoords)
		}
	}
}

func TestComputeLayoutEmpty(t *testing.T) {
	l := computeLayout(0, 0, 100, 100, RotationSpec{Rotation: Rotation180}, ScaleCrop)
	if l.Quad != fullQuad(textureRotated180) {
		t.Errorf("empty output quad = %+v", l.Quad)
	}
	l = computeLayout(100, 100, 0, 0, RotationSpec{}, ScaleFit)
	if l.Quad != fullQuad(textureNoRotation) {
		t.Errorf("empty image quad = %+v", l.Quad)
	}
}

func TestAddDistance(t *testing.T) {
	if got := addDistance(0, 0.25); got != 0.25 {
		t.Errorf("addDistance(0, 0.25) = %v", got)
	}
	if got := addDistance(1, 0.25); got != 0.75 {
		t.Errorf("addDistance(1, 0.25) = %v", got)
	}
}

func TestParseScaleType(t *testing.T) {
	tests := []struct {
		in      string
		want    ScaleType
		wantErr bool
	}{
		{"crop", ScaleCrop, false},
		{"FIT", ScaleFit, false},
		{" center_inside ", ScaleFit, false},
		{"center-crop", ScaleCrop, false},
		{"stretch", ScaleCrop, true},
	}
	for _, tt := range tests {
		got, err := ParseScaleType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseScaleType(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseScaleType(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
