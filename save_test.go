package gpuimage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
)

func TestSanitizeLabel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"sepia", "sepia"},
		{"box-blur", "box-blur"},
		{"dilation.4", "dilation.4"},
		{"dissolve 50%", "dissolve_50"},
		{"a/b\\c", "a_b_c"},
		{"brightness=0.1+blur=1", "brightness-0.1-blur-1"},
		{"../../etc", "etc"},
		{"__x__", "x"},
		{"", "unlabeled"},
		{"  \t ", "unlabeled"},
		{"Edge3x3", "Edge3x3"},
	}
	for _, tt := range tests {
		if got := sanitizeLabel(tt.in); got != tt.want {
			t.Errorf("sanitizeLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSnapshotPath(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	tests := []struct {
		label, ext, want string
	}{
		{"blur", "", "20240309_140507_blur.jpg"},
		{"blur", "png", "20240309_140507_blur.png"},
		{"my filter", ".png", "20240309_140507_my_filter.png"},
	}
	for _, tt := range tests {
		got := SnapshotPath("out", tt.label, tt.ext, at)
		if want := filepath.Join("out", tt.want); got != want {
			t.Errorf("SnapshotPath(%q, %q) = %q, want %q", tt.label, tt.ext, got, want)
		}
	}
}

func TestSaveImageCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "red.png")
	if err := SaveImage(path, solidImage(3, 2, red)); err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
	img, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 3 || b.Dy() != 2 {
		t.Errorf("saved size = %v", b)
	}
	r, g, b, _ := img.At(1, 1).RGBA()
	if r>>8 != 255 || g != 0 || b != 0 {
		t.Errorf("saved pixel = %v", img.At(1, 1))
	}
}

func TestSaveImageUnknownExtension(t *testing.T) {
	if err := SaveImage(filepath.Join(t.TempDir(), "x.unknown"), solidImage(1, 1, red)); err == nil {
		t.Error("SaveImage with an unknown extension should fail")
	}
}
