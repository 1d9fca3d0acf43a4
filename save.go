package gpuimage

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// JPEGQuality is the quality used when saving to .jpg or .jpeg.
const JPEGQuality = 80

// SaveImage encodes img to path, choosing the format from the extension
// (.png, .jpg, .jpeg, .gif, .tif, .tiff, .bmp). Missing parent directories are
// created.
func SaveImage(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("gpuimage: mkdir %s: %w", dir, err)
		}
	}
	if err := imaging.Save(img, path, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return fmt.Errorf("gpuimage: save %s: %w", path, err)
	}
	return nil
}

// SnapshotPath builds dir/<stamp>_<label><ext> with the label sanitized for
// use in a file name. ext defaults to ".jpg".
func SnapshotPath(dir, label, ext string, at time.Time) string {
	if ext == "" {
		ext = ".jpg"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	name := fmt.Sprintf("%s_%s%s", at.Format("20060102_150405"), sanitizeLabel(label), ext)
	return filepath.Join(dir, name)
}

// maxLabelLen caps the label part of snapshot file names.
const maxLabelLen = 64

// sanitizeLabel turns a filter or chain label into a file-name fragment.
// Parameter separators ('=' and '+') become '-', other unsafe runs collapse
// to a single '_', and leading or trailing dots and underscores are dropped.
func sanitizeLabel(label string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.TrimSpace(label) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
		case r == '=' || r == '+':
			r = '-'
		default:
			pending = true
			continue
		}
		if pending && b.Len() > 0 {
			b.WriteByte('_')
		}
		pending = false
		b.WriteRune(r)
		if b.Len() >= maxLabelLen {
			break
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unlabeled"
	}
	return out
}
