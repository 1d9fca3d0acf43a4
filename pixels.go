package gpuimage

import (
	"image"

	"golang.org/x/image/draw"
)

// toNRGBA copies img into a new straight-alpha image anchored at the origin.
func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// packedPix returns the pixel bytes of img with a stride of exactly 4*width.
func packedPix(img *image.NRGBA) []byte {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if img.Stride == w*4 && b.Min == (image.Point{}) {
		return img.Pix[:w*h*4]
	}
	pix := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(pix[y*w*4:(y+1)*w*4], img.Pix[off:off+w*4])
	}
	return pix
}

// mirrorRows flips the rows of a packed pixel buffer in place.
func mirrorRows(pix []byte, stride, h int) {
	tmp := make([]byte, stride)
	for top, bottom := 0, h-1; top < bottom; top, bottom = top+1, bottom-1 {
		a := pix[top*stride : (top+1)*stride]
		b := pix[bottom*stride : (bottom+1)*stride]
		copy(tmp, a)
		copy(a, b)
		copy(b, tmp)
	}
}

// premultiply converts straight-alpha RGBA bytes to premultiplied in place.
func premultiply(pix []byte) {
	for i := 0; i+3 < len(pix); i += 4 {
		a := uint32(pix[i+3])
		if a == 255 {
			continue
		}
		pix[i] = byte((uint32(pix[i])*a + 127) / 255)
		pix[i+1] = byte((uint32(pix[i+1])*a + 127) / 255)
		pix[i+2] = byte((uint32(pix[i+2])*a + 127) / 255)
	}
}

// unpremultiply converts premultiplied RGBA bytes to straight alpha in place.
func unpremultiply(pix []byte) {
	for i := 0; i+3 < len(pix); i += 4 {
		a := uint32(pix[i+3])
		switch a {
		case 0:
			pix[i], pix[i+1], pix[i+2] = 0, 0, 0
		case 255:
		default:
			pix[i] = byte(min((uint32(pix[i])*255+a/2)/a, 255))
			pix[i+1] = byte(min((uint32(pix[i+1])*255+a/2)/a, 255))
			pix[i+2] = byte(min((uint32(pix[i+2])*255+a/2)/a, 255))
		}
	}
}
