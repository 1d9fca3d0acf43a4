package gpuimage

import "math"

// cube is the full-viewport quad in normalized device coordinates, in the
// same vertex order as the texture coordinate tables.
var cube = [8]float32{
	-1, -1,
	1, -1,
	-1, 1,
	1, 1,
}

// Quad is a four-vertex triangle strip: positions in normalized device
// coordinates and one texture coordinate pair per vertex.
type Quad struct {
	Positions [8]float32
	TexCoords [8]float32
}

// fullQuad returns the viewport-covering quad with the given coordinates.
func fullQuad(tc [8]float32) Quad {
	return Quad{Positions: cube, TexCoords: tc}
}

// Layout is the result of fitting an image into an output surface.
type Layout struct {
	Quad Quad
	// Displayed is the on-screen size of the scaled image. With ScaleCrop it
	// covers the output; with ScaleFit it fits inside it.
	Displayed Size
}

// computeLayout fits an imgW x imgH image into an outW x outH surface.
// Rotations by 90 and 270 degrees swap the output axes before the ratios are
// computed. A zero image or output size yields the plain rotated quad.
func computeLayout(outW, outH, imgW, imgH int, rs RotationSpec, st ScaleType) Layout {
	q := fullQuad(rs.TextureCoords())
	if outW <= 0 || outH <= 0 || imgW <= 0 || imgH <= 0 {
		return Layout{Quad: q, Displayed: Size{outW, outH}}
	}

	ow, oh := float64(outW), float64(outH)
	if rs.Rotation.swapsAxes() {
		ow, oh = oh, ow
	}
	iw, ih := float64(imgW), float64(imgH)

	ratioW := ow / iw
	ratioH := oh / ih
	ratio := math.Max(ratioW, ratioH)
	if st == ScaleFit {
		ratio = math.Min(ratioW, ratioH)
	}
	sw := math.Round(iw * ratio)
	sh := math.Round(ih * ratio)

	switch st {
	case ScaleFit:
		px := float32(sw / ow)
		py := float32(sh / oh)
		if rs.Rotation.swapsAxes() {
			px, py = py, px
		}
		for i := 0; i < 8; i += 2 {
			q.Positions[i] *= px
			q.Positions[i+1] *= py
		}
	default:
		// Texture s always runs along image x, so the insets are computed in
		// image space regardless of rotation.
		dh := float32((1 - ow/sw) / 2)
		dv := float32((1 - oh/sh) / 2)
		for i := 0; i < 8; i += 2 {
			q.TexCoords[i] = addDistance(q.TexCoords[i], dh)
			q.TexCoords[i+1] = addDistance(q.TexCoords[i+1], dv)
		}
	}

	disp := Size{int(sw), int(sh)}
	if rs.Rotation.swapsAxes() {
		disp = Size{int(sh), int(sw)}
	}
	return Layout{Quad: q, Displayed: disp}
}

// addDistance moves an edge coordinate inward by d.
func addDistance(coord, d float32) float32 {
	if coord == 0 {
		return d
	}
	return 1 - d
}
