package gpuimage

import "fmt"

// Rotation is a clockwise rotation of the source image in 90 degree steps.
type Rotation uint8

const (
	RotationNormal Rotation = iota // 0 degrees
	Rotation90                     // 90 degrees
	Rotation180                    // 180 degrees
	Rotation270                    // 270 degrees
)

// RotationFromDegrees converts an angle to a Rotation. 360 is accepted as an
// alias of 0; any other angle returns ErrInvalidRotation.
func RotationFromDegrees(deg int) (Rotation, error) {
	switch deg {
	case 0, 360:
		return RotationNormal, nil
	case 90:
		return Rotation90, nil
	case 180:
		return Rotation180, nil
	case 270:
		return Rotation270, nil
	default:
		return RotationNormal, fmt.Errorf("%w: got %d", ErrInvalidRotation, deg)
	}
}

// Degrees returns 0, 90, 180 or 270. It panics for a value outside the enum.
func (r Rotation) Degrees() int {
	switch r {
	case RotationNormal:
		return 0
	case Rotation90:
		return 90
	case Rotation180:
		return 180
	case Rotation270:
		return 270
	default:
		panic(fmt.Sprintf("gpuimage: unknown rotation %d", uint8(r)))
	}
}

// Valid reports whether r is one of the four defined rotations.
func (r Rotation) Valid() bool {
	return r <= Rotation270
}

// String implements fmt.Stringer.
func (r Rotation) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Rotation(%d)", uint8(r))
	}
	return fmt.Sprintf("%d°", r.Degrees())
}

// swapsAxes reports whether the rotation exchanges width and height.
func (r Rotation) swapsAxes() bool {
	return r == Rotation90 || r == Rotation270
}

// Texture coordinate tables, one (s, t) pair per quad vertex in the order
// bottom-left, bottom-right, top-left, top-right. t = 0 is the first row of an
// uploaded image.
var (
	textureNoRotation = [8]float32{
		0, 1,
		1, 1,
		0, 0,
		1, 0,
	}
	textureRotated90 = [8]float32{
		1, 1,
		1, 0,
		0, 1,
		0, 0,
	}
	textureRotated180 = [8]float32{
		1, 0,
		0, 0,
		1, 1,
		0, 1,
	}
	textureRotated270 = [8]float32{
		0, 0,
		0, 1,
		1, 0,
		1, 1,
	}
)

// TextureCoords returns the texture coordinate table for a rotation, with the
// s coordinates complemented for a horizontal flip and the t coordinates
// complemented for a vertical flip. Unknown rotations use the unrotated table.
func TextureCoords(r Rotation, flipHorizontal, flipVertical bool) [8]float32 {
	var tc [8]float32
	switch r {
	case Rotation90:
		tc = textureRotated90
	case Rotation180:
		tc = textureRotated180
	case Rotation270:
		tc = textureRotated270
	default:
		tc = textureNoRotation
	}
	if flipHorizontal {
		for i := 0; i < 8; i += 2 {
			tc[i] = flip(tc[i])
		}
	}
	if flipVertical {
		for i := 1; i < 8; i += 2 {
			tc[i] = flip(tc[i])
		}
	}
	return tc
}

func flip(v float32) float32 {
	if v == 0 {
		return 1
	}
	return 0
}

// RotationSpec is a rotation combined with independent mirror flags.
type RotationSpec struct {
	Rotation       Rotation
	FlipHorizontal bool
	FlipVertical   bool
}

// TextureCoords returns the coordinate table for the rotation and flips.
func (s RotationSpec) TextureCoords() [8]float32 {
	return TextureCoords(s.Rotation, s.FlipHorizontal, s.FlipVertical)
}

// storageCoords returns the table that copies a texture to a target of the
// same size without changing its storage row order. Targets whose row 0 is at
// the bottom (GL convention) need the vertically flipped table.
func storageCoords(bottomUp bool) [8]float32 {
	return TextureCoords(RotationNormal, false, bottomUp)
}
